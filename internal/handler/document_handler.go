package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ipeterlow/labdopingv2/internal/model"
	"github.com/ipeterlow/labdopingv2/internal/service"
	"github.com/ipeterlow/labdopingv2/pkg/database"
	"github.com/ipeterlow/labdopingv2/pkg/logger"
	"github.com/ipeterlow/labdopingv2/prometheus"
)

// uploadDocument handles a multipart upload of one document type. The
// sample is addressed by its external code in the "external_id" form
// field; the file comes in the "file" part.
func uploadDocument(c echo.Context, docType string) error {
	log := logger.FromContext(c)
	prometheus.RecordDocumentOperation("upload_" + docType)

	externalID := c.FormValue("external_id")
	fileHeader, err := c.FormFile("file")
	if err != nil {
		log.Warn("Missing file part", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file is required"})
	}

	src, err := fileHeader.Open()
	if err != nil {
		log.Error("Failed to open uploaded file", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot read uploaded file"})
	}
	defer src.Close()

	defer prometheus.TrackDBOperation("update")(time.Now())

	svc := service.NewDocumentService(database.GetDB(), blobStore, labTZ)
	result, err := svc.Upload(c.Request().Context(), externalID, docType, fileHeader.Filename, src)
	if err != nil {
		log.Warn("Document upload failed",
			zap.String("external_id", externalID),
			zap.String("type_document", docType),
			zap.Error(err))
		if handled, resp := serviceError(c, err); handled {
			return resp
		}
	}

	log.Info("Document uploaded",
		zap.Uint("document_id", result.DocumentID),
		zap.String("external_id", externalID),
		zap.String("type_document", docType),
		zap.String("path", result.Path))
	return c.JSON(http.StatusCreated, result)
}

// UploadInforme attaches a lab report to a sample by external code.
// Side effect: the sample moves to Informe Entregado.
func UploadInforme(c echo.Context) error {
	return uploadDocument(c, model.DocumentInforme)
}

// UploadCadenaCustodia attaches a chain-of-custody document to a sample
// by external code
func UploadCadenaCustodia(c echo.Context) error {
	return uploadDocument(c, model.DocumentCadena)
}

// DownloadDocument streams a stored document by id
func DownloadDocument(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordDocumentOperation("download")

	id, err := idParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid document ID"})
	}

	svc := service.NewDocumentService(database.GetDB(), blobStore, labTZ)
	result, err := svc.Download(c.Request().Context(), id)
	if err != nil {
		log.Warn("Document download failed", zap.Uint("document_id", id), zap.Error(err))
		if handled, resp := serviceError(c, err); handled {
			return resp
		}
	}

	log.Info("Document downloaded",
		zap.Uint("document_id", id),
		zap.String("filename", result.Filename))

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+result.Filename+`"`)
	return c.Blob(http.StatusOK, result.ContentType, result.Content)
}
