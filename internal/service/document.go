package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ipeterlow/labdopingv2/internal/model"
	"github.com/ipeterlow/labdopingv2/internal/storage"
)

// DocumentService binds uploaded report files to samples. Blobs live in
// the configured store under type-scoped namespaces; the database keeps
// one row per (sample, document type).
type DocumentService struct {
	db    *gorm.DB
	store storage.Store
	loc   *time.Location
}

// NewDocumentService creates a document service. loc is the lab's local
// timezone used to stamp results_at.
func NewDocumentService(db *gorm.DB, store storage.Store, loc *time.Location) *DocumentService {
	if loc == nil {
		loc = time.UTC
	}
	return &DocumentService{db: db, store: store, loc: loc}
}

// UploadResult reports the stored document
type UploadResult struct {
	DocumentID uint   `json:"document_id"`
	Path       string `json:"path"`
}

func namespaceFor(docType string) string {
	if docType == model.DocumentInforme {
		return "informes"
	}
	return "cadenas"
}

// Upload stores a file for the sample matching externalID exactly and
// upserts its document row. Re-uploading replaces the blob: the new blob
// is written first, the superseded one is deleted afterwards (a failed
// delete leaves an orphan that is logged, not fatal). Uploading an
// informe additionally forces the sample to Informe Entregado and stamps
// results_at with the lab-local current time.
func (s *DocumentService) Upload(ctx context.Context, externalID, docType, filename string, r io.Reader) (*UploadResult, error) {
	if docType != model.DocumentInforme && docType != model.DocumentCadena {
		return nil, &ValidationError{Fields: map[string]string{"type_document": "must be informe or cadena_custodia"}}
	}
	if externalID == "" {
		return nil, &ValidationError{Fields: map[string]string{"external_id": "required"}}
	}
	filename = path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if filename == "" || filename == "." || filename == "/" {
		return nil, &ValidationError{Fields: map[string]string{"file": "filename required"}}
	}

	// Newest sample wins when an external code repeats (A/B pairs share
	// one code; the pair members are distinct samples, the upload form
	// targets the code).
	var sample model.Sample
	err := s.db.Where("external_id = ?", externalID).Order("id DESC").First(&sample).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var existing *model.Document
	var prior model.Document
	err = s.db.Where("sample_id = ? AND type_document = ?", sample.ID, docType).First(&prior).Error
	switch err {
	case nil:
		existing = &prior
	case gorm.ErrRecordNotFound:
	default:
		return nil, err
	}

	key := namespaceFor(docType) + "/" + filename
	if err := s.store.Put(ctx, key, r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	result := &UploadResult{Path: key}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if existing != nil {
			if err := tx.Model(&model.Document{}).Where("id = ?", existing.ID).
				Update("document_archive", key).Error; err != nil {
				return err
			}
			result.DocumentID = existing.ID
		} else {
			doc := model.Document{SampleID: sample.ID, TypeDocument: docType, DocumentArchive: key}
			if err := tx.Create(&doc).Error; err != nil {
				return err
			}
			result.DocumentID = doc.ID
		}

		if docType == model.DocumentInforme {
			now := time.Now().In(s.loc)
			if err := tx.Model(&model.Sample{}).Where("id = ?", sample.ID).
				Updates(map[string]interface{}{
					"status":     model.StatusReported,
					"results_at": now,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Superseded blob is removed only once the replacement is durable
	// and the row points at it.
	if existing != nil && existing.DocumentArchive != key {
		if err := s.store.Delete(ctx, existing.DocumentArchive); err != nil {
			zap.L().Warn("Failed to delete superseded blob, orphan left for manual cleanup",
				zap.String("key", existing.DocumentArchive),
				zap.Error(err))
		}
	}

	return result, nil
}

// DownloadResult carries the byte stream and serving metadata of a
// stored document
type DownloadResult struct {
	Content     []byte
	Filename    string
	ContentType string
}

var contentTypes = map[string]string{
	"pdf":  "application/pdf",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
}

// sniffExtension guesses a file extension from magic bytes
func sniffExtension(content []byte) string {
	switch {
	case bytes.HasPrefix(content, []byte("%PDF")):
		return "pdf"
	case bytes.HasPrefix(content, []byte{0xFF, 0xD8, 0xFF}):
		return "jpg"
	case bytes.HasPrefix(content, []byte{0x89, 'P', 'N', 'G'}):
		return "png"
	}
	return ""
}

// Download fetches a document blob with a derived filename and content
// type. The extension comes from the stored key, falling back to magic
// byte sniffing, falling back to a generic binary type.
func (s *DocumentService) Download(ctx context.Context, id uint) (*DownloadResult, error) {
	var doc model.Document
	if err := s.db.First(&doc, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var sample model.Sample
	if err := s.db.First(&sample, doc.SampleID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	content, err := s.store.Get(ctx, doc.DocumentArchive)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	ext := strings.TrimPrefix(path.Ext(doc.DocumentArchive), ".")
	if ext == "" {
		ext = sniffExtension(content)
	}

	baseName := "Cadena-Custodia-" + sample.ExternalID
	if doc.TypeDocument == model.DocumentInforme {
		baseName = "Informe-" + sample.ExternalID
	}

	contentType, ok := contentTypes[strings.ToLower(ext)]
	if !ok {
		contentType = "application/octet-stream"
	}
	filename := baseName
	if ext != "" {
		filename += "." + ext
	}

	return &DownloadResult{Content: content, Filename: filename, ContentType: contentType}, nil
}
