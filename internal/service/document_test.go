package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipeterlow/labdopingv2/internal/model"
	"github.com/ipeterlow/labdopingv2/internal/storage"
)

func newDocumentService(t *testing.T) (*DocumentService, *storage.LocalStore, model.Sample) {
	t.Helper()
	db := setupTestDB(t)
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	sample, _ := seedSampleWithCharacteristic(t, db, model.TypeOrina)
	return NewDocumentService(db, store, time.UTC), store, sample
}

func TestUploadInformeSetsStatusAndResultsAt(t *testing.T) {
	svc, store, sample := newDocumentService(t)
	ctx := context.Background()

	result, err := svc.Upload(ctx, sample.ExternalID, model.DocumentInforme,
		"informe-final.pdf", strings.NewReader("%PDF-1.7 contenido"))
	require.NoError(t, err)
	assert.Equal(t, "informes/informe-final.pdf", result.Path)

	content, err := store.Get(ctx, result.Path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "%PDF"))

	var updated model.Sample
	require.NoError(t, svc.db.First(&updated, sample.ID).Error)
	assert.Equal(t, model.StatusReported, updated.Status)
	require.NotNil(t, updated.ResultsAt)
}

func TestUploadInformeOverridesAnyStatus(t *testing.T) {
	svc, _, sample := newDocumentService(t)
	require.NoError(t, svc.db.Model(&model.Sample{}).Where("id = ?", sample.ID).
		Update("status", model.StatusInReview).Error)

	_, err := svc.Upload(context.Background(), sample.ExternalID, model.DocumentInforme,
		"informe.pdf", strings.NewReader("%PDF-1.7"))
	require.NoError(t, err)

	var updated model.Sample
	require.NoError(t, svc.db.First(&updated, sample.ID).Error)
	assert.Equal(t, model.StatusReported, updated.Status)
}

func TestUploadCadenaDoesNotTouchStatus(t *testing.T) {
	svc, _, sample := newDocumentService(t)

	_, err := svc.Upload(context.Background(), sample.ExternalID, model.DocumentCadena,
		"cadena.pdf", strings.NewReader("%PDF-1.7"))
	require.NoError(t, err)

	var updated model.Sample
	require.NoError(t, svc.db.First(&updated, sample.ID).Error)
	assert.Equal(t, model.StatusReceived, updated.Status)
	assert.Nil(t, updated.ResultsAt)
}

func TestUploadReplacesExistingDocument(t *testing.T) {
	svc, store, sample := newDocumentService(t)
	ctx := context.Background()

	first, err := svc.Upload(ctx, sample.ExternalID, model.DocumentInforme,
		"v1.pdf", strings.NewReader("%PDF v1"))
	require.NoError(t, err)
	second, err := svc.Upload(ctx, sample.ExternalID, model.DocumentInforme,
		"v2.pdf", strings.NewReader("%PDF v2"))
	require.NoError(t, err)
	assert.Equal(t, first.DocumentID, second.DocumentID)

	// Single row per (sample, type), pointing at the new blob
	var count int64
	require.NoError(t, svc.db.Model(&model.Document{}).
		Where("sample_id = ? AND type_document = ?", sample.ID, model.DocumentInforme).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)

	_, err = store.Get(ctx, "informes/v1.pdf")
	assert.Error(t, err, "superseded blob should be removed")
	content, err := store.Get(ctx, "informes/v2.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF v2", string(content))
}

func TestUploadPicksNewestSampleForRepeatedCode(t *testing.T) {
	svc, _, sample := newDocumentService(t)
	ctx := context.Background()

	// Second sample sharing the external code (an A/B pair member)
	twin := model.Sample{
		ExternalID:  sample.ExternalID,
		Type:        sample.Type,
		Category:    model.CategoryB,
		Status:      model.StatusReceived,
		ReceptionID: sample.ReceptionID,
		CompanyID:   sample.CompanyID,
	}
	require.NoError(t, svc.db.Create(&twin).Error)

	_, err := svc.Upload(ctx, sample.ExternalID, model.DocumentInforme,
		"informe.pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)

	var doc model.Document
	require.NoError(t, svc.db.Where("type_document = ?", model.DocumentInforme).First(&doc).Error)
	assert.Equal(t, twin.ID, doc.SampleID)
}

func TestUploadUnknownExternalID(t *testing.T) {
	svc, _, _ := newDocumentService(t)
	_, err := svc.Upload(context.Background(), "NO-SUCH-CODE", model.DocumentInforme,
		"informe.pdf", strings.NewReader("%PDF"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUploadInvalidType(t *testing.T) {
	svc, _, sample := newDocumentService(t)
	_, err := svc.Upload(context.Background(), sample.ExternalID, "recibo",
		"x.pdf", strings.NewReader("%PDF"))
	var validation *ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestDownloadDerivesFilenameAndContentType(t *testing.T) {
	svc, _, sample := newDocumentService(t)
	ctx := context.Background()

	uploaded, err := svc.Upload(ctx, sample.ExternalID, model.DocumentInforme,
		"informe.pdf", strings.NewReader("%PDF-1.7"))
	require.NoError(t, err)

	result, err := svc.Download(ctx, uploaded.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "Informe-"+sample.ExternalID+".pdf", result.Filename)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.Equal(t, "%PDF-1.7", string(result.Content))
}

func TestDownloadSniffsExtensionlessBlob(t *testing.T) {
	svc, _, sample := newDocumentService(t)
	ctx := context.Background()

	uploaded, err := svc.Upload(ctx, sample.ExternalID, model.DocumentCadena,
		"scan", strings.NewReader("\xFF\xD8\xFFjpegdata"))
	require.NoError(t, err)

	result, err := svc.Download(ctx, uploaded.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "Cadena-Custodia-"+sample.ExternalID+".jpg", result.Filename)
	assert.Equal(t, "image/jpeg", result.ContentType)
}

func TestDownloadUnknownDocument(t *testing.T) {
	svc, _, _ := newDocumentService(t)
	_, err := svc.Download(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}
