package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ipeterlow/labdopingv2/internal/model"
	"github.com/ipeterlow/labdopingv2/internal/storage"
)

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 2, daysBetween(date(2026, time.March, 2), date(2026, time.March, 4)))
	assert.Equal(t, 0, daysBetween(date(2026, time.March, 2), date(2026, time.March, 2)))
	// Inverted ranges clamp to zero
	assert.Equal(t, 0, daysBetween(date(2026, time.March, 4), date(2026, time.March, 2)))
	// Time of day is irrelevant
	from := time.Date(2026, time.March, 2, 23, 50, 0, 0, time.UTC)
	to := time.Date(2026, time.March, 3, 0, 10, 0, 0, time.UTC)
	assert.Equal(t, 1, daysBetween(from, to))
}

func TestBusinessDaysBetween(t *testing.T) {
	// Monday 2026-03-02 to Friday 2026-03-06: no weekend in the span
	assert.Equal(t, 4, businessDaysBetween(date(2026, time.March, 2), date(2026, time.March, 6)))
	// Monday to next Monday crosses one weekend
	assert.Equal(t, 5, businessDaysBetween(date(2026, time.March, 2), date(2026, time.March, 9)))
	// Friday to Monday is one business day
	assert.Equal(t, 1, businessDaysBetween(date(2026, time.March, 6), date(2026, time.March, 9)))
	// Two full weeks
	assert.Equal(t, 10, businessDaysBetween(date(2026, time.March, 2), date(2026, time.March, 16)))
	// Same day
	assert.Equal(t, 0, businessDaysBetween(date(2026, time.March, 4), date(2026, time.March, 4)))
}

func seedReportData(t *testing.T, db *gorm.DB) (model.Company, *CreateReceptionResult) {
	t.Helper()
	company := seedCompany(t, db)
	created, err := NewReceptionService(db).Create(intakeInput(company.ID,
		SampleEntry{External: "REP-001", Type: model.TypeOrina, Category: model.CategoryA},
		SampleEntry{External: "REP-002", Type: model.TypePelo, Category: model.CategoryB},
	))
	require.NoError(t, err)
	return company, created
}

func TestListReceptionsSearchIsCaseInsensitive(t *testing.T) {
	db := setupTestDB(t)
	seedReportData(t, db)
	svc := NewReportService(db)

	items, pagination, err := svc.ListReceptions(1, 15, "rep-001")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "REP-001", items[0].Sample.ExternalID)
	assert.Equal(t, int64(1), pagination.Total)

	// Company name matches too
	items, _, err = svc.ListReceptions(1, 15, "minera")
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestListReceptionsSearchByStatusName(t *testing.T) {
	db := setupTestDB(t)
	_, created := seedReportData(t, db)
	require.NoError(t, NewReceptionService(db).UpdateStatus(created.SampleIDs[0], model.StatusReported))
	svc := NewReportService(db)

	items, _, err := svc.ListReceptions(1, 15, "informe entregado")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, model.StatusReported, items[0].Sample.Status)
	assert.Equal(t, "Informe Entregado", items[0].StatusName)
}

func TestListReceptionsPagination(t *testing.T) {
	db := setupTestDB(t)
	company := seedCompany(t, db)
	recSvc := NewReceptionService(db)
	for i := 0; i < 5; i++ {
		_, err := recSvc.Create(intakeInput(company.ID,
			SampleEntry{External: "PG-" + string(rune('A'+i)), Type: model.TypeOrina, Category: model.CategoryA}))
		require.NoError(t, err)
	}

	items, pagination, err := NewReportService(db).ListReceptions(2, 2, "")
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, int64(5), pagination.Total)
	assert.Equal(t, 3, pagination.LastPage)
	assert.Equal(t, 2, pagination.CurrentPage)
	assert.Equal(t, 3, pagination.From)
	assert.Equal(t, 4, pagination.To)
}

func TestListReportsComputesTurnaround(t *testing.T) {
	db := setupTestDB(t)
	_, created := seedReportData(t, db)

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	docSvc := NewDocumentService(db, store, time.UTC)
	_, err = docSvc.Upload(context.Background(), "REP-001", model.DocumentInforme,
		"informe.pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)

	items, _, err := NewReportService(db).ListReports(1, 15, "", nil)
	require.NoError(t, err)
	require.Len(t, items, 2)

	for _, item := range items {
		require.NotNil(t, item.TiempoRecepcion)
		assert.Equal(t, 2, *item.TiempoRecepcion) // sent 03-02, received 03-04
		if item.Sample.ID == created.SampleIDs[0] {
			require.NotNil(t, item.TiempoRespuesta, "sample with informe has a response time")
		} else {
			assert.Nil(t, item.TiempoRespuesta, "no informe, no response time")
		}
	}
}

func TestListReportsTeamFilter(t *testing.T) {
	db := setupTestDB(t)
	companyA, _ := seedReportData(t, db)

	companyB := model.Company{Name: "Puerto Austral", Email: "ops@puertoaustral.cl"}
	require.NoError(t, db.Create(&companyB).Error)
	_, err := NewReceptionService(db).Create(intakeInput(companyB.ID,
		SampleEntry{External: "OTRO-1", Type: model.TypeSaliva, Category: model.CategoryA}))
	require.NoError(t, err)

	items, _, err := NewReportService(db).ListReports(1, 15, "", &companyA.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, item := range items {
		assert.Equal(t, companyA.ID, item.Sample.CompanyID)
	}
}

func TestBookListFiltersByType(t *testing.T) {
	db := setupTestDB(t)
	seedReportData(t, db)
	svc := NewReportService(db)

	rows, pagination, err := svc.BookList(model.TypeOrina, 1, 15, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, model.TypeOrina, rows[0].Sample.Type)
	assert.Equal(t, int64(1), pagination.Total)

	rows, _, err = svc.BookList(model.TypePelo, 1, 15, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "REP-002", rows[0].Sample.ExternalID)
}

func TestBookListSearchesTypeSpecificFields(t *testing.T) {
	db := setupTestDB(t)
	_, created := seedReportData(t, db)

	var characteristic model.CharacteristicSample
	require.NoError(t, db.Where("sample_id = ?", created.SampleIDs[0]).First(&characteristic).Error)
	require.NoError(t, NewCharacteristicService(db).Update(characteristic.ID, CharacteristicUpdate{
		Ph: strPtr("6.8"),
	}))

	rows, _, err := NewReportService(db).BookList(model.TypeOrina, 1, 15, "6.8")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "6.8", rows[0].Characteristic.Ph)

	rows, _, err = NewReportService(db).BookList(model.TypeOrina, 1, 15, "no-match")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestBookExportRowsByAnalyzedRange(t *testing.T) {
	db := setupTestDB(t)
	_, created := seedReportData(t, db)

	var characteristic model.CharacteristicSample
	require.NoError(t, db.Where("sample_id = ?", created.SampleIDs[0]).First(&characteristic).Error)
	analyzed := date(2026, time.May, 12)
	require.NoError(t, NewCharacteristicService(db).Update(characteristic.ID, CharacteristicUpdate{
		FechaIngreso: &analyzed,
	}))
	svc := NewReportService(db)

	rows, err := svc.BookExportRows(model.TypeOrina, date(2026, time.May, 1), date(2026, time.May, 31))
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	// The range end is inclusive through the whole day
	rows, err = svc.BookExportRows(model.TypeOrina, date(2026, time.May, 1), date(2026, time.May, 12))
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	rows, err = svc.BookExportRows(model.TypeOrina, date(2026, time.June, 1), date(2026, time.June, 30))
	require.NoError(t, err)
	assert.Empty(t, rows)

	var validation *ValidationError
	_, err = svc.BookExportRows(model.TypeOrina, date(2026, time.June, 2), date(2026, time.June, 1))
	assert.ErrorAs(t, err, &validation)
}

func TestDetailIncludesDocuments(t *testing.T) {
	db := setupTestDB(t)
	_, created := seedReportData(t, db)

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	docSvc := NewDocumentService(db, store, time.UTC)
	_, err = docSvc.Upload(context.Background(), "REP-001", model.DocumentInforme,
		"informe.pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)

	detail, err := NewReportService(db).Detail(created.SampleIDs[0])
	require.NoError(t, err)
	require.NotNil(t, detail.Informe)
	assert.Nil(t, detail.Cadena)
	assert.Equal(t, "Informe Entregado", detail.StatusName)
	require.NotNil(t, detail.Sample.Characteristic)

	_, err = NewReportService(db).Detail(99999)
	assert.ErrorIs(t, err, ErrNotFound)
}
