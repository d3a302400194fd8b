package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ipeterlow/labdopingv2/internal/model"
	"github.com/ipeterlow/labdopingv2/internal/service"
)

func sampleRow(sampleType string) service.BookRow {
	received := time.Date(2026, time.May, 4, 0, 0, 0, 0, time.UTC)
	internal := "INT-9"
	return service.BookRow{
		Sample: model.Sample{
			ExternalID: "EXP-1",
			InternalID: &internal,
			Type:       sampleType,
			Category:   model.CategoryA,
			Status:     model.StatusInAnalysis,
			ReceivedAt: &received,
			Company:    model.Company{Name: "Minera Andina"},
		},
		Characteristic: model.CharacteristicSample{
			Ph:        "6.5",
			Densidad:  "1.020",
			Largo:     "3cm",
			Color:     "negro",
			Screening: "negativo",
		},
		StatusName: "En Análisis",
	}
}

func TestBookExcelEmptyRangeIsHeaderOnly(t *testing.T) {
	content, err := BookExcel(model.TypeOrina, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Muestras")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Código Externo", rows[0][0])
	assert.Contains(t, rows[0], "pH")
	assert.NotContains(t, rows[0], "Largo")
}

func TestBookExcelWritesRows(t *testing.T) {
	content, err := BookExcel(model.TypeOrina, []service.BookRow{sampleRow(model.TypeOrina)})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Muestras")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "EXP-1", rows[1][0])
	assert.Equal(t, "INT-9", rows[1][1])
	assert.Contains(t, rows[1], "6.5")
	assert.Contains(t, rows[1], "04-05-2026")
	assert.Contains(t, rows[1], "En Análisis")
}

func TestBookExcelHairColumns(t *testing.T) {
	content, err := BookExcel(model.TypePelo, []service.BookRow{sampleRow(model.TypePelo)})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Muestras")
	require.NoError(t, err)
	assert.Contains(t, rows[0], "Largo")
	assert.Contains(t, rows[0], "Resultado ELISA")
	assert.NotContains(t, rows[0], "pH")
	assert.Contains(t, rows[1], "negro")
}

func TestExportFilename(t *testing.T) {
	name := ExportFilename(model.TypeOrina,
		time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.May, 31, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "libro-orina-2026-05-01-2026-05-31.xlsx", name)
}
