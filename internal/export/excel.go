package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ipeterlow/labdopingv2/internal/model"
	"github.com/ipeterlow/labdopingv2/internal/service"
)

const exportSheet = "Muestras"

// headersFor returns the column header row for one sample type. The
// shared prefix and suffix wrap the type's own measurement columns.
func headersFor(sampleType string) []string {
	prefix := []string{
		"Código Externo", "Código Interno", "Categoría", "Empresa",
		"Fecha Recepción", "Fecha Análisis", "Fecha Toma de Muestra",
	}
	suffix := []string{
		"Screening", "Confirmación", "Cantidad Droga", "Encargado Ingreso",
		"Resultado GC-MS", "Resultado Cobas",
	}
	var measure []string
	switch sampleType {
	case model.TypePelo:
		measure = []string{"Largo", "Color", "Tipo de Muestra"}
		suffix = append(suffix, "Resultado ELISA", "Resultado Inmunocromatoplacas")
	case model.TypeOrina, model.TypeSaliva:
		measure = []string{"pH", "Densidad", "Volumen"}
	}
	headers := append(append(prefix, measure...), suffix...)
	return append(headers, "Observaciones", "Estado")
}

func cellDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("02-01-2006")
}

func cellInt(n *int) string {
	if n == nil {
		return ""
	}
	return fmt.Sprintf("%d", *n)
}

func valuesFor(sampleType string, row service.BookRow) []interface{} {
	sample := row.Sample
	c := row.Characteristic
	internal := ""
	if sample.InternalID != nil {
		internal = *sample.InternalID
	}
	values := []interface{}{
		sample.ExternalID, internal, sample.Category, sample.Company.Name,
		cellDate(sample.ReceivedAt), cellDate(sample.AnalyzedAt), cellDate(sample.SampleTakenAt),
	}
	switch sampleType {
	case model.TypePelo:
		values = append(values, c.Largo, c.Color, c.TipoMuestra)
	case model.TypeOrina, model.TypeSaliva:
		values = append(values, c.Ph, c.Densidad, c.Volumen)
	}
	values = append(values,
		c.Screening, c.Confirmacion, cellInt(c.CantidadDroga), c.EncargadoIngreso,
		c.ResultGcms, c.ResultCobas,
	)
	if sampleType == model.TypePelo {
		values = append(values, c.ResultElisa, c.ResultInmuno)
	}
	return append(values, c.Observaciones, row.StatusName)
}

// BookExcel renders the book rows of one sample type into an xlsx
// workbook: a styled header row and one data row per sample. An empty
// row set still yields the header-only sheet.
func BookExcel(sampleType string, rows []service.BookRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"E2E8F0"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "94A3B8", Style: 1},
		},
	})
	if err != nil {
		return nil, err
	}

	headers := headersFor(sampleType)
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			return nil, err
		}
	}
	lastCol, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(exportSheet, "A1", lastCol, headerStyle); err != nil {
		return nil, err
	}

	for r, row := range rows {
		for i, value := range valuesFor(sampleType, row) {
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(exportSheet, cell, value); err != nil {
				return nil, err
			}
		}
	}

	firstColName, _ := excelize.ColumnNumberToName(1)
	lastColName, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return nil, err
	}
	if err := f.SetColWidth(exportSheet, firstColName, lastColName, 18); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportFilename builds the download name for one type's export
func ExportFilename(sampleType string, from, to time.Time) string {
	return fmt.Sprintf("libro-%s-%s-%s.xlsx",
		sampleType, from.Format("2006-01-02"), to.Format("2006-01-02"))
}
