package export

import (
	"fmt"
	"sort"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/ipeterlow/labdopingv2/internal/model"
)

var spanishMonths = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// SpanishDate formats a date as "2 de enero de 2026"
func SpanishDate(t time.Time) string {
	return fmt.Sprintf("%d de %s de %d", t.Day(), spanishMonths[t.Month()-1], t.Year())
}

// typeCategoryCounts tallies samples per type and category, preserving a
// stable display order
func typeCategoryCounts(samples []model.Sample) []struct {
	Type     string
	Category string
	Count    int
} {
	counts := map[[2]string]int{}
	for _, sample := range samples {
		counts[[2]string{sample.Type, sample.Category}]++
	}
	keys := make([][2]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	out := make([]struct {
		Type     string
		Category string
		Count    int
	}, 0, len(keys))
	for _, k := range keys {
		out = append(out, struct {
			Type     string
			Category string
			Count    int
		}{k[0], k[1], counts[k]})
	}
	return out
}

// uniqueExternals returns the distinct external codes of the group in
// first-seen order
func uniqueExternals(samples []model.Sample) []string {
	seen := map[string]bool{}
	var codes []string
	for _, sample := range samples {
		if !seen[sample.ExternalID] {
			seen[sample.ExternalID] = true
			codes = append(codes, sample.ExternalID)
		}
	}
	return codes
}

// ReceptionReceipt renders the intake receipt PDF for one reception
// group: shipment metadata, sample counts per type and category, and
// the list of distinct external codes.
func ReceptionReceipt(samples []model.Sample) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("empty reception group")
	}
	head := samples[0]

	cfg := config.NewBuilder().
		WithLeftMargin(15).
		WithRightMargin(15).
		WithTopMargin(15).
		Build()
	m := maroto.New(cfg)

	m.AddRow(12, text.NewCol(12, "Recepción de Muestras", props.Text{
		Size:  16,
		Style: fontstyle.Bold,
		Align: align.Center,
	}))
	m.AddRow(8, text.NewCol(12, fmt.Sprintf("Recepción N° %d", head.ReceptionID), props.Text{
		Size:  12,
		Align: align.Center,
	}))
	m.AddRow(4, line.NewCol(12))

	labelProps := props.Text{Size: 10, Style: fontstyle.Bold}
	valueProps := props.Text{Size: 10}

	addField := func(label, value string) {
		m.AddRow(7,
			text.NewCol(4, label, labelProps),
			text.NewCol(8, value, valueProps),
		)
	}

	addField("Empresa:", head.Company.Name)
	if head.SentAt != nil {
		addField("Fecha de envío:", SpanishDate(*head.SentAt))
	}
	if head.ReceivedAt != nil {
		addField("Fecha de recepción:", SpanishDate(*head.ReceivedAt))
	}
	addField("Transporte:", head.ShippingType)
	if head.Description != "" {
		addField("Descripción:", head.Description)
	}

	m.AddRow(6, col.New(12))
	m.AddRow(8, text.NewCol(12, "Resumen de muestras", props.Text{Size: 12, Style: fontstyle.Bold}))
	m.AddRow(7,
		text.NewCol(5, "Tipo", labelProps),
		text.NewCol(4, "Categoría", labelProps),
		text.NewCol(3, "Cantidad", labelProps),
	)
	for _, tc := range typeCategoryCounts(samples) {
		m.AddRow(6,
			text.NewCol(5, tc.Type, valueProps),
			text.NewCol(4, tc.Category, valueProps),
			text.NewCol(3, fmt.Sprintf("%d", tc.Count), valueProps),
		)
	}
	m.AddRow(6,
		text.NewCol(9, "Total", labelProps),
		text.NewCol(3, fmt.Sprintf("%d", len(samples)), labelProps),
	)

	m.AddRow(6, col.New(12))
	m.AddRow(8, text.NewCol(12, "Códigos recepcionados", props.Text{Size: 12, Style: fontstyle.Bold}))
	for _, code := range uniqueExternals(samples) {
		m.AddRow(5, text.NewCol(12, code, valueProps))
	}

	m.AddRow(10, col.New(12))
	m.AddRow(6, text.NewCol(12, "Documento generado el "+SpanishDate(time.Now()), props.Text{
		Size:  8,
		Align: align.Right,
	}))

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}
