package service

import (
	"math"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ipeterlow/labdopingv2/internal/model"
)

// ReportService serves the read-side listings: reception overviews,
// per-type book views, turnaround reports and export row extraction.
type ReportService struct {
	db *gorm.DB
}

// NewReportService creates a report service on the given database
func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db}
}

// Pagination is the listing envelope shared by the paginated views
type Pagination struct {
	CurrentPage int   `json:"current_page"`
	LastPage    int   `json:"last_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	From        int   `json:"from"`
	To          int   `json:"to"`
}

func paginate(page, perPage int, total int64) (Pagination, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 15
	}
	if perPage > 100 {
		perPage = 100
	}
	lastPage := int(math.Ceil(float64(total) / float64(perPage)))
	if lastPage < 1 {
		lastPage = 1
	}
	if page > lastPage {
		page = lastPage
	}
	offset := (page - 1) * perPage
	from := 0
	to := 0
	if total > 0 {
		from = offset + 1
		to = offset + perPage
		if int64(to) > total {
			to = int(total)
		}
	}
	return Pagination{
		CurrentPage: page,
		LastPage:    lastPage,
		PerPage:     perPage,
		Total:       total,
		From:        from,
		To:          to,
	}, offset
}

// statusIDsMatching translates a free-text search term into the workflow
// status ids whose display name contains it, so that searching
// "informe" finds status-4 samples.
func statusIDsMatching(term string) []int {
	lower := strings.ToLower(term)
	var ids []int
	for status := model.StatusReceived; status <= model.StatusInReview; status++ {
		if strings.Contains(strings.ToLower(model.StatusName(status)), lower) {
			ids = append(ids, status)
		}
	}
	return ids
}

// ReceptionListItem is one row of the reception overview
type ReceptionListItem struct {
	Sample     model.Sample `json:"sample"`
	StatusName string       `json:"status_name"`
}

// ListReceptions returns the paginated intake overview, newest first,
// optionally filtered by a search term matched against external and
// internal ids, company name and status name.
func (s *ReportService) ListReceptions(page, perPage int, search string) ([]ReceptionListItem, Pagination, error) {
	query := s.db.Model(&model.Sample{}).
		Joins("JOIN companies ON companies.id = samples.company_id AND companies.deleted_at IS NULL")

	if search != "" {
		// LOWER + LIKE keeps the match case-insensitive on every dialect
		like := "%" + strings.ToLower(search) + "%"
		cond := s.db.Where("LOWER(samples.external_id) LIKE ?", like).
			Or("LOWER(samples.internal_id) LIKE ?", like).
			Or("LOWER(companies.name) LIKE ?", like)
		if ids := statusIDsMatching(search); len(ids) > 0 {
			cond = cond.Or("samples.status IN ?", ids)
		}
		query = query.Where(cond)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, Pagination{}, err
	}
	pagination, offset := paginate(page, perPage, total)

	var samples []model.Sample
	if err := query.Preload("Company").
		Order("samples.id DESC").
		Offset(offset).Limit(pagination.PerPage).
		Find(&samples).Error; err != nil {
		return nil, Pagination{}, err
	}

	items := make([]ReceptionListItem, 0, len(samples))
	for _, sample := range samples {
		items = append(items, ReceptionListItem{
			Sample:     sample,
			StatusName: model.StatusName(sample.Status),
		})
	}
	return items, pagination, nil
}

// daysBetween returns the calendar-day difference between two instants,
// dates truncated to midnight, negative clamped to zero.
func daysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	days := int(t.Sub(f).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// businessDaysBetween counts the calendar days between two instants
// minus the Saturdays and Sundays in the span, via the closed-form
// weekday-exclusion formula anchored on the start date's weekday
// (Monday = 0).
func businessDaysBetween(from, to time.Time) int {
	days := daysBetween(from, to)
	w := (int(from.Weekday()) + 6) % 7
	return days - (days+w+2)/7 - (days+w+1)/7
}

// ReportListItem is one turnaround report row: reception time in
// calendar days, response time in business days (nil until an informe
// exists).
type ReportListItem struct {
	Sample          model.Sample `json:"sample"`
	StatusName      string       `json:"status_name"`
	TiempoRecepcion *int         `json:"tiempo_recepcion"`
	TiempoRespuesta *int         `json:"tiempo_respuesta"`
}

// ListReports returns the paginated turnaround report. companyID
// restricts to one client company (the caller's current team) when
// non-nil.
func (s *ReportService) ListReports(page, perPage int, search string, companyID *uint) ([]ReportListItem, Pagination, error) {
	query := s.db.Model(&model.Sample{}).
		Joins("JOIN companies ON companies.id = samples.company_id AND companies.deleted_at IS NULL")

	if companyID != nil {
		query = query.Where("samples.company_id = ?", *companyID)
	}
	if search != "" {
		like := "%" + strings.ToLower(search) + "%"
		cond := s.db.Where("LOWER(samples.external_id) LIKE ?", like).
			Or("LOWER(samples.internal_id) LIKE ?", like).
			Or("LOWER(companies.name) LIKE ?", like)
		if ids := statusIDsMatching(search); len(ids) > 0 {
			cond = cond.Or("samples.status IN ?", ids)
		}
		query = query.Where(cond)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, Pagination{}, err
	}
	pagination, offset := paginate(page, perPage, total)

	var samples []model.Sample
	if err := query.Preload("Company").Preload("Documents").
		Order("samples.id DESC").
		Offset(offset).Limit(pagination.PerPage).
		Find(&samples).Error; err != nil {
		return nil, Pagination{}, err
	}

	items := make([]ReportListItem, 0, len(samples))
	for _, sample := range samples {
		item := ReportListItem{Sample: sample, StatusName: model.StatusName(sample.Status)}
		if sample.SentAt != nil && sample.ReceivedAt != nil {
			d := daysBetween(*sample.SentAt, *sample.ReceivedAt)
			item.TiempoRecepcion = &d
		}
		if sample.ReceivedAt != nil {
			for _, doc := range sample.Documents {
				if doc.TypeDocument == model.DocumentInforme {
					d := businessDaysBetween(*sample.ReceivedAt, doc.CreatedAt)
					item.TiempoRespuesta = &d
					break
				}
			}
		}
		items = append(items, item)
	}
	return items, pagination, nil
}

// BookRow joins a characteristic record with its sample and company for
// the per-type book views and exports
type BookRow struct {
	Characteristic model.CharacteristicSample `json:"characteristic"`
	Sample         model.Sample               `json:"sample"`
	StatusName     string                     `json:"status_name"`
}

func (s *ReportService) bookQuery(sampleType string) *gorm.DB {
	return s.db.Model(&model.CharacteristicSample{}).
		Joins("JOIN samples ON samples.id = characteristic_samples.sample_id AND samples.deleted_at IS NULL").
		Joins("JOIN companies ON companies.id = samples.company_id AND companies.deleted_at IS NULL").
		Where("samples.type = ?", sampleType)
}

func (s *ReportService) loadBookRows(query *gorm.DB, offset, limit int) ([]BookRow, error) {
	var characteristics []model.CharacteristicSample
	q := query.Select("characteristic_samples.*").Order("characteristic_samples.id DESC")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	if err := q.Find(&characteristics).Error; err != nil {
		return nil, err
	}

	rows := make([]BookRow, 0, len(characteristics))
	for _, characteristic := range characteristics {
		var sample model.Sample
		if err := s.db.Preload("Company").First(&sample, characteristic.SampleID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				continue
			}
			return nil, err
		}
		rows = append(rows, BookRow{
			Characteristic: characteristic,
			Sample:         sample,
			StatusName:     model.StatusName(sample.Status),
		})
	}
	return rows, nil
}

// BookList returns the paginated book view for one sample type. The
// search term matches ids and company name for every type, plus the
// type's own measurement fields (ph/densidad for orina and saliva,
// color/largo for pelo).
func (s *ReportService) BookList(sampleType string, page, perPage int, search string) ([]BookRow, Pagination, error) {
	if !model.IsValidType(sampleType) {
		return nil, Pagination{}, &ValidationError{Fields: map[string]string{"type": "invalid sample type"}}
	}
	query := s.bookQuery(sampleType)

	if search != "" {
		like := "%" + strings.ToLower(search) + "%"
		cond := s.db.Where("LOWER(samples.external_id) LIKE ?", like).
			Or("LOWER(samples.internal_id) LIKE ?", like).
			Or("LOWER(companies.name) LIKE ?", like)
		switch sampleType {
		case model.TypeOrina, model.TypeSaliva:
			cond = cond.Or("LOWER(characteristic_samples.ph) LIKE ?", like).
				Or("LOWER(characteristic_samples.densidad) LIKE ?", like)
		case model.TypePelo:
			cond = cond.Or("LOWER(characteristic_samples.color) LIKE ?", like).
				Or("LOWER(characteristic_samples.largo) LIKE ?", like)
		}
		query = query.Where(cond)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, Pagination{}, err
	}
	pagination, offset := paginate(page, perPage, total)

	rows, err := s.loadBookRows(query, offset, pagination.PerPage)
	if err != nil {
		return nil, Pagination{}, err
	}
	return rows, pagination, nil
}

// BookExportRows returns every book row of one type whose sample was
// analyzed within [from, to], unpaginated, for spreadsheet export.
func (s *ReportService) BookExportRows(sampleType string, from, to time.Time) ([]BookRow, error) {
	if !model.IsValidType(sampleType) {
		return nil, &ValidationError{Fields: map[string]string{"type": "invalid sample type"}}
	}
	if from.IsZero() || to.IsZero() {
		return nil, &ValidationError{Fields: map[string]string{"range": "from and to required"}}
	}
	if to.Before(from) {
		return nil, &ValidationError{Fields: map[string]string{"range": "to must not precede from"}}
	}
	end := time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, 0, to.Location())
	query := s.bookQuery(sampleType).
		Where("samples.analyzed_at BETWEEN ? AND ?", from, end)
	return s.loadBookRows(query, 0, 0)
}

// SampleDetail is a sample with its measurement record and attached
// documents
type SampleDetail struct {
	Sample     model.Sample    `json:"sample"`
	StatusName string          `json:"status_name"`
	Informe    *model.Document `json:"informe"`
	Cadena     *model.Document `json:"cadena_custodia"`
}

// Detail loads one sample with company, characteristic and documents
func (s *ReportService) Detail(id uint) (*SampleDetail, error) {
	var sample model.Sample
	err := s.db.Preload("Company").Preload("Characteristic").Preload("Documents").
		First(&sample, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	detail := &SampleDetail{Sample: sample, StatusName: model.StatusName(sample.Status)}
	for i := range sample.Documents {
		switch sample.Documents[i].TypeDocument {
		case model.DocumentInforme:
			detail.Informe = &sample.Documents[i]
		case model.DocumentCadena:
			detail.Cadena = &sample.Documents[i]
		}
	}
	return detail, nil
}
