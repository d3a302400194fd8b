package service

import (
	"time"

	"gorm.io/gorm"

	"github.com/ipeterlow/labdopingv2/internal/model"
	"github.com/ipeterlow/labdopingv2/prometheus"
)

// DashboardService computes the intake volume and in-process overview.
// Counts are aggregated in Go from a narrow projection so the grouping
// behaves identically on every dialect.
type DashboardService struct {
	db  *gorm.DB
	loc *time.Location
}

// NewDashboardService creates a dashboard service. loc determines which
// calendar year and month a received_at instant falls into.
func NewDashboardService(db *gorm.DB, loc *time.Location) *DashboardService {
	if loc == nil {
		loc = time.UTC
	}
	return &DashboardService{db: db, loc: loc}
}

// YearSeries is one sample type's received counts for one year, indexed
// January..December. Months of past years are zero-filled; months of
// the current year that have not happened yet are nil.
type YearSeries struct {
	Year   int    `json:"year"`
	Type   string `json:"type"`
	Counts []*int `json:"counts"`
}

// InProcessCount is the current-year count of samples still in the lab
// (statuses Recepcionada, En Proceso, En Revisión) for one type
type InProcessCount struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

// Overview is the dashboard payload
type Overview struct {
	Received  []YearSeries     `json:"received"`
	InProcess []InProcessCount `json:"in_process"`
}

var dashboardTypes = []string{model.TypeOrina, model.TypePelo, model.TypeSaliva, model.TypeSuero}

// inProcessStatuses are the workflow states counted as still in the lab
var inProcessStatuses = []int{model.StatusReceived, model.StatusInProcess, model.StatusInReview}

// Overview builds the received-per-month series for every year present
// in the data plus the in-process counts for the current year, and
// refreshes the in-process gauge as a side effect.
func (s *DashboardService) Overview() (*Overview, error) {
	type projection struct {
		Type       string
		ReceivedAt *time.Time
	}
	var rows []projection
	if err := s.db.Model(&model.Sample{}).
		Select("type", "received_at").
		Where("received_at IS NOT NULL").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	now := time.Now().In(s.loc)
	currentYear := now.Year()
	currentMonth := int(now.Month())

	// counts[year][type][month-1]
	counts := map[int]map[string][12]int{}
	years := []int{currentYear}
	seen := map[int]bool{currentYear: true}
	for _, row := range rows {
		t := row.ReceivedAt.In(s.loc)
		year := t.Year()
		if year > currentYear {
			continue
		}
		if !seen[year] {
			seen[year] = true
			years = append(years, year)
		}
		byType, ok := counts[year]
		if !ok {
			byType = map[string][12]int{}
			counts[year] = byType
		}
		months := byType[row.Type]
		months[int(t.Month())-1]++
		byType[row.Type] = months
	}
	// oldest first
	for i := 0; i < len(years); i++ {
		for j := i + 1; j < len(years); j++ {
			if years[j] < years[i] {
				years[i], years[j] = years[j], years[i]
			}
		}
	}

	overview := &Overview{}
	for _, year := range years {
		for _, sampleType := range dashboardTypes {
			months := counts[year][sampleType]
			series := YearSeries{Year: year, Type: sampleType, Counts: make([]*int, 12)}
			for m := 0; m < 12; m++ {
				if year == currentYear && m+1 > currentMonth {
					continue // future month stays nil
				}
				n := months[m]
				series.Counts[m] = &n
			}
			overview.Received = append(overview.Received, series)
		}
	}

	yearStart := time.Date(currentYear, time.January, 1, 0, 0, 0, 0, s.loc)
	for _, sampleType := range dashboardTypes {
		var count int64
		if err := s.db.Model(&model.Sample{}).
			Where("type = ? AND status IN ? AND received_at >= ?", sampleType, inProcessStatuses, yearStart).
			Count(&count).Error; err != nil {
			return nil, err
		}
		overview.InProcess = append(overview.InProcess, InProcessCount{Type: sampleType, Count: count})
		prometheus.UpdateSamplesInProcess(sampleType, int(count))
	}

	return overview, nil
}
