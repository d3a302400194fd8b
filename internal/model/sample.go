package model

import (
	"time"

	"gorm.io/gorm"
)

// Sample types accepted at intake
const (
	TypeOrina  = "orina"
	TypePelo   = "pelo"
	TypeSaliva = "saliva"
	TypeSuero  = "suero"
)

// Categories after the A-B split. Intake additionally accepts "A-B",
// which expands into one A row and one B row.
const (
	CategoryA     = "A"
	CategoryB     = "B"
	CategorySplit = "A-B"
)

// Sample statuses. Transitions are not guarded: lab staff may set any
// status 1-5; uploading an informe document force-sets StatusReported.
const (
	StatusReceived   = 1
	StatusInAnalysis = 2
	StatusInProcess  = 3
	StatusReported   = 4
	StatusInReview   = 5
)

// statusNames maps the numeric workflow status to its display name
var statusNames = map[int]string{
	StatusReceived:   "Recepcionada",
	StatusInAnalysis: "En Análisis",
	StatusInProcess:  "En Proceso",
	StatusReported:   "Informe Entregado",
	StatusInReview:   "En Revisión",
}

// StatusName returns the display name for a workflow status
func StatusName(status int) string {
	if name, ok := statusNames[status]; ok {
		return name
	}
	return "Desconocido"
}

// IsValidStatus reports whether status is within the workflow range
func IsValidStatus(status int) bool {
	return status >= StatusReceived && status <= StatusInReview
}

// IsValidType reports whether t is an accepted sample type
func IsValidType(t string) bool {
	switch t {
	case TypeOrina, TypePelo, TypeSaliva, TypeSuero:
		return true
	}
	return false
}

// ShippingTypes lists the carriers offered at intake. "otros" requires a
// custom carrier name supplied alongside.
var ShippingTypes = []string{
	"Chilexpress", "Correos de Chile", "Soserval", "Pullman",
	"Speed Cargo", "Starken", "Chibra", "otros",
}

// IsValidShippingType reports whether s is one of the offered carriers
func IsValidShippingType(s string) bool {
	for _, st := range ShippingTypes {
		if s == st {
			return true
		}
	}
	return false
}

// Sample represents one physical specimen tracked from intake to report
// delivery. Samples submitted together share a ReceptionID and the
// shipment fields (company, dates, carrier, description).
type Sample struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	ExternalID    string         `json:"external_id" gorm:"type:varchar(255);index"`
	InternalID    *string        `json:"internal_id" gorm:"type:varchar(255);index"`
	Type          string         `json:"type" gorm:"type:varchar(20);index;not null"`
	Category      string         `json:"category" gorm:"type:varchar(5)"`
	Status        int            `json:"status" gorm:"index;default:1"`
	ReceptionID   uint           `json:"reception_id" gorm:"index"`
	Description   string         `json:"description" gorm:"type:text"`
	ShippingType  string         `json:"shipping_type" gorm:"type:varchar(255)"`
	SentAt        *time.Time     `json:"sent_at"`
	ReceivedAt    *time.Time     `json:"received_at"`
	AnalyzedAt    *time.Time     `json:"analyzed_at"`
	SampleTakenAt *time.Time     `json:"sample_taken_at"`
	ResultsAt     *time.Time     `json:"results_at"`
	CompanyID     uint           `json:"company_id" gorm:"index;not null"`
	UserID        uint           `json:"user_id" gorm:"index"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Company        Company               `json:"company,omitempty" gorm:"foreignKey:CompanyID"`
	Characteristic *CharacteristicSample `json:"characteristic,omitempty" gorm:"foreignKey:SampleID"`
	Documents      []Document            `json:"documents,omitempty" gorm:"foreignKey:SampleID"`
}
