package model

import "time"

// Document types attachable to a sample
const (
	DocumentInforme = "informe"
	DocumentCadena  = "cadena_custodia"
)

// Document binds an uploaded file to a sample. At most one document per
// (sample, type) exists; re-uploading replaces the stored blob and
// updates the row in place.
type Document struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	SampleID        uint      `json:"sample_id" gorm:"index;uniqueIndex:idx_sample_type_document;not null"`
	TypeDocument    string    `json:"type_document" gorm:"type:varchar(50);uniqueIndex:idx_sample_type_document;not null"`
	DocumentArchive string    `json:"document_archive" gorm:"type:varchar(512);not null"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
