package model

import (
	"time"

	"gorm.io/gorm"
)

// CharacteristicSample holds the type-specific measurements and lab
// results of a sample, one-to-one with Sample. The row is created empty
// at intake and only ever updated afterwards. Which measurement fields
// apply depends on the sample type: orina/saliva use ph/densidad/volumen,
// pelo uses largo/color/tipo_muestra; the remaining fields are shared.
type CharacteristicSample struct {
	ID       uint `json:"id" gorm:"primaryKey"`
	SampleID uint `json:"sample_id" gorm:"uniqueIndex;not null"`

	// orina / saliva
	Ph       string `json:"ph" gorm:"type:varchar(50)"`
	Densidad string `json:"densidad" gorm:"type:varchar(50)"`
	Volumen  string `json:"volumen" gorm:"type:varchar(50)"`

	// pelo
	Largo       string `json:"largo" gorm:"type:varchar(50)"`
	Color       string `json:"color" gorm:"type:varchar(100)"`
	TipoMuestra string `json:"tipo_muestra" gorm:"type:varchar(100)"`

	// shared
	Screening        string     `json:"screening" gorm:"type:varchar(255)"`
	Confirmacion     string     `json:"confirmacion" gorm:"type:varchar(255)"`
	Observaciones    string     `json:"observaciones" gorm:"type:text"`
	CantidadDroga    *int       `json:"cantidad_droga"`
	EncargadoIngreso string     `json:"encargado_ingreso" gorm:"type:varchar(255)"`
	FechaIngreso     *time.Time `json:"fecha_ingreso"`

	// lab results
	ResultGcms  string `json:"result_gcms" gorm:"type:varchar(255)"`
	ResultCobas string `json:"result_cobas" gorm:"type:varchar(255)"`

	// pelo only
	ResultElisa  string `json:"result_elisa" gorm:"type:varchar(255)"`
	ResultInmuno string `json:"result_inmuno" gorm:"type:varchar(255)"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
