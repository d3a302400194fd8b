package model

import (
	"time"

	"gorm.io/gorm"
)

// Company represents a client organization that submits samples to the lab
type Company struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"type:varchar(255);index;not null"`
	Number    string         `json:"number" gorm:"type:varchar(50)"`
	Email     string         `json:"email" gorm:"type:varchar(255)"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
