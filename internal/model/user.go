package model

import (
	"time"

	"gorm.io/gorm"
)

// User represents a lab staff member or client user
type User struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	Name          string         `json:"name" gorm:"type:varchar(255);not null"`
	Email         string         `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Password      string         `json:"-" gorm:"type:varchar(255);not null"`
	CurrentTeamID *uint          `json:"current_team_id" gorm:"index"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	CurrentTeam *Company `json:"current_team,omitempty" gorm:"foreignKey:CurrentTeamID"`
	Roles       []Role   `json:"roles,omitempty" gorm:"many2many:user_roles"`
}
