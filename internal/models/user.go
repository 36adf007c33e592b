package models

import (
	"time"
)

type User struct {
	ID           uint64    `gorm:"primarykey" json:"id"`
	Email        string    `gorm:"type:varchar(120);uniqueIndex;not null" json:"email"`
	Name         string    `gorm:"type:varchar(80);not null" json:"name"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relations
	Tasks []Task `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
