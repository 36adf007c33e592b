package models

import (
	"strings"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

// Priorities lists the accepted values in ascending rank order.
var Priorities = []Priority{PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow}

var priorityRanks = map[Priority]int{
	PriorityUrgent: 1,
	PriorityHigh:   2,
	PriorityMedium: 3,
	PriorityLow:    4,
}

// Rank orders priorities for sorting, most urgent first. Unknown values rank as Medium.
func (p Priority) Rank() int {
	if rank, ok := priorityRanks[p]; ok {
		return rank
	}
	return priorityRanks[PriorityMedium]
}

// Valid reports whether p is one of the enumerated priorities.
func (p Priority) Valid() bool {
	_, ok := priorityRanks[p]
	return ok
}

// ParsePriority matches s case-insensitively against the enumerated priorities.
func ParsePriority(s string) (Priority, bool) {
	for _, p := range Priorities {
		if strings.EqualFold(strings.TrimSpace(s), string(p)) {
			return p, true
		}
	}
	return "", false
}

type Task struct {
	ID          uint64     `gorm:"primarykey" json:"id"`
	Title       string     `gorm:"type:varchar(140);not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Category    string     `gorm:"type:varchar(60);not null;default:'General'" json:"category"`
	Priority    Priority   `gorm:"type:varchar(10);not null;default:'Medium'" json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	Reminder    bool       `gorm:"not null;default:false" json:"reminder"`
	Completed   bool       `gorm:"not null;default:false" json:"completed"`
	UserID      uint64     `gorm:"not null" json:"user_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relations
	Owner User `gorm:"foreignKey:UserID" json:"-"`
}
