package database

import (
	"fmt"
	"log"

	"github.com/yukikurage/taskmaster/internal/models"
	"gorm.io/gorm"
)

// taskIndexes are the columns the dashboard filters and sorts on.
var taskIndexes = []struct {
	name    string
	columns string
}{
	{"idx_tasks_user_id", "user_id"},
	{"idx_tasks_category", "category"},
	{"idx_tasks_priority", "priority"},
	{"idx_tasks_due_date", "due_date"},
	{"idx_tasks_completed", "completed"},
	{"idx_tasks_created_at", "created_at"},
}

// AddIndexes adds the indexes used by dashboard queries
func AddIndexes(db *gorm.DB) error {
	migrator := db.Migrator()
	for _, idx := range taskIndexes {
		if migrator.HasIndex(&models.Task{}, idx.name) {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON tasks (%s)", idx.name, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Printf("Created index %s on tasks(%s)", idx.name, idx.columns)
	}

	return nil
}
