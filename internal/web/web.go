// Package web holds the server-rendered pages of the browser UI.
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"time"

	"github.com/yukikurage/taskmaster/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// DateInputLayout is how due dates are prefilled in the task form
const DateInputLayout = "2006-01-02 15:04"

// Templates parses every page with the shared helpers. Pages are addressed by file name.
func Templates(loc *time.Location) (*template.Template, error) {
	if loc == nil {
		loc = time.UTC
	}
	return template.New("").Funcs(funcMap(loc)).ParseFS(templateFS, "templates/*.html")
}

// Static returns the embedded stylesheet and script assets
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

func funcMap(loc *time.Location) template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.In(loc).Format(DateInputLayout)
		},
		"formatTime": func(t time.Time) string {
			return t.In(loc).Format("Jan 2, 2006 15:04")
		},
		"overdue": func(task models.Task) bool {
			return !task.Completed && task.DueDate != nil && task.DueDate.Before(time.Now())
		},
		"priorityClass": func(p models.Priority) string {
			switch p {
			case models.PriorityUrgent:
				return "danger"
			case models.PriorityHigh:
				return "warning"
			case models.PriorityLow:
				return "secondary"
			default:
				return "info"
			}
		},
		"priorities": func() []models.Priority {
			return []models.Priority{models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityUrgent}
		},
	}
}
