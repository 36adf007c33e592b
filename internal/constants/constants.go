package constants

import "time"

// Context and session keys
const (
	ContextKeyUserID  = "user_id"
	ContextKeyTask    = "task"
	ContextKeyRequest = "request_id"
	SessionCookieName = "task_session"
	RequestIDHeader   = "X-Request-ID"
)

// Field limits
const (
	MaxTitleLength    = 140
	MaxCategoryLength = 60
	MinNameLength     = 2
	MaxNameLength     = 80
	MinPasswordLength = 6
	MaxPasswordLength = 72 // bcrypt input limit in bytes
)

// Defaults applied when a field is absent or blank
const (
	DefaultCategory = "General"
	DefaultPriority = "Medium"
)

// Pagination
const (
	MinPage         = 1
	DefaultPageSize = 8
	MaxPageSize     = 100
)

const (
	MaxAIGeneratedTasks = 20
	DefaultTokenTTL     = 24 * time.Hour
	DefaultCacheTTL     = 5 * time.Minute
	SessionMaxAge       = 86400 * 7
)
