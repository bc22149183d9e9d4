package service

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

var ErrForbidden = errors.New("forbidden: insufficient permissions")

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

// AuditEntry is the service-facing shape of an audit record; AuditService
// converts it to the persisted form off the request path.
type AuditEntry struct {
	UserID       uuid.UUID
	UserRole     string
	Action       string
	ResourceType string
	ResourceID   string
	IPAddress    string
	RequestID    string
	StatusCode   int
	Changes      string
}
