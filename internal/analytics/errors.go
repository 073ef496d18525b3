package analytics

import (
	"errors"
	"fmt"

	"tracker/internal/models"
)

var (
	// ErrNotFound matches any missing project or sprint.
	ErrNotFound = models.ErrNotFound
	// ErrForbidden is returned when the permission gate denies the caller.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidRange marks date input that the fallback policy cannot repair.
	ErrInvalidRange = errors.New("invalid range")
	// ErrUpstreamData marks a malformed referenced record. It is logged and the
	// record skipped; it never reaches the caller.
	ErrUpstreamData = errors.New("upstream data error")
)

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string
	ID   int64
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %d", e.Kind, e.ID)
}

func (e NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ForbiddenError carries the scope the caller had and the one the report needed.
type ForbiddenError struct {
	UserID    int64
	ProjectID int64
	Have      Scope
	Need      Scope
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("permission denied: user %d has %s access to project %d, %s required", e.UserID, e.Have, e.ProjectID, e.Need)
}

func (e ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}

func invalidRange(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRange, fmt.Sprintf(format, args...))
}

func upstreamData(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUpstreamData, fmt.Sprintf(format, args...))
}
