package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured means the summarization service has no credential or model.
	ErrNotConfigured = errors.New("summarization service is not configured")
	// ErrInsufficientData means a weekly review was requested without bookmarks.
	ErrInsufficientData = errors.New("no bookmarks to review")
	// ErrNotFound is returned when a referenced insight, bookmark or review is absent.
	ErrNotFound = errors.New("not found")
)

// SourceError reports a feed endpoint that could not be retrieved this cycle.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// CurationError reports a failed remote call for one category.
type CurationError struct {
	Category Category
	Err      error
}

func (e *CurationError) Error() string {
	if e.Category == "" {
		return fmt.Sprintf("summarization service: %v", e.Err)
	}
	return fmt.Sprintf("curation for %s failed: %v", e.Category, e.Err)
}

func (e *CurationError) Unwrap() error { return e.Err }

// ConfigError aborts a whole run before any network traffic.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %v", e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
