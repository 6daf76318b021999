package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Answer is a generated answer persisted for later review.
type Answer struct {
	ID         string
	Question   string
	Answer     string
	Sources    string // JSON array stored as text
	Confidence float64
	CreatedAt  time.Time
}
