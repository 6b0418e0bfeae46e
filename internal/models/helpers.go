package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateID generates a new unique ID with the given prefix
func GenerateID(prefix string) string {
	id := uuid.New().String()

	return fmt.Sprintf("%s-%s", prefix, id[:8])
}

// GetCurrentTime returns the current time in UTC
func GetCurrentTime() time.Time {
	return time.Now().UTC()
}

// BusinessDay returns the business day a timestamp belongs to, as a
// YYYY-MM-DD string. Display sequences are scoped to (source, business
// day), so codes reset every day per channel.
func BusinessDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
