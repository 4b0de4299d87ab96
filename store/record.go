// Package store persists finished game results.
package store

import (
	"time"

	"github.com/beka-birhanu/maze-race/race"
	"github.com/google/uuid"
)

// Record is one finished game as persisted.
type Record struct {
	SessionID        uuid.UUID `json:"sessionId"`
	Timestamp        string    `json:"date"`  // ISO-8601, UTC
	Level            string    `json:"level"` // display name
	Result           string    `json:"result"`
	TimeSpentSeconds int       `json:"timeSpent"`
}

// NewRecord converts a race result into its persisted form.
func NewRecord(sessionID uuid.UUID, res race.Result) Record {
	return Record{
		SessionID:        sessionID,
		Timestamp:        res.EndedAt.UTC().Format(time.RFC3339Nano),
		Level:            res.Level.Name,
		Result:           res.Outcome.String(),
		TimeSpentSeconds: res.Elapsed,
	}
}
