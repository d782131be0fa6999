package model

import "time"

// MessageEntry is one inbound SMS as read from the backup document, before classification.
type MessageEntry struct {
	Body         string
	Date         string // epoch milliseconds, kept as text
	ReadableDate string
}

type ImportStatus string

const (
	ImportStatusQueued    ImportStatus = "queued"
	ImportStatusCompleted ImportStatus = "completed"
)

// ImportJob is what the API publishes on the import queue.
type ImportJob struct {
	ID         string       `json:"id"`
	Document   []byte       `json:"document,omitempty"`
	Status     ImportStatus `json:"status"`
	EnqueuedAt time.Time    `json:"enqueued_at"`
}

// ImportResult summarises one parse pass.
type ImportResult struct {
	JobID    string         `json:"job_id,omitempty"`
	Entries  int            `json:"entries"`
	Records  int            `json:"records"`
	Dropped  map[string]int `json:"dropped"`
	Duration time.Duration  `json:"-"`
}
