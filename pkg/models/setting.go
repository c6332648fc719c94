package models

import "time"

// Setting is a process-defined key/value pair, e.g. the global
// "AllowedIPs" override. Keys are upserted, values are opaque text.
type Setting struct {
	Key       string    `json:"key" db:"key"`
	Value     string    `json:"value" db:"value"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
