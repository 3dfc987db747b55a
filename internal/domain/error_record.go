package domain

import "time"

// ErrorRecord is one captured browser error as stored for triage.
//
// Every text field is always present; missing input degrades to the empty
// string or zero before the record reaches the store. Timestamp and
// IPAddress are server-observed, never taken from the report payload.
type ErrorRecord struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Source    string    `json:"source"`
	Lineno    int       `json:"lineno"`
	Colno     int       `json:"colno"`
	Stack     string    `json:"stack"`
	UserAgent string    `json:"user_agent"`
	IPAddress string    `json:"ip_address"`
}

// ResourceLoadMessage is the fixed message stored for sub-resource load
// failures reported by the capture agent.
const ResourceLoadMessage = "Resource Load Error"
