package models

import "time"

// ErrorKey is the single key of an ErrorResult.
const ErrorKey = "error"

// ResultMap maps an OID (or its symbolic name) to a normalized value. Values
// are JSON primitives: string, bool, signed/unsigned integers or floats.
type ResultMap map[string]any

// ErrorResult builds a ResultMap that carries only a top-level error.
func ErrorResult(msg string) ResultMap {
	return ResultMap{ErrorKey: msg}
}

// Err reports the top-level error message of an ErrorResult.
func (r ResultMap) Err() (string, bool) {
	if len(r) != 1 {
		return "", false
	}
	msg, ok := r[ErrorKey].(string)
	return msg, ok
}

// StructuredResponse is the final product of the query pipeline. Query is
// the original free text. When Error is set, Summary holds a human-readable
// error message.
type StructuredResponse struct {
	RawData ResultMap `json:"raw_data"`
	Summary string    `json:"summary"`
	Query   string    `json:"query"`
	Error   string    `json:"error,omitempty"`
}

// QueryRecord is one entry of the query history log.
type QueryRecord struct {
	Timestamp  time.Time          `json:"timestamp"`
	RequestID  string             `json:"request_id"`
	Input      string             `json:"input"`
	Cached     bool               `json:"cached"`
	DurationMs int64              `json:"duration_ms"`
	Response   StructuredResponse `json:"response"`
}
