package models

// ReportKind discriminates the payload of a Report.
type ReportKind string

const (
	// ReportText is a narrative accumulated from the AI token stream.
	ReportText ReportKind = "text"
	// ReportStats is the degraded report used when the stream failed:
	// only the computed statistics are available.
	ReportStats ReportKind = "stats"
)

// Report is the outcome of a report generation.
type Report struct {
	Kind  ReportKind      `json:"kind"`
	Text  string          `json:"text,omitempty"`
	Stats *AggregateStats `json:"stats,omitempty"`
	Error string          `json:"error,omitempty"`
}

// ReportRequest is the body posted to the AI report service.
type ReportRequest struct {
	Articles []Article      `json:"articles"`
	Stats    AggregateStats `json:"stats"`
}
