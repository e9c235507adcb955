package pipeline

import (
	"assetcdn/internal/assets"
	"assetcdn/internal/services"
	"assetcdn/internal/staleness"
)

// Outcome is the terminal state of one publish job.
type Outcome struct {
	Request   assets.Request     `json:"request"`
	FileName  string             `json:"file_name"`
	Key       string             `json:"key"`
	Timestamp int64              `json:"timestamp,omitempty"`
	Decision  staleness.Decision `json:"decision,omitempty"`
	Published bool               `json:"published"`
	Attempts  int                `json:"attempts,omitempty"`
	RawBytes  int                `json:"raw_bytes,omitempty"`
	GzipBytes int                `json:"gzip_bytes,omitempty"`
	Degraded  bool               `json:"degraded,omitempty"`
	// Parent names the stylesheet a nested job was discovered in.
	Parent    string             `json:"parent,omitempty"`
	ErrorKind services.ErrorKind `json:"error_kind,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// Failed reports whether the job ended in an error.
func (o Outcome) Failed() bool {
	return o.ErrorKind != services.KindNone
}

// Status is a short human label for tables.
func (o Outcome) Status() string {
	switch {
	case o.Failed():
		return "failed"
	case o.Published && o.Degraded:
		return "published (untransformed)"
	case o.Published:
		return "published"
	case o.Decision == staleness.Skip:
		return "up to date"
	default:
		return "pending"
	}
}

// Summary counts outcomes by state.
type Summary struct {
	Total     int `json:"total"`
	Published int `json:"published"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Nested    int `json:"nested"`
}

// Summarize tallies outcomes.
func Summarize(outcomes []Outcome) Summary {
	var s Summary
	for _, o := range outcomes {
		s.Total++
		if o.Parent != "" {
			s.Nested++
		}
		switch {
		case o.Failed():
			s.Failed++
		case o.Published:
			s.Published++
		case o.Decision == staleness.Skip:
			s.Skipped++
		}
	}
	return s
}
