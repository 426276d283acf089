/**
 * Result envelope for persisted annotations.
 *
 * Every stored annotation is wrapped in the same envelope: a status header,
 * the payload under details, and a debug section that is stripped before the
 * result is served to callers without elevated access.
 */

package annotate

import (
	"fmt"
	"time"
)

// Details is the caller-facing payload of an annotation result
type Details struct {
	Response       any    `json:"response"`
	QueryID        string `json:"query_id"`
	AnnotationType string `json:"annotation_type"`
	Timestamp      string `json:"timestamp"`
}

// Envelope is the stored shape of one annotation result
type Envelope struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Details Details        `json:"details"`
	Debug   map[string]any `json:"debug,omitempty"`
}

// NewEnvelope wraps a successful result with its query metadata and timing
func NewEnvelope(result *Result, queryID string, t Type, start, end time.Time) Envelope {
	debug := map[string]any{
		"start_time": start.Format(time.RFC3339),
		"end_time":   end.Format(time.RFC3339),
		"time_taken": fmt.Sprintf("%d seconds", int(end.Sub(start).Seconds())),
	}
	if len(result.Prompts) > 0 {
		debug["prompt"] = result.Prompts
	}
	for k, v := range result.Debug {
		debug[k] = v
	}

	return Envelope{
		Status:  "success",
		Message: "Annotation completed",
		Details: Details{
			Response:       result.Response,
			QueryID:        queryID,
			AnnotationType: string(t),
			Timestamp:      end.Format(time.RFC3339),
		},
		Debug: debug,
	}
}

// NewFailureEnvelope wraps a failed run; the payload stays empty
func NewFailureEnvelope(err error, queryID string, t Type, start, end time.Time) Envelope {
	return Envelope{
		Status:  "failed",
		Message: err.Error(),
		Details: Details{
			QueryID:        queryID,
			AnnotationType: string(t),
			Timestamp:      end.Format(time.RFC3339),
		},
		Debug: map[string]any{
			"start_time": start.Format(time.RFC3339),
			"end_time":   end.Format(time.RFC3339),
			"time_taken": fmt.Sprintf("%d seconds", int(end.Sub(start).Seconds())),
		},
	}
}

// StripDebug returns a copy of the envelope without the debug section
func (e Envelope) StripDebug() Envelope {
	e.Debug = nil
	return e
}
