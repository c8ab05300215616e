package metrics

import (
	"context"
	"time"

	"github.com/Conceptual-Machines/prompt-architect/internal/llm"
)

// Recorder fans metrics out to Sentry and CloudWatch. A nil Recorder or a
// nil backend records nothing.
type Recorder struct {
	sentry     *SentryMetrics
	cloudwatch *Client
}

func NewRecorder(s *SentryMetrics, cw *Client) *Recorder {
	return &Recorder{sentry: s, cloudwatch: cw}
}

// RecordAPIRequest records one served HTTP request
func (r *Recorder) RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration) {
	if r == nil {
		return
	}
	if r.sentry != nil {
		r.sentry.RecordAPIRequest(ctx, endpoint, statusCode, duration)
	}
	r.cloudwatch.RecordAPIRequest(endpoint, statusCode, duration)
}

// RecordGeneration records duration, outcome and token usage of one model call
func (r *Recorder) RecordGeneration(ctx context.Context, operation, model string, duration time.Duration, usage llm.Usage, success bool) {
	if r == nil {
		return
	}
	if r.sentry != nil {
		r.sentry.RecordGenerationDuration(ctx, operation, duration, success)
		if success {
			r.sentry.RecordTokenUsage(ctx, model, usage)
		}
	}
	r.cloudwatch.RecordGenerationDuration(operation, duration, success)
	if success {
		r.cloudwatch.RecordTokenUsage(model, usage)
	}
}

// RecordRestore records a share-link or history restore outcome
func (r *Recorder) RecordRestore(ctx context.Context, source string, restored bool) {
	if r == nil {
		return
	}
	if r.sentry != nil {
		r.sentry.RecordRestore(ctx, source, restored)
	}
	r.cloudwatch.RecordRestore(source, restored)
}
