package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ErrMalformedJob marks a message that can never be processed.
var ErrMalformedJob = errors.New("malformed job message")

// JobMessage is the Pub/Sub payload.
type JobMessage struct {
	JobType string `json:"job_type"`
}

// Processor decodes job messages and runs the matching job under a per-job
// deadline.
type Processor struct {
	refresh *RefreshJob
	timeout time.Duration
	logger  zerolog.Logger
}

// NewProcessor creates a Processor. A non-positive timeout leaves jobs bounded
// only by the caller's context.
func NewProcessor(refresh *RefreshJob, timeout time.Duration, logger zerolog.Logger) *Processor {
	return &Processor{
		refresh: refresh,
		timeout: timeout,
		logger:  logger,
	}
}

// Process runs the job encoded in data. Unknown job types are skipped and
// return nil so the message is acknowledged.
func (p *Processor) Process(ctx context.Context, data []byte) error {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJob, err)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	switch msg.JobType {
	case JobFavoritesRefresh:
		return p.favoritesRefresh(ctx)
	case JobHealthCheck:
		return p.healthCheck(ctx)
	default:
		p.logger.Warn().Str("job_type", msg.JobType).Msg("unknown job type")
		return nil
	}
}

func (p *Processor) favoritesRefresh(ctx context.Context) error {
	result, err := p.refresh.Run(ctx)
	if err != nil {
		return err
	}

	// Consider it successful if at least half succeeded.
	if result.Failed > result.Successful {
		return fmt.Errorf("too many refresh failures: %d/%d", result.Failed, result.Total)
	}
	return nil
}

func (p *Processor) healthCheck(ctx context.Context) error {
	p.logger.Debug().Msg("running health check")

	if err := p.refresh.Probe(ctx); err != nil {
		return err
	}

	p.logger.Debug().Msg("health check passed")
	return nil
}
