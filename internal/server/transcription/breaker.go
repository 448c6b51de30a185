package transcription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/echolater/internal/common"
	"github.com/dmitrijs2005/echolater/internal/logging"
	"github.com/sony/gobreaker/v2"
)

// BreakerSettings controls when the provider is considered down.
type BreakerSettings struct {
	// FailureThreshold consecutive failures open the breaker.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

// DefaultBreakerSettings opens after 5 consecutive failures for 30 seconds.
var DefaultBreakerSettings = BreakerSettings{FailureThreshold: 5, OpenTimeout: 30 * time.Second}

// Breaker guards a Transcriber with a circuit breaker. Errors are reported as
// common.ErrTranscriptionFailed, or common.ErrTranscriptionUnavailable while
// the breaker is open.
type Breaker struct {
	next Transcriber
	cb   *gobreaker.CircuitBreaker[string]
}

func NewBreaker(next Transcriber, settings BreakerSettings, logger logging.Logger) *Breaker {
	return &Breaker{
		next: next,
		cb: gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
			Name:        "transcription",
			MaxRequests: 1,
			Timeout:     settings.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= settings.FailureThreshold
			},
			// a caller hanging up says nothing about the provider
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn(context.Background(), "circuit breaker state changed",
					"breaker", name,
					"from", from.String(),
					"to", to.String(),
				)
			},
		}),
	}
}

func (b *Breaker) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	text, err := b.cb.Execute(func() (string, error) {
		return b.next.Transcribe(ctx, audio, filename)
	})
	if err == nil {
		return text, nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", common.ErrTranscriptionUnavailable
	}
	return "", fmt.Errorf("%w: %v", common.ErrTranscriptionFailed, err)
}

// State exposes the breaker state for health reporting.
func (b *Breaker) State() string {
	return b.cb.State().String()
}
