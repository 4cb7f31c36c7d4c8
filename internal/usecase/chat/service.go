package chat

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"triage-assistant/internal/config"
	"triage-assistant/internal/domain"
	"triage-assistant/internal/metrics"
)

const maxAttempts = 2

type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

type CompletionRequest struct {
	Model               string
	Messages            []Message
	MaxCompletionTokens int
}

type Message struct {
	Role string
	Text string
}

// Service calls the generative provider with a per-attempt timeout and at
// most one retry. It never returns provider errors to the caller.
type Service struct {
	client Client
	cfg    config.Config
	now    func() time.Time
}

// NewService builds the orchestrator. A nil client yields a service that
// always reports FailureDisabled.
func NewService(client Client, cfg config.Config) *Service {
	return &Service{
		client: client,
		cfg:    cfg,
		now:    time.Now,
	}
}

func (s *Service) Enabled() bool {
	return s.client != nil
}

func (s *Service) Generate(ctx context.Context, userMessage string, history []domain.Turn, hint Hint) domain.AIResponse {
	if s.client == nil {
		metrics.RecordAIRequest(string(domain.FailureDisabled), 0)
		return domain.AIFailure(domain.FailureDisabled)
	}

	start := s.now()
	resp := s.generate(ctx, userMessage, history, hint)

	outcome := "success"
	if !resp.Succeeded {
		outcome = string(resp.Failure)
	}
	metrics.RecordAIRequest(outcome, s.now().Sub(start))
	return resp
}

func (s *Service) generate(ctx context.Context, userMessage string, history []domain.Turn, hint Hint) domain.AIResponse {
	req := CompletionRequest{
		Model:               s.cfg.Model,
		Messages:            s.buildMessages(userMessage, history, hint),
		MaxCompletionTokens: s.cfg.MaxCompletionTokens,
	}

	reason := domain.FailureProvider
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepContext(ctx, s.cfg.AIRetryBackoff); err != nil {
				return domain.AIFailure(domain.FailureCancelled)
			}
		}

		text, err := s.attempt(ctx, req)
		if err == nil {
			text = strings.TrimSpace(text)
			if text == "" {
				log.Printf("ai attempt %d: empty response", attempt)
				return domain.AIFailure(domain.FailureEmptyResponse)
			}
			return domain.AISuccess(text)
		}

		reason = failureReason(ctx, err)
		log.Printf("ai attempt %d failed (%s): %v", attempt, reason, err)
		if !retryable(reason) {
			break
		}
	}
	return domain.AIFailure(reason)
}

func (s *Service) attempt(ctx context.Context, req CompletionRequest) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.AITimeout)
	defer cancel()

	return s.client.Complete(attemptCtx, req)
}

// failureReason maps an attempt error to a reason. Cancellation of the
// inbound request wins over the attempt's own deadline.
func failureReason(parent context.Context, err error) domain.FailureReason {
	switch {
	case parent.Err() != nil:
		return domain.FailureCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return domain.FailureTimeout
	case errors.Is(err, context.Canceled):
		return domain.FailureCancelled
	default:
		return domain.FailureProvider
	}
}

func retryable(reason domain.FailureReason) bool {
	return reason == domain.FailureTimeout || reason == domain.FailureProvider
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
