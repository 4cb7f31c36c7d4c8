// Package triage turns a patient message into a {message, level} response:
// emergency phrases first, then the knowledge base, then the generative
// fallback.
package triage

import (
	"context"
	"errors"
	"log"
	"strings"

	"triage-assistant/internal/domain"
	"triage-assistant/internal/metrics"
	"triage-assistant/internal/textnorm"
	"triage-assistant/internal/usecase/chat"
)

var ErrEmptyMessage = errors.New("empty message")

type Memory interface {
	Append(ctx context.Context, key, role, content string) (domain.Turn, error)
	Snapshot(ctx context.Context, key string) ([]domain.Turn, error)
	Reset(ctx context.Context, key string) error
}

type Generator interface {
	Enabled() bool
	Generate(ctx context.Context, userMessage string, history []domain.Turn, hint chat.Hint) domain.AIResponse
}

type Options struct {
	// EnrichMatches asks the provider to personalise advice for confident
	// non-emergency matches.
	EnrichMatches bool
}

type Service struct {
	detector *Detector
	matcher  *Matcher
	memory   Memory
	ai       Generator
	opts     Options
}

func NewService(detector *Detector, matcher *Matcher, memory Memory, ai Generator, opts Options) *Service {
	return &Service{
		detector: detector,
		matcher:  matcher,
		memory:   memory,
		ai:       ai,
		opts:     opts,
	}
}

// Submit runs one message through the triage flow. It never fails: provider
// and memory errors are logged and the response degrades to safe text.
func (s *Service) Submit(ctx context.Context, sessionKey, text string) domain.Response {
	if err := validate(text); err != nil {
		return s.respond(validationResponse(), metrics.PathValidation)
	}

	normalized := textnorm.Normalize(text)

	if groups := s.detector.detectNormalized(normalized); len(groups) > 0 {
		log.Printf("session %s: emergency phrases %v", sessionKey, groups)
		metrics.RecordEmergencyGroups(groups)
		resp := urgentResponse()
		s.remember(ctx, sessionKey, domain.RoleUser, text)
		s.remember(ctx, sessionKey, domain.RoleAssistant, resp.Message)
		return s.respond(resp, metrics.PathEmergency)
	}

	history := s.snapshot(ctx, sessionKey)
	s.remember(ctx, sessionKey, domain.RoleUser, text)

	result := Classify(false, s.matcher.matchNormalized(normalized))
	if result.Confident() {
		top := result.Matches[0]
		resp := adviceResponse(top)
		if s.opts.EnrichMatches && s.ai.Enabled() {
			hint := hintFor(top)
			hint.Enrich = true
			ai := s.ai.Generate(ctx, text, history, hint)
			if ai.Succeeded {
				resp = withEnrichment(resp, ai.Text)
			}
		}
		s.remember(ctx, sessionKey, domain.RoleAssistant, resp.Message)
		return s.respond(resp, metrics.PathMatched)
	}

	ai := s.ai.Generate(ctx, text, history, chat.Hint{Tier: result.Tier})
	if ai.Succeeded && strings.TrimSpace(ai.Text) != "" {
		s.remember(ctx, sessionKey, domain.RoleAssistant, ai.Text)
		return s.respond(domain.Response{Message: ai.Text, Level: domain.LevelInfo}, metrics.PathAI)
	}

	log.Printf("session %s: ai fallback unavailable (%s)", sessionKey, ai.Failure)
	return s.respond(fallbackResponse(), metrics.PathFallback)
}

// Reset clears the conversation for sessionKey.
func (s *Service) Reset(ctx context.Context, sessionKey string) (domain.Response, error) {
	if err := s.memory.Reset(ctx, sessionKey); err != nil {
		return domain.Response{}, err
	}
	metrics.RecordResponse(string(domain.LevelInfo), metrics.PathReset)
	return domain.Response{Message: ResetMessage, Level: domain.LevelInfo}, nil
}

func (s *Service) History(ctx context.Context, sessionKey string) ([]domain.Turn, error) {
	return s.memory.Snapshot(ctx, sessionKey)
}

// Triage exposes the rule engine without touching memory or the provider.
func (s *Service) Triage(text string) domain.TriageResult {
	normalized := textnorm.Normalize(text)
	if groups := s.detector.detectNormalized(normalized); len(groups) > 0 {
		res := Classify(true, nil)
		res.EmergencyGroups = groups
		return res
	}
	return Classify(false, s.matcher.matchNormalized(normalized))
}

func (s *Service) respond(resp domain.Response, path string) domain.Response {
	resp = finalize(resp)
	metrics.RecordResponse(string(resp.Level), path)
	return resp
}

func (s *Service) snapshot(ctx context.Context, key string) []domain.Turn {
	turns, err := s.memory.Snapshot(ctx, key)
	if err != nil {
		log.Printf("session %s: read memory: %v", key, err)
		return nil
	}
	return turns
}

func (s *Service) remember(ctx context.Context, key, role, content string) {
	if _, err := s.memory.Append(ctx, key, role, content); err != nil {
		log.Printf("session %s: append %s turn: %v", key, role, err)
	}
}

func validate(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	return nil
}

func hintFor(m domain.Match) chat.Hint {
	return chat.Hint{
		Tier:      m.Entry.Tier,
		EntryName: m.Entry.DisplayName,
		Specialty: m.Entry.Specialty,
		Questions: m.Entry.FollowUpQuestions,
		Advice:    m.Entry.Advice,
	}
}
