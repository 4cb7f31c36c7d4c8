package chat

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"triage-assistant/internal/config"
	"triage-assistant/internal/domain"
)

type fakeClient struct {
	calls    atomic.Int32
	complete func(ctx context.Context, call int, req CompletionRequest) (string, error)
	last     CompletionRequest
}

func (f *fakeClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	n := int(f.calls.Add(1))
	f.last = req
	return f.complete(ctx, n, req)
}

func testConfig() config.Config {
	return config.Config{
		Model:               "test-model",
		MaxCompletionTokens: 100,
		ContextLimit:        20,
		AITimeout:           50 * time.Millisecond,
		AIRetryBackoff:      time.Millisecond,
	}
}

func blockUntilDone(ctx context.Context, _ int, _ CompletionRequest) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name      string
		complete  func(ctx context.Context, call int, req CompletionRequest) (string, error)
		want      domain.AIResponse
		wantCalls int32
	}{
		{
			name: "success",
			complete: func(context.Context, int, CompletionRequest) (string, error) {
				return "  Buvez de l'eau.  ", nil
			},
			want:      domain.AISuccess("Buvez de l'eau."),
			wantCalls: 1,
		},
		{
			name:      "timeout retried once",
			complete:  blockUntilDone,
			want:      domain.AIFailure(domain.FailureTimeout),
			wantCalls: 2,
		},
		{
			name: "provider error retried once",
			complete: func(context.Context, int, CompletionRequest) (string, error) {
				return "", errors.New("502 bad gateway")
			},
			want:      domain.AIFailure(domain.FailureProvider),
			wantCalls: 2,
		},
		{
			name: "retry succeeds",
			complete: func(_ context.Context, call int, _ CompletionRequest) (string, error) {
				if call == 1 {
					return "", errors.New("connection reset")
				}
				return "Reposez-vous.", nil
			},
			want:      domain.AISuccess("Reposez-vous."),
			wantCalls: 2,
		},
		{
			name: "empty response not retried",
			complete: func(context.Context, int, CompletionRequest) (string, error) {
				return " \n ", nil
			},
			want:      domain.AIFailure(domain.FailureEmptyResponse),
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{complete: tt.complete}
			svc := NewService(client, testConfig())

			got := svc.Generate(context.Background(), "bonjour", nil, Hint{})
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
			if n := client.calls.Load(); n != tt.wantCalls {
				t.Fatalf("expected %d calls, got %d", tt.wantCalls, n)
			}
		})
	}
}

func TestGenerateParentCancelledIsNotRetried(t *testing.T) {
	client := &fakeClient{complete: blockUntilDone}
	cfg := testConfig()
	cfg.AITimeout = time.Minute
	svc := NewService(client, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	got := svc.Generate(ctx, "bonjour", nil, Hint{})
	if got.Failure != domain.FailureCancelled {
		t.Fatalf("expected cancelled, got %+v", got)
	}
	if n := client.calls.Load(); n != 1 {
		t.Fatalf("expected a single call, got %d", n)
	}
}

func TestGenerateTimeoutIsBounded(t *testing.T) {
	client := &fakeClient{complete: blockUntilDone}
	svc := NewService(client, testConfig())

	start := time.Now()
	svc.Generate(context.Background(), "bonjour", nil, Hint{})
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("generate took %s", elapsed)
	}
}

func TestGenerateDisabled(t *testing.T) {
	svc := NewService(nil, testConfig())
	if svc.Enabled() {
		t.Fatal("expected disabled service")
	}
	if got := svc.Generate(context.Background(), "bonjour", nil, Hint{}); got.Failure != domain.FailureDisabled {
		t.Fatalf("expected disabled failure, got %+v", got)
	}
}

func TestGenerateBuildsRequest(t *testing.T) {
	client := &fakeClient{complete: func(context.Context, int, CompletionRequest) (string, error) {
		return "ok", nil
	}}
	cfg := testConfig()
	cfg.ContextLimit = 2
	cfg.AssistantPrompt = "Tutoie le patient."
	svc := NewService(client, cfg)

	history := []domain.Turn{
		{Role: domain.RoleUser, Content: "premier", Sequence: 1},
		{Role: domain.RoleAssistant, Content: "deuxieme", Sequence: 2},
		{Role: domain.RoleUser, Content: "troisieme", Sequence: 3},
	}
	hint := Hint{Tier: domain.TierGreen, EntryName: "Mal de gorge", Specialty: "orl", Questions: []string{"Avez-vous de la fièvre ?"}}

	svc.Generate(context.Background(), "et maintenant ?", history, hint)

	req := client.last
	if req.Model != "test-model" || req.MaxCompletionTokens != 100 {
		t.Fatalf("unexpected request settings: %+v", req)
	}
	roles := make([]string, 0, len(req.Messages))
	for _, m := range req.Messages {
		roles = append(roles, m.Role)
	}
	wantRoles := []string{domain.RoleSystem, domain.RoleSystem, domain.RoleAssistant, domain.RoleUser, domain.RoleUser}
	if strings.Join(roles, ",") != strings.Join(wantRoles, ",") {
		t.Fatalf("got roles %v, want %v", roles, wantRoles)
	}
	if !strings.Contains(req.Messages[0].Text, "Tutoie le patient.") {
		t.Error("expected assistant prompt appended to system prompt")
	}
	if !strings.Contains(req.Messages[1].Text, "Mal de gorge") || !strings.Contains(req.Messages[1].Text, "vert") {
		t.Errorf("hint missing entry or level: %q", req.Messages[1].Text)
	}
	if req.Messages[2].Text != "deuxieme" {
		t.Errorf("expected history trimmed to the newest turns, got %q", req.Messages[2].Text)
	}
	if last := req.Messages[len(req.Messages)-1]; last.Text != "et maintenant ?" {
		t.Errorf("expected user message last, got %q", last.Text)
	}
}

func TestHintRenderUnclassified(t *testing.T) {
	text := Hint{Tier: domain.TierUnclassified}.render()
	if !strings.Contains(text, "Aucune correspondance") {
		t.Fatalf("unexpected hint: %q", text)
	}
}

func TestHintRenderEnrich(t *testing.T) {
	text := Hint{Tier: domain.TierOrange, EntryName: "Otite", Advice: "Consultez sous 48 heures.", Enrich: true}.render()
	if !strings.Contains(text, "Consultez sous 48 heures.") {
		t.Fatalf("expected advice in enrich hint: %q", text)
	}
}
