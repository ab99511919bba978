package ai_test

import (
	"context"
	"errors"
	"testing"

	"github.com/p-n-ai/careercompass/internal/ai"
)

func chatRequest() ai.CompletionRequest {
	return ai.CompletionRequest{Messages: []ai.Message{{Role: "user", Content: "hi"}}}
}

func drain(ch <-chan ai.StreamChunk) (string, error) {
	var text string
	for c := range ch {
		if c.Error != nil {
			return text, c.Error
		}
		text += c.Content
	}
	return text, nil
}

func TestRouter_Complete(t *testing.T) {
	tests := []struct {
		name      string
		providers []*ai.MockProvider
		want      string
		wantErr   bool
	}{
		{
			name:      "single provider",
			providers: []*ai.MockProvider{ai.NewMockProvider("Hello!")},
			want:      "Hello!",
		},
		{
			name:      "falls back",
			providers: []*ai.MockProvider{{Err: errors.New("rate limited")}, ai.NewMockProvider("Fallback response")},
			want:      "Fallback response",
		},
		{
			name:      "first registered wins",
			providers: []*ai.MockProvider{ai.NewMockProvider("first"), ai.NewMockProvider("second")},
			want:      "first",
		},
		{
			name:      "all fail",
			providers: []*ai.MockProvider{{Err: errors.New("fail 1")}, {Err: errors.New("fail 2")}},
			wantErr:   true,
		},
		{
			name:    "no providers",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := ai.NewRouter()
			for i, p := range tt.providers {
				router.Register(string(rune('a'+i)), p)
			}

			resp, err := router.Complete(context.Background(), chatRequest())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Complete() error = %v, wantErr %v", err, tt.wantErr)
			}
			if resp.Content != tt.want {
				t.Errorf("Content = %q, want %q", resp.Content, tt.want)
			}
		})
	}
}

func TestRouter_StreamFallsBackBeforeFirstChunk(t *testing.T) {
	router := ai.NewRouter()
	refused := &ai.MockProvider{Err: errors.New("connection refused")}
	healthy := &ai.MockProvider{Chunks: []string{"Arts ", "it is."}}

	router.Register("refused", refused)
	router.Register("healthy", healthy)

	ch, err := router.StreamComplete(context.Background(), chatRequest())
	if err != nil {
		t.Fatalf("StreamComplete() error = %v", err)
	}
	text, err := drain(ch)
	if err != nil || text != "Arts it is." {
		t.Errorf("stream = %q, %v", text, err)
	}
	if refused.Calls() != 1 || healthy.Calls() != 1 {
		t.Errorf("calls = %d/%d", refused.Calls(), healthy.Calls())
	}
}

// errFirst fails its stream before producing any content.
type errFirst struct{ ai.MockProvider }

func (e *errFirst) StreamComplete(context.Context, ai.CompletionRequest) (<-chan ai.StreamChunk, error) {
	ch := make(chan ai.StreamChunk, 1)
	ch <- ai.StreamChunk{Error: errors.New("upstream reset")}
	close(ch)
	return ch, nil
}

func TestRouter_StreamSkipsErrorAsFirstChunk(t *testing.T) {
	router := ai.NewRouter()
	router.Register("flaky", &errFirst{})
	router.Register("backup", ai.NewMockProvider("backup reply"))

	ch, err := router.StreamComplete(context.Background(), chatRequest())
	if err != nil {
		t.Fatalf("StreamComplete() error = %v", err)
	}
	if text, err := drain(ch); err != nil || text != "backup reply" {
		t.Errorf("stream = %q, %v", text, err)
	}
}

func TestRouter_StreamNoFallbackAfterContent(t *testing.T) {
	router := ai.NewRouter()
	midway := &ai.MockProvider{Chunks: []string{"half"}, StreamErr: errors.New("dropped")}
	backup := ai.NewMockProvider("unused")
	router.Register("midway", midway)
	router.Register("backup", backup)

	ch, err := router.StreamComplete(context.Background(), chatRequest())
	if err != nil {
		t.Fatalf("StreamComplete() error = %v", err)
	}
	text, err := drain(ch)
	if err == nil || text != "half" {
		t.Errorf("stream = %q, %v; want partial text then error", text, err)
	}
	if backup.Calls() != 0 {
		t.Error("backup must not be tried once content was relayed")
	}
}

func TestRouter_StreamAllFail(t *testing.T) {
	router := ai.NewRouter()
	router.Register("a", &ai.MockProvider{Err: errors.New("fail")})
	if _, err := router.StreamComplete(context.Background(), chatRequest()); err == nil {
		t.Fatal("StreamComplete() should fail")
	}
	if _, err := ai.NewRouter().StreamComplete(context.Background(), chatRequest()); !errors.Is(err, ai.ErrNoProvider) {
		t.Errorf("empty router error = %v", err)
	}
}

func TestRouter_HealthCheck(t *testing.T) {
	router := ai.NewRouter()
	if err := router.HealthCheck(context.Background()); err == nil {
		t.Error("empty router should be unhealthy")
	}
	router.Register("down", &ai.MockProvider{Err: errors.New("down")})
	if err := router.HealthCheck(context.Background()); err == nil {
		t.Error("router with only failing providers should be unhealthy")
	}
	router.Register("up", ai.NewMockProvider("ok"))
	if err := router.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	if len(router.Models()) != 2 {
		t.Errorf("Models() = %v", router.Models())
	}
}

func TestRouter_HasProvider(t *testing.T) {
	router := ai.NewRouter()
	if router.HasProvider() {
		t.Error("HasProvider() should be false with no providers")
	}

	router.Register("mock", ai.NewMockProvider("ok"))
	if !router.HasProvider() {
		t.Error("HasProvider() should be true after Register")
	}
}
