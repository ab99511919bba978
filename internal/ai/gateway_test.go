package ai_test

import (
	"context"
	"errors"
	"testing"

	"github.com/p-n-ai/careercompass/internal/ai"
)

func TestMockProvider_Complete(t *testing.T) {
	mock := ai.NewMockProvider("test response")

	resp, err := mock.Complete(context.Background(), ai.CompletionRequest{
		Messages: []ai.Message{{Role: "user", Content: "Hello"}},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "test response" || resp.Model != "mock" {
		t.Errorf("resp = %+v", resp)
	}
	if mock.Last() == nil || mock.Calls() != 1 {
		t.Error("request not recorded")
	}
}

func TestMockProvider_StreamChunks(t *testing.T) {
	mock := &ai.MockProvider{Chunks: []string{"a", "b", "c"}}

	ch, err := mock.StreamComplete(context.Background(), ai.CompletionRequest{})
	if err != nil {
		t.Fatal(err)
	}
	var got string
	var done bool
	for c := range ch {
		got += c.Content
		done = done || c.Done
	}
	if got != "abc" || !done {
		t.Errorf("stream = %q, done = %v", got, done)
	}
}

func TestMockProvider_StreamDoneNamesModel(t *testing.T) {
	ch, err := ai.NewMockProvider("ok").StreamComplete(context.Background(), ai.CompletionRequest{})
	if err != nil {
		t.Fatal(err)
	}
	var last ai.StreamChunk
	for c := range ch {
		last = c
	}
	if !last.Done || last.Model != "mock" {
		t.Errorf("last chunk = %+v, want done with model mock", last)
	}
}

func TestMockProvider_StreamError(t *testing.T) {
	mock := &ai.MockProvider{Chunks: []string{"partial"}, StreamErr: errors.New("reset")}

	ch, _ := mock.StreamComplete(context.Background(), ai.CompletionRequest{})
	var last ai.StreamChunk
	for c := range ch {
		last = c
	}
	if last.Error == nil {
		t.Error("expected a final error chunk")
	}
}

func TestTaskType_String(t *testing.T) {
	tests := []struct {
		task     ai.TaskType
		expected string
	}{
		{ai.TaskChat, "chat"},
		{ai.TaskSummary, "summary"},
		{ai.TaskType(99), "unknown"},
	}
	for _, tt := range tests {
		if tt.task.String() != tt.expected {
			t.Errorf("TaskType.String() = %q, want %q", tt.task.String(), tt.expected)
		}
	}
}
