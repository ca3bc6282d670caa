package ai

import (
	"context"
	"errors"
	"testing"
	"time"
)

func retryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: 1 * time.Millisecond,
		MaxWait:     10 * time.Millisecond,
		Multiplier:  2.0,
	}
}

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	mock := NewMockProvider(`{"ok":true}`)
	p := WithRetry(mock, retryConfig())

	resp, err := p.Complete(context.Background(), CompletionRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != `{"ok":true}` {
		t.Fatalf("unexpected content: %s", resp.Content)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("expected 1 call, got %d", mock.CallCount())
	}
}

func TestRetry_TransientThenSuccess(t *testing.T) {
	mock := NewMockProvider("ok")
	mock.Enqueue(MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}})
	p := WithRetry(mock, retryConfig())

	resp, err := p.Complete(context.Background(), CompletionRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "ok" {
		t.Fatalf("unexpected content: %s", resp.Content)
	}
	if mock.CallCount() != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.CallCount())
	}
}

func TestRetry_AllAttemptsFail(t *testing.T) {
	mock := &MockProvider{Err: &ErrProviderUnavailable{Err: errors.New("down")}}
	p := WithRetry(mock, retryConfig())

	_, err := p.Complete(context.Background(), CompletionRequest{})
	if err == nil {
		t.Fatal("expected error")
	}
	if mock.CallCount() != 3 {
		t.Fatalf("expected 3 calls, got %d", mock.CallCount())
	}
}

func TestRetry_InvalidResponseRetriedOnce(t *testing.T) {
	invalid := &ErrInvalidResponse{Content: "nope", Err: errors.New("bad json")}
	mock := &MockProvider{Err: invalid}
	p := WithRetry(mock, RetryConfig{MaxAttempts: 5, InitialWait: time.Millisecond, MaxWait: time.Millisecond, Multiplier: 1})

	_, err := p.Complete(context.Background(), CompletionRequest{})
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("error = %v, want *ErrInvalidResponse", err)
	}
	if mock.CallCount() != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.CallCount())
	}
}

func TestRetry_ContextErrorsNotRetried(t *testing.T) {
	for _, ctxErr := range []error{context.Canceled, context.DeadlineExceeded} {
		mock := &MockProvider{Err: ctxErr}
		p := WithRetry(mock, retryConfig())

		_, err := p.Complete(context.Background(), CompletionRequest{})
		if !errors.Is(err, ctxErr) {
			t.Errorf("error = %v, want %v", err, ctxErr)
		}
		if mock.CallCount() != 1 {
			t.Errorf("%v: expected 1 call, got %d", ctxErr, mock.CallCount())
		}
	}
}

func TestRetry_StopsWhenContextDone(t *testing.T) {
	mock := &MockProvider{Err: &ErrProviderUnavailable{}}
	p := WithRetry(mock, RetryConfig{MaxAttempts: 5, InitialWait: time.Hour, MaxWait: time.Hour, Multiplier: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Complete(ctx, CompletionRequest{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want deadline exceeded", err)
	}
}

func TestRetry_StreamStart(t *testing.T) {
	mock := NewMockProvider("hello")
	mock.Enqueue(MockResponse{Err: &ErrRateLimit{Err: errors.New("slow down")}})
	p := WithRetry(mock, retryConfig())

	ch, err := p.StreamComplete(context.Background(), CompletionRequest{})
	if err != nil {
		t.Fatalf("StreamComplete() error = %v", err)
	}
	var got string
	for c := range ch {
		got += c.Content
	}
	if got != "hello" {
		t.Errorf("streamed %q, want hello", got)
	}
}

func TestRetry_BackoffRespectsRetryAfter(t *testing.T) {
	p := WithRetry(NewMockProvider(""), retryConfig())
	if got := p.backoff(0, &ErrRateLimit{RetryAfter: 3 * time.Second}); got != 3*time.Second {
		t.Errorf("backoff() = %v, want 3s", got)
	}
	for attempt := range 10 {
		if got := p.backoff(attempt, errors.New("x")); got > 12*time.Millisecond {
			t.Errorf("backoff(%d) = %v, exceeds max wait plus jitter", attempt, got)
		}
	}
}

func TestRetry_MinimumOneAttempt(t *testing.T) {
	mock := &MockProvider{Err: errors.New("fail")}
	p := WithRetry(mock, RetryConfig{})

	if _, err := p.Complete(context.Background(), CompletionRequest{}); err == nil {
		t.Fatal("expected error")
	}
	if mock.CallCount() != 1 {
		t.Errorf("expected 1 call, got %d", mock.CallCount())
	}
}
