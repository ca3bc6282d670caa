package cache

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid-redis", "redis://localhost:6379", false},
		{"valid-with-db", "redis://localhost:6379/0", false},
		{"empty", "", true},
		{"wrong-scheme", "http://localhost:6379", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_UnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	ctx := t.Context()
	_, err := New(ctx, "redis://localhost:59999")
	if err == nil {
		t.Fatal("New() should return error for unreachable host")
	}
}

func TestContentCache_UnreachableReturnsError(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	client := redis.NewClient(&redis.Options{
		Addr:        "localhost:59999",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	cc := NewContentCache(&Cache{Client: client}, "notes:", time.Minute)
	if _, found, err := cc.Get(t.Context(), "abc"); err == nil || found {
		t.Errorf("Get() = found %v, err %v; want error", found, err)
	}
	if err := cc.Set(t.Context(), "abc", "v"); err == nil {
		t.Error("Set() should return error for unreachable host")
	}
}

func TestNopStore(t *testing.T) {
	var s ContentStore = NopStore{}
	if err := s.Set(t.Context(), "k", "v"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, found, err := s.Get(t.Context(), "k"); found || err != nil {
		t.Errorf("Get() = found %v, err %v; want miss", found, err)
	}
}
