package logging

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

func TestContextWithLogger(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx := ContextWithLogger(context.Background(), logger)
	if got := FromContext(ctx); got != logger {
		t.Fatalf("expected attached logger, got %v", got)
	}

	if got := FromContext(context.Background()); got != nil {
		t.Fatalf("expected nil logger for bare context, got %v", got)
	}

	bare := context.Background()
	if ContextWithLogger(bare, nil) != bare {
		t.Fatalf("expected nil logger to leave context unchanged")
	}
}

func TestResolve(t *testing.T) {
	scoped := slog.New(slog.NewTextHandler(io.Discard, nil))
	fallback := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name     string
		ctx      context.Context
		fallback *slog.Logger
		want     *slog.Logger
	}{
		{name: "context logger wins", ctx: ContextWithLogger(context.Background(), scoped), fallback: fallback, want: scoped},
		{name: "fallback", ctx: context.Background(), fallback: fallback, want: fallback},
		{name: "default", ctx: context.Background(), want: slog.Default()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.ctx, tt.fallback); got != tt.want {
				t.Fatalf("unexpected logger %p, want %p", got, tt.want)
			}
		})
	}
}
