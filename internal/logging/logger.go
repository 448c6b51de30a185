// Package logging is the structured logger shared by the server packages.
// The only production implementation wraps log/slog.
package logging

import "context"

// Logger takes a message plus alternating key/value pairs:
//
//	log.Info(ctx, "idea created", "idea_id", id, "category", cat)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a logger that adds args to every record.
	With(args ...any) Logger
}

// Nop discards everything.
type Nop struct{}

func (Nop) Debug(context.Context, string, ...any) {}
func (Nop) Info(context.Context, string, ...any)  {}
func (Nop) Warn(context.Context, string, ...any)  {}
func (Nop) Error(context.Context, string, ...any) {}
func (n Nop) With(...any) Logger                  { return n }
