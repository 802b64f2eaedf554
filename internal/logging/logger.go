// Package logging is the structured logger shared by the server packages.
// SlogLogger is the only production implementation; Discard is for tests and
// tools that must stay quiet.
package logging

import "context"

// Logger is context-aware; args are alternating keys and values:
//
//	logger.Info(ctx, "Quest seeded", "quest", name, "locations", n)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that adds args to every record.
	With(args ...any) Logger
}

type discard struct{}

// Discard drops every record.
var Discard Logger = discard{}

func (discard) Debug(context.Context, string, ...any) {}
func (discard) Info(context.Context, string, ...any)  {}
func (discard) Warn(context.Context, string, ...any)  {}
func (discard) Error(context.Context, string, ...any) {}
func (d discard) With(...any) Logger                  { return d }
