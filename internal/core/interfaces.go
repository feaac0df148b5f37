package core

import "context"

// Notifier is how components ask the front-end for a decision or show a message.
// Implementations must be safe to call from any goroutine.
type Notifier interface {
	// Confirm blocks until the user answers or ctx is done (treated as "no")
	Confirm(ctx context.Context, title, text string) bool

	// Info shows an informational message. It gives up when ctx is done.
	Info(ctx context.Context, title, text string)

	// Error shows an error message. It gives up when ctx is done.
	Error(ctx context.Context, title, text string)
}
