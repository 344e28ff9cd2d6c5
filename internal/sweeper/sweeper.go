package sweeper

import (
	"context"
)

// Sweeper is a periodic background task owned by the process that starts it
type Sweeper interface {
	// Start runs cycles until Stop is called or ctx is canceled
	Start(ctx context.Context) error

	// Stop ends the loop after the running cycle and waits for it, bounded by ctx
	Stop(ctx context.Context) error

	// Name identifies the sweeper in logs
	Name() string
}
