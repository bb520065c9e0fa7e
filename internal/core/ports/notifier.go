package ports

import "context"

// Notifier is the best-effort credentials-delivery channel. There is no
// retry, no queueing and no delivery confirmation; the orchestration layer
// logs and absorbs any returned error.
type Notifier interface {
	SendWelcome(ctx context.Context, to, username, tempPassword string) error
}
