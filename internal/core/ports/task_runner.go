package ports

import "context"

// TaskRunner executes detached background work. Failures of submitted tasks
// are handled by the runner and never reach the submitter.
type TaskRunner interface {
	Submit(name string, task func(ctx context.Context) error)
}
