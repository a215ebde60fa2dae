package port

import "context"

type IDGenerator interface {
	// NextID returns a new unique, non-zero identifier
	NextID(ctx context.Context) (int64, error)
}
