package operations

import (
	"context"

	"mediaworker/models"
)

func init() {
	Register(models.OperationTranscode, Transcode)
}

// Transcode re-encodes the input into another container/codec combination.
func Transcode(ctx context.Context, a Assignment, w *WorkerContext) error {
	return transform(ctx, a, w, transformOptions{progressStep: 5})
}
