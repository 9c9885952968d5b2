package operations

import (
	"context"

	"mediaworker/models"
)

func init() {
	Register(models.OperationExtractThumbnail, ExtractThumbnail)
}

// ExtractThumbnail grabs a single frame as a JPEG. The engine reports no
// meaningful progress for a single frame, so none is logged.
func ExtractThumbnail(ctx context.Context, a Assignment, w *WorkerContext) error {
	return transform(ctx, a, w, transformOptions{})
}
