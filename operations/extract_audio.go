package operations

import (
	"context"

	"mediaworker/models"
)

func init() {
	Register(models.OperationExtractAudio, ExtractAudio)
}

// ExtractAudio writes the audio track of the input into a standalone audio file.
func ExtractAudio(ctx context.Context, a Assignment, w *WorkerContext) error {
	return transform(ctx, a, w, transformOptions{progressStep: 10})
}
