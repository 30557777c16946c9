package driven

import (
	"context"

	"github.com/custodia-labs/ocrhook/internal/core/domain"
)

// Recognizer submits raw file bytes to a remote OCR service.
type Recognizer interface {
	// Recognize issues a single recognition request for the file bytes
	// and decodes the structured result. One attempt per file: no
	// retry, no backoff. Returns a *domain.RemoteError on a non-2xx
	// response and domain.ErrMalformedResponse on an undecodable body.
	Recognize(ctx context.Context, data []byte) (*domain.OCRResult, error)
}
