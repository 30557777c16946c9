package driven

import "context"

// CursorStore persists the last successfully processed change token
// per list, so the next window starts where the previous one ended.
type CursorStore interface {
	// Get retrieves the stored token for a list.
	// Returns domain.ErrNotFound if no cursor has been saved yet.
	Get(ctx context.Context, listID string) (string, error)

	// Save stores or replaces the token for a list.
	Save(ctx context.Context, listID, token string) error

	// Delete removes the cursor for a list.
	Delete(ctx context.Context, listID string) error
}
