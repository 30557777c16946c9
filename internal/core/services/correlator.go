package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/ocrhook/internal/core/domain"
	"github.com/custodia-labs/ocrhook/internal/core/ports/driven"
	"github.com/custodia-labs/ocrhook/internal/core/ports/driving"
	"github.com/custodia-labs/ocrhook/internal/logger"
)

// DefaultLookBack is the window size used when no cursor is stored for
// a list: one minute before the notification arrived.
const DefaultLookBack = time.Minute

// Ensure Correlator implements the interface.
var _ driving.NotificationProcessor = (*Correlator)(nil)

// Correlator converts one change notification into item updates.
// It resolves the target list, computes the delta window, and drives
// each newly added file through recognition and writeback.
type Correlator struct {
	store    driven.ContentStore
	ocr      driven.Recognizer
	cursors  driven.CursorStore
	listName string
	lookBack time.Duration
	now      func() time.Time
}

// NewCorrelator creates a correlator for the named list.
// The cursor store is optional - if nil, every window uses the fixed
// look-back interval.
func NewCorrelator(
	store driven.ContentStore,
	ocr driven.Recognizer,
	cursors driven.CursorStore,
	listName string,
) *Correlator {
	return &Correlator{
		store:    store,
		ocr:      ocr,
		cursors:  cursors,
		listName: listName,
		lookBack: DefaultLookBack,
		now:      time.Now,
	}
}

// ProcessNotification handles one notification end to end.
// Items are processed one at a time in result order; the first failure
// aborts the pass and leaves the cursor untouched so the window is
// retried on the next notification.
func (c *Correlator) ProcessNotification(ctx context.Context, n domain.Notification) error {
	session, err := c.store.Authenticate(ctx)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	list, err := session.ResolveList(ctx, c.listName)
	if err != nil {
		return fmt.Errorf("resolve list %q: %w", c.listName, err)
	}

	window := c.window(ctx, n.Resource)
	logger.Debug("Change window for %s: [%s, %s)", n.Resource,
		window.Start.Format(time.RFC3339), window.End.Format(time.RFC3339))

	changes, err := session.QueryChanges(ctx, list, window)
	if err != nil {
		return fmt.Errorf("query changes: %w", err)
	}

	for _, change := range changes {
		if !change.IsItemAdd() {
			continue
		}
		if err := c.processItem(ctx, session, list, change.ItemID); err != nil {
			return fmt.Errorf("item %d: %w", change.ItemID, err)
		}
	}

	c.advanceCursor(ctx, window)
	return nil
}

// processItem fetches one item's file, recognizes it, and writes the
// detected language and flattened text back onto the item.
func (c *Correlator) processItem(
	ctx context.Context,
	session driven.Session,
	list *domain.List,
	itemID int,
) error {
	logger.Info("Processing changed item %d", itemID)

	data, err := session.FetchFileBytes(ctx, list, itemID)
	if err != nil {
		return fmt.Errorf("fetch file: %w", err)
	}

	result, err := c.ocr.Recognize(ctx, data)
	if err != nil {
		return fmt.Errorf("recognize: %w", err)
	}

	text, err := result.FlattenText()
	if err != nil {
		return fmt.Errorf("flatten text: %w", err)
	}

	fields := map[string]string{
		domain.FieldLanguage: result.Language,
		domain.FieldOCRText:  text,
	}
	if err := session.UpdateItem(ctx, list, itemID, fields); err != nil {
		return fmt.Errorf("update item: %w", err)
	}

	logger.Debug("Wrote recognition result to item %d (language %s, %d bytes of text)",
		itemID, result.Language, len(text))
	return nil
}

// window computes the delta range for a list. The start is the stored
// cursor when one exists, otherwise now minus the fixed look-back.
func (c *Correlator) window(ctx context.Context, listID string) domain.ChangeWindow {
	end := c.now().UTC()
	start := end.Add(-c.lookBack)

	if c.cursors != nil {
		stored, err := c.cursors.Get(ctx, listID)
		switch {
		case err == nil:
			if token, perr := domain.ParseChangeToken(stored); perr == nil {
				start = token.Time
			} else {
				logger.Warn("Discarding unreadable cursor for %s: %v", listID, perr)
			}
		case !errors.Is(err, domain.ErrNotFound):
			logger.Warn("Cursor lookup for %s failed: %v", listID, err)
		}
	}

	// A stale or clock-skewed cursor must never invert the window.
	if !start.Before(end) {
		start = end.Add(-c.lookBack)
	}

	return domain.ChangeWindow{ListID: listID, Start: start, End: end}
}

// advanceCursor records the window end as the new starting point.
// Cursor persistence is best-effort: a failed save only widens the next
// window back to the look-back default.
func (c *Correlator) advanceCursor(ctx context.Context, window domain.ChangeWindow) {
	if c.cursors == nil {
		return
	}
	if err := c.cursors.Save(ctx, window.ListID, window.EndToken().String()); err != nil {
		logger.Warn("Failed to save cursor for %s: %v", window.ListID, err)
	}
}
