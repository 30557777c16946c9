package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// unixEpochTicks is the repository tick count at the Unix epoch.
// Ticks are 100-nanosecond intervals since 0001-01-01T00:00:00 UTC.
const unixEpochTicks = 621355968000000000

// ChangeToken is a point in a list's mutation history, encoded as the
// versioned delimited string "1;3;{listId};{ticks};-1". Tokens for the
// same list order by their tick component.
type ChangeToken struct {
	ListID string
	Time   time.Time
}

// NewChangeToken creates a token for a list at a point in time.
func NewChangeToken(listID string, t time.Time) ChangeToken {
	return ChangeToken{ListID: listID, Time: t.UTC()}
}

// String encodes the token in the repository's wire format.
func (t ChangeToken) String() string {
	return fmt.Sprintf("1;3;%s;%d;-1", t.ListID, TimeToTicks(t.Time))
}

// ParseChangeToken decodes a wire-format token string.
func ParseChangeToken(s string) (ChangeToken, error) {
	parts := strings.Split(s, ";")
	if len(parts) != 5 || parts[0] != "1" {
		return ChangeToken{}, fmt.Errorf("%w: %q", ErrInvalidToken, s)
	}
	ticks, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return ChangeToken{}, fmt.Errorf("%w: ticks in %q", ErrInvalidToken, s)
	}
	return ChangeToken{ListID: parts[2], Time: TicksToTime(ticks)}, nil
}

// TimeToTicks converts a time to repository ticks (100ns units, UTC).
func TimeToTicks(t time.Time) int64 {
	return t.UTC().UnixNano()/100 + unixEpochTicks
}

// TicksToTime converts repository ticks back to a UTC time.
func TicksToTime(ticks int64) time.Time {
	return time.Unix(0, (ticks-unixEpochTicks)*100).UTC()
}

// ChangeWindow bounds a delta query on one list. Start always precedes
// End; records at Start are included, records at End are not.
type ChangeWindow struct {
	ListID string
	Start  time.Time
	End    time.Time
}

// StartToken returns the window's lower bound as a change token.
func (w ChangeWindow) StartToken() ChangeToken {
	return NewChangeToken(w.ListID, w.Start)
}

// EndToken returns the window's upper bound as a change token.
func (w ChangeWindow) EndToken() ChangeToken {
	return NewChangeToken(w.ListID, w.End)
}

// Contains reports whether a change timestamp falls in [Start, End).
func (w ChangeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// ChangeKind discriminates what object a change applies to.
type ChangeKind int

const (
	// ChangeKindUnknown is any object kind this system does not act on.
	ChangeKindUnknown ChangeKind = iota

	// ChangeKindItem is a list item change.
	ChangeKindItem

	// ChangeKindList is a list-level change.
	ChangeKindList
)

// ChangeOp discriminates what happened to the object.
type ChangeOp int

const (
	// ChangeOpUnknown is any operation this system does not act on.
	ChangeOpUnknown ChangeOp = iota

	// ChangeOpAdd is a newly created object.
	ChangeOpAdd

	// ChangeOpUpdate is a modified object.
	ChangeOpUpdate

	// ChangeOpDelete is a removed object.
	ChangeOpDelete
)

// ChangeRecord is one change reported by the repository. Only the
// item-add variant carries an item identifier worth acting on.
type ChangeRecord struct {
	Kind   ChangeKind
	Op     ChangeOp
	ItemID int
	Token  ChangeToken
}

// IsItemAdd reports whether this record is a newly created list item.
func (r ChangeRecord) IsItemAdd() bool {
	return r.Kind == ChangeKindItem && r.Op == ChangeOpAdd
}

// List is a resolved handle to a named list in the site collection.
type List struct {
	// ID is the list GUID used in API paths and change tokens.
	ID string

	// Title is the display name the list was resolved by.
	Title string
}

// Item field names written back after recognition.
const (
	FieldLanguage = "Language"
	FieldOCRText  = "OCRText"
)
