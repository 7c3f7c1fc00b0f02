package entry

import (
	"errors"
	"fmt"
)

// CodeDateAlreadyPopulated is the machine-readable code carried by
// DateOccupiedError at the API boundary. It is the one error kind
// callers are expected to special-case.
const CodeDateAlreadyPopulated = "DATE_ALREADY_POPULATED"

var (
	// ErrInvalidActivity means the requested activity is not one of the
	// fixed options.
	ErrInvalidActivity = errors.New("invalid activity option")

	// ErrInvalidDate means the requested date could not be parsed.
	ErrInvalidDate = errors.New("invalid date, use YYYY-MM-DD")

	// ErrMissingDuration means the requested duration was empty after
	// trimming.
	ErrMissingDuration = errors.New("duration is required")

	// ErrDateRowNotFound means the requested date has no existing row in
	// the ledger. The service only writes into rows that already exist;
	// it never appends.
	ErrDateRowNotFound = errors.New("selected date was not found in existing sheet rows, choose a date that already exists")

	// ErrColumnMappingUnsafe means the live subheader no longer matches
	// the cached column mapping. No data is written after this is raised.
	ErrColumnMappingUnsafe = errors.New("sheet columns did not pass safety validation, no data was written")
)

// Suggestion is an alternative empty row offered when the requested
// date's row is already occupied.
type Suggestion struct {
	Date string `json:"date"`
	Row  int    `json:"row"`
}

// UnknownPlayerError means the requested player does not appear in the
// ledger header.
type UnknownPlayerError struct {
	Player string
}

func (e *UnknownPlayerError) Error() string {
	return fmt.Sprintf("unknown player: %s", e.Player)
}

// DateOccupiedError means the target row already holds an entry, so
// nothing was written. Suggestion, when non-nil, points at the nearest
// strictly-older row whose score is still blank. ReachedCheckLimit is
// set when the bounded backward search ran out of budget before
// exhausting the older rows.
type DateOccupiedError struct {
	ExistingDuration  string
	ExistingActivity  string
	Suggestion        *Suggestion
	ReachedCheckLimit bool
}

func (e *DateOccupiedError) Error() string {
	if e.Suggestion == nil {
		return "all previous rows appear taken, please select another date"
	}
	return fmt.Sprintf(
		"this row already has data (duration: %s, activity: %s), update was not applied; suggested date: %s",
		orBlank(e.ExistingDuration), orBlank(e.ExistingActivity), e.Suggestion.Date,
	)
}

// Code returns the machine-readable error code.
func (e *DateOccupiedError) Code() string { return CodeDateAlreadyPopulated }

func orBlank(s string) string {
	if s == "" {
		return "(blank)"
	}
	return s
}
