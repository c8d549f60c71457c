/*
errors.go - Centralized error types for the convocation engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain and collaborator packages wrap these with fmt.Errorf("...: %w").

ERROR CATEGORIES:
  1. Data-quality faults - NOT errors. Bad cells default silently (parse.go).
  2. Input-absence faults - No base rows, no officers, missing base tab.
     The caller must show an actionable message instead of selecting from nothing.
  3. Configuration faults - Bad slot count, unknown mission mode, bad date.
     Validated by the caller (factory, api, cmd) before a run starts.
  4. Source faults - Spreadsheet download or read failures.

USAGE:
  if errors.Is(err, generic.ErrNoOfficers) {
      // tell the user the sheet has no identifiable officers
  }

SEE ALSO:
  - convocacao/merge.go: Returns input-absence faults
  - api/handlers.go: Maps categories to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNoBaseRows is returned when the base (operational hours) table is empty.
	ErrNoBaseRows = errors.New("no rows in base table")

	// ErrNoOfficers is returned when the merge produced no officers, i.e. no
	// base row carried an identifier.
	ErrNoOfficers = errors.New("no officers found in data")

	// ErrTabNotFound is returned when a required workbook tab or table is missing.
	ErrTabNotFound = errors.New("tab not found")

	// ErrInvalidSlots is returned when the open-slot count is not positive.
	ErrInvalidSlots = errors.New("number of open slots must be positive")

	// ErrUnknownMissionMode is returned for a mission mode other than regional/national.
	ErrUnknownMissionMode = errors.New("unknown mission mode")

	// ErrInvalidReferenceDate is returned when a caller-supplied reference date is unparseable.
	ErrInvalidReferenceDate = errors.New("invalid reference date")

	// ErrInvalidInput is returned when a request body or file cannot be decoded.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidWorkbook is returned when a spreadsheet file cannot be opened or read.
	ErrInvalidWorkbook = errors.New("invalid workbook")

	// ErrSourceUnavailable is returned when a remote source cannot be reached or refuses access.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrScenarioNotFound is returned for an unknown demo scenario id.
	ErrScenarioNotFound = errors.New("scenario not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// TabNotFoundError names the tab that could not be located.
type TabNotFoundError struct {
	Tab       string
	Available []string
}

func (e *TabNotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("tab %q not found", e.Tab)
	}
	return fmt.Sprintf("tab %q not found (available: %v)", e.Tab, e.Available)
}

func (e *TabNotFoundError) Unwrap() error {
	return ErrTabNotFound
}

// FetchError describes a failed download of a remote workbook.
type FetchError struct {
	URL    string
	Status int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("download failed (status %d) for %s: check that the sheet is published or shared", e.Status, e.URL)
}

func (e *FetchError) Unwrap() error {
	return ErrSourceUnavailable
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller configuration or input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidSlots) ||
		errors.Is(err, ErrUnknownMissionMode) ||
		errors.Is(err, ErrInvalidReferenceDate) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidWorkbook)
}

// IsInputAbsent returns true if the data was readable but contained nothing to select from.
func IsInputAbsent(err error) bool {
	return errors.Is(err, ErrNoBaseRows) ||
		errors.Is(err, ErrNoOfficers) ||
		errors.Is(err, ErrTabNotFound)
}

// IsNotFound returns true if the error indicates a missing named resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrScenarioNotFound)
}
