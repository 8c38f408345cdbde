package ledger

import (
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// EntryType classifies a journal entry
type EntryType string

const (
	EntryTypeRegular EntryType = "REGULAR"
	EntryTypeOpening EntryType = "OPENING"
	EntryTypeClosing EntryType = "CLOSING"
)

// IsValid checks if the entry type is valid
func (t EntryType) IsValid() bool {
	switch t {
	case EntryTypeRegular, EntryTypeOpening, EntryTypeClosing:
		return true
	}
	return false
}

// String returns the string representation
func (t EntryType) String() string {
	return string(t)
}

// JournalEntry is one posting event: the set of balanced legs a single
// business document produced on a single date.
//
// Invariant: at most one entry exists per (tenant, source kind, source id).
// Re-posting the same document updates the entry in place; cancellation
// deletes it.
type JournalEntry struct {
	shared.BaseAggregateRoot
	TenantID     uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_journal_entries_source,priority:1"`
	Date         time.Time  `gorm:"type:date;not null;index"`
	EntryType    EntryType  `gorm:"type:varchar(20);not null;default:'REGULAR'"`
	SourceKind   SourceKind `gorm:"type:varchar(50);not null;uniqueIndex:idx_journal_entries_source,priority:2"`
	SourceID     string     `gorm:"type:varchar(100);not null;uniqueIndex:idx_journal_entries_source,priority:3"`
	SourceNumber string     `gorm:"type:varchar(100)"` // denormalized display number
}

// TableName returns the table name for GORM
func (JournalEntry) TableName() string {
	return "journal_entries"
}

// NewJournalEntry creates an entry for a source on a date
func NewJournalEntry(tenantID uuid.UUID, source SourceRef, date time.Time, entryType EntryType) (*JournalEntry, error) {
	if err := source.Validate(); err != nil {
		return nil, err
	}
	if date.IsZero() {
		return nil, NewValidationError("MISSING_DATE", "Posting date is required")
	}
	if !entryType.IsValid() {
		return nil, NewValidationError("INVALID_ENTRY_TYPE", "Entry type is not valid")
	}

	return &JournalEntry{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		TenantID:          tenantID,
		Date:              NormalizeDate(date),
		EntryType:         entryType,
		SourceKind:        source.Kind,
		SourceID:          source.ID,
	}, nil
}

// Source returns the entry's source reference
func (e *JournalEntry) Source() SourceRef {
	return SourceRef{Kind: e.SourceKind, ID: e.SourceID}
}

// MoveTo changes the posting date (an edit moved the document's date)
func (e *JournalEntry) MoveTo(date time.Time) {
	e.Date = NormalizeDate(date)
	e.UpdatedAt = time.Now()
	e.IncrementVersion()
}

// NormalizeDate truncates a timestamp to a UTC calendar date. Journal
// ordering and the cascade cutoff compare whole days, never clock times.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
