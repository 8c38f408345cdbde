package ledger

import (
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// PeriodStatus represents the lifecycle state of a fiscal period
type PeriodStatus string

const (
	PeriodStatusOpen   PeriodStatus = "OPEN"
	PeriodStatusClosed PeriodStatus = "CLOSED"
)

// IsValid checks if the status is valid
func (s PeriodStatus) IsValid() bool {
	return s == PeriodStatusOpen || s == PeriodStatusClosed
}

// FiscalPeriod is an accounting period that can be closed exactly once.
// Closing posts the CLOSING journal entry that zeroes income and expense
// into profit and loss.
type FiscalPeriod struct {
	shared.BaseAggregateRoot
	TenantID       uuid.UUID    `gorm:"type:uuid;not null;index;uniqueIndex:idx_fiscal_periods_tenant_name,priority:1"`
	Name           string       `gorm:"type:varchar(50);not null;uniqueIndex:idx_fiscal_periods_tenant_name,priority:2"`
	StartDate      time.Time    `gorm:"type:date;not null"`
	EndDate        time.Time    `gorm:"type:date;not null;index"`
	Status         PeriodStatus `gorm:"type:varchar(20);not null;default:'OPEN';index"`
	ClosedAt       *time.Time
	ClosingEntryID *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (FiscalPeriod) TableName() string {
	return "fiscal_periods"
}

// NewFiscalPeriod creates an open period
func NewFiscalPeriod(tenantID uuid.UUID, name string, start, end time.Time) (*FiscalPeriod, error) {
	if name == "" {
		return nil, NewValidationError("INVALID_PERIOD_NAME", "Fiscal period name cannot be empty")
	}
	if start.IsZero() || end.IsZero() {
		return nil, NewValidationError("INVALID_PERIOD_DATES", "Fiscal period dates are required")
	}
	start = NormalizeDate(start)
	end = NormalizeDate(end)
	if !end.After(start) {
		return nil, NewValidationError("INVALID_PERIOD_DATES", "Fiscal period end must be after start")
	}

	return &FiscalPeriod{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		TenantID:          tenantID,
		Name:              name,
		StartDate:         start,
		EndDate:           end,
		Status:            PeriodStatusOpen,
	}, nil
}

// IsClosed returns true once the period has been closed
func (p *FiscalPeriod) IsClosed() bool {
	return p.Status == PeriodStatusClosed
}

// Close marks the period closed and records the closing entry.
// Closing an already-closed period is rejected, not retried: closing
// entries are write-once.
func (p *FiscalPeriod) Close(closingEntryID uuid.UUID) error {
	if p.IsClosed() {
		return ErrPeriodClosed
	}
	now := time.Now()
	p.Status = PeriodStatusClosed
	p.ClosedAt = &now
	p.ClosingEntryID = &closingEntryID
	p.UpdatedAt = now
	p.IncrementVersion()
	return nil
}

// SourceRef returns the period's reference used on its closing entry
func (p *FiscalPeriod) SourceRef() SourceRef {
	return NewSourceRef(SourceKindFiscalPeriod, p.ID.String())
}

// String returns a short description for logging
func (p *FiscalPeriod) String() string {
	return fmt.Sprintf("%s (%s - %s)", p.Name, p.StartDate.Format("2006-01-02"), p.EndDate.Format("2006-01-02"))
}
