package ledger

import (
	"context"
	"fmt"
	"sync"
)

// SourceKind discriminates which document type a journal entry belongs to.
// The set is open: document modules register their own kinds.
type SourceKind string

// Kinds owned by the engine itself. Document modules (sales, purchases,
// payments, ...) register theirs through the SourceRegistry.
const (
	SourceKindOpeningBalance SourceKind = "OPENING_BALANCE"
	SourceKindFiscalPeriod   SourceKind = "FISCAL_PERIOD"
)

// SourceRef is a weak, polymorphic reference to the business document that
// produced a journal entry: a kind discriminator plus the document's id.
// The engine never dereferences the document beyond asking the registry for
// its display number.
type SourceRef struct {
	Kind SourceKind
	ID   string
}

// NewSourceRef creates a source reference
func NewSourceRef(kind SourceKind, id string) SourceRef {
	return SourceRef{Kind: kind, ID: id}
}

// Validate checks that both discriminator and id are present
func (s SourceRef) Validate() error {
	if s.Kind == "" {
		return NewValidationError("MISSING_SOURCE_KIND", "Source kind cannot be empty")
	}
	if s.ID == "" {
		return NewValidationError("MISSING_SOURCE_ID", "Source id cannot be empty")
	}
	return nil
}

// String returns "KIND:id" for logging
func (s SourceRef) String() string {
	return fmt.Sprintf("%s:%s", s.Kind, s.ID)
}

// DisplayNumberFunc resolves a document's human-facing number (e.g. "SO-2026-00042")
type DisplayNumberFunc func(ctx context.Context, id string) (string, error)

// SourceRegistry maps source kinds to display-number resolvers. Document
// modules register at startup; the engine consults it when creating entries.
// Safe for concurrent use.
type SourceRegistry struct {
	mu        sync.RWMutex
	resolvers map[SourceKind]DisplayNumberFunc
}

// NewSourceRegistry creates an empty registry
func NewSourceRegistry() *SourceRegistry {
	return &SourceRegistry{
		resolvers: make(map[SourceKind]DisplayNumberFunc),
	}
}

// Register adds or replaces the resolver for a kind
func (r *SourceRegistry) Register(kind SourceKind, fn DisplayNumberFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvers[kind] = fn
}

// DisplayNumber resolves the display number for a source reference.
// Unregistered kinds fall back to the raw reference string so that posting
// never fails just because a module skipped registration.
func (r *SourceRegistry) DisplayNumber(ctx context.Context, ref SourceRef) (string, error) {
	r.mu.RLock()
	fn, ok := r.resolvers[ref.Kind]
	r.mu.RUnlock()

	if !ok {
		return ref.String(), nil
	}
	return fn(ctx, ref.ID)
}
