package versioning

import (
	"context"
	"fmt"
	"strings"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// Allocator kinds accepted by NewAllocator.
const (
	AllocatorListing  = "listing"
	AllocatorSequence = "sequence"
)

// VersionAllocator assigns the next version number of an existing document. floor is
// the highest version known to the caller, usually the one parsed from the prior key;
// the result is always greater than floor, even when that version is older than the
// scanned year window.
type VersionAllocator interface {
	NextVersion(ctx context.Context, ref model.DocumentRef, floor int) (int, error)
}

// ListingAllocator derives the next version from the stored objects: max + 1.
// Two concurrent uploads of the same document can be given the same number.
type ListingAllocator struct {
	Enumerator *Enumerator
}

func (a ListingAllocator) NextVersion(ctx context.Context, ref model.DocumentRef, floor int) (int, error) {
	versions, err := a.Enumerator.ListVersions(ctx, ref)
	if err != nil {
		return 0, fmt.Errorf("enumerate versions: %w", err)
	}
	return max(floor, MaxVersion(versions)) + 1, nil
}

// SequenceAllocator hands out numbers from an atomic per-document counter in the
// database. The counter never goes below the highest stored version, so documents
// written before the counter existed continue from their listing.
type SequenceAllocator struct {
	Enumerator *Enumerator
	Sequences  repository.VersionSequenceRepository
}

func (a SequenceAllocator) NextVersion(ctx context.Context, ref model.DocumentRef, floor int) (int, error) {
	versions, err := a.Enumerator.ListVersions(ctx, ref)
	if err != nil {
		return 0, fmt.Errorf("enumerate versions: %w", err)
	}
	next, err := a.Sequences.Next(ctx, ref.DocumentID, max(floor, MaxVersion(versions)))
	if err != nil {
		return 0, fmt.Errorf("allocate version: %w", err)
	}
	return next, nil
}

// NewAllocator builds the allocator named by kind. An empty kind selects listing.
func NewAllocator(kind string, enumerator *Enumerator, sequences repository.VersionSequenceRepository) (VersionAllocator, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", AllocatorListing:
		return ListingAllocator{Enumerator: enumerator}, nil
	case AllocatorSequence:
		if sequences == nil {
			return nil, fmt.Errorf("sequence allocator requires a sequence repository")
		}
		return SequenceAllocator{Enumerator: enumerator, Sequences: sequences}, nil
	default:
		return nil, fmt.Errorf("unknown version allocator %q", kind)
	}
}
