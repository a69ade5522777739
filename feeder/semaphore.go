package feeder

import (
	"context"
	"fmt"
)

// ClaimResult is the outcome of running the claim protocol for one
// identifier. The decision is tri-state, not binary.
type ClaimResult int

const (
	// ClaimNew: no entry existed for the bounded key; this node won it.
	ClaimNew ClaimResult = iota
	// ClaimDuplicate: the exact identifier was already claimed (by this or
	// another node); do not reprocess.
	ClaimDuplicate
	// ClaimCollision: the bounded key was held by a different identifier.
	// The entry was overwritten and the new identifier claimed; the
	// displaced identifier's claim record is lost.
	ClaimCollision
)

func (r ClaimResult) String() string {
	switch r {
	case ClaimNew:
		return "new"
	case ClaimDuplicate:
		return "duplicate"
	case ClaimCollision:
		return "collision"
	}
	return "unknown"
}

// Claimed reports whether the outcome means this node should process the file.
func (r ClaimResult) Claimed() bool {
	return r == ClaimNew || r == ClaimCollision
}

// SemaphoreManager decides whether this node may claim an identifier for
// processing, using the shared bounded fingerprint map. The collision
// overwrite deliberately loses the displaced identifier's claim record: the
// design trades perfect history for hard-bounded shared state.
type SemaphoreManager struct {
	store SemaphoreStore
}

// NewSemaphoreManager wires the claim protocol to a shared store handle. The
// handle is constructed once at process start and injected; the manager never
// reaches for global state.
func NewSemaphoreManager(store SemaphoreStore) *SemaphoreManager {
	return &SemaphoreManager{store: store}
}

// Claim runs the claim protocol for one identifier:
//
//  1. no entry for the bounded key     -> ClaimNew
//  2. entry present, signature equal   -> ClaimDuplicate
//  3. entry present, signature differs -> overwrite, ClaimCollision
//
// A store failure is returned as-is: the caller must not treat it as either
// claimed or unclaimed, since guessing would silently defeat the
// single-processing guarantee.
func (m *SemaphoreManager) Claim(ctx context.Context, identifier string) (ClaimResult, error) {
	fp, err := ComputeFingerprint(identifier)
	if err != nil {
		return ClaimDuplicate, err
	}

	prev, err := m.store.InsertIfAbsent(ctx, fp.Key(), fp.Signature())
	if err != nil {
		return ClaimDuplicate, fmt.Errorf("claim %q: %w", identifier, err)
	}

	if prev == nil {
		logger.Debugf("claimed key %d for %q", fp.Key(), identifier)
		return ClaimNew, nil
	}

	if fp.SignatureEqual(prev) {
		logger.Debugf("already claimed (skip): %q (key %d)", identifier, fp.Key())
		return ClaimDuplicate, nil
	}

	// Same bounded key, different file. Expected with a 16-bit key space;
	// the new identifier displaces the old record.
	logger.Warnf("bounded key collision on key %d, reclaiming for %q", fp.Key(), identifier)
	if err := m.store.Put(ctx, fp.Key(), fp.Signature()); err != nil {
		return ClaimDuplicate, fmt.Errorf("collision overwrite %q: %w", identifier, err)
	}
	return ClaimCollision, nil
}

// ShouldClaim reports whether this node should process the identifier.
func (m *SemaphoreManager) ShouldClaim(ctx context.Context, identifier string) (bool, error) {
	res, err := m.Claim(ctx, identifier)
	if err != nil {
		return false, err
	}
	return res.Claimed(), nil
}

// MarkClaimed unconditionally records the identifier as claimed.
func (m *SemaphoreManager) MarkClaimed(ctx context.Context, identifier string) error {
	fp, err := ComputeFingerprint(identifier)
	if err != nil {
		return err
	}
	if err := m.store.Put(ctx, fp.Key(), fp.Signature()); err != nil {
		return fmt.Errorf("mark claimed %q: %w", identifier, err)
	}
	return nil
}

// IsClaimed reports whether the identifier currently holds its bounded key,
// without mutating the store.
func (m *SemaphoreManager) IsClaimed(ctx context.Context, identifier string) (bool, error) {
	fp, err := ComputeFingerprint(identifier)
	if err != nil {
		return false, err
	}
	val, err := m.store.Get(ctx, fp.Key())
	if err != nil {
		return false, fmt.Errorf("check claimed %q: %w", identifier, err)
	}
	if val == nil {
		return false, nil
	}
	return fp.SignatureEqual(val), nil
}
