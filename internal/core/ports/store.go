package ports

import "go.trai.ch/forge/internal/core/domain"

// FingerprintStore persists unit fingerprints of one output directory.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type FingerprintStore interface {
	// Get retrieves the fingerprint of a unit.
	// Returns nil, nil if not found.
	Get(unit string) (*domain.Fingerprint, error)

	// Put stores the fingerprint.
	Put(fp domain.Fingerprint) error
}

// FingerprintStoreOpener opens the fingerprint store at path.
type FingerprintStoreOpener func(path string) (FingerprintStore, error)
