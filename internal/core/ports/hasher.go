package ports

import "go.trai.ch/forge/internal/core/domain"

// Hasher defines the interface for computing unit fingerprints.
//
//go:generate mockgen -destination=mocks/hasher_mock.go -package=mocks -source=hasher.go
type Hasher interface {
	// ComputeFileHash computes the hash of a single file's content.
	ComputeFileHash(path string) (uint64, error)
	// ComputeUnitHash computes the input hash of one compile unit.
	ComputeUnitHash(in *domain.UnitHashInput) (string, error)
}
