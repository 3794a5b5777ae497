package domain

import "time"

// Fingerprint records the inputs a compile unit was last built from.
type Fingerprint struct {
	Unit      string    `json:"unit,omitzero"`
	InputHash string    `json:"input_hash,omitzero"`
	Outputs   []string  `json:"outputs,omitempty"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// UnitHashInput is everything that influences the output of one compile unit.
type UnitHashInput struct {
	// Key identifies the unit (package, target, profile).
	Key string
	// SrcRoot is the directory whose files are hashed.
	SrcRoot string
	// Ignores are directory or file name patterns skipped while hashing SrcRoot.
	Ignores []string
	// Args is the full argument list of the compiler invocation.
	Args []string
	// Env holds environment variables passed to the invocation.
	Env map[string]string
	// DepHashes are the input hashes of the units this unit depends on.
	DepHashes []string
}
