package ports

// OutputVerifier checks that the recorded outputs of a fresh unit still exist.
//
//go:generate go run go.uber.org/mock/mockgen -source=verifier.go -destination=mocks/mock_verifier.go -package=mocks
type OutputVerifier interface {
	// VerifyOutputs reports whether every path exists.
	VerifyOutputs(paths []string) (bool, error)
}
