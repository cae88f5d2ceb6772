package testutil

// FixedIDGenerator generates the same store ID every time.
//
// Store IDs appear in logs and trace records. A fixed ID makes traces
// byte-identical across runs, which golden comparison depends on.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a generator returning id.
// If id is empty, Generate() returns "test-store".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-store"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed ID.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}
