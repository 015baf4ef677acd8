package domain

import (
	"testing"

	dErrors "referrals/pkg/domain-errors"
)

// FuzzParseCodeID feeds path parameters through the parser: it must either
// return a non-nil id that survives a round trip or an invalid_input error.
func FuzzParseCodeID(f *testing.F) {
	for _, seed := range []string{
		"",
		"550e8400-e29b-41d4-a716-446655440000",
		"00000000-0000-0000-0000-000000000000",
		"ABCD2345",
		"{550e8400-e29b-41d4-a716-446655440000}",
		"urn:uuid:550e8400-e29b-41d4-a716-446655440000",
		"550e8400-e29b-41d4-a716-446655440000\x00",
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseCodeID(input)
		if err != nil {
			if !dErrors.HasCode(err, dErrors.CodeInvalidInput) {
				t.Fatalf("unexpected error code for %q: %v", input, err)
			}
			return
		}
		if id.IsNil() {
			t.Fatalf("nil id accepted from %q", input)
		}
		again, err := ParseCodeID(id.String())
		if err != nil || again != id {
			t.Fatalf("round trip of %q failed: %v", input, err)
		}
	})
}
