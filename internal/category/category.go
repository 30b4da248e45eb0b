// Package category defines the closed set of spending categories the
// pipeline classifies into.
package category

// The allowed set is fixed and ordered. The last entry doubles as the
// fallback the classification gateway assigns when the provider fails or
// returns something outside the set.
var allowed = []string{
	"Food",
	"Transport",
	"Entertainment",
	"Utilities",
	"Other",
}

// All returns a copy of the allowed category set, in canonical order.
func All() []string {
	out := make([]string, len(allowed))
	copy(out, allowed)
	return out
}

// IsValid reports whether name is a member of the allowed set.
func IsValid(name string) bool {
	for _, c := range allowed {
		if c == name {
			return true
		}
	}
	return false
}

// Default returns the fallback category (the last entry of the set).
func Default() string {
	return allowed[len(allowed)-1]
}

// FallbackConfidence is the confidence assigned alongside the fallback
// category when classification fails closed.
const FallbackConfidence = 0.5
