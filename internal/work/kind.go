package work

import "fmt"

// Kind identifies a type of work. It keys the catalog and the priority table.
type Kind string

const (
	KindCreateChange Kind = "CreateChange"
	KindReviewChange Kind = "ReviewChange"
	KindMergeChange  Kind = "MergeChange"
	KindShortBreak   Kind = "ShortBreak"
)

// allKinds is in declaration order. A catalog must define every entry.
var allKinds = []Kind{
	KindCreateChange,
	KindReviewChange,
	KindMergeChange,
	KindShortBreak,
}

// Kinds returns every known kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(allKinds))
	copy(out, allKinds)
	return out
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	for _, known := range allKinds {
		if k == known {
			return true
		}
	}
	return false
}

// ParseKind converts user input into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown work kind %q (valid: %v)", s, allKinds)
	}
	return k, nil
}

// Variant tags an item for display only. It never changes scheduling.
const (
	VariantStandard = "standard"
	VariantUrgent   = "urgent"
)
