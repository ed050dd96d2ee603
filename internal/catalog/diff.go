package catalog

import "slices"

// ChangeKind classifies a Diff entry.
type ChangeKind int

const (
	Added ChangeKind = iota
	Removed
	Changed
)

func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return "changed"
	}
}

// Change is one message-level difference between two catalogs.
type Change struct {
	Kind    ChangeKind
	Context string
	Key     Key
	Before  *Message
	After   *Message
}

// Diff lists the messages added to, removed from or changed between a and b.
// A message changes when its numerus mode, translation forms or status
// differ; locations and comments for translators are provenance only.
// Added and changed entries follow b's order, removed entries a's order.
func Diff(a, b *Catalog) []Change {
	var out []Change
	for _, bctx := range b.Contexts {
		actx, _ := a.Context(bctx.Name)
		for _, bm := range bctx.Messages {
			var am *Message
			if actx != nil {
				am, _ = actx.Find(bm.Key())
			}
			switch {
			case am == nil:
				out = append(out, Change{Kind: Added, Context: bctx.Name, Key: bm.Key(), After: bm})
			case !sameTranslation(am, bm):
				out = append(out, Change{Kind: Changed, Context: bctx.Name, Key: bm.Key(), Before: am, After: bm})
			}
		}
	}
	for _, actx := range a.Contexts {
		for _, am := range actx.Messages {
			if _, ok := b.Find(actx.Name, am.Source, am.Comment); !ok {
				out = append(out, Change{Kind: Removed, Context: actx.Name, Key: am.Key(), Before: am})
			}
		}
	}
	return out
}

func sameTranslation(a, b *Message) bool {
	return a.Numerus == b.Numerus && a.Status == b.Status && slices.Equal(a.Translations, b.Translations)
}

// Equal reports whether two catalogs hold the same logical message set:
// identical contexts and keys in the same order, with equal numerus mode,
// forms, status and old source.
func Equal(a, b *Catalog) bool {
	if a.Language != b.Language || len(a.Contexts) != len(b.Contexts) {
		return false
	}
	for i, actx := range a.Contexts {
		bctx := b.Contexts[i]
		if actx.Name != bctx.Name || len(actx.Messages) != len(bctx.Messages) {
			return false
		}
		for j, am := range actx.Messages {
			bm := bctx.Messages[j]
			if am.Key() != bm.Key() || am.OldSource != bm.OldSource || !sameTranslation(am, bm) {
				return false
			}
		}
	}
	return true
}
