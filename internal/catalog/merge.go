package catalog

// MergeStats summarizes a re-extraction merge.
type MergeStats struct {
	Kept     int // same key, translation carried over
	Changed  int // source text changed, old source recorded
	Added    int // new messages
	Obsolete int // translated messages no longer extracted
	Dropped  int // untranslated messages no longer extracted
}

// Merge folds a fresh extraction into an existing translated catalog.
//
// Message order and locations follow extracted. A message whose key still
// exists keeps its translation. A message whose source text changed, found
// through a shared comment and source location, records the previous text in
// OldSource and becomes Unfinished, keeping the old forms as a draft for the
// translator to confirm. Existing messages that were not matched are kept as
// Obsolete when they carry a translation and dropped otherwise. Numerus slots
// are sized for the existing catalog's language; when that language is
// unknown a message keeps the forms it already has.
func Merge(existing, extracted *Catalog) (*Catalog, MergeStats) {
	var stats MergeStats
	out := &Catalog{
		Version:        existing.Version,
		Language:       existing.Language,
		SourceLanguage: existing.SourceLanguage,
	}
	if out.Version == "" {
		out.Version = extracted.Version
	}
	if out.SourceLanguage == "" {
		out.SourceLanguage = extracted.SourceLanguage
	}
	forms := 0
	if l, err := existing.Locale(); err == nil {
		forms = l.PluralCount()
	}
	slots := func(m *Message, old *Message) int {
		switch {
		case !m.Numerus:
			return 1
		case forms > 0:
			return forms
		case old != nil && len(old.Translations) > 0:
			return len(old.Translations)
		}
		return max(len(m.Translations), 1)
	}

	used := map[*Message]bool{}
	for _, xctx := range extracted.Contexts {
		octx := out.EnsureContext(xctx.Name)
		prev, _ := existing.Context(xctx.Name)
		for _, xm := range xctx.Messages {
			m := xm.Clone()
			m.Status = Unfinished

			if old := findUnused(prev, used, func(o *Message) bool { return o.Key() == xm.Key() }); old != nil {
				used[old] = true
				m.TranslatorComment = old.TranslatorComment
				m.Translations = append([]string(nil), old.Translations...)
				m.resize(slots(m, old))
				m.Status = old.Status
				if m.Status.Retired() {
					m.Status = Translated
				}
				if m.Status == Translated && hasEmptyForm(m) {
					m.Status = Unfinished
				}
				m.OldSource = ""
				if m.Status == Unfinished {
					m.OldSource = old.OldSource
				}
				stats.Kept++
			} else if old := findUnused(prev, used, func(o *Message) bool { return sameOrigin(o, xm) }); old != nil {
				used[old] = true
				m.OldSource = old.Source
				m.TranslatorComment = old.TranslatorComment
				m.Translations = append([]string(nil), old.Translations...)
				m.resize(slots(m, old))
				stats.Changed++
			} else {
				n := slots(m, nil)
				m.Translations = nil
				m.resize(n)
				stats.Added++
			}
			octx.Messages = append(octx.Messages, m)
		}
	}

	for _, ectx := range existing.Contexts {
		for _, old := range ectx.Messages {
			if used[old] {
				continue
			}
			if old.IsEmpty() {
				stats.Dropped++
				continue
			}
			m := old.Clone()
			if !m.Status.Retired() {
				m.Status = Obsolete
			}
			octx := out.EnsureContext(ectx.Name)
			octx.Messages = append(octx.Messages, m)
			stats.Obsolete++
		}
	}

	pruned := out.Contexts[:0]
	for _, ctx := range out.Contexts {
		if len(ctx.Messages) > 0 {
			pruned = append(pruned, ctx)
		}
	}
	out.Contexts = pruned
	return out, stats
}

func hasEmptyForm(m *Message) bool {
	for _, t := range m.Translations {
		if t == "" {
			return true
		}
	}
	return false
}

func findUnused(ctx *Context, used map[*Message]bool, match func(*Message) bool) *Message {
	if ctx == nil {
		return nil
	}
	for _, m := range ctx.Messages {
		if !used[m] && match(m) {
			return m
		}
	}
	return nil
}

// sameOrigin reports whether two messages come from the same source line
// under the same disambiguating comment and numerus mode.
func sameOrigin(old, fresh *Message) bool {
	if old.Comment != fresh.Comment || old.Numerus != fresh.Numerus || old.Source == fresh.Source {
		return false
	}
	for _, a := range old.Locations {
		for _, b := range fresh.Locations {
			if a == b {
				return true
			}
		}
	}
	return false
}
