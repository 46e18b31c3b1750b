package snap

import "fmt"

// CompareState is one row of the correspondence between a previous and a
// next import. Exactly one of three shapes occurs:
//
//   - Original set, New nil: the record exists only in the previous import.
//   - Original nil, New set: the record exists only in the next import.
//   - Both set: the records were joined on content key or path key. IsCopy
//     marks the duplicate-content tie-break — identical content also
//     survives unchanged at its original path somewhere in the next import,
//     so this differently-pathed pair is a duplicate rather than a
//     relocation.
type CompareState struct {
	Original *FileRecord
	New      *FileRecord
	IsCopy   bool
}

// Reconciler classifies correspondence rows into actions. CompareDigests
// selects the content key: digest when set, (size, modified) otherwise, and
// must match the flag the correspondence was computed with.
type Reconciler struct {
	CompareDigests bool
}

// DiffAll classifies every correspondence row. Unchanged pairs produce no
// action; every other row produces exactly one. A row that cannot be
// classified indicates a defect in the join and fails the whole diff.
func (r Reconciler) DiffAll(states []CompareState) ([]Action, error) {
	actions := make([]Action, 0, len(states))
	for _, cs := range states {
		action, err := r.Classify(cs)
		if err != nil {
			return nil, err
		}
		if action != nil {
			actions = append(actions, action)
		}
	}
	return actions, nil
}

// Classify maps one correspondence row to its action, or to nil for an
// unchanged pair.
func (r Reconciler) Classify(cs CompareState) (Action, error) {
	switch {
	case cs.Original == nil && cs.New == nil:
		return nil, fmt.Errorf("classify: correspondence row with neither side set")
	case cs.Original == nil:
		return Created{New: *cs.New}, nil
	case cs.New == nil:
		return Removed{Original: *cs.Original}, nil
	}

	if cs.IsCopy {
		return Copied{Original: *cs.Original, Copy: *cs.New}, nil
	}
	return r.classifyPair(cs.Original, cs.New)
}

// classifyPair handles rows where both sides are present and the pair is not
// a duplicate. The pair was joined on content key or path key, so at least
// one of the two must hold.
func (r Reconciler) classifyPair(original, next *FileRecord) (Action, error) {
	sameContent := original.SameContent(next, r.CompareDigests)
	samePath := original.SamePath(next)

	switch {
	case sameContent && samePath:
		return nil, nil // unchanged

	case sameContent:
		// Content persists at a different path, and no unchanged copy
		// survives (that case was tie-broken into Copied). Which path
		// component changed decides the variant.
		if original.BaseName == next.BaseName || original.DirName != next.DirName {
			if next.Archived {
				return Archived{Original: *original, NewDirName: next.DirName, NewMetadata: next.Metadata}, nil
			}
			return Moved{Original: *original, NewDirName: next.DirName, NewMetadata: next.Metadata}, nil
		}
		return Renamed{Original: *original, NewBaseName: next.BaseName, NewMetadata: next.Metadata}, nil

	case samePath:
		return Modified{
			Original:    *original,
			NewModified: next.Modified,
			NewSize:     next.Size,
			NewDigest:   next.Digest,
		}, nil

	default:
		// A pair sharing neither key could never have been joined.
		return nil, fmt.Errorf("classify: pair %q / %q shares neither content key nor path key", original.FileName(), next.FileName())
	}
}
