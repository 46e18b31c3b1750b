package snap

import "errors"

// ErrNotFound reports that a requested import id does not exist in the store.
var ErrNotFound = errors.New("import not found")

// ErrNoNewerVersion reports that the import being diffed is already the
// latest of its lineage; there is nothing to compare it against. Distinct
// from ErrNotFound: the import exists.
var ErrNoNewerVersion = errors.New("import is already the latest of its lineage")
