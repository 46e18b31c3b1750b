package snap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync/atomic"
)

// SinkFunc receives one category's worth of scanned records. Each invocation
// maps to one atomic bulk insert; invocations may come from concurrent
// workers, so implementations must be safe for concurrent use.
type SinkFunc func(category string, records []FileRecord) error

// Scanner produces file records for one configured tree. Each Scan call
// performs a fresh filesystem walk.
type Scanner interface {
	Scan(ctx context.Context, sink SinkFunc) error
}

// Service orchestrates snapshot capture and reconciliation over a Store.
type Service struct {
	store  Store
	logger Logger
}

// NewService creates a Service with the provided dependencies.
func NewService(store Store, logger Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// CreateSnapshot creates a new import in the given lineage and fills it with
// the scanner's records. The import row is created first so concurrent scan
// workers can bulk-insert against it; the import is complete only when Scan
// has returned.
func (s *Service) CreateSnapshot(ctx context.Context, name string, tags map[string]string, scanner Scanner) (ImportID, error) {
	id, err := s.store.CreateImport(name, tags)
	if err != nil {
		return ImportID{}, fmt.Errorf("creating import: %w", err)
	}
	s.logger.Info("import created", "id", id.String(), "name", name)

	// The sink runs on concurrent scan workers.
	var total atomic.Int64
	err = scanner.Scan(ctx, func(category string, records []FileRecord) error {
		if len(records) == 0 {
			return nil
		}
		if err := s.store.ImportFiles(id, records); err != nil {
			return fmt.Errorf("persisting %d records for category %q: %w", len(records), category, err)
		}
		s.logger.Debug("records persisted", "category", category, "count", len(records))
		total.Add(int64(len(records)))
		return nil
	})
	if err != nil {
		return ImportID{}, fmt.Errorf("scanning: %w", err)
	}

	s.logger.Info("snapshot stored", "id", id.String(), "records", total.Load())
	return id, nil
}

// DiffResult is the outcome of reconciling an import against the latest
// import of its lineage.
type DiffResult struct {
	OriginalID ImportID
	NewID      ImportID
	Actions    []Action
}

// MarshalJSON emits the report wire format.
func (d *DiffResult) MarshalJSON() ([]byte, error) {
	actions := d.Actions
	if actions == nil {
		actions = []Action{}
	}
	return json.Marshal(struct {
		OriginalID string   `json:"original_id"`
		NewID      string   `json:"new_id"`
		Actions    []Action `json:"actions"`
	}{d.OriginalID.String(), d.NewID.String(), actions})
}

// WriteJSON writes the indented JSON report to w.
func (d *DiffResult) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encoding diff report: %w", err)
	}
	return nil
}

// Diff reconciles the given import against the latest import sharing its
// lineage name. Returns ErrNotFound if the import does not exist and
// ErrNoNewerVersion — before any classification — if it is itself the
// latest. compareDigests selects the content key for the correspondence.
func (s *Service) Diff(id ImportID, compareDigests bool) (*DiffResult, error) {
	imp, err := s.store.FetchImport(id)
	if err != nil {
		return nil, fmt.Errorf("fetching import %s: %w", id.String(), err)
	}

	latestID, ok, err := s.store.LatestImportID(imp.Name)
	if err != nil {
		return nil, fmt.Errorf("resolving latest import for %q: %w", imp.Name, err)
	}
	if !ok {
		// The import itself belongs to the lineage, so this cannot happen on
		// a consistent store.
		return nil, fmt.Errorf("lineage %q has no imports: %w", imp.Name, ErrNotFound)
	}
	if latestID == id {
		return nil, fmt.Errorf("diffing %s: %w", id.String(), ErrNoNewerVersion)
	}

	states, err := s.store.FetchCorrespondence(id, latestID, compareDigests)
	if err != nil {
		return nil, fmt.Errorf("fetching correspondence: %w", err)
	}

	actions, err := Reconciler{CompareDigests: compareDigests}.DiffAll(states)
	if err != nil {
		return nil, err
	}

	s.logger.Info("diff computed",
		"original_id", id.String(),
		"new_id", latestID.String(),
		"compared", len(states),
		"actions", len(actions),
	)

	return &DiffResult{OriginalID: id, NewID: latestID, Actions: actions}, nil
}

// ListImports returns up to limit imports of a lineage, newest first.
func (s *Service) ListImports(name string, limit int) ([]*ImportSummary, error) {
	return s.store.ListImports(name, limit)
}
