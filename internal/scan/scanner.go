// Package scan walks a file tree and turns every regular file into a
// snap.FileRecord, classifying each against configured path-template
// categories and optionally digesting contents.
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"fsnap/internal/pathmatch"
	"fsnap/internal/snap"
)

// Unmatched is the sink category for files no configured pattern accepted.
// Unmatched files are still recorded — with empty metadata — so the
// inventory stays complete.
const Unmatched = ""

// Category is one named group of path templates. Categories are tried in
// the order given to the Scanner; patterns within a category in declaration
// order. The first accepting matcher wins.
type Category struct {
	Name     string
	Patterns []*pathmatch.Pattern
}

// Scanner walks Root and produces records partitioned by category.
//
// Symlinks and other non-regular files are skipped; the walk does not follow
// symlinked directories. Paths in records are slash-separated and relative
// to Root.
type Scanner struct {
	Root       string
	Categories []Category

	// DigestEnabled controls content fingerprinting. Digesting reads every
	// byte of every file, which dominates scan cost; when disabled records
	// carry the empty digest sentinel.
	DigestEnabled bool

	// IsArchived derives the archived flag from a matched file's metadata.
	// Nil means never archived.
	IsArchived func(metadata map[string]string) bool

	// FileGroup derives an optional group label from a matched file's
	// metadata. Nil means no label.
	FileGroup func(metadata map[string]string) (string, bool)

	// Workers caps concurrent category workers. Values below 1 mean one
	// worker, i.e. a fully sequential scan. The final record set is the
	// same regardless of worker count; only sink invocation order varies.
	Workers int

	Logger snap.Logger
}

// candidate is one walked file assigned to a category.
type candidate struct {
	rel      string            // slash-separated, relative to Root
	metadata map[string]string // nil for unmatched files
}

// Scan walks the root once, assigns every regular file to the first
// accepting category, then builds and flushes records with one worker per
// category. The sink is called once per non-empty category, possibly from
// concurrent goroutines. Failure to enumerate the root is fatal; per-file
// stat/read failures are logged and skipped.
func (s *Scanner) Scan(ctx context.Context, sink snap.SinkFunc) error {
	logger := s.Logger
	if logger == nil {
		logger = snap.NewNopLogger()
	}

	buckets, err := s.partition(logger)
	if err != nil {
		return err
	}

	workers := s.Workers
	if workers < 1 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	// Deterministic worker launch order; completion order is up to the
	// scheduler and must not matter.
	names := make([]string, 0, len(buckets))
	for name := range buckets {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		files := buckets[name]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			records := make([]snap.FileRecord, 0, len(files))
			for _, c := range files {
				rec, err := s.buildRecord(c)
				if err != nil {
					logger.Warn("skipping unreadable file", "path", c.rel, "error", err)
					continue
				}
				records = append(records, rec)
			}
			if err := sink(name, records); err != nil {
				return err
			}
			logger.Debug("category scanned", "category", name, "files", len(records))
			return nil
		})
	}

	return g.Wait()
}

// partition walks the tree and assigns each regular file to a category.
func (s *Scanner) partition(logger snap.Logger) (map[string][]candidate, error) {
	buckets := make(map[string][]candidate)

	err := filepath.WalkDir(s.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == s.Root {
				return err // cannot enumerate the root at all
			}
			logger.Warn("skipping unreadable entry", "path", p, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(s.Root, p)
		if err != nil {
			return fmt.Errorf("relativizing %s: %w", p, err)
		}
		rel = filepath.ToSlash(rel)

		name, metadata := s.classify(rel)
		buckets[name] = append(buckets[name], candidate{rel: rel, metadata: metadata})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", s.Root, err)
	}
	return buckets, nil
}

// classify returns the first category whose matcher accepts the path, along
// with the captured metadata, or (Unmatched, nil).
func (s *Scanner) classify(rel string) (string, map[string]string) {
	for _, cat := range s.Categories {
		for _, p := range cat.Patterns {
			if !p.GlobMatch(rel) {
				continue
			}
			if metadata, ok := p.Match(rel); ok {
				return cat.Name, metadata
			}
		}
	}
	return Unmatched, nil
}

// buildRecord stats (and optionally digests) one file.
func (s *Scanner) buildRecord(c candidate) (snap.FileRecord, error) {
	abs := filepath.Join(s.Root, filepath.FromSlash(c.rel))

	info, err := os.Stat(abs)
	if err != nil {
		return snap.FileRecord{}, fmt.Errorf("stat: %w", err)
	}

	var digest snap.Digest
	if s.DigestEnabled {
		digest, err = digestFile(abs)
		if err != nil {
			return snap.FileRecord{}, err
		}
	}

	dirName, baseName := splitPath(c.rel)
	rec := snap.FileRecord{
		Digest:   digest,
		DirName:  dirName,
		BaseName: baseName,
		Created:  createdAt(info),
		Modified: unixSeconds(info.ModTime()),
		Size:     info.Size(),
		Metadata: c.metadata,
	}

	if c.metadata != nil {
		if s.IsArchived != nil {
			rec.Archived = s.IsArchived(c.metadata)
		}
		if s.FileGroup != nil {
			if group, ok := s.FileGroup(c.metadata); ok {
				rec.FileGroup = group
			}
		}
	}
	return rec, nil
}

// splitPath splits a slash-separated relative path into directory and
// filename. Files at the root get an empty directory.
func splitPath(rel string) (dirName, baseName string) {
	if i := strings.LastIndexByte(rel, '/'); i >= 0 {
		return rel[:i], rel[i+1:]
	}
	return "", rel
}
