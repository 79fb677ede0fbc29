// Package importer bulk-loads a directory of Alpha Progression CSV exports.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/claude/liftlog/internal/ingest"
	"github.com/claude/liftlog/internal/ingest/alpha"
)

// Stats tracks import progress.
type Stats struct {
	FilesProcessed int
	FilesSkipped   int
	FilesErrored   int

	SetsReceived   int
	SetsInserted   int64
	SetsDuplicated int64
	WarmupsDropped int

	UnknownExercises []string
}

// Importer reads *.csv exports from a directory and stores their sets.
type Importer struct {
	alpha  *alpha.Provider
	state  *StateDB
	log    *slog.Logger
	dryRun bool
	stats  Stats
}

// New creates a new Importer. state may be nil, in which case every file is
// processed on every run.
func New(provider *alpha.Provider, state *StateDB, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{alpha: provider, state: state, log: log, dryRun: dryRun}
}

// Import processes every .csv file under dir for userID. A file that fails
// to parse is counted and skipped; storage errors abort the run.
func (imp *Importer) Import(ctx context.Context, dir string, userID int) (*Stats, error) {
	files, err := findExports(dir)
	if err != nil {
		return &imp.stats, err
	}

	unknown := map[string]bool{}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return &imp.stats, err
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = path
		}
		info, err := os.Stat(path)
		if err != nil {
			imp.log.Warn("stat failed", "file", rel, "error", err)
			imp.stats.FilesErrored++
			continue
		}
		hash, err := HashFile(path)
		if err != nil {
			imp.log.Warn("hash failed", "file", rel, "error", err)
			imp.stats.FilesErrored++
			continue
		}

		if imp.state != nil {
			done, err := imp.state.IsImported(rel, userID, info.Size(), hash)
			if err != nil {
				return &imp.stats, err
			}
			if done {
				imp.log.Debug("already imported", "file", rel)
				imp.stats.FilesSkipped++
				continue
			}
		}

		result, err := imp.importFile(ctx, path, userID)
		if err != nil {
			if isParseError(err) {
				imp.log.Warn("skipping unparseable export", "file", rel, "error", err)
				imp.stats.FilesErrored++
				continue
			}
			return &imp.stats, fmt.Errorf("importing %s: %w", rel, err)
		}

		imp.stats.FilesProcessed++
		imp.stats.SetsReceived += result.SetsReceived
		imp.stats.SetsInserted += result.SetsInserted
		imp.stats.SetsDuplicated += result.SetsSkipped
		imp.stats.WarmupsDropped += result.WarmupsDropped
		for _, name := range result.UnknownExercises {
			if !unknown[name] {
				unknown[name] = true
				imp.stats.UnknownExercises = append(imp.stats.UnknownExercises, name)
			}
		}

		if imp.dryRun || imp.state == nil {
			continue
		}
		if err := imp.state.MarkImported(rel, userID, info.Size(), hash); err != nil {
			return &imp.stats, err
		}
	}

	sort.Strings(imp.stats.UnknownExercises)
	return &imp.stats, nil
}

// importFile ingests one export, or only converts it in dry-run mode.
func (imp *Importer) importFile(ctx context.Context, path string, userID int) (*ingest.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !imp.dryRun {
		return imp.alpha.Ingest(ctx, f, userID)
	}

	sessions, err := alpha.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}
	_, result := imp.alpha.Convert(sessions, userID)
	return result, nil
}

// findExports lists .csv files under dir in lexical order.
func findExports(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".csv") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

func isParseError(err error) bool {
	var pe *alpha.ParseError
	return errors.As(err, &pe)
}
