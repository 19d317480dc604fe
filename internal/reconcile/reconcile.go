// Package reconcile removes stored artifacts that no profile or document row
// references, such as those left behind when the process died between
// writing an artifact and compensating for a failed transaction.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/profile-engine/internal/artifact"
)

// DefaultGrace is how old an unreferenced artifact must be before it is
// removed. Younger artifacts may belong to a request still in flight.
const DefaultGrace = time.Hour

// DefaultConcurrency bounds parallel deletions.
const DefaultConcurrency = 8

// References returns every locator the relational store points at.
type References interface {
	ReferencedLocators(ctx context.Context) (map[string]struct{}, error)
}

// Options controls a sweep.
type Options struct {
	Grace       time.Duration
	DryRun      bool
	Concurrency int
	Now         func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Grace <= 0 {
		o.Grace = DefaultGrace
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Report summarizes a sweep.
type Report struct {
	Listed     int      `json:"listed"`
	Referenced int      `json:"referenced"`
	Orphans    []string `json:"orphans"`
	Young      int      `json:"young"`
	Deleted    int      `json:"deleted"`
	Failed     int      `json:"failed"`
	Missing    []string `json:"missing"`
	DryRun     bool     `json:"dry_run"`
}

// Run lists the store, compares it with the referenced locators and deletes
// unreferenced artifacts older than the grace period. Referenced locators
// without an artifact are reported in Missing; they cannot be repaired here.
func Run(ctx context.Context, refs References, store artifact.Store, opts Options, log *zap.Logger) (*Report, error) {
	opts = opts.withDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("reconcile")

	lister, ok := store.(artifact.Lister)
	if !ok {
		return nil, errors.New("artifact store does not support listing")
	}

	// List before reading references: anything registered after the listing
	// is either seen in the references or younger than the grace period.
	objects, err := lister.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	referenced, err := refs.ReferencedLocators(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load referenced locators: %w", err)
	}

	report := &Report{Listed: len(objects), Referenced: len(referenced), DryRun: opts.DryRun}
	cutoff := opts.Now().Add(-opts.Grace)
	present := make(map[string]struct{}, len(objects))

	for _, obj := range objects {
		present[obj.Locator] = struct{}{}
		if _, ok := referenced[obj.Locator]; ok {
			continue
		}
		if obj.ModTime.After(cutoff) {
			report.Young++
			continue
		}
		report.Orphans = append(report.Orphans, obj.Locator)
	}
	for loc := range referenced {
		if _, ok := present[loc]; !ok {
			report.Missing = append(report.Missing, loc)
		}
	}
	sort.Strings(report.Orphans)
	sort.Strings(report.Missing)

	for _, loc := range report.Missing {
		log.Warn("referenced artifact missing from store", zap.String("locator", loc))
	}

	if opts.DryRun || len(report.Orphans) == 0 {
		log.Info("reconciliation finished",
			zap.Int("listed", report.Listed),
			zap.Int("orphans", len(report.Orphans)),
			zap.Int("missing", len(report.Missing)),
			zap.Bool("dry_run", opts.DryRun))
		return report, nil
	}

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for _, loc := range report.Orphans {
		g.Go(func() error {
			err := store.Delete(gCtx, loc)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil, errors.Is(err, artifact.ErrNotFound):
				report.Deleted++
				log.Debug("orphaned artifact removed", zap.String("locator", loc))
			case gCtx.Err() != nil:
				return gCtx.Err()
			default:
				report.Failed++
				log.Warn("failed to remove orphaned artifact", zap.String("locator", loc), zap.Error(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, fmt.Errorf("reconciliation interrupted: %w", err)
	}

	log.Info("reconciliation finished",
		zap.Int("listed", report.Listed),
		zap.Int("deleted", report.Deleted),
		zap.Int("failed", report.Failed),
		zap.Int("missing", len(report.Missing)))
	return report, nil
}
