package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/profile-engine/internal/artifact"
)

type staticRefs map[string]struct{}

func (r staticRefs) ReferencedLocators(context.Context) (map[string]struct{}, error) {
	return r, nil
}

type failingRefs struct{}

func (failingRefs) ReferencedLocators(context.Context) (map[string]struct{}, error) {
	return nil, errors.New("db down")
}

// putOnly hides the Lister implementation of the wrapped store.
type putOnly struct{ artifact.Store }

func seed(t *testing.T, store *artifact.MemoryStore, name string, age time.Duration) string {
	t.Helper()
	loc, err := store.Put(context.Background(), []byte("x"), name)
	require.NoError(t, err)
	store.Backdate(loc, age)
	return loc
}

func TestRun_DeletesOldOrphansOnly(t *testing.T) {
	store := artifact.NewMemoryStore()
	ctx := context.Background()

	kept := seed(t, store, "kept.pdf", 2*time.Hour)
	orphan := seed(t, store, "orphan.pdf", 2*time.Hour)
	young := seed(t, store, "young.png", time.Minute)
	missing := "2026/01/0ujtsYcgvSTl8PAuAdqWYSMnLOv.pdf"

	refs := staticRefs{kept: {}, missing: {}}
	report, err := Run(ctx, refs, store, Options{}, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Listed)
	assert.Equal(t, []string{orphan}, report.Orphans)
	assert.Equal(t, 1, report.Deleted)
	assert.Equal(t, 1, report.Young)
	assert.Equal(t, []string{missing}, report.Missing)

	for loc, want := range map[string]bool{kept: true, orphan: false, young: true} {
		ok, err := store.Exists(ctx, loc)
		require.NoError(t, err)
		assert.Equal(t, want, ok, loc)
	}
}

func TestRun_DryRunDeletesNothing(t *testing.T) {
	store := artifact.NewMemoryStore()
	seed(t, store, "a.pdf", 3*time.Hour)
	seed(t, store, "b.pdf", 3*time.Hour)

	report, err := Run(context.Background(), staticRefs{}, store, Options{DryRun: true}, nil)
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Len(t, report.Orphans, 2)
	assert.Equal(t, 0, report.Deleted)
	assert.Equal(t, 2, store.Len())
}

func TestRun_CustomGraceAndClock(t *testing.T) {
	store := artifact.NewMemoryStore()
	seed(t, store, "a.pdf", 10*time.Minute)

	report, err := Run(context.Background(), staticRefs{}, store, Options{
		Grace: 5 * time.Minute,
		Now:   time.Now,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Deleted)
	assert.Equal(t, 0, store.Len())
}

func TestRun_DeleteFailuresAreCounted(t *testing.T) {
	store := artifact.NewMemoryStore()
	for i := 0; i < 20; i++ {
		seed(t, store, "x.pdf", 2*time.Hour)
	}
	store.FailDeletes(errors.New("permission denied"))

	report, err := Run(context.Background(), staticRefs{}, store, Options{Concurrency: 3}, nil)
	require.NoError(t, err)
	assert.Equal(t, 20, report.Failed)
	assert.Equal(t, 0, report.Deleted)
	assert.Equal(t, 20, store.DeleteCalls())
}

func TestRun_Errors(t *testing.T) {
	store := artifact.NewMemoryStore()

	_, err := Run(context.Background(), failingRefs{}, store, Options{}, nil)
	assert.ErrorContains(t, err, "failed to load referenced locators")

	_, err = Run(context.Background(), staticRefs{}, putOnly{store}, Options{}, nil)
	assert.ErrorContains(t, err, "does not support listing")
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, DefaultGrace, o.Grace)
	assert.Equal(t, DefaultConcurrency, o.Concurrency)
	assert.NotNil(t, o.Now)
}
