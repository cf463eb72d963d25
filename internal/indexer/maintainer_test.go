package indexer

import (
	"context"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/indexer/termfreq"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/metrics"
)

type docSource map[int64]termfreq.Frequencies

func (d docSource) EachTermFrequencies(ctx context.Context, fn func(int64, termfreq.Frequencies) error) error {
	for id, f := range d {
		if err := fn(id, f); err != nil {
			return err
		}
	}
	return nil
}

func snapshot(t *testing.T, s index.Store) map[string][]int64 {
	t.Helper()
	out := make(map[string][]int64)
	if err := s.Scan(context.Background(), func(term string, ids []int64) error {
		out[term] = ids
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestReconcileUnchangedSetIsNoop(t *testing.T) {
	ctx := context.Background()
	store := index.NewMemoryStore()
	m := NewMaintainer(metrics.NewUnregistered())
	s := termfreq.NewSet("cat", "dog")
	m.Reconcile(ctx, store, 1, termfreq.NewSet(), s)
	m.Reconcile(ctx, store, 2, termfreq.NewSet(), termfreq.NewSet("dog"))
	before := snapshot(t, store)

	delta, err := m.Reconcile(ctx, store, 1, s, s)
	if err != nil {
		t.Fatal(err)
	}
	if !delta.Empty() {
		t.Fatalf("expected empty delta, got %+v", delta)
	}
	if after := snapshot(t, store); !reflect.DeepEqual(before, after) {
		t.Fatalf("index changed: %v -> %v", before, after)
	}
}

func TestReconcileNewDocument(t *testing.T) {
	ctx := context.Background()
	store := index.NewMemoryStore()
	m := NewMaintainer(nil)
	store.Add(ctx, "bird", 2)

	s := termfreq.NewSet("cat", "dog")
	if _, err := m.Reconcile(ctx, store, 1, termfreq.NewSet(), s); err != nil {
		t.Fatal(err)
	}
	for term, ids := range snapshot(t, store) {
		has := false
		for _, id := range ids {
			if id == 1 {
				has = true
			}
		}
		if has != s.Has(term) {
			t.Errorf("term %q: contains doc 1 = %v, in set = %v", term, has, s.Has(term))
		}
	}
}

func TestReconcileDeletion(t *testing.T) {
	ctx := context.Background()
	store := index.NewMemoryStore()
	m := NewMaintainer(nil)
	s := termfreq.NewSet("cat", "dog", "bird")
	m.Reconcile(ctx, store, 1, termfreq.NewSet(), s)
	m.Reconcile(ctx, store, 2, termfreq.NewSet(), termfreq.NewSet("cat"))

	if _, err := m.Reconcile(ctx, store, 1, s, termfreq.NewSet()); err != nil {
		t.Fatal(err)
	}
	got := snapshot(t, store)
	want := map[string][]int64{"cat": {2}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("index = %v, want %v", got, want)
	}
}

func TestReconcileEditDropsTerm(t *testing.T) {
	ctx := context.Background()
	store := index.NewMemoryStore()
	m := NewMaintainer(nil)

	pre := termfreq.Compute("cat cat dog").Terms()
	m.Reconcile(ctx, store, 1, termfreq.NewSet(), pre)
	m.Reconcile(ctx, store, 2, termfreq.NewSet(), termfreq.Compute("dog bird").Terms())

	post := termfreq.Compute("cat cat").Terms()
	delta, err := m.Reconcile(ctx, store, 1, pre, post)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(delta.Removed, []string{"dog"}) || len(delta.Added) != 0 {
		t.Fatalf("delta = %+v", delta)
	}
	got := snapshot(t, store)
	if !reflect.DeepEqual(got["dog"], []int64{2}) {
		t.Errorf("dog postings = %v", got["dog"])
	}
	if !reflect.DeepEqual(got["cat"], []int64{1}) {
		t.Errorf("cat postings = %v", got["cat"])
	}
}

func TestReconcileRemovalOfMissingEntry(t *testing.T) {
	store := index.NewMemoryStore()
	_, err := NewMaintainer(nil).Reconcile(context.Background(), store, 7,
		termfreq.NewSet("ghost"), termfreq.NewSet("real"))
	if err != nil {
		t.Fatalf("missing entry on removal must be skipped: %v", err)
	}
	if got := snapshot(t, store); !reflect.DeepEqual(got, map[string][]int64{"real": {7}}) {
		t.Fatalf("index = %v", got)
	}
}

func TestRebuildAndVerify(t *testing.T) {
	ctx := context.Background()
	store := index.NewMemoryStore()
	m := NewMaintainer(metrics.NewUnregistered())
	src := docSource{
		1: termfreq.Compute("cat cat dog"),
		2: termfreq.Compute("dog bird"),
		3: termfreq.Compute("cat"),
	}

	store.Add(ctx, "cat", 1)
	store.Add(ctx, "fish", 2)

	report, err := m.Verify(ctx, store, src)
	if err != nil {
		t.Fatal(err)
	}
	if report.Consistent() {
		t.Fatal("expected drift to be detected")
	}
	if report.Stale != 1 {
		t.Errorf("stale = %d, want 1 (fish/2)", report.Stale)
	}
	if report.Missing != 4 {
		t.Errorf("missing = %d, want 4 (cat/3 dog/1 dog/2 bird/2)", report.Missing)
	}

	stats, err := m.Rebuild(ctx, store, src)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Documents != 3 || stats.Terms != 3 {
		t.Errorf("stats = %+v", stats)
	}
	report, _ = m.Verify(ctx, store, src)
	if !report.Consistent() {
		t.Fatalf("index still inconsistent after rebuild: %+v", report)
	}
}
