package service

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog/memstore"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/events"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/metrics"
)

var (
	admin = catalog.Actor{Name: "root", Role: catalog.RoleAdmin}
	alice = catalog.Actor{Name: "alice", Role: catalog.RoleContributor}
	bob   = catalog.Actor{Name: "bob", Role: catalog.RoleContributor}
	carol = catalog.Actor{Name: "carol", Role: catalog.RoleReader}
)

type recorder struct{ events []events.Event }

func (r *recorder) Publish(_ context.Context, e events.Event) { r.events = append(r.events, e) }

func newService(t *testing.T, store catalog.Store, excluded []string) (*Service, *recorder) {
	t.Helper()
	rec := &recorder{}
	svc, err := New(store, Options{ExcludedFields: excluded, Publisher: rec, Metrics: metrics.NewUnregistered()})
	if err != nil {
		t.Fatal(err)
	}
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return svc, rec
}

func postings(t *testing.T, store catalog.Store, term string) []int64 {
	t.Helper()
	got, err := store.Index().Postings(context.Background(), []string{term})
	if err != nil {
		t.Fatal(err)
	}
	return got[term]
}

func assertConsistent(t *testing.T, svc *Service) {
	t.Helper()
	report, err := svc.Verify(context.Background(), admin)
	if err != nil {
		t.Fatal(err)
	}
	if !report.Consistent() {
		t.Fatalf("index inconsistent: %+v", report)
	}
}

func book(title string) *catalog.Document {
	return &catalog.Document{DocType: catalog.DocTypeBook, Title: title}
}

func TestCreateUpdateDeleteKeepIndexInSync(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc, rec := newService(t, store, nil)

	d, err := svc.Create(ctx, alice, book("Cats and dogs"))
	if err != nil {
		t.Fatal(err)
	}
	if d.Status != catalog.StatusDraft || d.PostedBy != "alice" {
		t.Fatalf("unexpected document %+v", d)
	}
	if got := postings(t, store, "dog"); !slices.Equal(got, []int64{d.ID}) {
		t.Fatalf("postings(dog) = %v", got)
	}
	assertConsistent(t, svc)

	if _, err := svc.Update(ctx, alice, d.ID, book("Cats and birds")); err != nil {
		t.Fatal(err)
	}
	if got := postings(t, store, "dog"); len(got) != 0 {
		t.Fatalf("dog still indexed: %v", got)
	}
	if got := postings(t, store, "bird"); !slices.Equal(got, []int64{d.ID}) {
		t.Fatalf("postings(bird) = %v", got)
	}
	assertConsistent(t, svc)

	if err := svc.Delete(ctx, alice, d.ID); err != nil {
		t.Fatal(err)
	}
	if n, _ := store.Index().Len(ctx); n != 0 {
		t.Fatalf("index has %d terms after delete", n)
	}
	if _, err := svc.Get(ctx, admin, d.ID); !errors.Is(err, apperrors.ErrDocumentNotFound) {
		t.Fatalf("Get after delete: %v", err)
	}

	var types []events.Type
	for _, e := range rec.events {
		types = append(types, e.Type)
	}
	want := []events.Type{events.DocumentCreated, events.DocumentUpdated, events.DocumentDeleted}
	if !slices.Equal(types, want) {
		t.Fatalf("events = %v, want %v", types, want)
	}
}

func TestPermissions(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, memstore.New(), nil)

	if _, err := svc.Create(ctx, carol, book("x")); apperrors.HTTPStatusCode(err) != 403 {
		t.Fatalf("reader create: %v", err)
	}
	published := book("Published by a contributor")
	published.Status = catalog.StatusPublished
	if _, err := svc.Create(ctx, alice, published); apperrors.HTTPStatusCode(err) != 403 {
		t.Fatalf("contributor publish: %v", err)
	}

	d, err := svc.Create(ctx, alice, book("Mine"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Update(ctx, bob, d.ID, book("Theirs")); apperrors.HTTPStatusCode(err) != 404 {
		t.Fatalf("other contributor should not see a draft: %v", err)
	}
	if _, err := svc.Get(ctx, catalog.Actor{}, d.ID); apperrors.HTTPStatusCode(err) != 404 {
		t.Fatalf("anonymous should not see a draft: %v", err)
	}
	if _, err := svc.TogglePublish(ctx, alice, d.ID); apperrors.HTTPStatusCode(err) != 403 {
		t.Fatalf("contributor toggle publish: %v", err)
	}
}

func TestStatusTransitions(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, memstore.New(), nil)

	d, err := svc.Create(ctx, alice, book("Lifecycle"))
	if err != nil {
		t.Fatal(err)
	}
	if d, err = svc.Submit(ctx, alice, d.ID); err != nil || d.Status != catalog.StatusUnderReview {
		t.Fatalf("submit: %v %v", d, err)
	}
	if _, err := svc.Submit(ctx, alice, d.ID); !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Fatalf("second submit: %v", err)
	}
	if _, err := svc.ToggleDraft(ctx, admin, d.ID); apperrors.HTTPStatusCode(err) != 409 {
		t.Fatalf("toggle draft under review: %v", err)
	}

	queue, err := svc.ReviewQueue(ctx, admin, 0, 0)
	if err != nil || queue.Total != 1 {
		t.Fatalf("review queue: %+v %v", queue, err)
	}

	if d, err = svc.TogglePublish(ctx, admin, d.ID); err != nil || d.Status != catalog.StatusPublished {
		t.Fatalf("publish: %v %v", d, err)
	}
	if _, err := svc.Get(ctx, catalog.Actor{}, d.ID); err != nil {
		t.Fatalf("published document hidden from the public: %v", err)
	}

	// A contributor's edit of a published document goes back to review.
	if d, err = svc.Update(ctx, alice, d.ID, book("Lifecycle, revised")); err != nil || d.Status != catalog.StatusUnderReview {
		t.Fatalf("contributor edit: %v %v", d, err)
	}
	if d, err = svc.TogglePublish(ctx, admin, d.ID); err != nil || d.Status != catalog.StatusPublished {
		t.Fatalf("republish: %v %v", d, err)
	}
	if d, err = svc.ToggleDraft(ctx, admin, d.ID); err != nil || d.Status != catalog.StatusDraft {
		t.Fatalf("toggle draft: %v %v", d, err)
	}
	if d, err = svc.ToggleDraft(ctx, admin, d.ID); err != nil || d.Status != catalog.StatusPublished {
		t.Fatalf("toggle draft back: %v %v", d, err)
	}
}

func TestUpdateKeepsAttributionAndLinkState(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc, _ := newService(t, store, nil)

	in := book("Linked")
	in.Link = "https://example.org/a"
	d, err := svc.Create(ctx, alice, in)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RecordLinkCheck(ctx, d.ID, false); err != nil {
		t.Fatal(err)
	}

	edit := book("Linked, edited")
	edit.Link = "https://example.org/a"
	got, err := svc.Update(ctx, admin, d.ID, edit)
	if err != nil {
		t.Fatal(err)
	}
	if got.PostedBy != "alice" || got.LastEditedBy != "root" || !got.PostedDate.Equal(d.PostedDate) {
		t.Fatalf("attribution not kept: %+v", got)
	}
	if got.BrokenLink != catalog.LinkBroken {
		t.Fatalf("unchanged link lost its state: %v", got.BrokenLink)
	}

	edit.Link = "https://example.org/b"
	if got, err = svc.Update(ctx, admin, d.ID, edit); err != nil || got.BrokenLink != catalog.LinkNotBroken {
		t.Fatalf("new link should reset state: %v %v", got, err)
	}
}

func TestLinkChecks(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, memstore.New(), nil)

	var ids []int64
	for _, link := range []string{"https://a.example", "https://b.example", ""} {
		in := book("Doc " + link)
		in.Link = link
		d, err := svc.Create(ctx, admin, in)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, d.ID)
	}

	targets, err := svc.LinkTargets(ctx)
	if err != nil || len(targets) != 2 {
		t.Fatalf("targets = %v, %v", targets, err)
	}
	if changed, _ := svc.RecordLinkCheck(ctx, ids[0], false); !changed {
		t.Fatal("first failure should change state")
	}
	if changed, _ := svc.RecordLinkCheck(ctx, ids[0], false); changed {
		t.Fatal("repeated failure should not change state")
	}
	broken, err := svc.BrokenLinks(ctx, admin, 0, 0)
	if err != nil || broken.Total != 1 || broken.Documents[0].ID != ids[0] {
		t.Fatalf("broken links = %+v, %v", broken, err)
	}

	if err := svc.IgnoreLink(ctx, admin, ids[0]); err != nil {
		t.Fatal(err)
	}
	if changed, _ := svc.RecordLinkCheck(ctx, ids[0], true); changed {
		t.Fatal("ignored link changed state")
	}
	if targets, _ = svc.LinkTargets(ctx); len(targets) != 1 || targets[0].DocumentID != ids[1] {
		t.Fatalf("ignored link still checked: %v", targets)
	}

	fixed, err := svc.FixLink(ctx, admin, ids[0], "https://c.example")
	if err != nil || fixed.BrokenLink != catalog.LinkNotBroken || fixed.Link != "https://c.example" {
		t.Fatalf("fix link: %+v %v", fixed, err)
	}
}

func TestDeleteTagReindexesTaggedDocuments(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	excluded := slices.DeleteFunc(slices.Clone(catalog.DefaultExcludedFields), func(f string) bool { return f == "tags" })
	svc, _ := newService(t, store, excluded)

	in := book("Rivers")
	in.Tags = []string{"Salmon", "salmon ", "Trout"}
	d, err := svc.Create(ctx, admin, in)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(d.Tags, []string{"Salmon", "Trout"}) {
		t.Fatalf("tags = %v", d.Tags)
	}
	if got := postings(t, store, "salmon"); !slices.Equal(got, []int64{d.ID}) {
		t.Fatalf("postings(salmon) = %v", got)
	}

	tags, _ := svc.Tags(ctx)
	var salmon int64
	for _, tg := range tags {
		if tg.Name == "Salmon" {
			salmon = tg.ID
		}
	}
	if err := svc.DeleteTag(ctx, admin, salmon); err != nil {
		t.Fatal(err)
	}
	if got := postings(t, store, "salmon"); len(got) != 0 {
		t.Fatalf("salmon still indexed: %v", got)
	}
	got, _ := svc.Get(ctx, admin, d.ID)
	if !slices.Equal(got.Tags, []string{"Trout"}) {
		t.Fatalf("tags after delete = %v", got.Tags)
	}
	assertConsistent(t, svc)

	if err := svc.DeleteTag(ctx, admin, salmon); !errors.Is(err, apperrors.ErrTagNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}

func TestDraftFromSuggestion(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc, _ := newService(t, store, nil)

	if _, err := svc.Suggest(ctx, catalog.Suggestion{}); apperrors.HTTPStatusCode(err) != 400 {
		t.Fatalf("blank suggestion: %v", err)
	}
	sg, err := svc.Suggest(ctx, catalog.Suggestion{Title: "Field guide to mosses", Link: "https://moss.example"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Suggestions(ctx, alice); apperrors.HTTPStatusCode(err) != 403 {
		t.Fatalf("contributor listing suggestions: %v", err)
	}

	d, err := svc.DraftFromSuggestion(ctx, admin, sg.ID, catalog.DocTypeOther)
	if err != nil {
		t.Fatal(err)
	}
	if d.Status != catalog.StatusDraft || d.OtherType != SuggestedOtherType || d.Link != sg.Link {
		t.Fatalf("draft = %+v", d)
	}
	if got := postings(t, store, "moss"); !slices.Equal(got, []int64{d.ID}) {
		t.Fatalf("postings(moss) = %v", got)
	}
	if _, err := svc.Suggestion(ctx, admin, sg.ID); !errors.Is(err, apperrors.ErrSuggestionNotFound) {
		t.Fatalf("suggestion not deleted: %v", err)
	}
}

func TestSavedDocuments(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, memstore.New(), nil)

	pub := book("Public")
	pub.Status = catalog.StatusPublished
	p, _ := svc.Create(ctx, admin, pub)
	draft, _ := svc.Create(ctx, alice, book("Private"))

	if err := svc.Save(ctx, catalog.Actor{}, p.ID); apperrors.HTTPStatusCode(err) != 401 {
		t.Fatalf("anonymous save: %v", err)
	}
	if err := svc.Save(ctx, carol, draft.ID); apperrors.HTTPStatusCode(err) != 404 {
		t.Fatalf("saving a hidden draft: %v", err)
	}
	if err := svc.Save(ctx, carol, p.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.Save(ctx, carol, p.ID); err != nil {
		t.Fatalf("second save: %v", err)
	}
	saved, err := svc.SavedDocuments(ctx, carol)
	if err != nil || len(saved) != 1 || saved[0].Document.ID != p.ID {
		t.Fatalf("saved = %+v, %v", saved, err)
	}
	if err := svc.Unsave(ctx, carol, p.ID); err != nil {
		t.Fatal(err)
	}
	if saved, _ = svc.SavedDocuments(ctx, carol); len(saved) != 0 {
		t.Fatalf("saved after unsave = %+v", saved)
	}
}

type failingDeletes struct{ catalog.DocumentRepository }

func (failingDeletes) Delete(context.Context, int64) error { return errors.New("disk full") }

type failingRepos struct{ catalog.Repositories }

func (r failingRepos) Documents() catalog.DocumentRepository {
	return failingDeletes{r.Repositories.Documents()}
}

type failingStore struct{ *memstore.Store }

func (s failingStore) Do(ctx context.Context, fn func(catalog.Repositories) error) error {
	return s.Store.Do(ctx, func(r catalog.Repositories) error { return fn(failingRepos{r}) })
}

func TestFailedWriteLeavesIndexUntouched(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc, _ := newService(t, store, nil)
	d, err := svc.Create(ctx, admin, book("Cats and dogs"))
	if err != nil {
		t.Fatal(err)
	}

	broken, _ := newService(t, failingStore{store}, nil)
	if err := broken.Delete(ctx, admin, d.ID); err == nil {
		t.Fatal("expected delete to fail")
	}
	if got := postings(t, store, "dog"); !slices.Equal(got, []int64{d.ID}) {
		t.Fatalf("postings rolled back incorrectly: %v", got)
	}
	if _, err := svc.Get(ctx, admin, d.ID); err != nil {
		t.Fatalf("document lost: %v", err)
	}
	assertConsistent(t, svc)
}

func TestLargeDescriptionIsIndexed(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc, _ := newService(t, store, nil)

	in := book("Hydrology annual")
	in.Description = strings.Repeat("reservoir sediment ", 3700) + "zebra"
	if len(in.Description) < 70000 {
		t.Fatalf("description only %d bytes", len(in.Description))
	}
	d, err := svc.Create(ctx, admin, in)
	if err != nil {
		t.Fatal(err)
	}
	reservoir := svc.tokenizer.Normalize("reservoir")[0]
	if got := d.TermFrequencies[reservoir]; got != 3700 {
		t.Fatalf("%s frequency = %d", reservoir, got)
	}
	for _, term := range svc.tokenizer.Normalize("hydrology zebra") {
		if got := postings(t, store, term); !slices.Equal(got, []int64{d.ID}) {
			t.Fatalf("postings[%s] = %v", term, got)
		}
	}

	res, err := executor.New(store, nil, nil).Execute(ctx, executor.Query{Text: "zebra", Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalHits != 1 || res.Hits[0].Document.ID != d.ID {
		t.Fatalf("search = %+v", res)
	}
	assertConsistent(t, svc)
}

func TestReindexRecomputesWithNewExclusions(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc, _ := newService(t, store, nil)
	if _, err := svc.Create(ctx, alice, book("Cats")); err != nil {
		t.Fatal(err)
	}
	poster := svc.tokenizer.Normalize(alice.Name)[0]
	if got := postings(t, store, poster); len(got) != 0 {
		t.Fatalf("poster indexed under default exclusions: %v", got)
	}

	wide, _ := newService(t, store, []string{})
	if _, err := wide.Reindex(ctx, alice, true); apperrors.HTTPStatusCode(err) != 403 {
		t.Fatalf("contributor reindex: %v", err)
	}
	stats, err := wide.Reindex(ctx, admin, true)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Documents != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if got := postings(t, store, poster); len(got) != 1 {
		t.Fatalf("poster not indexed after recompute: %v", got)
	}
	assertConsistent(t, wide)
}

func TestImportAndExportCSV(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc, _ := newService(t, store, nil)

	existing, err := svc.Create(ctx, admin, book("Old title"))
	if err != nil {
		t.Fatal(err)
	}

	var src strings.Builder
	src.WriteString("Id,Title,Author First Name,Author Last Name,Publication Month,Publication Year,Document Status,Tags\n")
	src.WriteString(",Example,,,,,,\n")
	src.WriteString(",Glaciers,Ann,Lee,March,1999,,\"ice, climate\"\n")
	src.WriteString(strconv.FormatInt(existing.ID, 10) + ",New title,,,,,draft,\n")
	src.WriteString("9999,Unknown id,,,,,,\n")

	res, err := svc.ImportCSV(ctx, admin, strings.NewReader(src.String()), catalog.DocTypeBook)
	if err != nil {
		t.Fatal(err)
	}
	if res.Created != 2 || res.Updated != 1 {
		t.Fatalf("result = %+v", res)
	}
	got, _ := svc.Get(ctx, admin, existing.ID)
	if got.Title != "New title" || got.Status != catalog.StatusDraft {
		t.Fatalf("update in place: %+v", got)
	}
	page, _ := store.Documents().List(ctx, catalog.ListOptions{Filters: catalog.Filters{Statuses: []catalog.Status{catalog.StatusPublished}}})
	if page.Total != 2 {
		t.Fatalf("blank status should import as published, got %d published", page.Total)
	}
	assertConsistent(t, svc)

	var out bytes.Buffer
	n, err := svc.ExportCSV(ctx, admin, &out, catalog.DocTypeBook)
	if err != nil || n != 3 {
		t.Fatalf("export: %d %v", n, err)
	}
	if !strings.Contains(out.String(), "Glaciers,Ann,Lee,,,,,,,March,1999") {
		t.Fatalf("export missing row:\n%s", out.String())
	}

	bad := "Id,Title,Publication Year\n,Broken,not-a-year\n"
	if _, err := svc.ImportCSV(ctx, admin, strings.NewReader(bad), catalog.DocTypeBook); !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("bad row error = %v", err)
	}
}
