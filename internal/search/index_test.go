package search

import (
	"testing"
)

func newTestIndex(t *testing.T, entries ...Entry) *Index {
	t.Helper()
	idx, err := NewIndex()
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	for _, e := range entries {
		if err := idx.Put(e); err != nil {
			t.Fatalf("Put %q: %v", e.Title, err)
		}
	}
	return idx
}

func TestIndex_PutAndCount(t *testing.T) {
	idx := newTestIndex(t,
		Entry{Title: "Dune", Author: "Frank Herbert"},
		Entry{Title: "Emma", Author: "Jane Austen"},
	)
	if n := idx.Count(); n != 2 {
		t.Fatalf("expected 2 entries, got %d", n)
	}

	// Re-putting the same title replaces, not duplicates.
	if err := idx.Put(Entry{Title: "Dune", Author: "F. Herbert", CoverURL: "c"}); err != nil {
		t.Fatalf("re-put: %v", err)
	}
	if n := idx.Count(); n != 2 {
		t.Fatalf("expected 2 entries after replace, got %d", n)
	}
}

func TestIndex_SearchByTitleAndAuthor(t *testing.T) {
	idx := newTestIndex(t,
		Entry{Title: "Dune", Author: "Frank Herbert"},
		Entry{Title: "Dune Messiah", Author: "Frank Herbert"},
		Entry{Title: "Emma", Author: "Jane Austen"},
	)

	hits, err := idx.Search("dune", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 dune hits, got %d (%+v)", len(hits), hits)
	}
	for _, h := range hits {
		if h.Author != "Frank Herbert" {
			t.Fatalf("hit lost its metadata: %+v", h)
		}
		if h.Score <= 0 {
			t.Fatalf("expected positive score: %+v", h)
		}
	}

	hits, err = idx.Search("austen", 10)
	if err != nil {
		t.Fatalf("author search: %v", err)
	}
	if len(hits) != 1 || hits[0].Title != "Emma" {
		t.Fatalf("expected Emma by author, got %+v", hits)
	}
}

func TestIndex_SearchLimitAndMiss(t *testing.T) {
	idx := newTestIndex(t,
		Entry{Title: "Dune", Author: "Frank Herbert"},
		Entry{Title: "Dune Messiah", Author: "Frank Herbert"},
	)

	hits, err := idx.Search("dune", 1)
	if err != nil || len(hits) != 1 {
		t.Fatalf("expected limit to apply, got %d err=%v", len(hits), err)
	}

	hits, err = idx.Search("zzzzmissing", 10)
	if err != nil {
		t.Fatalf("miss search: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected no hits, got %+v", hits)
	}
}

func TestIndex_PrefixMatch(t *testing.T) {
	idx := newTestIndex(t, Entry{Title: "Neuromancer", Author: "William Gibson"})

	hits, err := idx.Search("neuro", 10)
	if err != nil {
		t.Fatalf("prefix search: %v", err)
	}
	if len(hits) != 1 || hits[0].Title != "Neuromancer" {
		t.Fatalf("expected prefix hit, got %+v", hits)
	}
}
