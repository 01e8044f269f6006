// Package search provides the book-search collaborator: an in-memory
// full-text index over catalog entries (title, author, cover URL) that
// supplies candidates for the create-listing flow. It wraps a Bleve
// mem-only index behind a small domain-specific API.
//
// Thread safety: all public methods are safe for concurrent use.
package search

import (
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Entry is one catalog record. Title doubles as the document id, matching
// the title-keyed book store.
type Entry struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	CoverURL string `json:"cover_url,omitempty"`
}

// Hit is a scored catalog match.
type Hit struct {
	Entry
	Score float64 `json:"score"`
}

// Index is the catalog search index. Construct with NewIndex; Close when done.
type Index struct {
	idx bleve.Index

	mu      sync.RWMutex
	entries map[string]Entry
}

// NewIndex creates an empty in-memory catalog index.
func NewIndex() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, err
	}
	return &Index{
		idx:     idx,
		entries: make(map[string]Entry),
	}, nil
}

// buildIndexMapping maps catalog entries for full-text search: English
// stemming on title and author; the cover URL is carried outside the index.
func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = en.AnalyzerName

	doc := bleve.NewDocumentMapping()

	titleField := bleve.NewTextFieldMapping()
	titleField.Analyzer = en.AnalyzerName
	doc.AddFieldMappingsAt("title", titleField)

	authorField := bleve.NewTextFieldMapping()
	authorField.Analyzer = en.AnalyzerName
	doc.AddFieldMappingsAt("author", authorField)

	coverField := bleve.NewTextFieldMapping()
	coverField.Index = false
	doc.AddFieldMappingsAt("cover_url", coverField)

	im.DefaultMapping = doc
	return im
}

// Put adds or replaces a catalog entry, keyed by its title.
func (i *Index) Put(e Entry) error {
	if e.Title == "" {
		return nil
	}
	if err := i.idx.Index(e.Title, e); err != nil {
		return err
	}
	i.mu.Lock()
	i.entries[e.Title] = e
	i.mu.Unlock()
	return nil
}

// Search returns up to limit candidates matching q, best first. Title
// matches outrank author matches; short prefixes still match so the lookup
// works while the user is typing.
func (i *Index) Search(q string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}

	titleMatch := bleve.NewMatchQuery(q)
	titleMatch.SetField("title")
	titleMatch.SetBoost(2.0)

	authorMatch := bleve.NewMatchQuery(q)
	authorMatch.SetField("author")

	titlePrefix := bleve.NewPrefixQuery(q)
	titlePrefix.SetField("title")

	req := bleve.NewSearchRequestOptions(
		bleve.NewDisjunctionQuery(titleMatch, authorMatch, titlePrefix),
		limit, 0, false,
	)

	res, err := i.idx.Search(req)
	if err != nil {
		return nil, err
	}

	i.mu.RLock()
	defer i.mu.RUnlock()
	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		e, ok := i.entries[h.ID]
		if !ok {
			continue
		}
		hits = append(hits, Hit{Entry: e, Score: h.Score})
	}
	return hits, nil
}

// Count returns the number of indexed catalog entries.
func (i *Index) Count() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.entries)
}

// Close releases the underlying index.
func (i *Index) Close() error {
	return i.idx.Close()
}
