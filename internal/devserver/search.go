package devserver

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"golang.org/x/text/unicode/norm"

	"github.com/trashtalkapp/trashtalk-client/internal/domain"
)

// searchLimit caps search_leagues results.
const searchLimit = 20

// LeagueIndex is an in-memory full-text index over league names and
// descriptions. It is rebuilt from the database on startup.
//
// Thread safety: all methods are safe for concurrent use.
type LeagueIndex struct {
	mu    sync.RWMutex
	index bleve.Index
}

// NewLeagueIndex creates an empty index.
func NewLeagueIndex() (*LeagueIndex, error) {
	index, err := bleve.NewMemOnly(buildLeagueMapping())
	if err != nil {
		return nil, fmt.Errorf("create league index: %w", err)
	}
	return &LeagueIndex{index: index}, nil
}

// buildLeagueMapping indexes names twice: as typed, and folded to plain
// lowercase ASCII so "Cafe" finds "Café".
func buildLeagueMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	nameField := bleve.NewTextFieldMapping()
	nameField.Analyzer = simple.Name
	docMapping.AddFieldMappingsAt("name", nameField)

	foldedField := bleve.NewTextFieldMapping()
	foldedField.Analyzer = simple.Name
	docMapping.AddFieldMappingsAt("folded", foldedField)

	descField := bleve.NewTextFieldMapping()
	descField.Analyzer = en.AnalyzerName
	docMapping.AddFieldMappingsAt("description", descField)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Index adds or replaces a league.
func (x *LeagueIndex) Index(l domain.League) error {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.index.Index(l.ID, map[string]any{
		"name":        l.Name,
		"folded":      fold(l.Name),
		"description": l.Description,
	})
}

// IndexAll indexes leagues in one batch.
func (x *LeagueIndex) IndexAll(leagues []domain.League) error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	batch := x.index.NewBatch()
	for _, l := range leagues {
		if err := batch.Index(l.ID, map[string]any{
			"name":        l.Name,
			"folded":      fold(l.Name),
			"description": l.Description,
		}); err != nil {
			return fmt.Errorf("batch index %s: %w", l.ID, err)
		}
	}
	return x.index.Batch(batch)
}

// Search returns the ids of leagues matching q, best match first.
func (x *LeagueIndex) Search(q string) ([]string, error) {
	folded := fold(q)
	if folded == "" {
		return []string{}, nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(buildLeagueQuery(q, folded), searchLimit, 0, false)
	res, err := x.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search leagues: %w", err)
	}

	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// Close releases the index.
func (x *LeagueIndex) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.index.Close()
}

func buildLeagueQuery(raw, folded string) query.Query {
	nameMatch := bleve.NewMatchQuery(raw)
	nameMatch.SetField("name")
	nameMatch.SetBoost(3.0)

	foldedMatch := bleve.NewMatchQuery(folded)
	foldedMatch.SetField("folded")
	foldedMatch.SetBoost(2.0)

	queries := []query.Query{nameMatch, foldedMatch}

	// Typo tolerance and type-ahead on the last word.
	words := strings.Fields(folded)
	last := words[len(words)-1]
	if len(last) >= 4 {
		fuzzy := bleve.NewFuzzyQuery(last)
		fuzzy.SetFuzziness(1)
		fuzzy.SetField("folded")
		fuzzy.SetBoost(0.8)
		queries = append(queries, fuzzy)
	}
	if len(last) >= 2 {
		prefix := bleve.NewPrefixQuery(last)
		prefix.SetField("folded")
		prefix.SetBoost(0.5)
		queries = append(queries, prefix)
	}

	descMatch := bleve.NewMatchQuery(raw)
	descMatch.SetField("description")
	descMatch.SetBoost(0.3)
	queries = append(queries, descMatch)

	return bleve.NewDisjunctionQuery(queries...)
}

// fold lowercases s and strips accents: "Café Olé" -> "cafe ole".
func fold(s string) string {
	s = norm.NFKD.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Mn, r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
