// Package search implements the client-side quick-search: a token scorer
// over an in-memory document set plus a debouncer for keystroke-driven
// queries.
package search

import (
	"regexp"
	"sort"
	"strings"
)

// Match tiers. An exact token match outranks a prefix match, which outranks
// a bare substring hit.
const (
	scoreExact     = 3.0
	scorePrefix    = 2.0
	scoreSubstring = 1.0

	weightTitle    = 2.0
	weightSubtitle = 1.0
)

// tokenPattern splits text into alphanumeric runs.
var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// Document is one searchable item, typically a record surfaced in the
// quick-search palette.
type Document struct {
	Type     string
	ID       string
	Title    string
	Subtitle string
}

// Result is a single hit with its relevance score.
type Result struct {
	Document Document
	Score    float64
}

// Searcher scores queries against a fixed document set. It is immutable
// after construction and safe for concurrent reads.
type Searcher struct {
	docs   []Document
	titles [][]string
	subs   [][]string
}

// NewSearcher tokenizes the documents up front.
func NewSearcher(docs []Document) *Searcher {
	s := &Searcher{
		docs:   docs,
		titles: make([][]string, len(docs)),
		subs:   make([][]string, len(docs)),
	}
	for i, doc := range docs {
		s.titles[i] = tokenize(doc.Title)
		s.subs[i] = tokenize(doc.Subtitle)
	}
	return s
}

// Search returns up to limit documents ranked by relevance. Every query
// token must match somewhere in a document for it to qualify; ties break on
// title, then id, so results are stable across runs.
func (s *Searcher) Search(query string, limit int) []Result {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return nil
	}

	var hits []Result
	for i, doc := range s.docs {
		score, ok := s.score(i, queryTokens)
		if !ok {
			continue
		}
		hits = append(hits, Result{Document: doc, Score: score})
	}

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		if hits[a].Document.Title != hits[b].Document.Title {
			return hits[a].Document.Title < hits[b].Document.Title
		}
		return hits[a].Document.ID < hits[b].Document.ID
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// score sums the best tier each query token reaches in either field. A
// token that matches nowhere disqualifies the document.
func (s *Searcher) score(i int, queryTokens []string) (float64, bool) {
	var total float64
	for _, q := range queryTokens {
		best := fieldScore(s.titles[i], q) * weightTitle
		if sub := fieldScore(s.subs[i], q) * weightSubtitle; sub > best {
			best = sub
		}
		if best == 0 {
			return 0, false
		}
		total += best
	}
	return total, true
}

func fieldScore(fieldTokens []string, q string) float64 {
	var best float64
	for _, tok := range fieldTokens {
		switch {
		case tok == q:
			return scoreExact
		case strings.HasPrefix(tok, q):
			if scorePrefix > best {
				best = scorePrefix
			}
		case strings.Contains(tok, q):
			if scoreSubstring > best {
				best = scoreSubstring
			}
		}
	}
	return best
}

// tokenize splits text into lowercase alphanumeric tokens.
func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}
