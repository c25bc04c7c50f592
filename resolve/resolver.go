// Package resolve maps rendered diagram elements back to the metadata records
// generated alongside the diagram source. Identifiers and labels come from two
// independently generated artifacts, so matching is fuzzy and graduated:
// exact id, then exact label, then loose label compatibility.
package resolve

import (
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// NodeRecord describes one logical component, produced by the generative
// model in parallel with the diagram source. Records are immutable and only
// meaningful next to the diagram they were generated with.
type NodeRecord struct {
	ID                string   `json:"id"`
	Label             string   `json:"label"`
	Description       string   `json:"description"`
	Technologies      []string `json:"technologies"`
	RelatedComponents []string `json:"relatedComponents"`
}

// Match pairs a candidate record with its score and original list position.
// Ranking is stable: equal scores keep insertion order, so results are
// reproducible for a fixed record list.
type Match struct {
	Record NodeRecord
	Index  int
	Score  int
}

const (
	scoreIDExact    = 3
	scoreLabelExact = 2
	scoreLabelFuzzy = 1

	// minFuzzyLen is the minimum significant length of the shorter side in a
	// fuzzy comparison, keeping trivial substrings from colliding.
	minFuzzyLen = 4
)

// Resolve returns the single best-matching record for a clicked element, or
// nil when nothing matches. A miss is a normal outcome, not an error.
func Resolve(elementID, visibleLabel string, records []NodeRecord) *NodeRecord {
	matches := Rank(elementID, visibleLabel, records)
	if len(matches) == 0 {
		return nil
	}
	rec := matches[0].Record
	return &rec
}

// Rank scores every record against the query and returns the candidates in
// descending score order, ties broken by insertion order.
func Rank(elementID, visibleLabel string, records []NodeRecord) []Match {
	queryID := normalizeKey(demangleElementID(elementID))
	queryLabel := normalizeKey(visibleLabel)
	queryTokens := tokenize(visibleLabel)

	var matches []Match
	for i, rec := range records {
		score := 0
		switch {
		case queryID != "" && queryID == normalizeKey(rec.ID):
			score = scoreIDExact
		case queryLabel != "" && queryLabel == normalizeKey(rec.Label):
			score = scoreLabelExact
		case fuzzyLabelMatch(queryLabel, normalizeKey(rec.Label), queryTokens, tokenize(rec.Label)):
			score = scoreLabelFuzzy
		}
		if score > 0 {
			matches = append(matches, Match{Record: rec, Index: i, Score: score})
		}
	}
	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Score > matches[b].Score
	})
	return matches
}

// demangleElementID undoes the rendering engine's id decoration: a
// "flowchart-" prefix and a trailing "-<counter>" suffix are injected into
// the DOM ids of clickable elements and are not part of the source node id.
func demangleElementID(id string) string {
	s := strings.TrimSpace(id)
	s = strings.TrimPrefix(s, "flowchart-")
	if i := strings.LastIndexByte(s, '-'); i > 0 {
		if _, err := strconv.Atoi(s[i+1:]); err == nil {
			s = s[:i]
		}
	}
	return s
}

// normalizeKey folds a string down to its significant characters: lower-cased
// with quotes and every other non-alphanumeric rune removed.
func normalizeKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// tokenize splits on non-alphanumeric runs, lower-casing each token.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// fuzzyLabelMatch reports whether two labels are compatible enough to pair a
// clicked element with a record. Either one normalized label contains the
// other (shorter side at least minFuzzyLen), or the labels have the same
// token count and every token pair shares a prefix relationship, which is
// what lets "User DB" find "User Database".
func fuzzyLabelMatch(a, b string, aTokens, bTokens []string) bool {
	if a == "" || b == "" {
		return false
	}
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) >= minFuzzyLen && strings.Contains(longer, shorter) {
		return true
	}
	if len(shorter) < minFuzzyLen {
		return false
	}
	if len(aTokens) == 0 || len(aTokens) != len(bTokens) {
		return false
	}
	for i := range aTokens {
		if !strings.HasPrefix(aTokens[i], bTokens[i]) && !strings.HasPrefix(bTokens[i], aTokens[i]) {
			return false
		}
	}
	return true
}
