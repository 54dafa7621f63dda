// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

// Package keywords turns free text into the term lists used for auto-linking,
// keyword routing and full-text queries.
package keywords

import (
	"regexp"
	"strings"
)

// MaxRouteKeywords caps the number of keywords Route returns.
const MaxRouteKeywords = 20

var (
	autoLinkToken = regexp.MustCompile(`[a-zA-Z0-9_-]+`)
	routeToken    = regexp.MustCompile(`[a-z0-9_-]+`)
	ftsToken      = regexp.MustCompile(`[a-zA-Z0-9_]+`)
)

var autoLinkStop = set(
	"the", "a", "an", "is", "are", "in", "for", "on", "with", "and", "or", "of", "to",
)

var routeStop = set(
	"the", "a", "an", "is", "are", "was", "were", "be", "been", "being",
	"have", "has", "had", "do", "does", "did", "will", "would", "could",
	"should", "may", "might", "can", "shall", "to", "of", "in", "for",
	"on", "with", "at", "by", "from", "as", "into", "about", "between",
	"through", "after", "before", "above", "below", "and", "or", "but",
	"not", "no", "nor", "so", "yet", "both", "either", "neither", "each",
	"every", "all", "any", "few", "more", "most", "other", "some", "such",
	"than", "too", "very", "just", "also", "how", "what", "which", "who",
	"whom", "this", "that", "these", "those", "my", "your", "his", "her",
	"its", "our", "their", "i", "me", "we", "us", "you", "he", "she", "it",
	"they", "them", "if", "then", "else", "when", "where", "why",
)

var ftsStop = set(
	"the", "a", "an", "is", "are", "was", "were", "be", "been", "being",
	"have", "has", "had", "do", "does", "did", "will", "would", "could",
	"should", "may", "might", "can", "shall", "to", "of", "in", "for",
	"on", "with", "at", "by", "from", "as", "into", "about", "and", "or",
	"but", "not", "no", "so", "yet", "i", "me", "we", "us", "you", "he",
	"she", "it", "they", "them", "my", "your", "his", "her", "its", "our",
	"their", "this", "that", "these", "those", "need", "want", "try",
)

// FTS5 operators; a bare one inside a query would change its meaning.
var ftsReserved = set("and", "or", "not", "near")

func set(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// AutoLink extracts the unique terms used to find nodes related to a new
// node. Order is not significant.
func AutoLink(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, tok := range autoLinkToken.FindAllString(text, -1) {
		w := strings.ToLower(tok)
		if len(w) <= 2 {
			continue
		}
		if _, stop := autoLinkStop[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// Route extracts routing keywords in first-seen order, at most
// MaxRouteKeywords of them.
func Route(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, w := range routeToken.FindAllString(strings.ToLower(text), -1) {
		if len(w) <= 2 {
			continue
		}
		if _, stop := routeStop[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
		if len(out) == MaxRouteKeywords {
			break
		}
	}
	return out
}

// Terms returns the searchable terms of a natural-language query.
func Terms(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, tok := range ftsToken.FindAllString(text, -1) {
		w := strings.ToLower(tok)
		if len(w) <= 2 {
			continue
		}
		if _, stop := ftsStop[w]; stop {
			continue
		}
		if _, reserved := ftsReserved[w]; reserved {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// FTSQuery converts a natural-language query into an FTS5 OR expression.
// It returns "" when no searchable term remains.
func FTSQuery(text string) string {
	return OrQuery(Terms(text))
}

// OrQuery quotes each term and joins them with OR.
func OrQuery(terms []string) string {
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ReplaceAll(t, `"`, `""`)
		if t == "" {
			continue
		}
		quoted = append(quoted, `"`+t+`"`)
	}
	return strings.Join(quoted, " OR ")
}
