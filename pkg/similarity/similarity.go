// Package similarity implements incident-to-incident similarity scoring:
// a weighted Jaccard blend over title tokens, description tokens, and
// affected-service sets.
package similarity

import (
	"sort"
	"strings"
	"unicode"

	"github.com/codeready-toolchain/smartrecover/pkg/models"
)

// Component weights for the blended incident similarity score.
const (
	titleWeight       = 0.4
	descriptionWeight = 0.4
	servicesWeight    = 0.2
)

// stopwords dropped during token extraction.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "has": {}, "he": {}, "in": {}, "is": {},
	"it": {}, "its": {}, "of": {}, "on": {}, "that": {}, "the": {}, "to": {},
	"was": {}, "will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {}, "who": {},
	"which": {}, "why": {}, "how": {},
}

// Tokens extracts the keyword set from free text: lowercase, split on
// non-alphanumeric runs, drop stopwords and tokens shorter than 3 chars.
func Tokens(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(word) < 3 {
			continue
		}
		if _, ok := stopwords[word]; ok {
			continue
		}
		tokens[word] = struct{}{}
	}
	return tokens
}

// Jaccard returns |A ∩ B| / |A ∪ B|, or 0 when both sets are empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// TextSimilarity scores two free-text strings by keyword-set Jaccard.
func TextSimilarity(a, b string) float64 {
	return Jaccard(Tokens(a), Tokens(b))
}

// ServiceSimilarity scores two service lists by set Jaccard. Order and
// duplicates are not significant.
func ServiceSimilarity(a, b []string) float64 {
	return Jaccard(toSet(a), toSet(b))
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, s := range items {
		set[s] = struct{}{}
	}
	return set
}

// IncidentSimilarity blends title, description, and affected-service
// similarity into one score in [0,1].
func IncidentSimilarity(a, b *models.Incident) float64 {
	return titleWeight*TextSimilarity(a.Title, b.Title) +
		descriptionWeight*TextSimilarity(a.Description, b.Description) +
		servicesWeight*ServiceSimilarity(a.AffectedServices, b.AffectedServices)
}

// Match pairs a candidate incident with its similarity to the target.
type Match struct {
	Incident *models.Incident
	Score    float64
}

// FindSimilar ranks resolved incidents by similarity to the target.
// The target itself and non-resolved candidates are never returned.
// Ties are broken by incident ID ascending so results are deterministic.
func FindSimilar(target *models.Incident, candidates []*models.Incident, threshold float64, maxResults int) []Match {
	var matches []Match
	for _, cand := range candidates {
		if cand.ID == target.ID {
			continue
		}
		if cand.Status != models.StatusResolved {
			continue
		}
		score := IncidentSimilarity(target, cand)
		if score >= threshold {
			matches = append(matches, Match{Incident: cand, Score: score})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Incident.ID < matches[j].Incident.ID
	})
	if maxResults > 0 && len(matches) > maxResults {
		matches = matches[:maxResults]
	}
	return matches
}
