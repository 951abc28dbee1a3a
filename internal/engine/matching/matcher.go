// Package matching aligns line items across vendors into canonical item
// groups without relying on shared identifiers.
package matching

import (
	"fmt"
	"sort"

	"quote-engine/internal/models"

	"github.com/agnivade/levenshtein"
)

// DefaultThreshold is the minimum similarity for two lines to be grouped.
const DefaultThreshold = 0.6

// Item identifies one vendor line offered to the matcher.
type Item struct {
	Vendor      string
	Index       int
	Description string
}

// Group is one canonical item. It holds at most one line per vendor,
// ordered by vendor position in the batch.
type Group struct {
	Key         string
	Description string
	Members     []Item
}

func (g Group) Member(vendor string) (Item, bool) {
	for _, m := range g.Members {
		if m.Vendor == vendor {
			return m, true
		}
	}
	return Item{}, false
}

func (g Group) HasVendor(vendor string) bool {
	_, ok := g.Member(vendor)
	return ok
}

// Matcher clusters the lines of a batch. batch holds one slice per vendor
// in input order; the result must be deterministic for identical input.
type Matcher interface {
	Match(batch [][]Item) []Group
}

type Option func(*TokenMatcher)

// WithSimilarity swaps the scoring function.
func WithSimilarity(f SimilarityFunc) Option {
	return func(m *TokenMatcher) {
		m.similarity = f
	}
}

// TokenMatcher performs greedy threshold clustering over a pluggable
// similarity function.
type TokenMatcher struct {
	threshold  float64
	similarity SimilarityFunc
}

func NewTokenMatcher(threshold float64, opts ...Option) *TokenMatcher {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	m := &TokenMatcher{
		threshold:  threshold,
		similarity: TokenSimilarity,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *TokenMatcher) Threshold() float64 {
	return m.threshold
}

type bucket struct {
	members []Item
	norms   []string
	vendors map[string]struct{}
}

type candidate struct {
	group    int
	item     int
	score    float64
	distance int
}

func (m *TokenMatcher) Match(batch [][]Item) []Group {
	var buckets []*bucket

	for _, items := range batch {
		if len(items) == 0 {
			continue
		}
		vendor := items[0].Vendor

		norms := make([]string, len(items))
		for i, it := range items {
			norms[i] = Normalize(it.Description)
		}

		var cands []candidate
		for gi, b := range buckets {
			if _, taken := b.vendors[vendor]; taken {
				continue
			}
			for ii := range items {
				score, dist := m.best(b, norms[ii])
				if score >= m.threshold {
					cands = append(cands, candidate{group: gi, item: ii, score: score, distance: dist})
				}
			}
		}

		sort.SliceStable(cands, func(i, j int) bool {
			a, b := cands[i], cands[j]
			if a.score != b.score {
				return a.score > b.score
			}
			if a.distance != b.distance {
				return a.distance < b.distance
			}
			if a.group != b.group {
				return a.group < b.group
			}
			return a.item < b.item
		})

		usedGroup := make(map[int]bool)
		usedItem := make(map[int]bool)
		for _, c := range cands {
			if usedGroup[c.group] || usedItem[c.item] {
				continue
			}
			buckets[c.group].add(items[c.item], norms[c.item])
			usedGroup[c.group] = true
			usedItem[c.item] = true
		}

		for ii, it := range items {
			if usedItem[ii] {
				continue
			}
			b := &bucket{vendors: make(map[string]struct{})}
			b.add(it, norms[ii])
			buckets = append(buckets, b)
		}
	}

	return toGroups(buckets)
}

// best returns the highest similarity between norm and any member of b,
// with the edit distance to that member.
func (m *TokenMatcher) best(b *bucket, norm string) (float64, int) {
	bestScore := -1.0
	bestDist := 0
	for _, other := range b.norms {
		score := m.similarity(norm, other)
		dist := levenshtein.ComputeDistance(norm, other)
		if score > bestScore || (score == bestScore && dist < bestDist) {
			bestScore = score
			bestDist = dist
		}
	}
	return bestScore, bestDist
}

func (b *bucket) add(it Item, norm string) {
	b.members = append(b.members, it)
	b.norms = append(b.norms, norm)
	b.vendors[it.Vendor] = struct{}{}
}

func toGroups(buckets []*bucket) []Group {
	groups := make([]Group, 0, len(buckets))
	seen := make(map[string]int)
	for _, b := range buckets {
		key := b.norms[0]
		if key == "" {
			key = "item"
		}
		seen[key]++
		if n := seen[key]; n > 1 {
			key = fmt.Sprintf("%s#%d", key, n)
		}
		groups = append(groups, Group{
			Key:         key,
			Description: b.members[0].Description,
			Members:     b.members,
		})
	}
	return groups
}

// SameGroup reports whether two vendor lines were placed in one group.
func SameGroup(groups []Group, a, b Item) bool {
	for _, g := range groups {
		ma, okA := g.Member(a.Vendor)
		mb, okB := g.Member(b.Vendor)
		if okA && okB && ma.Index == a.Index && mb.Index == b.Index {
			return true
		}
	}
	return false
}

// MissingItemIssues raises a medium issue for every vendor absent from a
// group. vendors lists the vendors taking part in the comparison, in input
// order. Nothing is reported for a single vendor.
func MissingItemIssues(groups []Group, vendors []string, skip func(Group) bool) []models.Issue {
	if len(vendors) < 2 {
		return nil
	}

	var issues []models.Issue
	for _, g := range groups {
		if skip != nil && skip(g) {
			continue
		}
		present := make([]string, 0, len(g.Members))
		for _, m := range g.Members {
			present = append(present, m.Vendor)
		}
		for _, v := range vendors {
			if g.HasVendor(v) {
				continue
			}
			issues = append(issues, models.Issue{
				Severity:    models.SeverityMedium,
				Kind:        models.KindMissingItem,
				Vendor:      v,
				Description: fmt.Sprintf("no line matching %q quoted by other vendors", g.Description),
				Details: map[string]interface{}{
					"canonicalKey": g.Key,
					"quotedBy":     present,
				},
			})
		}
	}
	return issues
}
