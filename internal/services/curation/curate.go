package curation

import (
	"sort"

	"ChartCrime/internal/domain/models"
	"ChartCrime/pkg/util"
)

// Curator turns the ranked result set into the rotation list.
type Curator struct {
	policy Policy
}

func NewCurator(p Policy) *Curator { return &Curator{policy: p} }

// Policy returns the curator's configuration.
func (c *Curator) Policy() Policy { return c.policy }

// Reliable keeps entries with at least min aligned samples.
func Reliable(in []models.CorrelationResult, min int) []models.CorrelationResult {
	out := make([]models.CorrelationResult, 0, len(in))
	for _, r := range in {
		if r.AlignedCount() >= min {
			out = append(out, r)
		}
	}
	return out
}

// Deduplicate keeps the first entry for each exact title, preserving order.
func Deduplicate(in []models.CorrelationResult) []models.CorrelationResult {
	seen := make(map[string]struct{}, len(in))
	out := make([]models.CorrelationResult, 0, len(in))
	for _, r := range in {
		if _, ok := seen[r.Title]; ok {
			continue
		}
		seen[r.Title] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Classify returns the category of the first matching rule.
func (c *Curator) Classify(r models.CorrelationResult) (models.Category, bool) {
	for _, rule := range c.policy.Rules {
		if rule.Matches(r) {
			return rule.Category, true
		}
	}
	return "", false
}

// Curate runs reliability filtering, title dedupe, classification, family
// caps and the final abs_r ranking. Empty input yields an empty list.
func (c *Curator) Curate(in []models.CorrelationResult) []models.CuratedEntry {
	deduped := Deduplicate(Reliable(in, c.policy.MinAligned))

	buckets := make(map[models.Category][]models.CorrelationResult)
	order := make([]models.Category, 0, len(c.policy.Rules))
	for _, rule := range c.policy.Rules {
		if _, ok := buckets[rule.Category]; !ok {
			buckets[rule.Category] = nil
			order = append(order, rule.Category)
		}
	}
	for _, r := range deduped {
		if cat, ok := c.Classify(r); ok {
			buckets[cat] = append(buckets[cat], r)
		}
	}

	out := make([]models.CuratedEntry, 0, len(deduped))
	for _, cat := range order {
		entries := buckets[cat]
		sortByStrength(entries)
		out = append(out, c.limit(cat, entries)...)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].AbsR > out[j].AbsR })
	return out
}

func (c *Curator) limit(cat models.Category, entries []models.CorrelationResult) []models.CuratedEntry {
	caps := c.policy.Caps[cat]
	excluded := c.policy.Excluded[cat]
	counts := make([]int, len(caps))

	out := make([]models.CuratedEntry, 0, len(entries))
next:
	for _, r := range entries {
		if util.ContainsAny(r.Title, excluded) {
			continue
		}
		for i, fc := range caps {
			if !fc.matches(r.Title) {
				continue
			}
			counts[i]++
			if counts[i] > fc.Max {
				continue next
			}
		}
		out = append(out, models.CuratedEntry{CorrelationResult: r, Category: cat})
	}
	return out
}

func sortByStrength(entries []models.CorrelationResult) {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].AbsR > entries[j].AbsR })
}
