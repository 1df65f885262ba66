package curation

import (
	"strings"

	"ChartCrime/internal/domain/models"
	"ChartCrime/pkg/util"
)

// Rule admits an entry into Category when its title contains one of Keywords
// and its abs_r is strictly above MinAbsR. An empty keyword list matches every
// title.
type Rule struct {
	Category      models.Category
	Keywords      []string
	CaseSensitive bool
	MinAbsR       float64
}

// Matches reports whether the rule admits e.
func (r Rule) Matches(e models.CorrelationResult) bool {
	if !(e.AbsR > r.MinAbsR) {
		return false
	}
	if len(r.Keywords) == 0 {
		return true
	}
	title := e.Title
	if !r.CaseSensitive {
		title = strings.ToLower(title)
	}
	for _, kw := range r.Keywords {
		if !r.CaseSensitive {
			kw = strings.ToLower(kw)
		}
		if strings.Contains(title, kw) {
			return true
		}
	}
	return false
}

// FamilyCap limits how many entries whose title contains any of Patterns
// survive within a category.
type FamilyCap struct {
	Name     string
	Patterns []string
	Max      int
}

func (c FamilyCap) matches(title string) bool {
	return util.ContainsAny(title, c.Patterns)
}

// Policy is the full curation configuration. Rules are evaluated in order and
// the first match wins.
type Policy struct {
	MinAligned int
	Rules      []Rule
	// Caps apply per category, in order. An entry counts against every
	// matching cap until one is exceeded.
	Caps map[models.Category][]FamilyCap
	// Excluded drops entries of a category whose title contains any pattern,
	// for families already represented elsewhere.
	Excluded map[models.Category][]string
}

// Thresholds are the tunable numbers of the default policy.
type Thresholds struct {
	MinAligned   int
	FunnyMinAbsR float64
	FinMinAbsR   float64
	OtherMinAbsR float64
	BofACap      int
	VolCap       int
}

// DefaultThresholds returns the reference tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinAligned:   20,
		FunnyMinAbsR: 0.15,
		FinMinAbsR:   0.10,
		OtherMinAbsR: 0.30,
		BofACap:      5,
		VolCap:       3,
	}
}

// DefaultPolicy builds the funny/financial/other policy around t.
func DefaultPolicy(t Thresholds) Policy {
	return Policy{
		MinAligned: t.MinAligned,
		Rules: []Rule{
			{Category: models.CategoryFunny, Keywords: FunnyKeywords(), MinAbsR: t.FunnyMinAbsR},
			{Category: models.CategoryFinancial, Keywords: FinancialKeywords(), CaseSensitive: true, MinAbsR: t.FinMinAbsR},
			{Category: models.CategoryOther, MinAbsR: t.OtherMinAbsR},
		},
		Caps: map[models.Category][]FamilyCap{
			models.CategoryFinancial: {
				{Name: "ice-bofa", Patterns: []string{"ICE BofA"}, Max: t.BofACap},
				{Name: "volatility", Patterns: []string{"CBOE", "VIX"}, Max: t.VolCap},
			},
		},
		Excluded: map[models.Category][]string{
			models.CategoryOther: {"ICE BofA", "CBOE"},
		},
	}
}

// FunnyKeywords are matched case-insensitively; the sector, region and
// job-market series whose co-movement with equities is entertaining.
func FunnyKeywords() []string {
	return []string{
		"indeed", "job posting", "beauty", "wellness", "therapy",
		"nursing", "pharmacy", "coffee", "bitcoin", "crypto",
		"loading", "stocking", "installation", "maintenance",
		"scientific research", "real estate", "software development",
		"marketing", "insurance", "media", "human resources",
		"oregon", "west virginia", "tennessee", "maine",
		"australia", "germany", "france", "united kingdom", "canada",
	}
}

// FinancialKeywords are matched case-sensitively.
func FinancialKeywords() []string {
	return []string{
		"VIX",
		"High Yield Index Option-Adjusted Spread",
		"Policy Rate Uncertainty",
		"Breakeven Inflation",
		"10-Year Treasury",
		"Dollar Index",
		"Gold",
		"Nikkei",
		"SOFR",
		"Federal Funds",
		"Mortgage",
		"Swap",
	}
}
