package analytics

import (
	"strings"

	"ChartCrime/internal/domain/models"
)

// ExclusionFilter classifies market-linked series (securities, commodities,
// indexes, crypto) so they never reach scoring.
type ExclusionFilter struct {
	ids      map[string]struct{}
	keywords []string
}

// NewExclusionFilter builds a filter from an id denylist and title keywords.
// Keywords are matched case-insensitively as substrings.
func NewExclusionFilter(ids, keywords []string) *ExclusionFilter {
	f := &ExclusionFilter{
		ids:      make(map[string]struct{}, len(ids)),
		keywords: make([]string, 0, len(keywords)),
	}
	for _, id := range ids {
		f.ids[id] = struct{}{}
	}
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			f.keywords = append(f.keywords, kw)
		}
	}
	return f
}

// WithIDs returns a copy of f whose denylist also holds ids, e.g. the members
// of a category fetched at run time. f is left untouched.
func (f *ExclusionFilter) WithIDs(ids ...string) *ExclusionFilter {
	out := &ExclusionFilter{
		ids:      make(map[string]struct{}, len(f.ids)+len(ids)),
		keywords: f.keywords,
	}
	for id := range f.ids {
		out.ids[id] = struct{}{}
	}
	for _, id := range ids {
		out.ids[id] = struct{}{}
	}
	return out
}

// Size returns the number of denylisted ids.
func (f *ExclusionFilter) Size() int { return len(f.ids) }

// IsExcluded reports whether s is a market instrument.
func (f *ExclusionFilter) IsExcluded(s models.Series) bool {
	if _, ok := f.ids[s.ID]; ok {
		return true
	}
	title := strings.ToLower(s.Title)
	for _, kw := range f.keywords {
		if strings.Contains(title, kw) {
			return true
		}
	}
	return false
}

// Partition splits series into eligible and excluded, preserving input order.
func (f *ExclusionFilter) Partition(series []models.Series) (kept, excluded []models.Series) {
	kept = make([]models.Series, 0, len(series))
	for _, s := range series {
		if f.IsExcluded(s) {
			excluded = append(excluded, s)
			continue
		}
		kept = append(kept, s)
	}
	return kept, excluded
}

// DefaultExcludedKeywords lists title fragments naming traded instruments.
func DefaultExcludedKeywords() []string {
	return []string{
		// stock/security indexes and volatility
		"vix", "volatility index", "nikkei", "nasdaq", "dow jones",
		"russell 2000", "s&p 500", "s&p500",
		// crypto
		"bitcoin", "ethereum", "coinbase", "litecoin", "bitcoin cash",
		"crypto",
		// commodity spot prices
		"gold price", "silver price", "copper price", "oil price",
		"platinum price", "palladium price",
		"wheat price", "corn price", "soybean price",
		"lumber price", "cotton price", "coffee price",
		"cocoa price", "sugar price", "cattle price",
		"natural gas price", "gasoline price", "diesel price",
		"wti", "brent",
		"commodity index",
		// direct equity/security prices
		"stock price", "share price", "equity price",
		"total return index value",
	}
}

// DefaultExcludedIDs lists series known to be market prices that keyword
// matching misses.
func DefaultExcludedIDs() []string {
	return []string{
		// VIX and variants
		"VIXCLS", "VXNCLS", "VXDCLS", "VXVCLS", "RVXCLS",
		"VXGSCLS", "VXAPLCLS", "VXAZNCLS", "VXGOGCLS", "VXIBMCLS",
		"VXSLVCLS", "VXEWZCLS", "VXFXICLS", "VXEEMCLS", "VXGDXCLS",
		"VXUSCLS",
		"NIKKEI225",
		// crypto
		"CBBTCUSD", "CBETHUSD", "CBLTCUSD", "CBBCHUSD",
		// energy spot prices
		"DGASNYH", "DGASRGCG", "DCOILWTICO", "DCOILBRENTEU",
		"DHHNGSP", "DPROPANEMBTX",
		// precious metals
		"GOLDAMGBD228NLBM", "GOLDPMGBD228NLBM",
		"SLVPRUSD",
		// total return indexes
		"BAMLHYH0A3CMTRIV", "BAMLHYH0A0HYM2TRIV",
		"BAMLCC0A1AAATRIV", "BAMLCC0A0CMTRIV",
	}
}
