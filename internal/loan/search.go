package loan

import "strings"

// Collateral filter values.
const (
	CollateralAny = ""
	CollateralYes = "yes"
	CollateralNo  = "no"
)

// SearchQuery filters the combined catalog. Zero values match everything.
type SearchQuery struct {
	Query       string  `json:"q"`
	Category    string  `json:"category"`
	Source      Source  `json:"source"`
	Persona     string  `json:"persona"`
	Collateral  string  `json:"collateral"`
	SubsidyOnly bool    `json:"subsidy_only"`
	MaxRate     float64 `json:"max_rate"`
	MinAmount   float64 `json:"min_amount"`
}

// Search returns every catalog product matching q, in catalog order.
func Search(q SearchQuery) []Product {
	text := strings.ToLower(strings.TrimSpace(q.Query))
	out := []Product{}
	for _, p := range Catalog() {
		if text != "" && !strings.Contains(searchable(p), text) {
			continue
		}
		if q.Category != "" && !strings.EqualFold(p.Category, q.Category) {
			continue
		}
		if q.Source != "" && p.Source != q.Source {
			continue
		}
		if q.Persona != "" && p.Persona != q.Persona {
			continue
		}
		if q.Collateral == CollateralNo && p.Collateral {
			continue
		}
		if q.Collateral == CollateralYes && !p.Collateral {
			continue
		}
		if q.SubsidyOnly && p.Subsidy == "" {
			continue
		}
		if q.MaxRate > 0 && p.InterestRange.Low() > q.MaxRate {
			continue
		}
		if q.MinAmount > 0 && p.AmountRange.High() < q.MinAmount {
			continue
		}
		out = append(out, p)
	}
	return out
}

func searchable(p Product) string {
	return strings.ToLower(strings.Join([]string{
		p.Name, p.Category, p.Description, strings.Join(p.Lenders, " "),
		p.Key, p.Persona, p.Subsidy,
	}, " "))
}
