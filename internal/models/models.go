package models

// ProductSummary is one entry of a search results page. Price, rating and
// review count are pointers because listing cards render them inconsistently;
// a nil field means the page did not expose a parseable value.
type ProductSummary struct {
	Title          string   `json:"title"`
	URL            string   `json:"url"`
	ASIN           string   `json:"asin,omitempty"`
	Price          *float64 `json:"price,omitempty"`
	PrimeEligible  *bool    `json:"prime_eligible,omitempty"`
	Rating         *float64 `json:"rating,omitempty"`
	ReviewCount    *int     `json:"review_count,omitempty"`
	DealType       string   `json:"deal_type,omitempty"`
	BestsellerRank string   `json:"bestseller_rank,omitempty"`
}

// ProductDetail is the full record extracted from a product page.
type ProductDetail struct {
	ASIN           string            `json:"asin,omitempty"`
	Title          string            `json:"title"`
	URL            string            `json:"url"`
	Price          *float64          `json:"price,omitempty"`
	Rating         *float64          `json:"rating,omitempty"`
	ReviewCount    *int              `json:"review_count,omitempty"`
	PrimeEligible  bool              `json:"prime_eligible"`
	Availability   string            `json:"availability,omitempty"`
	Description    string            `json:"description,omitempty"`
	Features       []string          `json:"features,omitempty"`
	Specifications map[string]string `json:"specifications,omitempty"`
}

type Review struct {
	Rating float64 `json:"rating"`
	Text   string  `json:"text"`
}

type ComparisonResult struct {
	Products []ProductDetail   `json:"products"`
	Summary  ComparisonSummary `json:"summary"`
}

type ComparisonSummary struct {
	PriceRange    PriceRange `json:"price_range"`
	HighestRated  string     `json:"highest_rated"`
	TotalCompared int        `json:"total_compared"`
}

// PriceRange bounds are nil when none of the compared products carried a price.
type PriceRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

func Float64(v float64) *float64 { return &v }

func Int(v int) *int { return &v }

func Bool(v bool) *bool { return &v }
