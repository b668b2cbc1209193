package query

import "fmt"

// SortOrder enumerates the supported result orderings.
type SortOrder string

const (
	SortRelevance  SortOrder = "relevance"
	SortPriceAsc   SortOrder = "price-asc"
	SortPriceDesc  SortOrder = "price-desc"
	SortReviewRank SortOrder = "review-rank"
	SortNewest     SortOrder = "newest"
)

// Condition enumerates the supported product-condition filters.
type Condition string

const (
	CondNew         Condition = "new"
	CondUsed        Condition = "used"
	CondRefurbished Condition = "refurbished"
	CondRenewed     Condition = "renewed"
)

// FilterSet holds the semantic search constraints for one query. Unset fields
// are omitted from translation; a set field with an unsupported value fails
// validation before any navigation happens.
//
// Brands are OR-combined (any listed brand matches), Features are AND-combined
// (every listed feature must match). That asymmetry mirrors how the target
// site interprets the corresponding query tokens.
type FilterSet struct {
	PriceMin     *float64  `json:"price_min,omitempty"`
	PriceMax     *float64  `json:"price_max,omitempty"`
	PrimeOnly    bool      `json:"prime_only,omitempty"`
	Brands       []string  `json:"brand,omitempty"`
	Features     []string  `json:"features,omitempty"`
	MinRating    *int      `json:"min_rating,omitempty"`
	SortBy       SortOrder `json:"sort_by,omitempty"`
	Deals        bool      `json:"deals,omitempty"`
	DiscountOnly bool      `json:"discount_only,omitempty"`
	Category     string    `json:"category,omitempty"`
	Condition    Condition `json:"condition,omitempty"`
}

// ValidationError reports a recognized filter key carrying a value outside
// its domain. It is always surfaced before any network side effect.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Empty reports whether no filter is set at all. An empty set translates to
// an empty fragment and skips the filtered navigation pass entirely.
func (f FilterSet) Empty() bool {
	return f.PriceMin == nil && f.PriceMax == nil && !f.PrimeOnly &&
		len(f.Brands) == 0 && len(f.Features) == 0 && f.MinRating == nil &&
		f.SortBy == "" && !f.Deals && !f.DiscountOnly &&
		f.Category == "" && f.Condition == ""
}

func (f FilterSet) Validate() error {
	if f.PriceMin != nil && *f.PriceMin < 0 {
		return &ValidationError{Field: "price_min", Reason: "must not be negative"}
	}
	if f.PriceMax != nil && *f.PriceMax < 0 {
		return &ValidationError{Field: "price_max", Reason: "must not be negative"}
	}
	if f.PriceMin != nil && f.PriceMax != nil && *f.PriceMin > *f.PriceMax {
		return &ValidationError{Field: "price_min", Reason: "exceeds price_max"}
	}

	if f.MinRating != nil && (*f.MinRating < 1 || *f.MinRating > 5) {
		return &ValidationError{Field: "min_rating", Reason: "must be between 1 and 5"}
	}

	switch f.SortBy {
	case "", SortRelevance, SortPriceAsc, SortPriceDesc, SortReviewRank, SortNewest:
	default:
		return &ValidationError{Field: "sort_by", Reason: fmt.Sprintf("unknown sort order %q", f.SortBy)}
	}

	switch f.Condition {
	case "", CondNew, CondUsed, CondRefurbished, CondRenewed:
	default:
		return &ValidationError{Field: "condition", Reason: fmt.Sprintf("unknown condition %q", f.Condition)}
	}

	return nil
}
