package query

import (
	"fmt"
	"net/url"
	"strings"
)

// Token values below are the target site's own refinement grammar. They are a
// wire contract: the site's parser consumes them byte for byte, so they must
// not be re-encoded or reordered ad hoc.
const (
	tokenPrime    = "p_85:2470955011"
	tokenDealType = "p_n_deal_type:23566065011"
)

var ratingBins = map[int]string{
	1: "p_72:1248882011",
	2: "p_72:1248883011",
	3: "p_72:1248884011",
	4: "p_72:1248885011",
	// The site offers no 5-star-only bin; a floor of 5 maps to the 4+ bin,
	// the narrowest refinement it accepts.
	5: "p_72:1248885011",
}

var conditionBins = map[Condition]string{
	CondNew:         "p_n_condition-type:6461716011",
	CondUsed:        "p_n_condition-type:6461718011",
	CondRefurbished: "p_n_condition-type:6461717011",
	CondRenewed:     "p_n_condition-type:16349437011",
}

var sortParams = map[SortOrder]string{
	SortRelevance:  "relevancerank",
	SortPriceAsc:   "price-asc-rank",
	SortPriceDesc:  "price-desc-rank",
	SortReviewRank: "review-rank",
	SortNewest:     "date-desc-rank",
}

// Translate maps the filter set to the site's `rh=` refinement fragment.
// Pure and deterministic: tokens are emitted in a fixed canonical order
// (price, prime, brand, rating, deal, condition, department, features) and
// joined with commas, so equal filter sets always produce byte-identical
// fragments. An empty result means no refinement token applies.
func (f FilterSet) Translate() string {
	var tokens []string

	// Exactly one price token regardless of which bounds are set. The site
	// encodes prices in cents.
	switch {
	case f.PriceMin != nil && f.PriceMax != nil:
		tokens = append(tokens, fmt.Sprintf("p_36:%d-%d", cents(*f.PriceMin), cents(*f.PriceMax)))
	case f.PriceMin != nil:
		tokens = append(tokens, fmt.Sprintf("p_36:%d-", cents(*f.PriceMin)))
	case f.PriceMax != nil:
		tokens = append(tokens, fmt.Sprintf("p_36:-%d", cents(*f.PriceMax)))
	}

	if f.PrimeOnly {
		tokens = append(tokens, tokenPrime)
	}

	// Brands are OR-combined into a single token.
	if len(f.Brands) > 0 {
		parts := make([]string, len(f.Brands))
		for i, b := range f.Brands {
			parts[i] = plusEscape(b)
		}
		tokens = append(tokens, "p_89:"+strings.Join(parts, "|"))
	}

	if f.MinRating != nil {
		if bin, ok := ratingBins[*f.MinRating]; ok {
			tokens = append(tokens, bin)
		}
	}

	// Deals and discount-only share one refinement; emit it once even when
	// both flags are set.
	if f.Deals || f.DiscountOnly {
		tokens = append(tokens, tokenDealType)
	}

	if f.Condition != "" {
		if bin, ok := conditionBins[f.Condition]; ok {
			tokens = append(tokens, bin)
		}
	}

	if f.Category != "" {
		tokens = append(tokens, "n:"+plusEscape(f.Category))
	}

	// Features are AND-combined: one token per feature, input order.
	for _, feat := range f.Features {
		tokens = append(tokens, "p_n_feature_browse-bin:"+plusEscape(feat))
	}

	return strings.Join(tokens, ",")
}

// SortParam returns the `s=` query value for the configured ordering, or ""
// when no ordering is set.
func (f FilterSet) SortParam() string {
	if f.SortBy == "" {
		return ""
	}
	return sortParams[f.SortBy]
}

// SearchURL builds `<base>/s?k=<term>[&s=<sort>][&rh=<tokens>]`.
func SearchURL(base, term string, f FilterSet) string {
	var b strings.Builder
	b.WriteString(strings.TrimSuffix(base, "/"))
	b.WriteString("/s?k=")
	b.WriteString(url.QueryEscape(term))

	if s := f.SortParam(); s != "" {
		b.WriteString("&s=")
		b.WriteString(s)
	}

	if rh := f.Translate(); rh != "" {
		b.WriteString("&rh=")
		b.WriteString(rh)
	}

	return b.String()
}

// DetailURL builds `<base>/dp/<asin>`.
func DetailURL(base, asin string) string {
	return strings.TrimSuffix(base, "/") + "/dp/" + asin
}

func cents(v float64) int {
	return int(v * 100)
}

func plusEscape(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), " ", "+")
}
