package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nvoss/amazon-shoptools/internal/models"
)

// Listing parses a search results page into product summaries. Cards that
// lack both a title and a product link are skipped; a malformed card never
// fails the whole page. Fields that cannot be read stay nil rather than
// carrying fabricated zero values.
func Listing(html, baseURL string) ([]models.ProductSummary, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	var (
		products []models.ProductSummary
		seen     = make(map[string]bool)
	)

	doc.Find("div[data-component-type='s-search-result']").Each(func(i int, card *goquery.Selection) {
		p, ok := parseCard(card, baseURL)
		if !ok {
			return
		}

		// Dedup is best effort: it only applies when the identifier could be
		// recovered.
		if p.ASIN != "" {
			if seen[p.ASIN] {
				return
			}
			seen[p.ASIN] = true
		}

		products = append(products, p)
	})

	return products, nil
}

func parseCard(card *goquery.Selection, baseURL string) (models.ProductSummary, bool) {
	var p models.ProductSummary

	p.Title = strings.TrimSpace(card.Find("h2 a span").First().Text())
	if p.Title == "" {
		p.Title = strings.TrimSpace(card.Find("h2 span").First().Text())
	}

	if href, ok := card.Find("h2 a").First().Attr("href"); ok {
		p.URL = absoluteURL(baseURL, href)
	}
	if p.URL == "" {
		if href, ok := card.Find("a.a-link-normal").First().Attr("href"); ok {
			p.URL = absoluteURL(baseURL, href)
		}
	}

	if p.Title == "" || p.URL == "" {
		return p, false
	}

	p.ASIN, _ = card.Attr("data-asin")
	if p.ASIN == "" {
		p.ASIN = ASINFromURL(p.URL)
	}

	if v, ok := ParsePrice(card.Find(".a-price .a-offscreen").First().Text()); ok {
		p.Price = models.Float64(v)
	}

	ratingText := card.Find(".a-icon-star-small .a-icon-alt").First().Text()
	if ratingText == "" {
		ratingText = card.Find("i.a-icon-star .a-icon-alt").First().Text()
	}
	if v, ok := ParseRating(ratingText); ok {
		p.Rating = models.Float64(v)
	}

	if v, ok := ParseCount(card.Find("span.a-size-base.s-underline-text").First().Text()); ok {
		p.ReviewCount = models.Int(v)
	}

	// Prime badge presence is only meaningful when the badge markup exists;
	// its absence leaves eligibility unknown.
	if card.Find("i.a-icon-prime").Length() > 0 {
		p.PrimeEligible = models.Bool(true)
	}

	return p, true
}

func absoluteURL(baseURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return strings.TrimSuffix(baseURL, "/") + "/" + strings.TrimPrefix(href, "/")
}
