package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nvoss/amazon-shoptools/internal/models"
)

// ExtractionError reports a page whose structure could not be read at all,
// e.g. a product page without a title element. Per-card parsing problems on
// listing pages are not errors; they only skip the card.
type ExtractionError struct {
	URL    string
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %s", e.URL, e.Reason)
}

// detailPriceSelectors are tried in order; product pages carry the price in
// different blocks depending on the offer type.
var detailPriceSelectors = []string{
	"#corePriceDisplay_desktop_feature_div .a-price .a-offscreen",
	"#corePrice_feature_div .a-price .a-offscreen",
	"span.a-price .a-offscreen",
	"#priceblock_ourprice",
	"#priceblock_dealprice",
}

// Detail parses a product page into a full product record. A page without a
// product title is treated as unreadable and returns an *ExtractionError.
func Detail(html, pageURL string) (*models.ProductDetail, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse product page: %w", err)
	}

	title := strings.TrimSpace(doc.Find("#productTitle").First().Text())
	if title == "" {
		return nil, &ExtractionError{URL: pageURL, Reason: "no product title found"}
	}

	d := &models.ProductDetail{
		Title: title,
		URL:   pageURL,
		ASIN:  ASINFromURL(pageURL),
	}

	for _, sel := range detailPriceSelectors {
		if v, ok := ParsePrice(doc.Find(sel).First().Text()); ok {
			d.Price = models.Float64(v)
			break
		}
	}

	ratingText, _ := doc.Find("#acrPopover").First().Attr("title")
	if ratingText == "" {
		ratingText = doc.Find("span[data-hook='rating-out-of-text']").First().Text()
	}
	if v, ok := ParseRating(ratingText); ok {
		d.Rating = models.Float64(v)
	}

	if v, ok := ParseCount(doc.Find("#acrCustomerReviewText").First().Text()); ok {
		d.ReviewCount = models.Int(v)
	}

	d.PrimeEligible = doc.Find("#primeBadge, i.a-icon-prime").Length() > 0

	d.Availability = strings.TrimSpace(doc.Find("#availability span").First().Text())
	d.Description = strings.TrimSpace(doc.Find("#productDescription p").First().Text())
	if d.Description == "" {
		d.Description = strings.TrimSpace(doc.Find("#productDescription").First().Text())
	}

	doc.Find("#feature-bullets li span.a-list-item").Each(func(i int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			d.Features = append(d.Features, text)
		}
	})

	d.Specifications = parseSpecTables(doc)

	return d, nil
}

func parseSpecTables(doc *goquery.Document) map[string]string {
	specs := make(map[string]string)

	doc.Find("#productDetails_techSpec_section_1 tr, #productDetails_detailBullets_sections1 tr").
		Each(func(i int, row *goquery.Selection) {
			key := strings.TrimSpace(row.Find("th").First().Text())
			value := strings.TrimSpace(row.Find("td").First().Text())
			if key != "" && value != "" {
				specs[key] = strings.Join(strings.Fields(value), " ")
			}
		})

	if len(specs) == 0 {
		return nil
	}
	return specs
}
