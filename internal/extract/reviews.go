package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nvoss/amazon-shoptools/internal/models"
)

// Reviews parses customer reviews from a product or reviews page. Review
// blocks whose rating cannot be read are skipped; only reviews with a parsed
// rating are reported.
func Reviews(html string) ([]models.Review, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse reviews: %w", err)
	}

	var reviews []models.Review

	doc.Find("[data-hook='review']").Each(func(i int, block *goquery.Selection) {
		ratingText := block.Find("i[data-hook='review-star-rating'] .a-icon-alt").First().Text()
		if ratingText == "" {
			ratingText = block.Find("i[data-hook='cmps-review-star-rating'] .a-icon-alt").First().Text()
		}

		rating, ok := ParseRating(ratingText)
		if !ok {
			return
		}

		text := strings.TrimSpace(block.Find("span[data-hook='review-body']").First().Text())

		reviews = append(reviews, models.Review{
			Rating: rating,
			Text:   text,
		})
	})

	return reviews, nil
}
