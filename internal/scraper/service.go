package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/nvoss/amazon-shoptools/internal/browser"
	"github.com/nvoss/amazon-shoptools/internal/config"
	"github.com/nvoss/amazon-shoptools/internal/extract"
	"github.com/nvoss/amazon-shoptools/internal/models"
	"github.com/nvoss/amazon-shoptools/internal/query"
)

// SessionPool loans browser sessions to the service. Satisfied by
// *browser.Pool.
type SessionPool interface {
	Acquire(ctx context.Context) (*browser.Session, error)
	Release(s *browser.Session)
}

// PageVisitor renders one URL in a session. Satisfied by *browser.Navigator.
type PageVisitor interface {
	Visit(ctx context.Context, s *browser.Session, url string) (*browser.RenderedPage, error)
}

// Service orchestrates product searches, detail lookups and comparisons. It
// owns no browser state itself: sessions come from the pool for exactly the
// span of one operation and are released on every exit path.
type Service struct {
	pool   SessionPool
	nav    PageVisitor
	cfg    config.ScraperConfig
	logger *slog.Logger
}

func NewService(pool SessionPool, nav PageVisitor, cfg config.ScraperConfig, logger *slog.Logger) *Service {
	return &Service{
		pool:   pool,
		nav:    nav,
		cfg:    cfg,
		logger: logger.With("component", "scraper"),
	}
}

// Search runs an unfiltered product search for the given term.
func (s *Service) Search(ctx context.Context, term string) ([]models.ProductSummary, error) {
	return s.SearchWithFilters(ctx, term, query.FilterSet{})
}

// SearchWithFilters runs a product search constrained by the given filter
// set. Validation happens before any session is acquired; invalid input
// never causes a navigation. When filters are present the search lands on the
// plain results page first and then applies the refinement URL, which is how
// a person narrows a search.
func (s *Service) SearchWithFilters(ctx context.Context, term string, filters query.FilterSet) ([]models.ProductSummary, error) {
	if term == "" {
		return nil, &query.ValidationError{Field: "term", Reason: "must not be empty"}
	}
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	session, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Release(session)

	page, err := s.visitSearch(ctx, session, term, filters)
	if err != nil {
		return nil, err
	}

	products, err := extract.Listing(page.HTML, s.cfg.BaseURL)
	if err != nil {
		// An unreadable results page yields an empty result, not a failed
		// operation; the cause goes to the log.
		s.logger.Error("failed to extract search results", "term", term, "error", err)
		return []models.ProductSummary{}, nil
	}

	products = applyBounds(products, filters)
	products = capResults(products, s.cfg.MaxResults)

	s.logger.Info("search completed", "term", term, "results", len(products))
	return products, nil
}

// visitSearch performs the two-step navigation: plain results page first,
// then the refined URL when any filter is set.
func (s *Service) visitSearch(ctx context.Context, session *browser.Session, term string, filters query.FilterSet) (*browser.RenderedPage, error) {
	page, err := s.visit(ctx, session, query.SearchURL(s.cfg.BaseURL, term, query.FilterSet{}))
	if err != nil {
		return nil, err
	}

	if filters.Empty() {
		return page, nil
	}

	return s.visit(ctx, session, query.SearchURL(s.cfg.BaseURL, term, filters))
}

// FindDeals searches the given category for discounted products. Results are
// ordered cheapest first unless the filters request otherwise.
func (s *Service) FindDeals(ctx context.Context, category string, filters query.FilterSet) ([]models.ProductSummary, error) {
	if category == "" {
		return nil, &query.ValidationError{Field: "category", Reason: "must not be empty"}
	}

	filters.Deals = true
	filters.DiscountOnly = true
	if filters.SortBy == "" {
		filters.SortBy = query.SortPriceAsc
	}

	products, err := s.SearchWithFilters(ctx, category, filters)
	if err != nil {
		return nil, err
	}

	for i := range products {
		products[i].DealType = "Discount/Deal"
	}
	return products, nil
}

// FindBestsellers surfaces the highest-regarded products of a category:
// ranked by review volume, with a default rating floor of 4 stars. Caller
// filters (prime, price bounds, condition and so on) narrow the search the
// same way they do for FindDeals.
func (s *Service) FindBestsellers(ctx context.Context, category string, filters query.FilterSet) ([]models.ProductSummary, error) {
	if category == "" {
		return nil, &query.ValidationError{Field: "category", Reason: "must not be empty"}
	}

	if filters.SortBy == "" {
		filters.SortBy = query.SortReviewRank
	}
	if filters.MinRating == nil {
		filters.MinRating = models.Int(4)
	}

	products, err := s.SearchWithFilters(ctx, "best "+category, filters)
	if err != nil {
		return nil, err
	}

	for i := range products {
		products[i].BestsellerRank = fmt.Sprintf("#%d in %s", i+1, category)
	}
	return products, nil
}

// GetDetails loads one product page and extracts the full product record.
// Accepts either a product URL or a bare ASIN.
func (s *Service) GetDetails(ctx context.Context, productURL string) (*models.ProductDetail, error) {
	target, err := s.resolveProductURL(productURL)
	if err != nil {
		return nil, err
	}

	session, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Release(session)

	page, err := s.visit(ctx, session, target)
	if err != nil {
		return nil, err
	}

	detail, err := extract.Detail(page.HTML, page.URL)
	if err != nil {
		return nil, err
	}

	s.logger.Info("product details extracted", "asin", detail.ASIN)
	return detail, nil
}

// GetReviews loads a product page and extracts its customer reviews.
func (s *Service) GetReviews(ctx context.Context, productURL string, maxReviews int) ([]models.Review, error) {
	target, err := s.resolveProductURL(productURL)
	if err != nil {
		return nil, err
	}
	if maxReviews < 1 {
		maxReviews = 10
	}

	session, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Release(session)

	page, err := s.visit(ctx, session, target)
	if err != nil {
		return nil, err
	}

	reviews, err := extract.Reviews(page.HTML)
	if err != nil {
		s.logger.Error("failed to extract reviews", "url", target, "error", err)
		return []models.Review{}, nil
	}

	if len(reviews) > maxReviews {
		reviews = reviews[:maxReviews]
	}
	return reviews, nil
}

// Compare loads 2 to 5 product pages concurrently, one pooled session per
// product, and summarizes the spread. Result order matches input order.
// Products whose pages cannot be loaded are dropped from the comparison; the
// operation fails only when fewer than two products survive.
func (s *Service) Compare(ctx context.Context, productURLs []string) (*models.ComparisonResult, error) {
	if len(productURLs) < 2 {
		return nil, &query.ValidationError{Field: "products", Reason: "needs at least 2 products to compare"}
	}
	if len(productURLs) > 5 {
		return nil, &query.ValidationError{Field: "products", Reason: "cannot compare more than 5 products"}
	}

	targets := make([]string, len(productURLs))
	for i, u := range productURLs {
		t, err := s.resolveProductURL(u)
		if err != nil {
			return nil, err
		}
		targets[i] = t
	}

	details := make([]*models.ProductDetail, len(targets))
	fetchErrs := make([]error, len(targets))

	// Products that cannot be loaded are skipped rather than failing the
	// whole comparison; the goroutines report errors through fetchErrs.
	var eg errgroup.Group
	for i, target := range targets {
		eg.Go(func() error {
			session, err := s.pool.Acquire(ctx)
			if err != nil {
				fetchErrs[i] = err
				return nil
			}
			defer s.pool.Release(session)

			page, err := s.visit(ctx, session, target)
			if err != nil {
				fetchErrs[i] = err
				return nil
			}

			d, err := extract.Detail(page.HTML, page.URL)
			if err != nil {
				fetchErrs[i] = err
				return nil
			}

			details[i] = d
			return nil
		})
	}
	eg.Wait()

	result := &models.ComparisonResult{}
	for i, d := range details {
		if d == nil {
			s.logger.Warn("skipping product in comparison", "url", targets[i], "error", fetchErrs[i])
			continue
		}
		result.Products = append(result.Products, *d)
	}

	if len(result.Products) < 2 {
		for _, err := range fetchErrs {
			if err != nil {
				return nil, fmt.Errorf("comparison failed, only %d of %d products could be loaded: %w",
					len(result.Products), len(targets), err)
			}
		}
	}

	result.Summary = summarize(result.Products)

	s.logger.Info("comparison completed", "products", len(result.Products))
	return result, nil
}

// visit wraps the navigator and flags the session unhealthy when navigation
// fails for good, so the pool retires it instead of lending it out again.
func (s *Service) visit(ctx context.Context, session *browser.Session, url string) (*browser.RenderedPage, error) {
	page, err := s.nav.Visit(ctx, session, url)
	if err != nil {
		var navErr *browser.NavigationError
		if errors.As(err, &navErr) {
			session.MarkUnhealthy()
		}
		return nil, err
	}
	return page, nil
}

func (s *Service) resolveProductURL(input string) (string, error) {
	if input == "" {
		return "", &query.ValidationError{Field: "product", Reason: "must not be empty"}
	}

	if asin := extract.ASINFromURL(input); asin != "" {
		return query.DetailURL(s.cfg.BaseURL, asin), nil
	}

	// A bare ASIN is ten uppercase alphanumerics.
	if len(input) == 10 && isASIN(input) {
		return query.DetailURL(s.cfg.BaseURL, input), nil
	}

	return "", &query.ValidationError{Field: "product", Reason: fmt.Sprintf("%q is not a product URL or ASIN", input)}
}

func isASIN(s string) bool {
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// applyBounds drops results that visibly violate the requested price or
// rating bounds. The site's refinement narrows the result set but listing
// pages still leak out-of-range entries; entries without a parsed value are
// kept, since nothing proves them out of range.
func applyBounds(products []models.ProductSummary, f query.FilterSet) []models.ProductSummary {
	if f.PriceMin == nil && f.PriceMax == nil && f.MinRating == nil {
		return products
	}

	kept := products[:0]
	for _, p := range products {
		if p.Price != nil {
			if f.PriceMin != nil && *p.Price < *f.PriceMin {
				continue
			}
			if f.PriceMax != nil && *p.Price > *f.PriceMax {
				continue
			}
		}
		if f.MinRating != nil && p.Rating != nil && *p.Rating < float64(*f.MinRating) {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

func capResults(products []models.ProductSummary, max int) []models.ProductSummary {
	if max > 0 && len(products) > max {
		return products[:max]
	}
	return products
}

// summarize computes the price range and the highest-rated product of a
// comparison. Ties on rating keep the first-listed product; the winner must
// be strictly better to displace it.
func summarize(products []models.ProductDetail) models.ComparisonSummary {
	summary := models.ComparisonSummary{TotalCompared: len(products)}

	var prices []float64
	for _, p := range products {
		if p.Price != nil {
			prices = append(prices, *p.Price)
		}
	}
	if len(prices) > 0 {
		sort.Float64s(prices)
		summary.PriceRange.Min = models.Float64(prices[0])
		summary.PriceRange.Max = models.Float64(prices[len(prices)-1])
	}

	best := -1.0
	for _, p := range products {
		if p.Rating != nil && *p.Rating > best {
			best = *p.Rating
			summary.HighestRated = p.Title
		}
	}

	return summary
}
