package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvoss/amazon-shoptools/internal/browser"
	"github.com/nvoss/amazon-shoptools/internal/config"
	"github.com/nvoss/amazon-shoptools/internal/models"
	"github.com/nvoss/amazon-shoptools/internal/query"
)

type fakePool struct {
	mu       sync.Mutex
	acquired int
	released int
}

func (p *fakePool) Acquire(ctx context.Context) (*browser.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.acquired++
	return &browser.Session{ID: fmt.Sprintf("fake-%d", p.acquired)}, nil
}

func (p *fakePool) Release(s *browser.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released++
}

func (p *fakePool) counts() (acquired, released int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acquired, p.released
}

// fakeVisitor serves canned HTML keyed by exact URL and records the visit
// order.
type fakeVisitor struct {
	mu      sync.Mutex
	pages   map[string]string
	visited []string
	err     error
}

func (v *fakeVisitor) Visit(ctx context.Context, s *browser.Session, url string) (*browser.RenderedPage, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.visited = append(v.visited, url)
	if v.err != nil {
		return nil, v.err
	}

	html, ok := v.pages[url]
	if !ok {
		return nil, fmt.Errorf("no canned page for %s", url)
	}
	return &browser.RenderedPage{URL: url, HTML: html}, nil
}

func (v *fakeVisitor) urls() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.visited...)
}

func testConfig() config.ScraperConfig {
	return config.ScraperConfig{
		BaseURL:    "https://www.amazon.com",
		MaxResults: 20,
	}
}

func newTestService(visitor *fakeVisitor) (*Service, *fakePool) {
	pool := &fakePool{}
	svc := NewService(pool, visitor, testConfig(), slog.New(slog.DiscardHandler))
	return svc, pool
}

func listingCard(asin, title, price, rating string) string {
	extras := ""
	if price != "" {
		extras += `<span class="a-price"><span class="a-offscreen">` + price + `</span></span>`
	}
	if rating != "" {
		extras += `<i class="a-icon-star-small"><span class="a-icon-alt">` + rating + ` out of 5 stars</span></i>`
	}
	return `<div data-component-type="s-search-result" data-asin="` + asin + `">
		<h2><a href="/dp/` + asin + `"><span>` + title + `</span></a></h2>` + extras + `</div>`
}

func listingPage(cards ...string) string {
	return "<html><body>" + strings.Join(cards, "\n") + "</body></html>"
}

func detailPage(title, price string) string {
	return `<html><body>
		<span id="productTitle">` + title + `</span>
		<span class="a-price"><span class="a-offscreen">` + price + `</span></span>
		<span id="acrPopover" title="4.5 out of 5 stars"></span>
	</body></html>`
}

func TestSearchReturnsListing(t *testing.T) {
	visitor := &fakeVisitor{pages: map[string]string{
		"https://www.amazon.com/s?k=headphones": listingPage(
			listingCard("B0AAAAAAA1", "First", "$10.00", "4.0"),
			listingCard("B0AAAAAAA2", "Second", "$20.00", "4.5"),
		),
	}}
	svc, pool := newTestService(visitor)

	products, err := svc.Search(context.Background(), "headphones")
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "First", products[0].Title)
	assert.Equal(t, "Second", products[1].Title)

	acquired, released := pool.counts()
	assert.Equal(t, 1, acquired)
	assert.Equal(t, 1, released)
}

func TestSearchWithFiltersTwoStepNavigation(t *testing.T) {
	plainURL := "https://www.amazon.com/s?k=laptop"
	filteredURL := "https://www.amazon.com/s?k=laptop&rh=p_85:2470955011"

	visitor := &fakeVisitor{pages: map[string]string{
		plainURL:    listingPage(listingCard("B0PLAIN001", "Plain result", "$99.00", "")),
		filteredURL: listingPage(listingCard("B0PRIME001", "Prime result", "$99.00", "")),
	}}
	svc, _ := newTestService(visitor)

	products, err := svc.SearchWithFilters(context.Background(), "laptop", query.FilterSet{PrimeOnly: true})
	require.NoError(t, err)

	assert.Equal(t, []string{plainURL, filteredURL}, visitor.urls())
	require.Len(t, products, 1)
	assert.Equal(t, "Prime result", products[0].Title)
}

func TestSearchWithFiltersDropsOutOfBoundResults(t *testing.T) {
	url := "https://www.amazon.com/s?k=mouse"
	filteredURL := "https://www.amazon.com/s?k=mouse&rh=p_36:1000-3000"

	page := listingPage(
		listingCard("B0INRANGE1", "In range", "$25.00", "4.0"),
		listingCard("B0TOOCHEAP", "Too cheap", "$5.00", "4.0"),
		listingCard("B0TOODEAR1", "Too expensive", "$80.00", "4.0"),
		listingCard("B0NOPRICE1", "No price shown", "", "4.0"),
	)

	visitor := &fakeVisitor{pages: map[string]string{url: page, filteredURL: page}}
	svc, _ := newTestService(visitor)

	f := query.FilterSet{PriceMin: models.Float64(10), PriceMax: models.Float64(30)}
	products, err := svc.SearchWithFilters(context.Background(), "mouse", f)
	require.NoError(t, err)

	var titles []string
	for _, p := range products {
		titles = append(titles, p.Title)
	}
	// Entries without a parsed price are kept: nothing proves them out of range.
	assert.Equal(t, []string{"In range", "No price shown"}, titles)
}

func TestSearchValidatesBeforeNavigation(t *testing.T) {
	visitor := &fakeVisitor{pages: map[string]string{}}
	svc, pool := newTestService(visitor)

	var valErr *query.ValidationError

	_, err := svc.Search(context.Background(), "")
	require.ErrorAs(t, err, &valErr)

	bad := query.FilterSet{MinRating: models.Int(9)}
	_, err = svc.SearchWithFilters(context.Background(), "ok term", bad)
	require.ErrorAs(t, err, &valErr)

	acquired, _ := pool.counts()
	assert.Zero(t, acquired)
	assert.Empty(t, visitor.urls())
}

func TestSearchReleasesSessionOnNavigationError(t *testing.T) {
	visitor := &fakeVisitor{err: &browser.NavigationError{URL: "x", Attempts: 3}}
	svc, pool := newTestService(visitor)

	_, err := svc.Search(context.Background(), "anything")

	var navErr *browser.NavigationError
	require.ErrorAs(t, err, &navErr)

	acquired, released := pool.counts()
	assert.Equal(t, 1, acquired)
	assert.Equal(t, 1, released)
}

func TestSearchCapsResults(t *testing.T) {
	var cards []string
	for i := 0; i < 30; i++ {
		cards = append(cards, listingCard(fmt.Sprintf("B0MANY%04d", i), fmt.Sprintf("Item %d", i), "$10.00", ""))
	}

	visitor := &fakeVisitor{pages: map[string]string{
		"https://www.amazon.com/s?k=bulk": listingPage(cards...),
	}}
	svc, _ := newTestService(visitor)

	products, err := svc.Search(context.Background(), "bulk")
	require.NoError(t, err)
	assert.Len(t, products, 20)
}

func TestFindDealsStampsAndSorts(t *testing.T) {
	plainURL := "https://www.amazon.com/s?k=electronics"
	dealsURL := "https://www.amazon.com/s?k=electronics&s=price-asc-rank&rh=p_n_deal_type:23566065011"

	visitor := &fakeVisitor{pages: map[string]string{
		plainURL: listingPage(listingCard("B0FULLPRC1", "Full price", "$50.00", "")),
		dealsURL: listingPage(listingCard("B0DEAL0001", "Discounted", "$30.00", "")),
	}}
	svc, _ := newTestService(visitor)

	products, err := svc.FindDeals(context.Background(), "electronics", query.FilterSet{})
	require.NoError(t, err)

	require.Len(t, products, 1)
	assert.Equal(t, "Discounted", products[0].Title)
	assert.Equal(t, "Discount/Deal", products[0].DealType)
}

func TestFindDealsRequiresCategory(t *testing.T) {
	svc, _ := newTestService(&fakeVisitor{})

	var valErr *query.ValidationError
	_, err := svc.FindDeals(context.Background(), "", query.FilterSet{})
	assert.ErrorAs(t, err, &valErr)
}

func TestFindBestsellersRanksResults(t *testing.T) {
	plainURL := "https://www.amazon.com/s?k=best+coffee+makers"
	rankedURL := "https://www.amazon.com/s?k=best+coffee+makers&s=review-rank&rh=p_72:1248885011"

	ranked := listingPage(
		listingCard("B0BEST0001", "Top pick", "$89.00", "4.8"),
		listingCard("B0BEST0002", "Runner up", "$59.00", "4.6"),
	)

	visitor := &fakeVisitor{pages: map[string]string{plainURL: ranked, rankedURL: ranked}}
	svc, _ := newTestService(visitor)

	products, err := svc.FindBestsellers(context.Background(), "coffee makers", query.FilterSet{})
	require.NoError(t, err)

	require.Len(t, products, 2)
	assert.Equal(t, "#1 in coffee makers", products[0].BestsellerRank)
	assert.Equal(t, "#2 in coffee makers", products[1].BestsellerRank)
}

func TestFindBestsellersMergesCallerFilters(t *testing.T) {
	plainURL := "https://www.amazon.com/s?k=best+headphones"
	filteredURL := "https://www.amazon.com/s?k=best+headphones&s=review-rank&rh=p_85:2470955011,p_72:1248885011"

	page := listingPage(listingCard("B0BESTPRM1", "Prime bestseller", "$45.00", "4.7"))
	visitor := &fakeVisitor{pages: map[string]string{plainURL: page, filteredURL: page}}
	svc, _ := newTestService(visitor)

	products, err := svc.FindBestsellers(context.Background(), "headphones", query.FilterSet{PrimeOnly: true})
	require.NoError(t, err)

	// The caller's prime constraint rides along with the default review-rank
	// ordering and rating floor.
	assert.Equal(t, []string{plainURL, filteredURL}, visitor.urls())
	require.Len(t, products, 1)
	assert.Equal(t, "#1 in headphones", products[0].BestsellerRank)
}

func TestGetDetailsAcceptsURLOrASIN(t *testing.T) {
	detailURL := "https://www.amazon.com/dp/B0DETAIL01"
	visitor := &fakeVisitor{pages: map[string]string{
		detailURL: detailPage("Espresso Machine", "$249.00"),
	}}
	svc, _ := newTestService(visitor)

	t.Run("full URL", func(t *testing.T) {
		d, err := svc.GetDetails(context.Background(), "https://www.amazon.com/Some-Name/dp/B0DETAIL01/ref=sr_1_1")
		require.NoError(t, err)
		assert.Equal(t, "Espresso Machine", d.Title)
		assert.Equal(t, "B0DETAIL01", d.ASIN)
	})

	t.Run("bare ASIN", func(t *testing.T) {
		d, err := svc.GetDetails(context.Background(), "B0DETAIL01")
		require.NoError(t, err)
		assert.Equal(t, "Espresso Machine", d.Title)
	})

	t.Run("garbage input", func(t *testing.T) {
		var valErr *query.ValidationError
		_, err := svc.GetDetails(context.Background(), "not a product")
		assert.ErrorAs(t, err, &valErr)
	})
}

func TestGetReviewsCapsCount(t *testing.T) {
	var blocks []string
	for i := 0; i < 8; i++ {
		blocks = append(blocks, `<div data-hook="review">
			<i data-hook="review-star-rating"><span class="a-icon-alt">4.0 out of 5 stars</span></i>
			<span data-hook="review-body">Review `+fmt.Sprint(i)+`</span>
		</div>`)
	}
	html := "<html><body>" + strings.Join(blocks, "\n") + "</body></html>"

	visitor := &fakeVisitor{pages: map[string]string{
		"https://www.amazon.com/dp/B0REVIEWS1": html,
	}}
	svc, _ := newTestService(visitor)

	reviews, err := svc.GetReviews(context.Background(), "B0REVIEWS1", 3)
	require.NoError(t, err)
	assert.Len(t, reviews, 3)
}

func TestCompare(t *testing.T) {
	visitor := &fakeVisitor{pages: map[string]string{
		"https://www.amazon.com/dp/B0CMPARE01": detailPage("Product One", "$100.00"),
		"https://www.amazon.com/dp/B0CMPARE02": detailPage("Product Two", "$60.00"),
		"https://www.amazon.com/dp/B0CMPARE03": detailPage("Product Three", "$80.00"),
	}}
	svc, pool := newTestService(visitor)

	result, err := svc.Compare(context.Background(), []string{"B0CMPARE01", "B0CMPARE02", "B0CMPARE03"})
	require.NoError(t, err)

	// Result order matches input order regardless of fetch completion order.
	require.Len(t, result.Products, 3)
	assert.Equal(t, "Product One", result.Products[0].Title)
	assert.Equal(t, "Product Two", result.Products[1].Title)
	assert.Equal(t, "Product Three", result.Products[2].Title)

	require.NotNil(t, result.Summary.PriceRange.Min)
	require.NotNil(t, result.Summary.PriceRange.Max)
	assert.Equal(t, 60.00, *result.Summary.PriceRange.Min)
	assert.Equal(t, 100.00, *result.Summary.PriceRange.Max)
	assert.Equal(t, 3, result.Summary.TotalCompared)

	// All ratings are equal, so the first-listed product wins the tie.
	assert.Equal(t, "Product One", result.Summary.HighestRated)

	acquired, released := pool.counts()
	assert.Equal(t, 3, acquired)
	assert.Equal(t, 3, released)
}

func TestCompareValidatesProductCount(t *testing.T) {
	svc, pool := newTestService(&fakeVisitor{})

	var valErr *query.ValidationError

	_, err := svc.Compare(context.Background(), []string{"B0CMPARE01"})
	require.ErrorAs(t, err, &valErr)

	_, err = svc.Compare(context.Background(), []string{
		"B0CMPARE01", "B0CMPARE02", "B0CMPARE03", "B0CMPARE04", "B0CMPARE05", "B0CMPARE06",
	})
	require.ErrorAs(t, err, &valErr)

	acquired, _ := pool.counts()
	assert.Zero(t, acquired)
}

func TestCompareSkipsUnloadableProducts(t *testing.T) {
	visitor := &fakeVisitor{pages: map[string]string{
		"https://www.amazon.com/dp/B0CMPARE01": detailPage("Product One", "$100.00"),
		"https://www.amazon.com/dp/B0CMPARE03": detailPage("Product Three", "$80.00"),
	}}
	svc, pool := newTestService(visitor)

	// B0CMPARE02 has no page behind it and drops out of the comparison.
	result, err := svc.Compare(context.Background(), []string{"B0CMPARE01", "B0CMPARE02", "B0CMPARE03"})
	require.NoError(t, err)

	require.Len(t, result.Products, 2)
	assert.Equal(t, "Product One", result.Products[0].Title)
	assert.Equal(t, "Product Three", result.Products[1].Title)
	assert.Equal(t, 2, result.Summary.TotalCompared)

	acquired, released := pool.counts()
	assert.Equal(t, acquired, released)
}

func TestCompareFailsWhenTooFewSurvive(t *testing.T) {
	visitor := &fakeVisitor{pages: map[string]string{
		"https://www.amazon.com/dp/B0CMPARE01": detailPage("Product One", "$100.00"),
	}}
	svc, _ := newTestService(visitor)

	result, err := svc.Compare(context.Background(), []string{"B0CMPARE01", "B0CMPARE02"})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "could be loaded")
}
