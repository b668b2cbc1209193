package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nvoss/amazon-shoptools/internal/browser"
	"github.com/nvoss/amazon-shoptools/internal/config"
	"github.com/nvoss/amazon-shoptools/internal/models"
	"github.com/nvoss/amazon-shoptools/internal/query"
	"github.com/nvoss/amazon-shoptools/internal/scraper"
	"github.com/nvoss/amazon-shoptools/pkg/logger"
)

func main() {
	var (
		term      = flag.String("term", "", "Search term")
		deals     = flag.Bool("deals", false, "Only discounted products")
		prime     = flag.Bool("prime", false, "Only Prime-eligible products")
		priceMin  = flag.Float64("price-min", 0, "Minimum price")
		priceMax  = flag.Float64("price-max", 0, "Maximum price")
		minRating = flag.Int("min-rating", 0, "Minimum star rating (1-5)")
		brands    = flag.String("brands", "", "Comma-separated brand filter")
		sortBy    = flag.String("sort", "", "Sort order: relevance, price-asc, price-desc, review-rank, newest")
		output    = flag.String("output", "stdout", "Output format: stdout, json")
		headless  = flag.Bool("headless", true, "Run browser in headless mode")
	)
	flag.Parse()

	if *term == "" {
		fmt.Println("No search term given. Use -term to specify what to search for.")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutdown signal received")
		cancel()
	}()

	filters := query.FilterSet{
		PrimeOnly:    *prime,
		Deals:        *deals,
		DiscountOnly: *deals,
		SortBy:       query.SortOrder(*sortBy),
	}
	if *priceMin > 0 {
		filters.PriceMin = models.Float64(*priceMin)
	}
	if *priceMax > 0 {
		filters.PriceMax = models.Float64(*priceMax)
	}
	if *minRating > 0 {
		filters.MinRating = models.Int(*minRating)
	}
	if *brands != "" {
		for _, b := range strings.Split(*brands, ",") {
			if b = strings.TrimSpace(b); b != "" {
				filters.Brands = append(filters.Brands, b)
			}
		}
	}

	browserOpts := browser.DefaultOptions()
	browserOpts.Headless = *headless && cfg.Browser.Headless
	browserOpts.UserAgents = cfg.Scraper.UserAgents
	browserOpts.Timeout = cfg.Scraper.NavTimeout

	launcher, err := browser.NewLauncher(browserOpts)
	if err != nil {
		logger.Error("failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer launcher.Close()

	pool := browser.NewPool(launcher, 1, logger)
	defer pool.Close()

	nav := browser.NewNavigator(browser.NavigatorOptions{
		MaxAttempts: cfg.Scraper.MaxAttempts,
		Timeout:     cfg.Scraper.NavTimeout,
		DelayMin:    cfg.Scraper.DelayMin,
		DelayMax:    cfg.Scraper.DelayMax,
	}, logger)

	service := scraper.NewService(pool, nav, cfg.Scraper, logger)

	products, err := service.SearchWithFilters(ctx, *term, filters)
	if err != nil {
		logger.Error("search failed", "term", *term, "error", err)
		os.Exit(1)
	}

	if err := outputResults(products, *output); err != nil {
		logger.Error("failed to output results", "error", err)
		os.Exit(1)
	}
}

func outputResults(products []models.ProductSummary, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(products)
	default:
		for i, p := range products {
			fmt.Printf("%d. %s\n", i+1, p.Title)
			if p.Price != nil {
				fmt.Printf("   Price: $%.2f\n", *p.Price)
			}
			if p.Rating != nil {
				if p.ReviewCount != nil {
					fmt.Printf("   Rating: %.1f stars (%d reviews)\n", *p.Rating, *p.ReviewCount)
				} else {
					fmt.Printf("   Rating: %.1f stars\n", *p.Rating)
				}
			}
			if p.PrimeEligible != nil && *p.PrimeEligible {
				fmt.Println("   Prime eligible")
			}
			fmt.Printf("   URL: %s\n", p.URL)
			fmt.Println("---")
		}
		fmt.Printf("%d results\n", len(products))
	}
	return nil
}
