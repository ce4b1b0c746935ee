package evidence

import "context"

// Scraper port (interface to the web-scraping API)
type Scraper interface {
	Scrape(ctx context.Context, url string, opts ScrapeOptions) (*ScrapeResult, error)
}
