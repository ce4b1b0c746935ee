package evidence

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/bryanwahyu/veritas/internal/application"
	domain "github.com/bryanwahyu/veritas/internal/domain/evidence"
	"github.com/bryanwahyu/veritas/internal/infra/metrics"
	"github.com/bryanwahyu/veritas/internal/logger"
)

// errNoContent marks a scrape that answered without any page text.
var errNoContent = errors.New("scraper returned no content")

// Config controls retries, blocking detection and caching.
type Config struct {
	MaxAttempts      int
	Backoff          time.Duration
	MinContentLength int
	BlockPhrases     []string
	HostileDomains   []string
	CacheTTL         time.Duration
	Mobile           bool
	WaitFor          time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:      3,
		Backoff:          1500 * time.Millisecond,
		MinContentLength: domain.DefaultMinContentLength,
		BlockPhrases:     domain.DefaultBlockPhrases,
		HostileDomains:   domain.DefaultHostileDomains,
		CacheTTL:         time.Hour,
		Mobile:           true,
		WaitFor:          3 * time.Second,
	}
}

// Acquirer fetches page content through the scraper with bounded, blocking-aware retries.
// It is safe for concurrent use.
type Acquirer struct {
	scraper  domain.Scraper
	clock    application.Clock
	detector domain.BlockDetector
	hostile  domain.HostileList
	cache    *gocache.Cache
	cfg      Config
}

func NewAcquirer(scraper domain.Scraper, clock application.Clock, cfg Config) *Acquirer {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if clock == nil {
		clock = application.SystemClock{}
	}
	a := &Acquirer{
		scraper:  scraper,
		clock:    clock,
		detector: domain.NewBlockDetector(cfg.MinContentLength, cfg.BlockPhrases),
		hostile:  domain.NewHostileList(cfg.HostileDomains),
		cfg:      cfg,
	}
	if cfg.CacheTTL > 0 {
		a.cache = gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	return a
}

// Acquire never returns an error: failures are expressed by the outcome state.
func (a *Acquirer) Acquire(ctx context.Context, rawURL string) domain.Outcome {
	log := logger.Log.WithField("url", CacheKey(rawURL))

	if a.hostile.Contains(rawURL) {
		log.Info("[evidence] hostile marketplace, skipping scrape")
		return a.finish(log, domain.Outcome{State: domain.StateBlocked, Hostile: true})
	}

	key := CacheKey(rawURL)
	if a.cache != nil {
		if v, ok := a.cache.Get(key); ok {
			out := v.(domain.Outcome)
			out.Cached = true
			log.Debug("[evidence] cache hit")
			return out
		}
	}

	opts := domain.ScrapeOptions{
		Formats: []domain.Format{domain.FormatMarkdown, domain.FormatHTML, domain.FormatScreenshot},
		Mobile:  a.cfg.Mobile,
		WaitFor: a.cfg.WaitFor,
	}

	out := domain.Outcome{State: domain.StateAttempting}
	for n := 1; n <= a.cfg.MaxAttempts; n++ {
		if err := ctx.Err(); err != nil {
			out.State, out.Err = domain.StateExhausted, err
			break
		}
		out.Attempts = n
		alog := log.WithField("attempt", n)

		res, err := a.scraper.Scrape(ctx, rawURL, opts)
		switch {
		case err != nil:
			out.State, out.Err = domain.StateExhausted, err
			alog.WithError(err).Warn("[evidence] scrape failed")
		case res == nil || strings.TrimSpace(res.Markdown) == "":
			out.State, out.Err = domain.StateExhausted, errNoContent
			alog.Warn("[evidence] scrape returned nothing")
		default:
			if res.ScreenshotURL != "" {
				out.ScreenshotURL = res.ScreenshotURL
			}
			if !a.detector.Blocked(res.Markdown) {
				out.State, out.Err = domain.StateSucceeded, nil
				out.Page = &domain.PageContent{Text: res.Markdown, ImageURL: imageHint(res)}
				if a.cache != nil {
					a.cache.Set(key, out, gocache.DefaultExpiration)
				}
				return a.finish(alog, out)
			}
			out.State = domain.StateBlocked
			alog.WithField("chars", len(res.Markdown)).Info("[evidence] content looks blocked")
		}

		if n == a.cfg.MaxAttempts {
			break
		}
		if err := a.clock.Sleep(ctx, a.cfg.Backoff); err != nil {
			out.Err = err
			break
		}
	}
	if out.State == domain.StateAttempting {
		out.State = domain.StateExhausted
	}
	return a.finish(log, out)
}

// Forget drops a cached outcome.
func (a *Acquirer) Forget(rawURL string) {
	if a.cache != nil {
		a.cache.Delete(CacheKey(rawURL))
	}
}

func (a *Acquirer) finish(log *logrus.Entry, out domain.Outcome) domain.Outcome {
	metrics.ObserveAcquisition(string(out.State))
	log.WithFields(logrus.Fields{
		"state":    out.State,
		"attempts": out.Attempts,
	}).Debug("[evidence] acquisition finished")
	return out
}

// imageHint prefers the metadata image and falls back to og:image in the HTML.
func imageHint(res *domain.ScrapeResult) string {
	if img := strings.TrimSpace(res.ImageURL); img != "" {
		return img
	}
	if strings.TrimSpace(res.HTML) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.HTML))
	if err != nil {
		return ""
	}
	for _, sel := range []string{`meta[property="og:image"]`, `meta[name="og:image"]`, `meta[name="twitter:image"]`} {
		if v, ok := doc.Find(sel).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// CacheKey is the URL without userinfo or fragment.
func CacheKey(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.User = nil
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}
