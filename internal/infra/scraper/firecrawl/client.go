package firecrawl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/bryanwahyu/veritas/internal/domain/evidence"
)

const DefaultBaseURL = "https://api.firecrawl.dev"

type Config struct {
	APIKey   string
	BaseURL  string
	Version  string // "v2" by default; "v1" is used as fallback when the endpoint is missing
	Timeout  time.Duration
	RetryMax int
}

// Client implements evidence.Scraper over the Firecrawl scrape endpoint.
type Client struct {
	http    *retryablehttp.Client
	baseURL string
	apiKey  string
	version string
}

func NewClient(cfg Config) *Client {
	rc := retryablehttp.NewClient()
	rc.Logger = log.New(io.Discard, "", 0)
	rc.RetryMax = cfg.RetryMax
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 3 * time.Second
	if cfg.Timeout > 0 {
		rc.HTTPClient.Timeout = cfg.Timeout
	} else {
		rc.HTTPClient.Timeout = 60 * time.Second
	}
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	version := cfg.Version
	if version == "" {
		version = "v2"
	}
	return &Client{http: rc, baseURL: base, apiKey: cfg.APIKey, version: version}
}

type scrapeRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	Mobile          bool     `json:"mobile,omitempty"`
	WaitFor         int64    `json:"waitFor,omitempty"`
	OnlyMainContent bool     `json:"onlyMainContent"`
}

func (c *Client) Scrape(ctx context.Context, url string, opts evidence.ScrapeOptions) (*evidence.ScrapeResult, error) {
	formats := make([]string, 0, len(opts.Formats))
	for _, f := range opts.Formats {
		formats = append(formats, string(f))
	}
	if len(formats) == 0 {
		formats = []string{string(evidence.FormatMarkdown)}
	}
	body, err := json.Marshal(scrapeRequest{
		URL:             url,
		Formats:         formats,
		Mobile:          opts.Mobile,
		WaitFor:         opts.WaitFor.Milliseconds(),
		OnlyMainContent: true,
	})
	if err != nil {
		return nil, err
	}

	versions := []string{c.version}
	if c.version != "v1" {
		versions = append(versions, "v1")
	}
	for i, v := range versions {
		status, data, err := c.post(ctx, v, body)
		if err != nil {
			return nil, err
		}
		if status == http.StatusNotFound && i < len(versions)-1 {
			continue
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("firecrawl %s returned status %d: %s", v, status, snippet(data))
		}
		return parse(data)
	}
	return nil, errors.New("firecrawl: no endpoint available")
}

func (c *Client) post(ctx context.Context, version string, body []byte) (int, []byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+version+"/scrape", body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("firecrawl request: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return 0, nil, fmt.Errorf("firecrawl read: %w", err)
	}
	return resp.StatusCode, data, nil
}

// parse accepts both {"success":true,"data":{...}} and a flat document.
func parse(data []byte) (*evidence.ScrapeResult, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("firecrawl: response is not JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, errors.New("firecrawl: response is not an object")
	}
	if s := root.Get("success"); s.Exists() && !s.Bool() {
		return nil, fmt.Errorf("firecrawl: %s", root.Get("error").String())
	}
	doc := root.Get("data")
	if !doc.IsObject() {
		doc = root
	}

	res := &evidence.ScrapeResult{
		Markdown:      doc.Get("markdown").String(),
		HTML:          firstString(doc, "html", "rawHtml"),
		ScreenshotURL: doc.Get("screenshot").String(),
		ImageURL:      firstString(doc.Get("metadata"), "ogImage", `og\:image`, "og_image"),
	}
	if strings.TrimSpace(res.Markdown) == "" && res.HTML != "" {
		res.Markdown = htmlText(res.HTML)
	}
	return res, nil
}

// firstString returns the first non-empty value among paths; list values yield their first item.
func firstString(obj gjson.Result, paths ...string) string {
	for _, p := range paths {
		v := obj.Get(p)
		if v.IsArray() {
			v = v.Get("0")
		}
		if s := strings.TrimSpace(v.String()); s != "" {
			return s
		}
	}
	return ""
}

func htmlText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript").Remove()
	return strings.Join(strings.Fields(doc.Find("body").Text()), " ")
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
