package firecrawl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bryanwahyu/veritas/internal/domain/evidence"
)

func TestScrapeV2(t *testing.T) {
	var got scrapeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/scrape" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer fc-key" {
			t.Errorf("auth = %q", r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"success":true,"data":{"markdown":"# Kettle","screenshot":"https://shots.example/1.png","metadata":{"ogImage":"https://cdn.example/k.jpg"}}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "fc-key", BaseURL: srv.URL})
	res, err := c.Scrape(context.Background(), "https://shop.example/kettle", evidence.ScrapeOptions{
		Formats: []evidence.Format{evidence.FormatMarkdown, evidence.FormatScreenshot},
		Mobile:  true,
		WaitFor: 3 * time.Second,
	})
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if res.Markdown != "# Kettle" || res.ScreenshotURL != "https://shots.example/1.png" || res.ImageURL != "https://cdn.example/k.jpg" {
		t.Fatalf("res = %+v", res)
	}
	if got.WaitFor != 3000 || !got.Mobile || strings.Join(got.Formats, ",") != "markdown,screenshot" {
		t.Fatalf("request = %+v", got)
	}
}

func TestScrapeFallsBackToV1(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/v2/scrape" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"markdown":"flat body","metadata":{"og:image":["https://cdn.example/a.jpg","https://cdn.example/b.jpg"]}}`))
	}))
	defer srv.Close()

	res, err := NewClient(Config{BaseURL: srv.URL}).Scrape(context.Background(), "https://shop.example/x", evidence.ScrapeOptions{})
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if strings.Join(paths, ",") != "/v2/scrape,/v1/scrape" {
		t.Fatalf("paths = %v", paths)
	}
	if res.Markdown != "flat body" || res.ImageURL != "https://cdn.example/a.jpg" {
		t.Fatalf("res = %+v", res)
	}
}

func TestScrapeErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"unsuccessful", http.StatusOK, `{"success":false,"error":"blocked by site"}`},
		{"not json", http.StatusOK, `<html>oops</html>`},
		{"forbidden", http.StatusForbidden, `{"error":"bad key"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()
			if _, err := NewClient(Config{BaseURL: srv.URL}).Scrape(context.Background(), "https://shop.example/x", evidence.ScrapeOptions{}); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestParseHTMLOnly(t *testing.T) {
	res, err := parse([]byte(`{"data":{"html":"<html><head><script>var x=1</script></head><body><h1>Acme</h1>  <p>Kettle</p></body></html>"}}`))
	if err != nil {
		t.Fatal(err)
	}
	if res.Markdown != "Acme Kettle" {
		t.Fatalf("markdown = %q", res.Markdown)
	}
}
