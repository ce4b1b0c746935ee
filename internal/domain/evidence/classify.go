package evidence

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

const DefaultMinContentLength = 500

// DefaultBlockPhrases appear on anti-automation walls and login gates.
var DefaultBlockPhrases = []string{
	"captcha",
	"verify you are human",
	"verify you're human",
	"robot check",
	"are you a robot",
	"access denied",
	"sign in to continue",
	"log in to continue",
	"login to continue",
	"please enable cookies",
	"unusual traffic",
}

// DefaultHostileDomains always block automated access.
var DefaultHostileDomains = []string{
	"temu.com",
	"shein.com",
	"aliexpress.com",
	"alibaba.com",
	"wish.com",
}

// BlockDetector decides whether scraped text is usable.
type BlockDetector struct {
	MinLength int
	Phrases   []string
}

func NewBlockDetector(minLength int, phrases []string) BlockDetector {
	if minLength <= 0 {
		minLength = DefaultMinContentLength
	}
	if phrases == nil {
		phrases = DefaultBlockPhrases
	}
	lowered := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			lowered = append(lowered, p)
		}
	}
	return BlockDetector{MinLength: minLength, Phrases: lowered}
}

// Blocked reports too-short content or content carrying a block phrase.
func (d BlockDetector) Blocked(text string) bool {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < d.MinLength {
		return true
	}
	lower := strings.ToLower(text)
	for _, p := range d.Phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// HostileList matches URLs on marketplaces known to always block scraping.
type HostileList struct {
	domains []string
}

func NewHostileList(domains []string) HostileList {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.Trim(strings.ToLower(strings.TrimSpace(d)), ".")
		if d != "" {
			out = append(out, d)
		}
	}
	return HostileList{domains: out}
}

// Contains matches the host and any of its subdomains.
func (h HostileList) Contains(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return false
	}
	for _, d := range h.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
