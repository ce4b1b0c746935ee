package analysis

import (
	"net"
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/weppos/publicsuffix-go/publicsuffix"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	DefaultMaxNameLength = 60
	// UnidentifiedItem is returned when neither the model nor the URL yields a usable name.
	UnidentifiedItem = "Unidentified Item"
)

// DefaultBannedPhrases mark a model-supplied name as a non-answer.
var DefaultBannedPhrases = []string{
	"unable to",
	"cannot determine",
	"can't determine",
	"unknown",
	"generic",
	"placeholder",
	"based on url",
	"based on the url",
	"not available",
	"not provided",
}

var junkNames = map[string]struct{}{
	"":                  {},
	"n/a":               {},
	"na":                {},
	"none":              {},
	"null":              {},
	"nil":               {},
	"undefined":         {},
	"product":           {},
	"item":              {},
	"product name":      {},
	"analysis":          {},
	"unidentified item": {},
}

// routeWords are path segments that name a route rather than a product.
var routeWords = map[string]struct{}{
	"dp": {}, "gp": {}, "p": {}, "ip": {}, "pd": {}, "itm": {}, "item": {}, "items": {},
	"product": {}, "products": {}, "goods": {}, "detail": {}, "details": {}, "listing": {},
	"listings": {}, "shop": {}, "store": {}, "buy": {}, "en": {}, "us": {}, "index": {},
	"s": {}, "ref": {}, "catalog": {}, "category": {},
}

var goodsParams = []string{"goods_id", "goodsId", "item_id", "itemId", "product_id", "productId", "sku"}

var productCode = regexp.MustCompile(`^[A-Z0-9]{10}$`)

// NameResolver picks a display label for an analysis.
type NameResolver struct {
	MaxLength     int
	BannedPhrases []string
}

func NewNameResolver(maxLength int, banned []string) NameResolver {
	if len(banned) == 0 {
		banned = DefaultBannedPhrases
	}
	return NameResolver{MaxLength: maxLength, BannedPhrases: banned}
}

func (r NameResolver) maxLength() int {
	if r.MaxLength <= 0 {
		return DefaultMaxNameLength
	}
	return r.MaxLength
}

// Accepts reports whether a model-supplied name is usable as-is.
func (r NameResolver) Accepts(name string) bool {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > r.maxLength() {
		return false
	}
	lower := strings.ToLower(name)
	if _, junk := junkNames[lower]; junk {
		return false
	}
	banned := r.BannedPhrases
	if banned == nil {
		banned = DefaultBannedPhrases
	}
	for _, p := range banned {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			return false
		}
	}
	return true
}

// Resolve never returns an empty string.
func (r NameResolver) Resolve(aiName, sourceURL string) string {
	if r.Accepts(aiName) {
		return strings.TrimSpace(aiName)
	}
	if name := r.FromURL(sourceURL); name != "" {
		return name
	}
	return UnidentifiedItem
}

// FromURL derives a label from the URL path, or from a marketplace identifier.
// It returns "" when the URL carries nothing usable.
func (r NameResolver) FromURL(raw string) string {
	u := parseLoose(raw)
	if u == nil {
		return ""
	}
	segments := pathSegments(u.Path)

	if slug := longestSlug(segments); slug != "" {
		name := titleCase(slug)
		name = truncateWords(name, r.maxLength())
		if r.Accepts(name) {
			return name
		}
	}
	if id := marketplaceID(u, segments); id != "" {
		return marketplace(u.Hostname()) + " Item " + id
	}
	return ""
}

// DeriveIdentifier gives the investigative prompt a hint about what the URL points at.
func (r NameResolver) DeriveIdentifier(raw string) string {
	if name := r.FromURL(raw); name != "" {
		return name
	}
	if u := parseLoose(raw); u != nil && u.Hostname() != "" {
		return marketplace(u.Hostname()) + " listing"
	}
	return ""
}

func parseLoose(raw string) *url.URL {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	return u
}

func pathSegments(p string) []string {
	var out []string
	for _, seg := range strings.Split(p, "/") {
		if s, err := url.PathUnescape(seg); err == nil {
			seg = s
		}
		if ext := path.Ext(seg); ext != "" && len(ext) <= 6 && isAlpha(ext[1:]) {
			seg = strings.TrimSuffix(seg, ext)
		}
		seg = strings.TrimSpace(seg)
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

func longestSlug(segments []string) string {
	best := ""
	for _, seg := range segments {
		if isDigits(seg) || isProductCode(seg) {
			continue
		}
		if _, route := routeWords[strings.ToLower(seg)]; route {
			continue
		}
		if !strings.ContainsFunc(seg, unicode.IsLetter) {
			continue
		}
		if utf8.RuneCountInString(seg) > utf8.RuneCountInString(best) {
			best = seg
		}
	}
	return best
}

func marketplaceID(u *url.URL, segments []string) string {
	for _, seg := range segments {
		if isProductCode(seg) {
			return seg
		}
	}
	q := u.Query()
	for _, k := range goodsParams {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			return v
		}
	}
	for _, seg := range segments {
		if isDigits(seg) && len(seg) >= 3 {
			return seg
		}
	}
	return ""
}

// marketplace returns the registrable domain label, e.g. "Amazon" for www.amazon.co.uk.
func marketplace(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" {
		return "Marketplace"
	}
	if net.ParseIP(host) != nil {
		return host
	}
	label := ""
	if dn, err := publicsuffix.Parse(host); err == nil && dn.SLD != "" {
		label = dn.SLD
	} else {
		parts := strings.Split(strings.TrimPrefix(host, "www."), ".")
		label = parts[0]
		if len(parts) >= 2 {
			label = parts[len(parts)-2]
		}
	}
	return titleCase(label)
}

func titleCase(s string) string {
	s = strings.NewReplacer("-", " ", "_", " ", "+", " ").Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	return cases.Title(language.English).String(s)
}

func truncateWords(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	out := ""
	for _, w := range strings.Fields(s) {
		next := w
		if out != "" {
			next = out + " " + w
		}
		if utf8.RuneCountInString(next) > max {
			break
		}
		out = next
	}
	if out == "" {
		out = string([]rune(s)[:max])
	}
	return out
}

func isProductCode(s string) bool {
	return productCode.MatchString(s) &&
		strings.ContainsFunc(s, unicode.IsDigit) &&
		strings.ContainsFunc(s, unicode.IsLetter)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !unicode.IsLetter(c) {
			return false
		}
	}
	return true
}
