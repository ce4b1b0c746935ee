package evidence

import (
	"strings"
	"testing"
)

func TestBlocked(t *testing.T) {
	d := NewBlockDetector(DefaultMinContentLength, nil)
	long := strings.Repeat("a", 10000)
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"short", strings.Repeat("a", 50), true},
		{"long clean", long, false},
		{"long with challenge", long + " Please VERIFY YOU ARE HUMAN to continue", true},
		{"exactly min", strings.Repeat("é", DefaultMinContentLength), false},
		{"whitespace padding", "   " + strings.Repeat("a", 499) + "   ", true},
	}
	for _, tt := range tests {
		if got := d.Blocked(tt.text); got != tt.want {
			t.Errorf("%s: Blocked = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestHostileList(t *testing.T) {
	h := NewHostileList(DefaultHostileDomains)
	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.temu.com/goods.html?goods_id=1", true},
		{"https://temu.com/", true},
		{"https://m.shein.com/x", true},
		{"https://nottemu.com/", false},
		{"https://temu.com.evil.example/", false},
		{"https://shop.example/", false},
		{"::not a url", false},
	}
	for _, tt := range tests {
		if got := h.Contains(tt.url); got != tt.want {
			t.Errorf("Contains(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}
