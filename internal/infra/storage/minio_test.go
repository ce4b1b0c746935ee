package storage

import (
	"testing"
	"time"
)

func TestObjectKey(t *testing.T) {
	at := time.Date(2025, 3, 9, 23, 0, 0, 0, time.FixedZone("x", -2*3600))
	tests := []struct {
		mime, want string
	}{
		{"image/png", "screenshots/2025/03/10/abc.png"},
		{"image/JPEG", "screenshots/2025/03/10/abc.jpg"},
		{"image/webp", "screenshots/2025/03/10/abc.webp"},
		{"application/pdf", "screenshots/2025/03/10/abc.bin"},
	}
	for _, tt := range tests {
		if got := objectKey(at, "abc", tt.mime); got != tt.want {
			t.Errorf("objectKey(%s) = %s, want %s", tt.mime, got, tt.want)
		}
	}
}
