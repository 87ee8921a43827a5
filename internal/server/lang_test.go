package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestLang(t *testing.T) {
	tests := []struct {
		name   string
		accept string
		want   string
	}{
		{"chinese", "zh-TW,zh;q=0.9,en;q=0.8", "zh"},
		{"uppercase chinese", "ZH", "zh"},
		{"english", "en-US,en;q=0.9", "en"},
		{"empty header", "", "en"},
		{"unrelated language", "fr-FR", "en"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.accept != "" {
				r.Header.Set("Accept-Language", tt.accept)
			}
			if got := requestLang(r); got != tt.want {
				t.Errorf("requestLang(%q) = %q, want %q", tt.accept, got, tt.want)
			}
		})
	}
}

func TestLangText(t *testing.T) {
	if got := langText(textFileNotFound, "en"); got != "File not found" {
		t.Errorf("langText(en) = %q", got)
	}
	if got := langText(textFileNotFound, "zh"); got != "找不到檔案" {
		t.Errorf("langText(zh) = %q", got)
	}
	if got := langText(textFileNotFound, "fr"); got != "" {
		t.Errorf("langText unknown lang = %q, want empty", got)
	}
}
