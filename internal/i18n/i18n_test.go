package i18n

import (
	"strings"
	"testing"

	"golang.org/x/text/language"
)

var allKeys = []string{
	StatusIdle, StatusScanningQR, StatusTokenPending, StatusAwaitingFace, StatusFacePending,
	StatusGranted, StatusGrantedSimilarity, StatusDenied, StatusDeniedSimilarity, StatusCancelled,
	ErrorKey("capture"), ErrorKey("qr_not_found"), ErrorKey("decode"), ErrorKey("network"),
	ErrorKey("rejected"), ErrorKey("timeout"), ErrorKey("cancelled"), ErrorKey("unknown"),
}

func TestNew_LanguageMatching(t *testing.T) {
	tests := []struct {
		locale string
		want   language.Tag
	}{
		{"pl", language.Polish},
		{"pl-PL", language.Polish},
		{"en", language.English},
		{"en-GB,en;q=0.8", language.English},
		{"", language.Polish},
		{"!!", language.Polish},
	}
	for _, tt := range tests {
		if got := New(tt.locale, false).Language(); got != tt.want {
			t.Errorf("New(%q).Language() = %v, want %v", tt.locale, got, tt.want)
		}
	}
}

func TestT_EveryKeyTranslated(t *testing.T) {
	for _, tag := range Supported() {
		p := New(tag.String(), false)
		for _, key := range allKeys {
			if got := p.T(key, "x"); got == key || strings.HasPrefix(got, key) {
				t.Errorf("%v: key %s not translated", tag, key)
			}
		}
	}
}

func TestT_Formatting(t *testing.T) {
	pl := New("pl", false)
	if got := pl.T(StatusAwaitingFace, "alice@co.com"); got != "Użytkownik zweryfikowany: alice@co.com" {
		t.Errorf("unexpected polish text %q", got)
	}

	en := New("en", false)
	if got := en.T(StatusGrantedSimilarity, "0.91"); got != "Face verified! Similarity: 0.91" {
		t.Errorf("unexpected english text %q", got)
	}
}

func TestT_ASCII(t *testing.T) {
	p := New("pl", true)
	if got := p.T(ErrorKey("network")); got != "Blad polaczenia z serwerem weryfikacji" {
		t.Errorf("unexpected ascii text %q", got)
	}
	if got := p.T(StatusGranted); got != "DOSTEP PRZYZNANY" {
		t.Errorf("unexpected ascii text %q", got)
	}
}

func TestRemoveDiacritics(t *testing.T) {
	tests := map[string]string{
		"Jiří":        "Jiri",
		"Żółć":        "Zołc",
		"plain ascii": "plain ascii",
	}
	for in, want := range tests {
		if got := RemoveDiacritics(in); got != want {
			t.Errorf("RemoveDiacritics(%q) = %q, want %q", in, got, want)
		}
	}
	if got := ASCII("Żółć"); got != "Zolc" {
		t.Errorf("ASCII(Żółć) = %q, want Zolc", got)
	}
}

func TestBuildCatalog_Invalid(t *testing.T) {
	if _, err := buildCatalog([]byte("pl: [unclosed")); err == nil {
		t.Error("expected parse error")
	}
	if _, err := buildCatalog([]byte("\"!!!\":\n  k: v\n")); err == nil {
		t.Error("expected language error")
	}
}
