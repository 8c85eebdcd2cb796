// Package i18n renders terminal status text in Polish or English.
package i18n

import (
	_ "embed"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Message keys.
const (
	StatusIdle              = "status.idle"
	StatusScanningQR        = "status.scanning_qr"
	StatusTokenPending      = "status.token_pending"
	StatusAwaitingFace      = "status.awaiting_face"
	StatusFacePending       = "status.face_pending"
	StatusGranted           = "status.granted"
	StatusGrantedSimilarity = "status.granted_similarity"
	StatusDenied            = "status.denied"
	StatusDeniedSimilarity  = "status.denied_similarity"
	StatusCancelled         = "status.cancelled"
)

// ErrorKey returns the key of the message for an error kind such as "network".
func ErrorKey(kind string) string {
	return "error." + kind
}

//go:embed messages.yaml
var messagesYAML []byte

var supported = []language.Tag{language.Polish, language.English}

var (
	cat     catalog.Catalog
	matcher = language.NewMatcher(supported)
)

func init() {
	c, err := buildCatalog(messagesYAML)
	if err != nil {
		panic(fmt.Sprintf("i18n: %v", err))
	}
	cat = c
}

func buildCatalog(data []byte) (catalog.Catalog, error) {
	var messages map[string]map[string]string
	if err := yaml.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("parsing messages: %w", err)
	}

	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for lang, entries := range messages {
		tag, err := language.Parse(lang)
		if err != nil {
			return nil, fmt.Errorf("invalid language %q: %w", lang, err)
		}
		for key, msg := range entries {
			if err := b.SetString(tag, key, msg); err != nil {
				return nil, fmt.Errorf("setting %s/%s: %w", lang, key, err)
			}
		}
	}
	return b, nil
}

// Supported lists the languages with a translation.
func Supported() []language.Tag {
	return append([]language.Tag(nil), supported...)
}

// Printer formats messages for one language.
type Printer struct {
	p     *message.Printer
	tag   language.Tag
	ascii bool
}

// New returns a printer for the best supported match of locale
// (a BCP 47 tag or an Accept-Language value). When ascii is set, diacritics
// are stripped for displays without a Unicode font.
func New(locale string, ascii bool) *Printer {
	tags, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(tags) == 0 {
		tags = []language.Tag{language.Polish}
	}
	_, idx, _ := matcher.Match(tags...)
	tag := supported[idx]
	return &Printer{
		p:     message.NewPrinter(tag, message.Catalog(cat)),
		tag:   tag,
		ascii: ascii,
	}
}

// Language returns the language the printer renders.
func (p *Printer) Language() language.Tag {
	return p.tag
}

// T renders the message for key.
func (p *Printer) T(key string, args ...any) string {
	s := p.p.Sprintf(key, args...)
	if p.ascii {
		s = ASCII(s)
	}
	return s
}

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// ł has no decomposition, so it survives RemoveDiacritics.
var strokeReplacer = strings.NewReplacer("ł", "l", "Ł", "L")

// ASCII folds Polish text to plain ASCII letters.
func ASCII(s string) string {
	return strokeReplacer.Replace(RemoveDiacritics(s))
}
