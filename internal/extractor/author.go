package extractor

import (
	"log/slog"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// UserName finds the signed-in user's name on the page.
func (e *SelectorExtractor) UserName() (string, bool) {
	name := e.firstValue(e.profile.UserName)
	if name == "" {
		slog.Debug("[Extractor] User name not found",
			slog.String("platform", string(e.platform)))
		return "", false
	}
	return name, true
}

// IsUserPost reports whether any author candidate of the post matches user.
// Names are compared on their lowercase letters and digits, either one
// containing the other.
func (e *SelectorExtractor) IsUserPost(user string) bool {
	want := normalizeName(user)
	if want == "" {
		return false
	}

	match := false
	e.doc.read(func(doc *goquery.Document) {
		for _, probe := range e.profile.Author {
			doc.Find(probe.Selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
				author := normalizeName(probeValue(probe, s))
				if author != "" && (strings.Contains(author, want) || strings.Contains(want, author)) {
					match = true
				}
				return !match
			})
			if match {
				return
			}
		}
	})

	slog.Debug("[Extractor] Checked post author",
		slog.String("platform", string(e.platform)),
		slog.String("user", user),
		slog.Bool("is_user_post", match))
	return match
}

func (e *SelectorExtractor) firstValue(probes []Probe) string {
	value := ""
	e.doc.read(func(doc *goquery.Document) {
		for _, probe := range probes {
			doc.Find(probe.Selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
				value = probeValue(probe, s)
				return value == ""
			})
			if value != "" {
				return
			}
		}
	})
	return value
}

func probeValue(p Probe, s *goquery.Selection) string {
	raw := s.Text()
	if p.Attr != "" {
		raw, _ = s.Attr(p.Attr)
	}
	return strings.TrimSpace(p.extract(strings.TrimSpace(raw)))
}

func normalizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
