// Package extractor finds comments in a page document using per-platform
// selector profiles and watches the document for comments added later.
package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/spacesedan/onlylikes/internal/models"
)

const ID_PREFIX = "onlylikes-"

type CommentExtractor interface {
	Extract(ctx context.Context) ([]models.Comment, error)
	ObserveNew(fn func([]models.Comment)) (stop func())
}

type SelectorExtractor struct {
	doc      *Document
	platform Platform
	profile  Profile
}

func NewSelectorExtractor(doc *Document, platform Platform, profiles map[Platform]Profile) (*SelectorExtractor, error) {
	if profiles == nil {
		profiles = DefaultProfiles()
	}
	profile, ok := profiles[platform]
	if !ok {
		return nil, fmt.Errorf("no selector profile for platform %q", platform)
	}
	return &SelectorExtractor{doc: doc, platform: platform, profile: profile}, nil
}

func (e *SelectorExtractor) Platform() Platform {
	return e.platform
}

// Extract returns every non-blank comment currently in the document. Comment
// elements without an id get a generated one so they can be found again.
func (e *SelectorExtractor) Extract(ctx context.Context) ([]models.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var comments []models.Comment
	e.doc.write(func(doc *goquery.Document) {
		for _, selector := range e.profile.Comments {
			sel := doc.Find(selector)
			if sel.Length() == 0 {
				continue
			}
			slog.Debug("[Extractor] Found comments",
				slog.String("platform", string(e.platform)),
				slog.String("selector", selector),
				slog.Int("count", sel.Length()))
			comments = e.collect(sel)
			break
		}
	})

	slog.Info("[Extractor] Extracted comments",
		slog.String("platform", string(e.platform)),
		slog.Int("count", len(comments)))
	return comments, nil
}

// ObserveNew calls fn with the comments found in every later insertion.
func (e *SelectorExtractor) ObserveNew(fn func([]models.Comment)) func() {
	return e.doc.Observe(func(added []*html.Node) {
		var comments []models.Comment
		e.doc.write(func(doc *goquery.Document) {
			roots := doc.FindNodes(added...)
			for _, selector := range e.profile.Comments {
				sel := roots.Filter(selector).AddSelection(roots.Find(selector))
				if sel.Length() > 0 {
					comments = e.collect(sel)
					break
				}
			}
		})

		if len(comments) > 0 {
			slog.Debug("[Extractor] New comments inserted",
				slog.String("platform", string(e.platform)),
				slog.Int("count", len(comments)))
			fn(comments)
		}
	})
}

// collect must run under the document write lock.
func (e *SelectorExtractor) collect(sel *goquery.Selection) []models.Comment {
	comments := make([]models.Comment, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		text := e.commentText(s)
		if text == "" {
			return
		}

		id, ok := s.Attr("id")
		if !ok || strings.TrimSpace(id) == "" {
			id = ID_PREFIX + uuid.NewString()
			s.SetAttr("id", id)
		}

		comments = append(comments, models.Comment{
			ID:     id,
			Text:   text,
			Handle: &NodeHandle{doc: e.doc, node: s.Get(0), key: id},
		})
	})
	return comments
}

func (e *SelectorExtractor) commentText(s *goquery.Selection) string {
	for _, selector := range e.profile.CommentText {
		if t := s.Find(selector).First(); t.Length() > 0 {
			return normalizeText(t.Text())
		}
	}
	return ""
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
