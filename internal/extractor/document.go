package extractor

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is a page shared by every component that reads or changes it.
// Observers are told about inserted nodes after the change is applied.
type Document struct {
	mu  sync.RWMutex
	doc *goquery.Document

	obsMu     sync.Mutex
	observers map[int]func([]*html.Node)
	nextObs   int
}

func NewDocument(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return &Document{doc: doc, observers: make(map[int]func([]*html.Node))}, nil
}

func ParseDocument(s string) (*Document, error) {
	return NewDocument(strings.NewReader(s))
}

func (d *Document) read(fn func(doc *goquery.Document)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fn(d.doc)
}

func (d *Document) write(fn func(doc *goquery.Document)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.doc)
}

// Insert parses fragment and appends it to the first element matching
// parentSelector.
func (d *Document) Insert(parentSelector, fragment string) error {
	var added []*html.Node
	var err error

	d.write(func(doc *goquery.Document) {
		parent := doc.Find(parentSelector).First()
		if parent.Length() == 0 {
			err = fmt.Errorf("no element matches %q", parentSelector)
			return
		}

		added, err = html.ParseFragment(strings.NewReader(fragment), parent.Get(0))
		if err != nil {
			err = fmt.Errorf("failed to parse fragment: %w", err)
			return
		}
		parent.AppendNodes(added...)
	})
	if err != nil {
		return err
	}

	d.notify(added)
	return nil
}

// Remove detaches every element matching selector and reports how many
// were removed.
func (d *Document) Remove(selector string) int {
	n := 0
	d.write(func(doc *goquery.Document) {
		sel := doc.Find(selector)
		n = sel.Length()
		sel.Remove()
	})
	return n
}

func (d *Document) HTML() (string, error) {
	var out string
	var err error
	d.read(func(doc *goquery.Document) {
		out, err = goquery.OuterHtml(doc.Selection)
	})
	return out, err
}

// HandleByID resolves the element with the given id attribute.
func (d *Document) HandleByID(id string) (*NodeHandle, bool) {
	var node *html.Node
	d.read(func(doc *goquery.Document) {
		doc.Find("[id]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if v, _ := s.Attr("id"); v == id {
				node = s.Get(0)
				return false
			}
			return true
		})
	})
	if node == nil {
		return nil, false
	}
	return &NodeHandle{doc: d, node: node, key: id}, true
}

// Observe registers fn for inserted nodes. fn runs on the inserting
// goroutine. The returned function stops the observation.
func (d *Document) Observe(fn func(added []*html.Node)) func() {
	d.obsMu.Lock()
	id := d.nextObs
	d.nextObs++
	d.observers[id] = fn
	d.obsMu.Unlock()

	return func() {
		d.obsMu.Lock()
		delete(d.observers, id)
		d.obsMu.Unlock()
	}
}

func (d *Document) notify(added []*html.Node) {
	if len(added) == 0 {
		return
	}

	d.obsMu.Lock()
	fns := make([]func([]*html.Node), 0, len(d.observers))
	for _, fn := range d.observers {
		fns = append(fns, fn)
	}
	d.obsMu.Unlock()

	for _, fn := range fns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("[Document] Observer panicked", slog.Any("panic", r))
				}
			}()
			fn(added)
		}()
	}
}
