package extractor

import (
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const HiddenClass = "onlylikes-hidden-comment"

// NodeHandle points at a comment element. It stays valid after the element
// is removed; toggling it is then a no-op.
type NodeHandle struct {
	doc  *Document
	node *html.Node
	key  string
}

func (h *NodeHandle) Key() string {
	return h.key
}

func (h *NodeHandle) SetHidden(hidden bool) bool {
	attached := false
	h.doc.write(func(doc *goquery.Document) {
		// FindNodes only keeps nodes still under the document root.
		sel := doc.FindNodes(h.node)
		if sel.Length() == 0 {
			return
		}
		attached = true
		if hidden {
			sel.AddClass(HiddenClass)
		} else {
			sel.RemoveClass(HiddenClass)
		}
	})
	return attached
}

func (h *NodeHandle) Hidden() bool {
	hidden := false
	h.doc.read(func(doc *goquery.Document) {
		hidden = doc.FindNodes(h.node).HasClass(HiddenClass)
	})
	return hidden
}
