package models

// Handle is a weak reference to a rendered comment node. SetHidden reports
// false when the node is no longer attached to the document.
type Handle interface {
	Key() string
	SetHidden(hidden bool) bool
}

type Comment struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	Handle    Handle   `json:"-"`
	Sentiment *float64 `json:"sentiment,omitempty"`
}

// Scored returns a copy of the comment carrying the given sentiment.
func (c Comment) Scored(score float64) Comment {
	c.Sentiment = &score
	return c
}

// CommentText is the page-world view of a comment, the handle stays behind
// in the document.
type CommentText struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type FilteredComment struct {
	ID        string   `json:"id"`
	Sentiment *float64 `json:"sentiment,omitempty"`
	Hidden    bool     `json:"hidden"`
}
