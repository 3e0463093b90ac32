package types

import (
	"strings"
	"time"
)

// Product is an item the user accepted during a session.
// Products are values; once added to a collection they are never modified.
type Product struct {
	AcceptedAt  time.Time `json:"accepted_at"`
	Title       string    `json:"title"`
	Price       string    `json:"price"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	SourceURL   string    `json:"source_url,omitempty"`
	Screenshot  []byte    `json:"-"`
}

// Key returns a normalized identity used to spot repeat proposals.
func (p Product) Key() string {
	norm := func(s string) string {
		return strings.Join(strings.Fields(strings.ToLower(s)), " ")
	}
	return norm(p.Title) + "|" + norm(p.Price)
}

// Clone returns a copy that shares no memory with p.
func (p Product) Clone() Product {
	if p.Screenshot != nil {
		p.Screenshot = append([]byte(nil), p.Screenshot...)
	}
	return p
}

// Feedback is the caller's answer to a product proposal.
type Feedback struct {
	Screenshot []byte
	Liked      bool
}

// NoFeedback is what a proposal resolves to when nobody answers in time.
var NoFeedback = Feedback{}
