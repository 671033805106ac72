// Package fragment models bot response content and the units it is
// delivered in.
package fragment

import "strings"

// Kind identifies the variant carried by a Fragment.
type Kind string

const (
	KindText         Kind = "text"
	KindQuickReplies Kind = "quick_replies"
	KindImage        Kind = "image"
	KindCard         Kind = "card"
)

// Fragment is one piece of bot response content. Exactly one of the variant
// fields is set, matching Kind.
type Fragment struct {
	Kind         Kind          `json:"kind"`
	Text         *Text         `json:"text,omitempty"`
	QuickReplies *QuickReplies `json:"quick_replies,omitempty"`
	Image        *Image        `json:"image,omitempty"`
	Card         *Card         `json:"card,omitempty"`
}

// Text is one or more plain text lines. Each non-empty line is sent as its
// own message.
type Text struct {
	Lines []string `json:"lines"`
}

// QuickReplies is a prompt with tappable reply options.
type QuickReplies struct {
	Title   string   `json:"title"`
	Options []Option `json:"options"`
}

// Option is a quick reply choice. Payload is what comes back when tapped.
type Option struct {
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

// Image is a picture referenced by URI.
type Image struct {
	URI string `json:"uri"`
}

// Card is a rich element with an optional image and buttons.
type Card struct {
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle,omitempty"`
	ImageURI string   `json:"image_uri,omitempty"`
	Buttons  []Button `json:"buttons,omitempty"`
}

// Button is a card button. Target is a URL or an opaque postback token.
type Button struct {
	Text   string `json:"text"`
	Target string `json:"target"`
}

// IsLink reports whether the button opens a URL rather than posting back.
func (b Button) IsLink() bool {
	return strings.HasPrefix(b.Target, "http")
}

// NewText builds a text fragment.
func NewText(lines ...string) Fragment {
	return Fragment{Kind: KindText, Text: &Text{Lines: lines}}
}

// NewQuickReplies builds a quick reply fragment whose payloads equal the titles.
func NewQuickReplies(title string, options ...string) Fragment {
	opts := make([]Option, 0, len(options))
	for _, o := range options {
		opts = append(opts, Option{Title: o, Payload: o})
	}
	return Fragment{Kind: KindQuickReplies, QuickReplies: &QuickReplies{Title: title, Options: opts}}
}

// NewQuickReplyOptions builds a quick reply fragment with explicit payloads.
func NewQuickReplyOptions(title string, options ...Option) Fragment {
	return Fragment{Kind: KindQuickReplies, QuickReplies: &QuickReplies{Title: title, Options: options}}
}

// NewImage builds an image fragment.
func NewImage(uri string) Fragment {
	return Fragment{Kind: KindImage, Image: &Image{URI: uri}}
}

// NewCard builds a card fragment.
func NewCard(card Card) Fragment {
	return Fragment{Kind: KindCard, Card: &card}
}

// IsCard reports whether f is a card.
func (f Fragment) IsCard() bool {
	return f.Kind == KindCard && f.Card != nil
}

// FirstLine returns the first text line of a text fragment, or "".
func (f Fragment) FirstLine() string {
	if f.Kind != KindText || f.Text == nil || len(f.Text.Lines) == 0 {
		return ""
	}
	return f.Text.Lines[0]
}

// DeliveryUnit is what the channel sends in one timed step: a single
// non-card fragment, or a batch of consecutive cards sent as a carousel.
type DeliveryUnit struct {
	Fragment *Fragment `json:"fragment,omitempty"`
	Cards    []Card    `json:"cards,omitempty"`
}

// Single wraps a non-card fragment.
func Single(f Fragment) DeliveryUnit {
	return DeliveryUnit{Fragment: &f}
}

// Carousel wraps a card batch.
func Carousel(cards []Card) DeliveryUnit {
	return DeliveryUnit{Cards: cards}
}

// IsCarousel reports whether the unit is a card batch.
func (u DeliveryUnit) IsCarousel() bool {
	return u.Fragment == nil
}

// Size is the number of fragments the unit carries.
func (u DeliveryUnit) Size() int {
	if u.IsCarousel() {
		return len(u.Cards)
	}
	return 1
}
