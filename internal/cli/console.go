package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/wolfman30/messenger-booking-relay/internal/fragment"
)

// consoleChannel prints delivery units instead of calling the Send API.
type consoleChannel struct {
	mu  sync.Mutex
	out io.Writer
}

func (c *consoleChannel) Send(_ context.Context, recipientID string, unit fragment.DeliveryUnit) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, line := range renderUnit(unit) {
		fmt.Fprintf(c.out, "-> %s: %s\n", recipientID, line)
	}
}

func (c *consoleChannel) SetTypingIndicator(_ context.Context, recipientID string, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state := "off"
	if on {
		state = "on"
	}
	fmt.Fprintf(c.out, "   %s: typing %s\n", recipientID, state)
}

func renderUnit(unit fragment.DeliveryUnit) []string {
	if unit.IsCarousel() {
		lines := make([]string, 0, len(unit.Cards))
		for _, card := range unit.Cards {
			lines = append(lines, renderCard(card))
		}
		return lines
	}

	f := unit.Fragment
	switch {
	case f.Kind == fragment.KindText && f.Text != nil:
		var lines []string
		for _, l := range f.Text.Lines {
			if l != "" {
				lines = append(lines, l)
			}
		}
		return lines
	case f.Kind == fragment.KindQuickReplies && f.QuickReplies != nil:
		opts := make([]string, 0, len(f.QuickReplies.Options))
		for _, o := range f.QuickReplies.Options {
			opts = append(opts, "["+o.Title+"]")
		}
		return []string{f.QuickReplies.Title + " " + strings.Join(opts, " ")}
	case f.Kind == fragment.KindImage && f.Image != nil:
		return []string{"image " + f.Image.URI}
	case f.IsCard():
		return []string{renderCard(*f.Card)}
	default:
		return []string{"(" + string(f.Kind) + ")"}
	}
}

func renderCard(card fragment.Card) string {
	var b strings.Builder
	b.WriteString("card ")
	b.WriteString(card.Title)
	if card.Subtitle != "" {
		b.WriteString(" / ")
		b.WriteString(card.Subtitle)
	}
	for _, btn := range card.Buttons {
		kind := "postback"
		if btn.IsLink() {
			kind = "link"
		}
		fmt.Fprintf(&b, " <%s %s: %s>", kind, btn.Text, btn.Target)
	}
	return b.String()
}
