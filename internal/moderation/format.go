package moderation

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ileafrica/ilebot/internal/properties"
)

// Summary renders a property for review and listings.
func Summary(p properties.Property) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", p.Name)
	fmt.Fprintf(&b, "Location: %s\n", p.Location)
	fmt.Fprintf(&b, "Price: %s (%d tokens)\n", formatPrice(p.Price), p.Tokens)
	fmt.Fprintf(&b, "Type: %s\n", p.Type)
	fmt.Fprintf(&b, "Description: %s\n", p.Description)
	fmt.Fprintf(&b, "Images: %d\n", len(p.Images))
	for _, u := range p.Images {
		b.WriteString(u)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "Submitted by: %d\n", p.OwnerID)
	fmt.Fprintf(&b, "Status: %s", p.Status)
	return b.String()
}

// maxMessageRunes is the Telegram limit on the text of one message.
const maxMessageRunes = 4096

// listing renders list as one or more texts, each within maxMessageRunes.
func (s *Service) listing(title string, list []properties.Property, empty string) []string {
	if len(list) == 0 {
		return []string{empty}
	}
	lines := []string{fmt.Sprintf("%s (%d):\n", title, len(list))}
	for i, p := range list {
		if i == s.listLimit {
			lines = append(lines, fmt.Sprintf("\n...and %d more", len(list)-s.listLimit))
			break
		}
		lines = append(lines, fmt.Sprintf("\n%d. %s | %s | %s | %s",
			i+1, p.Name, p.Location, formatPrice(p.Price), p.Status))
	}
	return pack(lines, maxMessageRunes)
}

// pack joins lines into texts of at most limit runes. A line never spans two
// texts; leading newlines of a text are dropped.
func pack(lines []string, limit int) []string {
	var (
		out  []string
		b    strings.Builder
		size int
	)
	for _, line := range lines {
		if size > 0 && size+utf8.RuneCountInString(line) > limit {
			out = append(out, b.String())
			b.Reset()
			size = 0
		}
		if size == 0 {
			line = strings.TrimLeft(line, "\n")
		}
		b.WriteString(line)
		size += utf8.RuneCountInString(line)
	}
	if size > 0 {
		out = append(out, b.String())
	}
	return out
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
