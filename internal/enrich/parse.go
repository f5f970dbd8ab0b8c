package enrich

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/example/procrastinator/internal/models"
)

var (
	ErrNoJSON        = errors.New("no JSON object in generated text")
	ErrMalformed     = errors.New("generated JSON has the wrong shape")
	ErrServiceStatus = errors.New("generation service returned a non-success status")
)

// Count is how many excuses and alternatives a result must carry.
const Count = 3

// ExtractJSONObject returns the first balanced, valid JSON object embedded in s.
// Code fences are stripped first; braces inside string literals are ignored.
func ExtractJSONObject(s string) (string, error) {
	t := stripFences(s)
	for start := strings.IndexByte(t, '{'); start >= 0; {
		if end := matchBrace(t, start); end > 0 {
			cand := t[start : end+1]
			if json.Valid([]byte(cand)) {
				return cand, nil
			}
		}
		next := strings.IndexByte(t[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", ErrNoJSON
}

func stripFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if idx := strings.IndexByte(t, '\n'); idx != -1 {
		t = t[idx+1:]
	}
	if j := strings.LastIndex(t, "```"); j != -1 {
		t = t[:j]
	}
	return strings.TrimSpace(t)
}

// matchBrace returns the index of the brace closing the one at start, or -1.
func matchBrace(s string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// ParseEnrichment pulls the result object out of raw model or service output and
// checks its shape.
func ParseEnrichment(raw string) (models.Enrichment, error) {
	obj, err := ExtractJSONObject(raw)
	if err != nil {
		return models.Enrichment{}, err
	}
	var out struct {
		Excuses      []string `json:"excuses"`
		Alternatives []string `json:"alternatives"`
		Level        string   `json:"level"`
	}
	if err := json.Unmarshal([]byte(obj), &out); err != nil {
		return models.Enrichment{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	excuses, err := cleanList("excuses", out.Excuses)
	if err != nil {
		return models.Enrichment{}, err
	}
	alts, err := cleanList("alternatives", out.Alternatives)
	if err != nil {
		return models.Enrichment{}, err
	}
	level, ok := models.ParseLevel(out.Level)
	if !ok {
		return models.Enrichment{}, fmt.Errorf("%w: level %q", ErrMalformed, out.Level)
	}
	return models.Enrichment{Excuses: excuses, Alternatives: alts, Level: level}, nil
}

func cleanList(field string, in []string) ([]string, error) {
	if len(in) != Count {
		return nil, fmt.Errorf("%w: %s has %d entries, want %d", ErrMalformed, field, len(in), Count)
	}
	out := make([]string, 0, Count)
	for _, s := range in {
		c := cleanText(s)
		if c == "" {
			return nil, fmt.Errorf("%w: empty entry in %s", ErrMalformed, field)
		}
		out = append(out, c)
	}
	return out, nil
}

// cleanText drops markup and entities some models sprinkle into strings and
// collapses whitespace.
func cleanText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	var b strings.Builder
	collectText(doc, &b, false)
	return strings.Join(strings.Fields(b.String()), " ")
}

func collectText(n *html.Node, b *strings.Builder, hidden bool) {
	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "script", "style", "noscript":
			hidden = true
		case "br", "p", "div", "li":
			b.WriteString(" ")
		}
	}
	if !hidden && n.Type == html.TextNode {
		b.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b, hidden)
	}
}
