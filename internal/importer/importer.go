// Package importer turns checklists from files into task drafts. Each draft is run
// through the same validation as the creation surface; rejected entries are counted
// and skipped.
package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	pdfx "github.com/ledongthuc/pdf"
	"golang.org/x/net/html"

	"github.com/example/procrastinator/internal/models"
	"github.com/example/procrastinator/internal/tasks"
)

// MaxFileBytes caps what FromFile will read.
const MaxFileBytes = 20 << 20

// DefaultMaxPages is how many PDF pages FromFile reads.
const DefaultMaxPages = 20

type Result struct {
	Drafts  []models.Draft
	Skipped int
	Reasons []string
}

func (r *Result) add(d models.Draft, where string) {
	d, err := tasks.ValidateDraft(d)
	if err != nil {
		r.Skipped++
		r.Reasons = append(r.Reasons, fmt.Sprintf("%s: %v", where, err))
		return
	}
	r.Drafts = append(r.Drafts, d)
}

func (r *Result) skip(where string, err error) {
	r.Skipped++
	r.Reasons = append(r.Reasons, fmt.Sprintf("%s: %v", where, err))
}

// FromText reads one task per non-empty line. List markers ("-", "*", "1.") and
// checkboxes are stripped; "[x]" marks the task done. Trailing #words become tags.
func FromText(r io.Reader) (Result, error) {
	res := Result{Drafts: []models.Draft{}}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		d, ok := parseLine(line)
		if !ok {
			continue
		}
		res.add(d, fmt.Sprintf("line %d", n))
	}
	if err := sc.Err(); err != nil {
		return res, fmt.Errorf("read text: %w", err)
	}
	return res, nil
}

func parseLine(line string) (models.Draft, bool) {
	var d models.Draft
	line = stripBullet(line)
	switch {
	case strings.HasPrefix(line, "[ ]"):
		line = line[3:]
	case strings.HasPrefix(line, "[x]"), strings.HasPrefix(line, "[X]"):
		line = line[3:]
		d.Status = models.StatusDone
	}
	fields := strings.Fields(line)
	for len(fields) > 0 {
		last := fields[len(fields)-1]
		if len(last) < 2 || last[0] != '#' {
			break
		}
		d.Tags = append([]string{last[1:]}, d.Tags...)
		fields = fields[:len(fields)-1]
	}
	d.Text = strings.Join(fields, " ")
	if d.Text == "" && len(d.Tags) == 0 {
		return d, false
	}
	return d, true
}

func stripBullet(line string) string {
	for _, p := range []string{"- ", "* ", "+ ", "• "} {
		if strings.HasPrefix(line, p) {
			return strings.TrimSpace(line[len(p):])
		}
	}
	// "1." or "1)"
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		return strings.TrimSpace(line[i+1:])
	}
	return line
}

// FromCSV reads rows with a header naming any of text, category, priority, tags,
// due, status and duration. Only text is required. Tags are ';' separated.
func FromCSV(r io.Reader) (Result, error) {
	res := Result{Drafts: []models.Draft{}}
	rdr := csv.NewReader(r)
	rdr.FieldsPerRecord = -1
	rdr.TrimLeadingSpace = true

	header, err := rdr.Read()
	if errors.Is(err, io.EOF) {
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("read csv header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	if _, ok := col["text"]; !ok {
		return res, errors.New("csv header has no text column")
	}
	get := func(rec []string, name string) string {
		if i, ok := col[name]; ok && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	row := 1
	for {
		rec, err := rdr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		where := fmt.Sprintf("row %d", row)
		if err != nil {
			res.skip(where, err)
			continue
		}
		d := models.Draft{
			Text:     get(rec, "text"),
			Category: models.Category(get(rec, "category")),
			Priority: models.Priority(get(rec, "priority")),
		}
		if tags := get(rec, "tags"); tags != "" {
			d.Tags = strings.Split(tags, ";")
		}
		if v := get(rec, "status"); v != "" {
			st, ok := models.ParseStatus(v)
			if !ok {
				res.skip(where, fmt.Errorf("unknown status %q", v))
				continue
			}
			d.Status = st
		}
		if v := get(rec, "due"); v != "" {
			due, err := parseDue(v)
			if err != nil {
				res.skip(where, err)
				continue
			}
			d.DueDate = &due
		}
		if v := get(rec, "duration"); v != "" {
			dur, err := time.ParseDuration(v)
			if err != nil {
				res.skip(where, fmt.Errorf("bad duration %q", v))
				continue
			}
			d.EstimatedMinutes = int(dur.Minutes())
		}
		res.add(d, where)
	}
	return res, nil
}

func parseDue(v string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad due date %q", v)
}

// FromHTML takes every <li> as a task; a page without list items is read as text.
func FromHTML(r io.Reader) (Result, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Result{}, fmt.Errorf("parse html: %w", err)
	}
	var items []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "li" {
			var b strings.Builder
			nodeText(n, &b)
			items = append(items, strings.Join(strings.Fields(b.String()), " "))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if len(items) == 0 {
		var b strings.Builder
		nodeText(doc, &b)
		return FromText(strings.NewReader(b.String()))
	}
	return FromText(strings.NewReader(strings.Join(items, "\n")))
}

func nodeText(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript":
			return
		case "br", "p", "div", "tr", "h1", "h2", "h3":
			b.WriteString("\n")
		}
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		nodeText(c, b)
	}
}

// FromPDF extracts the plain text of up to maxPages pages and reads it as a checklist.
func FromPDF(path string, maxPages int) (Result, error) {
	f, r, err := pdfx.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()
	total := r.NumPage()
	if maxPages <= 0 || maxPages > total {
		maxPages = total
	}
	var out strings.Builder
	for i := 1; i <= maxPages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		txt, err := p.GetPlainText(nil)
		if err != nil {
			return Result{}, fmt.Errorf("pdf page %d: %w", i, err)
		}
		out.WriteString(txt)
		out.WriteString("\n")
	}
	return FromText(strings.NewReader(out.String()))
}

// FromFile picks a reader by extension, falling back to content sniffing.
func FromFile(path string) (Result, error) {
	st, err := os.Stat(path)
	if err != nil {
		return Result{}, err
	}
	if st.Size() > MaxFileBytes {
		return Result{}, fmt.Errorf("file too large: %d bytes > limit %d", st.Size(), MaxFileBytes)
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "pdf" {
		return FromPDF(path, DefaultMaxPages)
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return Result{}, err
	}
	switch {
	case bytes.HasPrefix(buf, []byte("%PDF-")):
		return FromPDF(path, DefaultMaxPages)
	case ext == "csv":
		return FromCSV(bytes.NewReader(buf))
	case ext == "html" || ext == "htm" || looksHTML(buf):
		return FromHTML(bytes.NewReader(buf))
	}
	return FromText(bytes.NewReader(buf))
}

func looksHTML(buf []byte) bool {
	head := strings.ToLower(string(buf[:min(len(buf), 512)]))
	return strings.Contains(head, "<html") || strings.Contains(head, "<ul") || strings.Contains(head, "<body")
}
