package render

import (
	_ "embed"
	"fmt"
	"io"
	"strings"
	"text/template"

	"hn-digest/internal/model"
)

//go:embed digest.tmpl
var digestTpl string

var compiled = template.Must(template.New("digest").Parse(digestTpl))

type markdownData struct {
	Title       string
	GeneratedAt string
	List        string
	Hours       int
	Count       int
	Items       []markdownItem
}

type markdownItem struct {
	Rank        int
	Title       string
	URL         string
	CommentsURL string
	Points      string
	By          string
	Comments    int
}

func (r Renderer) renderMarkdown(w io.Writer, d model.Digest) error {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		title = defaultTitle(d)
	}
	data := markdownData{
		Title:       title,
		GeneratedAt: d.GeneratedAt,
		List:        d.List,
		Hours:       d.Hours,
		Count:       d.Count,
		Items:       make([]markdownItem, 0, len(d.Items)),
	}
	for _, s := range d.Items {
		data.Items = append(data.Items, markdownItem{
			Rank:        s.Rank,
			Title:       s.Title,
			URL:         s.URL,
			CommentsURL: s.CommentsURL,
			Points:      points(s),
			By:          strVal(s.By),
			Comments:    intVal(s.Descendants),
		})
	}
	return compiled.Execute(w, data)
}

func defaultTitle(d model.Digest) string {
	date := d.GeneratedAt
	if len(date) > 10 {
		date = date[:10]
	}
	return fmt.Sprintf("Hacker News Digest %s", date)
}
