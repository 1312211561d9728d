package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"hn-digest/internal/model"

	"gopkg.in/yaml.v3"
)

// Format names an output encoding for a digest.
type Format string

const (
	FormatJSON     Format = "json"
	FormatJSONL    Format = "jsonl"
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatYAML     Format = "yaml"
)

// ParseFormat validates a format name from a flag or config value. An
// empty name means json.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case "md":
		return FormatMarkdown, nil
	case "yml":
		return FormatYAML, nil
	case FormatJSON, FormatJSONL, FormatText, FormatMarkdown, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q", s)
	}
}

// Ext returns the file extension digest files carry for the format.
func (f Format) Ext() string {
	switch f {
	case FormatJSONL:
		return ".jsonl"
	case FormatText:
		return ".txt"
	case FormatMarkdown:
		return ".md"
	case FormatYAML:
		return ".yaml"
	default:
		return ".json"
	}
}

// Renderer writes a digest in one of the supported formats. Title is only
// used by markdown; empty means a dated default.
type Renderer struct {
	Format Format
	Title  string
}

func (r Renderer) Render(w io.Writer, d model.Digest) error {
	switch r.Format {
	case FormatJSON, "":
		return renderJSON(w, d)
	case FormatJSONL:
		return renderJSONL(w, d)
	case FormatText:
		return renderText(w, d)
	case FormatMarkdown:
		return r.renderMarkdown(w, d)
	case FormatYAML:
		return renderYAML(w, d)
	default:
		return fmt.Errorf("unknown format %q", r.Format)
	}
}

// renderJSON writes the whole envelope, indented, with a trailing newline.
func renderJSON(w io.Writer, d model.Digest) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// renderJSONL writes one compact record per line, no envelope.
func renderJSONL(w io.Writer, d model.Digest) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, s := range d.Items {
		if err := enc.Encode(s); err != nil {
			return err
		}
	}
	return nil
}

func renderText(w io.Writer, d model.Digest) error {
	for _, s := range d.Items {
		_, err := fmt.Fprintf(w, "%d. %s (%s)\n   %s\n   %s\n",
			s.Rank, s.Title, points(s), s.URL, s.CommentsURL)
		if err != nil {
			return err
		}
	}
	return nil
}

func renderYAML(w io.Writer, d model.Digest) error {
	out, err := yaml.Marshal(d)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

func points(s model.Story) string {
	if s.Score == nil {
		return "no score"
	}
	return fmt.Sprintf("%d points", *s.Score)
}

func strVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func intVal(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
