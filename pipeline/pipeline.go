// Package pipeline turns an input document into a paginated book: parse,
// style, run user scripts and place footnotes.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/chrisuehlinger/folio/footnotes"
	"github.com/chrisuehlinger/folio/html"
	"github.com/chrisuehlinger/folio/js"
	"github.com/chrisuehlinger/folio/layout"
	"github.com/chrisuehlinger/folio/paged"
)

// Format is the markup of a source document.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

// ErrUnsupportedFormat is returned for a source format other than HTML or
// Markdown.
var ErrUnsupportedFormat = errors.New("pipeline: unsupported source format")

// FormatFor returns the format matching a file name extension.
func FormatFor(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm", ".xhtml":
		return FormatHTML, nil
	case ".md", ".markdown":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
}

// Script is a user script run during pagination.
type Script struct {
	Name string
	Code string
}

// Job describes one render.
type Job struct {
	Source []byte
	Format Format
	// Stylesheets are applied before the <style> elements of the source.
	Stylesheets []string
	Scripts     []Script
	Options     paged.Options
}

// Result is a rendered book with the engine that measured it.
type Result struct {
	Book      *paged.Book
	Engine    *layout.Engine
	Footnotes *footnotes.Handler
}

// Run renders job. Each call builds its own chunker and handlers.
func Run(ctx context.Context, job Job, log *slog.Logger) (*Result, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	var (
		src *html.Source
		err error
	)
	switch job.Format {
	case FormatHTML, "":
		src, err = html.Parse(bytes.NewReader(job.Source))
	case FormatMarkdown:
		src, err = html.ParseMarkdown(job.Source)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, job.Format)
	}
	if err != nil {
		return nil, err
	}

	opts := job.Options
	opts.Logger = log
	c := paged.New(opts)
	if len(job.Scripts) > 0 {
		h := js.NewHandler(log.With("component", "js"))
		for _, s := range job.Scripts {
			if err := h.Load(s.Code, s.Name); err != nil {
				return nil, err
			}
		}
		c.Register(h)
	}
	notes := footnotes.New(c.Engine(), log.With("component", "footnotes"))
	c.Register(notes)

	sheets := append(append([]string{}, job.Stylesheets...), src.Styles...)
	book, err := c.Render(ctx, src.Document, sheets...)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	if n := notes.Pending(); n > 0 {
		log.Warn("footnote content left unplaced", "fragments", n)
	}
	return &Result{Book: book, Engine: c.Engine(), Footnotes: notes}, nil
}
