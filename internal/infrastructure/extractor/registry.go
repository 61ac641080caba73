package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kirillkom/contract-clause-checker/internal/core/domain"
)

// Format turns one kind of document into plain text.
type Format interface {
	Extensions() []string
	ExtractText(ctx context.Context, data []byte) (string, error)
}

// Registry dispatches extraction by file extension and implements
// ports.TextExtractor.
type Registry struct {
	formats map[string]Format
}

func NewRegistry(formats ...Format) *Registry {
	r := &Registry{formats: make(map[string]Format)}
	for _, f := range formats {
		for _, ext := range f.Extensions() {
			r.formats[strings.ToLower(ext)] = f
		}
	}
	return r
}

func (r *Registry) Supports(filename string) bool {
	_, ok := r.formats[extension(filename)]
	return ok
}

func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.formats))
	for ext := range r.formats {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	format, ok := r.formats[extension(filename)]
	if !ok {
		return "", &domain.ExtractionError{
			Filename: filename,
			Reason:   fmt.Sprintf("unsupported file type, expected one of %s", strings.Join(r.Extensions(), ", ")),
		}
	}

	raw, err := format.ExtractText(ctx, data)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &domain.ExtractionError{Filename: filename, Reason: "document is corrupt or unreadable", Err: err}
	}

	text := Normalize(raw)
	if text == "" {
		return "", &domain.ExtractionError{Filename: filename, Reason: "no text could be extracted"}
	}
	return text, nil
}

// Normalize unifies line endings, strips trailing spaces and collapses runs
// of blank lines so paragraph breaks survive as a single empty line.
func Normalize(raw string) string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	raw = strings.ReplaceAll(raw, "\u00a0", " ")
	raw = strings.ReplaceAll(raw, "\x00", "")

	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\f\v")
		if strings.TrimSpace(line) == "" {
			blank++
			if blank > 1 {
				continue
			}
			line = ""
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func extension(filename string) string {
	return strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
}
