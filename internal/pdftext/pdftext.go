// Package pdftext extracts plain text from PDF documents using pdfcpu.
//
// A page with no extractable text yields an empty string, not an error:
// some PDFs disallow extraction and scanned documents carry no text at all.
// Errors are reserved for parse and I/O failures.
package pdftext

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Document wraps a parsed PDF and exposes page-level text extraction.
type Document struct {
	ctx *model.Context
}

// Load parses and validates raw PDF bytes.
func Load(data []byte) (*Document, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("pdftext: read: %w", err)
	}
	return &Document{ctx: ctx}, nil
}

// PageCount returns the number of pages in the document.
func (d *Document) PageCount() int {
	return d.ctx.PageCount
}

// PageText returns the text of page n (1-based) flattened into a single
// whitespace-joined string. Pages outside the document range are an error;
// pages without extractable text return "".
func (d *Document) PageText(n int) (string, error) {
	if n < 1 || n > d.ctx.PageCount {
		return "", fmt.Errorf("pdftext: page %d out of range (1..%d)", n, d.ctx.PageCount)
	}
	r, err := pdfcpu.ExtractPageContent(d.ctx, n)
	if err != nil {
		return "", fmt.Errorf("pdftext: extract page %d: %w", n, err)
	}
	if r == nil {
		return "", nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("pdftext: read page %d content: %w", n, err)
	}
	return textFromStream(data), nil
}

// Text extracts every page once, in order, and joins the non-empty pages
// with blank lines. Used by whole-document summarization; callers are
// expected to memoize the result.
func (d *Document) Text() (string, error) {
	var b strings.Builder
	for n := 1; n <= d.ctx.PageCount; n++ {
		text, err := d.PageText(n)
		if err != nil {
			return "", err
		}
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}
	return b.String(), nil
}
