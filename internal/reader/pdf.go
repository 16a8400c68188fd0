package reader

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"

	"github.com/dgallion1/manualqa/internal/document"
)

// OpenPDF reads a PDF into per-page text plus its outline. unipdf is the
// primary backend because it resolves outline destinations to page numbers;
// when it cannot open the file we fall back to ledongthuc/pdf, which yields
// text only (no outline, so chapter detection runs heuristically).
func OpenPDF(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	doc, err := openPDFUnidoc(data, path)
	if err == nil {
		return doc, nil
	}
	return openPDFFallback(path, err)
}

func openPDFUnidoc(data []byte, path string) (Document, error) {
	pdfReader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return nil, fmt.Errorf("page count: %w", err)
	}

	pages := make([]string, numPages)
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			continue
		}
		ex, err := extractor.New(page)
		if err != nil {
			continue
		}
		text, err := ex.ExtractText()
		if err != nil {
			continue
		}
		pages[i-1] = text
	}

	return &pagedDocument{
		pages:   pages,
		outline: pdfOutline(pdfReader, numPages),
		source:  SourceLabel(path),
	}, nil
}

// pdfOutline flattens the document outline tree into (level, title, page)
// entries in appearance order. Entries whose destination page could not be
// resolved are dropped; an unresolvable outline is the same as no outline.
func pdfOutline(pdfReader *model.PdfReader, numPages int) []document.OutlineEntry {
	outline, err := pdfReader.GetOutlines()
	if err != nil || outline == nil {
		return nil
	}

	var entries []document.OutlineEntry
	var walk func(items []*model.OutlineItem, level int)
	walk = func(items []*model.OutlineItem, level int) {
		for _, item := range items {
			if item == nil {
				continue
			}
			title := strings.TrimSpace(item.Title)
			page := int(item.Dest.Page) // 0-indexed in unipdf
			if title != "" && page >= 0 && page < numPages {
				entries = append(entries, document.OutlineEntry{
					Level: level,
					Title: title,
					Page:  page + 1,
				})
			}
			walk(item.Entries, level+1)
		}
	}
	walk(outline.Entries, 1)
	return entries
}

// openPDFFallback extracts text with ledongthuc/pdf. The library needs a
// file path, which we already have, so no temp file is required here.
func openPDFFallback(path string, primaryErr error) (Document, error) {
	f, r, err := pdflib.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf (fallback after %v): %w", primaryErr, err)
	}
	defer f.Close()

	numPages := r.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}

	return &pagedDocument{pages: pages, source: SourceLabel(path)}, nil
}
