package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	dspdf "github.com/dslipak/pdf"
	"github.com/ledongthuc/pdf"

	"github.com/yungbote/paperlens-backend/internal/pkg/errkind"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
)

var ErrNoText = errors.New("no extractable text (scanned, encrypted or empty PDF)")

type Metadata struct {
	Title     string   `json:"title,omitempty"`
	Authors   []string `json:"authors,omitempty"`
	PageCount int      `json:"page_count"`
}

type Result struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
	// OCR is set when the text came from the OCR fallback.
	OCR bool `json:"ocr,omitempty"`
}

// OCR recognizes text in image-only PDFs.
type OCR interface {
	ProcessPDF(ctx context.Context, data []byte) (string, error)
}

type Extractor struct {
	log *logger.Logger
	ocr OCR
}

// NewExtractor builds an extractor; ocr may be nil.
func NewExtractor(log *logger.Logger, ocr OCR) *Extractor {
	return &Extractor{log: log.With("component", "PDFExtractor"), ocr: ocr}
}

func IsPDF(b []byte) bool {
	return len(b) >= 5 && string(b[:5]) == "%PDF-"
}

// Extract returns cleaned text and metadata. Failures are parse-kind errors.
func (e *Extractor) Extract(ctx context.Context, data []byte) (*Result, error) {
	if len(data) == 0 {
		return nil, errkind.Parse("pdf_extract", errors.New("empty file"))
	}
	if !IsPDF(data) {
		return nil, errkind.Parse("pdf_extract", fmt.Errorf("missing %%PDF header"))
	}

	meta, _ := Probe(data)
	raw, err := extractPrimary(data)
	if err != nil || strings.TrimSpace(raw) == "" {
		if err != nil {
			e.log.Debug("primary pdf reader failed; trying fallback", "error", err)
		}
		raw, err = extractFallback(data)
	}
	text := CleanText(raw)
	if text != "" {
		if meta.Title == "" {
			meta.Title = GuessTitle(text)
		}
		return &Result{Text: text, Metadata: meta}, nil
	}

	if e.ocr != nil {
		ocrText, ocrErr := e.ocr.ProcessPDF(ctx, data)
		if ocrErr != nil {
			e.log.Warn("ocr fallback failed", "error", ocrErr)
		} else if text = CleanText(ocrText); text != "" {
			if meta.Title == "" {
				meta.Title = GuessTitle(text)
			}
			return &Result{Text: text, Metadata: meta, OCR: true}, nil
		}
	}
	if err != nil {
		return nil, errkind.Parse("pdf_extract", fmt.Errorf("%w: %v", ErrNoText, err))
	}
	return nil, errkind.Parse("pdf_extract", ErrNoText)
}

// Probe reads document metadata without extracting text.
func Probe(data []byte) (meta Metadata, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf probe panic: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return meta, fmt.Errorf("pdf reader: %w", err)
	}
	meta.PageCount = r.NumPage()
	info := r.Trailer().Key("Info")
	meta.Title = strings.TrimSpace(info.Key("Title").Text())
	meta.Authors = splitAuthors(info.Key("Author").Text())
	return meta, nil
}

func extractPrimary(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pageText, perr := p.GetPlainText(nil)
		if perr != nil {
			return "", fmt.Errorf("pdf page %d: %w", i, perr)
		}
		if strings.TrimSpace(pageText) != "" {
			b.WriteString(pageText)
			b.WriteString("\n\n")
		}
	}
	return b.String(), nil
}

func extractFallback(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fallback pdf reader panic: %v", r)
		}
	}()
	r, err := dspdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("fallback pdf reader: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("fallback pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("fallback pdf read: %w", err)
	}
	return string(b), nil
}

func splitAuthors(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	sep := ","
	if strings.Contains(raw, ";") {
		sep = ";"
	}
	var out []string
	for _, part := range strings.Split(raw, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
