package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	lpdf "github.com/ledongthuc/pdf"

	"github.com/kirillkom/drhp-retrieval/internal/core/domain"
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t]+`)
	blankLines      = regexp.MustCompile(`\n{3,}`)
)

// Extractor reads per-page plain text from PDF bytes.
type Extractor struct {
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Extract never returns an error: an unreadable document is reported through
// the Failed flag and unreadable pages are skipped and counted.
func (e *Extractor) Extract(ctx context.Context, r io.Reader) domain.ExtractionResult {
	raw, err := io.ReadAll(r)
	if err != nil {
		return failed(fmt.Sprintf("read pdf: %v", err))
	}
	if len(raw) == 0 {
		return failed("empty pdf")
	}

	reader, err := openReader(raw)
	if err != nil {
		return failed(fmt.Sprintf("open pdf: %v", err))
	}

	total := reader.NumPage()
	result := domain.ExtractionResult{TotalPages: total}
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return failed(fmt.Sprintf("extraction cancelled: %v", err))
		}

		text, err := pageText(reader, i)
		if err != nil {
			result.SkippedPages++
			e.logger.Warn("pdf_page_skipped", "page", i, "error", err)
			continue
		}
		text = Normalize(text)
		if text == "" {
			continue
		}
		result.Pages = append(result.Pages, domain.Page{Number: i, Text: text})
	}
	return result
}

// Normalize strips NUL bytes and collapses runs of horizontal whitespace and
// blank lines.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	text = horizontalSpace.ReplaceAllString(text, " ")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func failed(reason string) domain.ExtractionResult {
	return domain.ExtractionResult{Failed: true, Reason: reason}
}

// The pdf library panics on some malformed inputs.
func openReader(raw []byte) (reader *lpdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reader = nil
			err = fmt.Errorf("malformed pdf: %v", rec)
		}
	}()
	return lpdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
}

func pageText(reader *lpdf.Reader, number int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = fmt.Errorf("page %d: %v", number, rec)
		}
	}()

	page := reader.Page(number)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}
