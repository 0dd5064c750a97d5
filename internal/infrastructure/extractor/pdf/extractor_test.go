package pdf

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/kirillkom/drhp-retrieval/internal/core/domain"
)

// buildPDF writes a minimal uncompressed PDF with one Helvetica text run per
// page. Object layout: catalog, page tree, font, then a page and its content
// stream for every page.
func buildPDF(pages ...string) []byte {
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}
	for i, text := range pages {
		content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestNormalize(t *testing.T) {
	in := "  RISK\x00 FACTORS\t\t and   more\n\n\n\n\nnext para  "
	want := "RISK FACTORS and more\n\nnext para"
	if got := Normalize(in); got != want {
		t.Fatalf("unexpected normalized text: %q", got)
	}
}

func TestNormalizeWhitespaceOnly(t *testing.T) {
	if got := Normalize(" \t\n\n\n \x00 "); got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
}

func TestExtractReturnsNormalizedNonEmptyPages(t *testing.T) {
	raw := buildPDF("RISK FACTORS   page one", "   ", "Page three text")

	res := NewExtractor(nil).Extract(context.Background(), bytes.NewReader(raw))
	if res.Failed {
		t.Fatalf("unexpected failure: %s", res.Reason)
	}
	if res.TotalPages != 3 || res.SkippedPages != 0 {
		t.Fatalf("unexpected page counts: total=%d skipped=%d", res.TotalPages, res.SkippedPages)
	}
	want := []domain.Page{
		{Number: 1, Text: "RISK FACTORS page one"},
		{Number: 3, Text: "Page three text"},
	}
	if !reflect.DeepEqual(res.Pages, want) {
		t.Fatalf("pages = %+v, want %+v", res.Pages, want)
	}
}

func TestExtractStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := NewExtractor(nil).Extract(ctx, bytes.NewReader(buildPDF("Page one text")))
	if !res.Failed || !strings.Contains(res.Reason, "cancelled") {
		t.Fatalf("expected cancelled extraction, got %+v", res)
	}
}

func TestExtractCorruptBytesFails(t *testing.T) {
	e := NewExtractor(nil)
	res := e.Extract(context.Background(), bytes.NewReader([]byte("this is not a pdf at all")))
	if !res.Failed {
		t.Fatalf("expected failed extraction")
	}
	if res.Reason == "" {
		t.Fatalf("expected failure reason")
	}
	if len(res.Pages) != 0 {
		t.Fatalf("expected no pages, got %d", len(res.Pages))
	}
	if !res.Empty() {
		t.Fatalf("failed extraction must be empty")
	}
}

func TestExtractEmptyInputFails(t *testing.T) {
	e := NewExtractor(nil)
	res := e.Extract(context.Background(), bytes.NewReader(nil))
	if !res.Failed {
		t.Fatalf("expected failed extraction for empty input")
	}
}
