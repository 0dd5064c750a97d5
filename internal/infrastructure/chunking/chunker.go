package chunking

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kirillkom/drhp-retrieval/internal/core/domain"
	"github.com/kirillkom/drhp-retrieval/internal/core/drhp"
)

const (
	DefaultChunkSize     = 3200
	DefaultOverlap       = 400
	DefaultMinChunkChars = 100

	charsPerToken = 4
)

var (
	leadingPageMarker = regexp.MustCompile(`^\[PAGE:(\d+)\]\n?`)
	anyPageMarker     = regexp.MustCompile(`\[PAGE:\d+\]\n?`)
	paragraphBreak    = regexp.MustCompile(`\n\n+`)
)

// Chunker merges pages into one marked stream and cuts it into overlapping,
// paragraph-aligned chunks. Sizes are in characters.
type Chunker struct {
	ChunkSize     int
	Overlap       int
	MinChunkChars int
}

func NewChunker(chunkSize, overlap, minChunkChars int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	if minChunkChars < 0 {
		minChunkChars = DefaultMinChunkChars
	}
	return &Chunker{
		ChunkSize:     chunkSize,
		Overlap:       overlap,
		MinChunkChars: minChunkChars,
	}
}

func (c *Chunker) Chunk(pages []domain.Page) []domain.Chunk {
	if len(pages) == 0 {
		return nil
	}

	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		parts = append(parts, fmt.Sprintf("[PAGE:%d]\n%s", p.Number, p.Text))
	}
	paragraphs := paragraphBreak.Split(strings.Join(parts, "\n\n"), -1)

	var (
		out         []domain.Chunk
		buffer      string
		bufferPage  = pages[0].Number
		currentPage = pages[0].Number
		section     = domain.SectionGeneral
	)

	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if m := leadingPageMarker.FindStringSubmatch(para); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				currentPage = n
			}
			para = strings.TrimSpace(para[len(m[0]):])
			if para == "" {
				continue
			}
		}

		// A closed chunk keeps the section it was built under; the header
		// paragraph opens the next one.
		switch {
		case buffer == "":
			buffer = para
			bufferPage = currentPage
		case runeLen(buffer)+2+runeLen(para) > c.ChunkSize:
			out = c.appendChunk(out, buffer, bufferPage, section)
			buffer = tailRunes(buffer, c.Overlap) + "\n\n" + para
			bufferPage = currentPage
		default:
			buffer = buffer + "\n\n" + para
		}

		if detected := drhp.Classify(para); detected != domain.SectionGeneral {
			section = detected
		}
	}

	out = c.appendChunk(out, buffer, bufferPage, section)
	return out
}

// appendChunk records buffer as the next chunk unless it is too short to be
// meaningful. Leading whitespace is kept so the overlap seed, separator
// included, stays a prefix of the chunk.
func (c *Chunker) appendChunk(out []domain.Chunk, buffer string, page int, section domain.SectionTag) []domain.Chunk {
	if runeLen(strings.TrimSpace(buffer)) <= c.MinChunkChars {
		return out
	}
	text := strings.TrimRightFunc(anyPageMarker.ReplaceAllString(buffer, ""), unicode.IsSpace)
	if strings.TrimSpace(text) == "" {
		return out
	}
	return append(out, domain.Chunk{
		PageNumber:    page,
		Section:       section,
		Index:         len(out),
		Text:          text,
		TokenEstimate: runeLen(buffer) / charsPerToken,
	})
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func tailRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := runeLen(s)
	if count <= n {
		return s
	}
	skip := count - n
	for i := range s {
		if skip == 0 {
			return s[i:]
		}
		skip--
	}
	return ""
}
