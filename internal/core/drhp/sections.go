package drhp

import (
	"sort"
	"strings"

	"github.com/kirillkom/drhp-retrieval/internal/core/domain"
)

// SectionCaps bounds each stored section text so downstream prompts stay small.
var SectionCaps = map[domain.SectionTag]int{
	domain.SectionRiskFactors: 6000,
	domain.SectionFinancials:  5000,
	domain.SectionObjects:     3000,
	domain.SectionLitigation:  3000,
	domain.SectionPromoters:   2500,
	domain.SectionOverview:    2500,
}

// AssembleSections concatenates chunks of each named section in sequence
// order, dropping the overlap carried from the previous chunk, and caps the
// result. The second return value lists non-empty sections in canonical order.
func AssembleSections(chunks []domain.Chunk, overlap int) (domain.SectionTexts, []domain.SectionTag) {
	ordered := append([]domain.Chunk(nil), chunks...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Index < ordered[j].Index
	})

	builders := make(map[domain.SectionTag]*strings.Builder, len(domain.CanonicalSections))
	var prev *domain.Chunk
	for i := range ordered {
		c := &ordered[i]
		limit, named := SectionCaps[c.Section]
		if !named {
			prev = c
			continue
		}
		b := builders[c.Section]
		if b == nil {
			b = &strings.Builder{}
			builders[c.Section] = b
		}
		if b.Len() >= limit {
			prev = c
			continue
		}

		text := c.Text
		if prev != nil && prev.Section == c.Section && prev.Index == c.Index-1 {
			text = trimOverlap(prev.Text, text, overlap)
		}
		text = strings.TrimSpace(text)
		if text != "" {
			if b.Len() > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(text)
		}
		prev = c
	}

	var texts domain.SectionTexts
	var found []domain.SectionTag
	for _, tag := range domain.CanonicalSections {
		b := builders[tag]
		if b == nil {
			continue
		}
		text := strings.TrimSpace(truncateRunes(b.String(), SectionCaps[tag]))
		if text == "" {
			continue
		}
		texts.Set(tag, text)
		found = append(found, tag)
	}
	return texts, found
}

// trimOverlap removes the longest prefix of next (at most maxOverlap bytes)
// that is also a suffix of prev.
func trimOverlap(prev, next string, maxOverlap int) string {
	k := maxOverlap
	if k > len(prev) {
		k = len(prev)
	}
	if k > len(next) {
		k = len(next)
	}
	for ; k > 0; k-- {
		if strings.HasPrefix(next, prev[len(prev)-k:]) {
			return next[k:]
		}
	}
	return next
}
