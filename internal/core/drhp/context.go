package drhp

import (
	"fmt"
	"strings"

	"github.com/kirillkom/drhp-retrieval/internal/core/domain"
)

const (
	notIndexedNotice = "No DRHP passages available: the prospectus for this IPO has not been indexed yet."
	noRelevantNotice = "No DRHP passages available: the prospectus does not appear to cover this question."
)

// BuildPassageContext renders retrieved passages with page citations, or an
// explicit notice when there is nothing to cite.
func BuildPassageContext(quality domain.Quality, result *domain.RetrievalResult) string {
	if result == nil || result.Status == domain.RetrievalNotIndexed {
		return notIndexedNotice
	}
	if result.Status == domain.RetrievalNoRelevant || len(result.Chunks) == 0 {
		return noRelevantNotice
	}
	if quality == "" {
		quality = domain.QualityLimited
	}

	var b strings.Builder
	fmt.Fprintf(&b, "DRHP PASSAGES [%s] %s\n\n", strings.ToUpper(string(quality)), QualityNote(quality))
	for _, c := range result.Chunks {
		fmt.Fprintf(&b, "[p.%d | %s | %.2f]\n%s\n\n", c.PageNumber, c.Section, c.Similarity, c.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

// BuildSectionContext renders routed section texts in order until maxChars is
// reached. It returns the rendered context and the sections included.
func BuildSectionContext(doc *domain.Document, order []domain.SectionTag, maxChars int) (string, []domain.SectionTag) {
	if doc == nil {
		return "", nil
	}

	var parts []string
	var used []domain.SectionTag
	total := 0
	for _, tag := range order {
		text := strings.TrimSpace(doc.Sections.Get(tag))
		if text == "" {
			continue
		}
		block := fmt.Sprintf("## %s (from DRHP)\n%s", SectionLabel(tag), text)
		if maxChars > 0 && total+len(block) > maxChars {
			break
		}
		parts = append(parts, block)
		used = append(used, tag)
		total += len(block)
	}
	if len(parts) == 0 {
		return "", nil
	}

	quality := doc.Quality
	if quality == "" {
		quality = domain.QualityLimited
	}
	found := make([]string, 0, len(doc.SectionsFound))
	for _, tag := range doc.SectionsFound {
		found = append(found, string(tag))
	}

	header := fmt.Sprintf("DRHP DATA [%s] %s\nSections available: %s\n\n",
		strings.ToUpper(string(quality)), QualityNote(quality), strings.Join(found, ", "))
	return header + strings.Join(parts, "\n\n"), used
}

// SectionLabel turns risk_factors into "Risk Factors".
func SectionLabel(tag domain.SectionTag) string {
	words := strings.Split(string(tag), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
