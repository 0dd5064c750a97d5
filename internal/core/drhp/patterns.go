// Package drhp holds the pure prospectus logic: section header detection,
// keyword routing, section text assembly, numeric fact extraction and the
// quality label handed to downstream consumers.
package drhp

import (
	"regexp"

	"github.com/kirillkom/drhp-retrieval/internal/core/domain"
)

// SectionPattern maps one section tag to the header forms used by SEBI filings.
type SectionPattern struct {
	Tag      domain.SectionTag
	Patterns []*regexp.Regexp
}

// classifyWindow is how much of a text span is inspected for a header.
const classifyWindow = 500

// SectionPatterns is evaluated in order; the first family with a match wins.
var SectionPatterns = []SectionPattern{
	{Tag: domain.SectionRiskFactors, Patterns: compile(
		`SECTION\s+II[\s\-–]+RISK\s+FACTORS`,
		`CHAPTER\s+II[\s\-–]+RISK\s+FACTORS`,
		`^\s*RISK\s+FACTORS\s*$`,
		`RISK\s+FACTORS\s+AND\s+MATERIAL`,
	)},
	{Tag: domain.SectionObjects, Patterns: compile(
		`OBJECTS?\s+OF\s+THE\s+(?:OFFER|ISSUE)`,
		`USE\s+OF\s+(?:IPO\s+)?PROCEEDS`,
	)},
	{Tag: domain.SectionFinancials, Patterns: compile(
		`FINANCIAL\s+STATEMENTS?`,
		`RESTATED\s+(?:CONSOLIDATED\s+)?FINANCIAL`,
		`AUDITED\s+FINANCIAL`,
		`FINANCIAL\s+INFORMATION`,
	)},
	{Tag: domain.SectionPromoters, Patterns: compile(
		`(?:OUR\s+)?PROMOTERS?\s+AND\s+PROMOTER\s+GROUP`,
		`PROMOTER\s+BACKGROUND`,
		`ABOUT\s+THE\s+PROMOTER`,
	)},
	{Tag: domain.SectionLitigation, Patterns: compile(
		`LEGAL?\s+(?:AND\s+OTHER\s+)?PROCEEDINGS?`,
		`OUTSTANDING\s+LITIGATION`,
		`PENDING\s+LITIGATION`,
	)},
	{Tag: domain.SectionOverview, Patterns: compile(
		`(?:OUR\s+)?BUSINESS\s+OVERVIEW`,
		`INDUSTRY\s+OVERVIEW`,
		`ABOUT\s+(?:US|OUR\s+COMPANY|THE\s+COMPANY)`,
		`BUSINESS\s+DESCRIPTION`,
	)},
}

// compile makes every header pattern case-insensitive. Anchors stay bound to
// the whole window: a bare "RISK FACTORS" only counts when it is the entire
// span, so a contents page listing it does not open the section.
func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		out = append(out, regexp.MustCompile(`(?i)`+expr))
	}
	return out
}

// Classify returns the section whose header appears in the leading part of
// text, or general when none does.
func Classify(text string) domain.SectionTag {
	window := truncateRunes(text, classifyWindow)
	for _, family := range SectionPatterns {
		for _, re := range family.Patterns {
			if re.MatchString(window) {
				return family.Tag
			}
		}
	}
	return domain.SectionGeneral
}

func truncateRunes(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if len(text) <= limit {
		return text
	}
	count := 0
	for i := range text {
		if count == limit {
			return text[:i]
		}
		count++
	}
	return text
}
