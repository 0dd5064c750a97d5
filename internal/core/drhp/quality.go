package drhp

import "github.com/kirillkom/drhp-retrieval/internal/core/domain"

var coreSections = []domain.SectionTag{
	domain.SectionRiskFactors,
	domain.SectionFinancials,
	domain.SectionObjects,
}

// Assess labels how much of the prospectus was usable.
func Assess(sectionsFound []domain.SectionTag, facts domain.FinancialFacts) domain.Quality {
	found := make(map[domain.SectionTag]struct{}, len(sectionsFound))
	for _, tag := range sectionsFound {
		if tag == domain.SectionGeneral || tag == "" {
			continue
		}
		found[tag] = struct{}{}
	}

	core := 0
	for _, tag := range coreSections {
		if _, ok := found[tag]; ok {
			core++
		}
	}
	if core >= len(coreSections) && facts.Count() > 0 {
		return domain.QualityFull
	}

	_, hasRisk := found[domain.SectionRiskFactors]
	if len(found) >= 2 || hasRisk {
		return domain.QualityPartial
	}
	return domain.QualityLimited
}

// QualityNote is the disclosure line shown next to data of the given quality.
func QualityNote(q domain.Quality) string {
	switch q {
	case domain.QualityFull:
		return "Full DRHP analysed - all major sections extracted."
	case domain.QualityPartial:
		return "Partial DRHP - some sections extracted, others unavailable."
	default:
		return "Limited data - full DRHP not yet loaded."
	}
}
