package drhp

import (
	"sort"
	"strings"

	"github.com/kirillkom/drhp-retrieval/internal/core/domain"
)

type routeKeywords struct {
	Tag      domain.SectionTag
	Keywords []string
}

// routingTable is also the tie-break order for equal keyword counts.
var routingTable = []routeKeywords{
	{Tag: domain.SectionRiskFactors, Keywords: []string{
		"risk", "danger", "concern", "worry", "problem", "issue", "threat", "challenge",
		"red flag", "negative", "downside", "caution", "careful", "beware", "pitfall",
	}},
	{Tag: domain.SectionLitigation, Keywords: []string{
		"litigation", "legal", "court", "case", "lawsuit", "dispute", "pending", "proceeding",
		"criminal", "fraud", "sebi", "regulatory", "fine", "penalty", "complaint",
	}},
	{Tag: domain.SectionFinancials, Keywords: []string{
		"revenue", "profit", "loss", "financial", "income", "ebitda", "margin", "growth",
		"sales", "turnover", "pat", "cash flow", "balance sheet", "debt", "ratio", "pe",
		"valuation", "expensive", "cheap", "worth", "price", "earning",
	}},
	{Tag: domain.SectionObjects, Keywords: []string{
		"use", "fund", "proceed", "money", "invest", "capex", "purpose", "plan", "expansion",
		"working capital", "objective", "object", "utilise", "utilization", "spend",
	}},
	{Tag: domain.SectionPromoters, Keywords: []string{
		"promoter", "founder", "management", "director", "background", "experience",
		"pledge", "holding", "stake", "who", "team", "leadership", "ceo", "md",
	}},
	{Tag: domain.SectionOverview, Keywords: []string{
		"business", "company", "product", "service", "sector",
		"industry", "operation", "client", "customer", "market", "compete", "peer",
	}},
}

// DefaultRouteOrder is returned when a question matches no keyword at all.
var DefaultRouteOrder = []domain.SectionTag{
	domain.SectionRiskFactors,
	domain.SectionLitigation,
	domain.SectionFinancials,
	domain.SectionObjects,
	domain.SectionPromoters,
	domain.SectionOverview,
}

var alwaysRouted = []domain.SectionTag{domain.SectionRiskFactors, domain.SectionLitigation}

// Route orders section tags by how many of their keywords occur in question.
// The result is never empty.
func Route(question string) []domain.SectionTag {
	q := strings.ToLower(question)

	type scored struct {
		tag   domain.SectionTag
		count int
	}
	hits := make([]scored, 0, len(routingTable))
	for _, entry := range routingTable {
		n := 0
		for _, kw := range entry.Keywords {
			if strings.Contains(q, kw) {
				n++
			}
		}
		if n > 0 {
			hits = append(hits, scored{tag: entry.Tag, count: n})
		}
	}
	if len(hits) == 0 {
		return append([]domain.SectionTag(nil), DefaultRouteOrder...)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].count > hits[j].count
	})

	out := make([]domain.SectionTag, 0, len(hits)+len(alwaysRouted))
	for _, h := range hits {
		out = append(out, h.tag)
	}
	for _, tag := range alwaysRouted {
		if !containsTag(out, tag) {
			out = append(out, tag)
		}
	}
	return out
}

func containsTag(tags []domain.SectionTag, tag domain.SectionTag) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
