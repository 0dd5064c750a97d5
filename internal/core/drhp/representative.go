package drhp

import "github.com/kirillkom/drhp-retrieval/internal/core/domain"

// RepresentativeQuery is the fixed question used to pick one passage for a
// section in a whole-document summary.
type RepresentativeQuery struct {
	Section  domain.SectionTag
	Question string
}

var RepresentativeQueries = []RepresentativeQuery{
	{Section: domain.SectionRiskFactors, Question: "what are the main risks and red flags investors should know"},
	{Section: domain.SectionFinancials, Question: "revenue profit financial performance growth trends"},
	{Section: domain.SectionObjects, Question: "how will IPO proceeds be used capital expenditure"},
	{Section: domain.SectionPromoters, Question: "who are the promoters background experience management"},
	{Section: domain.SectionLitigation, Question: "outstanding litigation legal cases court proceedings"},
	{Section: domain.SectionOverview, Question: "business overview what does the company do products services"},
}
