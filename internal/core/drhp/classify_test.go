package drhp

import (
	"strings"
	"testing"

	"github.com/kirillkom/drhp-retrieval/internal/core/domain"
)

func TestClassifyDetectsStandardHeaders(t *testing.T) {
	cases := []struct {
		text string
		want domain.SectionTag
	}{
		{"SECTION II - RISK FACTORS\nAn investment in equity shares involves risk.", domain.SectionRiskFactors},
		{"RISK FACTORS", domain.SectionRiskFactors},
		{"  Risk Factors \n", domain.SectionRiskFactors},
		{"Objects of the Offer\nThe net proceeds will be used for capex.", domain.SectionObjects},
		{"USE OF IPO PROCEEDS", domain.SectionObjects},
		{"RESTATED CONSOLIDATED FINANCIAL INFORMATION", domain.SectionFinancials},
		{"OUR PROMOTERS AND PROMOTER GROUP", domain.SectionPromoters},
		{"OUTSTANDING LITIGATION AND MATERIAL DEVELOPMENTS", domain.SectionLitigation},
		{"INDUSTRY OVERVIEW\nThe Indian market for specialty chemicals...", domain.SectionOverview},
		{"The company was incorporated in 2004 at Pune.", domain.SectionGeneral},
	}
	for _, tc := range cases {
		if got := Classify(tc.text); got != tc.want {
			t.Fatalf("Classify(%q) = %s, want %s", tc.text, got, tc.want)
		}
	}
}

func TestClassifyUsesTableOrder(t *testing.T) {
	// Both a risk and a financials header: risk_factors comes first in the table.
	text := "FINANCIAL STATEMENTS\nRISK FACTORS AND MATERIAL DEVELOPMENTS"
	if got := Classify(text); got != domain.SectionRiskFactors {
		t.Fatalf("expected risk_factors, got %s", got)
	}
}

func TestClassifyIgnoresBareRiskHeaderInsideLargerSpan(t *testing.T) {
	cases := []string{
		"CONTENTS\nRISK FACTORS\nINTRODUCTION",
		"RISK FACTORS\nThe following risks are material.",
	}
	for _, text := range cases {
		if got := Classify(text); got != domain.SectionGeneral {
			t.Fatalf("Classify(%q) = %s, want general", text, got)
		}
	}
}

func TestClassifyOnlyInspectsLeadingWindow(t *testing.T) {
	text := strings.Repeat("x", classifyWindow) + " OBJECTS OF THE ISSUE"
	if got := Classify(text); got != domain.SectionGeneral {
		t.Fatalf("expected header beyond the window to be ignored, got %s", got)
	}
}

func TestTruncateRunesKeepsRuneBoundaries(t *testing.T) {
	got := truncateRunes("₹₹₹₹", 2)
	if got != "₹₹" {
		t.Fatalf("unexpected truncation: %q", got)
	}
}
