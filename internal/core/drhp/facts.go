package drhp

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/kirillkom/drhp-retrieval/internal/core/domain"
)

var (
	revenuePattern = regexp.MustCompile(`(?i)revenue\s+from\s+operations[^\d]*([\d,]+\.?\d*)`)
	profitPattern  = regexp.MustCompile(`(?i)(?:profit\s+(?:after\s+tax|for\s+the\s+(?:year|period))|PAT)[^\d]*([\d,]+\.?\d*)`)
)

const (
	maxFactsPerKind = 3
	// Figures above this are reported in lakh and converted to crore.
	lakhThreshold = 10000
)

// ExtractFacts pulls revenue and profit figures out of prospectus text.
func ExtractFacts(text string) domain.FinancialFacts {
	return domain.FinancialFacts{
		RevenueCr: extractFigures(revenuePattern, text),
		ProfitCr:  extractFigures(profitPattern, text),
	}
}

func extractFigures(re *regexp.Regexp, text string) []float64 {
	matches := re.FindAllStringSubmatch(text, maxFactsPerKind)
	var out []float64
	for _, m := range matches {
		raw := strings.ReplaceAll(m[1], ",", "")
		v, err := strconv.ParseFloat(strings.TrimSuffix(raw, "."), 64)
		if err != nil {
			continue
		}
		if v > lakhThreshold {
			v = math.Round(v) / 100
		}
		out = append(out, v)
	}
	return out
}
