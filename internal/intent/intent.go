// Package intent maps free-text merchant questions to an analytical intent
// and a reporting period. Classification is keyword-driven: no model call is
// needed to decide which query to run.
package intent

import "strings"

// Kind is a recognized analytical intent.
type Kind string

const (
	// KindProfit asks how to improve profitability; answered with a sales
	// summary combined with the popular-items ranking.
	KindProfit Kind = "profit"
	// KindPopularItems asks for the merchant's best sellers.
	KindPopularItems Kind = "popular_items"
	// KindSales asks about sales or revenue performance.
	KindSales Kind = "sales"
	// KindRegional asks what to sell in a region; answered with the city
	// cuisine ranking.
	KindRegional Kind = "regional_recommendation"
	// KindGeneral is the fallback: no data query, conversation only.
	KindGeneral Kind = "general"
)

// Classifier matches messages against keyword rules. Precedence follows the
// order Classify checks the intent kinds; the first match wins, except that
// popular-items yields to regional phrasing so "top cuisines in my area"
// lands on the regional intent.
type Classifier struct {
	rules Rules
}

// NewClassifier creates a classifier for the given rules. Empty rule lists
// are filled from the built-in defaults.
func NewClassifier(rules Rules) *Classifier {
	return &Classifier{rules: rules.withDefaults()}
}

// Classify determines the analytical intent of a user message.
func (c *Classifier) Classify(message string) Kind {
	msg := strings.ToLower(message)

	regional := containsAny(msg, c.rules.Regional)
	switch {
	case containsAny(msg, c.rules.Profit):
		return KindProfit
	case containsAny(msg, c.rules.PopularItems) && !regional:
		return KindPopularItems
	case containsAny(msg, c.rules.Sales):
		return KindSales
	case regional && containsAny(msg, c.rules.RegionalTriggers):
		return KindRegional
	default:
		return KindGeneral
	}
}

// TimePeriod extracts the reporting period from a message. Explicit phrasing
// ("last week", "past 90 days") wins; otherwise recommendation-flavored
// questions default to 90 days and everything else to 30.
func (c *Classifier) TimePeriod(message string) string {
	msg := strings.ToLower(message)

	switch {
	case containsAny(msg, []string{"last 3 months", "past 90 days"}):
		return "last_90_days"
	case containsAny(msg, []string{"last month", "past 30 days"}):
		return "last_30_days"
	case containsAny(msg, []string{"last week", "past 7 days"}):
		return "last_7_days"
	}
	if containsAny(msg, c.rules.LongHorizon) {
		return "last_90_days"
	}
	return "last_30_days"
}

func containsAny(msg string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}
