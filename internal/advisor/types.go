package advisor

import (
	"strings"
	"time"

	"totcare/backend/internal/gemini"
)

type Category string

const (
	CategoryFood  Category = "FOOD"
	CategoryMilk  Category = "MILK"
	CategoryWater Category = "WATER"
	CategoryPoop  Category = "POOP"
	CategorySleep Category = "SLEEP"
	CategoryOther Category = "OTHER"
)

var validCategories = map[Category]struct{}{
	CategoryFood:  {},
	CategoryMilk:  {},
	CategoryWater: {},
	CategoryPoop:  {},
	CategorySleep: {},
	CategoryOther: {},
}

// NormalizeCategory maps free-form input to a known category label.
func NormalizeCategory(input string) (Category, bool) {
	category := Category(strings.ToUpper(strings.TrimSpace(input)))
	if category == "" {
		return "", false
	}
	_, ok := validCategories[category]
	return category, ok
}

// LogEntry is one activity record for a toddler's day. Entries are immutable
// once created; the only mutation the store supports is deletion by id.
type LogEntry struct {
	ID        string
	Timestamp time.Time
	Category  Category
	Detail    string
	Note      string
}

// Advice is the normalized result of a grounded query: displayable text plus
// the citations backing it, in provider order.
type Advice struct {
	Text    string
	Sources []gemini.Source
}

// Guide is the emergency flow result. Text is always populated; ImageURL is
// empty whenever image generation did not produce a usable image, which is a
// normal state rather than an error.
type Guide struct {
	Text     string
	ImageURL string
}
