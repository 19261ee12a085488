package harvest

import (
	"regexp"
)

// IsBadEvent flags harvested events that are a poor fit for a "just show up"
// listing: canceled or sold out, paid, or gated behind a registration. Bad
// events are still stored, they are only hidden from searches by default.
func IsBadEvent(event EventRecord) bool {
	if event.IsCanceled {
		return true
	}
	for _, filt := range nameFilters {
		if filt.MatchString(event.Name) {
			return true
		}
	}
	for _, filt := range descFilters {
		if filt.MatchString(event.Description) {
			return true
		}
	}
	return false
}

var nameFilters = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bSold Out\b`),
	regexp.MustCompile(`(?i)\bCancel(l?ed)?\b`),
	regexp.MustCompile(`(?i)\bPostponed\b`),
	regexp.MustCompile(`(?i)\babgesagt(e)?\b`), // German
	regexp.MustCompile(`(?i)\bannulliert\b`),   // German
	regexp.MustCompile(`(?i)\bFuneral\b`),
}

var descFilters = []*regexp.Regexp{
	// prices
	regexp.MustCompile(`(\$|¥|₹|₡|₱|£|€|₩|₨|﷼|₽)\s*\d`),
	regexp.MustCompile(`(?i)\bdollars\b`),

	// gated entry
	regexp.MustCompile(`(?i)support group`),
	regexp.MustCompile(`(?i)\b(men|women|children|members) only\b`),
	regexp.MustCompile(`(?i)\bregistration required\b`),
	regexp.MustCompile(`(?i)\bRSVP\b`),
	regexp.MustCompile(`(?i)\banmeldung\b`), // German
}
