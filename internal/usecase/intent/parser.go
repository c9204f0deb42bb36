package intent

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"rssnews/pkg/urlnorm"
)

// ParsedQuery is the query parser's output: the operator-free query text
// plus whatever structured filters were extracted from it.
type ParsedQuery struct {
	CleanQuery string
	Domains    []string
	AfterDate  *time.Time
	BeforeDate *time.Time
	TimeWindow time.Duration // 0 means none was specified
}

var (
	siteOperator   = regexp.MustCompile(`\bsite:(\S+)`)
	afterOperator  = regexp.MustCompile(`\bafter:(\S+)`)
	beforeOperator = regexp.MustCompile(`\bbefore:(\S+)`)

	absoluteDateFormats = []string{"2006-01-02", "01/02/2006", "02.01.2006"}
	relativeDatePattern = regexp.MustCompile(`^(\d+)([dwm])$`)
)

// timeWindowKeywords maps a recognized phrase (English or Russian) to a
// canonical window duration, longest phrases first so "this week" matches
// before a hypothetical shorter overlapping phrase would.
var timeWindowKeywords = []struct {
	phrase string
	window time.Duration
}{
	{"this week", 7 * 24 * time.Hour},
	{"на этой неделе", 7 * 24 * time.Hour},
	{"this month", 30 * 24 * time.Hour},
	{"в этом месяце", 30 * 24 * time.Hour},
	{"yesterday", 48 * time.Hour},
	{"вчера", 48 * time.Hour},
	{"today", 24 * time.Hour},
	{"сегодня", 24 * time.Hour},
}

// trustedDomains is the configured allow-list site: validates against
// (spec.md §4.7: "≈70 entries"); callers are expected to override this via
// NewParser's allowlist parameter in production, since the exact list is
// an operational config concern, not a compile-time constant.
var defaultTrustedDomains = map[string]bool{
	"reuters.com": true, "apnews.com": true, "bbc.com": true,
	"bloomberg.com": true, "nytimes.com": true, "theguardian.com": true,
	"wsj.com": true, "washingtonpost.com": true, "npr.org": true,
	"aljazeera.com": true,
}

// Parser extracts and strips query operators and time-window keywords.
type Parser struct {
	// TrustedDomains is the site: allow-list; unknown domains are logged
	// and dropped rather than rejecting the whole query.
	TrustedDomains map[string]bool
}

func NewParser(trustedDomains map[string]bool) *Parser {
	if trustedDomains == nil {
		trustedDomains = defaultTrustedDomains
	}
	return &Parser{TrustedDomains: trustedDomains}
}

// Parse extracts site:/after:/before: operators and time-window keywords
// from query, returning the operator-free remainder alongside the
// structured filters.
func (p *Parser) Parse(query string, now time.Time) ParsedQuery {
	result := ParsedQuery{}
	clean := query

	clean = siteOperator.ReplaceAllStringFunc(clean, func(match string) string {
		raw := siteOperator.FindStringSubmatch(match)[1]
		domain, err := urlnorm.ETLD1(raw)
		if err != nil || domain == "" {
			return ""
		}
		if !p.TrustedDomains[domain] {
			return ""
		}
		result.Domains = append(result.Domains, domain)
		return ""
	})

	clean = afterOperator.ReplaceAllStringFunc(clean, func(match string) string {
		raw := afterOperator.FindStringSubmatch(match)[1]
		if t, ok := parseDate(raw, now); ok {
			result.AfterDate = &t
		}
		return ""
	})

	clean = beforeOperator.ReplaceAllStringFunc(clean, func(match string) string {
		raw := beforeOperator.FindStringSubmatch(match)[1]
		if t, ok := parseDate(raw, now); ok {
			result.BeforeDate = &t
		}
		return ""
	})

	lowerClean := strings.ToLower(clean)
	for _, kw := range timeWindowKeywords {
		if strings.Contains(lowerClean, kw.phrase) {
			result.TimeWindow = kw.window
			clean = replaceCaseInsensitive(clean, kw.phrase)
			lowerClean = strings.ToLower(clean)
		}
	}

	result.CleanQuery = collapseWhitespace(clean)
	return result
}

// parseDate accepts an absolute date in any of absoluteDateFormats, or a
// relative offset like "3d"/"1w"/"2m" (days/weeks/months before now).
func parseDate(raw string, now time.Time) (time.Time, bool) {
	for _, layout := range absoluteDateFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}

	m := relativeDatePattern.FindStringSubmatch(raw)
	if m == nil {
		return time.Time{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, false
	}
	switch m[2] {
	case "d":
		return now.AddDate(0, 0, -n), true
	case "w":
		return now.AddDate(0, 0, -7*n), true
	case "m":
		return now.AddDate(0, -n, 0), true
	}
	return time.Time{}, false
}

func replaceCaseInsensitive(text, phrase string) string {
	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(phrase))
	return re.ReplaceAllString(text, "")
}

func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
