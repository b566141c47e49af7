package confidence

import (
	"regexp"
	"strings"
)

// Built-in factor catalog. Detectors read the context window around the
// match unless noted otherwise; domains extend the catalog through
// Scorer.Register.

var (
	negationRe = regexp.MustCompile(`(?i)\b(?:not|no|never|none|without|neither|denied|denies|absence of|ruled out|false positive)\b`)

	monetaryRe = regexp.MustCompile(`(?i)(?:[$€£]\s?\d[\d,]*(?:\.\d+)?|\b\d[\d,]*(?:\.\d+)?\s?(?:dollars|usd|eur|gbp)\b)`)

	percentageRe = regexp.MustCompile(`\b\d+(?:\.\d+)?\s?(?:%|percent)`)

	// Month names must be followed by a day or year so the modal verb
	// "may" never reads as a date.
	temporalRe = regexp.MustCompile(`(?i)\b(?:\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{2,4}` +
		`|(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?` +
		`|aug(?:ust)?|sep(?:tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?\s+\d{1,4}` +
		`|(?:in|since|during)\s+(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may` +
		`|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)` +
		`|yesterday|today|tomorrow|last (?:week|month|year)|\d{1,2}:\d{2})\b`)

	uncertaintyRe = regexp.MustCompile(`(?i)\b(?:may|might|could|possibly|perhaps|likely|unlikely|unclear|uncertain|unconfirmed|alleged(?:ly)?|reported(?:ly)?|suspected|rumored|appears? to)\b`)

	wordRe = regexp.MustCompile(`[A-Za-z0-9_-]+`)
)

func builtinFactors() []*Factor {
	return []*Factor{
		{
			Name:          "negation",
			Description:   "negation cue near the match lowers confidence",
			Polarity:      PolarityNegative,
			MaxAdjustment: 0.20,
			Detect: func(in Input) float64 {
				if negationRe.MatchString(in.Context) {
					return -0.20
				}
				return 0
			},
		},
		{
			Name:          "monetary",
			Description:   "monetary amount near the match raises confidence",
			Polarity:      PolarityPositive,
			MaxAdjustment: 0.15,
			Detect: func(in Input) float64 {
				if monetaryRe.MatchString(in.Context) {
					return 0.15
				}
				return 0
			},
		},
		{
			Name:          "percentage",
			Description:   "percentage figure near the match raises confidence",
			Polarity:      PolarityPositive,
			MaxAdjustment: 0.10,
			Detect: func(in Input) float64 {
				if percentageRe.MatchString(in.Context) {
					return 0.10
				}
				return 0
			},
		},
		{
			Name:          "temporal",
			Description:   "date or time reference near the match raises confidence",
			Polarity:      PolarityPositive,
			MaxAdjustment: 0.10,
			Detect: func(in Input) float64 {
				if temporalRe.MatchString(in.Context) {
					return 0.10
				}
				return 0
			},
		},
		{
			Name:          "uncertainty",
			Description:   "hedging language near the match lowers confidence",
			Polarity:      PolarityNegative,
			MaxAdjustment: 0.15,
			Detect: func(in Input) float64 {
				if uncertaintyRe.MatchString(in.Context) {
					return -0.15
				}
				return 0
			},
		},
		{
			Name:          "domain_keyword_density",
			Description:   "density of registered domain keywords in the context raises confidence",
			Polarity:      PolarityPositive,
			MaxAdjustment: 0.10,
			Detect:        detectKeywordDensity,
		},
		{
			Name:          "multiple_occurrence",
			Description:   "repeated mentions of the value in the document raise confidence",
			Polarity:      PolarityPositive,
			MaxAdjustment: 0.10,
			Detect: func(in Input) float64 {
				occurrences := in.Occurrences
				if occurrences == 0 && in.Match != nil && in.Match.Value != "" {
					occurrences = strings.Count(strings.ToLower(in.FullText), strings.ToLower(in.Match.Value))
				}
				switch {
				case occurrences >= 3:
					return 0.10
				case occurrences == 2:
					return 0.05
				}
				return 0
			},
		},
		{
			Name:          "relationship_participation",
			Description:   "the value participating in a detected relationship raises confidence",
			Polarity:      PolarityPositive,
			MaxAdjustment: 0.15,
			Detect: func(in Input) float64 {
				if in.InRelationship {
					return 0.15
				}
				return 0
			},
		},
	}
}

// detectKeywordDensity scores the fraction of context words that are
// registered domain keywords, scaled onto [0, 0.10]. One keyword hit in
// roughly ten words saturates the factor.
func detectKeywordDensity(in Input) float64 {
	if len(in.DomainKeywords) == 0 {
		return 0
	}
	words := wordRe.FindAllString(strings.ToLower(in.Context), -1)
	if len(words) == 0 {
		return 0
	}
	keywords := make(map[string]struct{}, len(in.DomainKeywords))
	for _, k := range in.DomainKeywords {
		keywords[strings.ToLower(k)] = struct{}{}
	}
	hits := 0
	for _, w := range words {
		if _, ok := keywords[w]; ok {
			hits++
		}
	}
	if hits == 0 {
		return 0
	}
	adjustment := float64(hits) / float64(len(words))
	if adjustment > 0.10 {
		adjustment = 0.10
	}
	return adjustment
}
