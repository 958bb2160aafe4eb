package privacy

import (
	"regexp"
)

// Kinds of personal data the sanitizer recognizes.
const (
	KindEmail   = "email_addresses"
	KindCard    = "credit_cards"
	KindSSN     = "ssn"
	KindPhone   = "phone_numbers"
	KindDOB     = "dates_of_birth"
	KindAddress = "addresses"
	KindName    = "names"
)

type piiPattern struct {
	kind        string
	re          *regexp.Regexp
	placeholder string
}

// Applied in order: longer digit runs before shorter ones, addresses before
// the capitalized-name rule that would otherwise eat street names.
var piiPatterns = []piiPattern{
	{KindEmail, regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), "[EMAIL]"},
	{KindCard, regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`), "[CARD]"},
	{KindSSN, regexp.MustCompile(`\b\d{3}-?\d{2}-?\d{4}\b`), "[SSN]"},
	{KindPhone, regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`), "[PHONE]"},
	{KindDOB, regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`), "[DOB]"},
	{KindAddress, regexp.MustCompile(`\b\d+\s+[A-Za-z\s]+?\s(?:Street|St|Avenue|Ave|Road|Rd|Lane|Ln|Drive|Dr|Boulevard|Blvd|Court|Ct)\b`), "[ADDRESS]"},
	{KindName, regexp.MustCompile(`\b[A-Z][a-z]+\s[A-Z][a-z]+\b`), "[NAME]"},
}

// Sanitizer masks personal identifiers before text leaves the process.
type Sanitizer struct{}

func NewSanitizer() *Sanitizer { return &Sanitizer{} }

// Sanitize replaces every recognized identifier with a placeholder tag.
func (s *Sanitizer) Sanitize(text string) string {
	if text == "" {
		return text
	}
	for _, p := range piiPatterns {
		text = p.re.ReplaceAllString(text, p.placeholder)
	}
	return text
}

// Detect returns the identifiers found per kind. Later patterns only see text
// not already claimed by an earlier one.
func (s *Sanitizer) Detect(text string) map[string][]string {
	found := make(map[string][]string)
	for _, p := range piiPatterns {
		if m := p.re.FindAllString(text, -1); len(m) > 0 {
			found[p.kind] = m
			text = p.re.ReplaceAllString(text, p.placeholder)
		}
	}
	return found
}

// RiskAssessment grades the personal data found in a text.
type RiskAssessment struct {
	Level                string              `json:"risk_level"`
	Detected             map[string][]string `json:"sensitive_data_detected"`
	Recommendations      []string            `json:"recommendations"`
	RequiresManualReview bool                `json:"requires_manual_review"`
}

// AssessPrivacyRisk rates text high when it carries card, SSN or phone
// numbers, medium for names, addresses or emails, low otherwise.
func (s *Sanitizer) AssessPrivacyRisk(text string) RiskAssessment {
	detected := s.Detect(text)
	has := func(kinds ...string) bool {
		for _, k := range kinds {
			if _, ok := detected[k]; ok {
				return true
			}
		}
		return false
	}

	ra := RiskAssessment{Level: "low", Detected: detected, Recommendations: []string{}}
	switch {
	case has(KindSSN, KindCard, KindPhone):
		ra.Level = "high"
		ra.Recommendations = []string{
			"Remove or mask sensitive personal identifiers",
			"Encrypt this data immediately",
			"Consider flagging for manual review",
		}
		ra.RequiresManualReview = true
	case has(KindName, KindAddress, KindEmail):
		ra.Level = "medium"
		ra.Recommendations = []string{
			"Anonymize personal identifiers",
			"Apply data retention limits",
		}
	case len(detected) > 0:
		ra.Recommendations = []string{"Standard anonymization procedures apply"}
	}
	return ra
}
