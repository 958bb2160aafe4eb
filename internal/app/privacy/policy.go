package privacy

import (
	"slices"
	"time"

	"github.com/PabloGalante/mindcare/internal/domain"
)

// Compliance statuses.
const (
	StatusCompliant          = "compliant"
	StatusNeedsAnonymization = "needs_anonymization"
	StatusNonCompliant       = "non_compliant"
	StatusUnknownCategory    = "unknown_data_type"
)

// Compliance is the verdict for data of one category and age.
type Compliance struct {
	Status             string   `json:"status"`
	DataAgeDays        int      `json:"data_age_days"`
	RetentionLimit     int      `json:"retention_limit"`
	AnonymizationLimit int      `json:"anonymization_limit"`
	Actions            []string `json:"actions"`
	EncryptionRequired bool     `json:"encryption_required"`
}

// AgeInDays counts a started day as a whole one, so that an age above a
// policy limit matches the sweep's cutoff at or before now minus the limit.
func AgeInDays(now, ts time.Time) int {
	d := now.Sub(ts)
	if d < 0 {
		return 0
	}
	return int(d/(24*time.Hour)) + 1
}

// CheckCompliance tells whether data aged ageDays may be kept as is.
func CheckCompliance(policies domain.RetentionPolicies, ageDays int, category domain.DataCategory) Compliance {
	p, ok := policies[category]
	if !ok {
		return Compliance{Status: StatusUnknownCategory, DataAgeDays: ageDays, Actions: []string{"classify_data_type"}}
	}

	c := Compliance{
		Status:             StatusCompliant,
		DataAgeDays:        ageDays,
		RetentionLimit:     p.RetentionDays,
		AnonymizationLimit: p.AnonymizeAfterDays,
		Actions:            []string{},
		EncryptionRequired: p.EncryptionRequired,
	}
	switch {
	case ageDays > p.RetentionDays:
		c.Status = StatusNonCompliant
		c.Actions = append(c.Actions, "delete_data")
	case ageDays > p.AnonymizeAfterDays:
		c.Status = StatusNeedsAnonymization
		c.Actions = append(c.Actions, "anonymize_data")
	}
	return c
}

var legitimatePurposes = map[domain.DataCategory][]string{
	domain.CategoryConversationContent: {"provide_mental_health_support", "crisis_detection", "conversation_context"},
	domain.CategorySentimentAnalysis:   {"mental_health_assessment", "personalized_recommendations", "crisis_detection", "anonymous_research"},
	domain.CategoryStressIndicators:    {"mental_health_assessment", "personalized_recommendations", "crisis_detection", "anonymous_research"},
	domain.CategoryWellnessActivities:  {"track_user_engagement", "improve_recommendations", "anonymous_research"},
	domain.CategoryCrisisLogs:          {"safety_monitoring", "improve_crisis_detection", "compliance_reporting"},
}

// storagePurpose is what the service keeps records of each category for.
var storagePurpose = map[domain.DataCategory]string{
	domain.CategoryConversationContent: "conversation_context",
	domain.CategorySentimentAnalysis:   "mental_health_assessment",
	domain.CategoryStressIndicators:    "mental_health_assessment",
	domain.CategoryWellnessActivities:  "track_user_engagement",
	domain.CategoryCrisisLogs:          "safety_monitoring",
}

// ValidatePurpose reports whether processing data of category for purpose is allowed.
func ValidatePurpose(category domain.DataCategory, purpose string) bool {
	return slices.Contains(legitimatePurposes[category], purpose)
}

// UserRights lists the data-subject rights the service honours.
var UserRights = []string{
	"right_to_information",
	"right_of_access",
	"right_to_rectification",
	"right_to_erasure",
	"right_to_restrict_processing",
	"right_to_data_portability",
	"right_to_object",
	"right_not_to_be_subject_to_automated_decision_making",
}
