package emergency

import (
	"slices"
	"strings"
)

// Resource is one crisis contact.
type Resource struct {
	Name         string `json:"name"`
	Phone        string `json:"phone,omitempty"`
	Text         string `json:"text,omitempty"`
	Website      string `json:"website,omitempty"`
	Description  string `json:"description,omitempty"`
	Available247 bool   `json:"available_24_7"`
}

var (
	suicideLifeline = Resource{
		Name:         "National Suicide Prevention Lifeline",
		Phone:        "988",
		Text:         `Text "HELLO" to 741741`,
		Website:      "https://suicidepreventionlifeline.org",
		Available247: true,
	}
	crisisTextLine = Resource{
		Name:         "Crisis Text Line",
		Text:         "Text HOME to 741741",
		Website:      "https://www.crisistextline.org",
		Available247: true,
	}
	emergencyServices = Resource{
		Name:         "Emergency Services",
		Phone:        "911",
		Description:  "For immediate danger or medical emergency",
		Available247: true,
	}
	localEmergency = Resource{
		Name:         "Local Emergency Services",
		Description:  "Call your local emergency number for immediate danger",
		Available247: true,
	}
	iasp = Resource{
		Name:        "International Association for Suicide Prevention",
		Website:     "https://www.iasp.info/resources/Crisis_Centres/",
		Description: "Find crisis centers worldwide",
	}
	befrienders = Resource{
		Name:        "Befrienders Worldwide",
		Website:     "https://www.befrienders.org",
		Description: "Emotional support worldwide",
	}
)

var catalog = map[string][]Resource{
	"us":            {suicideLifeline, crisisTextLine, emergencyServices},
	"international": {localEmergency, iasp, befrienders},
}

// ResourcesFor returns the catalog for a country code; unknown codes get the
// international list. Every list starts with a 24/7 line.
func ResourcesFor(country string) []Resource {
	if rs, ok := catalog[strings.ToLower(strings.TrimSpace(country))]; ok {
		return slices.Clone(rs)
	}
	return slices.Clone(catalog["international"])
}

var deEscalationPool = []string{
	"I'm really concerned about you right now. Your life has value, and you matter.",
	"I can hear that you're in tremendous pain. You don't have to face this alone.",
	"What you're feeling right now is overwhelming, but these feelings can change.",
	"I want to help you find support right away. You deserve to be safe and cared for.",
	"This crisis you're experiencing is temporary, even though it doesn't feel that way right now.",
}

// DeEscalationPool returns the equivalent phrases the moderate response picks from.
func DeEscalationPool() []string {
	return slices.Clone(deEscalationPool)
}

// SafetyPlan is a personal crisis plan template.
type SafetyPlan struct {
	WarningSigns        []string `json:"warning_signs"`
	CopingStrategies    []string `json:"coping_strategies"`
	Distractions        []string `json:"distractions"`
	ProfessionalSupport []string `json:"professional_support"`
	SafeEnvironment     []string `json:"safe_environment"`
	ImmediateActions    []string `json:"immediate_actions"`
}

// NewSafetyPlan returns the safety plan template.
func NewSafetyPlan() SafetyPlan {
	return SafetyPlan{
		WarningSigns: []string{
			"Feeling hopeless or trapped",
			"Thinking about death or suicide",
			"Feeling like a burden to others",
			"Extreme mood swings",
			"Withdrawing from others",
		},
		CopingStrategies: []string{
			"Deep breathing exercises",
			"Progressive muscle relaxation",
			"Mindfulness or meditation",
			"Positive self-talk",
			"Grounding techniques (5-4-3-2-1)",
		},
		Distractions: []string{
			"Call a supportive friend or family member",
			"Go to a public place (coffee shop, library, park)",
			"Engage in a favorite hobby or activity",
			"Watch funny videos or uplifting content",
		},
		ProfessionalSupport: []string{
			"National Suicide Prevention Lifeline: 988",
			"Crisis Text Line: Text HOME to 741741",
			"Your therapist/counselor: [Your Number]",
			"Your doctor: [Your Number]",
			"Local emergency room: [Your Local ER]",
		},
		SafeEnvironment: []string{
			"Remove or secure any means of self-harm",
			"Ask someone to stay with you",
			"Avoid alcohol and drugs",
			"Take prescribed medications as directed",
		},
		ImmediateActions: []string{
			"Remove any means of self-harm from your immediate environment",
			"Go to a safe space where you're not alone, if possible",
			"Call a trusted friend, family member, or crisis helpline",
			"Focus on your breathing - take slow, deep breaths",
			"Ground yourself: name 5 things you can see, 4 you can hear, 3 you can touch",
		},
	}
}

// FollowUp is guidance for the days after a crisis.
type FollowUp struct {
	SelfCare   []string `json:"self_care"`
	Actions    []string `json:"actions"`
	Resilience []string `json:"resilience"`
	Reminders  []string `json:"reminders"`
}

// PostCrisisFollowUp returns the after-crisis guidance.
func PostCrisisFollowUp() FollowUp {
	return FollowUp{
		SelfCare: []string{
			"Be gentle with yourself - you've been through something difficult",
			"Stay hydrated and try to eat something nourishing",
			"Get rest when you can, but don't isolate yourself completely",
			"Avoid alcohol and drugs, which can worsen mood",
		},
		Actions: []string{
			"Schedule an appointment with a mental health professional",
			"Check in with the people who supported you during the crisis",
			"Consider joining a support group",
			"Keep taking any prescribed medications as directed",
		},
		Resilience: []string{
			"Create a routine that includes self-care activities",
			"Practice stress-reduction techniques regularly",
			"Build and maintain your support network",
			"Learn to recognize your warning signs",
		},
		Reminders: []string{
			"Recovery is not linear - there may be ups and downs",
			"Seeking help was a brave and important step",
			"You have survived difficult times before and can do so again",
			"Professional support is available whenever you need it",
		},
	}
}
