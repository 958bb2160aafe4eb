package lexicon

import "github.com/PabloGalante/mindcare/internal/domain"

// DefaultTables returns a fresh copy of the built-in indicator tables.
func DefaultTables() []Table {
	return []Table{
		{
			Namespace: domain.NSStressDomain,
			Categories: []Category{
				{Name: "work_stress", Patterns: []string{
					`\b(work|job|boss|deadline|overtime|meeting|project|workload)\b`,
					`\b(too much work|work pressure|work stress|job stress)\b`,
				}},
				{Name: "academic_stress", Patterns: []string{
					`\b(exam|test|homework|assignment|grade|study|studying|school|university|college)\b`,
					`\b(academic pressure|study stress|exam anxiety)\b`,
				}},
				{Name: "financial_stress", Patterns: []string{
					`\b(money|debt|bills|rent|mortgage|financial|budget|broke|poor)\b`,
					`\b(financial stress|money problems|can't afford)\b`,
				}},
				{Name: "relationship_stress", Patterns: []string{
					`\b(relationship|marriage|divorce|breakup|family|friend|partner|spouse)\b`,
					`\b(relationship problems|family issues|conflict with)\b`,
				}},
				{Name: "health_stress", Patterns: []string{
					`\b(sick|illness|disease|doctor|hospital|medical|health|pain|surgery)\b`,
					`\b(health problems|medical issues|chronic pain)\b`,
				}},
				{Name: "social_stress", Patterns: []string{
					`\b(social|people|friends|party|social media|networking|public speaking)\b`,
					`\b(social anxiety|afraid of people|social pressure)\b`,
				}},
			},
		},
		{
			Namespace: domain.NSPhysicalSymptom,
			Categories: []Category{
				// A bare "tired" is too common in everyday small talk to count as a symptom.
				{Name: "sleep_issues", Patterns: []string{
					`\b(can't sleep|insomnia|sleepless|exhausted|fatigue|no energy)\b`,
					`\b(sleep problems|sleeping too much|wake up tired|always tired|so tired|tired all the time)\b`,
				}},
				{Name: "appetite_changes", Patterns: []string{
					`\b(not hungry|no appetite|eating too much|binge eating|lost weight|gained weight)\b`,
					`\b(appetite changes|stress eating|comfort food)\b`,
				}},
				{Name: "physical_tension", Patterns: []string{
					`\b(headache|muscle tension|back pain|neck pain|stomach ache|nausea)\b`,
					`\b(tight chest|heart racing|palpitations|sweating|trembling)\b`,
				}},
				{Name: "cognitive_symptoms", Patterns: []string{
					`\b(can't concentrate|memory problems|confused|forgetful|distracted)\b`,
					`\b(brain fog|can't think|overwhelmed|racing thoughts)\b`,
				}},
			},
		},
		{
			Namespace: domain.NSEmotionalMarker,
			Categories: []Category{
				{Name: "anxiety_markers", Patterns: []string{
					`\b(anxious|worried|nervous|panic|fear|scared|terrified|dread)\b`,
					`\b(what if|worst case|catastrophic thinking|overthinking)\b`,
				}},
				{Name: "depression_markers", Patterns: []string{
					`\b(sad|depressed|hopeless|empty|worthless|numb|nothing matters)\b`,
					`\b(don't care|giving up|no point|why bother)\b`,
				}},
				{Name: "anger_markers", Patterns: []string{
					`\b(angry|frustrated|irritated|furious|rage|mad|annoyed)\b`,
					`\b(can't stand|fed up|had enough|losing patience)\b`,
				}},
				{Name: "overwhelm_markers", Patterns: []string{
					`\b(overwhelmed|too much|can't handle|breaking point|at my limit)\b`,
					`\b(everything is falling apart|can't keep up|drowning)\b`,
				}},
			},
		},
		{
			Namespace: domain.NSBehavioralMarker,
			Categories: []Category{
				{Name: "withdrawal", Patterns: []string{
					`\b(isolating|avoiding|withdrawing|staying home|don't want to see)\b`,
					`\b(hiding away|keeping to myself|don't go out)\b`,
				}},
				{Name: "procrastination", Patterns: []string{
					`\b(procrastinating|putting off|avoiding|can't start|delaying)\b`,
					`\b(keep postponing|making excuses|running behind)\b`,
				}},
				{Name: "substance_use", Patterns: []string{
					`\b(drinking|alcohol|smoking|drugs|medication|pills)\b`,
					`\b(need a drink|self medicating|using substances)\b`,
				}},
				{Name: "compulsive_behaviors", Patterns: []string{
					`\b(can't stop|addicted|compulsive|obsessive|checking constantly)\b`,
					`\b(scrolling endlessly|binge watching|shopping therapy)\b`,
				}},
			},
		},
		{
			Namespace: domain.NSCrisisMarker,
			Categories: []Category{
				{Name: "suicidal_thoughts", Patterns: []string{
					`\b(suicide|kill myself|end it all|want to die|better off dead)\b`,
					`\b(no reason to live|can't go on|thinking about ending)\b`,
				}},
				{Name: "self_harm", Patterns: []string{
					`\b(hurt myself|harm myself|cut myself|self injury|self harm)\b`,
					`\b(want to hurt myself|thinking about hurting)\b`,
				}},
				{Name: "severe_hopelessness", Patterns: []string{
					`\b(no hope|hopeless|pointless|nothing will change|stuck forever)\b`,
					`\b(no way out|trapped|nothing helps|given up completely)\b`,
				}},
			},
		},
		{
			Namespace: domain.NSPositiveCoping,
			Categories: []Category{
				{Name: "seeking_help", Patterns: []string{
					`\b(therapy|counseling|therapist|psychologist|support group)\b`,
					`\b(talking to someone|getting help|reached out)\b`,
				}},
				{Name: "self_care", Patterns: []string{
					`\b(exercise|meditation|yoga|relaxation|deep breathing|mindfulness)\b`,
					`\b(taking care of myself|self care|healthy habits)\b`,
				}},
				{Name: "problem_solving", Patterns: []string{
					`\b(making a plan|taking steps|working on it|finding solutions)\b`,
					`\b(trying to fix|addressing the issue|taking action)\b`,
				}},
			},
		},
		{
			Namespace: domain.NSBurnoutMarker,
			Categories: []Category{
				{Name: "exhaustion", Patterns: []string{`\b(exhausted|drained|burned out|no energy|depleted|worn out)\b`}},
				{Name: "cynicism", Patterns: []string{`\b(don't care|what's the point|nothing matters|why bother)\b`}},
				{Name: "inefficacy", Patterns: []string{`\b(not good enough|failing|can't do anything right|useless)\b`}},
				{Name: "detachment", Patterns: []string{`\b(disconnected|going through motions|autopilot|numb)\b`}},
			},
		},
		{
			Namespace: domain.NSAnxietyType,
			Categories: []Category{
				{Name: "generalized_anxiety", Patterns: []string{
					`\b(worry about everything|constantly worried|anxiety about|what if)\b`,
					`\b(can't stop worrying|anxious all the time|general anxiety)\b`,
				}},
				{Name: "social_anxiety", Patterns: []string{
					`\b(afraid of people|scared of judgment|fear of embarrassment)\b`,
					`\b(social anxiety|afraid to speak up|nervous around people)\b`,
				}},
				{Name: "panic_anxiety", Patterns: []string{
					`\b(panic attack|can't breathe|heart racing|chest tight)\b`,
					`\b(feeling like dying|losing control|panic disorder)\b`,
				}},
				{Name: "performance_anxiety", Patterns: []string{
					`\b(test anxiety|presentation anxiety|performance fear)\b`,
					`\b(afraid of failing|nervous about performance|stage fright)\b`,
				}},
			},
		},
		{
			Namespace: domain.NSAnxietyIntensity,
			Categories: []Category{
				{Name: "high_intensity", Patterns: []string{
					`\b(extremely|severely|overwhelming|unbearable|intense)\b`,
					`\b(can't function|paralyzing|debilitating|constant)\b`,
				}},
			},
		},
	}
}
