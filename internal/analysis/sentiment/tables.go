package sentiment

import (
	"fmt"

	"github.com/PabloGalante/mindcare/internal/domain"
)

// Weights blends the three polarity measures into the compound score.
type Weights struct {
	General float64 `yaml:"general" json:"general"`
	Lexical float64 `yaml:"lexical" json:"lexical"`
	Domain  float64 `yaml:"domain" json:"domain"`
}

// Tables is the tunable part of the scorer. Empty maps fall back to defaults.
type Tables struct {
	Weights   Weights            `yaml:"weights" json:"weights"`
	Keywords  map[string]float64 `yaml:"keywords" json:"keywords"`
	Modifiers map[string]float64 `yaml:"modifiers" json:"modifiers"`
}

// Validate rejects weights and modifiers that would make the compound meaningless.
func (t Tables) Validate() error {
	w := t.Weights
	if w.General < 0 || w.Lexical < 0 || w.Domain < 0 {
		return fmt.Errorf("sentiment: negative blend weight: %w", domain.ErrConfiguration)
	}
	if w.General+w.Lexical+w.Domain == 0 {
		return fmt.Errorf("sentiment: blend weights sum to zero: %w", domain.ErrConfiguration)
	}
	for k, v := range t.Keywords {
		if v < -1 || v > 1 {
			return fmt.Errorf("sentiment: keyword %q weight %.2f outside [-1,1]: %w", k, v, domain.ErrConfiguration)
		}
	}
	for k, v := range t.Modifiers {
		if v <= 0 {
			return fmt.Errorf("sentiment: modifier %q must be positive: %w", k, domain.ErrConfiguration)
		}
	}
	return nil
}

// DefaultTables returns the built-in blend weights, keyword weights and modifiers.
func DefaultTables() Tables {
	return Tables{
		Weights: Weights{General: 0.4, Lexical: 0.3, Domain: 0.3},
		Keywords: map[string]float64{
			"anxiety":     -0.8,
			"anxious":     -0.7,
			"worried":     -0.6,
			"stress":      -0.7,
			"stressed":    -0.8,
			"depression":  -0.9,
			"depressed":   -0.8,
			"sad":         -0.6,
			"overwhelmed": -0.8,
			"hopeless":    -0.9,
			"exhausted":   -0.7,
			"tired":       -0.5,
			"burnout":     -0.8,
			"panic":       -0.8,
			"fear":        -0.7,
			"afraid":      -0.7,
			"lonely":      -0.7,
			"isolated":    -0.7,
			"worthless":   -0.9,
			"empty":       -0.8,
			"numb":        -0.7,
			"angry":       -0.6,
			"frustrated":  -0.6,
			"irritated":   -0.5,
			"happy":       0.7,
			"joy":         0.8,
			"excited":     0.7,
			"grateful":    0.8,
			"peaceful":    0.7,
			"calm":        0.6,
			"relaxed":     0.6,
			"confident":   0.7,
			"hopeful":     0.8,
			"optimistic":  0.8,
			"energetic":   0.7,
			"motivated":   0.7,
		},
		Modifiers: map[string]float64{
			"very":      1.3,
			"extremely": 1.5,
			"really":    1.2,
			"quite":     1.1,
			"somewhat":  0.8,
			"slightly":  0.7,
			"a bit":     0.7,
			"kind of":   0.8,
			"sort of":   0.8,
		},
	}
}

// valence is the general-purpose lexicon on a -4..4 scale.
var valence = map[string]float64{
	"abandoned": -2.4, "abuse": -3.2, "afraid": -2.2, "agony": -3.0, "alone": -1.0,
	"amazing": 2.8, "anger": -2.7, "angry": -2.3, "annoyed": -1.6, "anxiety": -0.7,
	"anxious": -1.0, "appreciate": 1.7, "ashamed": -2.1, "awesome": 3.1, "awful": -2.0,
	"bad": -2.5, "beautiful": 2.9, "best": 3.2, "better": 1.9, "bitter": -1.8,
	"blessed": 2.9, "bored": -1.1, "broken": -2.1, "burden": -1.9, "calm": 1.3,
	"care": 2.2, "cheerful": 2.5, "comfortable": 1.5, "confident": 2.2, "confused": -1.3,
	"content": 1.5, "cry": -2.1, "crying": -2.1, "dead": -3.3, "depressed": -2.3,
	"depression": -2.7, "despair": -3.0, "desperate": -1.3, "die": -2.9, "disappointed": -1.9,
	"disaster": -3.1, "dread": -2.0, "empty": -0.8, "enjoy": 2.2, "excellent": 2.7,
	"excited": 1.4, "exhausted": -1.5, "fail": -2.5, "failed": -2.3, "failing": -2.3,
	"failure": -2.3, "fantastic": 2.6, "fear": -2.2, "fine": 0.8, "frightened": -1.9,
	"frustrated": -2.4, "fun": 2.3, "furious": -2.7, "glad": 2.0, "good": 1.9,
	"grateful": 2.0, "great": 3.1, "grief": -2.2, "guilty": -1.8, "happiness": 2.6,
	"happy": 2.7, "hate": -2.7, "hope": 1.9, "hopeful": 2.3, "hopeless": -2.0,
	"horrible": -2.5, "hurt": -2.4, "isolated": -1.3, "joy": 2.8, "joyful": 2.9,
	"kill": -3.7, "lonely": -1.5, "lost": -1.3, "love": 3.2, "loved": 2.9,
	"mad": -2.2, "miserable": -2.2, "nervous": -1.1, "nice": 1.8, "numb": -1.2,
	"ok": 1.2, "okay": 0.9, "optimistic": 1.3, "overwhelmed": -1.5, "pain": -2.3,
	"panic": -2.3, "peaceful": 2.2, "pleased": 1.9, "positive": 2.6, "pressure": -1.2,
	"proud": 2.1, "relaxed": 2.2, "relief": 2.1, "relieved": 1.6, "sad": -2.1,
	"sadness": -1.9, "scared": -1.9, "safe": 1.9, "stress": -1.8, "stressed": -1.4,
	"struggle": -1.3, "struggling": -1.6, "suffer": -2.2, "suffering": -2.1, "suicide": -3.5,
	"support": 1.7, "terrible": -2.1, "terrified": -3.0, "thankful": 2.7, "tired": -1.9,
	"trapped": -2.4, "ugly": -2.3, "unhappy": -1.8, "upset": -1.6, "useless": -1.8,
	"well": 1.1, "win": 2.8, "wonderful": 2.7, "worried": -1.2, "worry": -1.9,
	"worse": -2.1, "worst": -3.1, "worthless": -1.9, "wrong": -2.1,
}

// boosters shift the valence of the following sentiment word by a fixed increment.
var boosters = map[string]float64{
	"absolutely": 0.293, "completely": 0.293, "deeply": 0.293, "extremely": 0.293,
	"incredibly": 0.293, "really": 0.293, "so": 0.293, "totally": 0.293,
	"truly": 0.293, "very": 0.293, "too": 0.293, "super": 0.293,
	"barely": -0.293, "hardly": -0.293, "kinda": -0.293, "little": -0.293,
	"slightly": -0.293, "somewhat": -0.293, "bit": -0.293, "marginally": -0.293,
}

// polarity is the second lexicon: each word carries polarity [-1,1] and subjectivity [0,1].
var polarity = map[string][2]float64{
	"amazing": {0.6, 0.9}, "angry": {-0.5, 1.0}, "awful": {-1.0, 1.0}, "bad": {-0.7, 0.67},
	"beautiful": {0.85, 1.0}, "best": {1.0, 0.3}, "better": {0.5, 0.5}, "boring": {-1.0, 1.0},
	"calm": {0.3, 0.75}, "confident": {0.5, 0.67}, "content": {0.3, 0.6}, "dead": {-0.2, 0.4},
	"depressed": {-0.7, 0.8}, "disappointed": {-0.75, 0.75}, "empty": {-0.1, 0.5}, "excellent": {1.0, 1.0},
	"excited": {0.375, 0.75}, "exhausted": {-0.4, 0.7}, "fine": {0.42, 0.5}, "free": {0.4, 0.8},
	"frustrated": {-0.7, 0.8}, "glad": {0.5, 1.0}, "good": {0.7, 0.6}, "grateful": {0.6, 0.8},
	"great": {0.8, 0.75}, "happy": {0.8, 1.0}, "hard": {-0.29, 0.54}, "hopeful": {0.5, 0.8},
	"hopeless": {-0.8, 0.9}, "horrible": {-1.0, 1.0}, "lonely": {-0.5, 0.75}, "lost": {-0.3, 0.5},
	"miserable": {-1.0, 1.0}, "nervous": {-0.3, 0.7}, "nice": {0.6, 1.0}, "okay": {0.5, 0.5},
	"ok": {0.5, 0.5}, "overwhelmed": {-0.5, 0.8}, "peaceful": {0.5, 0.8}, "perfect": {1.0, 1.0},
	"poor": {-0.4, 0.6}, "positive": {0.23, 0.55}, "proud": {0.8, 1.0}, "relaxed": {0.4, 0.7},
	"sad": {-0.5, 1.0}, "scared": {-0.5, 0.8}, "serious": {-0.33, 0.67}, "sick": {-0.71, 0.86},
	"stressed": {-0.6, 0.8}, "stupid": {-0.8, 1.0}, "terrible": {-1.0, 1.0}, "tired": {-0.4, 0.7},
	"ugly": {-0.7, 1.0}, "unhappy": {-0.6, 0.9}, "upset": {-0.6, 0.8}, "useless": {-0.5, 0.2},
	"well": {0.3, 0.4}, "wonderful": {1.0, 1.0}, "worried": {-0.5, 0.8}, "worse": {-0.4, 0.6},
	"worst": {-1.0, 1.0}, "worthless": {-0.8, 0.9}, "wrong": {-0.5, 0.9},
}

// intensifiers scale the polarity of the word that follows them in the second lexicon.
var intensifiers = map[string]float64{
	"very": 1.3, "really": 1.3, "extremely": 1.5, "so": 1.3, "too": 1.3,
	"quite": 1.1, "pretty": 1.1, "somewhat": 0.8, "slightly": 0.7, "bit": 0.7,
}

var emotionPatterns = []struct {
	name    string
	pattern string
}{
	{"anxiety", `\b(anxious|anxiety|worried|worry|nervous|panic|panicking)\b`},
	{"depression", `\b(depressed|depression|sad|sadness|hopeless|empty|worthless)\b`},
	{"stress", `\b(stressed|stress|overwhelmed|pressure|burden|exhausted)\b`},
	{"anger", `\b(angry|anger|frustrated|frustration|irritated|mad|furious)\b`},
	{"fear", `\b(afraid|fear|scared|terrified|frightened)\b`},
	{"loneliness", `\b(lonely|alone|isolated|disconnected)\b`},
	{"joy", `\b(happy|happiness|joy|joyful|excited|thrilled|delighted)\b`},
	{"gratitude", `\b(grateful|thankful|blessed|appreciate|appreciation)\b`},
	{"hope", `\b(hopeful|hope|optimistic|positive|confident)\b`},
	{"calm", `\b(calm|peaceful|relaxed|serene|tranquil)\b`},
}

var riskPatterns = []struct {
	name    string
	pattern string
}{
	{"suicidal_ideation", `\b(suicide|kill myself|end it all|want to die|no point living|better off dead)\b`},
	{"self_harm", `\b(hurt myself|harm myself|cut myself|self harm)\b`},
	{"severe_depression", `\b(can't go on|giving up|no hope|nothing matters|worthless)\b`},
	{"panic_disorder", `\b(panic attack|can't breathe|heart racing|losing control)\b`},
	{"substance_abuse", `\b(drinking too much|using drugs|can't stop drinking|substance|addiction)\b`},
	{"eating_disorder", `\b(not eating|binge eating|purging|body image|too fat|too thin)\b`},
	{"sleep_disorder", `\b(can't sleep|insomnia|nightmares|sleeping too much|sleep problems)\b`},
	{"social_withdrawal", `\b(avoiding people|don't want to see anyone|isolating|withdrawing)\b`},
}
