// Package sentiment scores free text on a continuous [-1,1] valence scale by
// blending a general polarity lexicon, a second lexical polarity measure and
// a mental-health keyword score.
package sentiment

import (
	"maps"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/PabloGalante/mindcare/internal/domain"
)

const negationPrefix = "not_"

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	negationRe   = regexp.MustCompile(`\b(not|no|never|nothing|nobody|nowhere|neither|nor|none)\s+`)
	sentenceRe   = regexp.MustCompile(`[.!?]+`)
)

type namedPattern struct {
	name string
	re   *regexp.Regexp
}

// Scorer is immutable after construction and safe for concurrent use.
type Scorer struct {
	weights   Weights
	keywords  map[string]float64
	modifiers map[string]float64
	emotions  []namedPattern
	risks     []namedPattern
}

// New builds a scorer from tables. Empty keyword or modifier maps and zero
// weights fall back to DefaultTables.
func New(t Tables) (*Scorer, error) {
	def := DefaultTables()
	if t.Weights == (Weights{}) {
		t.Weights = def.Weights
	}
	if len(t.Keywords) == 0 {
		t.Keywords = def.Keywords
	}
	if len(t.Modifiers) == 0 {
		t.Modifiers = def.Modifiers
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	s := &Scorer{
		weights:   t.Weights,
		keywords:  maps.Clone(t.Keywords),
		modifiers: maps.Clone(t.Modifiers),
	}
	for _, p := range emotionPatterns {
		s.emotions = append(s.emotions, namedPattern{p.name, regexp.MustCompile(p.pattern)})
	}
	for _, p := range riskPatterns {
		s.risks = append(s.risks, namedPattern{p.name, regexp.MustCompile(p.pattern)})
	}
	return s, nil
}

var defaultScorer = mustNew(DefaultTables())

// Default returns the scorer built from DefaultTables.
func Default() *Scorer {
	return defaultScorer
}

func mustNew(t Tables) *Scorer {
	s, err := New(t)
	if err != nil {
		panic(err)
	}
	return s
}

// Score analyses text. Empty text yields a neutral zero result.
func (s *Scorer) Score(text string) domain.SentimentResult {
	res := domain.SentimentResult{
		Emotions:   map[string]int{},
		TextLength: utf8.RuneCountInString(text),
	}

	plain := clean(text)
	if plain == "" {
		return res
	}
	fused := fuseNegations(plain)
	tokens := tokenize(fused)

	res.General = generalPolarity(tokens, strings.Count(fused, "!"))
	res.Lexical, res.Subjectivity = lexicalPolarity(tokens)
	res.Domain = s.domainScore(tokens)
	res.Compound = clamp(
		s.weights.General*res.General+s.weights.Lexical*res.Lexical+s.weights.Domain*res.Domain,
		-1, 1,
	)

	for _, p := range s.emotions {
		if n := len(p.re.FindAllStringIndex(fused, -1)); n > 0 {
			res.Emotions[p.name] = n
		}
	}
	// Risk phrases contain negations of their own ("no point living"), so they
	// are matched before fusion.
	for _, p := range s.risks {
		if p.re.MatchString(plain) {
			res.Risks = append(res.Risks, p.name)
		}
	}
	res.SentenceCount = countSentences(plain)
	return res
}

// Normalize returns the text exactly as the keyword scorer sees it.
func Normalize(text string) string {
	return fuseNegations(clean(text))
}

func clean(text string) string {
	lower := cases.Lower(language.English).String(norm.NFKC.String(text))
	lower = strings.NewReplacer("’", "'", "‘", "'").Replace(lower)
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(lower, " "))
}

func fuseNegations(text string) string {
	return negationRe.ReplaceAllString(text, negationPrefix)
}

func tokenize(text string) []string {
	fields := strings.Fields(text)
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, `.,!?;:"()[]{}…-`)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func splitNegation(tok string) (string, bool) {
	if strings.HasPrefix(tok, negationPrefix) {
		return tok[len(negationPrefix):], true
	}
	return tok, false
}

// generalPolarity sums lexicon valences adjusted for boosters, negation,
// contrastive "but" and exclamation emphasis, then squashes into [-1,1].
func generalPolarity(tokens []string, exclamations int) float64 {
	const (
		negScalar = -0.74
		alpha     = 15.0
	)

	scores := make([]float64, len(tokens))
	for i, tok := range tokens {
		word, negated := splitNegation(tok)
		v, ok := valence[word]
		if !ok {
			continue
		}
		for j := 1; j <= 3 && i-j >= 0; j++ {
			prev, prevNeg := splitNegation(tokens[i-j])
			if b, ok := boosters[prev]; ok {
				b *= 1 - 0.05*float64(j-1)
				if v < 0 {
					b = -b
				}
				v += b
			}
			if prevNeg {
				negated = true
			}
		}
		if negated {
			v *= negScalar
		}
		scores[i] = v
	}

	for i, tok := range tokens {
		if tok != "but" {
			continue
		}
		for j := range scores {
			switch {
			case j < i:
				scores[j] *= 0.5
			case j > i:
				scores[j] *= 1.5
			}
		}
		break
	}

	sum := 0.0
	for _, v := range scores {
		sum += v
	}
	if sum != 0 {
		emphasis := 0.292 * float64(min(exclamations, 4))
		if sum > 0 {
			sum += emphasis
		} else {
			sum -= emphasis
		}
	}
	if sum == 0 {
		return 0
	}
	return clamp(sum/math.Sqrt(sum*sum+alpha), -1, 1)
}

// lexicalPolarity averages per-word polarity and subjectivity, scaling by a
// preceding intensifier and halving and inverting negated words.
func lexicalPolarity(tokens []string) (pol, subj float64) {
	var ps, ss []float64
	for i, tok := range tokens {
		word, negated := splitNegation(tok)
		e, ok := polarity[word]
		if !ok {
			continue
		}
		p, sj := e[0], e[1]
		if i > 0 {
			prev, prevNeg := splitNegation(tokens[i-1])
			if m, ok := intensifiers[prev]; ok {
				p = clamp(p*m, -1, 1)
				sj = clamp(sj*m, 0, 1)
			}
			negated = negated || prevNeg
		}
		if negated {
			p *= -0.5
		}
		ps = append(ps, p)
		ss = append(ss, sj)
	}
	if len(ps) == 0 {
		return 0, 0
	}
	return clamp(mean(ps), -1, 1), clamp(mean(ss), 0, 1)
}

// domainScore is the mean of matched keyword weights, each scaled by the
// modifier immediately before it. Two-word modifiers win over one-word ones.
func (s *Scorer) domainScore(tokens []string) float64 {
	var contributions []float64
	for i, tok := range tokens {
		word, negated := splitNegation(tok)
		w, ok := s.keywords[word]
		if !ok {
			continue
		}
		if m, prevNeg, ok := s.modifierBefore(tokens, i); ok {
			w *= m
			negated = negated || prevNeg
		}
		if negated {
			w = -w
		}
		contributions = append(contributions, w)
	}
	if len(contributions) == 0 {
		return 0
	}
	return mean(contributions)
}

func (s *Scorer) modifierBefore(tokens []string, i int) (float64, bool, bool) {
	if i >= 2 {
		first, neg := splitNegation(tokens[i-2])
		if m, ok := s.modifiers[first+" "+tokens[i-1]]; ok {
			return m, neg, true
		}
	}
	if i >= 1 {
		prev, neg := splitNegation(tokens[i-1])
		if m, ok := s.modifiers[prev]; ok {
			return m, neg, true
		}
	}
	return 0, false, false
}

func countSentences(text string) int {
	n := 0
	for _, part := range sentenceRe.Split(text, -1) {
		if strings.TrimSpace(part) != "" {
			n++
		}
	}
	return n
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
