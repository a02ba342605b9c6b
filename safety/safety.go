package safety

import (
	"regexp"
	"strings"
)

// Level classifies how a question or answer may be handled.
type Level string

const (
	// Allow means the content may flow through unchanged.
	Allow Level = "allow"
	// Caution means the content is answerable but a notice is attached and
	// prescriptive dosing is stripped from the answer.
	Caution Level = "caution"
	// Refuse means the question must not reach retrieval or generation.
	Refuse Level = "refuse"
)

// Disclaimer is attached to every answer and article.
const Disclaimer = "This content is educational and describes traditional Ayurvedic literature. " +
	"It is not medical advice. Consult a qualified practitioner before acting on it."

// CautionNotice is prepended to answers for flagged questions.
const CautionNotice = "Note: dosing, pregnancy and medication-interaction questions depend on individual " +
	"circumstances this assistant cannot assess; the sources below are descriptive only."

// RefusalMessage is returned instead of an answer for refused questions.
const RefusalMessage = "This question needs a qualified medical professional rather than a reference " +
	"assistant. If this is an emergency, contact local emergency services."

// Assessment is the outcome of screening a question.
type Assessment struct {
	Level   Level    `json:"level"`
	Reasons []string `json:"reasons,omitempty"`
}

type rule struct {
	name string
	re   *regexp.Regexp
}

// Filter screens questions and sanitizes answers with fixed rule sets.
type Filter struct {
	refuse  []rule
	caution []rule
	dosing  *regexp.Regexp
}

// New compiles the rule sets into a Filter.
func New() *Filter {
	return &Filter{
		refuse: []rule{
			{"emergency symptoms", regexp.MustCompile(`(?i)\b(chest pain|can'?t breathe|cannot breathe|unconscious|seizure|stroke|severe bleeding|anaphyla)`)},
			{"overdose", regexp.MustCompile(`(?i)\boverdos`)},
			{"pediatric dosing", regexp.MustCompile(`(?i)\b(dose|dosage|how much)\b.*\b(infant|newborn|baby|toddler|child|kid)\b`)},
			{"self harm", regexp.MustCompile(`(?i)\b(suicid|self[- ]harm|kill (myself|himself|herself))`)},
		},
		caution: []rule{
			{"dosage request", regexp.MustCompile(`(?i)\b(dosage|dose|how much|how many (grams|drops|tablets)|daily amount)\b`)},
			{"drug interaction", regexp.MustCompile(`(?i)\b(interact|along with|together with|combine[d]? with)\b.*\b(medication|medicine|drug|warfarin|insulin|statin|antibiotic)`)},
			{"pregnancy", regexp.MustCompile(`(?i)\b(pregnan|breastfeed|lactat)`)},
		},
		dosing: regexp.MustCompile(`(?i)\b\d+(\.\d+)?\s*(mg|ml|g|grams?|drops?|teaspoons?|tablespoons?|tablets?|capsules?)\b`),
	}
}

// AssessQuestion screens an incoming question.
func (f *Filter) AssessQuestion(question string) Assessment {
	question = strings.TrimSpace(question)
	if question == "" {
		return Assessment{Level: Allow}
	}
	if reasons := matchReasons(f.refuse, question); len(reasons) > 0 {
		return Assessment{Level: Refuse, Reasons: reasons}
	}
	if reasons := matchReasons(f.caution, question); len(reasons) > 0 {
		return Assessment{Level: Caution, Reasons: reasons}
	}
	return Assessment{Level: Allow}
}

// SanitizeAnswer strips prescriptive dosing sentences from generated text
// when the question was flagged caution. Allowed answers pass unchanged.
func (f *Filter) SanitizeAnswer(answer string, assessment Assessment) string {
	if assessment.Level != Caution || answer == "" {
		return answer
	}
	lines := strings.Split(answer, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(dropDosingSentences(line, f.dosing), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func matchReasons(rules []rule, text string) []string {
	var reasons []string
	for _, r := range rules {
		if r.re.MatchString(text) {
			reasons = append(reasons, r.name)
		}
	}
	return reasons
}

func dropDosingSentences(line string, dosing *regexp.Regexp) []string {
	sentences := splitSentences(line)
	kept := make([]string, 0, len(sentences))
	for _, sentence := range sentences {
		if dosing.MatchString(sentence) {
			continue
		}
		kept = append(kept, sentence)
	}
	return kept
}

func splitSentences(line string) []string {
	var out []string
	start := 0
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '.', '!', '?':
			out = append(out, strings.TrimSpace(line[start:i+1]))
			start = i + 1
		}
	}
	if rest := strings.TrimSpace(line[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}
