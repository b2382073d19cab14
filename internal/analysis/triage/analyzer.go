// Package triage scores a free-text bite report for who was bitten and which
// danger signs are present.
package triage

import (
	"sort"
	"strings"
	"unicode"
)

// Subject tells whether the writer or somebody else was bitten.
type Subject string

const (
	SubjectUnknown Subject = "unknown"
	SubjectSelf    Subject = "self"
	SubjectOther   Subject = "other"
)

// Sign is a danger sign mentioned in the report.
type Sign string

const (
	Vomiting       Sign = "vomiting"
	Dizziness      Sign = "dizziness"
	Breathing      Sign = "breathing difficulty"
	Swelling       Sign = "swelling"
	Bleeding       Sign = "bleeding"
	Unconscious    Sign = "unconsciousness"
	SnakeAttached  Sign = "snake still attached"
	TightItemsWorn Sign = "tight items near the bite"
)

// Assessment is the result of Analyze.
type Assessment struct {
	Subject Subject
	Signs   []Sign
	// Urgency runs from 1 (no bite described) to 5 (life threatening signs).
	Urgency int
	// BiteReported is set when the text describes a bite at all.
	BiteReported bool
}

var subjectPhrases = map[Subject][]string{
	SubjectSelf: {
		"i was bitten", "i got bitten", "i have been bitten", "i ve been bitten", "bit me", "bitten me",
		"my leg", "my arm", "my hand", "my foot", "my ankle", "my finger", "i feel", "i am", "i m",
	},
	SubjectOther: {
		"my friend", "my son", "my daughter", "my child", "my kid", "my wife", "my husband", "my mother",
		"my father", "my brother", "my sister", "my dog", "someone", "somebody", "a man", "a woman", "a boy",
		"a girl", "he", "she", "him", "her", "they were", "he was", "she was", "his", "their",
	},
}

var signPhrases = map[Sign][]string{
	Vomiting:       {"vomit", "vomiting", "vomited", "throwing up", "threw up", "nausea", "nauseous"},
	Dizziness:      {"dizzy", "dizziness", "faint", "fainting", "lightheaded", "light headed"},
	Breathing:      {"can t breathe", "cannot breathe", "breathing", "short of breath", "breathless", "wheezing"},
	Swelling:       {"swelling", "swollen", "swell"},
	Bleeding:       {"bleeding", "blood", "bleed"},
	Unconscious:    {"unconscious", "passed out", "not responding", "unresponsive", "collapsed"},
	SnakeAttached:  {"still attached", "won t let go", "hanging on", "still biting"},
	TightItemsWorn: {"ring", "rings", "bracelet", "watch", "tight"},
}

var biteWords = []string{"bite", "bitten", "bit", "snake", "fang", "fangs", "cobra", "viper", "mamba", "adder"}

// signWeight raises urgency more for signs that threaten life.
var signWeight = map[Sign]int{
	Breathing:   2,
	Unconscious: 2,
}

// Analyze scores text. It never fails; an empty text yields urgency 1.
func Analyze(text string) Assessment {
	normalized := normalize(text)
	if normalized == "  " {
		return Assessment{Subject: SubjectUnknown, Urgency: 1}
	}

	assessment := Assessment{
		Subject:      scoreSubject(normalized),
		BiteReported: containsAny(normalized, biteWords),
	}

	urgency := 1
	if assessment.BiteReported {
		urgency = 2
	}
	for sign, phrases := range signPhrases {
		if containsAny(normalized, phrases) {
			assessment.Signs = append(assessment.Signs, sign)
			if sign != TightItemsWorn {
				weight := signWeight[sign]
				if weight == 0 {
					weight = 1
				}
				urgency += weight
			}
		}
	}
	sort.Slice(assessment.Signs, func(i, j int) bool { return assessment.Signs[i] < assessment.Signs[j] })

	if urgency > 5 {
		urgency = 5
	}
	assessment.Urgency = urgency
	return assessment
}

// Has reports whether sign was detected.
func (a Assessment) Has(sign Sign) bool {
	for _, s := range a.Signs {
		if s == sign {
			return true
		}
	}
	return false
}

func scoreSubject(normalized string) Subject {
	scores := make(map[Subject]int)
	for subject, phrases := range subjectPhrases {
		for _, phrase := range phrases {
			scores[subject] += strings.Count(normalized, " "+phrase+" ")
		}
	}

	switch {
	case scores[SubjectSelf] > scores[SubjectOther]:
		return SubjectSelf
	case scores[SubjectOther] > scores[SubjectSelf]:
		return SubjectOther
	default:
		return SubjectUnknown
	}
}

func containsAny(normalized string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(normalized, " "+phrase+" ") {
			return true
		}
	}
	return false
}

// normalize lowercases text, turns every non-letter into a single space and
// pads the result so phrases can be matched on word boundaries.
func normalize(text string) string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return " " + strings.Join(fields, " ") + " "
}
