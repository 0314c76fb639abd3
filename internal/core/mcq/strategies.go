package mcq

import (
	"regexp"
	"strings"
)

const (
	markerCorrect   = "✓✔"
	markerIncorrect = "✗✘"
)

var (
	// Q.12 Which of the following ...
	numberedMarkerRe = regexp.MustCompile(`(?i)^Q\.?\s*(\d+)[.):]?\s+(.+)$`)
	// 12. Which of the following ... (at least 10 characters of text)
	bareNumberedRe = regexp.MustCompile(`^(\d+)[.)]\s+(.{10,})$`)
	// ✓ 1. Delhi | (b) Mumbai | C) Chennai | Ans ✓ 1. Delhi
	optionRe = regexp.MustCompile(`^(?:Ans\s*)?([✓✔✗✘])?\s*[(\[]?([1-4]|[A-Da-d])[.):\]]\s*(\S.*)$`)
	// Ans: 2 | Answer - B
	answerLabelRe = regexp.MustCompile(`(?i)^ans(wer)?\b`)
)

type option struct {
	index   string
	text    string
	correct bool
}

func parseOption(line string) (option, bool) {
	m := optionRe.FindStringSubmatch(line)
	if m == nil {
		return option{}, false
	}
	return option{
		index:   strings.ToUpper(m[2]),
		text:    strings.TrimSpace(m[3]),
		correct: m[1] != "" && strings.Contains(markerCorrect, m[1]),
	}, true
}

func startsWithMarker(line string) bool {
	return strings.ContainsAny(firstRune(line), markerCorrect+markerIncorrect)
}

func firstRune(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}

// looksLikeQuestionLine is true for question headers and option lines.
func looksLikeQuestionLine(line string) bool {
	if numberedMarkerRe.MatchString(line) || bareNumberedRe.MatchString(line) {
		return true
	}
	_, ok := parseOption(line)
	return ok
}

// strategy recognises one question layout. Strategies are tried in order at
// every cursor position while the scanner is seeking a question.
type strategy struct {
	name string
	// header returns the question text opened by line.
	header func(line string) (string, bool)
	// stopContinuation ends the question text before options begin.
	stopContinuation func(line string) bool
	maxContinuation  int
	optionWindow     int
}

// numberedMarker handles "Q.1 text" layouts with optional ✓/✗ answer markers.
var numberedMarker = strategy{
	name: "numbered_marker",
	header: func(line string) (string, bool) {
		m := numberedMarkerRe.FindStringSubmatch(line)
		if m == nil {
			return "", false
		}
		return strings.TrimSpace(m[2]), true
	},
	stopContinuation: func(line string) bool {
		if answerLabelRe.MatchString(line) || startsWithMarker(line) {
			return true
		}
		_, ok := parseOption(line)
		return ok
	},
	maxContinuation: 4,
	optionWindow:    20,
}

// bareNumbered handles "1. text" layouts.
var bareNumbered = strategy{
	name: "bare_numbered",
	header: func(line string) (string, bool) {
		m := bareNumberedRe.FindStringSubmatch(line)
		if m == nil {
			return "", false
		}
		return strings.TrimSpace(m[2]), true
	},
	stopContinuation: func(line string) bool {
		if startsWithMarker(line) || answerLabelRe.MatchString(line) {
			return true
		}
		_, ok := parseOption(line)
		return ok
	},
	maxContinuation: 4,
	optionWindow:    15,
}

var strategies = []strategy{numberedMarker, bareNumbered}

// continuation appends up to maxContinuation following lines to the question
// text and returns the index where option scanning should begin.
func (s strategy) continuation(lines []string, from int, question string) (string, int) {
	var b strings.Builder
	b.WriteString(question)
	j := from
	for ; j < len(lines) && j < from+s.maxContinuation; j++ {
		l := strings.TrimSpace(lines[j])
		if l == "" {
			continue
		}
		if s.stopContinuation(l) {
			break
		}
		b.WriteByte(' ')
		b.WriteString(l)
	}
	return b.String(), j
}

// optionSet is the result of scanning an option window.
type optionSet struct {
	texts    []string
	answer   int
	detected bool
	// next is the index after the last consumed option line.
	next int
}

// collectOptions gathers up to four options starting at from. A reappearing
// first index ("1" or "A") marks the next question and is left unconsumed.
func (s strategy) collectOptions(lines []string, from int) optionSet {
	set := optionSet{next: from}
	for k := from; k < len(lines) && k < from+s.optionWindow; k++ {
		l := strings.TrimSpace(lines[k])
		if l == "" {
			continue
		}
		opt, ok := parseOption(l)
		if !ok {
			if numberedMarkerRe.MatchString(l) {
				break
			}
			continue
		}
		if len(set.texts) > 0 && (opt.index == "1" || opt.index == "A") {
			break
		}
		if opt.correct && !set.detected {
			set.answer = len(set.texts)
			set.detected = true
		}
		set.texts = append(set.texts, opt.text)
		set.next = k + 1
		if len(set.texts) == 4 {
			break
		}
	}
	return set
}
