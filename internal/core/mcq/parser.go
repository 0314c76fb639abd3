package mcq

import (
	"strings"
	"unicode/utf8"

	"github.com/markdave123-py/Examcraft/internal/models"
)

const (
	minQuestionLen = 5
	dedupeKeyLen   = 80
)

type scanState int

const (
	seekQuestion scanState = iota
	seekOptions
)

// draft is a question whose header has been read but whose options have not.
type draft struct {
	strategy strategy
	start    int
	question string
}

// scanner walks lines with a cursor, alternating between looking for a
// question header and collecting that question's options.
type scanner struct {
	lines []string
	pos   int
	state scanState
	cur   draft
}

// next returns the next accepted candidate, or false at end of input.
func (s *scanner) next() (models.CandidateQuestion, bool) {
	for s.pos < len(s.lines) || s.state == seekOptions {
		switch s.state {
		case seekQuestion:
			s.seekQuestion()
		case seekOptions:
			if cand, ok := s.seekOptions(); ok {
				return cand, true
			}
		}
	}
	return models.CandidateQuestion{}, false
}

func (s *scanner) seekQuestion() {
	line := strings.TrimSpace(s.lines[s.pos])
	if line != "" {
		for _, st := range strategies {
			text, ok := st.header(line)
			if !ok {
				continue
			}
			question, optStart := st.continuation(s.lines, s.pos+1, text)
			s.cur = draft{strategy: st, start: s.pos, question: question}
			s.pos = optStart
			s.state = seekOptions
			return
		}
	}
	s.pos++
}

// seekOptions finishes the current draft. A rejected draft resumes scanning
// on the line after its header so nothing it tentatively read is lost.
func (s *scanner) seekOptions() (models.CandidateQuestion, bool) {
	s.state = seekQuestion
	set := s.cur.strategy.collectOptions(s.lines, s.pos)

	question := strings.TrimSpace(s.cur.question)
	if len(set.texts) != 4 || utf8.RuneCountInString(question) <= minQuestionLen {
		s.pos = s.cur.start + 1
		return models.CandidateQuestion{}, false
	}

	s.pos = set.next
	cand := models.CandidateQuestion{
		Question:       question,
		AnswerIndex:    set.answer,
		AnswerDetected: set.detected,
		Category:       models.CategoryCustom,
		Difficulty:     models.DifficultyMedium,
	}
	copy(cand.Options[:], set.texts)
	return cand, true
}

// Parse extracts multiple-choice questions from text in discovery order.
// Candidates whose leading text repeats an earlier one are dropped.
func Parse(text string) []models.CandidateQuestion {
	sc := &scanner{lines: strings.Split(text, "\n")}
	seen := make(map[string]struct{})

	var out []models.CandidateQuestion
	for {
		cand, ok := sc.next()
		if !ok {
			break
		}
		key := DedupeKey(cand.Question)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, cand)
	}
	return out
}

// DedupeKey is the lowercased first 80 runes of a question.
func DedupeKey(question string) string {
	q := strings.ToLower(strings.TrimSpace(question))
	if utf8.RuneCountInString(q) <= dedupeKeyLen {
		return q
	}
	return string([]rune(q)[:dedupeKeyLen])
}
