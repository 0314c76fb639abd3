package mcq

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/markdave123-py/Examcraft/internal/models"
)

// maxHeadingLen is the length (in runes) below which a bare line containing a
// keyword is treated as a heading.
const maxHeadingLen = 60

type headingKeyword struct {
	phrase string
	tag    models.CategoryTag
	word   *regexp.Regexp
}

func kw(phrase string, tag models.CategoryTag) headingKeyword {
	return headingKeyword{
		phrase: phrase,
		tag:    tag,
		word:   regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(phrase) + `\b`),
	}
}

// headingKeywords is ordered; the first matching entry wins.
var headingKeywords = []headingKeyword{
	kw("general intelligence and reasoning", models.CategoryReasoning),
	kw("general intelligence", models.CategoryReasoning),
	kw("reasoning", models.CategoryReasoning),
	kw("general awareness", models.CategoryGK),
	kw("general knowledge", models.CategoryGK),
	kw("gk", models.CategoryGK),
	kw("current affairs", models.CategoryCurrentAffairs),
	kw("currentaffairs", models.CategoryCurrentAffairs),
	kw("quantitative aptitude", models.CategoryQuantitativeAptitude),
	kw("aptitude", models.CategoryQuantitativeAptitude),
	kw("quant", models.CategoryQuantitativeAptitude),
	kw("english", models.CategoryEnglish),
	kw("english language", models.CategoryEnglish),
	kw("english comprehension", models.CategoryEnglish),
}

// sectionLabelRe matches "Section <sep> <label>" headings, e.g.
// "Section : General Knowledge" or "SECTION B - Reasoning".
var sectionLabelRe = regexp.MustCompile(`(?i)^section\b[^:\-–]*[:\-–]\s*(.*)$`)

// classifyLabel looks for a keyword anywhere in an explicit section label.
func classifyLabel(label string) (models.CategoryTag, bool) {
	l := strings.ToLower(label)
	for _, k := range headingKeywords {
		if strings.Contains(l, k.phrase) {
			return k.tag, true
		}
	}
	return "", false
}

// classifyShortLine requires the keyword on word boundaries so that words
// like "quantity" do not open a section.
func classifyShortLine(line string) (models.CategoryTag, bool) {
	for _, k := range headingKeywords {
		if k.word.MatchString(line) {
			return k.tag, true
		}
	}
	return "", false
}

// detectHeading reports the category a heading line opens.
func detectHeading(line string) (models.CategoryTag, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return "", false
	}
	if m := sectionLabelRe.FindStringSubmatch(trimmed); m != nil {
		return classifyLabel(m[1])
	}
	if utf8.RuneCountInString(trimmed) >= maxHeadingLen {
		return "", false
	}
	if looksLikeQuestionLine(trimmed) {
		return "", false
	}
	return classifyShortLine(trimmed)
}

type headingLine struct {
	index int
	text  string
}

// Segment splits text into categorized sections. Heading lines are dropped;
// every other line lands in exactly one section, in order.
func Segment(text string) []models.Section {
	sections, _ := segment(text)
	return sections
}

func segment(text string) ([]models.Section, []headingLine) {
	var (
		sections []models.Section
		headings []headingLine
		current  *models.CategoryTag
		heading  string
		buf      []string
		start    int
	)

	flush := func() {
		if len(buf) == 0 {
			return
		}
		sections = append(sections, models.Section{
			Category:  current,
			Text:      strings.Join(buf, "\n"),
			StartLine: start,
			Heading:   heading,
		})
		buf = nil
	}

	for i, line := range strings.Split(text, "\n") {
		if tag, ok := detectHeading(line); ok {
			flush()
			t := tag
			current = &t
			heading = strings.TrimSpace(line)
			headings = append(headings, headingLine{index: i, text: line})
			continue
		}
		if len(buf) == 0 {
			start = i
		}
		buf = append(buf, line)
	}
	flush()

	return sections, headings
}
