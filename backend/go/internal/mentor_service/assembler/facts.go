package assembler

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"student_mentor/backend/go/internal/models"
)

// TitleKey turns a fact key into a label: underscores become spaces and
// every run of letters is capitalised ("favorite_course" -> "Favorite Course",
// "gpa" -> "Gpa").
func TitleKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	prevLetter := false
	for _, r := range strings.ReplaceAll(key, "_", " ") {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToTitle(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}

// FormatValue renders a fact value, unwrapping a {value, ...} envelope.
func FormatValue(v interface{}) string {
	switch t := v.(type) {
	case models.FactEntry:
		return FormatValue(t.Value)
	case *models.FactEntry:
		if t == nil {
			return ""
		}
		return FormatValue(t.Value)
	case map[string]interface{}:
		if inner, ok := t["value"]; ok {
			return FormatValue(inner)
		}
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case []interface{}:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = FormatValue(e)
		}
		return strings.Join(parts, ", ")
	case nil:
		return ""
	}
	return fmt.Sprintf("%v", models.NormalizeValue(v))
}

// FormatFacts renders one line per fact in bucket order.
func FormatFacts(bucket models.FactBucket) string {
	lines := make([]string, 0, len(bucket))
	for _, it := range bucket {
		lines = append(lines, "- "+TitleKey(it.Key)+": "+FormatValue(it.Entry))
	}
	return strings.Join(lines, "\n")
}

// FormatDigest renders a labelled section for every non-empty bucket, in
// ACADEMIC, CAREER, PERSONAL order.
func FormatDigest(facts models.StudentFacts) string {
	var sections []string
	for _, c := range models.FactCategories {
		bucket := facts.Bucket(c)
		if len(bucket) == 0 {
			continue
		}
		sections = append(sections, c.Label()+" FACTS:\n"+FormatFacts(bucket))
	}
	return strings.Join(sections, "\n\n")
}

// FormatProfile renders the student profile block.
func FormatProfile(s *models.Student) string {
	name, university, program, year := unknown, unknown, unknown, unknown
	if s != nil {
		name = orUnknown(s.Name)
		university = orUnknown(s.University)
		program = orUnknown(s.Program)
		if s.Year != nil {
			year = strconv.Itoa(*s.Year)
		}
	}
	return fmt.Sprintf("STUDENT PROFILE:\nName: %s\nUniversity: %s\nProgram: %s\nYear: %s", name, university, program, year)
}

// BuildSystemPrompt joins the mentor prompt, the profile and the facts digest.
func BuildSystemPrompt(s *models.Student, facts models.StudentFacts) string {
	parts := []string{MentorPrompt, FormatProfile(s)}
	if digest := FormatDigest(facts); digest != "" {
		parts = append(parts, digest)
	}
	return strings.Join(parts, "\n\n")
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return unknown
	}
	return s
}
