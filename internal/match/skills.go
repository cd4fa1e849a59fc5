package match

import (
	"regexp"
	"strings"
)

// Phrases that usually introduce skill requirements within a description.
var skillHintPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)experience with ([^.;\n]+)`),
	regexp.MustCompile(`(?i)experience in ([^.;\n]+)`),
	regexp.MustCompile(`(?i)proficiency in ([^.;\n]+)`),
	regexp.MustCompile(`(?i)proficient in ([^.;\n]+)`),
	regexp.MustCompile(`(?i)skilled in ([^.;\n]+)`),
	regexp.MustCompile(`(?i)knowledge of ([^.;\n]+)`),
	regexp.MustCompile(`(?i)familiar(?:ity)? with ([^.;\n]+)`),
	regexp.MustCompile(`(?i)background in ([^.;\n]+)`),
	regexp.MustCompile(`(?i)skills?: ([^\n]+)`),
	regexp.MustCompile(`(?i)requirements?: ([^\n]+)`),
}

var (
	skillSplitPattern  = regexp.MustCompile(`(?i),|;|\band\b|\bor\b|\bsuch as\b|\bincluding\b|\bfor example\b`)
	skillPrefixPattern = regexp.MustCompile(`(?i)^(?:experience|experiences|background|knowledge|familiarity|familiar|proficiency|proficient|skilled)\s+(?:in|with|of)?\s+`)
	skillSuffixPattern = regexp.MustCompile(`(?i)\b(?:is\s+preferred|preferred|is\s+required|required|a\s+plus|plus)\b.*$`)
	parenPattern       = regexp.MustCompile(`\(.*?\)`)
	bulletKeywords     = []string{"experience", "knowledge", "skill", "familiar"}
)

func normalizeSkill(raw string) string {
	cleaned := strings.Trim(strings.TrimSpace(raw), "-•·: ")
	cleaned = skillPrefixPattern.ReplaceAllString(cleaned, "")
	cleaned = skillSuffixPattern.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

func splitSkills(phrase string) []string {
	phrase = strings.ReplaceAll(phrase, "/", ",")
	phrase = parenPattern.ReplaceAllString(phrase, "")
	var out []string
	for _, part := range skillSplitPattern.Split(phrase, -1) {
		if token := normalizeSkill(part); token != "" {
			out = append(out, token)
		}
	}
	return out
}

// ExtractRequiredSkills returns a deduplicated list of skills mentioned in
// the posting description, in the order first encountered.
func ExtractRequiredSkills(description string) []string {
	var skills []string
	seen := make(map[string]bool)

	add := func(skill string) {
		key := strings.ToLower(skill)
		if !seen[key] {
			seen[key] = true
			skills = append(skills, skill)
		}
	}

	for _, pattern := range skillHintPatterns {
		for _, m := range pattern.FindAllStringSubmatch(description, -1) {
			for _, skill := range splitSkills(m[1]) {
				add(skill)
			}
		}
	}

	for _, line := range strings.Split(description, "\n") {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}
		if !strings.HasPrefix(stripped, "-") && !strings.HasPrefix(stripped, "*") && !strings.HasPrefix(stripped, "•") {
			continue
		}
		bullet := strings.TrimLeft(stripped, "-*• ")
		lower := strings.ToLower(bullet)
		for _, keyword := range bulletKeywords {
			if strings.Contains(lower, keyword) {
				for _, skill := range splitSkills(bullet) {
					add(skill)
				}
				break
			}
		}
	}

	return skills
}

var punctPattern = regexp.MustCompile(`[^\p{L}\p{N} ]+`)

// normalizeText lowercases and strips punctuation so skill lookups can run
// as plain substring checks.
func normalizeText(text string) string {
	lowered := strings.ToLower(text)
	stripped := punctPattern.ReplaceAllString(lowered, " ")
	return " " + strings.Join(strings.Fields(stripped), " ") + " "
}

// containsSkill reports whether the normalized text mentions the skill as a
// whole word or phrase.
func containsSkill(normalized, skill string) bool {
	key := strings.Join(strings.Fields(strings.ToLower(punctPattern.ReplaceAllString(skill, " "))), " ")
	if key == "" {
		return false
	}
	return strings.Contains(normalized, " "+key+" ")
}
