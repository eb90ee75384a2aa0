package mcp

import (
	"regexp"
	"sort"
	"strings"

	"github.com/kutbudev/agenda-cli/internal/models"
)

// SimilarityThreshold is the minimum score for an existing activity to be
// reported as a likely duplicate.
const SimilarityThreshold = 0.6

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}\s]`)

// SimilarActivity is an existing activity whose title resembles a new one.
type SimilarActivity struct {
	ActivityID string  `json:"activity_id"`
	Title      string  `json:"title"`
	Similarity float64 `json:"similarity"`
}

// tokenize splits text into lowercase words, dropping punctuation.
func tokenize(text string) map[string]struct{} {
	text = nonWord.ReplaceAllString(strings.ToLower(text), " ")

	words := make(map[string]struct{})
	for _, w := range strings.Fields(text) {
		if len([]rune(w)) > 1 {
			words[w] = struct{}{}
		}
	}
	return words
}

// JaccardSimilarity returns the word-set overlap of a and b, from 0 to 1.
func JaccardSimilarity(a, b string) float64 {
	setA := tokenize(a)
	setB := tokenize(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// CheckSimilarActivities returns activities whose title scores at least
// threshold against title, best match first.
func CheckSimilarActivities(activities []models.Activity, title string, threshold float64) []SimilarActivity {
	var similar []SimilarActivity
	for _, a := range activities {
		score := JaccardSimilarity(title, a.Title)
		if score >= threshold {
			similar = append(similar, SimilarActivity{
				ActivityID: a.ID.String(),
				Title:      truncateContent(a.Title, 80),
				Similarity: score,
			})
		}
	}
	sort.Slice(similar, func(i, j int) bool {
		return similar[i].Similarity > similar[j].Similarity
	})
	return similar
}

func truncateContent(content string, maxLen int) string {
	r := []rune(content)
	if len(r) <= maxLen {
		return content
	}
	return string(r[:maxLen-3]) + "..."
}

// normalizeForMatch drops case, spaces and separators.
// "Enviar-Informe" -> "enviarinforme"
func normalizeForMatch(s string) string {
	s = strings.ToLower(s)
	for _, sep := range []string{" ", "-", "_", "."} {
		s = strings.ReplaceAll(s, sep, "")
	}
	return s
}

type activityMatch struct {
	Activity   models.Activity
	Confidence float64
	MatchType  string // "normalized", "contains", "prefix"
}

// fuzzyMatchActivities ranks activities whose title matches input. Inputs
// shorter than 4 characters never match.
func fuzzyMatchActivities(activities []models.Activity, input string) []activityMatch {
	input = strings.TrimSpace(input)
	if len([]rune(input)) < 4 {
		return nil
	}
	inputNorm := normalizeForMatch(input)
	if inputNorm == "" {
		return nil
	}

	var matches []activityMatch
	for _, a := range activities {
		titleNorm := normalizeForMatch(a.Title)
		if titleNorm == "" {
			continue
		}

		switch {
		case inputNorm == titleNorm:
			matches = append(matches, activityMatch{a, 0.95, "normalized"})
		case strings.Contains(titleNorm, inputNorm):
			coverage := float64(len(inputNorm)) / float64(len(titleNorm))
			matches = append(matches, activityMatch{a, 0.70 + coverage*0.20, "contains"})
		case strings.Contains(inputNorm, titleNorm):
			coverage := float64(len(titleNorm)) / float64(len(inputNorm))
			matches = append(matches, activityMatch{a, 0.70 + coverage*0.20, "contains"})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	return matches
}
