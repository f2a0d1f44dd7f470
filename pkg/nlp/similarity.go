package nlp

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeCommand lowercases, strips diacritics and trailing punctuation
// and collapses whitespace. Apostrophes and amounts are kept.
func NormalizeCommand(text string) string {
	text = stripMarks(strings.ToLower(text))
	text = strings.Join(strings.Fields(text), " ")
	return strings.TrimRight(text, ".!?,;: ")
}

// Clean reduces text to lowercase letters, digits and single spaces.
func Clean(text string) string {
	result := stripMarks(strings.ToLower(text))

	result = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, result)

	return strings.Join(strings.Fields(result), " ")
}

func stripMarks(text string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn), norm.NFC)
	result, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return result
}

func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}

// Similarity scores two phrases in [0,1]: 1 for equal, the length ratio when
// one contains the other, otherwise the edit similarity.
func Similarity(text1, text2 string) float64 {
	norm1 := Clean(text1)
	norm2 := Clean(text2)

	if norm1 == norm2 {
		return 1.0
	}
	if norm1 == "" || norm2 == "" {
		return 0.0
	}

	if strings.Contains(norm1, norm2) || strings.Contains(norm2, norm1) {
		shorter, longer := norm1, norm2
		if len(norm1) > len(norm2) {
			shorter, longer = norm2, norm1
		}
		return float64(len(shorter)) / float64(len(longer))
	}

	return EditSimilarity(norm1, norm2)
}

// EditSimilarity is 1 - levenshtein/maxLen over runes.
func EditSimilarity(s1, s2 string) float64 {
	r1, r2 := []rune(s1), []rune(s2)
	maxLen := math.Max(float64(len(r1)), float64(len(r2)))
	if maxLen == 0 {
		return 1.0
	}
	return math.Max(0, 1.0-float64(Levenshtein(s1, s2))/maxLen)
}

func Levenshtein(s1, s2 string) int {
	r1, r2 := []rune(s1), []rune(s2)
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	matrix := make([][]int, len(r1)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(r2)+1)
		matrix[i][0] = i
	}
	for j := 0; j <= len(r2); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(r1); i++ {
		for j := 1; j <= len(r2); j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}

			matrix[i][j] = min3(
				matrix[i-1][j]+1,
				matrix[i][j-1]+1,
				matrix[i-1][j-1]+cost,
			)
		}
	}

	return matrix[len(r1)][len(r2)]
}

func min3(a, b, c int) int {
	if a < b && a < c {
		return a
	} else if b < c {
		return b
	}
	return c
}
