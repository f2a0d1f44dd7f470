package nlp

import (
	"regexp"
	"strconv"
	"strings"
)

type TransactionDetails struct {
	Amount      float64 `json:"amount,omitempty"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
}

var (
	amountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\$(\d+(?:\.\d{2})?)`),
		regexp.MustCompile(`(\d+(?:\.\d{2})?)\s*dollars?`),
		regexp.MustCompile(`(\d+(?:\.\d{2})?)\s*bucks?`),
		regexp.MustCompile(`(\d+(?:\.\d{2})?)\s*euros?`),
		regexp.MustCompile(`(\d+(?:\.\d{2})?)`),
	}

	amountStrip = []*regexp.Regexp{
		regexp.MustCompile(`\$\d+(?:\.\d{2})?`),
		regexp.MustCompile(`\d+(?:\.\d{2})?\s*(?:dollars?|bucks?|euros?)`),
		regexp.MustCompile(`\d+(?:\.\d{2})?`),
	}

	fillerWords = regexp.MustCompile(`\b(for|of|from|to|the|a|an)\b`)
	spaces      = regexp.MustCompile(`\s+`)
)

type categoryKeywords struct {
	category string
	keywords []string
}

var transactionCategories = []categoryKeywords{
	{"food", []string{"food", "restaurant", "lunch", "dinner", "breakfast", "meal", "grocery"}},
	{"transport", []string{"gas", "fuel", "uber", "taxi", "bus", "train", "transport"}},
	{"office", []string{"office", "supplies", "equipment", "software", "subscription"}},
	{"utilities", []string{"electricity", "water", "internet", "phone", "utilities"}},
	{"entertainment", []string{"movie", "game", "entertainment", "fun", "hobby"}},
	{"health", []string{"doctor", "medicine", "health", "medical", "pharmacy"}},
	{"consulting", []string{"consulting", "service", "project", "client", "work"}},
	{"sales", []string{"sale", "product", "revenue", "commission"}},
}

// ExtractAmount returns the first positive amount found in text.
func ExtractAmount(text string) (float64, bool) {
	text = strings.ToLower(text)
	for _, p := range amountPatterns {
		m := p.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		amount, err := strconv.ParseFloat(m[1], 64)
		if err == nil && amount > 0 {
			return amount, true
		}
	}
	return 0, false
}

// ExtractDescription removes the matched phrase, amounts and filler words.
func ExtractDescription(text, matched string) string {
	text = strings.ReplaceAll(strings.ToLower(text), matched, "")
	for _, p := range amountStrip {
		text = p.ReplaceAllString(text, "")
	}
	text = fillerWords.ReplaceAllString(text, "")
	text = strings.TrimSpace(spaces.ReplaceAllString(text, " "))

	if len(text) <= 2 {
		return ""
	}
	return text
}

func IdentifyCategory(text string) string {
	text = strings.ToLower(text)
	for _, c := range transactionCategories {
		for _, keyword := range c.keywords {
			if strings.Contains(text, keyword) {
				return c.category
			}
		}
	}
	return ""
}

// ExtractTransaction returns nil when text carries nothing beyond the phrase.
func ExtractTransaction(text, matched string) *TransactionDetails {
	details := &TransactionDetails{}
	if amount, ok := ExtractAmount(text); ok {
		details.Amount = amount
	}
	details.Description = ExtractDescription(text, matched)
	details.Category = IdentifyCategory(text)

	if details.Amount == 0 && details.Description == "" && details.Category == "" {
		return nil
	}
	return details
}
