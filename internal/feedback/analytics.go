package feedback

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"NexaVoice/internal/entity"
)

const (
	recentLimit      = 10
	topLimit         = 10
	keywordLimit     = 10
	improvementLimit = 5
)

type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

type AreaCount struct {
	Area  string `json:"area"`
	Count int    `json:"count"`
}

type Trends struct {
	ThisWeek int     `json:"thisWeek"`
	LastWeek int     `json:"lastWeek"`
	Change   float64 `json:"change"`
}

type Analytics struct {
	TotalFeedback         int                     `json:"totalFeedback"`
	TotalSuggestions      int                     `json:"totalSuggestions"`
	AverageRating         float64                 `json:"averageRating"`
	FeedbackByType        map[string]int          `json:"feedbackByType"`
	FeedbackByRating      map[string]int          `json:"feedbackByRating"`
	SuggestionsByCategory map[string]int          `json:"suggestionsByCategory"`
	SuggestionsByStatus   map[string]int          `json:"suggestionsByStatus"`
	RecentFeedback        []entity.FeedbackRecord `json:"recentFeedback"`
	TopSuggestions        []entity.Suggestion     `json:"topSuggestions"`
	Trends                Trends                  `json:"trends"`
	CommonIssues          []KeywordCount          `json:"commonIssues"`
	ImprovementAreas      []AreaCount             `json:"improvementAreas"`
}

type Categories struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// Analytics aggregates the local feedback and suggestion lists.
func (s *Service) Analytics(ctx context.Context) (Analytics, error) {
	feedback, err := s.Feedback(ctx, Filter{})
	if err != nil {
		return Analytics{}, err
	}
	suggestions, err := s.Suggestions(ctx, SuggestionFilter{})
	if err != nil {
		return Analytics{}, err
	}
	return buildAnalytics(feedback, suggestions, s.now()), nil
}

// buildAnalytics expects feedback newest first and suggestions in ranking order.
func buildAnalytics(feedback []entity.FeedbackRecord, suggestions []entity.Suggestion, now time.Time) Analytics {
	a := Analytics{
		TotalFeedback:         len(feedback),
		TotalSuggestions:      len(suggestions),
		FeedbackByType:        map[string]int{},
		FeedbackByRating:      map[string]int{},
		SuggestionsByCategory: map[string]int{},
		SuggestionsByStatus:   map[string]int{},
		RecentFeedback:        headN(feedback, recentLimit),
		TopSuggestions:        headN(suggestions, topLimit),
		Trends:                trends(feedback, now),
		CommonIssues:          commonIssueKeywords(feedback),
		ImprovementAreas:      improvementAreas(feedback),
	}

	sum := 0
	for _, f := range feedback {
		sum += f.Rating
		a.FeedbackByType[string(f.FeedbackType)]++
		if f.Rating > 0 {
			a.FeedbackByRating[strconv.Itoa(f.Rating)]++
		}
	}
	if len(feedback) > 0 {
		a.AverageRating = round(float64(sum)/float64(len(feedback)), 2)
	}

	for _, sg := range suggestions {
		a.SuggestionsByCategory[sg.Category]++
		a.SuggestionsByStatus[string(sg.Status)]++
	}

	return a
}

func trends(feedback []entity.FeedbackRecord, now time.Time) Trends {
	oneWeekAgo := now.Add(-7 * 24 * time.Hour).UnixMilli()
	twoWeeksAgo := now.Add(-14 * 24 * time.Hour).UnixMilli()

	var t Trends
	for _, f := range feedback {
		switch {
		case f.Timestamp >= oneWeekAgo:
			t.ThisWeek++
		case f.Timestamp >= twoWeeksAgo:
			t.LastWeek++
		}
	}
	if t.LastWeek > 0 {
		t.Change = round(float64(t.ThisWeek-t.LastWeek)/float64(t.LastWeek)*100, 1)
	}
	return t
}

var wordPattern = regexp.MustCompile(`\w+`)

// commonIssueKeywords counts words longer than three characters in the
// comments of low-rated or negative feedback.
func commonIssueKeywords(feedback []entity.FeedbackRecord) []KeywordCount {
	counts := map[string]int{}
	for _, f := range feedback {
		negative := (f.Rating > 0 && f.Rating <= 2) || f.FeedbackType == entity.FeedbackNegative
		if !negative || f.Comment == "" {
			continue
		}
		for _, w := range wordPattern.FindAllString(strings.ToLower(f.Comment), -1) {
			if len(w) > 3 {
				counts[w]++
			}
		}
	}

	out := make([]KeywordCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, KeywordCount{Keyword: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Keyword < out[j].Keyword
	})
	return headN(out, keywordLimit)
}

func improvementAreas(feedback []entity.FeedbackRecord) []AreaCount {
	counts := map[string]int{}
	for _, f := range feedback {
		if f.ExpectedAction != "" {
			counts[f.ExpectedAction]++
		}
	}

	out := make([]AreaCount, 0, len(counts))
	for area, n := range counts {
		out = append(out, AreaCount{Area: area, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Area < out[j].Area
	})
	return headN(out, improvementLimit)
}

// CategorizeFeedback buckets ratings: 4-5 positive, 3 neutral, 1-2 negative.
// Unrated records are not counted.
func CategorizeFeedback(feedback []entity.FeedbackRecord) Categories {
	var c Categories
	for _, f := range feedback {
		switch {
		case f.Rating >= 4:
			c.Positive++
		case f.Rating == 3:
			c.Neutral++
		case f.Rating >= 1:
			c.Negative++
		}
	}
	return c
}

type issuePattern struct {
	issue    string
	keywords []string
}

var issuePatterns = []issuePattern{
	{"recognition", []string{"recogni", "understand", "mishear", "misheard"}},
	{"response time", []string{"response time", "slow", "lag", "delay"}},
	{"accuracy", []string{"accura", "wrong", "incorrect", "mistake"}},
	{"wake word", []string{"wake word", "wake-word", "hey nexa"}},
	{"microphone", []string{"microphone", "mic ", "audio"}},
	{"navigation", []string{"navigat", "wrong page"}},
}

// ExtractCommonIssues maps free-text comments onto known issue themes,
// most frequent first.
func ExtractCommonIssues(feedback []entity.FeedbackRecord) []string {
	counts := map[string]int{}
	for _, f := range feedback {
		comment := strings.ToLower(f.Comment) + " "
		for _, p := range issuePatterns {
			for _, kw := range p.keywords {
				if strings.Contains(comment, kw) {
					counts[p.issue]++
					break
				}
			}
		}
	}

	out := make([]string, 0, len(counts))
	for issue := range counts {
		out = append(out, issue)
	}
	sort.Slice(out, func(i, j int) bool {
		if counts[out[i]] != counts[out[j]] {
			return counts[out[i]] > counts[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func headN[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
