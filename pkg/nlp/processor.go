package nlp

import (
	"fmt"
	"sort"
	"strings"
)

type rule func(cmd string) (Action, bool)

type CommandProcessor struct {
	exact   map[string]Action
	phrases []string
	rules   []rule
}

func NewProcessor() ICommandProcessor {
	p := &CommandProcessor{
		exact: make(map[string]Action),
	}

	tables := [][]phrase{
		navigationPhrases,
		actionPhrases,
		helpPhrases,
		systemPhrases,
		calendarPhrases,
		transactionPhrases,
		reportPhrases,
		emailPhrases,
	}
	for _, table := range tables {
		for _, ph := range table {
			p.exact[NormalizeCommand(ph.text)] = ph.action
		}
	}

	for text := range p.exact {
		p.phrases = append(p.phrases, text)
	}
	sort.Strings(p.phrases)

	p.rules = []rule{
		matchCalendar,
		matchTransaction,
		matchReport,
		matchEmail,
		matchSearch,
		matchNavigation,
		matchCreate,
		matchHelp,
		matchFuzzy,
	}

	return p
}

// Process resolves a transcript. A nil enabled list allows every category.
func (p *CommandProcessor) Process(transcript string, confidence float64, enabled []Category) CommandAction {
	action := p.resolve(NormalizeCommand(transcript))

	if !allowed(action, enabled) {
		action = Unknown{Message: fmt.Sprintf("%s commands are turned off in your voice settings.", titleCase(string(action.Category())))}
	}

	return CommandAction{
		Type:       action.Category(),
		Action:     action,
		Transcript: transcript,
		Confidence: confidence,
	}
}

func (p *CommandProcessor) resolve(cmd string) Action {
	if cmd == "" {
		return Unknown{Message: "Invalid command"}
	}

	if action, ok := p.exact[cmd]; ok {
		return action
	}

	for _, r := range p.rules {
		if action, ok := r(cmd); ok {
			return action
		}
	}

	return Unknown{Message: fmt.Sprintf(`I didn't understand "%s". Try saying "help" to see what I can do.`, cmd)}
}

func allowed(action Action, enabled []Category) bool {
	if enabled == nil {
		return true
	}
	switch action.(type) {
	case Unknown, StopListening:
		return true
	}
	for _, c := range enabled {
		if c == action.Category() {
			return true
		}
	}
	return false
}

// Suggest ranks known phrases by similarity to command.
func (p *CommandProcessor) Suggest(command string, limit int) []CommandSuggestion {
	if limit <= 0 {
		limit = 5
	}

	cmd := NormalizeCommand(command)
	if cmd == "" {
		return []CommandSuggestion{}
	}

	suggestions := make([]CommandSuggestion, 0)
	for _, text := range p.phrases {
		score := Similarity(cmd, text)
		if score <= 0.5 {
			continue
		}
		suggestions = append(suggestions, CommandSuggestion{
			Original:   command,
			Suggested:  text,
			Confidence: score,
			Category:   p.exact[text].Category(),
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Confidence > suggestions[j].Confidence
	})

	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions
}

func (p *CommandProcessor) Phrases() []string {
	return append([]string(nil), p.phrases...)
}

func matchCalendar(cmd string) (Action, bool) {
	if rest, ok := trimAnyPrefix(cmd, "create event ", "add event ", "schedule "); ok && !strings.Contains(rest, "report") {
		return Calendar{Op: "create-event", Query: rest}, true
	}

	if rest, ok := trimAnyPrefix(cmd, "find event ", "search for event "); ok {
		return Calendar{Op: "search-events", Query: rest}, true
	}

	for _, marker := range []string{"what do i have on ", "events on ", "schedule for "} {
		if i := strings.Index(cmd, marker); i >= 0 {
			return Calendar{Op: "list-events", Query: cmd[i+len(marker):]}, true
		}
	}

	if rest, ok := trimAnyPrefix(cmd, "cancel ", "delete ", "remove "); ok && mentionsEvent(rest) {
		return Calendar{Op: "delete-event", Query: rest}, true
	}

	if rest, ok := trimAnyPrefix(cmd, "reschedule ", "move "); ok && mentionsEvent(rest) {
		return Calendar{Op: "reschedule-event", Query: rest}, true
	}

	return nil, false
}

func mentionsEvent(s string) bool {
	return containsAny(s, "event", "appointment", "meeting")
}

func matchTransaction(cmd string) (Action, bool) {
	for _, ph := range transactionPhrases {
		if !strings.Contains(cmd, ph.text) {
			continue
		}
		if tx, ok := ph.action.(Transaction); ok {
			tx.Details = ExtractTransaction(cmd, ph.text)
			return tx, true
		}
		return ph.action, true
	}
	return nil, false
}

func matchReport(cmd string) (Action, bool) {
	for _, ph := range reportPhrases {
		if !strings.Contains(cmd, ph.text) {
			continue
		}
		r := ph.action.(Report)
		switch {
		case strings.Contains(cmd, "pdf"):
			r.Format = "pdf"
		case strings.Contains(cmd, "csv"):
			r.Format = "csv"
		case strings.Contains(cmd, "excel"):
			r.Format = "excel"
		}
		return r, true
	}
	return nil, false
}

func matchEmail(cmd string) (Action, bool) {
	if rest, ok := trimAnyPrefix(cmd, "send email to ", "send an email to "); ok {
		return Email{Op: "send", Recipient: rest}, true
	}
	if rest, ok := trimAnyPrefix(cmd, "compose email to ", "write email to ", "email to "); ok {
		return Email{Op: "compose", Recipient: rest}, true
	}
	if rest, ok := trimAnyPrefix(cmd, "search emails for ", "find emails from ", "find emails about "); ok {
		return Email{Op: "search", Query: rest}, true
	}
	return nil, false
}

func matchSearch(cmd string) (Action, bool) {
	if rest, ok := trimAnyPrefix(cmd, "search for ", "find ", "look for "); ok {
		return Search{Query: rest}, true
	}
	return nil, false
}

func matchNavigation(cmd string) (Action, bool) {
	dest, ok := trimAnyPrefix(cmd, "go to ", "open ", "show ")
	if !ok {
		return nil, false
	}
	if path, found := destinations[dest]; found {
		return Navigate{Path: path}, true
	}
	return Unknown{Message: fmt.Sprintf(`I don't know how to navigate to "%s"`, dest)}, true
}

func matchCreate(cmd string) (Action, bool) {
	if _, ok := trimAnyPrefix(cmd, "create ", "new ", "add "); !ok {
		return nil, false
	}

	switch {
	case strings.Contains(cmd, "invoice"):
		return Create{Entity: "invoice"}, true
	case strings.Contains(cmd, "client"):
		return Create{Entity: "client"}, true
	case strings.Contains(cmd, "report"):
		return Create{Entity: "report"}, true
	case containsAny(cmd, "event", "appointment"):
		return Calendar{Op: "create-event"}, true
	case containsAny(cmd, "income", "revenue"):
		return Transaction{Op: "create-income", Details: ExtractTransaction(cmd, "")}, true
	case containsAny(cmd, "expense", "cost", "payment"):
		return Transaction{Op: "create-expense", Details: ExtractTransaction(cmd, "")}, true
	case containsAny(cmd, "email", "mail", "message"):
		return Email{Op: "compose"}, true
	}

	return Unknown{Message: "I can help you create invoices, clients, reports, calendar events, income, expenses, or emails. What would you like to create?"}, true
}

func matchHelp(cmd string) (Action, bool) {
	if !strings.Contains(cmd, "help") {
		return nil, false
	}

	switch {
	case strings.Contains(cmd, "invoice"):
		return Help{Topic: "invoices"}, true
	case strings.Contains(cmd, "client"):
		return Help{Topic: "clients"}, true
	case containsAny(cmd, "report", "analytics", "revenue", "forecast", "aging"):
		return Help{Topic: "reports"}, true
	case containsAny(cmd, "calendar", "event", "appointment"):
		return Help{Topic: "calendar"}, true
	case containsAny(cmd, "transaction", "income", "expense", "financial", "money"):
		return Help{Topic: "transactions"}, true
	case containsAny(cmd, "email", "mail", "inbox", "compose"):
		return Help{Topic: "email"}, true
	case strings.Contains(cmd, "command"):
		return Help{Topic: "commands"}, true
	}
	return Help{Topic: "general"}, true
}

func matchFuzzy(cmd string) (Action, bool) {
	for _, f := range fuzzyRules {
		if containsAny(cmd, f.patterns...) {
			return Navigate{Path: f.path}, true
		}
	}
	return nil, false
}

func trimAnyPrefix(s string, prefixes ...string) (string, bool) {
	for _, prefix := range prefixes {
		if strings.HasPrefix(s, prefix) {
			return strings.TrimSpace(s[len(prefix):]), true
		}
	}
	return s, false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
