package nlp

type phrase struct {
	text   string
	action Action
}

func nav(path string) Action { return Navigate{Path: path} }
func create(entity string) Action { return Create{Entity: entity} }
func calendar(op string) Action { return Calendar{Op: op} }
func transaction(op string) Action { return Transaction{Op: op} }
func report(op string) Action { return Report{Op: op} }
func email(op string) Action { return Email{Op: op} }
func help(topic string) Action { return Help{Topic: topic} }
func export(scope string) Action { return Export{Scope: scope} }

// Exact phrase tables, applied in order; a later table overrides an earlier
// one for the same phrase.
var navigationPhrases = []phrase{
	{"go to dashboard", nav("/dashboard")},
	{"open dashboard", nav("/dashboard")},
	{"show dashboard", nav("/dashboard")},
	{"dashboard", nav("/dashboard")},

	{"go to clients", nav("/clients")},
	{"open clients", nav("/clients")},
	{"show clients", nav("/clients")},
	{"client list", nav("/clients")},
	{"clients", nav("/clients")},

	{"go to invoices", nav("/invoices")},
	{"open invoices", nav("/invoices")},
	{"show invoices", nav("/invoices")},
	{"invoice list", nav("/invoices")},
	{"invoices", nav("/invoices")},

	{"go to calendar", nav("/calendar")},
	{"open calendar", nav("/calendar")},
	{"show calendar", nav("/calendar")},
	{"calendar", nav("/calendar")},

	{"go to financial", nav("/financial")},
	{"open financial", nav("/financial")},
	{"show financial", nav("/financial")},
	{"financial", nav("/financial")},
	{"finances", nav("/financial")},
	{"transactions", nav("/financial")},

	{"go to reports", nav("/reports")},
	{"open reports", nav("/reports")},
	{"show reports", nav("/reports")},
	{"reports", nav("/reports")},

	{"go to analytics", nav("/analytics")},
	{"open analytics", nav("/analytics")},
	{"analytics", nav("/analytics")},

	{"go to settings", nav("/settings")},
	{"open settings", nav("/settings")},
	{"show settings", nav("/settings")},
	{"settings", nav("/settings")},

	{"go to profile", nav("/profile")},
	{"open profile", nav("/profile")},
	{"my profile", nav("/profile")},
	{"profile", nav("/profile")},

	{"go back", GoBack{}},
	{"back", GoBack{}},
	{"previous page", GoBack{}},
}

var actionPhrases = []phrase{
	{"create new invoice", create("invoice")},
	{"new invoice", create("invoice")},
	{"add invoice", create("invoice")},
	{"create new client", create("client")},
	{"new client", create("client")},
	{"add client", create("client")},
	{"create new report", create("report")},
	{"new report", create("report")},
	{"add report", create("report")},

	{"search", Search{}},
	{"find", Search{}},
	{"look for", Search{}},

	{"export data", export("all")},
	{"export invoices", export("invoices")},
	{"export clients", export("clients")},
	{"export reports", export("reports")},

	{"refresh", Refresh{}},
	{"reload", Refresh{}},
	{"update", Refresh{}},
}

var helpPhrases = []phrase{
	{"help", help("general")},
	{"what can you do", help("capabilities")},
	{"what can i say", help("commands")},
	{"voice commands", help("commands")},
	{"how do i", help("howto")},
	{"help me with invoices", help("invoices")},
	{"help me with clients", help("clients")},
	{"help me with reports", help("reports")},
	{"help with reports", help("reports")},
	{"report help", help("reports")},
	{"help me with analytics", help("reports")},
	{"analytics help", help("reports")},
	{"help me with calendar", help("calendar")},
	{"help with calendar", help("calendar")},
	{"calendar help", help("calendar")},
	{"help me with transactions", help("transactions")},
	{"help with transactions", help("transactions")},
	{"transaction help", help("transactions")},
	{"help me with finances", help("transactions")},
	{"financial help", help("transactions")},
	{"help me with email", help("email")},
	{"help with email", help("email")},
	{"email help", help("email")},
	{"help me with emails", help("email")},
	{"help with emails", help("email")},
}

var systemPhrases = []phrase{
	{"open voice settings", OpenVoiceSettings{}},
	{"voice settings", OpenVoiceSettings{}},
	{"configure voice", OpenVoiceSettings{}},
	{"stop listening", StopListening{}},
	{"stop", StopListening{}},
	{"cancel", StopListening{}},
	{"repeat", Repeat{}},
	{"say that again", Repeat{}},
	{"what did you say", Repeat{}},
}

var calendarPhrases = []phrase{
	{"create event", calendar("create-event")},
	{"new event", calendar("create-event")},
	{"add event", calendar("create-event")},
	{"schedule event", calendar("create-event")},
	{"create appointment", calendar("create-appointment")},
	{"new appointment", calendar("create-appointment")},
	{"schedule appointment", calendar("create-appointment")},
	{"book appointment", calendar("create-appointment")},
	{"my schedule", calendar("list-events")},
	{"show my events", calendar("list-events")},
	{"today's events", calendar("today-events")},
	{"what do i have today", calendar("today-events")},
	{"refresh calendar", calendar("refresh-calendar")},
}

// Transaction phrases are also matched as substrings, in this order.
var transactionPhrases = []phrase{
	{"add income", transaction("create-income")},
	{"record income", transaction("create-income")},
	{"new income", transaction("create-income")},
	{"create income", transaction("create-income")},
	{"log income", transaction("create-income")},
	{"add revenue", transaction("create-income")},
	{"record payment", transaction("create-income")},
	{"received payment", transaction("create-income")},

	{"add expense", transaction("create-expense")},
	{"record expense", transaction("create-expense")},
	{"new expense", transaction("create-expense")},
	{"create expense", transaction("create-expense")},
	{"log expense", transaction("create-expense")},
	{"add cost", transaction("create-expense")},
	{"record purchase", transaction("create-expense")},
	{"paid for", transaction("create-expense")},

	{"show income", transaction("list-income")},
	{"list income", transaction("list-income")},
	{"my income", transaction("list-income")},
	{"show expenses", transaction("list-expenses")},
	{"list expenses", transaction("list-expenses")},
	{"my expenses", transaction("list-expenses")},
	{"show my transactions", transaction("list-transactions")},
	{"show transactions", transaction("list-transactions")},
	{"list transactions", transaction("list-transactions")},
	{"my transactions", transaction("list-transactions")},
	{"financial overview", transaction("overview")},
	{"show financial overview", transaction("overview")},
	{"financial summary", transaction("overview")},
	{"money overview", transaction("overview")},

	{"find transaction", transaction("search")},
	{"search transaction", transaction("search")},

	{"go to finances", nav("/financial")},
	{"open finances", nav("/financial")},
	{"show finances", nav("/financial")},
	{"financial dashboard", nav("/financial")},
	{"money dashboard", nav("/financial")},
}

// Report phrases are also matched as substrings, in this order.
var reportPhrases = []phrase{
	{"generate revenue report", report("generate-revenue")},
	{"create revenue report", report("generate-revenue")},
	{"revenue report", report("generate-revenue")},
	{"generate client report", report("generate-client")},
	{"create client report", report("generate-client")},
	{"client report", report("generate-client")},
	{"generate tax report", report("generate-tax")},
	{"create tax report", report("generate-tax")},
	{"tax report", report("generate-tax")},
	{"generate aging report", report("generate-aging")},
	{"aging report", report("generate-aging")},
	{"get financial analytics", report("analytics")},
	{"show analytics", report("analytics")},
	{"financial analytics", report("analytics")},
	{"show cash flow forecast", report("forecast")},
	{"cash flow forecast", report("forecast")},
	{"forecast", report("forecast")},
	{"schedule weekly report", report("schedule-weekly")},
	{"schedule monthly report", report("schedule-monthly")},
	{"schedule report", report("schedule")},
}

var emailPhrases = []phrase{
	{"compose email", email("compose")},
	{"new email", email("compose")},
	{"write email", email("compose")},
	{"send email", email("send")},
	{"check email", email("check")},
	{"check my email", email("check")},
	{"show inbox", email("inbox")},
	{"open inbox", email("inbox")},
	{"my inbox", email("inbox")},
	{"search emails", email("search")},
	{"find emails", email("search")},
	{"mark as read", email("mark-read")},
	{"mark as unread", email("mark-unread")},
	{"star email", email("star")},
	{"unstar email", email("unstar")},
	{"delete email", email("delete")},
	{"archive email", email("archive")},
	{"reply to email", email("reply")},
	{"forward email", email("forward")},
}

var destinations = map[string]string{
	"dashboard":            "/dashboard",
	"home":                 "/dashboard",
	"clients":              "/clients",
	"client":               "/clients",
	"invoices":             "/invoices",
	"invoice":              "/invoices",
	"reports":              "/reports",
	"report":               "/reports",
	"calendar":             "/calendar",
	"schedule":             "/calendar",
	"events":               "/calendar",
	"analytics":            "/analytics",
	"settings":             "/settings",
	"profile":              "/profile",
	"financial":            "/financial",
	"finances":             "/financial",
	"money":                "/financial",
	"transactions":         "/financial",
	"income":               "/financial",
	"expenses":             "/financial",
	"expense":              "/financial",
	"email":                "/email",
	"emails":               "/email",
	"mail":                 "/email",
	"inbox":                "/email/inbox",
	"sent":                 "/email/sent",
	"drafts":               "/email/drafts",
	"compose":              "/email/compose",
	"help":                 "/help",
	"voice help":           "/voice-help",
	"voice commands":       "/voice-help",
	"command help":         "/voice-help",
	"voice assistant help": "/voice-help",
}

type fuzzyRule struct {
	patterns []string
	path     string
}

// common misspellings and loose variants, checked as substrings
var fuzzyRules = []fuzzyRule{
	{[]string{"dashbord", "dashbaord", "dash"}, "/dashboard"},
	{[]string{"clints", "client", "custmers"}, "/clients"},
	{[]string{"invoic", "bills", "billing"}, "/invoices"},
	{[]string{"reprt", "reporting"}, "/reports"},
	{[]string{"analytic", "stats", "statistics"}, "/analytics"},
	{[]string{"mail", "emai", "inbox", "mesage"}, "/email"},
}

var pageNames = map[string]string{
	"/dashboard":  "dashboard",
	"/clients":    "clients page",
	"/invoices":   "invoices page",
	"/reports":    "reports page",
	"/analytics":  "analytics page",
	"/settings":   "settings page",
	"/profile":    "profile page",
	"/calendar":   "calendar",
	"/financial":  "financial page",
	"/email":      "email page",
	"/help":       "help page",
	"/voice-help": "voice commands help page",
}

var createRoutes = map[string]string{
	"invoice": "/invoices/new",
	"client":  "/clients/new",
	"report":  "/reports/new",
	"email":   "/email/compose",
}

var domainRoutes = map[string]string{
	"calendar":    "/calendar",
	"transaction": "/financial",
	"report":      "/reports",
	"email":       "/email",
}

var domainOpenings = map[string]string{
	"calendar":    "Opening the calendar.",
	"transaction": "Opening your finances.",
	"report":      "Opening reports.",
	"email":       "Opening your email.",
}

var helpTexts = map[string]string{
	"general":      "I can help you navigate Nexa Manager, create invoices and clients, search for information, manage your calendar, handle financial transactions, and more. Try saying 'what can you do' for a full list of commands, or say 'voice help' to open the complete command reference.",
	"capabilities": "I can help you with: navigating between pages (say 'go to dashboard'), creating new items (say 'create new invoice'), searching (say 'search for client name'), exporting data, managing calendar events (say 'schedule appointment'), handling financial transactions (say 'add income' or 'record expense'), and getting help. Say 'voice help' for the complete command reference. What would you like to do?",
	"commands":     "Opening the complete voice commands help page for you...",
	"invoices":     "For invoices, you can say: 'Go to invoices', 'Create new invoice', 'Search for invoice', or 'Export invoices'. What would you like to do with invoices?",
	"clients":      "For clients, you can say: 'Go to clients', 'Create new client', 'Search for client', or 'Export clients'. What would you like to do with clients?",
	"reports":      "For reports, you can say: 'Go to reports', 'Generate revenue report', 'Create client report', 'Show tax report', 'Generate aging report', 'Get financial analytics', 'Show cash flow forecast', 'Schedule weekly report', or 'Export report as PDF'. What would you like to do with reports?",
	"calendar":     "For calendar, you can say: 'Go to calendar', 'Create event', 'Schedule appointment', 'My schedule', 'Today's events', 'What do I have today', or 'Book appointment'. What would you like to do with your calendar?",
	"transactions": "For financial transactions, you can say: 'Add income', 'Record expense', 'Show my transactions', 'Go to financial', 'List income', 'List expenses', 'Search transactions', or 'Financial overview'. What would you like to do with your finances?",
	"email":        "For email, you can say: 'Compose email', 'Check my email', 'Show inbox', 'Search emails', 'Reply to email', 'Forward email', 'Mark as read', 'Star email', 'Delete email', 'Archive email', 'Send email to [contact]', or 'Go to email'. What would you like to do with your emails?",
	"howto":        "I can help you learn how to use different features. Try asking 'Help me with invoices', 'Help me with clients', 'Help me with reports', 'Help me with calendar', 'Help me with transactions', or 'Help me with email'. For a complete command reference, say 'voice help'.",
}
