package nlp

import (
	"context"
	"errors"
	"fmt"
)

var ErrExecutionPanic = errors.New("command execution panicked")

// Execute runs action against ec and returns the response text. Errors from
// the router or hooks are returned as is; panics are recovered into
// ErrExecutionPanic.
func (p *CommandProcessor) Execute(ctx context.Context, action CommandAction, ec ExecContext) (response string, err error) {
	defer func() {
		if r := recover(); r != nil {
			response = ""
			err = fmt.Errorf("%w: %v", ErrExecutionPanic, r)
		}
	}()

	switch a := action.Action.(type) {
	case Navigate:
		return executeNavigate(ctx, a, ec)
	case GoBack:
		if ec.Router == nil {
			return "Navigation is not available right now.", nil
		}
		if err := ec.Router.Back(ctx); err != nil {
			return "", err
		}
		return "Going back to the previous page.", nil
	case Create:
		return executeCreate(ctx, a, ec)
	case Calendar, Transaction, Report, Email:
		return executeDomain(ctx, a, ec)
	case Search:
		if a.Query == "" {
			return "What would you like to search for?", nil
		}
		if ec.Hooks.OnSearch == nil {
			return fmt.Sprintf(`I would search for "%s", but search functionality is not available right now.`, a.Query), nil
		}
		if err := ec.Hooks.OnSearch(ctx, a.Query); err != nil {
			return "", err
		}
		return fmt.Sprintf(`Searching for "%s".`, a.Query), nil
	case Export:
		if ec.Hooks.OnExport == nil {
			return fmt.Sprintf("I would export %s data, but export functionality is not available right now.", a.Scope), nil
		}
		if err := ec.Hooks.OnExport(ctx, a.Scope); err != nil {
			return "", err
		}
		return fmt.Sprintf("Exporting %s data.", a.Scope), nil
	case Help:
		if a.Topic == "commands" && ec.Router != nil {
			if err := ec.Router.Navigate(ctx, "/voice-help"); err != nil {
				return "", err
			}
		}
		if text, ok := helpTexts[a.Topic]; ok {
			return text, nil
		}
		return helpTexts["general"], nil
	case OpenVoiceSettings:
		if ec.Hooks.OnOpenVoiceSettings == nil {
			return "Voice settings are not available right now.", nil
		}
		if err := ec.Hooks.OnOpenVoiceSettings(ctx); err != nil {
			return "", err
		}
		return "Opening voice settings.", nil
	case StopListening:
		if ec.Hooks.OnStopListening == nil {
			return "Voice recognition stopped.", nil
		}
		if err := ec.Hooks.OnStopListening(ctx); err != nil {
			return "", err
		}
		return "Stopping voice recognition.", nil
	case Repeat:
		if ec.LastResponse != "" {
			return ec.LastResponse, nil
		}
		return "I don't have anything to repeat.", nil
	case Refresh:
		if ec.Router == nil {
			return "Refreshing is not available right now.", nil
		}
		if err := ec.Router.Reload(ctx); err != nil {
			return "", err
		}
		return "Refreshing the page...", nil
	case Unknown:
		if a.Message != "" {
			return a.Message, nil
		}
		return "I didn't understand that command.", nil
	}

	return "I'm not sure how to handle that command.", nil
}

func executeNavigate(ctx context.Context, a Navigate, ec ExecContext) (string, error) {
	if ec.Router == nil {
		return "Navigation is not available right now.", nil
	}
	if ec.CurrentPath == a.Path {
		return "You're already on that page.", nil
	}
	if err := ec.Router.Navigate(ctx, a.Path); err != nil {
		return "", err
	}

	name, ok := pageNames[a.Path]
	if !ok {
		name = "requested page"
	}
	return fmt.Sprintf("Navigating to the %s.", name), nil
}

func executeCreate(ctx context.Context, a Create, ec ExecContext) (string, error) {
	route, ok := createRoutes[a.Entity]
	if !ok || ec.Router == nil {
		return fmt.Sprintf("I can help you create a new %s, but navigation is not available right now.", a.Entity), nil
	}
	if err := ec.Router.Navigate(ctx, route); err != nil {
		return "", err
	}
	return fmt.Sprintf("Creating a new %s.", a.Entity), nil
}

// executeDomain hands domain commands to the application, or opens the
// matching page when no handler is installed.
func executeDomain(ctx context.Context, a Action, ec ExecContext) (string, error) {
	if ec.Hooks.OnDomain != nil {
		return ec.Hooks.OnDomain(ctx, a)
	}

	if tx, ok := a.(Transaction); ok && isCreate(tx.Op) && (tx.Details == nil || tx.Details.Amount == 0) {
		return "Please specify an amount for the transaction.", nil
	}

	if ec.Router == nil {
		return "Navigation is not available right now.", nil
	}

	route := domainRoutes[a.Kind()]
	if ec.CurrentPath != route {
		if err := ec.Router.Navigate(ctx, route); err != nil {
			return "", err
		}
	}
	return domainOpenings[a.Kind()], nil
}

func isCreate(op string) bool {
	return op == "create-income" || op == "create-expense"
}
