package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/lcagent/lcagent/node"
)

type rememberParams struct {
	Fact string `json:"fact,omitempty" description:"The fact to remember for later turns"`
}

type recallParams struct {
	Query string `json:"query,omitempty" description:"Text to search remembered facts for; empty lists everything"`
}

// RememberFunction exposes Store.Remember as a callable agent function.
func RememberFunction(store Store, sessionID string) node.Function {
	return node.NewGoFunction(
		"remember",
		"Store a fact about the user or conversation for use in later turns.",
		func(_ context.Context, args map[string]any) (any, error) {
			fact, _ := args["fact"].(string)
			if fact == "" {
				return "nothing to remember", nil
			}
			id, err := store.Remember(sessionID, fact, nil)
			if err != nil {
				return nil, fmt.Errorf("remember: %w", err)
			}
			return fmt.Sprintf("remembered (%s)", id), nil
		},
		func(o *node.FunctionOptions) {
			o.ParamsStruct = rememberParams{}
		},
	)
}

// RecallFunction exposes Store.Recall as a callable agent function. Results
// are rendered as a newline list so the model can read them directly.
func RecallFunction(store Store, sessionID string) node.Function {
	return node.NewGoFunction(
		"recall",
		"Search previously remembered facts about the user or conversation.",
		func(_ context.Context, args map[string]any) (any, error) {
			query, _ := args["query"].(string)
			entries, err := store.Recall(sessionID, query, 10)
			if err != nil {
				return nil, fmt.Errorf("recall: %w", err)
			}
			if len(entries) == 0 {
				return "no matching memories", nil
			}
			lines := make([]string, len(entries))
			for i, e := range entries {
				lines[i] = "- " + e.Content
			}
			return strings.Join(lines, "\n"), nil
		},
		func(o *node.FunctionOptions) {
			o.ParamsStruct = recallParams{}
		},
	)
}
