package route

import "strings"

// FinalToken finalizes a classification round: the supervisor has an answer
// and no further dispatch is needed.
const FinalToken = "FINAL"

// Action is one parsed classification decision.
type Action struct {
	// Name is the matched action token: a route name or FinalToken.
	Name string

	// Content is the payload after the token: the question for a route, or
	// the final answer for FinalToken.
	Content string

	// Final reports whether the token was FinalToken.
	Final bool
}

// ParseAction scans a classification response line by line for the first line
// starting with a valid action token (a registered route name or FINAL)
// followed by end-of-line or whitespace. Preamble before the action line is
// tolerated and discarded. Content is the remainder of the action line plus
// all following lines up to the next action-start line.
//
// Returns false when no line carries a valid action token.
func ParseAction(text string, routes []string) (Action, bool) {
	tokens := make([]string, 0, len(routes)+1)
	tokens = append(tokens, routes...)
	tokens = append(tokens, FinalToken)

	lines := strings.Split(text, "\n")

	start := -1
	var token, rest string
	for i, line := range lines {
		if t, r, ok := matchActionStart(line, tokens); ok {
			start, token, rest = i, t, r
			break
		}
	}
	if start < 0 {
		return Action{}, false
	}

	var parts []string
	if rest != "" {
		parts = append(parts, rest)
	}
	for _, line := range lines[start+1:] {
		if _, _, ok := matchActionStart(line, tokens); ok {
			break
		}
		parts = append(parts, line)
	}

	return Action{
		Name:    token,
		Content: strings.TrimSpace(strings.Join(parts, "\n")),
		Final:   token == FinalToken,
	}, true
}

// matchActionStart reports whether a line starts with one of the tokens
// followed by end-of-line or whitespace, returning the token and the rest of
// the line.
func matchActionStart(line string, tokens []string) (string, string, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	for _, token := range tokens {
		if token == "" || !strings.HasPrefix(trimmed, token) {
			continue
		}
		rest := trimmed[len(token):]
		if rest == "" {
			return token, "", true
		}
		if rest[0] == ' ' || rest[0] == '\t' {
			return token, strings.TrimSpace(rest), true
		}
	}
	return "", "", false
}
