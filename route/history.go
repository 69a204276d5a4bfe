package route

import (
	"fmt"
	"strings"

	"github.com/lcagent/lcagent/core"
	"github.com/lcagent/lcagent/network"
)

// Metadata keys recorded by the router on the dispatch turn that triggered a
// tool call. They reconstruct classification history and detect repeated
// calls without replaying model output.
const (
	// MetaToolCallName is the dispatched route name.
	MetaToolCallName = "tool_call_name"

	// MetaToolCallContent is the question/payload handed to the route.
	MetaToolCallContent = "tool_call_content"

	// MetaToolCallFull is the raw action line as classified.
	MetaToolCallFull = "tool_call_full"

	// MetaIsLoop marks a classifier output that repeated the immediately
	// preceding tool call.
	MetaIsLoop = "is_loop"
)

// ToolRound is one completed dispatch: which route ran, with what payload,
// and what it answered.
type ToolRound struct {
	Name    string
	Content string
	Result  string
}

// CollectHistory walks parent references backward from n gathering completed
// tool rounds in chronological order. The walk follows the first-parent chain
// (dispatch chains are linear), stops at the first genuine human turn that is
// not dispatch scaffolding, and costs O(depth). Nodes marked
// contribute_to_history=false never contribute results.
func CollectHistory(n network.Node) []ToolRound {
	var rounds []ToolRound
	pendingResult := ""

	cur := firstParent(n)
	for cur != nil {
		md := cur.Metadata()

		if name, ok := md[MetaToolCallName].(string); ok {
			content, _ := md[MetaToolCallContent].(string)
			rounds = append(rounds, ToolRound{Name: name, Content: content, Result: pendingResult})
			pendingResult = ""
			cur = firstParent(cur)
			continue
		}

		if contributes(cur) {
			if out := cur.Outputs(); out != nil {
				if out.Role == core.RoleHuman {
					break
				}
				if pendingResult == "" {
					pendingResult = out.Content
				}
			}
		}

		cur = firstParent(cur)
	}

	// Walked newest-first; callers want chronological order.
	for i, j := 0, len(rounds)-1; i < j; i, j = i+1, j-1 {
		rounds[i], rounds[j] = rounds[j], rounds[i]
	}
	return rounds
}

// LatestRound returns the most recent prior dispatch for loop comparison.
func LatestRound(n network.Node) (ToolRound, bool) {
	cur := firstParent(n)
	for cur != nil {
		md := cur.Metadata()
		if name, ok := md[MetaToolCallName].(string); ok {
			content, _ := md[MetaToolCallContent].(string)
			return ToolRound{Name: name, Content: content}, true
		}
		if out := cur.Outputs(); out != nil && out.Role == core.RoleHuman && contributes(cur) {
			return ToolRound{}, false
		}
		cur = firstParent(cur)
	}
	return ToolRound{}, false
}

// FormatHistory renders rounds as a prompt fragment for re-classification.
func FormatHistory(rounds []ToolRound) string {
	if len(rounds) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Tool calls so far:\n")
	for _, r := range rounds {
		fmt.Fprintf(&b, "- %s(%s) -> %s\n", r.Name, r.Content, r.Result)
	}
	return b.String()
}

func firstParent(n network.Node) network.Node {
	parents := n.Parents()
	if len(parents) == 0 {
		return nil
	}
	return parents[0]
}

func contributes(n network.Node) bool {
	if v, ok := n.Metadata()[network.MetaContributeToHistory]; ok {
		if c, ok := v.(bool); ok {
			return c
		}
	}
	return true
}
