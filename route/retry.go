package route

import (
	"context"
	"fmt"

	"github.com/lcagent/lcagent/core"
	"github.com/lcagent/lcagent/network"
	"github.com/lcagent/lcagent/node"
)

// DefaultMaxRetries bounds corrective rounds injected by a RetryModifier.
const DefaultMaxRetries = 3

// RetryOptions configure NewRetryModifier.
type RetryOptions struct {
	// MaxRetries bounds corrective rounds. Defaults to DefaultMaxRetries.
	MaxRetries int

	// Feedback renders the corrective instruction for a validation error.
	// Defaults to a generic fix request.
	Feedback func(err error) string
}

// RetryModifier implements the bounded retry/error-correction pattern: when a
// supervised node produces output that fails validation (malformed JSON, a
// missing key), it appends a feedback turn describing the problem plus a fresh
// instance of the failed node type. Once the retry budget is exhausted the
// failure is logged and the graph is left to reach fixpoint with the last
// error state as output.
type RetryModifier struct {
	network.BaseModifier

	match      func(n network.Node) bool
	validate   func(msg *core.Message) error
	newNode    func() network.Node
	feedback   func(err error) string
	maxRetries int

	retries   int
	exhausted bool
}

// NewRetryModifier creates a retry modifier. match selects the nodes to
// supervise, validate checks their output, and newNode builds the replacement
// instance injected after the feedback turn.
func NewRetryModifier(
	match func(n network.Node) bool,
	validate func(msg *core.Message) error,
	newNode func() network.Node,
	optFns ...func(o *RetryOptions),
) *RetryModifier {
	opts := RetryOptions{MaxRetries: DefaultMaxRetries}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Feedback == nil {
		opts.Feedback = func(err error) string {
			return fmt.Sprintf("Your previous response was invalid: %v. Fix the problem and respond again.", err)
		}
	}

	return &RetryModifier{
		match:      match,
		validate:   validate,
		newNode:    newNode,
		feedback:   opts.Feedback,
		maxRetries: opts.MaxRetries,
	}
}

// Retries returns how many corrective rounds have been injected.
func (r *RetryModifier) Retries() int { return r.retries }

// OnPostInvoke validates supervised outputs and injects corrective rounds.
func (r *RetryModifier) OnPostInvoke(_ context.Context, net *network.Network, n network.Node) error {
	if !r.match(n) {
		return nil
	}
	out := n.Outputs()
	if out == nil {
		return nil
	}

	err := r.validate(out)
	if err == nil {
		r.retries = 0
		return nil
	}

	if r.retries >= r.maxRetries {
		if !r.exhausted {
			r.exhausted = true
			net.Logger().Error("retry.budget_exhausted",
				"node", n.ID(), "retries", r.retries, "error", err)
		}
		return nil
	}
	r.retries++

	feedback := node.NewHumanNode(r.feedback(err))
	net.AddNodeAfter(feedback, n)

	replacement := r.newNode()
	net.AddNodeAfter(replacement, feedback)

	net.Logger().Debug("retry.corrective_round",
		"node", n.ID(), "attempt", r.retries, "error", err)
	return nil
}
