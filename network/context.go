package network

import "context"

// The active network stack is carried on context.Context as an immutable
// snapshot: pushing copies the slice, so two concurrently running top-level
// invocations never observe each other's nesting and unwinding is inherent
// to context scoping (no explicit pop, exception-safe by construction).

type activeStackKey struct{}

// WithActive returns a context whose active-network stack has net pushed on
// top. Invoke and Stream do this automatically; construction code running
// outside an evaluation can use it to scope a network explicitly.
func WithActive(ctx context.Context, net *Network) context.Context {
	prev := ActiveStack(ctx)
	stack := make([]*Network, len(prev)+1)
	copy(stack, prev)
	stack[len(prev)] = net
	return context.WithValue(ctx, activeStackKey{}, stack)
}

// Active returns the innermost active network, if any.
func Active(ctx context.Context) (*Network, bool) {
	stack := ActiveStack(ctx)
	if len(stack) == 0 {
		return nil, false
	}
	return stack[len(stack)-1], true
}

// ActiveStack returns a copy of the active-network stack, outermost first.
func ActiveStack(ctx context.Context) []*Network {
	stack, _ := ctx.Value(activeStackKey{}).([]*Network)
	out := make([]*Network, len(stack))
	copy(out, stack)
	return out
}
