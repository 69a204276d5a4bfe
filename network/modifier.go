package network

import (
	"context"
	"fmt"
	"sort"

	"github.com/lcagent/lcagent/core"
	"github.com/lcagent/lcagent/profiling"
)

// Modifier is a pluggable hook invoked at defined points of a network's
// evaluation. Any hook may mutate the network (add, remove or rewire nodes);
// the scheduler re-discovers newly eligible nodes after every hook call.
//
// Each network owns its own modifier instances. A modifier may keep instance
// state (retry counters and the like) but must not assume shared global
// state. Hooks receive the evaluation context and may block on I/O.
type Modifier interface {
	// OnBegin runs once before the fixpoint loop starts.
	OnBegin(ctx context.Context, net *Network) error

	// OnPreInvoke runs before each node evaluation. If the hook removes the
	// node being visited, the scheduler skips it without invoking.
	OnPreInvoke(ctx context.Context, net *Network, n Node) error

	// OnPostInvoke runs after each node evaluation.
	OnPostInvoke(ctx context.Context, net *Network, n Node) error

	// OnEnd runs once after the fixpoint loop terminates.
	OnEnd(ctx context.Context, net *Network) error
}

// BaseModifier is a no-op Modifier. Embed it and override the hooks you need.
type BaseModifier struct{}

// OnBegin implements Modifier.
func (BaseModifier) OnBegin(context.Context, *Network) error { return nil }

// OnPreInvoke implements Modifier.
func (BaseModifier) OnPreInvoke(context.Context, *Network, Node) error { return nil }

// OnPostInvoke implements Modifier.
func (BaseModifier) OnPostInvoke(context.Context, *Network, Node) error { return nil }

// OnEnd implements Modifier.
func (BaseModifier) OnEnd(context.Context, *Network) error { return nil }

// ModifierOptions configures modifier registration.
type ModifierOptions struct {
	// Priority orders modifier execution; lower runs first. Modifiers with
	// equal priority run in insertion order.
	Priority float64
}

type modifierEntry struct {
	id       string
	priority float64
	seq      int
	modifier Modifier
}

// AddModifier registers a modifier and returns a handle usable with
// RemoveModifier. Modifiers are visited in ascending (priority, insertion)
// order.
func (net *Network) AddModifier(m Modifier, optFns ...func(o *ModifierOptions)) string {
	opts := ModifierOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	entry := &modifierEntry{
		id:       core.NewID(),
		priority: opts.Priority,
		seq:      net.modSeq,
		modifier: m,
	}
	net.modSeq++
	net.modifiers = append(net.modifiers, entry)

	return entry.id
}

// RemoveModifier unregisters a modifier by handle.
func (net *Network) RemoveModifier(id string) bool {
	for i, e := range net.modifiers {
		if e.id == id {
			net.modifiers = append(net.modifiers[:i], net.modifiers[i+1:]...)
			return true
		}
	}
	return false
}

// Modifiers returns the registered modifiers in execution order.
func (net *Network) Modifiers() []Modifier {
	entries := net.sortedModifierEntries(nil)
	mods := make([]Modifier, len(entries))
	for i, e := range entries {
		mods[i] = e.modifier
	}
	return mods
}

type modifierStage int

const (
	stageBegin modifierStage = iota
	stagePreInvoke
	stagePostInvoke
	stageEnd
)

func (s modifierStage) String() string {
	switch s {
	case stageBegin:
		return "begin"
	case stagePreInvoke:
		return "pre_invoke"
	case stagePostInvoke:
		return "post_invoke"
	default:
		return "end"
	}
}

// sortedModifierEntries returns entries not yet in visited, ordered by
// (priority, insertion sequence).
func (net *Network) sortedModifierEntries(visited map[string]bool) []*modifierEntry {
	pending := make([]*modifierEntry, 0, len(net.modifiers))
	for _, e := range net.modifiers {
		if visited != nil && visited[e.id] {
			continue
		}
		pending = append(pending, e)
	}
	sort.SliceStable(pending, func(i, j int) bool {
		if pending[i].priority != pending[j].priority {
			return pending[i].priority < pending[j].priority
		}
		return pending[i].seq < pending[j].seq
	})
	return pending
}

// runModifiers executes one hook stage across all modifiers. Each modifier is
// visited exactly once per round; a modifier registered during the round (a
// modifier-adding-modifier) is picked up by re-scanning for not-yet-visited
// entries after each pass.
func (net *Network) runModifiers(ctx context.Context, stage modifierStage, n Node) error {
	visited := map[string]bool{}

	for {
		pending := net.sortedModifierEntries(visited)
		if len(pending) == 0 {
			return nil
		}

		for _, e := range pending {
			visited[e.id] = true

			name := fmt.Sprintf("%T", e.modifier)
			net.currentModifier = name

			frame := profiling.Begin(net.id, profiling.FrameModifier, name+"."+stage.String())
			err := net.callModifier(ctx, e.modifier, stage, n)
			profiling.End(frame)

			net.currentModifier = ""

			if err != nil {
				return fmt.Errorf("modifier %s %s: %w", name, stage, err)
			}
		}
	}
}

func (net *Network) callModifier(ctx context.Context, m Modifier, stage modifierStage, n Node) error {
	switch stage {
	case stageBegin:
		return m.OnBegin(ctx, net)
	case stagePreInvoke:
		return m.OnPreInvoke(ctx, net, n)
	case stagePostInvoke:
		return m.OnPostInvoke(ctx, net, n)
	default:
		return m.OnEnd(ctx, net)
	}
}
