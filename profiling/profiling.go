// Package profiling provides an optional, context-local instrumentation
// layer recording a tree of timed frames (network / modifier / node / chunk)
// per network for post-hoc analysis.
//
// Enabling is process-wide, seeded from the LCAGENT_PROFILING environment
// variable at startup. When disabled every operation is a no-op returning
// nil without allocating frames. Frame stacks are keyed by network identity,
// so concurrently running networks (including nested sub-networks) never
// cross-contaminate each other's trees even though they share the single
// enable switch.
package profiling

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// FrameKind categorizes a recorded interval.
type FrameKind string

const (
	// FrameNetwork spans one full network evaluation.
	FrameNetwork FrameKind = "network"
	// FrameModifier spans one modifier hook call.
	FrameModifier FrameKind = "modifier"
	// FrameNode spans one node evaluation.
	FrameNode FrameKind = "node"
	// FrameChunk spans the production of one streaming chunk.
	FrameChunk FrameKind = "chunk"
	// FrameCustom marks user-recorded intervals.
	FrameCustom FrameKind = "custom"
)

// Frame is a named, typed, timestamped interval that can nest children.
type Frame struct {
	Name      string    `json:"name"`
	Kind      FrameKind `json:"kind"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Children  []*Frame  `json:"children,omitempty"`

	parent *Frame
	stack  *frameStack
}

// Duration returns the frame's total elapsed time. A frame not yet closed
// reports the time elapsed so far.
func (f *Frame) Duration() time.Duration {
	if f.EndTime.IsZero() {
		return time.Since(f.StartTime)
	}
	return f.EndTime.Sub(f.StartTime)
}

// SelfDuration returns total duration minus the sum of direct children
// durations: time attributable to the frame itself, without double-counting
// nested work.
func (f *Frame) SelfDuration() time.Duration {
	d := f.Duration()
	for _, c := range f.Children {
		d -= c.Duration()
	}
	if d < 0 {
		return 0
	}
	return d
}

type frameStack struct {
	root    *Frame
	current *Frame
}

var (
	enabled atomic.Bool

	mu     sync.Mutex
	stacks = map[string]*frameStack{}
)

func init() {
	if v, err := strconv.ParseBool(os.Getenv("LCAGENT_PROFILING")); err == nil && v {
		enabled.Store(true)
	}
}

// Enable turns profiling on process-wide.
func Enable() { enabled.Store(true) }

// Disable turns profiling off process-wide. Already recorded trees remain
// readable.
func Disable() { enabled.Store(false) }

// Enabled reports the process-wide switch.
func Enabled() bool { return enabled.Load() }

// Begin opens a frame on the stack of the given network and returns it.
// Returns nil when profiling is disabled; End tolerates nil, so call sites
// need no branching.
func Begin(networkID string, kind FrameKind, name string) *Frame {
	if !enabled.Load() {
		return nil
	}

	mu.Lock()
	defer mu.Unlock()

	st, ok := stacks[networkID]
	if !ok {
		st = &frameStack{}
		stacks[networkID] = st
	}

	f := &Frame{
		Name:      name,
		Kind:      kind,
		StartTime: time.Now(),
		parent:    st.current,
		stack:     st,
	}

	if st.current != nil {
		st.current.Children = append(st.current.Children, f)
	} else if st.root == nil {
		st.root = f
	} else {
		// A second top-level frame for the same network (re-invocation):
		// attach as sibling under the existing root's parent slot by
		// promoting a synthetic root.
		root := &Frame{Name: "session", Kind: FrameCustom, StartTime: st.root.StartTime, Children: []*Frame{st.root, f}}
		st.root = root
	}
	st.current = f

	return f
}

// End closes a frame, computing its end time and popping it from its
// network's stack. A nil frame (profiling disabled at Begin) is a no-op.
func End(f *Frame) {
	if f == nil {
		return
	}

	mu.Lock()
	defer mu.Unlock()

	if f.EndTime.IsZero() {
		f.EndTime = time.Now()
	}
	if f.stack != nil && f.stack.current == f {
		f.stack.current = f.parent
	}
}

// Tree returns the recorded frame tree for a network, nil if none.
func Tree(networkID string) *Frame {
	mu.Lock()
	defer mu.Unlock()
	st, ok := stacks[networkID]
	if !ok {
		return nil
	}
	return st.root
}

// Clear discards the recorded tree for a network.
func Clear(networkID string) {
	mu.Lock()
	defer mu.Unlock()
	delete(stacks, networkID)
}

// Report writes an indented summary of a frame tree: kind, name, total and
// self duration per frame.
func Report(w io.Writer, f *Frame) {
	reportFrame(w, f, 0)
}

func reportFrame(w io.Writer, f *Frame, depth int) {
	if f == nil {
		return
	}
	fmt.Fprintf(w, "%s[%s] %s total=%s self=%s\n",
		strings.Repeat("  ", depth), f.Kind, f.Name, f.Duration().Round(time.Microsecond), f.SelfDuration().Round(time.Microsecond))
	for _, c := range f.Children {
		reportFrame(w, c, depth+1)
	}
}
