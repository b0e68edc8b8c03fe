package model

import "strings"

// Chain is an ordered sequence of registrations that together transform one
// format into another. A chain with no steps is a pass-through: it hands its
// input back unchanged and carries the format it passes through.
//
// Chains are immutable snapshots; they do not follow later graph changes.
type Chain struct {
	steps       []*Registration
	passThrough string
}

// NewChain returns a chain over the given steps.
func NewChain(steps ...*Registration) *Chain {
	return &Chain{steps: append([]*Registration(nil), steps...)}
}

// NewPassThrough returns a zero-step chain for data already in format.
func NewPassThrough(format string) *Chain {
	return &Chain{passThrough: format}
}

// Steps returns a copy of the chain's registrations in execution order.
func (c *Chain) Steps() []*Registration {
	return append([]*Registration(nil), c.steps...)
}

// Len returns the number of steps.
func (c *Chain) Len() int {
	return len(c.steps)
}

// IsPassThrough reports whether the chain performs no conversion.
func (c *Chain) IsPassThrough() bool {
	return len(c.steps) == 0
}

// Terminal returns the format the chain produces: the out format of the last
// step, or the declared format of a pass-through.
func (c *Chain) Terminal() string {
	if len(c.steps) == 0 {
		return c.passThrough
	}
	return c.steps[len(c.steps)-1].OutFormat
}

// Append returns a new chain with step added at the end.
func (c *Chain) Append(step *Registration) *Chain {
	steps := make([]*Registration, 0, len(c.steps)+1)
	steps = append(steps, c.steps...)
	return &Chain{steps: append(steps, step)}
}

// Key identifies the chain by its step identities. Two chains are equal iff
// their keys are equal; every pass-through has the empty key.
func (c *Chain) Key() string {
	ids := make([]string, len(c.steps))
	for i, s := range c.steps {
		ids[i] = s.ID
	}
	return strings.Join(ids, "\x00")
}

// Equal reports whether two chains have the same step sequence.
func (c *Chain) Equal(o *Chain) bool {
	return c.Key() == o.Key()
}

// String renders the chain as "id1 -> id2" for logs and CLI output.
func (c *Chain) String() string {
	if len(c.steps) == 0 {
		return "(pass-through " + c.passThrough + ")"
	}
	ids := make([]string, len(c.steps))
	for i, s := range c.steps {
		ids[i] = s.ID
	}
	return strings.Join(ids, " -> ")
}

// ChainView is the JSON shape of a chain on the wire.
type ChainView struct {
	PassThrough bool            `json:"pass_through,omitempty"`
	Format      string          `json:"format"`
	Steps       []*Registration `json:"steps"`
}

// View converts the chain for JSON transport.
func (c *Chain) View() ChainView {
	steps := c.Steps()
	if steps == nil {
		steps = []*Registration{}
	}
	return ChainView{
		PassThrough: c.IsPassThrough(),
		Format:      c.Terminal(),
		Steps:       steps,
	}
}

// DedupChains keeps the first chain for every distinct key, preserving order.
func DedupChains(chains []*Chain) []*Chain {
	seen := make(map[string]struct{}, len(chains))
	out := make([]*Chain, 0, len(chains))
	for _, c := range chains {
		if c == nil {
			continue
		}
		k := c.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, c)
	}
	return out
}
