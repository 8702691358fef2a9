package ledgerstate

import "fmt"

// Lifecycle is a linear state machine declared from a single ordered list:
// the first state is initial, the last is terminal, and each state may only
// advance to the one declared after it.
type Lifecycle[S comparable] struct {
	states []S
	index  map[S]int
}

// NewLifecycle declares a lifecycle. It panics when states is empty or
// contains duplicates, since both are programming errors.
func NewLifecycle[S comparable](states ...S) *Lifecycle[S] {
	if len(states) == 0 {
		panic("ledgerstate: lifecycle needs at least one state")
	}
	l := &Lifecycle[S]{
		states: append([]S(nil), states...),
		index:  make(map[S]int, len(states)),
	}
	for i, s := range states {
		if _, dup := l.index[s]; dup {
			panic(fmt.Sprintf("ledgerstate: duplicate lifecycle state %v", s))
		}
		l.index[s] = i
	}
	return l
}

// Initial returns the state every new entity starts in.
func (l *Lifecycle[S]) Initial() S { return l.states[0] }

// Terminal returns the state beyond which no transition is legal.
func (l *Lifecycle[S]) Terminal() S { return l.states[len(l.states)-1] }

// IsTerminal reports whether s is the terminal state.
func (l *Lifecycle[S]) IsTerminal(s S) bool { return s == l.Terminal() }

// Has reports whether s is a declared state.
func (l *Lifecycle[S]) Has(s S) bool {
	_, ok := l.index[s]
	return ok
}

// At returns the i-th declared state. It panics when i is out of range.
func (l *Lifecycle[S]) At(i int) S { return l.states[i] }

// States returns the declared states in order.
func (l *Lifecycle[S]) States() []S { return append([]S(nil), l.states...) }

// Next returns the successor of s. ok is false for the terminal state and for
// undeclared states.
func (l *Lifecycle[S]) Next(s S) (next S, ok bool) {
	i, declared := l.index[s]
	if !declared || i == len(l.states)-1 {
		return next, false
	}
	return l.states[i+1], true
}

// Check returns an *IllegalTransitionError unless to is the declared
// successor of from.
func (l *Lifecycle[S]) Check(from, to S) error {
	fail := func(msg string) error {
		return &IllegalTransitionError{From: fmt.Sprint(from), To: fmt.Sprint(to), Msg: msg}
	}
	switch {
	case !l.Has(from):
		return fail("current state is not declared")
	case !l.Has(to):
		return fail("target state is not declared")
	case l.IsTerminal(from):
		return fail("current state is terminal")
	}
	if next, _ := l.Next(from); next != to {
		return fail(fmt.Sprintf("next state is %v", next))
	}
	return nil
}

// CanAdvance reports whether Check(from, to) would succeed.
func (l *Lifecycle[S]) CanAdvance(from, to S) bool { return l.Check(from, to) == nil }
