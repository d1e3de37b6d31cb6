package automaton

import "fmt"

// Op selects what an Action does to the register file.
type Op uint8

const (
	// OpAdd adds P to counter Q.
	OpAdd Op = iota + 1
	// OpSub subtracts P from counter Q.
	OpSub
	// OpCopy copies counter P into counter Q.
	OpCopy
	// OpSet stores the literal P into counter Q.
	OpSet
)

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpCopy:
		return "copy"
	case OpSet:
		return "set"
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

// Action mutates the counter register file when its arrow fires.
//
// P is a literal, except for OpCopy where it is the source counter. Q is
// always the destination counter.
type Action struct {
	Op Op
	P  int
	Q  int
}

// Increment adds one to counter.
func Increment(counter int) Action {
	return Action{Op: OpAdd, P: 1, Q: counter}
}

// Add adds n to counter.
func Add(counter, n int) Action {
	return Action{Op: OpAdd, P: n, Q: counter}
}

// Sub subtracts n from counter.
func Sub(counter, n int) Action {
	return Action{Op: OpSub, P: n, Q: counter}
}

// Copy stores counter src into counter dst.
func Copy(dst, src int) Action {
	return Action{Op: OpCopy, P: src, Q: dst}
}

// Set stores value into counter.
func Set(counter, value int) Action {
	return Action{Op: OpSet, P: value, Q: counter}
}

func (a Action) String() string {
	switch a.Op {
	case OpCopy:
		return fmt.Sprintf("c%d=c%d", a.Q, a.P)
	case OpSet:
		return fmt.Sprintf("c%d=%d", a.Q, a.P)
	case OpSub:
		return fmt.Sprintf("c%d-=%d", a.Q, a.P)
	default:
		return fmt.Sprintf("c%d+=%d", a.Q, a.P)
	}
}

// check reports the first counter index the action touches that does not
// fit a register file of n counters.
func (a Action) check(n int) error {
	if a.Op < OpAdd || a.Op > OpSet {
		return fmt.Errorf("unknown action %s", a.Op)
	}
	if a.Q < 0 || a.Q >= n {
		return fmt.Errorf("action %s writes counter %d of %d", a, a.Q, n)
	}
	if a.Op == OpCopy && (a.P < 0 || a.P >= n) {
		return fmt.Errorf("action %s reads counter %d of %d", a, a.P, n)
	}
	return nil
}

// apply runs the action. It leaves the counters untouched and returns an
// error if check would fail.
func (a Action) apply(counters []int) error {
	if err := a.check(len(counters)); err != nil {
		return err
	}
	switch a.Op {
	case OpAdd:
		counters[a.Q] += a.P
	case OpSub:
		counters[a.Q] -= a.P
	case OpCopy:
		counters[a.Q] = counters[a.P]
	case OpSet:
		counters[a.Q] = a.P
	}
	return nil
}
