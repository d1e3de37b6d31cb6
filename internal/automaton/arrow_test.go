package automaton

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArrow_Matches(t *testing.T) {
	testCases := []struct {
		name    string
		arrow   Arrow
		source  int
		down    bool
		inputMs uint64
		stateMs uint64
		want    bool
	}{
		{"wildcard matches anything", To(1), 7, true, 0, 0, true},
		{"source filter passes", To(1).From(2), 2, false, 0, 0, true},
		{"source filter rejects", To(1).From(2), 3, false, 0, 0, false},
		{"down edge passes", To(1).Down(), 1, true, 0, 0, true},
		{"down edge rejects up", To(1).Down(), 1, false, 0, 0, false},
		{"up edge rejects down", To(1).Up(), 1, true, 0, 0, false},
		{"input at most inside", To(1).InputAtMost(100), 1, true, 100, 0, true},
		{"input at most outside", To(1).InputAtMost(100), 1, true, 101, 0, false},
		{"input at least inside", To(1).InputAtLeast(100), 1, true, 100, 0, true},
		{"input at least outside", To(1).InputAtLeast(100), 1, true, 99, 0, false},
		{"state at least inside", To(1).StateAtLeast(50), 1, true, 0, 50, true},
		{"state at least ignores input time", To(1).StateAtLeast(50), 1, true, 1000, 49, false},
		{"negative bound always passes", To(1).InputAtLeast(-1 << 30), 1, false, 0, 0, true},
		{"huge input time clamps", To(1).InputAtLeast(5), 1, true, ^uint64(0), 0, true},
		{"all filters together", To(1).From(2).Down().InputAtLeast(10), 2, true, 10, 0, true},
		{"one failing filter rejects", To(1).From(2).Down().InputAtLeast(10), 2, false, 10, 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.arrow.Matches(tc.source, tc.down, tc.inputMs, tc.stateMs)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestArrow_BuilderMethodsCopy(t *testing.T) {
	base := To(0).Up()
	a := base.InputAtLeast(250).Do(Copy(0, 1))
	b := base.Do(Increment(0))

	assert.Equal(t, TimeNone, base.Time)
	assert.Empty(t, base.Actions)
	assert.Equal(t, []Action{Copy(0, 1)}, a.Actions)
	assert.Equal(t, []Action{Increment(0)}, b.Actions)
}

func TestArrow_DoDoesNotAlias(t *testing.T) {
	base := To(1).Do(Increment(0))
	a := base.Do(Increment(1))
	b := base.Do(Set(1, 9))

	assert.Equal(t, []Action{Increment(0), Increment(1)}, a.Actions)
	assert.Equal(t, []Action{Increment(0), Set(1, 9)}, b.Actions)
}

func TestArrow_Level(t *testing.T) {
	assert.Equal(t, EdgeDown, To(0).Level(true).Edge)
	assert.Equal(t, EdgeUp, To(0).Level(false).Edge)
}

func TestArrow_String(t *testing.T) {
	a := To(3).From(2).Down().InputAtLeast(500).Do(Increment(0), Copy(0, 1))
	assert.Equal(t, "->3 src=2 down input>=500 [c0+=1] [c0=c1]", a.String())
	assert.Equal(t, "->0", To(0).String())
}

func TestAction_Apply(t *testing.T) {
	counters := []int{5, 2}

	assert.NoError(t, Add(0, 3).apply(counters))
	assert.Equal(t, []int{8, 2}, counters)

	assert.NoError(t, Sub(1, 4).apply(counters))
	assert.Equal(t, []int{8, -2}, counters)

	assert.NoError(t, Copy(1, 0).apply(counters))
	assert.Equal(t, []int{8, 8}, counters)

	assert.NoError(t, Set(0, 42).apply(counters))
	assert.Equal(t, []int{42, 8}, counters)
}

func TestAction_ApplyOutOfRange(t *testing.T) {
	counters := []int{1}

	assert.Error(t, Increment(1).apply(counters))
	assert.Error(t, Increment(-1).apply(counters))
	assert.Error(t, Copy(0, 3).apply(counters))
	assert.Error(t, Action{Op: Op(9), Q: 0}.apply(counters))
	assert.Equal(t, []int{1}, counters, "failed actions leave counters untouched")
}
