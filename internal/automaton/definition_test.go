package automaton

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefinition_Valid(t *testing.T) {
	d, err := NewDefinition("toggle", 1,
		NewState(To(1).Down().Do(Increment(0))),
		NewState(To(0).Up()),
	)
	require.NoError(t, err)

	assert.Equal(t, "toggle", d.Name())
	assert.Equal(t, 1, d.Counters())
	assert.Equal(t, 2, d.NumStates())
	assert.Len(t, d.Arrows(0), 1)
	assert.Nil(t, d.Arrows(2))
	assert.Nil(t, d.Arrows(-1))
}

func TestNewDefinition_Errors(t *testing.T) {
	testCases := []struct {
		name     string
		counters int
		states   []State
		code     ContractErrorCode
	}{
		{"no states", 1, nil, ErrCodeEmptyDefinition},
		{"negative counters", -1, []State{NewState()}, ErrCodeEmptyDefinition},
		{"write out of range", 1, []State{NewState(To(0).Do(Increment(1)))}, ErrCodeBadCounter},
		{"copy source out of range", 2, []State{NewState(To(0).Do(Copy(0, 2)))}, ErrCodeBadCounter},
		{"no counters at all", 0, []State{NewState(To(0).Do(Set(0, 1)))}, ErrCodeBadCounter},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewDefinition("bad", tc.counters, tc.states...)
			require.Error(t, err)
			assert.True(t, IsContractError(err))
			assert.True(t, HasCode(err, tc.code), "got %v", err)
		})
	}
}

func TestNewDefinition_BadCounterLocation(t *testing.T) {
	_, err := NewDefinition("loc", 1,
		NewState(To(1)),
		NewState(To(0), To(0).Do(Increment(3))),
	)

	var ce *ContractError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 1, ce.State)
	assert.Equal(t, 1, ce.Arrow)
	assert.Contains(t, ce.Error(), "pattern=loc, state=1, arrow=1")
}

func TestNewDefinition_OutOfRangeDestinationAllowed(t *testing.T) {
	d, err := NewDefinition("wild", 0, NewState(To(7)))
	require.NoError(t, err)
	assert.Equal(t, 1, d.NumStates())
}

func TestNewDefinition_CopiesInput(t *testing.T) {
	arrows := []Arrow{To(0).Do(Increment(0))}
	d, err := NewDefinition("copy", 1, State{Arrows: arrows})
	require.NoError(t, err)

	arrows[0].Dest = 5
	arrows[0].Actions[0] = Set(0, 99)

	got := d.Arrows(0)
	assert.Equal(t, 0, got[0].Dest)
	assert.Equal(t, Increment(0), got[0].Actions[0])

	// Callers cannot mutate the definition through Arrows either.
	got[0].Actions[0] = Set(0, 1)
	assert.Equal(t, Increment(0), d.Arrows(0)[0].Actions[0])
}

func TestMustDefinition_Panics(t *testing.T) {
	assert.Panics(t, func() { MustDefinition("empty", 0) })
	assert.NotPanics(t, func() { MustDefinition("ok", 0, NewState()) })
}

func TestBuilder_Incremental(t *testing.T) {
	d, err := NewBuilder("built", 2).
		AddState().
		AddArrow(To(1).Up().InputAtLeast(50)).
		AddState().
		AddArrow(To(0).Down()).
		AddAction(Increment(0)).
		AddAction(Copy(1, 0)).
		Build()
	require.NoError(t, err)

	assert.Equal(t, 2, d.NumStates())
	assert.Equal(t, []Action{Increment(0), Copy(1, 0)}, d.Arrows(1)[0].Actions)
}

func TestBuilder_ArrowWithoutStateCreatesOne(t *testing.T) {
	d, err := NewBuilder("implicit", 0).AddArrow(To(0)).Build()
	require.NoError(t, err)
	assert.Equal(t, 1, d.NumStates())
}

func TestBuilder_DanglingAction(t *testing.T) {
	_, err := NewBuilder("dangling", 1).AddState().AddAction(Increment(0)).Build()
	assert.True(t, HasCode(err, ErrCodeDanglingAction))
}

func TestBuilder_StatesAtOnce(t *testing.T) {
	d, err := NewBuilder("bulk", 1).
		AddState(To(1).Down()).
		AddState(To(0).Up().Do(Increment(0))).
		Build()
	require.NoError(t, err)
	assert.Equal(t, 2, d.NumStates())
}
