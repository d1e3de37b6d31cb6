package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/buttons/internal/hw"
	"github.com/roach88/buttons/internal/patterns"
)

func TestCross_ABAB(t *testing.T) {
	type edge struct {
		at   uint64
		hw   int
		down bool
	}

	tests := []struct {
		name     string
		edges    []edge
		until    uint64
		wantSlow int
		wantFast int
	}{
		{
			name:     "slow sequence",
			edges:    []edge{{2000, 4, true}, {2600, 5, true}, {3200, 4, false}, {3300, 5, false}},
			until:    3400,
			wantSlow: 1,
		},
		{
			name:  "final release too late",
			edges: []edge{{2000, 4, true}, {2600, 5, true}, {3200, 4, false}, {4500, 5, false}},
			until: 4600,
		},
		{
			name:     "fast sequence",
			edges:    []edge{{2000, 4, true}, {2050, 5, true}, {2100, 4, false}, {2150, 5, false}},
			until:    2300,
			wantFast: 1,
		},
		{
			name:  "wrong order",
			edges: []edge{{2000, 5, true}, {2600, 4, true}, {3200, 5, false}, {3300, 4, false}},
			until: 3400,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, p := newTestRegistry(t)
			a, err := r.Register(4, hw.DownIsHigh)
			require.NoError(t, err)
			b, err := r.Register(5, hw.DownIsHigh)
			require.NoError(t, err)
			require.Equal(t, []int{1, 2}, []int{a.ID(), b.ID()})

			cross := r.NewCross()
			first := cross.AddDefaultPatterns()
			require.Equal(t, 0, first)
			assert.Equal(t, patterns.CrossNames, cross.Patterns())

			for _, e := range tt.edges {
				pollTo(p, e.at, cross.UpdatePatterns)
				p.Set(e.hw, e.down)
			}
			pollTo(p, tt.until, cross.UpdatePatterns)

			assert.Equal(t, tt.wantSlow, cross.Clicks(patterns.SlowABAB))
			assert.Equal(t, tt.wantFast, cross.Clicks(patterns.FastABAB))
			assert.Equal(t, 0, cross.Clicks(patterns.SlowABAB))
		})
	}
}

func TestCross_SeesLaterRegistrations(t *testing.T) {
	r, p := newTestRegistry(t)
	cross := r.NewCross()

	idx, err := cross.AddCorrelatedPattern(2, 3, 20, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Equal(t, []string{"correlated_2_3"}, cross.Patterns())

	for hwID := 10; hwID <= 12; hwID++ {
		_, err := r.Register(hwID, hw.DownIsHigh)
		require.NoError(t, err)
	}

	pollTo(p, 2000, cross.UpdatePatterns)
	p.Set(11, true)
	pollTo(p, 2050, cross.UpdatePatterns)
	p.Set(12, true)
	pollTo(p, 2100, cross.UpdatePatterns)
	p.Set(11, false)
	pollTo(p, 2150, cross.UpdatePatterns)
	p.Set(12, false)
	pollTo(p, 2300, cross.UpdatePatterns)

	assert.Equal(t, 1, cross.Clicks(idx))
}

func TestCross_UnregisteredInputStopsFeeding(t *testing.T) {
	r, p := newTestRegistry(t)
	_, err := r.Register(4, hw.DownIsHigh)
	require.NoError(t, err)
	b, err := r.Register(5, hw.DownIsHigh)
	require.NoError(t, err)

	cross := r.NewCross()
	cross.AddDefaultPatterns()

	pollTo(p, 2000, cross.UpdatePatterns)
	require.Equal(t, 2, cross.Pattern(patterns.SlowABAB).State())

	require.NoError(t, r.Unregister(b.ID()))
	p.Set(4, true)
	pollTo(p, 2600, cross.UpdatePatterns)
	p.Set(4, false)
	pollTo(p, 4000, cross.UpdatePatterns)

	assert.Equal(t, 0, cross.Clicks(patterns.SlowABAB))
}

func TestCross_TotalQueries(t *testing.T) {
	r, _ := newTestRegistry(t)
	cross := r.NewCross()

	assert.Equal(t, 0, cross.Clicks(0))
	assert.Nil(t, cross.Pattern(0))
	assert.Empty(t, cross.Patterns())

	_, err := cross.AddCorrelatedPattern(1, 1, 20, 100)
	assert.Error(t, err)
	assert.Empty(t, cross.Patterns())

	cross.UpdatePatterns()
}
