package debounce

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/buttons/internal/config"
	"github.com/roach88/buttons/internal/testutil"
)

// feed samples raw every intervalMs from the clock's current reading for
// durationMs, advancing the clock before each sample.
func feed(d *Debouncer, clock *testutil.ManualClock, raw bool, durationMs, intervalMs uint64) {
	for elapsed := uint64(0); elapsed < durationMs; elapsed += intervalMs {
		d.Sample(raw, clock.Advance(intervalMs))
	}
}

func TestNew_StartsUp(t *testing.T) {
	clock := testutil.NewManualClock(1000)
	d, err := New(clock, 5, 1)
	require.NoError(t, err)

	down, changedAt := d.State()
	assert.False(t, down)
	assert.Equal(t, uint64(1000), changedAt)
}

func TestNew_ConfigurationErrors(t *testing.T) {
	clock := testutil.NewManualClock(0)

	testCases := []struct {
		name      string
		threshold int
		interval  int
		code      config.ConfigErrorCode
	}{
		{"zero threshold", 0, 1, config.ErrCodeNonPositive},
		{"negative interval", 5, -1, config.ErrCodeNonPositive},
		{"indivisible", 5, 2, config.ErrCodeIndivisible},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(clock, tc.threshold, tc.interval)
			var ce *config.ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.code, ce.Code)
		})
	}
}

func TestSample_CleanPress(t *testing.T) {
	clock := testutil.NewManualClock(100)
	d, err := New(clock, 5, 1)
	require.NoError(t, err)

	// Four agreeing samples are not enough.
	feed(d, clock, true, 4, 1)
	assert.False(t, d.IsDown())

	// The fifth saturates the integrator.
	feed(d, clock, true, 1, 1)
	down, changedAt := d.State()
	assert.True(t, down)
	assert.Equal(t, uint64(105), changedAt)

	// Holding does not republish.
	feed(d, clock, true, 50, 1)
	_, changedAt = d.State()
	assert.Equal(t, uint64(105), changedAt)
}

func TestSample_CleanRelease(t *testing.T) {
	clock := testutil.NewManualClock(0)
	d, err := New(clock, 5, 1)
	require.NoError(t, err)

	feed(d, clock, true, 20, 1)
	require.True(t, d.IsDown())

	feed(d, clock, false, 4, 1)
	assert.True(t, d.IsDown(), "integrator has not drained yet")

	feed(d, clock, false, 1, 1)
	down, changedAt := d.State()
	assert.False(t, down)
	assert.Equal(t, uint64(25), changedAt)
}

func TestSample_BounceShorterThanThresholdIsIgnored(t *testing.T) {
	clock := testutil.NewManualClock(0)
	d, err := New(clock, 5, 1)
	require.NoError(t, err)

	// Chatter: two high, one low, repeated. Net gain one per three samples,
	// so the first down is accepted only after sustained agreement.
	for i := 0; i < 3; i++ {
		feed(d, clock, true, 2, 1)
		feed(d, clock, false, 1, 1)
	}
	assert.False(t, d.IsDown())

	// Short spikes from rest never publish.
	d2, err := New(clock, 5, 1)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		feed(d2, clock, true, 4, 1)
		feed(d2, clock, false, 4, 1)
	}
	assert.False(t, d2.IsDown())
}

func TestSample_CoarserInterval(t *testing.T) {
	clock := testutil.NewManualClock(0)
	d, err := New(clock, 10, 2)
	require.NoError(t, err)

	feed(d, clock, true, 8, 2)
	assert.False(t, d.IsDown())
	feed(d, clock, true, 2, 2)

	down, changedAt := d.State()
	assert.True(t, down)
	assert.Equal(t, uint64(10), changedAt)
}

func TestSample_Convergence(t *testing.T) {
	// Any raw stream that settles for at least the threshold converges to
	// the settled value within the threshold.
	rng := rand.New(rand.NewSource(7))
	const threshold = 5

	for trial := 0; trial < 200; trial++ {
		clock := testutil.NewManualClock(uint64(rng.Intn(1 << 20)))
		d, err := New(clock, threshold, 1)
		require.NoError(t, err)

		noise := rng.Intn(50)
		for i := 0; i < noise; i++ {
			d.Sample(rng.Intn(2) == 1, clock.Advance(1))
		}

		settled := rng.Intn(2) == 1
		feed(d, clock, settled, threshold, 1)
		require.Equal(t, settled, d.IsDown(), "trial %d", trial)
	}
}

func TestPackUnpack_RoundTrip(t *testing.T) {
	testCases := []struct {
		name      string
		changedAt uint64
		now       uint64
	}{
		{"same instant", 5000, 5000},
		{"small gap", 5000, 5100},
		{"just below epoch", Epoch - 1, Epoch - 1},
		{"across the wrap", Epoch - 10, Epoch + 10},
		{"far into second epoch", 3*Epoch + 17, 3*Epoch + 1000},
		{"maximum reach", 4*Epoch + 1, 5 * Epoch},
		{"large clock", 1<<40 + 123, 1<<40 + 123 + Epoch - 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for _, down := range []bool{false, true} {
				gotDown, got := Unpack(Pack(down, tc.changedAt), tc.now)
				assert.Equal(t, down, gotDown)
				assert.Equal(t, tc.changedAt, got)
			}
		})
	}
}

func TestPackUnpack_RandomWithinWindow(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 10000; i++ {
		now := uint64(rng.Int63n(1<<45)) + Epoch
		changedAt := now - uint64(rng.Int63n(int64(Epoch)))

		_, got := Unpack(Pack(true, changedAt), now)
		require.Equal(t, changedAt, got, "now=%d", now)
	}
}

func TestState_ReconstructsAcrossWrap(t *testing.T) {
	clock := testutil.NewManualClock(Epoch - 3)
	d, err := New(clock, 5, 1)
	require.NoError(t, err)

	feed(d, clock, true, 5, 1)
	clock.Advance(1000)

	down, changedAt := d.State()
	assert.True(t, down)
	assert.Equal(t, Epoch+2, changedAt)
}

func TestSince(t *testing.T) {
	assert.Equal(t, uint64(10), Since(20, 10))
	assert.Equal(t, uint64(0), Since(10, 20))
}

func TestState_ConcurrentReaders(t *testing.T) {
	clock := testutil.NewManualClock(0)
	d, err := New(clock, 5, 1)
	require.NoError(t, err)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				_, changedAt := d.State()
				now := clock.NowMs()
				if changedAt > now {
					t.Errorf("changedAt %d ahead of clock %d", changedAt, now)
					return
				}
			}
		}()
	}

	for i := 0; i < 2000; i++ {
		d.Sample((i/20)%2 == 0, clock.Advance(1))
	}
	close(stop)
	wg.Wait()
}
