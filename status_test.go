package rowqueue_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/rowqueue"
)

func TestCombine_ExactPacking(t *testing.T) {
	t.Parallel()

	moment := time.Date(2018, 1, 2, 3, 4, 56, 789123000, time.UTC)
	status, err := rowqueue.Combine(rowqueue.StateWaiting, moment, 2)
	require.NoError(t, err)

	assert.Equal(t, rowqueue.Status(2201801020304567892), status)
	assert.Equal(t, "2201801020304567892", status.String())
	assert.Len(t, status.String(), 19)

	assert.Equal(t, rowqueue.StateWaiting, status.State())
	assert.Equal(t, int64(20180102030456789), status.Priority())
	assert.Equal(t, 2, status.Attempts())
}

func TestCombine_MillisecondTruncation(t *testing.T) {
	t.Parallel()

	// 999999ns is under a millisecond and must truncate to zero, not round up.
	moment := time.Date(2024, 6, 15, 10, 30, 0, 999999, time.UTC)
	status, err := rowqueue.Combine(rowqueue.StateWaiting, moment, 0)
	require.NoError(t, err)

	parsed, err := status.Moment()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC), parsed)
}

func TestCombine_NonUTCMoment(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+3", 3*60*60)
	local := time.Date(2024, 6, 15, 13, 0, 0, 0, loc)

	status, err := rowqueue.Combine(rowqueue.StateWaiting, local, 0)
	require.NoError(t, err)

	moment, err := status.Moment()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC), moment)
}

func TestCombine_Validation(t *testing.T) {
	t.Parallel()

	moment := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("invalid state", func(t *testing.T) {
		t.Parallel()

		_, err := rowqueue.Combine(rowqueue.State(0), moment, 0)
		assert.ErrorIs(t, err, rowqueue.ErrInvalidState)

		_, err = rowqueue.Combine(rowqueue.State(6), moment, 0)
		assert.ErrorIs(t, err, rowqueue.ErrInvalidState)
	})

	t.Run("attempts out of range", func(t *testing.T) {
		t.Parallel()

		_, err := rowqueue.Combine(rowqueue.StateWaiting, moment, -1)
		assert.ErrorIs(t, err, rowqueue.ErrAttemptsOutOfRange)

		_, err = rowqueue.Combine(rowqueue.StateWaiting, moment, rowqueue.MaxAttempts+1)
		assert.ErrorIs(t, err, rowqueue.ErrAttemptsOutOfRange)
	})

	t.Run("moment out of range", func(t *testing.T) {
		t.Parallel()

		_, err := rowqueue.Combine(rowqueue.StateWaiting, time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC), 0)
		assert.ErrorIs(t, err, rowqueue.ErrMomentOutOfRange)

		_, err = rowqueue.Combine(rowqueue.StateWaiting, time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC), 0)
		assert.ErrorIs(t, err, rowqueue.ErrMomentOutOfRange)
	})

	t.Run("attempts ceiling is packable", func(t *testing.T) {
		t.Parallel()

		status, err := rowqueue.Combine(rowqueue.StateWaiting, moment, rowqueue.MaxAttempts)
		require.NoError(t, err)
		assert.Equal(t, rowqueue.MaxAttempts, status.Attempts())
	})
}

func TestCombineRaw(t *testing.T) {
	t.Parallel()

	// Raw priorities are not required to render as timestamps; all-nines is the
	// highest packable value.
	status, err := rowqueue.CombineRaw(rowqueue.StateCanceled, 99999999999999999, 9)
	require.NoError(t, err)
	assert.Equal(t, "5999999999999999999", status.String())

	_, err = rowqueue.CombineRaw(rowqueue.StateWaiting, -1, 0)
	assert.ErrorIs(t, err, rowqueue.ErrMomentOutOfRange)

	_, err = rowqueue.CombineRaw(rowqueue.StateWaiting, 1e17, 0)
	assert.ErrorIs(t, err, rowqueue.ErrMomentOutOfRange)
}

func TestStatus_Parse(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		moment := time.Date(2030, 12, 31, 23, 59, 59, 999*int(time.Millisecond), time.UTC)
		status, err := rowqueue.Combine(rowqueue.StateFinished, moment, 7)
		require.NoError(t, err)

		state, parsed, attempts, err := status.Parse()
		require.NoError(t, err)
		assert.Equal(t, rowqueue.StateFinished, state)
		assert.Equal(t, moment, parsed)
		assert.Equal(t, 7, attempts)
	})

	t.Run("undefined state digit", func(t *testing.T) {
		t.Parallel()

		_, _, _, err := rowqueue.Status(0).Parse()
		assert.ErrorIs(t, err, rowqueue.ErrMalformedStatus)

		_, _, _, err = rowqueue.Status(6000000000000000000).Parse()
		assert.ErrorIs(t, err, rowqueue.ErrMalformedStatus)
	})

	t.Run("priority not a timestamp", func(t *testing.T) {
		t.Parallel()

		// Month 13 survives CombineRaw but cannot render as a calendar moment.
		status, err := rowqueue.CombineRaw(rowqueue.StateWaiting, 20241301000000000, 0)
		require.NoError(t, err)

		_, _, _, err = status.Parse()
		assert.ErrorIs(t, err, rowqueue.ErrMalformedStatus)

		_, err = status.Moment()
		assert.ErrorIs(t, err, rowqueue.ErrMalformedStatus)
	})
}

func TestStatus_Ordering(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	earlier, err := rowqueue.Combine(rowqueue.StateWaiting, base, 0)
	require.NoError(t, err)
	later, err := rowqueue.Combine(rowqueue.StateWaiting, base.Add(time.Millisecond), 0)
	require.NoError(t, err)
	moreAttempts, err := rowqueue.Combine(rowqueue.StateWaiting, base, 3)
	require.NoError(t, err)

	assert.Less(t, earlier, later, "earlier moment sorts first")
	assert.Less(t, earlier, moreAttempts, "fewer attempts sort first at the same moment")
	assert.Less(t, moreAttempts, later, "the moment dominates the attempts digit")
}

func TestStatus_StatePartition(t *testing.T) {
	t.Parallel()

	states := []rowqueue.State{
		rowqueue.StateCreated,
		rowqueue.StateWaiting,
		rowqueue.StateWorking,
		rowqueue.StateFinished,
		rowqueue.StateCanceled,
	}

	// Each state owns a contiguous, non-overlapping, ordered range.
	for i, state := range states {
		r := rowqueue.Range(state)
		assert.Equal(t, rowqueue.Min(state), r.Min)
		assert.Equal(t, rowqueue.Max(state), r.Max)
		assert.Less(t, r.Min, r.Max)
		if i > 0 {
			prev := states[i-1]
			assert.Equal(t, rowqueue.Max(prev)+1, r.Min)
		}
	}

	assert.Equal(t, rowqueue.Status(1000000000000000000), rowqueue.Min(rowqueue.StateCreated))
	assert.Equal(t, rowqueue.Status(1999999999999999999), rowqueue.Max(rowqueue.StateCreated))
}

func TestStatusRange_Contains(t *testing.T) {
	t.Parallel()

	r := rowqueue.Range(rowqueue.StateWaiting)
	status, err := rowqueue.Waiting(time.Time{}, 0)
	require.NoError(t, err)

	assert.True(t, r.Contains(status))
	assert.True(t, r.Contains(r.Min))
	assert.True(t, r.Contains(r.Max))
	assert.False(t, r.Contains(r.Min-1))
	assert.False(t, r.Contains(r.Max+1))
}

func TestTally(t *testing.T) {
	t.Parallel()

	moment := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	waiting, err := rowqueue.Waiting(moment, 0)
	require.NoError(t, err)
	finished, err := rowqueue.Finished(moment, 1)
	require.NoError(t, err)

	counts := rowqueue.Tally([]rowqueue.Status{waiting, waiting, finished, rowqueue.Status(0)})
	assert.Equal(t, map[rowqueue.State]int{
		rowqueue.StateWaiting:  2,
		rowqueue.StateFinished: 1,
	}, counts)

	assert.Empty(t, rowqueue.Tally(nil))
}

func TestState_Strings(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "created", rowqueue.StateCreated.String())
	assert.Equal(t, "waiting", rowqueue.StateWaiting.String())
	assert.Equal(t, "working", rowqueue.StateWorking.String())
	assert.Equal(t, "finished", rowqueue.StateFinished.String())
	assert.Equal(t, "canceled", rowqueue.StateCanceled.String())
	assert.Equal(t, "state(0)", rowqueue.State(0).String())

	assert.True(t, rowqueue.StateCreated.Valid())
	assert.True(t, rowqueue.StateCanceled.Valid())
	assert.False(t, rowqueue.State(0).Valid())
	assert.False(t, rowqueue.State(6).Valid())
}

func TestConstructors(t *testing.T) {
	t.Parallel()

	moment := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for _, tc := range []struct {
		state rowqueue.State
		build func(time.Time, int) (rowqueue.Status, error)
	}{
		{rowqueue.StateCreated, rowqueue.Created},
		{rowqueue.StateWaiting, rowqueue.Waiting},
		{rowqueue.StateWorking, rowqueue.Working},
		{rowqueue.StateFinished, rowqueue.Finished},
		{rowqueue.StateCanceled, rowqueue.Canceled},
	} {
		status, err := tc.build(moment, 1)
		require.NoError(t, err)
		assert.Equal(t, tc.state, status.State())
		assert.Equal(t, 1, status.Attempts())
	}
}

func TestConstructors_ZeroMomentMeansNow(t *testing.T) {
	t.Parallel()

	before := time.Now().UTC().Truncate(time.Millisecond)
	status, err := rowqueue.Waiting(time.Time{}, 0)
	require.NoError(t, err)
	after := time.Now().UTC()

	moment, err := status.Moment()
	require.NoError(t, err)
	assert.False(t, moment.Before(before))
	assert.False(t, moment.After(after))
}
