package parallel

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapPreservesSubmissionOrder(t *testing.T) {
	// Later indices finish first; results must still come back in index
	// order.
	n := 16
	results, err := Map(n, 1, 8, func(i int) (int, error) {
		time.Sleep(time.Duration(n-i) * time.Millisecond)
		return i * i, nil
	})
	require.NoError(t, err)
	require.Len(t, results, n)
	for i, r := range results {
		assert.Equal(t, i*i, r)
	}
}

func TestMapBatchSizeDoesNotChangeResults(t *testing.T) {
	fn := func(i int) (int, error) { return i + 100, nil }

	for _, batch := range []int{1, 2, 3, 5, 100} {
		results, err := Map(5, batch, 4, fn)
		require.NoError(t, err)
		assert.Equal(t, []int{100, 101, 102, 103, 104}, results, "batch=%d", batch)
	}
}

func TestMapRunsEveryIndexOnce(t *testing.T) {
	var calls [10]int32
	_, err := Map(10, 3, 4, func(i int) (struct{}, error) {
		atomic.AddInt32(&calls[i], 1)
		return struct{}{}, nil
	})
	require.NoError(t, err)
	for i, c := range calls {
		assert.EqualValues(t, 1, c, "index %d", i)
	}
}

func TestMapErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	results, err := Map(8, 2, 4, func(i int) (int, error) {
		if i == 5 {
			return 0, boom
		}
		return i, nil
	})
	require.ErrorIs(t, err, boom)
	assert.Nil(t, results)
}

func TestMapFirstErrorByIndex(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")
	_, err := Map(8, 1, 8, func(i int) (int, error) {
		switch i {
		case 2:
			return 0, errA
		case 6:
			return 0, errB
		}
		return i, nil
	})
	// lowest failing index wins, deterministically
	require.ErrorIs(t, err, errA)
}

func TestMapDegenerateArguments(t *testing.T) {
	results, err := Map(0, 1, 4, func(i int) (int, error) { return i, nil })
	require.NoError(t, err)
	assert.Empty(t, results)

	// batch and worker counts below 1 are normalized
	results, err = Map(3, 0, 0, func(i int) (int, error) { return i, nil })
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, results)
}

func TestMapBatchLargerThanInput(t *testing.T) {
	results, err := Map(3, 50, 4, func(i int) (int, error) { return i, nil })
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, results)
}
