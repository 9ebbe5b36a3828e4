package window

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/lrz/errs"
)

func seq(start, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(start + i)
	}

	return b
}

func TestRing_AppendAndRead(t *testing.T) {
	r := NewRing(NewMemoryDevice(16), false)
	defer r.Close()

	require.NoError(t, r.Append(seq(0, 10)))
	require.Equal(t, int64(0), r.Base())
	require.Equal(t, int64(10), r.End())
	require.False(t, r.Mapped())

	buf := make([]byte, 4)
	n, err := r.ReadAt(buf, 3)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, seq(3, 4), buf)
}

func TestRing_OldestWinsEviction(t *testing.T) {
	r := NewRing(NewMemoryDevice(16), false)

	require.NoError(t, r.Append(seq(0, 10)))
	require.NoError(t, r.Append(seq(10, 10)))

	require.Equal(t, int64(4), r.Base(), "oldest bytes are evicted first")
	require.Equal(t, int64(20), r.End())
	require.Equal(t, int64(16), r.Capacity())

	// Wrapped read across the physical end of the device.
	buf := make([]byte, 16)
	_, err := r.ReadAt(buf, 4)
	require.NoError(t, err)
	require.Equal(t, seq(4, 16), buf)

	_, err = r.ReadAt(make([]byte, 1), 3)
	require.ErrorIs(t, err, errs.ErrOutOfWindow)
	require.ErrorIs(t, err, errs.ErrCorruptStream)
}

func TestRing_ReadBeyondEnd(t *testing.T) {
	r := NewRing(NewMemoryDevice(16), false)
	require.NoError(t, r.Append(seq(0, 8)))

	_, err := r.ReadAt(make([]byte, 2), 7)
	require.ErrorIs(t, err, errs.ErrOutOfWindow)

	require.True(t, r.Contains(0, 8))
	require.False(t, r.Contains(0, 9))
	require.False(t, r.Contains(-1, 1))
}

func TestRing_AppendLargerThanCapacity(t *testing.T) {
	r := NewRing(NewMemoryDevice(8), false)
	require.NoError(t, r.Append(seq(0, 3)))
	require.NoError(t, r.Append(seq(3, 20)))

	require.Equal(t, int64(23), r.End())
	require.Equal(t, int64(15), r.Base())

	buf := make([]byte, 8)
	_, err := r.ReadAt(buf, 15)
	require.NoError(t, err)
	require.Equal(t, seq(15, 8), buf)
}

func TestRing_ManySmallAppends(t *testing.T) {
	r := NewRing(NewMemoryDevice(7), false)

	for i := range 100 {
		require.NoError(t, r.Append([]byte{byte(i)}))
		lo := max(0, i-6)
		buf := make([]byte, i-lo+1)
		_, err := r.ReadAt(buf, int64(lo))
		require.NoError(t, err)
		require.Equal(t, seq(lo, i-lo+1), buf)
	}
}
