package cache

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReaderByteOrder(t *testing.T) {
	t.Parallel()

	data := []byte{0x00, 0x00, 0x01, 0x02, 0x3F, 0x80, 0x00, 0x00}

	be := NewReader(data, binary.BigEndian)
	v, err := be.ReadInt32()
	require.NoError(t, err)
	require.Equal(t, int32(0x0102), v)
	f, err := be.ReadFloat32()
	require.NoError(t, err)
	require.Equal(t, float32(1), f)
	require.Equal(t, int64(8), be.Position())

	le := NewReader(data, binary.LittleEndian)
	u, err := le.ReadUint16()
	require.NoError(t, err)
	require.Equal(t, uint16(0), u)
	u, err = le.ReadUint16()
	require.NoError(t, err)
	require.Equal(t, uint16(0x0201), u)
}

func TestReaderTruncation(t *testing.T) {
	t.Parallel()

	r := NewReader([]byte{1, 2, 3}, binary.BigEndian)
	require.NoError(t, r.SeekTo(1))

	_, err := r.ReadInt32()
	require.ErrorIs(t, err, ErrTruncatedInput)
	var trunc *TruncatedInputError
	require.True(t, errors.As(err, &trunc))
	require.Equal(t, int64(1), trunc.Offset)
	require.Equal(t, 4, trunc.Want)
	require.Equal(t, int64(1), r.Position(), "failed read must not move the cursor")

	require.ErrorIs(t, r.SeekTo(4), ErrTruncatedInput)
	err = r.SeekTo(-300)
	require.ErrorIs(t, err, ErrTruncatedInput)
	require.EqualError(t, err, "truncated input: seek to -300 is outside the buffer [0, 3]")
	require.False(t, trunc.Seek)
	require.NotContains(t, trunc.Error(), "seek")
	require.Equal(t, int64(1), r.Position(), "failed seek must not move the cursor")
	require.NoError(t, r.SeekTo(3), "end of input is a valid position")
}

func TestReaderStrings(t *testing.T) {
	t.Parallel()

	data := []byte("shader\x00\x00\x00levels\x00tail")
	r := NewReader(data, binary.BigEndian)

	s, err := r.ReadFixedString(9)
	require.NoError(t, err)
	require.Equal(t, "shader", s)
	require.Equal(t, int64(9), r.Position())

	s, err = r.ReadNullTerminatedString(32)
	require.NoError(t, err)
	require.Equal(t, "levels", s)
	require.Equal(t, int64(16), r.Position(), "terminator is consumed")

	s, err = r.ReadNullTerminatedString(2)
	require.NoError(t, err)
	require.Equal(t, "ta", s, "max length caps unterminated reads")

	_, err = r.ReadNullTerminatedString(8)
	require.ErrorIs(t, err, ErrTruncatedInput)
}

func TestReaderPreserveRestoresOnError(t *testing.T) {
	t.Parallel()

	r := NewReader(make([]byte, 32), binary.LittleEndian)
	require.NoError(t, r.SeekTo(8))

	boom := errors.New("boom")
	err := r.Preserve(func() error {
		require.NoError(t, r.SeekTo(24))
		_, _ = r.ReadInt32()
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, int64(8), r.Position())
}

func TestClassCode(t *testing.T) {
	t.Parallel()

	require.Equal(t, ClassCode("mode"), ClassCodeFromUint32(ClassCode("mode").Uint32()))
	require.Equal(t, ClassCode("mat"), ClassCodeFromUint32(ClassCode("mat").Uint32()))
	require.Equal(t, uint32(0x6D617420), ClassCode("mat").Uint32())

	le := NewReader([]byte{' ', 't', 'a', 'm'}, binary.LittleEndian)
	c, err := le.ReadClassCode()
	require.NoError(t, err)
	require.Equal(t, ClassCode("mat"), c)
}
