package sol

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/tipjar/internal/chain"
)

func account(t *testing.T, b byte) chain.Account {
	t.Helper()
	a, err := chain.AccountFromBytes(bytes.Repeat([]byte{b}, chain.AccountSize), "")
	require.NoError(t, err)
	return a
}

func testBound() chain.FreshnessBound {
	return chain.FreshnessBound{
		Blockhash:            base58.Encode(bytes.Repeat([]byte{0xAB}, 32)),
		LastValidBlockHeight: 3090,
		MinContextSlot:       1000,
	}
}

func TestNewTransfer_Validation(t *testing.T) {
	t.Parallel()

	from, to := account(t, 1), account(t, 2)

	_, err := NewTransfer(from, from, 10, testBound())
	require.ErrorIs(t, err, ErrInvalidTransaction)

	_, err = NewTransfer(from, to, 0, testBound())
	require.ErrorIs(t, err, ErrInvalidTransaction)

	_, err = NewTransfer(from, to, 10, chain.FreshnessBound{Blockhash: "bad"})
	require.Error(t, err)
}

func TestTransfer_MessageLayout(t *testing.T) {
	t.Parallel()

	from, to := account(t, 1), account(t, 2)
	tr, err := NewTransfer(from, to, 10_000_000, testBound())
	require.NoError(t, err)

	msg, err := tr.Message()
	require.NoError(t, err)

	// header + key count + 3 keys + blockhash + ix count + program + acct count + 2 accts + data len + data
	require.Len(t, msg, 3+1+96+32+1+1+1+2+1+12)
	assert.Equal(t, []byte{1, 0, 1, 3}, msg[:4])
	assert.Equal(t, from.Key[:], msg[4:36])
	assert.Equal(t, to.Key[:], msg[36:68])
	assert.Equal(t, make([]byte, 32), msg[68:100])
	assert.Equal(t, bytes.Repeat([]byte{0xAB}, 32), msg[100:132])

	data := msg[len(msg)-12:]
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(data[:4]))
	assert.Equal(t, uint64(10_000_000), binary.LittleEndian.Uint64(data[4:]))
}

func TestTransfer_SerializeParse(t *testing.T) {
	t.Parallel()

	from, to := account(t, 1), account(t, 2)
	tr, err := NewTransfer(from, to, 1_000_000, testBound())
	require.NoError(t, err)

	raw, err := tr.Serialize()
	require.NoError(t, err)
	assert.Equal(t, byte(1), raw[0])
	assert.Equal(t, make([]byte, chain.SignatureSize), raw[1:65])

	parsed, err := ParseTransfer(raw)
	require.NoError(t, err)
	assert.True(t, parsed.From.Equal(from))
	assert.True(t, parsed.To.Equal(to))
	assert.Equal(t, uint64(1_000_000), parsed.Lamports)
	assert.Equal(t, testBound().Blockhash, parsed.Bound.Blockhash)
}

func TestParseTransfer_Rejects(t *testing.T) {
	t.Parallel()

	tr, err := NewTransfer(account(t, 1), account(t, 2), 5, testBound())
	require.NoError(t, err)
	raw, err := tr.Serialize()
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  []byte
	}{
		{"empty", nil},
		{"truncated", raw[:len(raw)-1]},
		{"trailing bytes", append(append([]byte{}, raw...), 0)},
		{"two signatures", append([]byte{2}, raw[1:]...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseTransfer(tt.raw)
			require.ErrorIs(t, err, ErrInvalidTransaction)
		})
	}
}

func TestCompactU16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n    int
		want []byte
	}{
		{0, []byte{0}},
		{3, []byte{3}},
		{0x7f, []byte{0x7f}},
		{0x80, []byte{0x80, 0x01}},
		{0x3fff, []byte{0xff, 0x7f}},
		{0x4000, []byte{0x80, 0x80, 0x01}},
	}

	for _, tt := range tests {
		got := appendCompactU16(nil, tt.n)
		assert.Equal(t, tt.want, got, "n=%d", tt.n)

		r := &reader{buf: got}
		v, err := r.compactU16()
		require.NoError(t, err)
		assert.Equal(t, tt.n, v)
	}
}
