package chain_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/tipjar/internal/chain"
	tjerr "github.com/mrz1836/tipjar/pkg/errors"
)

func testKey(b byte) []byte {
	return bytes.Repeat([]byte{b}, chain.AccountSize)
}

func TestParseAccount(t *testing.T) {
	t.Parallel()

	valid := base58.Encode(testKey(7))

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", valid, false},
		{"surrounding whitespace", "  " + valid + "\n", false},
		{"system program", "11111111111111111111111111111111", false},
		{"empty", "", true},
		{"not base58", "0OIl" + valid[4:], true},
		{"too short", base58.Encode(testKey(7)[:31]), true},
		{"too long", base58.Encode(append(testKey(7), 1)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			acct, err := chain.ParseAccount(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, chain.ErrInvalidAddress)
				assert.Equal(t, tjerr.ExitInput, tjerr.ExitCode(err))
				return
			}
			require.NoError(t, err)
			assert.False(t, acct.IsZero() && tt.name != "system program")
		})
	}
}

func TestAccount_EqualityIsByKey(t *testing.T) {
	t.Parallel()

	a, err := chain.AccountFromBytes(testKey(1), "alice")
	require.NoError(t, err)
	b, err := chain.AccountFromBytes(testKey(1), "")
	require.NoError(t, err)
	c, err := chain.AccountFromBytes(testKey(2), "alice")
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))

	parsed, err := chain.ParseAccount(a.String())
	require.NoError(t, err)
	assert.True(t, parsed.Equal(a))
}

func TestAccount_Short(t *testing.T) {
	t.Parallel()

	acct := chain.MustParseAccount(base58.Encode(testKey(9)))
	s := acct.String()
	assert.Equal(t, s[:4]+".."+s[len(s)-4:], acct.Short())
}

func TestAccount_JSON(t *testing.T) {
	t.Parallel()

	acct := chain.MustParseAccount(base58.Encode(testKey(3)))
	data, err := json.Marshal(map[string]chain.Account{"to": acct})
	require.NoError(t, err)
	assert.JSONEq(t, `{"to":"`+acct.String()+`"}`, string(data))

	var decoded map[string]chain.Account
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded["to"].Equal(acct))

	require.Error(t, json.Unmarshal([]byte(`{"to":"nope"}`), &decoded))
}

func TestFreshnessBound_BlockhashBytes(t *testing.T) {
	t.Parallel()

	hash := testKey(5)
	fb := chain.FreshnessBound{Blockhash: base58.Encode(hash), LastValidBlockHeight: 10}
	got, err := fb.BlockhashBytes()
	require.NoError(t, err)
	assert.Equal(t, hash, got[:])

	_, err = chain.FreshnessBound{Blockhash: "abc"}.BlockhashBytes()
	require.ErrorIs(t, err, tjerr.ErrInvalidInput)
}

func TestSignatureStatus_Reached(t *testing.T) {
	t.Parallel()

	s := &chain.SignatureStatus{ConfirmationStatus: chain.CommitmentConfirmed}
	assert.True(t, s.Reached(chain.CommitmentProcessed))
	assert.True(t, s.Reached(chain.CommitmentConfirmed))
	assert.False(t, s.Reached(chain.CommitmentFinalized))
}

func TestEllipsify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abcd..wxyz", chain.Ellipsify("abcdefghijklmnopqrstuvwxyz", 4))
	assert.Equal(t, "short", chain.Ellipsify("short", 4))
	assert.Equal(t, "abc", chain.Ellipsify("abc", 0))
}
