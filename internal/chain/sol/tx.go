package sol

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/mrz1836/tipjar/internal/chain"
	tjerr "github.com/mrz1836/tipjar/pkg/errors"
)

// systemTransferIndex is the System program instruction index for a transfer.
const systemTransferIndex = 2

// SystemProgram is the System program id (32 zero bytes).
//
//nolint:gochecknoglobals // Well-known program id
var SystemProgram = chain.Account{Label: "system"}

var (
	// ErrInvalidTransaction indicates bytes that do not decode as a single System transfer.
	ErrInvalidTransaction = &tjerr.TipjarError{
		Code:     "INVALID_TRANSACTION",
		Message:  "invalid transfer transaction",
		ExitCode: tjerr.ExitInput,
	}

	errShortBuffer = errors.New("unexpected end of transaction")
)

// Transfer is an unsigned single-instruction native transfer.
type Transfer struct {
	From     chain.Account
	To       chain.Account
	Lamports uint64
	Bound    chain.FreshnessBound
}

// NewTransfer builds a transfer from sender to recipient bound to the given
// freshness bound.
func NewTransfer(from, to chain.Account, lamports uint64, bound chain.FreshnessBound) (*Transfer, error) {
	if from.Equal(to) {
		return nil, tjerr.WithDetails(ErrInvalidTransaction, map[string]string{"reason": "sender equals recipient"})
	}
	if lamports == 0 {
		return nil, tjerr.WithDetails(ErrInvalidTransaction, map[string]string{"reason": "zero amount"})
	}
	if _, err := bound.BlockhashBytes(); err != nil {
		return nil, err
	}
	return &Transfer{From: from, To: to, Lamports: lamports, Bound: bound}, nil
}

// Message returns the serialized legacy message that the sender signs.
func (t *Transfer) Message() ([]byte, error) {
	blockhash, err := t.Bound.BlockhashBytes()
	if err != nil {
		return nil, err
	}

	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], systemTransferIndex)
	binary.LittleEndian.PutUint64(data[4:12], t.Lamports)

	msg := make([]byte, 0, 3+1+3*chain.AccountSize+32+1+1+1+2+1+len(data))
	// Header: one signer, no read-only signers, one read-only non-signer (the program).
	msg = append(msg, 1, 0, 1)
	msg = appendCompactU16(msg, 3)
	msg = append(msg, t.From.Key[:]...)
	msg = append(msg, t.To.Key[:]...)
	msg = append(msg, SystemProgram.Key[:]...)
	msg = append(msg, blockhash[:]...)
	msg = appendCompactU16(msg, 1)
	msg = append(msg, 2) // program id index
	msg = appendCompactU16(msg, 2)
	msg = append(msg, 0, 1)
	msg = appendCompactU16(msg, len(data))
	msg = append(msg, data...)
	return msg, nil
}

// Serialize returns the wire transaction with an empty signature slot for
// the sender, ready to hand to a signer.
func (t *Transfer) Serialize() ([]byte, error) {
	msg, err := t.Message()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 1+chain.SignatureSize+len(msg))
	out = appendCompactU16(out, 1)
	out = append(out, make([]byte, chain.SignatureSize)...)
	return append(out, msg...), nil
}

// ParseTransfer decodes a wire transaction produced by Serialize. Signatures
// are skipped, so signed copies decode too.
func ParseTransfer(raw []byte) (*Transfer, error) {
	t, err := parseTransfer(raw)
	if err != nil {
		return nil, tjerr.WithCause(ErrInvalidTransaction, err)
	}
	return t, nil
}

//nolint:gocognit,gocyclo // Sequential wire decoding
func parseTransfer(raw []byte) (*Transfer, error) {
	r := &reader{buf: raw}

	sigs, err := r.compactU16()
	if err != nil {
		return nil, err
	}
	if sigs != 1 {
		return nil, fmt.Errorf("expected 1 signature, got %d", sigs)
	}
	if _, err = r.bytes(chain.SignatureSize); err != nil {
		return nil, err
	}

	header, err := r.bytes(3)
	if err != nil {
		return nil, err
	}
	if header[0] != 1 || header[1] != 0 || header[2] != 1 {
		return nil, fmt.Errorf("unexpected header %v", header)
	}

	nkeys, err := r.compactU16()
	if err != nil {
		return nil, err
	}
	if nkeys != 3 {
		return nil, fmt.Errorf("expected 3 account keys, got %d", nkeys)
	}
	keys := make([]chain.Account, nkeys)
	for i := range keys {
		k, kerr := r.bytes(chain.AccountSize)
		if kerr != nil {
			return nil, kerr
		}
		copy(keys[i].Key[:], k)
	}
	if !keys[2].Equal(SystemProgram) {
		return nil, errors.New("program is not the system program")
	}

	blockhash, err := r.bytes(32)
	if err != nil {
		return nil, err
	}

	nix, err := r.compactU16()
	if err != nil {
		return nil, err
	}
	if nix != 1 {
		return nil, fmt.Errorf("expected 1 instruction, got %d", nix)
	}
	prog, err := r.bytes(1)
	if err != nil {
		return nil, err
	}
	if prog[0] != 2 {
		return nil, fmt.Errorf("unexpected program index %d", prog[0])
	}
	naccts, err := r.compactU16()
	if err != nil {
		return nil, err
	}
	accts, err := r.bytes(naccts)
	if err != nil {
		return nil, err
	}
	if naccts != 2 || accts[0] != 0 || accts[1] != 1 {
		return nil, fmt.Errorf("unexpected instruction accounts %v", accts)
	}
	ndata, err := r.compactU16()
	if err != nil {
		return nil, err
	}
	data, err := r.bytes(ndata)
	if err != nil {
		return nil, err
	}
	if ndata != 12 || binary.LittleEndian.Uint32(data[0:4]) != systemTransferIndex {
		return nil, errors.New("instruction is not a system transfer")
	}
	if r.pos != len(r.buf) {
		return nil, errors.New("trailing bytes after message")
	}

	return &Transfer{
		From:     keys[0],
		To:       keys[1],
		Lamports: binary.LittleEndian.Uint64(data[4:12]),
		Bound:    chain.FreshnessBound{Blockhash: base58.Encode(blockhash)},
	}, nil
}

// appendCompactU16 appends the shortvec encoding of n.
func appendCompactU16(b []byte, n int) []byte {
	v := uint16(n) //nolint:gosec // G115: lengths here are tiny
	for {
		elem := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(b, elem)
		}
		b = append(b, elem|0x80)
	}
}

type reader struct {
	buf []byte
	pos int
}

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, errShortBuffer
	}
	out := r.buf[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *reader) compactU16() (int, error) {
	var v, shift int
	for i := 0; i < 3; i++ {
		if r.pos >= len(r.buf) {
			return 0, errShortBuffer
		}
		b := r.buf[r.pos]
		r.pos++
		v |= int(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, nil
		}
		shift += 7
	}
	return 0, errors.New("compact-u16 overflow")
}
