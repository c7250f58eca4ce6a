// Package token defines the single payload circulating in a ring and its
// fixed-size wire record.
package token

import (
	"encoding/binary"
	"errors"
	"fmt"

	"tokenring/constants"
)

// ErrMalformed reports a record that cannot be decoded into a token.
var ErrMalformed = errors.New("token: malformed record")

// Token is the circulating payload: the identity of the last holder and a
// counter that grows by one on every hop.
type Token struct {
	Sender int32
	Value  int64
}

// Seed returns the token the driver injects to start circulation.
func Seed() Token {
	return Token{Sender: constants.DriverID, Value: constants.SeedValue}
}

// Next returns the token participant id forwards after incrementing.
func (t Token) Next(id int) Token {
	return Token{Sender: int32(id), Value: t.Value + 1}
}

func (t Token) String() string {
	return fmt.Sprintf("%d;%d", t.Sender, t.Value)
}

// Record is one encoded token.
type Record [constants.RecordSize]byte

// Encode writes t into dst using the little-endian record layout.
func Encode(dst *Record, t Token) {
	b := dst[:]
	binary.LittleEndian.PutUint16(b[0:2], constants.RecordMagic)
	b[2] = constants.RecordVersion
	b[3] = 0
	binary.LittleEndian.PutUint32(b[4:8], uint32(t.Sender))
	binary.LittleEndian.PutUint64(b[8:16], uint64(t.Value))
}

// Decode parses a record. Short input, a foreign magic, an unknown version
// or non-zero flags are all ErrMalformed.
func Decode(b []byte) (Token, error) {
	if len(b) < constants.RecordSize {
		return Token{}, fmt.Errorf("%w: %d of %d bytes", ErrMalformed, len(b), constants.RecordSize)
	}
	if m := binary.LittleEndian.Uint16(b[0:2]); m != constants.RecordMagic {
		return Token{}, fmt.Errorf("%w: magic %#04x", ErrMalformed, m)
	}
	if b[2] != constants.RecordVersion {
		return Token{}, fmt.Errorf("%w: version %d", ErrMalformed, b[2])
	}
	if b[3] != 0 {
		return Token{}, fmt.Errorf("%w: flags %#02x", ErrMalformed, b[3])
	}
	return Token{
		Sender: int32(binary.LittleEndian.Uint32(b[4:8])),
		Value:  int64(binary.LittleEndian.Uint64(b[8:16])),
	}, nil
}
