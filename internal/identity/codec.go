// Package identity maps between internal numeric user ids and the
// opaque reversible codes exposed to clients, and mints the bearer
// credentials that carry them.
package identity

import (
	"errors"

	hashids "github.com/speps/go-hashids/v2"
)

// ErrUnknownID is returned when an external code does not decode to a
// plausible previously-issued id.
var ErrUnknownID = errors.New("unknown id")

const minCodeLength = 6

// Codec is the reversible codec for user ids. Encode is total over
// positive ids; Decode fails with ErrUnknownID for anything that was
// not produced by Encode under the same salt.
type Codec struct {
	h *hashids.HashID
}

func NewCodec(salt string) (*Codec, error) {
	data := hashids.NewData()
	data.Salt = salt
	data.MinLength = minCodeLength
	h, err := hashids.NewWithData(data)
	if err != nil {
		return nil, err
	}
	return &Codec{h: h}, nil
}

// Encode renders an internal id as its opaque external code.
func (c *Codec) Encode(id int) string {
	code, err := c.h.Encode([]int{id})
	if err != nil {
		// Only negative ids can fail; those never exist in storage.
		return ""
	}
	return code
}

// Decode resolves an external code back to the internal id.
func (c *Codec) Decode(code string) (int, error) {
	ids, err := c.h.DecodeWithError(code)
	if err != nil || len(ids) == 0 || ids[0] < 1 {
		return 0, ErrUnknownID
	}
	return ids[0], nil
}
