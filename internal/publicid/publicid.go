// Package publicid converts internal numeric primary keys to the opaque
// strings exposed in URLs and API payloads, and back.
//
// The two representations are distinct types on purpose: an ID never
// appears on the wire and a Public never reaches a database query, so
// accidental cross-use fails to compile instead of corrupting a session
// or a lookup.
package publicid

import (
	"errors"
	"fmt"

	"github.com/sqids/sqids-go"
)

// ID is an internal numeric primary key.
type ID int64

// Public is the obfuscated, URL-safe form of an ID.
type Public string

var ErrInvalid = errors.New("invalid public id")

const minLength = 8

// alphabet is a shuffled base62 set. Changing it invalidates every id
// already handed out, so treat it as frozen.
const alphabet = "k3G7QAe51FCsPW92uEOyq4Bg6Sp8YzVTmnU0liwDdHXLajZrfxNhobJIRcMvKt"

type Codec struct {
	s *sqids.Sqids
}

func NewCodec() (*Codec, error) {
	s, err := sqids.New(sqids.Options{
		Alphabet:  alphabet,
		MinLength: minLength,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing public id codec: %w", err)
	}
	return &Codec{s: s}, nil
}

func (c *Codec) Encode(id ID) (Public, error) {
	if id <= 0 {
		return "", ErrInvalid
	}
	encoded, err := c.s.Encode([]uint64{uint64(id)})
	if err != nil {
		return "", fmt.Errorf("encoding id: %w", err)
	}
	return Public(encoded), nil
}

// MustEncode is Encode for ids already read from the database, where a
// non-positive value cannot occur.
func (c *Codec) MustEncode(id ID) Public {
	p, err := c.Encode(id)
	if err != nil {
		panic(err)
	}
	return p
}

// Decode maps a public string back to its internal id. Any malformed,
// empty, or foreign input yields ErrInvalid; it never panics.
func (c *Codec) Decode(p Public) (ID, error) {
	if len(p) < minLength {
		return 0, ErrInvalid
	}
	nums := c.s.Decode(string(p))
	if len(nums) != 1 || nums[0] == 0 {
		return 0, ErrInvalid
	}
	id := ID(nums[0])

	// Sqids decode is total: many strings map onto some number. Only
	// accept strings the codec itself would have produced.
	canonical, err := c.Encode(id)
	if err != nil || canonical != p {
		return 0, ErrInvalid
	}
	return id, nil
}
