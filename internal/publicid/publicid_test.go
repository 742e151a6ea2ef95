package publicid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec, err := NewCodec()
	require.NoError(t, err)

	for _, id := range []ID{1, 2, 7, 42, 1000, 99999, 1 << 31, 1<<53 - 1} {
		encoded, err := codec.Encode(id)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(encoded), minLength)

		decoded, err := codec.Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, id, decoded)
	}
}

func TestEncodeRejectsNonPositive(t *testing.T) {
	codec, err := NewCodec()
	require.NoError(t, err)

	for _, id := range []ID{0, -1, -42} {
		_, err := codec.Encode(id)
		assert.ErrorIs(t, err, ErrInvalid)
	}
}

func TestDecodeMalformedNeverPanics(t *testing.T) {
	codec, err := NewCodec()
	require.NoError(t, err)

	malformed := []Public{
		"",
		"x",
		"short",
		"!!!!!!!!",
		"no spaces allowed",
		"ÿÿÿÿÿÿÿÿ",
		"12345678",
		"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
	}
	for _, p := range malformed {
		decoded, err := codec.Decode(p)
		assert.ErrorIs(t, err, ErrInvalid, "input %q", p)
		assert.Zero(t, decoded)
	}
}

func TestDecodeRejectsNonCanonicalForms(t *testing.T) {
	codec, err := NewCodec()
	require.NoError(t, err)

	encoded, err := codec.Encode(42)
	require.NoError(t, err)

	// A padded or mangled variant of a real id must not decode.
	_, err = codec.Decode(encoded + Public(encoded[0]))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestEncodedFormDiffersFromRawID(t *testing.T) {
	codec, err := NewCodec()
	require.NoError(t, err)

	encoded, err := codec.Encode(12345)
	require.NoError(t, err)
	assert.NotEqual(t, "12345", string(encoded))
}
