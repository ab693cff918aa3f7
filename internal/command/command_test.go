package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeLiteral(t *testing.T) {
	encoded := Encode("MV", "100.5", "250.3")
	assert.Equal(t, []byte("MV|100.5;250.3;"), encoded)

	mnemonic, args := Decode(encoded)
	assert.Equal(t, "MV", mnemonic)
	assert.Equal(t, Args{"100.5", "250.3"}, args)
}

func TestEncodeValues(t *testing.T) {
	encoded := EncodeValues("MV", 100.5, 250.3)
	assert.Equal(t, []byte("MV|100.5;250.3;"), encoded)

	encoded = EncodeValues("ST", 7, true, "name")
	assert.Equal(t, []byte("ST|7;true;name;"), encoded)
}

func TestDecodeRoundTrip(t *testing.T) {
	testCases := []struct {
		name     string
		mnemonic string
		args     []string
	}{
		{"no args", "HB", nil},
		{"one arg", "JN", []string{"room-1"}},
		{"many args", "MV", []string{"1", "2", "3", "4"}},
		{"empty arg preserved mid-vector", "XX", []string{"", "b"}},
		{"empty arg preserved at tail", "XX", []string{"b", ""}},
		{"single empty arg", "XX", []string{""}},
		{"consecutive trailing empties", "XX", []string{"b", "", ""}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mnemonic, args := Decode(Encode(tc.mnemonic, tc.args...))
			assert.Equal(t, tc.mnemonic, mnemonic)
			assert.Equal(t, len(tc.args), len(args))
			for i, want := range tc.args {
				assert.Equal(t, want, args[i])
			}
		})
	}
}

func TestDecodeWithoutSeparator(t *testing.T) {
	mnemonic, args := Decode([]byte("just some text"))
	assert.Equal(t, "just some text", mnemonic)
	assert.Empty(t, args)
}

func TestDecodeAdversarial(t *testing.T) {
	// Decoding never fails; hostile input yields a possibly-empty vector.
	for _, data := range [][]byte{nil, {}, []byte("|"), []byte("||;;"), []byte(";;;")} {
		assert.NotPanics(t, func() { Decode(data) })
	}

	mnemonic, args := Decode([]byte("AB|"))
	assert.Equal(t, "AB", mnemonic)
	assert.Empty(t, args)
}

func TestRegistry(t *testing.T) {
	require.NoError(t, Register("move", "MV"))
	assert.Equal(t, "MV", Resolve("move"))

	// Unregistered names resolve to themselves.
	assert.Equal(t, "jump", Resolve("jump"))

	// Registered names flow through Encode.
	assert.Equal(t, []byte("MV|1;"), Encode("move", "1"))
}

func TestRegisterRejectsBadLength(t *testing.T) {
	assert.Error(t, Register("bad", ""))
	assert.Error(t, Register("bad", "X"))
	assert.Error(t, Register("bad", "XYZ"))
}

func TestArgsAccessors(t *testing.T) {
	_, args := Decode(Encode("ST", "42", "3.5", "true", "text"))

	assert.Equal(t, 42, args.Int(0, -1))
	assert.Equal(t, 3.5, args.Float64(1, -1))
	assert.Equal(t, true, args.Bool(2, false))
	assert.Equal(t, "text", args.Get(3, ""))

	// Missing or unparseable values fall back to the default.
	assert.Equal(t, -1, args.Int(3, -1))
	assert.Equal(t, -1, args.Int(9, -1))
	assert.Equal(t, "fallback", args.Get(9, "fallback"))
}
