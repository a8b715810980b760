package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeKeyMaterial(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    []byte
		expectError bool
	}{
		{name: "hex", input: "0a0b0c", expected: []byte{0x0a, 0x0b, 0x0c}},
		{name: "hex with 0x prefix", input: "0x0a0b0c", expected: []byte{0x0a, 0x0b, 0x0c}},
		{name: "hex is case insensitive", input: "0A0B0C", expected: []byte{0x0a, 0x0b, 0x0c}},
		{name: "base64", input: "aGVsbG8=", expected: []byte("hello")},
		{name: "base64url unpadded", input: "aGVsbG8", expected: []byte("hello")},
		{name: "multibase base58btc", input: "zCn8eVZg", expected: []byte("hello")},
		{name: "base58btc wins over base64 for z-prefixed values", input: "zStV1DL6CwTryKyV", expected: []byte("hello world")},
		{name: "surrounding whitespace", input: "  0a0b0c\n", expected: []byte{0x0a, 0x0b, 0x0c}},
		{name: "empty", input: "", expectError: true},
		{name: "garbage", input: "!!not-encoded!!", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeKeyMaterial(tt.input)
			if tt.expectError {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
