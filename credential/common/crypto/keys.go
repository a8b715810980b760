package crypto

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/multiformats/go-multibase"
)

// DecodeKeyMaterial decodes a textual key or signature value. Issuers in the
// wild encode these as hex (optionally 0x-prefixed), base64, or multibase;
// all three are accepted here.
func DecodeKeyMaterial(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("value is empty")
	}

	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		decoded, err := hex.DecodeString(value[2:])
		if err != nil {
			return nil, fmt.Errorf("failed to decode hex value: %w", err)
		}
		return decoded, nil
	}

	if isHex(value) {
		if decoded, err := hex.DecodeString(value); err == nil {
			return decoded, nil
		}
	}

	// A base58btc multibase value is usually also syntactically valid
	// base64, so the multibase prefix must be checked first.
	if value[0] == 'z' {
		if _, decoded, err := multibase.Decode(value); err == nil {
			return decoded, nil
		}
	}

	if decoded, err := base64.StdEncoding.DecodeString(value); err == nil {
		return decoded, nil
	}
	if decoded, err := base64.RawURLEncoding.DecodeString(value); err == nil {
		return decoded, nil
	}

	if _, decoded, err := multibase.Decode(value); err == nil {
		return decoded, nil
	}

	return nil, fmt.Errorf("value is not valid hex, base64, or multibase")
}

func isHex(s string) bool {
	if len(s)%2 != 0 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
