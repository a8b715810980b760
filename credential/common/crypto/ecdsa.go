package crypto

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	dcrecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/ethereum/go-ethereum/crypto"
)

// VerifySignature verifies a secp256k1 ECDSA signature over the Keccak-256
// digest of msg. Accepted signature forms: 64-byte r||s, 65-byte r||s||v,
// or DER. The public key may be compressed (33 bytes) or uncompressed
// (65 bytes). A failed verification returns (false, nil); errors are reserved
// for malformed inputs.
func VerifySignature(pubKey, sig, msg []byte) (bool, error) {
	if len(pubKey) == 0 {
		return false, fmt.Errorf("public key is empty")
	}
	if len(sig) == 0 {
		return false, fmt.Errorf("signature is empty")
	}

	digest := crypto.Keccak256(msg)

	// Fixed-size r||s forms take precedence; anything else opening with an
	// ASN.1 SEQUENCE tag is treated as DER.
	var rs []byte
	switch {
	case len(sig) == 65:
		rs = sig[:64]
	case len(sig) == 64:
		rs = sig
	case sig[0] == 0x30:
		return verifyDER(pubKey, sig, digest)
	default:
		return false, fmt.Errorf("invalid signature length: got %d, want 64 or 65 bytes, or DER", len(sig))
	}

	key, err := parsePublicKey(pubKey)
	if err != nil {
		return false, err
	}

	r := new(big.Int).SetBytes(rs[:32])
	s := new(big.Int).SetBytes(rs[32:])

	return ecdsa.Verify(key, digest, r, s), nil
}

// verifyDER verifies a DER-encoded signature using the decred secp256k1
// implementation, which handles the ASN.1 parsing.
func verifyDER(pubKey, sig, digest []byte) (bool, error) {
	key, err := btcec.ParsePubKey(pubKey)
	if err != nil {
		return false, fmt.Errorf("failed to parse public key: %w", err)
	}

	parsed, err := dcrecdsa.ParseDERSignature(sig)
	if err != nil {
		return false, fmt.Errorf("failed to parse DER signature: %w", err)
	}

	return parsed.Verify(digest, key), nil
}

// parsePublicKey accepts compressed or uncompressed secp256k1 public key
// bytes and returns the stdlib ECDSA form.
func parsePublicKey(pubKey []byte) (*ecdsa.PublicKey, error) {
	if len(pubKey) == 33 && (pubKey[0] == 0x02 || pubKey[0] == 0x03) {
		parsed, err := btcec.ParsePubKey(pubKey)
		if err != nil {
			return nil, fmt.Errorf("failed to parse compressed public key: %w", err)
		}
		pubKey = parsed.SerializeUncompressed()
	}

	key, err := crypto.UnmarshalPubkey(pubKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	return key, nil
}
