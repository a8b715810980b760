package crypto

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trustbloc/bbs-signature-go/bbs12381g2pub"
)

func TestVerifyBBS(t *testing.T) {
	pubKey, privKey, err := bbs12381g2pub.GenerateKeyPair(sha256.New, nil)
	require.NoError(t, err)

	pubKeyBytes, err := pubKey.Marshal()
	require.NoError(t, err)
	privKeyBytes, err := privKey.Marshal()
	require.NoError(t, err)

	messages := [][]byte{
		[]byte("issuer:did:example:issuer"),
		[]byte("subject:did:example:alice"),
		[]byte(`name:"Alice Nguyen"`),
	}

	sig, err := bbs12381g2pub.New().Sign(messages, privKeyBytes)
	require.NoError(t, err)

	t.Run("valid signature", func(t *testing.T) {
		assert.NoError(t, VerifyBBS(messages, sig, pubKeyBytes))
	})

	t.Run("altered message fails", func(t *testing.T) {
		tampered := [][]byte{messages[0], messages[1], []byte(`name:"Mallory"`)}
		assert.Error(t, VerifyBBS(tampered, sig, pubKeyBytes))
	})

	t.Run("empty message list", func(t *testing.T) {
		assert.Error(t, VerifyBBS(nil, sig, pubKeyBytes))
	})
}

func TestVerifyBBSProof(t *testing.T) {
	pubKey, privKey, err := bbs12381g2pub.GenerateKeyPair(sha256.New, nil)
	require.NoError(t, err)

	pubKeyBytes, err := pubKey.Marshal()
	require.NoError(t, err)
	privKeyBytes, err := privKey.Marshal()
	require.NoError(t, err)

	messages := [][]byte{
		[]byte("issuer:did:example:issuer"),
		[]byte("subject:did:example:alice"),
		[]byte(`department:"Computer Science"`),
		[]byte(`name:"Alice Nguyen"`),
		[]byte(`rollNumber:"CS-2042"`),
	}

	bbs := bbs12381g2pub.New()

	sig, err := bbs.Sign(messages, privKeyBytes)
	require.NoError(t, err)

	nonce := []byte("verification-nonce")

	proof, err := bbs.DeriveProof(messages, sig, nonce, pubKeyBytes, []int{0, 1, 3})
	require.NoError(t, err)

	revealed := [][]byte{messages[0], messages[1], messages[3]}

	t.Run("valid proof over revealed subset", func(t *testing.T) {
		assert.NoError(t, VerifyBBSProof(revealed, proof, nonce, pubKeyBytes))
	})

	t.Run("altered disclosed value fails", func(t *testing.T) {
		tampered := [][]byte{messages[0], messages[1], []byte(`name:"Mallory"`)}
		assert.Error(t, VerifyBBSProof(tampered, proof, nonce, pubKeyBytes))
	})

	t.Run("wrong nonce fails", func(t *testing.T) {
		assert.Error(t, VerifyBBSProof(revealed, proof, []byte("other-nonce"), pubKeyBytes))
	})

	t.Run("malformed proof blob fails", func(t *testing.T) {
		assert.Error(t, VerifyBBSProof(revealed, []byte("not a proof"), nonce, pubKeyBytes))
	})
}
