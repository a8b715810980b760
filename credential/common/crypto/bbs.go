package crypto

import (
	"fmt"

	"github.com/trustbloc/bbs-signature-go/bbs12381g2pub"
)

// VerifyBBS verifies a BBS+ signature over the full ordered message list
// using a BLS12-381 G2 public key.
func VerifyBBS(messages [][]byte, signature, pubKey []byte) error {
	if len(messages) == 0 {
		return fmt.Errorf("no messages to verify")
	}

	return bbs12381g2pub.New().Verify(messages, signature, pubKey)
}

// VerifyBBSProof verifies a BBS+ signature proof against the revealed
// messages. The proof itself encodes which positions of the original message
// list were revealed; revealed must be supplied in ascending position order.
func VerifyBBSProof(revealed [][]byte, proof, nonce, pubKey []byte) error {
	if len(revealed) == 0 {
		return fmt.Errorf("no revealed messages")
	}

	return bbs12381g2pub.New().VerifyProof(revealed, proof, nonce, pubKey)
}
