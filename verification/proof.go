package verification

import (
	"github.com/pilacorp/go-verifier-sdk/credential"
	"github.com/pilacorp/go-verifier-sdk/credential/common/crypto"
)

// proofOutcome is the proof channel's contribution to the verdict: a boolean
// plus an optional note for inconclusive results. Malformed proofs are
// invalid, never errors into the orchestrator.
type proofOutcome struct {
	valid     bool
	proofType string
	note      string
}

// checkProof dispatches on the document and proof variants. callerKey is the
// externally supplied public key and wins over any key embedded in the proof.
func checkProof(doc credential.Document, callerKey string) proofOutcome {
	switch d := doc.(type) {
	case *credential.Credential:
		return checkCredentialProof(d, callerKey)
	case *credential.Presentation:
		return checkPresentationProof(d, callerKey)
	default:
		return proofOutcome{note: "unknown document kind"}
	}
}

func checkCredentialProof(cred *credential.Credential, callerKey string) proofOutcome {
	switch p := cred.Proof.(type) {
	case *credential.DirectSignature:
		return checkDirectSignature(cred, p, callerKey)
	case *credential.SelectiveDisclosureProof:
		return proofOutcome{
			proofType: p.Type(),
			note:      "selective disclosure proof is not valid on a full credential",
		}
	case *credential.UnsupportedProof:
		return proofOutcome{
			proofType: p.Type(),
			note:      "unsupported proof type: " + p.Type(),
		}
	default:
		return proofOutcome{note: "credential carries no proof"}
	}
}

func checkDirectSignature(cred *credential.Credential, p *credential.DirectSignature, callerKey string) proofOutcome {
	out := proofOutcome{proofType: p.Type()}

	keyValue := callerKey
	if keyValue == "" {
		keyValue = p.PublicKey
	}
	if keyValue == "" {
		out.note = "public key not provided"
		return out
	}

	key, err := crypto.DecodeKeyMaterial(keyValue)
	if err != nil {
		out.note = "malformed public key: " + err.Error()
		return out
	}

	sig, err := crypto.DecodeKeyMaterial(p.SignatureValue)
	if err != nil {
		out.note = "malformed signature value: " + err.Error()
		return out
	}

	switch p.Type() {
	case credential.ProofTypeECDSASecp256k1:
		input, err := cred.SigningInput()
		if err != nil {
			out.note = "failed to canonicalize credential: " + err.Error()
			return out
		}

		valid, err := crypto.VerifySignature(key, sig, input)
		if err != nil {
			out.note = "malformed signature: " + err.Error()
			return out
		}
		if !valid {
			out.note = "signature mismatch"
			return out
		}

		out.valid = true
		return out

	case credential.ProofTypeBBSSignature:
		statements, err := cred.Statements()
		if err != nil {
			out.note = "failed to build credential statements: " + err.Error()
			return out
		}

		if err := crypto.VerifyBBS(statements, sig, key); err != nil {
			out.note = "signature mismatch: " + err.Error()
			return out
		}

		out.valid = true
		return out

	default:
		out.note = "unsupported signature suite: " + p.Type()
		return out
	}
}

func checkPresentationProof(pres *credential.Presentation, callerKey string) proofOutcome {
	switch p := pres.Proof.(type) {
	case *credential.SelectiveDisclosureProof:
		return checkDisclosureProof(pres, p, callerKey)
	case *credential.DirectSignature:
		return proofOutcome{
			proofType: p.Type(),
			note:      "presentation requires a selective disclosure proof",
		}
	case *credential.UnsupportedProof:
		return proofOutcome{
			proofType: p.Type(),
			note:      "unsupported proof type: " + p.Type(),
		}
	default:
		return proofOutcome{note: "presentation carries no proof"}
	}
}

func checkDisclosureProof(pres *credential.Presentation, p *credential.SelectiveDisclosureProof, callerKey string) proofOutcome {
	out := proofOutcome{proofType: p.Type()}

	keyValue := callerKey
	if keyValue == "" {
		keyValue = p.PublicKey
	}
	if keyValue == "" {
		out.note = "public key not provided"
		return out
	}

	key, err := crypto.DecodeKeyMaterial(keyValue)
	if err != nil {
		out.note = "malformed public key: " + err.Error()
		return out
	}

	proofBytes, err := crypto.DecodeKeyMaterial(p.ProofValue)
	if err != nil {
		out.note = "malformed proof value: " + err.Error()
		return out
	}

	var nonce []byte
	if p.Nonce != "" {
		nonce, err = crypto.DecodeKeyMaterial(p.Nonce)
		if err != nil {
			out.note = "malformed proof nonce: " + err.Error()
			return out
		}
	}

	revealed, err := pres.RevealedStatements()
	if err != nil {
		out.note = "failed to build revealed statements: " + err.Error()
		return out
	}

	if err := crypto.VerifyBBSProof(revealed, proofBytes, nonce, key); err != nil {
		out.note = "proof verification failed: " + err.Error()
		return out
	}

	out.valid = true
	return out
}
