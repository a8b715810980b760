package credential

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Proof suite identifiers recognized by the verifier.
const (
	ProofTypeECDSASecp256k1 = "EcdsaSecp256k1Signature2019"
	ProofTypeBBSSignature   = "BbsBlsSignature2020"
	ProofTypeBBSProof       = "BbsBlsSignatureProof2020"
)

// Proof is the tagged union over proof variants. Concrete types are
// DirectSignature, SelectiveDisclosureProof, and UnsupportedProof; verifiers
// must switch exhaustively over these.
type Proof interface {
	Type() string
}

// DirectSignature is a signature computed by the issuer over the full
// credential. The suite is either ECDSA over secp256k1 or a full BBS+
// signature over the credential's statement list.
type DirectSignature struct {
	ProofType          string `mapstructure:"type"`
	Created            string `mapstructure:"created"`
	VerificationMethod string `mapstructure:"verificationMethod"`
	SignatureValue     string `mapstructure:"signatureValue"`
	// PublicKey optionally embeds the signer key; a caller-supplied key
	// takes precedence.
	PublicKey string `mapstructure:"publicKey"`
}

func (p *DirectSignature) Type() string { return p.ProofType }

// SelectiveDisclosureProof is a zero-knowledge BBS+ signature proof attesting
// that the disclosed attributes are consistent with a validly signed full
// credential, without revealing the hidden attributes.
type SelectiveDisclosureProof struct {
	ProofType          string `mapstructure:"type"`
	Created            string `mapstructure:"created"`
	VerificationMethod string `mapstructure:"verificationMethod"`
	ProofValue         string `mapstructure:"proofValue"`
	Nonce              string `mapstructure:"nonce"`
	PublicKey          string `mapstructure:"publicKey"`
}

func (p *SelectiveDisclosureProof) Type() string { return p.ProofType }

// UnsupportedProof carries a proof whose type tag is not recognized. It
// parses cleanly so that verification can report an inconclusive result
// instead of a hard failure.
type UnsupportedProof struct {
	ProofType string
	Raw       map[string]interface{}
}

func (p *UnsupportedProof) Type() string { return p.ProofType }

// parseProof decodes a raw proof object into its typed variant.
func parseProof(raw map[string]interface{}) (Proof, error) {
	typeTag, _ := raw["type"].(string)
	if typeTag == "" {
		return nil, &StructuralError{Field: "proof.type", Reason: "missing proof type tag"}
	}

	switch typeTag {
	case ProofTypeECDSASecp256k1, ProofTypeBBSSignature:
		var p DirectSignature
		if err := decodeProof(raw, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case ProofTypeBBSProof:
		var p SelectiveDisclosureProof
		if err := decodeProof(raw, &p); err != nil {
			return nil, err
		}
		return &p, nil
	default:
		return &UnsupportedProof{ProofType: typeTag, Raw: raw}, nil
	}
}

func decodeProof(raw map[string]interface{}, out interface{}) error {
	if err := mapstructure.Decode(raw, out); err != nil {
		return &StructuralError{Field: "proof", Reason: fmt.Sprintf("malformed proof object: %v", err)}
	}

	return nil
}
