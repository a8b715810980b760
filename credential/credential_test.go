package credential

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validCredentialJSON = `{
	"id": "urn:credential:1234",
	"issuer": "did:example:issuer",
	"subject": "did:example:alice",
	"issuanceDate": "2026-01-12T09:30:00Z",
	"credentialSubject": {
		"name": "Alice Nguyen",
		"rollNumber": "CS-2042",
		"department": "Computer Science"
	},
	"hash": "2b4c9d66a2544f221fcea07c4d73eb1bfe7b3b47a167bbb9bd7721eb04b5b37c",
	"proof": {
		"type": "EcdsaSecp256k1Signature2019",
		"created": "2026-01-12T09:30:00Z",
		"signatureValue": "00ff",
		"publicKey": "0a0b"
	}
}`

const validPresentationJSON = `{
	"presentationType": "SelectiveDisclosure",
	"credentialId": "urn:credential:1234",
	"issuer": "did:example:issuer",
	"subject": "did:example:alice",
	"issuanceDate": "2026-01-12T09:30:00Z",
	"disclosedFields": ["name"],
	"credentialSubject": {"name": "Alice Nguyen"},
	"proof": {
		"type": "BbsBlsSignatureProof2020",
		"proofValue": "00ff",
		"nonce": "0a0b"
	}
}`

func TestParseCredential(t *testing.T) {
	doc, err := Parse([]byte(validCredentialJSON))
	require.NoError(t, err)

	cred, ok := doc.(*Credential)
	require.True(t, ok, "expected a full credential")

	assert.Equal(t, "urn:credential:1234", cred.ID)
	assert.Equal(t, "did:example:issuer", cred.Issuer)
	assert.Equal(t, "did:example:alice", cred.Subject)
	assert.Equal(t, time.Date(2026, 1, 12, 9, 30, 0, 0, time.UTC), cred.IssuanceDate)
	assert.Equal(t, "Alice Nguyen", cred.Attributes["name"])
	assert.Len(t, cred.Attributes, 3)

	sig, ok := cred.Proof.(*DirectSignature)
	require.True(t, ok, "expected a direct signature proof")
	assert.Equal(t, ProofTypeECDSASecp256k1, sig.Type())
	assert.Equal(t, "00ff", sig.SignatureValue)
	assert.Equal(t, "0a0b", sig.PublicKey)
}

func TestParseCredentialStructuralErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty document", input: ""},
		{name: "not JSON", input: "not json"},
		{name: "missing issuer", input: `{
			"id": "urn:credential:1",
			"subject": "did:example:alice",
			"issuanceDate": "2026-01-12T09:30:00Z",
			"credentialSubject": {},
			"hash": "ab",
			"proof": {"type": "EcdsaSecp256k1Signature2019"}
		}`},
		{name: "malformed timestamp", input: `{
			"id": "urn:credential:1",
			"issuer": "did:example:issuer",
			"subject": "did:example:alice",
			"issuanceDate": "12/01/2026",
			"credentialSubject": {},
			"hash": "ab",
			"proof": {"type": "EcdsaSecp256k1Signature2019"}
		}`},
		{name: "proof missing type tag", input: `{
			"id": "urn:credential:1",
			"issuer": "did:example:issuer",
			"subject": "did:example:alice",
			"issuanceDate": "2026-01-12T09:30:00Z",
			"credentialSubject": {},
			"hash": "ab",
			"proof": {}
		}`},
		{name: "unknown presentation type", input: `{"presentationType": "FullDisclosure"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			require.Error(t, err)

			var serr *StructuralError
			assert.True(t, errors.As(err, &serr), "expected StructuralError, got %T", err)
		})
	}
}

func TestParsePresentation(t *testing.T) {
	doc, err := Parse([]byte(validPresentationJSON))
	require.NoError(t, err)

	pres, ok := doc.(*Presentation)
	require.True(t, ok, "expected a presentation")

	assert.Equal(t, "urn:credential:1234", pres.CredentialID)
	assert.Equal(t, []string{"name"}, pres.DisclosedFields)
	assert.Equal(t, map[string]interface{}{"name": "Alice Nguyen"}, pres.DisclosedAttributes)

	proof, ok := pres.Proof.(*SelectiveDisclosureProof)
	require.True(t, ok, "expected a selective disclosure proof")
	assert.Equal(t, ProofTypeBBSProof, proof.Type())
	assert.Equal(t, "00ff", proof.ProofValue)
	assert.Equal(t, "0a0b", proof.Nonce)
}

func TestParsePresentationDisclosureInvariants(t *testing.T) {
	tests := []struct {
		name            string
		disclosedFields string
		subject         string
		wantReason      string
	}{
		{
			name:            "empty disclosed fields",
			disclosedFields: `[]`,
			subject:         `{}`,
			wantReason:      "at least one disclosed field",
		},
		{
			name:            "reserved field disclosed",
			disclosedFields: `["hash"]`,
			subject:         `{"hash": "ab"}`,
			wantReason:      "not a disclosable attribute",
		},
		{
			name:            "attribute not listed",
			disclosedFields: `["name"]`,
			subject:         `{"name": "Alice Nguyen", "rollNumber": "CS-2042"}`,
			wantReason:      "do not match disclosedFields",
		},
		{
			name:            "listed field missing from attributes",
			disclosedFields: `["name", "department"]`,
			subject:         `{"name": "Alice Nguyen"}`,
			wantReason:      "do not match disclosedFields",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := `{
				"presentationType": "SelectiveDisclosure",
				"issuer": "did:example:issuer",
				"subject": "did:example:alice",
				"issuanceDate": "2026-01-12T09:30:00Z",
				"disclosedFields": ` + tt.disclosedFields + `,
				"credentialSubject": ` + tt.subject + `,
				"proof": {"type": "BbsBlsSignatureProof2020", "proofValue": "00ff"}
			}`

			_, err := Parse([]byte(input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantReason)
		})
	}
}

func TestParseUnsupportedProofType(t *testing.T) {
	input := `{
		"id": "urn:credential:1",
		"issuer": "did:example:issuer",
		"subject": "did:example:alice",
		"issuanceDate": "2026-01-12T09:30:00Z",
		"credentialSubject": {"name": "Alice Nguyen"},
		"hash": "ab",
		"proof": {"type": "FancyQuantumProof2031", "proofValue": "00ff"}
	}`

	doc, err := Parse([]byte(input))
	require.NoError(t, err, "unknown proof types must parse, not fail")

	cred := doc.(*Credential)
	unsupported, ok := cred.Proof.(*UnsupportedProof)
	require.True(t, ok)
	assert.Equal(t, "FancyQuantumProof2031", unsupported.Type())
}

func TestParseCredentialStatus(t *testing.T) {
	statusCredential := func(index string) string {
		return `{
			"id": "urn:credential:1",
			"issuer": "did:example:issuer",
			"subject": "did:example:alice",
			"issuanceDate": "2026-01-12T09:30:00Z",
			"credentialSubject": {"name": "Alice Nguyen"},
			"hash": "ab",
			"credentialStatus": {
				"id": "https://registry.example/status/3#7",
				"type": "BitstringStatusListEntry",
				"statusListCredential": "https://registry.example/status/3",
				"statusListIndex": ` + index + `
			},
			"proof": {"type": "EcdsaSecp256k1Signature2019", "signatureValue": "00ff"}
		}`
	}

	t.Run("numeric index", func(t *testing.T) {
		doc, err := Parse([]byte(statusCredential("7")))
		require.NoError(t, err)

		cred := doc.(*Credential)
		require.NotNil(t, cred.Status)
		assert.Equal(t, "https://registry.example/status/3", cred.Status.StatusListCredential)
		assert.Equal(t, 7, cred.Status.StatusListIndex)
	})

	t.Run("string index", func(t *testing.T) {
		doc, err := Parse([]byte(statusCredential(`"42"`)))
		require.NoError(t, err)

		cred := doc.(*Credential)
		require.NotNil(t, cred.Status)
		assert.Equal(t, 42, cred.Status.StatusListIndex)
	})

	t.Run("non-numeric string index is a structural error", func(t *testing.T) {
		_, err := Parse([]byte(statusCredential(`"seven"`)))

		var serr *StructuralError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, "credentialStatus.statusListIndex", serr.Field)
	})
}

func TestCredentialEcho(t *testing.T) {
	doc, err := Parse([]byte(validCredentialJSON))
	require.NoError(t, err)

	echo := doc.Echo()
	assert.Equal(t, "urn:credential:1234", echo["id"])
	assert.Contains(t, echo, "proof")
}
