// Package credential defines the typed model for verifiable credentials and
// selectively disclosed presentations, and parses raw document bytes into it.
package credential

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/pilacorp/go-verifier-sdk/credential/common/canonical"
)

// PresentationTypeSelectiveDisclosure is the discriminator value that marks a
// document as a selectively disclosed presentation. Its absence marks a full
// credential; any other value is a structural error.
const PresentationTypeSelectiveDisclosure = "SelectiveDisclosure"

// Document is either a *Credential or a *Presentation.
type Document interface {
	// DocProof returns the document's proof variant.
	DocProof() Proof
	// Echo returns the parsed document for display, as received.
	Echo() map[string]interface{}
}

// Status points at an external revocation status list entry.
type Status struct {
	ID                   string `json:"id,omitempty"`
	Type                 string `json:"type,omitempty"`
	StatusListCredential string `json:"statusListCredential,omitempty"`
	StatusListIndex      int    `json:"statusListIndex,omitempty"`
}

// Credential is a full verifiable credential. Its Hash claim is the canonical
// digest of Attributes (see the canonical package); the digest is computable
// from the attributes alone, excluding the id and hash fields.
type Credential struct {
	ID           string
	Issuer       string
	Subject      string
	IssuanceDate time.Time
	Attributes   map[string]interface{}
	Hash         string
	Status       *Status
	Proof        Proof

	raw map[string]interface{}
}

func (c *Credential) DocProof() Proof              { return c.Proof }
func (c *Credential) Echo() map[string]interface{} { return c.raw }

// SigningInput returns the canonical byte string a direct signature covers:
// the document minus its proof field.
func (c *Credential) SigningInput() ([]byte, error) {
	return canonical.SigningInput(c.raw)
}

// Statements returns the ordered BBS+ statement list for the credential.
func (c *Credential) Statements() ([][]byte, error) {
	return canonical.Statements(c.Issuer, c.Subject, c.Attributes)
}

// Presentation is a selectively disclosed derivation of a credential. Only
// the attributes named in DisclosedFields are present; the proof attests
// consistency with the signed original without revealing the rest.
type Presentation struct {
	CredentialID        string
	Issuer              string
	Subject             string
	IssuanceDate        time.Time
	DisclosedFields     []string
	DisclosedAttributes map[string]interface{}
	Proof               Proof

	raw map[string]interface{}
}

func (p *Presentation) DocProof() Proof              { return p.Proof }
func (p *Presentation) Echo() map[string]interface{} { return p.raw }

// RevealedStatements rebuilds the disclosed statement lines in the canonical
// order used at signing time.
func (p *Presentation) RevealedStatements() ([][]byte, error) {
	return canonical.Statements(p.Issuer, p.Subject, p.DisclosedAttributes)
}

// StructuralError reports why raw bytes could not be parsed into a valid
// Credential or Presentation.
type StructuralError struct {
	Field  string
	Reason string
}

func (e *StructuralError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("structural error: %s", e.Reason)
	}

	return fmt.Sprintf("structural error in %q: %s", e.Field, e.Reason)
}

// Parse parses raw document bytes into a typed Credential or Presentation.
// The presentationType discriminator selects the mode; schema validation and
// field checks run before the typed form is returned.
func Parse(raw []byte) (Document, error) {
	if len(raw) == 0 {
		return nil, &StructuralError{Reason: "document is empty"}
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, &StructuralError{Reason: fmt.Sprintf("not a JSON object: %v", err)}
	}

	presentationType, _ := m["presentationType"].(string)
	switch presentationType {
	case "":
		return parseCredential(raw, m)
	case PresentationTypeSelectiveDisclosure:
		return parsePresentation(raw, m)
	default:
		return nil, &StructuralError{
			Field:  "presentationType",
			Reason: fmt.Sprintf("unknown presentation type %q", presentationType),
		}
	}
}

func parseCredential(raw []byte, m map[string]interface{}) (*Credential, error) {
	if err := validateSchema(credentialSchema, raw); err != nil {
		return nil, err
	}

	issuanceDate, err := parseTimestamp(m["issuanceDate"])
	if err != nil {
		return nil, err
	}

	proofMap, _ := m["proof"].(map[string]interface{})
	proof, err := parseProof(proofMap)
	if err != nil {
		return nil, err
	}

	cred := &Credential{
		ID:           stringField(m, "id"),
		Issuer:       stringField(m, "issuer"),
		Subject:      stringField(m, "subject"),
		IssuanceDate: issuanceDate,
		Hash:         stringField(m, "hash"),
		Proof:        proof,
		raw:          m,
	}

	subject, _ := m["credentialSubject"].(map[string]interface{})
	cred.Attributes = subject

	if statusMap, ok := m["credentialStatus"].(map[string]interface{}); ok {
		status, err := parseStatus(statusMap)
		if err != nil {
			return nil, err
		}
		cred.Status = status
	}

	return cred, nil
}

func parsePresentation(raw []byte, m map[string]interface{}) (*Presentation, error) {
	if err := validateSchema(presentationSchema, raw); err != nil {
		return nil, err
	}

	issuanceDate, err := parseTimestamp(m["issuanceDate"])
	if err != nil {
		return nil, err
	}

	proofMap, _ := m["proof"].(map[string]interface{})
	proof, err := parseProof(proofMap)
	if err != nil {
		return nil, err
	}

	pres := &Presentation{
		CredentialID: stringField(m, "credentialId"),
		Issuer:       stringField(m, "issuer"),
		Subject:      stringField(m, "subject"),
		IssuanceDate: issuanceDate,
		Proof:        proof,
		raw:          m,
	}

	fields, _ := m["disclosedFields"].([]interface{})
	for _, f := range fields {
		name, ok := f.(string)
		if !ok {
			return nil, &StructuralError{Field: "disclosedFields", Reason: "field names must be strings"}
		}
		pres.DisclosedFields = append(pres.DisclosedFields, name)
	}

	disclosed, _ := m["credentialSubject"].(map[string]interface{})
	pres.DisclosedAttributes = disclosed

	if err := validateDisclosure(pres); err != nil {
		return nil, err
	}

	return pres, nil
}

// validateDisclosure enforces the presentation invariants: the disclosed
// field list matches the disclosed attribute keys exactly, and reserved
// fields are never disclosed as ordinary attributes.
func validateDisclosure(p *Presentation) error {
	if len(p.DisclosedFields) == 0 {
		return &StructuralError{Field: "disclosedFields", Reason: "selective disclosure requires at least one disclosed field"}
	}

	named := make(map[string]bool, len(p.DisclosedFields))
	for _, f := range p.DisclosedFields {
		if f == "id" || f == "hash" {
			return &StructuralError{Field: "disclosedFields", Reason: fmt.Sprintf("%q is not a disclosable attribute", f)}
		}
		named[f] = true
	}

	if len(named) != len(p.DisclosedAttributes) {
		return &StructuralError{Field: "credentialSubject", Reason: "disclosed attributes do not match disclosedFields"}
	}
	for k := range p.DisclosedAttributes {
		if !named[k] {
			return &StructuralError{Field: "credentialSubject", Reason: fmt.Sprintf("attribute %q is not listed in disclosedFields", k)}
		}
	}

	return nil
}

// parseStatus decodes a credentialStatus entry. The list index selects which
// revocation bit is tested, so a malformed index is a structural error, not
// a silent zero.
func parseStatus(m map[string]interface{}) (*Status, error) {
	s := &Status{
		ID:                   stringField(m, "id"),
		Type:                 stringField(m, "type"),
		StatusListCredential: stringField(m, "statusListCredential"),
	}

	switch idx := m["statusListIndex"].(type) {
	case float64:
		s.StatusListIndex = int(idx)
	case string:
		parsed, err := strconv.Atoi(idx)
		if err != nil {
			return nil, &StructuralError{
				Field:  "credentialStatus.statusListIndex",
				Reason: fmt.Sprintf("malformed status list index %q", idx),
			}
		}
		s.StatusListIndex = parsed
	}

	return s, nil
}

func parseTimestamp(v interface{}) (time.Time, error) {
	raw, ok := v.(string)
	if !ok || raw == "" {
		return time.Time{}, &StructuralError{Field: "issuanceDate", Reason: "missing issuance timestamp"}
	}

	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, &StructuralError{Field: "issuanceDate", Reason: fmt.Sprintf("malformed timestamp %q", raw)}
	}

	return ts, nil
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}
