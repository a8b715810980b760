package credential

import (
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Envelope schemas for the two document modes. These gate required fields and
// type tags before any field-level parsing runs.
const credentialSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["id", "issuer", "subject", "issuanceDate", "credentialSubject", "hash", "proof"],
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"issuer": {"type": "string", "minLength": 1},
		"subject": {"type": "string", "minLength": 1},
		"issuanceDate": {"type": "string", "minLength": 1},
		"credentialSubject": {"type": "object"},
		"hash": {"type": "string", "minLength": 1},
		"credentialStatus": {"type": "object"},
		"proof": {
			"type": "object",
			"required": ["type"],
			"properties": {"type": {"type": "string", "minLength": 1}}
		}
	}
}`

const presentationSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["presentationType", "issuer", "subject", "disclosedFields", "credentialSubject", "proof"],
	"properties": {
		"presentationType": {"type": "string", "const": "SelectiveDisclosure"},
		"credentialId": {"type": "string"},
		"issuer": {"type": "string", "minLength": 1},
		"subject": {"type": "string", "minLength": 1},
		"issuanceDate": {"type": "string", "minLength": 1},
		"disclosedFields": {"type": "array", "items": {"type": "string"}},
		"credentialSubject": {"type": "object"},
		"proof": {
			"type": "object",
			"required": ["type"],
			"properties": {"type": {"type": "string", "minLength": 1}}
		}
	}
}`

// validateSchema runs a document against its envelope schema and folds any
// violations into a single StructuralError.
func validateSchema(schema string, raw []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return &StructuralError{Reason: err.Error()}
	}

	if result.Valid() {
		return nil
	}

	reasons := make([]string, 0, len(result.Errors()))
	field := ""
	for _, desc := range result.Errors() {
		if field == "" {
			field = desc.Field()
		}
		reasons = append(reasons, desc.String())
	}

	return &StructuralError{Field: field, Reason: strings.Join(reasons, "; ")}
}
