// Package canonical defines the canonical encodings used for credential
// digests and proof inputs. The rules here are frozen: changing them breaks
// every previously issued digest and signature.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/piprate/json-gold/ld"
	"golang.org/x/exp/maps"
)

// Subject fields that never participate in the digest. The digest claim
// cannot cover itself, and identifiers are bound by the ledger record instead.
var excludedSubjectFields = map[string]bool{
	"id":   true,
	"hash": true,
}

// Subject returns the canonical form of a credential subject: compact JSON
// with keys in lexicographic byte order, UTF-8, excluding the id and hash
// fields. encoding/json already emits map keys sorted, which pins the order.
func Subject(attrs map[string]interface{}) ([]byte, error) {
	filtered := make(map[string]interface{}, len(attrs))
	for k, v := range attrs {
		if excludedSubjectFields[k] {
			continue
		}
		filtered[k] = v
	}

	encoded, err := json.Marshal(filtered)
	if err != nil {
		return nil, fmt.Errorf("failed to encode subject: %w", err)
	}

	return encoded, nil
}

// SubjectDigest computes the hex-encoded SHA-256 digest of the canonical
// subject form. This is the value carried in a credential's hash claim.
func SubjectDigest(attrs map[string]interface{}) (string, error) {
	encoded, err := Subject(attrs)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(encoded)

	return hex.EncodeToString(sum[:]), nil
}

// Statements renders a credential as an ordered list of attribute statements
// for BBS+ signing and proof verification. The order is fixed: issuer,
// subject, then one statement per attribute in lexicographic key order, each
// of the form "<name>:<compact JSON value>". Selective disclosure reveals a
// subset of these statements; subsetting preserves the relative order.
func Statements(issuer, subject string, attrs map[string]interface{}) ([][]byte, error) {
	keys := maps.Keys(attrs)
	sort.Strings(keys)

	statements := make([][]byte, 0, len(keys)+2)
	statements = append(statements,
		[]byte("issuer:"+issuer),
		[]byte("subject:"+subject),
	)

	for _, k := range keys {
		if excludedSubjectFields[k] {
			continue
		}

		val, err := json.Marshal(attrs[k])
		if err != nil {
			return nil, fmt.Errorf("failed to encode attribute %q: %w", k, err)
		}

		statements = append(statements, []byte(k+":"+string(val)))
	}

	return statements, nil
}

// StatementIndex returns the position of an attribute statement within the
// full statement list for the given set of attribute names. Positions 0 and 1
// are the issuer and subject statements.
func StatementIndex(name string, allNames []string) int {
	names := make([]string, 0, len(allNames))
	for _, n := range allNames {
		if !excludedSubjectFields[n] {
			names = append(names, n)
		}
	}
	sort.Strings(names)

	for i, n := range names {
		if n == name {
			return i + 2
		}
	}

	return -1
}

// sharedDocumentLoader caches remote JSON-LD contexts across calls.
var sharedDocumentLoader = ld.NewCachingDocumentLoader(ld.NewDefaultDocumentLoader(nil))

// SigningInput produces the byte string a direct signature covers. The proof
// field is always excluded. Documents carrying an @context are canonicalized
// with URDNA2015 into N-Quads; plain documents use the compact sorted-key
// JSON form.
func SigningInput(doc map[string]interface{}) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is nil")
	}

	stripped := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		if k == "proof" {
			continue
		}
		stripped[k] = v
	}

	if _, ok := stripped["@context"]; ok {
		return canonicalizeJSONLD(stripped)
	}

	encoded, err := json.Marshal(stripped)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}

	return encoded, nil
}

// canonicalizeJSONLD normalizes a JSON-LD document into N-Quads using the
// URDNA2015 algorithm.
func canonicalizeJSONLD(doc map[string]interface{}) ([]byte, error) {
	proc := ld.NewJsonLdProcessor()

	opts := ld.NewJsonLdOptions("")
	opts.Format = "application/n-quads"
	opts.Algorithm = ld.AlgorithmURDNA2015
	opts.DocumentLoader = sharedDocumentLoader

	normalized, err := proc.Normalize(doc, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize document: %w", err)
	}

	nquads, ok := normalized.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected normalization output type %T", normalized)
	}

	return []byte(strings.TrimSpace(nquads)), nil
}
