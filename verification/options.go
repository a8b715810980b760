package verification

import "context"

// Opt is a per-call verification option.
type Opt func(*Request)

// WithPublicKey supplies the issuer public key externally. It takes
// precedence over any key embedded in the document's proof.
func WithPublicKey(key string) Opt {
	return func(r *Request) {
		r.PublicKey = key
	}
}

// WithCredentialID names the credential independently of the fetched
// document, letting the ledger and revocation checks run even when the
// document itself cannot be retrieved.
func WithCredentialID(id string) Opt {
	return func(r *Request) {
		r.CredentialID = id
	}
}

// Verify runs the pipeline for a content address with per-call options. It is
// the option-based form of VerifyCredential.
func (v *Verifier) Verify(ctx context.Context, cid string, opts ...Opt) (*Result, error) {
	req := Request{CID: cid}
	for _, opt := range opts {
		opt(&req)
	}

	return v.VerifyCredential(ctx, req)
}
