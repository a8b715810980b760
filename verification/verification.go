// Package verification orchestrates the credential verification pipeline:
// fetch by content address, structural validation, then four independent
// checks (hash integrity, proof, ledger anchoring, revocation) joined into a
// single auditable verdict.
package verification

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pilacorp/go-verifier-sdk/credential"
	"github.com/pilacorp/go-verifier-sdk/credential/common/canonical"
	"github.com/pilacorp/go-verifier-sdk/verification/anchor"
	"github.com/pilacorp/go-verifier-sdk/verification/fetcher"
	"github.com/pilacorp/go-verifier-sdk/verification/revocation"
)

// Request identifies what to verify. CID is required; PublicKey overrides any
// key embedded in the document's proof; CredentialID lets the ledger and
// revocation checks run even when the document itself cannot be fetched.
type Request struct {
	CID          string
	PublicKey    string
	CredentialID string
}

// AnchorLookup is the ledger capability consumed by the orchestrator.
type AnchorLookup interface {
	Lookup(ctx context.Context, cid string) (*anchor.Record, error)
}

// StatusListChecker is implemented by revocation registries that can resolve
// status list entries carried inside credentials.
type StatusListChecker interface {
	CheckStatusList(ctx context.Context, listURL string, index int) (bool, error)
}

// Config holds orchestrator policy.
type Config struct {
	// CheckTimeout bounds each independent sub-check. On expiry that
	// channel reports failure; the request as a whole continues.
	CheckTimeout time.Duration
	// RevocationFailClosed selects the policy for revocation registry
	// failures: true treats an unreachable registry as revoked, false
	// (the default) as not revoked. Either way the verdict carries a note.
	RevocationFailClosed bool
}

const defaultCheckTimeout = 15 * time.Second

// Verifier runs the verification pipeline. It holds no per-request state;
// a single Verifier is safe for concurrent use.
type Verifier struct {
	fetch       fetcher.Fetcher
	anchors     AnchorLookup
	revocations revocation.Registry
	cfg         Config
}

// New creates a Verifier over the injected capabilities.
func New(fetch fetcher.Fetcher, anchors AnchorLookup, revocations revocation.Registry, cfg Config) (*Verifier, error) {
	if fetch == nil {
		return nil, errors.New("fetcher is required")
	}
	if anchors == nil {
		return nil, errors.New("anchor lookup is required")
	}
	if revocations == nil {
		return nil, errors.New("revocation registry is required")
	}

	if cfg.CheckTimeout == 0 {
		cfg.CheckTimeout = defaultCheckTimeout
	}

	return &Verifier{
		fetch:       fetch,
		anchors:     anchors,
		revocations: revocations,
		cfg:         cfg,
	}, nil
}

// VerifyCredential runs the full pipeline for one request. Pipeline-level
// failures (fetch, structure) are reported inside the Result; the returned
// error is reserved for context cancellation, where partial results are
// discarded.
func (v *Verifier) VerifyCredential(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.CID) == "" {
		return failure("content address is required", ""), nil
	}

	raw, err := v.fetchDocument(ctx, req.CID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return v.fetchFailed(ctx, req, err), nil
	}

	doc, err := credential.Parse(raw)
	if err != nil {
		var serr *credential.StructuralError
		if errors.As(err, &serr) {
			return failure("credential failed structural validation", serr.Error()), nil
		}
		return failure("credential could not be parsed", err.Error()), nil
	}

	return v.runChecks(ctx, req, doc)
}

func (v *Verifier) fetchDocument(ctx context.Context, cid string) ([]byte, error) {
	fctx, cancel := context.WithTimeout(ctx, v.cfg.CheckTimeout)
	defer cancel()

	return v.fetch.Fetch(fctx, cid)
}

// fetchFailed builds the partial verdict for an unfetchable document. When
// the caller supplied a credential identifier, the ledger and revocation
// checks still run for operator diagnostics; their outcomes surface in the
// details only, never as check flags.
func (v *Verifier) fetchFailed(ctx context.Context, req Request, fetchErr error) *Result {
	res := failure("failed to fetch credential document", fetchErr.Error())

	if req.CredentialID == "" {
		return res
	}

	details := &Details{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		record, err := v.lookupAnchor(gctx, req.CID)
		if err == nil && record != nil {
			details.Blockchain = blockchainDetails(record)
		}
		return nil
	})
	g.Go(func() error {
		revoked, note := v.checkRevocation(gctx, req.CredentialID, nil)
		if note == "" && revoked {
			note = "credential is revoked"
		}
		details.RevocationNote = note
		return nil
	})
	_ = g.Wait()

	if details.Blockchain != nil || details.RevocationNote != "" {
		res.Details = details
	}

	return res
}

func (v *Verifier) runChecks(ctx context.Context, req Request, doc credential.Document) (*Result, error) {
	cred, _ := doc.(*credential.Credential)
	pres, _ := doc.(*credential.Presentation)

	var (
		hashMatch bool
		pOut      proofOutcome
		record    *anchor.Record
		anchorErr error
		revoked   bool
		revNote   string
	)

	g, gctx := errgroup.WithContext(ctx)

	if cred != nil {
		g.Go(func() error {
			hashMatch = checkDigest(cred)
			return gctx.Err()
		})
	}

	g.Go(func() error {
		pOut = checkProof(doc, req.PublicKey)
		return gctx.Err()
	})

	g.Go(func() error {
		rec, err := v.lookupAnchor(gctx, req.CID)
		if err != nil {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			anchorErr = err
			return nil
		}
		record = rec
		return nil
	})

	g.Go(func() error {
		var status *credential.Status
		if cred != nil {
			status = cred.Status
		}
		revoked, revNote = v.checkRevocation(gctx, revocationID(req, cred, pres), status)
		return gctx.Err()
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return v.aggregate(req, doc, cred, pres, hashMatch, pOut, record, anchorErr, revoked, revNote), nil
}

func (v *Verifier) aggregate(req Request, doc credential.Document, cred *credential.Credential,
	pres *credential.Presentation, hashMatch bool, pOut proofOutcome,
	record *anchor.Record, anchorErr error, revoked bool, revNote string) *Result {

	checks := &Checks{
		StructureValid: true,
		IPFSValid:      true,
		HashMatch:      hashMatch,
		BBSProofValid:  pOut.valid,
		Revoked:        revoked,
	}

	var issuer string
	details := &Details{
		ProofType:      pOut.proofType,
		BBSNote:        pOut.note,
		RevocationNote: revNote,
	}

	switch {
	case cred != nil:
		issuer = cred.Issuer
		details.Issuer = cred.Issuer
		details.Subject = cred.Subject
		details.IssuanceDate = cred.IssuanceDate.Format(time.RFC3339)
	case pres != nil:
		issuer = pres.Issuer
		details.Issuer = pres.Issuer
		details.Subject = pres.Subject
		details.IssuanceDate = pres.IssuanceDate.Format(time.RFC3339)
		details.PresentationType = credential.PresentationTypeSelectiveDisclosure
		details.DisclosedFields = pres.DisclosedFields
	}

	switch {
	case record != nil:
		checks.BlockchainValid = strings.EqualFold(record.Issuer, issuer) && record.CID == req.CID
		details.Blockchain = blockchainDetails(record)
	case anchorErr != nil && !errors.Is(anchorErr, anchor.ErrNotFound):
		// An unreachable ledger is not the same as an unanchored address;
		// the distinction must reach the client.
		details.BlockchainNote = "ledger lookup failed: " + anchorErr.Error()
	}

	// Applicable checks only: the hash channel has no meaning for a
	// selective disclosure presentation and is excluded, not assumed true.
	checks.Verified = checks.StructureValid && checks.IPFSValid &&
		checks.BBSProofValid && checks.BlockchainValid && !checks.Revoked
	if cred != nil {
		checks.Verified = checks.Verified && checks.HashMatch
	}

	return &Result{
		Success: true,
		Checks:  checks,
		Details: details,
		VC:      doc.Echo(),
	}
}

// checkDigest recomputes the canonical subject digest and compares it to the
// embedded hash claim.
func checkDigest(cred *credential.Credential) bool {
	digest, err := canonical.SubjectDigest(cred.Attributes)
	if err != nil {
		return false
	}

	return strings.EqualFold(digest, strings.TrimPrefix(cred.Hash, "0x"))
}

func (v *Verifier) lookupAnchor(ctx context.Context, cid string) (*anchor.Record, error) {
	cctx, cancel := context.WithTimeout(ctx, v.cfg.CheckTimeout)
	defer cancel()

	record, err := v.anchors.Lookup(cctx, cid)
	if err != nil {
		if !errors.Is(err, anchor.ErrNotFound) {
			slog.WarnContext(ctx, "ledger lookup failed", "cid", cid, "error", err)
		}
		return nil, err
	}

	return record, nil
}

// checkRevocation resolves revocation status, preferring a status list entry
// carried by the credential over the per-identifier registry endpoint.
// Registry failures resolve to the configured policy with an explicit note.
func (v *Verifier) checkRevocation(ctx context.Context, credentialID string, status *credential.Status) (bool, string) {
	cctx, cancel := context.WithTimeout(ctx, v.cfg.CheckTimeout)
	defer cancel()

	var (
		revoked bool
		err     error
	)

	checker, hasStatusList := v.revocations.(StatusListChecker)
	switch {
	case status != nil && status.StatusListCredential != "" && hasStatusList:
		revoked, err = checker.CheckStatusList(cctx, status.StatusListCredential, status.StatusListIndex)
	case credentialID != "":
		revoked, err = v.revocations.IsRevoked(cctx, credentialID)
	default:
		return false, "no credential identifier available for revocation check"
	}

	if err != nil {
		slog.WarnContext(ctx, "revocation lookup failed", "credential_id", credentialID, "error", err)
		if v.cfg.RevocationFailClosed {
			return true, "revocation registry unavailable; treating credential as revoked (fail-closed)"
		}
		return false, "revocation registry unavailable; assuming not revoked (fail-open)"
	}

	return revoked, ""
}

func revocationID(req Request, cred *credential.Credential, pres *credential.Presentation) string {
	switch {
	case cred != nil && cred.ID != "":
		return cred.ID
	case pres != nil && pres.CredentialID != "":
		return pres.CredentialID
	default:
		return req.CredentialID
	}
}

func blockchainDetails(record *anchor.Record) *BlockchainDetails {
	return &BlockchainDetails{
		Issuer:    record.Issuer,
		Timestamp: record.Timestamp.Format(time.RFC3339),
		IPFSCID:   record.CID,
	}
}
