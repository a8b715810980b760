package verification

// Checks carries the per-channel verification flags. It is embedded as a
// pointer in Result so that a failed pipeline omits the flags entirely
// instead of reporting them as false.
type Checks struct {
	Verified        bool `json:"verified"`
	StructureValid  bool `json:"structureValid"`
	IPFSValid       bool `json:"ipfsValid"`
	HashMatch       bool `json:"hashMatch"`
	BBSProofValid   bool `json:"bbsProofValid"`
	BlockchainValid bool `json:"blockchainValid"`
	Revoked         bool `json:"revoked"`
}

// BlockchainDetails echoes the anchored ledger record.
type BlockchainDetails struct {
	Issuer    string `json:"issuer"`
	Timestamp string `json:"timestamp"`
	IPFSCID   string `json:"ipfsCID"`
}

// Details carries the human-facing portion of a verdict.
type Details struct {
	Issuer           string             `json:"issuer,omitempty"`
	Subject          string             `json:"subject,omitempty"`
	IssuanceDate     string             `json:"issuanceDate,omitempty"`
	PresentationType string             `json:"presentationType,omitempty"`
	DisclosedFields  []string           `json:"disclosedFields,omitempty"`
	ProofType        string             `json:"proofType,omitempty"`
	BBSNote          string             `json:"bbsNote,omitempty"`
	RevocationNote   string             `json:"revocationNote,omitempty"`
	BlockchainNote   string             `json:"blockchainNote,omitempty"`
	Blockchain       *BlockchainDetails `json:"blockchain,omitempty"`
}

// Result is the aggregate verification verdict. Success reports whether the
// pipeline ran to completion; the embedded Checks report the individual
// channels and are present only when it did.
type Result struct {
	Success bool `json:"success"`
	*Checks
	Details      *Details    `json:"details,omitempty"`
	VC           interface{} `json:"vc,omitempty"`
	Error        string      `json:"error,omitempty"`
	ErrorDetails string      `json:"errorDetails,omitempty"`
}

// failure builds a terminal pipeline failure.
func failure(msg, details string) *Result {
	return &Result{
		Success:      false,
		Error:        msg,
		ErrorDetails: details,
	}
}
