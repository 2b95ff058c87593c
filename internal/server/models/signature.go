package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/dealflow/internal/common"
)

// SignRequest is the body accepted when signing a document.
type SignRequest struct {
	SignerName    string `json:"signerName"`
	SignerTitle   string `json:"signerTitle"`
	SignerAddress string `json:"signerAddress,omitempty"`
	Signature     string `json:"signature"`
}

// Validate requires the signer's name, title and signature.
func (r *SignRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.SignerName) == "":
		return fmt.Errorf("%w: signerName is required", common.ErrValidation)
	case strings.TrimSpace(r.SignerTitle) == "":
		return fmt.Errorf("%w: signerTitle is required", common.ErrValidation)
	case strings.TrimSpace(r.Signature) == "":
		return fmt.Errorf("%w: signature is required", common.ErrValidation)
	}
	return nil
}

// SignaturePayload is what is stored once a document has been signed.
type SignaturePayload struct {
	Signed        bool      `json:"signed"`
	SignerName    string    `json:"signerName"`
	SignerTitle   string    `json:"signerTitle"`
	SignerAddress string    `json:"signerAddress,omitempty"`
	Signature     string    `json:"signature"`
	SignedAt      time.Time `json:"signedAt"`
}

// NewSignaturePayload stamps r as signed at t.
func NewSignaturePayload(r SignRequest, t time.Time) SignaturePayload {
	return SignaturePayload{
		Signed:        true,
		SignerName:    strings.TrimSpace(r.SignerName),
		SignerTitle:   strings.TrimSpace(r.SignerTitle),
		SignerAddress: strings.TrimSpace(r.SignerAddress),
		Signature:     r.Signature,
		SignedAt:      t.UTC(),
	}
}
