// Package types defines the data model of the x402 payment protocol for
// Solana: payment specifications, their wire form, verification and
// settlement results, and the error taxonomy shared by every component.
package types

import (
	"fmt"
	"time"
)

// X402Version is the protocol version carried in proof headers.
const X402Version = 1

// SchemeExact is the only payment scheme this SDK implements.
const SchemeExact = "exact"

// TokenKind distinguishes the ledger's intrinsic asset from SPL tokens.
type TokenKind string

const (
	TokenKindNative   TokenKind = "native"
	TokenKindFungible TokenKind = "fungible"
)

// DefaultDecimals returns the decimal precision assumed for a token kind
// when the specification does not override it.
func (k TokenKind) DefaultDecimals() int {
	if k == TokenKindNative {
		return 9
	}
	return 6
}

// PaymentSpecification is the canonical description of a required payment.
// It is immutable once built; construct one via SpecificationBuilder or the
// named constructors in builder.go.
type PaymentSpecification struct {
	TokenKind TokenKind `json:"tokenKind"`

	// Amount in human decimal form, e.g. "0.001".
	Amount string `json:"amount"`

	// Recipient is the base58 account address the payment must reach.
	Recipient string `json:"recipient"`

	// MintAddress is required when TokenKind is fungible.
	MintAddress string `json:"mintAddress,omitempty"`

	// Decimals overrides the token-kind default when >= 0; -1 means unset.
	Decimals int `json:"decimals"`

	// CreateAccountIfNeeded allows the assembler to create the recipient's
	// token-holding account at the funder's expense.
	CreateAccountIfNeeded bool `json:"createAccountIfNeeded"`

	Network Network `json:"network,omitempty"`
}

// EffectiveDecimals resolves the precision used for base-unit conversion.
func (s *PaymentSpecification) EffectiveDecimals() int {
	if s.Decimals >= 0 {
		return s.Decimals
	}
	return s.TokenKind.DefaultDecimals()
}

// PaymentPayloadBody is the nested payload of the wire-form requirements.
type PaymentPayloadBody struct {
	Recipient   string    `json:"recipient"`
	TokenKind   TokenKind `json:"tokenKind"`
	MintAddress string    `json:"mintAddress,omitempty"`
	Decimals    int       `json:"decimals"`
	Network     string    `json:"network"`
}

// PaymentRequirements is the wire form of a PaymentSpecification, as served
// in 402 challenges and posted to facilitators. Amounts are base-unit
// integers rendered as decimal strings.
type PaymentRequirements struct {
	Amount                string             `json:"amount" validate:"required,number"`
	Currency              string             `json:"currency" validate:"required"`
	Scheme                string             `json:"scheme" validate:"required,eq=exact"`
	PaymentPayload        PaymentPayloadBody `json:"paymentPayload"`
	TokenKind             TokenKind          `json:"tokenKind" validate:"required"`
	MintAddress           string             `json:"mintAddress,omitempty"`
	CreateAccountIfNeeded bool               `json:"createAccountIfNeeded,omitempty"`
}

// VerificationDetails echoes what a matching instruction actually paid.
type VerificationDetails struct {
	Amount      string    `json:"amount"`
	Recipient   string    `json:"recipient"`
	TokenKind   TokenKind `json:"tokenKind"`
	MintAddress string    `json:"mintAddress,omitempty"`
	Sender      string    `json:"sender,omitempty"`
}

// VerificationResult is produced fresh per verification call. Expected
// failure modes land in Error; the verifier never panics past its boundary.
type VerificationResult struct {
	IsValid bool                 `json:"isValid"`
	Error   string               `json:"error,omitempty"`
	Details *VerificationDetails `json:"details,omitempty"`
}

// PaymentDetails echoes the settled payment back to the caller.
type PaymentDetails struct {
	Amount      string    `json:"amount"`
	TokenKind   TokenKind `json:"tokenKind"`
	Recipient   string    `json:"recipient"`
	MintAddress string    `json:"mintAddress,omitempty"`
}

// ExecutionResult is the normalized outcome of a settlement, whichever path
// produced it.
type ExecutionResult struct {
	Signature      string          `json:"signature"`
	ExplorerURL    string          `json:"explorerUrl,omitempty"`
	Raw            interface{}     `json:"raw,omitempty"`
	PaymentDetails *PaymentDetails `json:"paymentDetails,omitempty"`
	SettledAt      *time.Time      `json:"settledAt,omitempty"`
}

// SettlementMode selects how a payment is executed.
type SettlementMode string

const (
	ModeOnChain     SettlementMode = "on-chain"
	ModeFacilitator SettlementMode = "facilitator"
	ModeAuto        SettlementMode = "auto"
)

// SDKConfig is the immutable configuration value threaded into every
// component. Changing the facilitator at runtime means constructing a new
// config and a new router bound to it.
type SDKConfig struct {
	Network        Network       `json:"network"`
	RPCUrl         string        `json:"rpcUrl,omitempty"`
	FacilitatorURL string        `json:"facilitatorUrl,omitempty"`
	PreferOnChain  bool          `json:"preferOnChain,omitempty"`
	Simulate       bool          `json:"simulate"`
	Timeout        time.Duration `json:"timeout,omitempty"`
}

// Error codes branched on by library callers.
const (
	ErrInvalidAmount           = "INVALID_AMOUNT"
	ErrInvalidAddress          = "INVALID_ADDRESS"
	ErrIncompleteSpecification = "INCOMPLETE_SPECIFICATION"
	ErrRecencyUnavailable      = "RECENCY_UNAVAILABLE"
	ErrSimulationRejected      = "SIMULATION_REJECTED"
	ErrSubmissionRejected      = "SUBMISSION_REJECTED"
	ErrSubmissionTimeout       = "SUBMISSION_TIMEOUT"
	ErrNoFacilitator           = "NO_FACILITATOR_CONFIGURED"
	ErrFacilitator             = "FACILITATOR_ERROR"
	ErrMalformedProofHeader    = "MALFORMED_PROOF_HEADER"
	ErrVerificationFailed      = "VERIFICATION_FAILED"
)

// X402Error is the structured error type returned by library-level
// components.
type X402Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *X402Error) Error() string {
	return e.Message
}

// NewError builds an X402Error with a formatted message.
func NewError(code, format string, args ...interface{}) *X402Error {
	return &X402Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrorCode extracts the x402 error code from err, or "" when err is not an
// X402Error.
func ErrorCode(err error) string {
	if xe, ok := err.(*X402Error); ok {
		return xe.Code
	}
	return ""
}

// FacilitatorError carries the verbatim HTTP failure from a facilitator.
type FacilitatorError struct {
	Status int
	Body   string
}

func (e *FacilitatorError) Error() string {
	return fmt.Sprintf("facilitator returned status %d: %s", e.Status, e.Body)
}
