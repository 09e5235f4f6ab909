package types

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// SpecificationBuilder accumulates a payment specification draft. Zero value
// is usable; Build validates and yields the immutable specification.
type SpecificationBuilder struct {
	tokenKind             TokenKind
	amount                string
	recipient             string
	mintAddress           string
	decimals              int
	decimalsSet           bool
	createAccountIfNeeded bool
	network               Network
}

// NewSpecificationBuilder returns an empty draft.
func NewSpecificationBuilder() *SpecificationBuilder {
	return &SpecificationBuilder{}
}

func (b *SpecificationBuilder) TokenKind(kind TokenKind) *SpecificationBuilder {
	b.tokenKind = kind
	return b
}

func (b *SpecificationBuilder) Amount(amount string) *SpecificationBuilder {
	b.amount = amount
	return b
}

func (b *SpecificationBuilder) Recipient(recipient string) *SpecificationBuilder {
	b.recipient = recipient
	return b
}

func (b *SpecificationBuilder) MintAddress(mint string) *SpecificationBuilder {
	b.mintAddress = mint
	return b
}

func (b *SpecificationBuilder) Decimals(decimals int) *SpecificationBuilder {
	b.decimals = decimals
	b.decimalsSet = true
	return b
}

func (b *SpecificationBuilder) CreateAccountIfNeeded(create bool) *SpecificationBuilder {
	b.createAccountIfNeeded = create
	return b
}

func (b *SpecificationBuilder) Network(network Network) *SpecificationBuilder {
	b.network = network
	return b
}

// Build validates presence rules and yields the specification. All violated
// rules are reported together, not just the first.
func (b *SpecificationBuilder) Build() (*PaymentSpecification, error) {
	var violations []string

	if b.tokenKind == "" {
		violations = append(violations, "tokenKind is required")
	}
	if b.amount == "" {
		violations = append(violations, "amount is required")
	}
	if b.recipient == "" {
		violations = append(violations, "recipient is required")
	}
	if b.tokenKind != "" && b.tokenKind != TokenKindNative && b.mintAddress == "" {
		violations = append(violations, "mintAddress is required for fungible tokens")
	}

	if len(violations) > 0 {
		return nil, &X402Error{
			Code:    ErrIncompleteSpecification,
			Message: fmt.Sprintf("incomplete payment specification: %s", strings.Join(violations, "; ")),
			Data:    violations,
		}
	}

	decimals := -1
	if b.decimalsSet {
		decimals = b.decimals
	}

	return &PaymentSpecification{
		TokenKind:             b.tokenKind,
		Amount:                b.amount,
		Recipient:             b.recipient,
		MintAddress:           b.mintAddress,
		Decimals:              decimals,
		CreateAccountIfNeeded: b.createAccountIfNeeded,
		Network:               b.network,
	}, nil
}

// NativeSpec builds a specification for the ledger's intrinsic asset.
func NativeSpec(amount, recipient string) (*PaymentSpecification, error) {
	return NewSpecificationBuilder().
		TokenKind(TokenKindNative).
		Amount(amount).
		Recipient(recipient).
		Build()
}

// USDCSpec builds a specification against the network's canonical USDC mint.
func USDCSpec(amount, recipient string, network Network) (*PaymentSpecification, error) {
	return NewSpecificationBuilder().
		TokenKind(TokenKindFungible).
		Amount(amount).
		Recipient(recipient).
		MintAddress(network.USDCMint()).
		Decimals(6).
		CreateAccountIfNeeded(true).
		Network(network).
		Build()
}

// FungibleSpec builds a specification for an arbitrary SPL mint. Decimals
// below zero fall back to the fungible default of 6.
func FungibleSpec(amount, recipient, mint string, decimals int) (*PaymentSpecification, error) {
	if decimals < 0 {
		decimals = TokenKindFungible.DefaultDecimals()
	}
	return NewSpecificationBuilder().
		TokenKind(TokenKindFungible).
		Amount(amount).
		Recipient(recipient).
		MintAddress(mint).
		Decimals(decimals).
		CreateAccountIfNeeded(true).
		Build()
}

// ValidationReport is the non-destructive counterpart of Build, used by
// downstream consumers before attempting settlement.
type ValidationReport struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors,omitempty"`
}

// ValidateSpecification re-runs the presence checks and additionally parses
// addresses and enforces amount positivity.
func ValidateSpecification(spec *PaymentSpecification) ValidationReport {
	var errs []string

	if spec == nil {
		return ValidationReport{IsValid: false, Errors: []string{"specification is nil"}}
	}

	if spec.TokenKind == "" {
		errs = append(errs, "tokenKind is required")
	}
	if spec.Amount == "" {
		errs = append(errs, "amount is required")
	} else if amt, err := decimal.NewFromString(spec.Amount); err != nil {
		errs = append(errs, fmt.Sprintf("amount %q is not a valid decimal", spec.Amount))
	} else if !amt.IsPositive() {
		errs = append(errs, "amount must be greater than zero")
	}

	if spec.Recipient == "" {
		errs = append(errs, "recipient is required")
	} else if _, err := solana.PublicKeyFromBase58(spec.Recipient); err != nil {
		errs = append(errs, fmt.Sprintf("recipient %q is not a valid address", spec.Recipient))
	}

	if spec.TokenKind != "" && spec.TokenKind != TokenKindNative {
		if spec.MintAddress == "" {
			errs = append(errs, "mintAddress is required for fungible tokens")
		} else if _, err := solana.PublicKeyFromBase58(spec.MintAddress); err != nil {
			errs = append(errs, fmt.Sprintf("mintAddress %q is not a valid address", spec.MintAddress))
		}
	}

	return ValidationReport{IsValid: len(errs) == 0, Errors: errs}
}
