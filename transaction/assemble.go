// Package transaction assembles canonical payment transactions from a
// payment specification and a funding identity.
package transaction

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"

	"github.com/Shradhesh71/x402-sdk/clients"
	"github.com/Shradhesh71/x402-sdk/codec"
	"github.com/Shradhesh71/x402-sdk/types"
	"github.com/Shradhesh71/x402-sdk/utils"
)

// Assembled bundles a built transaction with its transport-ready form.
type Assembled struct {
	Transaction *solana.Transaction

	// Serialized is the base64 encoding of the signed transaction bytes,
	// ready for a proof header or raw submission. Empty until signed.
	Serialized string

	Signed bool
}

// Assemble builds and signs a payment transaction for spec, funded and paid
// for by funder. The recency marker is fetched fresh from the ledger; its
// absence is fatal.
func Assemble(ctx context.Context, ledger clients.Ledger, spec *types.PaymentSpecification, funder solana.PrivateKey) (*Assembled, error) {
	assembled, err := AssembleUnsigned(ctx, ledger, spec, funder.PublicKey())
	if err != nil {
		return nil, err
	}

	_, err = assembled.Transaction.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(funder.PublicKey()) {
			return &funder
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	raw, err := assembled.Transaction.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize transaction: %w", err)
	}

	assembled.Serialized = base64.StdEncoding.EncodeToString(raw)
	assembled.Signed = true
	return assembled, nil
}

// AssembleUnsigned builds the transaction without binding it to the funder.
func AssembleUnsigned(ctx context.Context, ledger clients.Ledger, spec *types.PaymentSpecification, funder solana.PublicKey) (*Assembled, error) {
	if report := types.ValidateSpecification(spec); !report.IsValid {
		return nil, &types.X402Error{
			Code:    types.ErrIncompleteSpecification,
			Message: fmt.Sprintf("invalid payment specification: %v", report.Errors),
			Data:    report.Errors,
		}
	}

	var instructions []solana.Instruction
	var err error
	if spec.TokenKind == types.TokenKindNative {
		instructions, err = nativeInstructions(spec, funder)
	} else {
		instructions, err = fungibleInstructions(ctx, ledger, spec, funder)
	}
	if err != nil {
		return nil, err
	}

	blockhash, err := ledger.LatestBlockhash(ctx)
	if err != nil {
		if types.ErrorCode(err) == types.ErrRecencyUnavailable {
			return nil, err
		}
		return nil, types.NewError(types.ErrRecencyUnavailable,
			"failed to fetch recent blockhash: %v", err)
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(funder))
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction: %w", err)
	}

	return &Assembled{Transaction: tx}, nil
}

func nativeInstructions(spec *types.PaymentSpecification, funder solana.PublicKey) ([]solana.Instruction, error) {
	lamports, err := utils.ToBaseUnits(spec.Amount, spec.EffectiveDecimals())
	if err != nil {
		return nil, err
	}

	recipient := solana.MustPublicKeyFromBase58(spec.Recipient)
	return []solana.Instruction{codec.EncodeNativeTransfer(funder, recipient, lamports)}, nil
}

func fungibleInstructions(ctx context.Context, ledger clients.Ledger, spec *types.PaymentSpecification, funder solana.PublicKey) ([]solana.Instruction, error) {
	recipient := solana.MustPublicKeyFromBase58(spec.Recipient)
	mint := solana.MustPublicKeyFromBase58(spec.MintAddress)

	decimals := spec.Decimals
	if decimals < 0 {
		d, err := ledger.MintDecimals(ctx, mint)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve mint decimals: %w", err)
		}
		decimals = int(d)
	}

	amount, err := utils.ToBaseUnits(spec.Amount, decimals)
	if err != nil {
		return nil, err
	}

	sourceAccount, err := codec.DeriveTokenAccount(funder, mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive funder token account: %w", err)
	}
	destAccount, err := codec.DeriveTokenAccount(recipient, mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive recipient token account: %w", err)
	}

	var instructions []solana.Instruction

	sourceExists, err := ledger.AccountExists(ctx, sourceAccount)
	if err != nil {
		return nil, err
	}
	if !sourceExists {
		instructions = append(instructions,
			associatedtokenaccount.NewCreateInstruction(funder, funder, mint).Build())
	}

	destExists, err := ledger.AccountExists(ctx, destAccount)
	if err != nil {
		return nil, err
	}
	if !destExists && spec.CreateAccountIfNeeded {
		// The funder pays rent for the recipient's account.
		instructions = append(instructions,
			associatedtokenaccount.NewCreateInstruction(funder, recipient, mint).Build())
	}

	instructions = append(instructions, codec.EncodeTokenTransferChecked(
		sourceAccount, mint, destAccount, funder, amount, uint8(decimals)))

	return instructions, nil
}
