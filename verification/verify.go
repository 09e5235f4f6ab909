// Package verification matches a submitted transaction's instructions
// against an expected payment specification.
package verification

import (
	"encoding/base64"
	"fmt"
	"strconv"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/Shradhesh71/x402-sdk/codec"
	"github.com/Shradhesh71/x402-sdk/logger"
	"github.com/Shradhesh71/x402-sdk/types"
	"github.com/Shradhesh71/x402-sdk/utils"
)

// Service verifies payment transactions. It holds no per-attempt state and
// is safe for concurrent use.
type Service struct {
	log logger.Logger
}

// NewService creates a verification service.
func NewService(log logger.Logger) *Service {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Service{log: log}
}

// Verify scans the transaction's instructions in order and reports whether
// one satisfies the expected specification. It accepts any instruction
// transferring at least the expected amount. Expected failures and caught
// panics land in the result; Verify never returns a Go error.
func (s *Service) Verify(tx *solana.Transaction, expected *types.PaymentSpecification) (result *types.VerificationResult) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("verification panicked", map[string]any{"panic": fmt.Sprint(r)})
			result = &types.VerificationResult{
				IsValid: false,
				Error:   fmt.Sprintf("verification error: %v", r),
			}
		}
	}()

	if tx == nil {
		return &types.VerificationResult{IsValid: false, Error: "transaction is nil"}
	}
	if expected == nil {
		return &types.VerificationResult{IsValid: false, Error: "expected specification is nil"}
	}

	expectedAmount, err := utils.ToBaseUnits(expected.Amount, expected.EffectiveDecimals())
	if err != nil {
		return &types.VerificationResult{IsValid: false, Error: err.Error()}
	}

	if expected.TokenKind == types.TokenKindNative {
		return s.verifyNative(tx, expected, expectedAmount)
	}
	return s.verifyFungible(tx, expected, expectedAmount)
}

// VerifySerialized decodes a base64 transaction and verifies it. Decode
// failures are reported as a non-matching result.
func (s *Service) VerifySerialized(serializedTx string, expected *types.PaymentSpecification) *types.VerificationResult {
	tx, err := DecodeTransaction(serializedTx)
	if err != nil {
		return &types.VerificationResult{
			IsValid: false,
			Error:   fmt.Sprintf("failed to decode transaction: %v", err),
		}
	}
	return s.Verify(tx, expected)
}

func (s *Service) verifyNative(tx *solana.Transaction, expected *types.PaymentSpecification, expectedAmount uint64) *types.VerificationResult {
	recipient := solana.MustPublicKeyFromBase58(expected.Recipient)

	for _, inst := range codec.ViewInstructions(tx) {
		transfer, ok := codec.DecodeNativeTransfer(inst)
		if !ok {
			continue
		}
		if !transfer.To.Equals(recipient) {
			continue
		}
		if transfer.Lamports < expectedAmount {
			continue
		}

		return &types.VerificationResult{
			IsValid: true,
			Details: &types.VerificationDetails{
				Amount:    strconv.FormatUint(transfer.Lamports, 10),
				Recipient: transfer.To.String(),
				TokenKind: types.TokenKindNative,
				Sender:    transfer.From.String(),
			},
		}
	}

	return &types.VerificationResult{
		IsValid: false,
		Error:   "no valid native transfer instruction found",
	}
}

func (s *Service) verifyFungible(tx *solana.Transaction, expected *types.PaymentSpecification, expectedAmount uint64) *types.VerificationResult {
	// Fail closed: without a mint there is no destination to check against.
	if expected.MintAddress == "" {
		return &types.VerificationResult{
			IsValid: false,
			Error:   "expected specification has no mint address",
		}
	}

	mint := solana.MustPublicKeyFromBase58(expected.MintAddress)
	recipient := solana.MustPublicKeyFromBase58(expected.Recipient)

	expectedDest, err := codec.DeriveTokenAccount(recipient, mint)
	if err != nil {
		return &types.VerificationResult{
			IsValid: false,
			Error:   fmt.Sprintf("failed to derive recipient token account: %v", err),
		}
	}

	for _, inst := range codec.ViewInstructions(tx) {
		transfer, ok := codec.DecodeTokenTransfer(inst)
		if !ok {
			continue
		}
		if !transfer.Destination.Equals(expectedDest) {
			continue
		}
		// The checked variant names the mint; when present it must agree.
		if transfer.Checked && !transfer.Mint.Equals(mint) {
			continue
		}
		if transfer.Amount < expectedAmount {
			continue
		}

		return &types.VerificationResult{
			IsValid: true,
			Details: &types.VerificationDetails{
				Amount:      strconv.FormatUint(transfer.Amount, 10),
				Recipient:   expected.Recipient,
				TokenKind:   types.TokenKindFungible,
				MintAddress: expected.MintAddress,
				Sender:      transfer.Authority.String(),
			},
		}
	}

	return &types.VerificationResult{
		IsValid: false,
		Error:   "no valid fungible transfer instruction found",
	}
}

// DecodeTransaction parses base64-serialized transaction bytes.
func DecodeTransaction(serialized string) (*solana.Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(serialized)
	if err != nil {
		return nil, fmt.Errorf("transaction is not valid base64: %w", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("transaction bytes are malformed: %w", err)
	}
	return tx, nil
}
