// Package clients provides the ledger RPC collaborator consumed by the
// assembler, settlement router, and middleware.
package clients

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// Ledger is the contract against the Solana RPC endpoint. Every method is a
// suspension point; errors are fatal to the current payment attempt.
type Ledger interface {
	// LatestBlockhash fetches the recency marker a transaction must embed.
	LatestBlockhash(ctx context.Context) (solana.Hash, error)

	// Simulate dry-runs the transaction and returns a non-nil error when the
	// simulated execution reports an on-ledger failure.
	Simulate(ctx context.Context, tx *solana.Transaction) error

	// SubmitRaw broadcasts serialized transaction bytes.
	SubmitRaw(ctx context.Context, txBytes []byte) (solana.Signature, error)

	// Confirm blocks until the ledger reports the signature confirmed, the
	// transaction errors, or ctx is done.
	Confirm(ctx context.Context, sig solana.Signature) error

	// AccountExists reports whether an account is present on the ledger.
	AccountExists(ctx context.Context, account solana.PublicKey) (bool, error)

	// MintDecimals looks up the decimal precision of an SPL mint.
	MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error)

	Close()
}
