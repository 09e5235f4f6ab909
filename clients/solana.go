package clients

import (
	"context"
	"errors"
	"fmt"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/Shradhesh71/x402-sdk/types"
)

const (
	confirmationPollInterval = 2 * time.Second
	confirmationPollRetries  = 15
)

// SolanaLedger implements Ledger over a JSON-RPC endpoint.
type SolanaLedger struct {
	network types.Network
	rpcURL  string
	client  *rpc.Client
}

var _ Ledger = (*SolanaLedger)(nil)

// NewSolanaLedger connects a ledger client to the given RPC endpoint. An
// empty rpcURL falls back to the network's public endpoint.
func NewSolanaLedger(network types.Network, rpcURL string) *SolanaLedger {
	if rpcURL == "" {
		rpcURL = network.DefaultRPCUrl()
	}
	return &SolanaLedger{
		network: network,
		rpcURL:  rpcURL,
		client:  rpc.New(rpcURL),
	}
}

func (l *SolanaLedger) Network() types.Network { return l.network }

func (l *SolanaLedger) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	out, err := l.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, types.NewError(types.ErrRecencyUnavailable,
			"failed to fetch recent blockhash: %v", err)
	}
	return out.Value.Blockhash, nil
}

func (l *SolanaLedger) Simulate(ctx context.Context, tx *solana.Transaction) error {
	out, err := l.client.SimulateTransaction(ctx, tx)
	if err != nil {
		return types.NewError(types.ErrSimulationRejected, "simulation request failed: %v", err)
	}
	if out.Value != nil && out.Value.Err != nil {
		return &types.X402Error{
			Code:    types.ErrSimulationRejected,
			Message: fmt.Sprintf("transaction simulation failed: %v", out.Value.Err),
			Data:    out.Value.Logs,
		}
	}
	return nil
}

func (l *SolanaLedger) SubmitRaw(ctx context.Context, txBytes []byte) (solana.Signature, error) {
	sig, err := l.client.SendRawTransactionWithOpts(ctx, txBytes, rpc.TransactionOpts{
		SkipPreflight:       true,
		PreflightCommitment: rpc.CommitmentFinalized,
	})
	if err != nil {
		return solana.Signature{}, types.NewError(types.ErrSubmissionRejected,
			"failed to broadcast transaction: %v", err)
	}
	return sig, nil
}

// Confirm polls signature statuses until the transaction is confirmed. A
// reported on-ledger error fails with SUBMISSION_REJECTED; running out of
// polls or ctx cancellation fails with SUBMISSION_TIMEOUT.
func (l *SolanaLedger) Confirm(ctx context.Context, sig solana.Signature) error {
	for i := 0; i < confirmationPollRetries; i++ {
		select {
		case <-ctx.Done():
			return types.NewError(types.ErrSubmissionTimeout,
				"confirmation interrupted for %s: %v", sig, ctx.Err())
		case <-time.After(confirmationPollInterval):
		}

		out, err := l.client.GetSignatureStatuses(ctx, false, sig)
		if err != nil || len(out.Value) == 0 || out.Value[0] == nil {
			continue
		}

		status := out.Value[0]
		if status.Err != nil {
			return &types.X402Error{
				Code:    types.ErrSubmissionRejected,
				Message: fmt.Sprintf("transaction %s failed on ledger: %v", sig, status.Err),
				Data:    status.Err,
			}
		}
		if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
			status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
			return nil
		}
	}

	return types.NewError(types.ErrSubmissionTimeout,
		"transaction %s not confirmed after %d polls", sig, confirmationPollRetries)
}

func (l *SolanaLedger) AccountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	out, err := l.client.GetAccountInfo(ctx, account)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("account lookup for %s failed: %w", account, err)
	}
	return out != nil && out.Value != nil, nil
}

func (l *SolanaLedger) MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	out, err := l.client.GetAccountInfo(ctx, mint)
	if err != nil {
		return 0, fmt.Errorf("mint lookup for %s failed: %w", mint, err)
	}
	if out == nil || out.Value == nil {
		return 0, fmt.Errorf("mint %s does not exist", mint)
	}

	var mintAccount token.Mint
	if err := bin.NewBinDecoder(out.Value.Data.GetBinary()).Decode(&mintAccount); err != nil {
		return 0, fmt.Errorf("failed to decode mint %s: %w", mint, err)
	}
	return mintAccount.Decimals, nil
}

// GetTransaction fetches a settled transaction by signature.
func (l *SolanaLedger) GetTransaction(ctx context.Context, sig solana.Signature) (*rpc.GetTransactionResult, error) {
	return l.client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Commitment: rpc.CommitmentConfirmed,
	})
}

func (l *SolanaLedger) Close() {}
