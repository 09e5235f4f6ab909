// Package x402 implements a pay-per-request protocol layered on HTTP for
// Solana: servers challenge clients with machine-readable payment terms,
// clients answer with a signed ledger transaction, and servers verify the
// transaction's instructions against the terms before settling it.
package x402

import (
	"context"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/Shradhesh71/x402-sdk/clients"
	"github.com/Shradhesh71/x402-sdk/logger"
	"github.com/Shradhesh71/x402-sdk/metrics"
	"github.com/Shradhesh71/x402-sdk/settlement"
	"github.com/Shradhesh71/x402-sdk/transaction"
	"github.com/Shradhesh71/x402-sdk/types"
	"github.com/Shradhesh71/x402-sdk/utils"
	"github.com/Shradhesh71/x402-sdk/verification"
)

// Version information.
const (
	Version         = "1.0.0"
	ProtocolVersion = types.X402Version
)

// X402 bundles the verifier, settlement router, and ledger client behind one
// immutable configuration.
type X402 struct {
	config     types.SDKConfig
	ledger     clients.Ledger
	verifier   *verification.Service
	router     *settlement.Router
	log        logger.Logger
	rec        metrics.Recorder
	httpClient *http.Client
}

// DefaultConfig returns a configuration with simulation on and a 30 second
// timeout against the network's public RPC endpoint.
func DefaultConfig(network types.Network) types.SDKConfig {
	return types.SDKConfig{
		Network:  network,
		RPCUrl:   network.DefaultRPCUrl(),
		Simulate: true,
		Timeout:  30 * time.Second,
	}
}

// New creates an SDK instance bound to config. Reconfiguring means creating
// a new instance; nothing here is mutable after construction.
func New(config types.SDKConfig, opts ...Option) *X402 {
	x := &X402{
		config: config,
		log:    logger.NoopLogger{},
		rec:    metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(x)
	}

	if x.ledger == nil {
		x.ledger = clients.NewSolanaLedger(config.Network, config.RPCUrl)
	}
	x.verifier = verification.NewService(x.log)
	x.router = settlement.NewRouter(config, x.ledger, x.httpClient, x.log, x.rec)
	return x
}

// NewWithDefaults creates an SDK instance for the given network with default
// configuration.
func NewWithDefaults(network types.Network, opts ...Option) *X402 {
	return New(DefaultConfig(network), opts...)
}

// Config returns the immutable configuration.
func (x *X402) Config() types.SDKConfig { return x.config }

// Ledger exposes the underlying ledger collaborator.
func (x *X402) Ledger() clients.Ledger { return x.ledger }

// BuildPayment assembles and signs a payment transaction for spec, funded by
// funder.
func (x *X402) BuildPayment(ctx context.Context, spec *types.PaymentSpecification, funder solana.PrivateKey) (*transaction.Assembled, error) {
	return transaction.Assemble(ctx, x.ledger, spec, funder)
}

// PaymentHeader assembles, signs, and wraps a payment for spec into an
// X-Payment header value, ready to retry a challenged request with.
func (x *X402) PaymentHeader(ctx context.Context, spec *types.PaymentSpecification, funder solana.PrivateKey) (string, error) {
	assembled, err := transaction.Assemble(ctx, x.ledger, spec, funder)
	if err != nil {
		return "", err
	}
	return types.NewProofHeader(x.config.Network, assembled.Serialized).Encode()
}

// Verify checks a decoded transaction against an expected specification.
func (x *X402) Verify(tx *solana.Transaction, expected *types.PaymentSpecification) *types.VerificationResult {
	return x.verifier.Verify(tx, expected)
}

// VerifySerialized checks a base64-serialized transaction against an
// expected specification.
func (x *X402) VerifySerialized(serializedTx string, expected *types.PaymentSpecification) *types.VerificationResult {
	return x.verifier.VerifySerialized(serializedTx, expected)
}

// Settle routes a payment through the requested settlement mode.
func (x *X402) Settle(ctx context.Context, spec *types.PaymentSpecification, mode types.SettlementMode, funder *solana.PrivateKey) (*types.ExecutionResult, error) {
	return x.router.Settle(ctx, spec, mode, funder)
}

// Requirements derives the wire-form requirements for a specification.
func (x *X402) Requirements(spec *types.PaymentSpecification) (*types.PaymentRequirements, error) {
	return utils.RequirementsFromSpecification(spec)
}

// Close releases the ledger connection.
func (x *X402) Close() {
	x.ledger.Close()
}
