// Package settlement routes a verified payment through one of two execution
// paths: direct on-ledger submission or delegation to a remote facilitator.
package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/Shradhesh71/x402-sdk/clients"
	"github.com/Shradhesh71/x402-sdk/logger"
	"github.com/Shradhesh71/x402-sdk/metrics"
	"github.com/Shradhesh71/x402-sdk/transaction"
	"github.com/Shradhesh71/x402-sdk/types"
	"github.com/Shradhesh71/x402-sdk/utils"
)

const submitPaymentPath = "/submit-payment"

// Router executes payments. It is bound to one immutable configuration;
// changing the facilitator means constructing a new router.
type Router struct {
	config     types.SDKConfig
	ledger     clients.Ledger
	httpClient *http.Client
	log        logger.Logger
	rec        metrics.Recorder
}

// NewRouter creates a settlement router. A nil httpClient falls back to a
// default client bounded by the configured timeout.
func NewRouter(config types.SDKConfig, ledger clients.Ledger, httpClient *http.Client, log logger.Logger, rec metrics.Recorder) *Router {
	if httpClient == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Router{
		config:     config,
		ledger:     ledger,
		httpClient: httpClient,
		log:        log,
		rec:        rec,
	}
}

// facilitatorRequest is the body posted to the facilitator service.
type facilitatorRequest struct {
	Network             string                     `json:"network"`
	PaymentRequirements *types.PaymentRequirements `json:"paymentRequirements"`
}

// facilitatorResponse accepts both signature field names facilitators have
// used; Signature wins when both are present.
type facilitatorResponse struct {
	Signature string `json:"signature"`
	TxHash    string `json:"txHash"`
}

// Settle validates the specification, resolves the requested mode to an
// execution path, runs it, and normalizes the result. No network call is
// attempted for an invalid specification.
func (r *Router) Settle(ctx context.Context, spec *types.PaymentSpecification, mode types.SettlementMode, funder *solana.PrivateKey) (*types.ExecutionResult, error) {
	if report := types.ValidateSpecification(spec); !report.IsValid {
		return nil, &types.X402Error{
			Code:    types.ErrIncompleteSpecification,
			Message: fmt.Sprintf("invalid payment specification: %v", report.Errors),
			Data:    report.Errors,
		}
	}

	switch r.resolveMode(mode, funder) {
	case types.ModeOnChain:
		return r.settleOnChain(ctx, spec, funder)
	default:
		return r.settleViaFacilitator(ctx, spec)
	}
}

// resolveMode applies the Auto rule: on-chain only when the caller both
// opted in and supplied a signing identity.
func (r *Router) resolveMode(mode types.SettlementMode, funder *solana.PrivateKey) types.SettlementMode {
	if mode != types.ModeAuto {
		return mode
	}
	if r.config.PreferOnChain && funder != nil {
		return types.ModeOnChain
	}
	return types.ModeFacilitator
}

func (r *Router) settleOnChain(ctx context.Context, spec *types.PaymentSpecification, funder *solana.PrivateKey) (*types.ExecutionResult, error) {
	if funder == nil {
		return nil, types.NewError(types.ErrIncompleteSpecification,
			"on-chain settlement requires a funding signing identity")
	}

	start := time.Now()
	assembled, err := transaction.Assemble(ctx, r.ledger, spec, *funder)
	if err != nil {
		return nil, err
	}

	result, err := r.ExecuteOnLedger(ctx, assembled.Transaction, spec)
	r.rec.ObserveLatency(metrics.OperationSettleOnChain, time.Since(start),
		map[string]string{"network": r.config.Network.String()})
	return result, err
}

// ExecuteOnLedger simulates, submits, and confirms an already assembled and
// signed transaction. The middleware reuses this path when it settles a
// client-supplied transaction.
func (r *Router) ExecuteOnLedger(ctx context.Context, tx *solana.Transaction, spec *types.PaymentSpecification) (*types.ExecutionResult, error) {
	if r.config.Simulate {
		if err := r.ledger.Simulate(ctx, tx); err != nil {
			r.rec.IncCounter(metrics.EventSettlementFailed,
				map[string]string{"network": r.config.Network.String()})
			return nil, err
		}
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize transaction: %w", err)
	}

	sig, err := r.ledger.SubmitRaw(ctx, raw)
	if err != nil {
		r.rec.IncCounter(metrics.EventSettlementFailed,
			map[string]string{"network": r.config.Network.String()})
		return nil, err
	}

	if err := r.ledger.Confirm(ctx, sig); err != nil {
		r.rec.IncCounter(metrics.EventSettlementFailed,
			map[string]string{"network": r.config.Network.String()})
		return nil, err
	}

	r.log.Info("payment settled on ledger", map[string]any{
		"signature": sig.String(),
		"network":   r.config.Network.String(),
	})
	r.rec.IncCounter(metrics.EventPaymentSettled,
		map[string]string{"network": r.config.Network.String()})

	now := time.Now().UTC()
	return &types.ExecutionResult{
		Signature:      sig.String(),
		ExplorerURL:    r.config.Network.ExplorerTxURL(sig.String()),
		PaymentDetails: paymentDetails(spec),
		SettledAt:      &now,
	}, nil
}

func (r *Router) settleViaFacilitator(ctx context.Context, spec *types.PaymentSpecification) (*types.ExecutionResult, error) {
	if r.config.FacilitatorURL == "" {
		return nil, types.NewError(types.ErrNoFacilitator,
			"no facilitator endpoint configured")
	}

	requirements, err := utils.RequirementsFromSpecification(spec)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(facilitatorRequest{
		Network:             r.config.Network.String(),
		PaymentRequirements: requirements,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode facilitator request: %w", err)
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.config.FacilitatorURL+submitPaymentPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build facilitator request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, types.NewError(types.ErrFacilitator, "facilitator request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewError(types.ErrFacilitator, "failed to read facilitator response: %v", err)
	}

	r.rec.ObserveLatency(metrics.OperationSettleRemote, time.Since(start),
		map[string]string{"network": r.config.Network.String()})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		r.rec.IncCounter(metrics.EventSettlementFailed,
			map[string]string{"network": r.config.Network.String()})
		return nil, &types.X402Error{
			Code:    types.ErrFacilitator,
			Message: fmt.Sprintf("facilitator returned status %d: %s", resp.StatusCode, string(respBody)),
			Data:    &types.FacilitatorError{Status: resp.StatusCode, Body: string(respBody)},
		}
	}

	var parsed facilitatorResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, types.NewError(types.ErrFacilitator,
			"facilitator returned malformed JSON: %v", err)
	}

	signature := parsed.Signature
	if signature == "" {
		signature = parsed.TxHash
	}

	var raw interface{}
	_ = json.Unmarshal(respBody, &raw)

	r.log.Info("payment settled via facilitator", map[string]any{
		"signature": signature,
		"network":   r.config.Network.String(),
	})
	r.rec.IncCounter(metrics.EventPaymentSettled,
		map[string]string{"network": r.config.Network.String()})

	result := &types.ExecutionResult{
		Signature:      signature,
		Raw:            raw,
		PaymentDetails: paymentDetails(spec),
	}
	if signature != "" {
		result.ExplorerURL = r.config.Network.ExplorerTxURL(signature)
	}
	return result, nil
}

func paymentDetails(spec *types.PaymentSpecification) *types.PaymentDetails {
	return &types.PaymentDetails{
		Amount:      spec.Amount,
		TokenKind:   spec.TokenKind,
		Recipient:   spec.Recipient,
		MintAddress: spec.MintAddress,
	}
}
