// Package middleware implements the HTTP 402 challenge-response exchange: it
// challenges unauthenticated requests with machine-readable payment terms
// and, once a submitted transaction verifies and settles, answers with the
// settlement receipt.
package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Shradhesh71/x402-sdk/clients"
	"github.com/Shradhesh71/x402-sdk/logger"
	"github.com/Shradhesh71/x402-sdk/metrics"
	"github.com/Shradhesh71/x402-sdk/settlement"
	"github.com/Shradhesh71/x402-sdk/types"
	"github.com/Shradhesh71/x402-sdk/utils"
	"github.com/Shradhesh71/x402-sdk/verification"
)

// Config fixes the payment terms a protected resource demands. One config,
// one price; pricing computation beyond that is out of scope.
type Config struct {
	// Price in human decimal form, e.g. "0.001".
	Price string

	TokenKind types.TokenKind

	// Recipient is the base58 address payments must reach.
	Recipient string

	// MintAddress is required when TokenKind is fungible.
	MintAddress string

	Network types.Network

	// Simulate dry-runs client transactions before submission. Defaults on.
	Simulate *bool
}

// Middleware is a stateless per-request payment gate implementing
// http.Handler. Concurrent requests do not interact and require no locking.
type Middleware struct {
	config   Config
	spec     *types.PaymentSpecification
	ledger   clients.Ledger
	verifier *verification.Service
	router   *settlement.Router
	log      logger.Logger
	rec      metrics.Recorder
}

var _ http.Handler = (*Middleware)(nil)

// challengePayment is the machine-readable terms block of a 402 challenge.
// Amount is in base units.
type challengePayment struct {
	Recipient   string          `json:"recipient"`
	Amount      uint64          `json:"amount"`
	Cluster     string          `json:"cluster"`
	TokenKind   types.TokenKind `json:"tokenKind"`
	MintAddress string          `json:"mintAddress,omitempty"`
}

type challengeBody struct {
	Error   string           `json:"error"`
	Payment challengePayment `json:"payment"`
}

type settledBody struct {
	Message        string         `json:"message"`
	PaymentDetails settledDetails `json:"paymentDetails"`
}

type settledDetails struct {
	Signature   string `json:"signature"`
	ExplorerURL string `json:"explorerUrl,omitempty"`
}

// New validates the configuration and builds the payment gate.
func New(cfg Config, ledger clients.Ledger, log logger.Logger, rec metrics.Recorder) (*Middleware, error) {
	if cfg.Network == "" {
		cfg.Network = types.NetworkSolanaDevnet
	}
	if cfg.TokenKind == "" {
		cfg.TokenKind = types.TokenKindNative
	}
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}

	spec, err := types.NewSpecificationBuilder().
		TokenKind(cfg.TokenKind).
		Amount(cfg.Price).
		Recipient(cfg.Recipient).
		MintAddress(cfg.MintAddress).
		Network(cfg.Network).
		Build()
	if err != nil {
		return nil, err
	}
	if report := types.ValidateSpecification(spec); !report.IsValid {
		return nil, &types.X402Error{
			Code:    types.ErrIncompleteSpecification,
			Message: "invalid middleware payment configuration",
			Data:    report.Errors,
		}
	}

	simulate := true
	if cfg.Simulate != nil {
		simulate = *cfg.Simulate
	}
	router := settlement.NewRouter(types.SDKConfig{
		Network:  cfg.Network,
		Simulate: simulate,
	}, ledger, nil, log, rec)

	return &Middleware{
		config:   cfg,
		spec:     spec,
		ledger:   ledger,
		verifier: verification.NewService(log),
		router:   router,
		log:      log,
		rec:      rec,
	}, nil
}

// ServeHTTP drives the stateless state machine: no proof header issues a 402
// challenge; a proof header is verified and settled, answering 402 on any
// failure and 200 with the settlement receipt on success. Unanticipated
// panics propagate to the enclosing server's error handling.
func (m *Middleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	headerValue := r.Header.Get(types.PaymentHeaderName)
	if headerValue == "" {
		m.issueChallenge(w)
		return
	}
	m.handleProof(w, r, headerValue)
}

func (m *Middleware) issueChallenge(w http.ResponseWriter) {
	baseUnits, err := utils.ToBaseUnits(m.spec.Amount, m.spec.EffectiveDecimals())
	if err != nil {
		// The price was validated at construction.
		panic(err)
	}

	m.rec.IncCounter(metrics.EventChallengeIssued,
		map[string]string{"network": m.config.Network.String()})

	writeJSON(w, http.StatusPaymentRequired, challengeBody{
		Error: "Payment Required",
		Payment: challengePayment{
			Recipient:   m.spec.Recipient,
			Amount:      baseUnits,
			Cluster:     m.config.Network.Cluster(),
			TokenKind:   m.spec.TokenKind,
			MintAddress: m.spec.MintAddress,
		},
	})
}

func (m *Middleware) handleProof(w http.ResponseWriter, r *http.Request, headerValue string) {
	start := time.Now()

	header, err := types.DecodeProofHeader(headerValue)
	if err != nil {
		m.reject(w, err.Error())
		return
	}

	tx, err := verification.DecodeTransaction(header.Payload.SerializedTransaction)
	if err != nil {
		m.reject(w, err.Error())
		return
	}

	result := m.verifier.Verify(tx, m.spec)
	m.rec.ObserveLatency(metrics.OperationVerify, time.Since(start),
		map[string]string{"network": m.config.Network.String()})
	if !result.IsValid {
		m.log.Warn("payment proof rejected", map[string]any{"reason": result.Error})
		m.reject(w, result.Error)
		return
	}

	execution, err := m.router.ExecuteOnLedger(r.Context(), tx, m.spec)
	if err != nil {
		m.log.Warn("payment settlement failed", map[string]any{"error": err.Error()})
		m.reject(w, err.Error())
		return
	}

	m.rec.IncCounter(metrics.EventPaymentVerified,
		map[string]string{"network": m.config.Network.String()})

	writeJSON(w, http.StatusOK, settledBody{
		Message: "Payment verified",
		PaymentDetails: settledDetails{
			Signature:   execution.Signature,
			ExplorerURL: execution.ExplorerURL,
		},
	})
}

// Specification exposes the expected payment terms, e.g. for clients that
// assemble payments out of band.
func (m *Middleware) Specification() *types.PaymentSpecification {
	return m.spec
}

func (m *Middleware) reject(w http.ResponseWriter, reason string) {
	m.rec.IncCounter(metrics.EventPaymentRejected,
		map[string]string{"network": m.config.Network.String()})
	writeJSON(w, http.StatusPaymentRequired, map[string]string{"error": reason})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
