package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/Shradhesh71/x402-sdk/types"
)

type fakeLedger struct {
	blockhash   solana.Hash
	simulated   int
	submitted   int
	confirmed   int
	simulateErr error
	submitErr   error
	confirmErr  error
	signature   solana.Signature
}

func (f *fakeLedger) LatestBlockhash(context.Context) (solana.Hash, error) {
	return f.blockhash, nil
}

func (f *fakeLedger) Simulate(context.Context, *solana.Transaction) error {
	f.simulated++
	return f.simulateErr
}

func (f *fakeLedger) SubmitRaw(context.Context, []byte) (solana.Signature, error) {
	f.submitted++
	if f.submitErr != nil {
		return solana.Signature{}, f.submitErr
	}
	return f.signature, nil
}

func (f *fakeLedger) Confirm(context.Context, solana.Signature) error {
	f.confirmed++
	return f.confirmErr
}

func (f *fakeLedger) AccountExists(context.Context, solana.PublicKey) (bool, error) {
	return true, nil
}

func (f *fakeLedger) MintDecimals(context.Context, solana.PublicKey) (uint8, error) {
	return 6, nil
}

func (f *fakeLedger) Close() {}

func newFakeLedger() *fakeLedger {
	var h solana.Hash
	var sig solana.Signature
	for i := range h {
		h[i] = byte(i + 1)
	}
	for i := range sig {
		sig[i] = byte(i + 1)
	}
	return &fakeLedger{blockhash: h, signature: sig}
}

// failingTransport fails the test on any outbound request; wired into tests
// asserting that a code path never reaches the network.
type failingTransport struct{ t *testing.T }

func (ft failingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ft.t.Fatalf("unexpected network call to %s", req.URL)
	return nil, nil
}

func noNetworkClient(t *testing.T) *http.Client {
	return &http.Client{Transport: failingTransport{t: t}}
}

func nativeSpec(t *testing.T) *types.PaymentSpecification {
	t.Helper()
	spec, err := types.NativeSpec("0.001", solana.NewWallet().PublicKey().String())
	if err != nil {
		t.Fatalf("NativeSpec: %v", err)
	}
	return spec
}

func TestSettleRejectsInvalidSpecificationBeforeAnyCall(t *testing.T) {
	router := NewRouter(types.SDKConfig{Network: types.NetworkSolanaDevnet}, newFakeLedger(),
		noNetworkClient(t), nil, nil)

	spec := &types.PaymentSpecification{TokenKind: types.TokenKindNative, Amount: "0", Decimals: -1}
	_, err := router.Settle(context.Background(), spec, types.ModeFacilitator, nil)
	if types.ErrorCode(err) != types.ErrIncompleteSpecification {
		t.Fatalf("code = %q, want %q", types.ErrorCode(err), types.ErrIncompleteSpecification)
	}
}

func TestSettleFacilitatorWithoutEndpoint(t *testing.T) {
	router := NewRouter(types.SDKConfig{Network: types.NetworkSolanaDevnet}, newFakeLedger(),
		noNetworkClient(t), nil, nil)

	_, err := router.Settle(context.Background(), nativeSpec(t), types.ModeFacilitator, nil)
	if types.ErrorCode(err) != types.ErrNoFacilitator {
		t.Fatalf("code = %q, want %q", types.ErrorCode(err), types.ErrNoFacilitator)
	}
}

func TestSettleOnChain(t *testing.T) {
	ledger := newFakeLedger()
	router := NewRouter(types.SDKConfig{Network: types.NetworkSolanaDevnet, Simulate: true},
		ledger, noNetworkClient(t), nil, nil)

	funder := solana.NewWallet().PrivateKey
	spec := nativeSpec(t)

	result, err := router.Settle(context.Background(), spec, types.ModeOnChain, &funder)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}

	if ledger.simulated != 1 || ledger.submitted != 1 || ledger.confirmed != 1 {
		t.Errorf("ledger calls = %d/%d/%d simulate/submit/confirm, want 1/1/1",
			ledger.simulated, ledger.submitted, ledger.confirmed)
	}
	if result.Signature != ledger.signature.String() {
		t.Errorf("signature = %q, want %q", result.Signature, ledger.signature)
	}
	if result.ExplorerURL == "" {
		t.Error("missing explorer URL")
	}
	if result.SettledAt == nil {
		t.Error("missing settlement time")
	}
	if result.PaymentDetails == nil || result.PaymentDetails.Recipient != spec.Recipient {
		t.Error("payment details do not echo the specification")
	}
}

func TestSettleOnChainSkipsSimulationWhenDisabled(t *testing.T) {
	ledger := newFakeLedger()
	router := NewRouter(types.SDKConfig{Network: types.NetworkSolanaDevnet, Simulate: false},
		ledger, noNetworkClient(t), nil, nil)

	funder := solana.NewWallet().PrivateKey
	if _, err := router.Settle(context.Background(), nativeSpec(t), types.ModeOnChain, &funder); err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if ledger.simulated != 0 {
		t.Errorf("simulate called %d times with simulation disabled", ledger.simulated)
	}
}

func TestSettleOnChainSimulationRejection(t *testing.T) {
	ledger := newFakeLedger()
	ledger.simulateErr = types.NewError(types.ErrSimulationRejected, "custom program error")
	router := NewRouter(types.SDKConfig{Network: types.NetworkSolanaDevnet, Simulate: true},
		ledger, noNetworkClient(t), nil, nil)

	funder := solana.NewWallet().PrivateKey
	_, err := router.Settle(context.Background(), nativeSpec(t), types.ModeOnChain, &funder)
	if types.ErrorCode(err) != types.ErrSimulationRejected {
		t.Fatalf("code = %q, want %q", types.ErrorCode(err), types.ErrSimulationRejected)
	}
	if ledger.submitted != 0 {
		t.Error("transaction submitted despite failed simulation")
	}
}

func TestSettleOnChainWithoutFunder(t *testing.T) {
	router := NewRouter(types.SDKConfig{Network: types.NetworkSolanaDevnet}, newFakeLedger(),
		noNetworkClient(t), nil, nil)

	_, err := router.Settle(context.Background(), nativeSpec(t), types.ModeOnChain, nil)
	if types.ErrorCode(err) != types.ErrIncompleteSpecification {
		t.Fatalf("code = %q, want %q", types.ErrorCode(err), types.ErrIncompleteSpecification)
	}
}

func TestAutoModeResolution(t *testing.T) {
	funder := solana.NewWallet().PrivateKey

	tests := []struct {
		name          string
		preferOnChain bool
		funder        *solana.PrivateKey
		want          types.SettlementMode
	}{
		{"prefer on-chain with funder", true, &funder, types.ModeOnChain},
		{"prefer on-chain without funder", true, nil, types.ModeFacilitator},
		{"no preference with funder", false, &funder, types.ModeFacilitator},
		{"no preference without funder", false, nil, types.ModeFacilitator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter(types.SDKConfig{PreferOnChain: tt.preferOnChain},
				newFakeLedger(), noNetworkClient(t), nil, nil)
			if got := router.resolveMode(types.ModeAuto, tt.funder); got != tt.want {
				t.Errorf("resolved %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAutoModePassesExplicitModesThrough(t *testing.T) {
	router := NewRouter(types.SDKConfig{PreferOnChain: true}, newFakeLedger(),
		noNetworkClient(t), nil, nil)

	if got := router.resolveMode(types.ModeFacilitator, nil); got != types.ModeFacilitator {
		t.Errorf("resolved %q, want facilitator", got)
	}
	if got := router.resolveMode(types.ModeOnChain, nil); got != types.ModeOnChain {
		t.Errorf("resolved %q, want on-chain", got)
	}
}

func TestSettleViaFacilitator(t *testing.T) {
	spec := nativeSpec(t)

	var gotPath string
	var gotBody facilitatorRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"signature": "FacilSig111"})
	}))
	defer server.Close()

	router := NewRouter(types.SDKConfig{
		Network:        types.NetworkSolanaDevnet,
		FacilitatorURL: server.URL,
	}, newFakeLedger(), server.Client(), nil, nil)

	result, err := router.Settle(context.Background(), spec, types.ModeFacilitator, nil)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}

	if gotPath != submitPaymentPath {
		t.Errorf("posted to %q, want %q", gotPath, submitPaymentPath)
	}
	if gotBody.Network != "solana-devnet" {
		t.Errorf("request network = %q", gotBody.Network)
	}
	if gotBody.PaymentRequirements == nil || gotBody.PaymentRequirements.Amount != "1000000" {
		t.Errorf("request requirements = %+v, want amount 1000000", gotBody.PaymentRequirements)
	}
	if result.Signature != "FacilSig111" {
		t.Errorf("signature = %q", result.Signature)
	}
	if result.ExplorerURL == "" {
		t.Error("missing explorer URL")
	}
}

func TestSettleViaFacilitatorLegacyTxHash(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"txHash": "LegacyHash222"})
	}))
	defer server.Close()

	router := NewRouter(types.SDKConfig{
		Network:        types.NetworkSolanaDevnet,
		FacilitatorURL: server.URL,
	}, newFakeLedger(), server.Client(), nil, nil)

	result, err := router.Settle(context.Background(), nativeSpec(t), types.ModeFacilitator, nil)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if result.Signature != "LegacyHash222" {
		t.Errorf("signature = %q, want legacy txHash value", result.Signature)
	}
}

func TestSettleViaFacilitatorErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"insufficient facilitator balance"}`, http.StatusBadGateway)
	}))
	defer server.Close()

	router := NewRouter(types.SDKConfig{
		Network:        types.NetworkSolanaDevnet,
		FacilitatorURL: server.URL,
	}, newFakeLedger(), server.Client(), nil, nil)

	_, err := router.Settle(context.Background(), nativeSpec(t), types.ModeFacilitator, nil)
	if types.ErrorCode(err) != types.ErrFacilitator {
		t.Fatalf("code = %q, want %q", types.ErrorCode(err), types.ErrFacilitator)
	}

	var x402Err *types.X402Error
	if !errors.As(err, &x402Err) {
		t.Fatal("expected *types.X402Error")
	}
	detail, ok := x402Err.Data.(*types.FacilitatorError)
	if !ok {
		t.Fatalf("Data = %T, want *types.FacilitatorError", x402Err.Data)
	}
	if detail.Status != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", detail.Status)
	}
}
