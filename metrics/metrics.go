// Package metrics defines the instrumentation contract for payment
// verification and settlement, with a Prometheus-backed implementation.
package metrics

import "time"

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}

// Well-known event and operation names recorded by the SDK.
const (
	EventChallengeIssued   = "challenge_issued"
	EventPaymentVerified   = "payment_verified"
	EventPaymentRejected   = "payment_rejected"
	EventPaymentSettled    = "payment_settled"
	EventSettlementFailed  = "settlement_failed"
	OperationVerify        = "verify"
	OperationSettleOnChain = "settle_on_chain"
	OperationSettleRemote  = "settle_facilitator"
)
