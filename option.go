package x402

import (
	"net/http"

	"github.com/Shradhesh71/x402-sdk/clients"
	"github.com/Shradhesh71/x402-sdk/logger"
	"github.com/Shradhesh71/x402-sdk/metrics"
)

type Option func(*X402)

func WithLogger(l logger.Logger) Option {
	return func(x *X402) {
		x.log = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(x *X402) {
		x.rec = r
	}
}

// WithLedger substitutes the ledger collaborator, e.g. a fake in tests.
func WithLedger(l clients.Ledger) Option {
	return func(x *X402) {
		x.ledger = l
	}
}

// WithHTTPClient substitutes the client used for facilitator calls.
func WithHTTPClient(c *http.Client) Option {
	return func(x *X402) {
		x.httpClient = c
	}
}
