package types

import (
	"encoding/base64"
	"encoding/json"
)

// PaymentHeaderName is the HTTP request header carrying payment proof.
const PaymentHeaderName = "X-Payment"

// ProofPayload holds the transport-ready transaction inside a proof header.
type ProofPayload struct {
	SerializedTransaction string `json:"serializedTransaction"`
}

// ProofHeader is the base64-encoded JSON envelope a client sends as the
// X-Payment header value.
type ProofHeader struct {
	Version int          `json:"version"`
	Scheme  string       `json:"scheme"`
	Network string       `json:"network"`
	Payload ProofPayload `json:"payload"`
}

// NewProofHeader wraps a base64-serialized transaction in the protocol
// envelope.
func NewProofHeader(network Network, serializedTx string) *ProofHeader {
	return &ProofHeader{
		Version: X402Version,
		Scheme:  SchemeExact,
		Network: network.String(),
		Payload: ProofPayload{SerializedTransaction: serializedTx},
	}
}

// Encode renders the envelope as a header value. Encode then Decode is the
// identity on the envelope's logical content.
func (h *ProofHeader) Encode() (string, error) {
	raw, err := json.Marshal(h)
	if err != nil {
		return "", NewError(ErrMalformedProofHeader, "failed to encode proof header: %v", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeProofHeader parses a header value back into the envelope. The
// serializedTransaction field must be present.
func DecodeProofHeader(value string) (*ProofHeader, error) {
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, NewError(ErrMalformedProofHeader, "proof header is not valid base64: %v", err)
	}

	var header ProofHeader
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, NewError(ErrMalformedProofHeader, "proof header is not valid JSON: %v", err)
	}

	if header.Payload.SerializedTransaction == "" {
		return nil, NewError(ErrMalformedProofHeader, "proof header is missing serializedTransaction")
	}

	return &header, nil
}
