package utils

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/Shradhesh71/x402-sdk/types"
)

var validate = validator.New()

// ParsePaymentRequirements parses and validates wire-form requirements.
func ParsePaymentRequirements(data []byte) (*types.PaymentRequirements, error) {
	var req types.PaymentRequirements

	if err := json.Unmarshal(data, &req); err != nil {
		return nil, types.NewError(types.ErrIncompleteSpecification,
			"failed to parse payment requirements: %v", err)
	}

	if err := validate.Struct(&req); err != nil {
		return nil, types.NewError(types.ErrIncompleteSpecification,
			"payment requirements validation failed: %v", err)
	}

	return &req, nil
}

// RequirementsFromSpecification derives the wire form of a specification.
// The amount is converted to base units; nothing else essential is lost.
func RequirementsFromSpecification(spec *types.PaymentSpecification) (*types.PaymentRequirements, error) {
	if report := types.ValidateSpecification(spec); !report.IsValid {
		return nil, &types.X402Error{
			Code:    types.ErrIncompleteSpecification,
			Message: fmt.Sprintf("invalid payment specification: %v", report.Errors),
			Data:    report.Errors,
		}
	}

	decimals := spec.EffectiveDecimals()
	baseUnits, err := ToBaseUnits(spec.Amount, decimals)
	if err != nil {
		return nil, err
	}

	return &types.PaymentRequirements{
		Amount:   strconv.FormatUint(baseUnits, 10),
		Currency: string(spec.TokenKind),
		Scheme:   types.SchemeExact,
		PaymentPayload: types.PaymentPayloadBody{
			Recipient:   spec.Recipient,
			TokenKind:   spec.TokenKind,
			MintAddress: spec.MintAddress,
			Decimals:    decimals,
			Network:     spec.Network.String(),
		},
		TokenKind:             spec.TokenKind,
		MintAddress:           spec.MintAddress,
		CreateAccountIfNeeded: spec.CreateAccountIfNeeded,
	}, nil
}

// SpecificationFromRequirements reconstructs a specification from the wire
// form. The amount is rescaled from base units back to decimal form.
func SpecificationFromRequirements(req *types.PaymentRequirements) (*types.PaymentSpecification, error) {
	if req == nil {
		return nil, types.NewError(types.ErrIncompleteSpecification, "payment requirements are nil")
	}

	baseUnits, err := BaseUnitsString(req.Amount)
	if err != nil {
		return nil, err
	}

	decimals := req.PaymentPayload.Decimals
	if decimals <= 0 && req.TokenKind != "" {
		decimals = req.TokenKind.DefaultDecimals()
	}

	return &types.PaymentSpecification{
		TokenKind:             req.TokenKind,
		Amount:                FromBaseUnits(baseUnits, decimals),
		Recipient:             req.PaymentPayload.Recipient,
		MintAddress:           req.MintAddress,
		Decimals:              decimals,
		CreateAccountIfNeeded: req.CreateAccountIfNeeded,
		Network:               types.Network(req.PaymentPayload.Network),
	}, nil
}
