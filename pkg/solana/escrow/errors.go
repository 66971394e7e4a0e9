package escrow

import (
	"github.com/escrowpay/escrow-server/pkg/solana"
)

const (
	// The instruction payload could not be decoded
	ErrInvalidInstruction solana.CustomError = iota

	// A supplied token account is for the wrong mint
	ErrExpectedMintMismatch

	// The declared amount doesn't match the live token balance
	ErrExpectedAmountMismatch

	// The taker's balance does not exceed the demanded amount
	ErrNotEnoughBalance

	// Supplied accounts don't match the identities the escrow recorded
	ErrInvalidAccountData

	// Crediting reclaimed lamports would overflow
	ErrAmountOverflow
)
