package escrow

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58/base58"

	"github.com/escrowpay/escrow-server/pkg/solana/binary"
)

// StateSize is the serialized size of an escrow state account.
const StateSize = (1 + // is_initialized
	32 + // initializer
	32 + // temp_token_account
	32 + // initializer_receive_account
	8) // expected_amount

// State is the persisted record of one open escrow.
//
// The locked amount is deliberately not stored here: the temp token
// account's live balance is the authoritative source of truth for it.
type State struct {
	// Whether this account holds a live escrow.
	IsInitialized bool
	// The maker who opened the escrow. Only this party may cancel it.
	Initializer ed25519.PublicKey
	// The token account custodying the maker's locked tokens. Its holder
	// authority is the escrow program's derived authority for the
	// lifetime of the escrow.
	TempTokenAccount ed25519.PublicKey
	// The maker's account for receiving the counter tokens on exchange.
	InitializerReceiveAccount ed25519.PublicKey
	// The quantity of counter tokens the maker demands.
	ExpectedAmount uint64
}

func (s *State) Marshal() []byte {
	b := make([]byte, StateSize)

	var offset int
	binary.PutBool(b, s.IsInitialized, &offset)
	binary.PutKey32(b[offset:], s.Initializer, &offset)
	binary.PutKey32(b[offset:], s.TempTokenAccount, &offset)
	binary.PutKey32(b[offset:], s.InitializerReceiveAccount, &offset)
	binary.PutUint64(b[offset:], s.ExpectedAmount, &offset)

	return b
}

func (s *State) Unmarshal(b []byte) bool {
	if len(b) != StateSize {
		return false
	}

	var offset int
	if !binary.GetBool(b, &s.IsInitialized, &offset) {
		return false
	}
	binary.GetKey32(b[offset:], &s.Initializer, &offset)
	binary.GetKey32(b[offset:], &s.TempTokenAccount, &offset)
	binary.GetKey32(b[offset:], &s.InitializerReceiveAccount, &offset)
	binary.GetUint64(b[offset:], &s.ExpectedAmount, &offset)

	return true
}

func (s *State) String() string {
	return fmt.Sprintf(
		"Escrow{initialized=%t, initializer=%s, tempTokenAccount=%s, initializerReceiveAccount=%s, expectedAmount=%d}",
		s.IsInitialized,
		base58.Encode(s.Initializer),
		base58.Encode(s.TempTokenAccount),
		base58.Encode(s.InitializerReceiveAccount),
		s.ExpectedAmount,
	)
}
