package escrow

import (
	"crypto/ed25519"

	"github.com/escrowpay/escrow-server/pkg/solana"
)

// authoritySeed is the fixed seed every escrow's holding account authority
// is derived under. A single derived address controls the temp token
// accounts of all escrows for a given deployment of the program.
var authoritySeed = []byte("escrow")

// GetAuthorityAddress derives the program's holding-account authority and
// its bump seed. The address is guaranteed off-curve, so no private key
// can ever sign for it; the program proves control by re-supplying the
// seed and bump on invocation.
func GetAuthorityAddress(programID ed25519.PublicKey) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(programID, authoritySeed)
}
