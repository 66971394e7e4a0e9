package solana

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58/base58"
)

// Account is the persistent state of a single address: its lamport
// balance, the program that owns (and may mutate) it, and its raw data.
type Account struct {
	Key      ed25519.PublicKey
	Lamports uint64
	Owner    ed25519.PublicKey
	Data     []byte
}

// AccountInfo is an Account as seen by a program for the duration of one
// invocation, together with the signer/writable privileges the caller
// granted it.
type AccountInfo struct {
	*Account

	IsSigner   bool
	IsWritable bool
}

func (a *Account) String() string {
	if a == nil {
		return "<nil>"
	}
	return base58.Encode(a.Key)
}

// snapshot captures the mutable portion of an account so a failed
// invocation can be rolled back.
type accountSnapshot struct {
	lamports uint64
	owner    ed25519.PublicKey
	data     []byte
}

func (a *Account) snapshot() accountSnapshot {
	s := accountSnapshot{
		lamports: a.Lamports,
		owner:    append(ed25519.PublicKey(nil), a.Owner...),
	}
	if a.Data != nil {
		s.data = append([]byte(nil), a.Data...)
	}
	return s
}

func (a *Account) restore(s accountSnapshot) {
	a.Lamports = s.lamports
	a.Owner = s.owner
	a.Data = s.data
}
