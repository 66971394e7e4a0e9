package solana

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Program processes instructions addressed to a single program ID.
//
// A Program is handed the resolved accounts in the order the instruction
// listed them, with the signer/writable privileges the caller granted. Any
// returned error aborts the enclosing invocation with no observable effects.
type Program interface {
	Process(env *Env, accounts []AccountInfo, data []byte) error
}

// Runtime is a single-threaded, in-memory execution environment. It owns
// the account set, dispatches instructions to registered programs, and
// guarantees all-or-nothing commit: if processing fails at any depth, every
// account is restored to its state at the start of the invocation.
type Runtime struct {
	log      *logrus.Entry
	accounts map[string]*Account
	programs map[string]Program
}

func NewRuntime() *Runtime {
	return &Runtime{
		log:      logrus.StandardLogger().WithField("type", "solana/runtime"),
		accounts: make(map[string]*Account),
		programs: make(map[string]Program),
	}
}

// Register installs a program at the provided program ID.
func (r *Runtime) Register(programID ed25519.PublicKey, p Program) {
	r.programs[string(programID)] = p
}

// SetAccount installs (or replaces) an account.
func (r *Runtime) SetAccount(a *Account) {
	r.accounts[string(a.Key)] = a
}

// Account returns the account at the provided key, if it exists.
func (r *Runtime) Account(key ed25519.PublicKey) (*Account, bool) {
	a, ok := r.accounts[string(key)]
	return a, ok
}

// InstallRentSysVar creates the rent sysvar account holding the provided
// policy.
func (r *Runtime) InstallRentSysVar(rent Rent) {
	r.SetAccount(&Account{
		Key:  RentSysVar,
		Data: rent.Marshal(),
	})
}

// Invoke executes a single top-level instruction atomically.
//
// Accounts flagged as signers in the instruction are treated as having had
// their signatures verified upstream, mirroring how a transaction's signer
// set reaches an on-chain program. On error every account is rolled back
// and the error is returned as-is.
func (r *Runtime) Invoke(ix Instruction) error {
	snapshots := make(map[string]accountSnapshot, len(r.accounts))
	for k, a := range r.accounts {
		snapshots[k] = a.snapshot()
	}

	signers := make(map[string]struct{})
	for _, meta := range ix.Accounts {
		if meta.IsSigner {
			signers[string(meta.PublicKey)] = struct{}{}
		}
	}

	env := &Env{
		rt:      r,
		signers: signers,
	}

	if err := env.process(ix); err != nil {
		for k, a := range r.accounts {
			a.restore(snapshots[k])
		}
		return err
	}

	return nil
}

// Env is the execution context a program runs under. It allows a program
// to issue further instructions (cross-program invocations), extending its
// caller's signatures and proving control of its own derived addresses.
type Env struct {
	rt      *Runtime
	program ed25519.PublicKey
	signers map[string]struct{}
}

// Invoke issues a cross-program invocation. Signer privileges on the inner
// instruction must already be held by the current context.
func (e *Env) Invoke(ix Instruction) error {
	return e.invoke(ix, nil)
}

// InvokeSigned issues a cross-program invocation, additionally signing for
// the address derived from the calling program and the provided seeds.
func (e *Env) InvokeSigned(ix Instruction, seeds ...[]byte) error {
	derived, err := CreateProgramAddress(e.program, seeds...)
	if err != nil {
		return errors.Wrap(err, "failed to derive signer address")
	}
	return e.invoke(ix, derived)
}

func (e *Env) invoke(ix Instruction, derivedSigner ed25519.PublicKey) error {
	inner := &Env{
		rt:      e.rt,
		signers: make(map[string]struct{}, len(e.signers)+1),
	}
	for k := range e.signers {
		inner.signers[k] = struct{}{}
	}
	if derivedSigner != nil {
		inner.signers[string(derivedSigner)] = struct{}{}
	}

	for _, meta := range ix.Accounts {
		if !meta.IsSigner {
			continue
		}
		if _, ok := inner.signers[string(meta.PublicKey)]; !ok {
			return errors.Wrapf(ErrPrivilegeEscalation, "account %s", base58.Encode(meta.PublicKey))
		}
	}

	return inner.process(ix)
}

func (e *Env) process(ix Instruction) error {
	program, ok := e.rt.programs[string(ix.Program)]
	if !ok {
		return errors.Wrapf(ErrIncorrectProgramID, "program %s", base58.Encode(ix.Program))
	}

	infos := make([]AccountInfo, len(ix.Accounts))
	for i, meta := range ix.Accounts {
		account, ok := e.rt.accounts[string(meta.PublicKey)]
		if !ok {
			// Referencing an address that holds nothing yet is legal; it
			// resolves to an empty account.
			account = &Account{Key: meta.PublicKey}
			e.rt.accounts[string(meta.PublicKey)] = account
		}

		_, signed := e.signers[string(meta.PublicKey)]
		infos[i] = AccountInfo{
			Account:    account,
			IsSigner:   meta.IsSigner && signed,
			IsWritable: meta.IsWritable,
		}
	}

	e.program = ix.Program
	e.rt.log.WithField("program", base58.Encode(ix.Program)).Trace("processing instruction")

	return program.Process(e, infos, ix.Data)
}

// IsSignedBy reports whether the provided key holds signer privileges in
// the current context.
func (e *Env) IsSignedBy(key ed25519.PublicKey) bool {
	_, ok := e.signers[string(key)]
	return ok
}
