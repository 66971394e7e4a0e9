package token

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/escrowpay/escrow-server/pkg/solana"
)

// Processor executes the subset of the token program consumed by escrow
// flows: account initialization, transfers, authority reassignment, and
// account closure. Balance moves happen here and only here; callers are
// authorized either by a direct signature or by a program-derived address
// signing through the runtime.
type Processor struct {
	log *logrus.Entry
}

func NewProcessor() *Processor {
	return &Processor{
		log: logrus.StandardLogger().WithField("type", "token/processor"),
	}
}

func (p *Processor) Process(env *solana.Env, accounts []solana.AccountInfo, data []byte) error {
	if len(data) == 0 {
		return ErrorInvalidInstruction
	}

	switch Command(data[0]) {
	case CommandInitializeAccount:
		return p.initializeAccount(accounts)
	case CommandTransfer:
		return p.transfer(accounts, data)
	case CommandSetAuthority:
		return p.setAuthority(accounts, data)
	case CommandCloseAccount:
		return p.closeAccount(accounts)
	default:
		return ErrorInvalidInstruction
	}
}

func (p *Processor) initializeAccount(accounts []solana.AccountInfo) error {
	if len(accounts) < 4 {
		return solana.ErrNotEnoughAccountKeys
	}

	account := accounts[0]
	mint := accounts[1]
	owner := accounts[2]

	if !bytes.Equal(account.Owner, ProgramKey) {
		return solana.ErrIncorrectProgramID
	}
	if len(account.Data) != AccountSize {
		return solana.ErrInvalidAccountData
	}

	rent, err := solana.RentFromAccount(accounts[3])
	if err != nil {
		return err
	}
	if !rent.IsExempt(account.Lamports, len(account.Data)) {
		return ErrorNotRentExempt
	}

	var state Account
	if !state.Unmarshal(account.Data) {
		return solana.ErrInvalidAccountData
	}
	if state.IsInitialized() {
		return ErrorAlreadyInUse
	}

	state.Mint = mint.Key
	state.Owner = owner.Key
	state.State = AccountStateInitialized
	copy(account.Data, state.Marshal())

	p.log.WithField("account", account.String()).Debug("initialized token account")
	return nil
}

func (p *Processor) transfer(accounts []solana.AccountInfo, data []byte) error {
	if len(data) != 9 {
		return ErrorInvalidInstruction
	}
	amount := binary.LittleEndian.Uint64(data[1:])

	if len(accounts) < 3 {
		return solana.ErrNotEnoughAccountKeys
	}

	source := accounts[0]
	dest := accounts[1]
	authority := accounts[2]

	sourceState, err := UnpackAccount(source)
	if err != nil {
		return err
	}
	destState, err := UnpackAccount(dest)
	if err != nil {
		return err
	}

	if sourceState.State == AccountStateFrozen || destState.State == AccountStateFrozen {
		return ErrorAccountFrozen
	}
	if err := validateOwner(sourceState.Owner, authority); err != nil {
		return err
	}
	if !bytes.Equal(sourceState.Mint, destState.Mint) {
		return ErrorMintMismatch
	}
	if amount > sourceState.Amount {
		return ErrorInsufficientFunds
	}

	// Source and dest may alias the same account; both states were
	// unpacked from the same data, so writing them back in sequence would
	// credit without debiting. A self-transfer moves nothing.
	if bytes.Equal(source.Key, dest.Key) {
		return nil
	}

	if destState.Amount > math.MaxUint64-amount {
		return ErrorOverflow
	}

	sourceState.Amount -= amount
	destState.Amount += amount

	copy(source.Data, sourceState.Marshal())
	copy(dest.Data, destState.Marshal())

	p.log.WithFields(logrus.Fields{
		"source": source.String(),
		"dest":   dest.String(),
		"amount": amount,
	}).Debug("transferred tokens")
	return nil
}

func (p *Processor) setAuthority(accounts []solana.AccountInfo, data []byte) error {
	if len(data) < 3 {
		return ErrorInvalidInstruction
	}
	if AuthorityType(data[1]) != AuthorityTypeAccountHolder {
		return ErrorAuthorityTypeNotSupported
	}
	// The holder authority of a token account cannot be cleared.
	if data[2] != 1 || len(data) != 3+ed25519.PublicKeySize {
		return ErrorInvalidInstruction
	}
	newAuthority := ed25519.PublicKey(data[3 : 3+ed25519.PublicKeySize])

	if len(accounts) < 2 {
		return solana.ErrNotEnoughAccountKeys
	}

	account := accounts[0]
	currentAuthority := accounts[1]

	state, err := UnpackAccount(account)
	if err != nil {
		return err
	}
	if state.State == AccountStateFrozen {
		return ErrorAccountFrozen
	}
	if err := validateOwner(state.Owner, currentAuthority); err != nil {
		return err
	}

	state.Owner = newAuthority
	copy(account.Data, state.Marshal())

	p.log.WithFields(logrus.Fields{
		"account":   account.String(),
		"authority": currentAuthority.String(),
	}).Debug("reassigned holder authority")
	return nil
}

func (p *Processor) closeAccount(accounts []solana.AccountInfo) error {
	if len(accounts) < 3 {
		return solana.ErrNotEnoughAccountKeys
	}

	account := accounts[0]
	dest := accounts[1]
	owner := accounts[2]

	if bytes.Equal(account.Key, dest.Key) {
		return solana.ErrInvalidAccountData
	}

	state, err := UnpackAccount(account)
	if err != nil {
		return err
	}
	if state.IsNative == nil && state.Amount != 0 {
		return ErrorNonNativeHasBalance
	}

	closeAuthority := state.Owner
	if len(state.CloseAuthority) > 0 {
		closeAuthority = state.CloseAuthority
	}
	if err := validateOwner(closeAuthority, owner); err != nil {
		return err
	}

	if dest.Lamports > math.MaxUint64-account.Lamports {
		return ErrorOverflow
	}
	dest.Lamports += account.Lamports
	account.Lamports = 0
	account.Data = nil

	p.log.WithField("account", account.String()).Debug("closed token account")
	return nil
}

func validateOwner(expected ed25519.PublicKey, authority solana.AccountInfo) error {
	if !bytes.Equal(expected, authority.Key) {
		return ErrorOwnerMismatch
	}
	if !authority.IsSigner {
		return solana.ErrMissingRequiredSignature
	}
	return nil
}
