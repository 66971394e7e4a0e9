package escrow

import (
	"bytes"
	"crypto/ed25519"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/escrowpay/escrow-server/pkg/solana"
	"github.com/escrowpay/escrow-server/pkg/solana/token"
)

// Processor implements the escrow program: a maker locks tokens and names
// a price, any taker may settle the trade atomically, and the maker may
// cancel and reclaim the locked tokens.
//
// Every handler validates before it moves anything; the runtime's
// all-or-nothing commit covers the rest.
type Processor struct {
	program ed25519.PublicKey
	log     *logrus.Entry
}

func NewProcessor(program ed25519.PublicKey) *Processor {
	return &Processor{
		program: program,
		log:     logrus.StandardLogger().WithField("type", "escrow/processor"),
	}
}

func (p *Processor) Process(env *solana.Env, accounts []solana.AccountInfo, data []byte) error {
	cmd, amount, err := unpackCommand(data)
	if err != nil {
		return err
	}

	switch cmd {
	case CommandInitialize:
		p.log.Debug("instruction: initialize")
		return p.initialize(env, accounts, amount)
	case CommandExchange:
		p.log.Debug("instruction: exchange")
		return p.exchange(env, accounts, amount)
	case CommandCancel:
		p.log.Debug("instruction: cancel")
		return p.cancel(env, accounts)
	default:
		return ErrInvalidInstruction
	}
}

func (p *Processor) initialize(env *solana.Env, accounts []solana.AccountInfo, amount uint64) error {
	if len(accounts) < 6 {
		return solana.ErrNotEnoughAccountKeys
	}

	initializer := accounts[0]
	tempTokenAccount := accounts[1]
	receiveAccount := accounts[2]
	escrowAccount := accounts[3]

	if !initializer.IsSigner {
		return solana.ErrMissingRequiredSignature
	}

	// The receive account only has to exist at this point, but it must be
	// a real token account or the exchange could never settle.
	if !bytes.Equal(receiveAccount.Owner, token.ProgramKey) {
		return solana.ErrIncorrectProgramID
	}

	rent, err := solana.RentFromAccount(accounts[4])
	if err != nil {
		return err
	}
	if !rent.IsExempt(escrowAccount.Lamports, len(escrowAccount.Data)) {
		return solana.ErrAccountNotRentExempt
	}

	var state State
	if !state.Unmarshal(escrowAccount.Data) {
		return solana.ErrInvalidAccountData
	}
	if state.IsInitialized {
		return solana.ErrAccountAlreadyInitialized
	}

	state.IsInitialized = true
	state.Initializer = initializer.Key
	state.TempTokenAccount = tempTokenAccount.Key
	state.InitializerReceiveAccount = receiveAccount.Key
	state.ExpectedAmount = amount
	copy(escrowAccount.Data, state.Marshal())

	authority, _, err := GetAuthorityAddress(p.program)
	if err != nil {
		return err
	}

	// Hand the temp token account over to the derived authority. From here
	// on, only the program can move the locked tokens.
	return env.Invoke(token.SetAuthority(
		tempTokenAccount.Key,
		initializer.Key,
		authority,
		token.AuthorityTypeAccountHolder,
	))
}

func (p *Processor) exchange(env *solana.Env, accounts []solana.AccountInfo, expectedAmount uint64) error {
	if len(accounts) < 9 {
		return solana.ErrNotEnoughAccountKeys
	}

	taker := accounts[0]
	takerSendAccount := accounts[1]
	takerReceiveAccount := accounts[2]
	tempTokenAccount := accounts[3]
	initializer := accounts[4]
	initializerReceiveAccount := accounts[5]
	escrowAccount := accounts[6]

	if !taker.IsSigner {
		return solana.ErrMissingRequiredSignature
	}

	takerSendState, err := token.UnpackAccount(takerSendAccount)
	if err != nil {
		return err
	}
	takerReceiveState, err := token.UnpackAccount(takerReceiveAccount)
	if err != nil {
		return err
	}
	tempTokenState, err := token.UnpackAccount(tempTokenAccount)
	if err != nil {
		return err
	}
	initializerReceiveState, err := token.UnpackAccount(initializerReceiveAccount)
	if err != nil {
		return err
	}

	state, err := unpackState(escrowAccount)
	if err != nil {
		return err
	}

	// The taker pays in the mint the maker wants, and receives the mint
	// the maker locked.
	if !bytes.Equal(takerSendState.Mint, initializerReceiveState.Mint) {
		return ErrExpectedMintMismatch
	}
	if !bytes.Equal(takerReceiveState.Mint, tempTokenState.Mint) {
		return ErrExpectedMintMismatch
	}

	// The taker declares the amount it believes is locked; binding that to
	// the live balance means a stale quote fails instead of settling at a
	// price the taker never saw.
	if expectedAmount != tempTokenState.Amount {
		return ErrExpectedAmountMismatch
	}

	if takerSendState.Amount <= state.ExpectedAmount {
		return ErrNotEnoughBalance
	}

	// The record is the anchor: every supplied counterparty account must
	// be the one recorded at initialization.
	if !bytes.Equal(state.TempTokenAccount, tempTokenAccount.Key) {
		return ErrInvalidAccountData
	}
	if !bytes.Equal(state.Initializer, initializer.Key) {
		return ErrInvalidAccountData
	}
	if !bytes.Equal(state.InitializerReceiveAccount, initializerReceiveAccount.Key) {
		return ErrInvalidAccountData
	}

	authority, bump, err := GetAuthorityAddress(p.program)
	if err != nil {
		return err
	}
	authoritySeeds := [][]byte{authoritySeed, {bump}}

	p.log.WithFields(logrus.Fields{
		"escrow": escrowAccount.String(),
		"taker":  taker.String(),
	}).Debug("settling escrow")

	if err := env.InvokeSigned(token.Transfer(
		tempTokenAccount.Key,
		takerReceiveAccount.Key,
		authority,
		expectedAmount,
	), authoritySeeds...); err != nil {
		return err
	}

	if err := env.Invoke(token.Transfer(
		takerSendAccount.Key,
		initializerReceiveAccount.Key,
		taker.Key,
		state.ExpectedAmount,
	)); err != nil {
		return err
	}

	if err := env.InvokeSigned(token.CloseAccount(
		tempTokenAccount.Key,
		initializer.Key,
		authority,
	), authoritySeeds...); err != nil {
		return err
	}

	return closeEscrowAccount(escrowAccount, initializer)
}

func (p *Processor) cancel(env *solana.Env, accounts []solana.AccountInfo) error {
	if len(accounts) < 6 {
		return solana.ErrNotEnoughAccountKeys
	}

	initializer := accounts[0]
	receiveAccount := accounts[1]
	tempTokenAccount := accounts[2]
	escrowAccount := accounts[3]

	if !initializer.IsSigner {
		return solana.ErrMissingRequiredSignature
	}

	receiveState, err := token.UnpackAccount(receiveAccount)
	if err != nil {
		return err
	}
	tempTokenState, err := token.UnpackAccount(tempTokenAccount)
	if err != nil {
		return err
	}

	state, err := unpackState(escrowAccount)
	if err != nil {
		return err
	}

	if !bytes.Equal(receiveState.Mint, tempTokenState.Mint) {
		return ErrExpectedMintMismatch
	}

	// Only the recorded initializer may cancel, and only against the
	// recorded temp token account.
	if !bytes.Equal(state.Initializer, initializer.Key) {
		return ErrInvalidAccountData
	}
	if !bytes.Equal(state.TempTokenAccount, tempTokenAccount.Key) {
		return ErrInvalidAccountData
	}

	authority, bump, err := GetAuthorityAddress(p.program)
	if err != nil {
		return err
	}
	authoritySeeds := [][]byte{authoritySeed, {bump}}

	p.log.WithField("escrow", escrowAccount.String()).Debug("cancelling escrow")

	if err := env.InvokeSigned(token.Transfer(
		tempTokenAccount.Key,
		receiveAccount.Key,
		authority,
		tempTokenState.Amount,
	), authoritySeeds...); err != nil {
		return err
	}

	if err := env.InvokeSigned(token.CloseAccount(
		tempTokenAccount.Key,
		initializer.Key,
		authority,
	), authoritySeeds...); err != nil {
		return err
	}

	return closeEscrowAccount(escrowAccount, initializer)
}

// closeEscrowAccount reclaims the escrow account's rent lamports to the
// destination and returns the slot to its uninitialized form. This is the
// final step of every Live to Empty transition.
func closeEscrowAccount(escrowAccount, dest solana.AccountInfo) error {
	if dest.Lamports > math.MaxUint64-escrowAccount.Lamports {
		return ErrAmountOverflow
	}
	dest.Lamports += escrowAccount.Lamports
	escrowAccount.Lamports = 0

	for i := range escrowAccount.Data {
		escrowAccount.Data[i] = 0
	}
	escrowAccount.Data = escrowAccount.Data[:0]

	return nil
}

func unpackState(info solana.AccountInfo) (*State, error) {
	var state State
	if !state.Unmarshal(info.Data) {
		return nil, solana.ErrInvalidAccountData
	}
	if !state.IsInitialized {
		return nil, solana.ErrUninitializedAccount
	}
	return &state, nil
}
