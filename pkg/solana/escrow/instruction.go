package escrow

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/escrowpay/escrow-server/pkg/solana"
	"github.com/escrowpay/escrow-server/pkg/solana/token"
)

type Command byte

const (
	CommandInitialize Command = iota
	CommandExchange
	CommandCancel
)

const payloadSize = 1 + 8

// unpackCommand decodes an instruction payload: a tag byte followed by a
// little-endian u64 amount. The amount is present for every command, but
// Cancel ignores it.
func unpackCommand(data []byte) (Command, uint64, error) {
	if len(data) < payloadSize {
		return 0, 0, ErrInvalidInstruction
	}

	cmd := Command(data[0])
	switch cmd {
	case CommandInitialize, CommandExchange, CommandCancel:
	default:
		return 0, 0, ErrInvalidInstruction
	}

	return cmd, binary.LittleEndian.Uint64(data[1:payloadSize]), nil
}

func packCommand(cmd Command, amount uint64) []byte {
	data := make([]byte, payloadSize)
	data[0] = byte(cmd)
	binary.LittleEndian.PutUint64(data[1:], amount)
	return data
}

// Initialize opens an escrow: the initializer locks the tokens held in
// tempTokenAccount and demands amount tokens of the receive account's mint
// in return.
func Initialize(program, initializer, tempTokenAccount, receiveAccount, escrowAccount ed25519.PublicKey, amount uint64) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[signer]` The account of the person initializing the escrow.
	//   1. `[writable]` Temporary token account holding the offered tokens,
	//      created prior to this instruction and owned by the initializer.
	//   2. `[]` The initializer's token account for the token they will
	//      receive should the trade go through.
	//   3. `[writable]` The escrow account holding all info about the trade.
	//   4. `[]` Rent sysvar.
	//   5. `[]` The token program.
	return solana.NewInstruction(
		program,
		packCommand(CommandInitialize, amount),
		solana.NewAccountMeta(initializer, true),
		solana.NewAccountMeta(tempTokenAccount, false),
		solana.NewReadonlyAccountMeta(receiveAccount, false),
		solana.NewAccountMeta(escrowAccount, false),
		solana.NewReadonlyAccountMeta(solana.RentSysVar, false),
		solana.NewReadonlyAccountMeta(token.ProgramKey, false),
	)
}

// Exchange settles an escrow: the taker pays the demanded amount to the
// initializer and receives the full locked balance. The declared amount
// must match the live balance of the temp token account.
func Exchange(program, taker, takerSendAccount, takerReceiveAccount, tempTokenAccount, initializer, initializerReceiveAccount, escrowAccount, authority ed25519.PublicKey, amount uint64) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[signer]` The account of the person taking the trade.
	//   1. `[writable]` The taker's token account for the token they send.
	//   2. `[writable]` The taker's token account for the token they receive.
	//   3. `[writable]` The temp token account holding the locked tokens.
	//   4. `[writable]` The initializer's main account, credited with the
	//      reclaimed rent.
	//   5. `[writable]` The initializer's token account for the token they
	//      receive.
	//   6. `[writable]` The escrow account holding all info about the trade.
	//   7. `[]` The token program.
	//   8. `[]` The program's derived authority.
	return solana.NewInstruction(
		program,
		packCommand(CommandExchange, amount),
		solana.NewAccountMeta(taker, true),
		solana.NewAccountMeta(takerSendAccount, false),
		solana.NewAccountMeta(takerReceiveAccount, false),
		solana.NewAccountMeta(tempTokenAccount, false),
		solana.NewAccountMeta(initializer, false),
		solana.NewAccountMeta(initializerReceiveAccount, false),
		solana.NewAccountMeta(escrowAccount, false),
		solana.NewReadonlyAccountMeta(token.ProgramKey, false),
		solana.NewReadonlyAccountMeta(authority, false),
	)
}

// Cancel unwinds an escrow: the locked tokens return to the initializer
// and the escrow account is destroyed.
func Cancel(program, initializer, receiveAccount, tempTokenAccount, escrowAccount, authority ed25519.PublicKey) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[signer]` The initializer's main account, credited with the
	//      reclaimed rent.
	//   1. `[writable]` The initializer's token account the locked tokens
	//      return to.
	//   2. `[writable]` The temp token account holding the locked tokens.
	//   3. `[writable]` The escrow account holding all info about the trade.
	//   4. `[]` The token program.
	//   5. `[]` The program's derived authority.
	return solana.NewInstruction(
		program,
		packCommand(CommandCancel, 0),
		solana.NewAccountMeta(initializer, true),
		solana.NewAccountMeta(receiveAccount, false),
		solana.NewAccountMeta(tempTokenAccount, false),
		solana.NewAccountMeta(escrowAccount, false),
		solana.NewReadonlyAccountMeta(token.ProgramKey, false),
		solana.NewReadonlyAccountMeta(authority, false),
	)
}
