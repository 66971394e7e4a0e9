package escrow

import (
	"crypto/ed25519"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escrowpay/escrow-server/pkg/solana"
	"github.com/escrowpay/escrow-server/pkg/solana/token"
)

func generateKeys(t *testing.T, n int) []ed25519.PublicKey {
	keys := make([]ed25519.PublicKey, n)
	for i := 0; i < n; i++ {
		pub, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		keys[i] = pub
	}
	return keys
}

func TestUnpackCommand(t *testing.T) {
	cmd, amount, err := unpackCommand(packCommand(CommandExchange, 99))
	require.NoError(t, err)
	assert.Equal(t, CommandExchange, cmd)
	assert.Equal(t, uint64(99), amount)

	// truncated payloads
	for i := 0; i < payloadSize; i++ {
		_, _, err := unpackCommand(make([]byte, i))
		assert.Equal(t, ErrInvalidInstruction, err)
	}

	// unknown tag
	data := packCommand(CommandCancel, 0)
	data[0] = 3
	_, _, err = unpackCommand(data)
	assert.Equal(t, ErrInvalidInstruction, err)

	// trailing bytes are tolerated
	cmd, amount, err = unpackCommand(append(packCommand(CommandInitialize, 7), 0xff))
	require.NoError(t, err)
	assert.Equal(t, CommandInitialize, cmd)
	assert.Equal(t, uint64(7), amount)
}

func TestInitializeInstruction(t *testing.T) {
	keys := generateKeys(t, 5)
	program := keys[0]

	instruction := Initialize(program, keys[1], keys[2], keys[3], keys[4], 42)

	assert.Equal(t, program, instruction.Program)
	assert.Equal(t, byte(CommandInitialize), instruction.Data[0])
	assert.Equal(t, uint64(42), binary.LittleEndian.Uint64(instruction.Data[1:]))

	require.Len(t, instruction.Accounts, 6)
	assert.True(t, instruction.Accounts[0].IsSigner)
	assert.Equal(t, keys[1], instruction.Accounts[0].PublicKey)
	assert.Equal(t, keys[2], instruction.Accounts[1].PublicKey)
	assert.Equal(t, keys[3], instruction.Accounts[2].PublicKey)
	assert.Equal(t, keys[4], instruction.Accounts[3].PublicKey)
	assert.Equal(t, solana.RentSysVar, instruction.Accounts[4].PublicKey)
	assert.Equal(t, token.ProgramKey, instruction.Accounts[5].PublicKey)
}

func TestExchangeInstruction(t *testing.T) {
	keys := generateKeys(t, 9)
	program := keys[0]

	instruction := Exchange(program, keys[1], keys[2], keys[3], keys[4], keys[5], keys[6], keys[7], keys[8], 7)

	assert.Equal(t, byte(CommandExchange), instruction.Data[0])
	assert.Equal(t, uint64(7), binary.LittleEndian.Uint64(instruction.Data[1:]))

	require.Len(t, instruction.Accounts, 9)
	assert.True(t, instruction.Accounts[0].IsSigner)
	for i := 1; i < 7; i++ {
		assert.Equal(t, keys[i], instruction.Accounts[i-1].PublicKey)
		assert.True(t, instruction.Accounts[i-1].IsWritable)
	}
	assert.Equal(t, token.ProgramKey, instruction.Accounts[7].PublicKey)
	assert.Equal(t, keys[8], instruction.Accounts[8].PublicKey)
	assert.False(t, instruction.Accounts[8].IsWritable)
}

func TestCancelInstruction(t *testing.T) {
	keys := generateKeys(t, 6)
	program := keys[0]

	instruction := Cancel(program, keys[1], keys[2], keys[3], keys[4], keys[5])

	assert.Equal(t, byte(CommandCancel), instruction.Data[0])
	assert.Equal(t, uint64(0), binary.LittleEndian.Uint64(instruction.Data[1:]))

	require.Len(t, instruction.Accounts, 6)
	assert.True(t, instruction.Accounts[0].IsSigner)
	assert.Equal(t, token.ProgramKey, instruction.Accounts[4].PublicKey)
	assert.Equal(t, keys[5], instruction.Accounts[5].PublicKey)
}
