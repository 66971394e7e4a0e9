package escrow

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_RoundTrip(t *testing.T) {
	initializer := make(ed25519.PublicKey, ed25519.PublicKeySize)
	for i := 0; i < len(initializer); i++ {
		initializer[i] = 1
	}
	tempTokenAccount := make(ed25519.PublicKey, ed25519.PublicKeySize)
	for i := 0; i < len(tempTokenAccount); i++ {
		tempTokenAccount[i] = 2
	}
	receiveAccount := make(ed25519.PublicKey, ed25519.PublicKeySize)
	for i := 0; i < len(receiveAccount); i++ {
		receiveAccount[i] = 3
	}

	expected := State{
		IsInitialized:             true,
		Initializer:               initializer,
		TempTokenAccount:          tempTokenAccount,
		InitializerReceiveAccount: receiveAccount,
		ExpectedAmount:            1 << 40,
	}

	b := expected.Marshal()
	require.Len(t, b, StateSize)
	assert.Equal(t, byte(1), b[0])

	var actual State
	require.True(t, actual.Unmarshal(b))
	assert.Equal(t, expected, actual)
}

func TestState_Empty(t *testing.T) {
	var state State
	require.True(t, state.Unmarshal(make([]byte, StateSize)))

	assert.False(t, state.IsInitialized)
	assert.Zero(t, state.ExpectedAmount)
	assert.Equal(t, make(ed25519.PublicKey, ed25519.PublicKeySize), state.Initializer)
}

func TestState_Invalid(t *testing.T) {
	var state State

	// wrong sizes
	assert.False(t, state.Unmarshal(nil))
	assert.False(t, state.Unmarshal(make([]byte, StateSize-1)))
	assert.False(t, state.Unmarshal(make([]byte, StateSize+1)))

	// non-boolean discriminator byte
	b := make([]byte, StateSize)
	b[0] = 2
	assert.False(t, state.Unmarshal(b))
}
