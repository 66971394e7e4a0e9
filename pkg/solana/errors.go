package solana

import (
	"fmt"

	"github.com/pkg/errors"
)

// Instruction-level failures shared by every program the runtime hosts.
// Program-specific failures are expressed as CustomError values instead.
//
// Reference: https://github.com/solana-labs/solana/blob/4e2754341514cd181ae3f373cc2548bd22e918b8/sdk/program/src/instruction.rs#L23
var (
	ErrMissingRequiredSignature  = errors.New("missing required signature")
	ErrIncorrectProgramID        = errors.New("incorrect program id")
	ErrAccountAlreadyInitialized = errors.New("account already initialized")
	ErrUninitializedAccount      = errors.New("uninitialized account")
	ErrAccountNotRentExempt      = errors.New("account not rent exempt")
	ErrInvalidAccountData        = errors.New("invalid account data")
	ErrInvalidInstructionData    = errors.New("invalid instruction data")
	ErrNotEnoughAccountKeys      = errors.New("not enough account keys")
	ErrPrivilegeEscalation       = errors.New("privilege escalation")
)

// CustomError is the numeric error code returned by an individual program.
type CustomError uint32

func (c CustomError) Error() string {
	return fmt.Sprintf("custom program error: %#x", uint32(c))
}
