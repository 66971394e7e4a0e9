package solana

import (
	"bytes"
	"crypto/ed25519"
	"math"

	"github.com/mr-tron/base58/base58"

	"github.com/escrowpay/escrow-server/pkg/solana/binary"
)

// RentSysVar points to the system variable "Rent"
//
// Source: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/src/sysvar/rent.rs#L11
var RentSysVar ed25519.PublicKey

func init() {
	var err error

	RentSysVar, err = base58.Decode("SysvarRent111111111111111111111111111111111")
	if err != nil {
		panic(err)
	}
}

// RentSize is the serialized size of the rent sysvar.
const RentSize = 8 + 8 + 1

// accountStorageOverhead is the per-account storage overhead, in bytes,
// charged on top of the account's own data.
//
// Reference: https://github.com/solana-labs/solana/blob/5548e599fe4920b71766e0ad1d121755ce9c63d5/sdk/program/src/rent.rs#L36
const accountStorageOverhead = 128

// Rent is the storage-rent policy accounts are charged under. An account
// holding at least two years' worth of rent up front is exempt from
// collection.
type Rent struct {
	// LamportsPerByteYear is the rental rate in lamports per byte-year.
	LamportsPerByteYear uint64
	// ExemptionThreshold is the amount of time, in years, a balance must
	// cover to be exempt.
	ExemptionThreshold float64
	// BurnPercent is the percentage of collected rent that is burned.
	BurnPercent uint8
}

// DefaultRent returns the rent policy with the cluster default parameters.
func DefaultRent() Rent {
	return Rent{
		LamportsPerByteYear: 3480,
		ExemptionThreshold:  2.0,
		BurnPercent:         50,
	}
}

// MinimumBalance returns the minimum lamport balance an account with
// dataLen bytes of data must hold to be rent exempt.
func (r Rent) MinimumBalance(dataLen int) uint64 {
	bytes := uint64(accountStorageOverhead + dataLen)
	return uint64(float64(bytes*r.LamportsPerByteYear) * r.ExemptionThreshold)
}

// IsExempt reports whether an account with the provided balance and data
// length is exempt from rent collection.
func (r Rent) IsExempt(lamports uint64, dataLen int) bool {
	return lamports >= r.MinimumBalance(dataLen)
}

func (r Rent) Marshal() []byte {
	b := make([]byte, RentSize)

	var offset int
	binary.PutUint64(b, r.LamportsPerByteYear, &offset)
	binary.PutUint64(b[offset:], math.Float64bits(r.ExemptionThreshold), &offset)
	binary.PutUint8(b[offset:], r.BurnPercent, &offset)

	return b
}

func (r *Rent) Unmarshal(b []byte) bool {
	if len(b) != RentSize {
		return false
	}

	var offset int
	var thresholdBits uint64
	binary.GetUint64(b, &r.LamportsPerByteYear, &offset)
	binary.GetUint64(b[offset:], &thresholdBits, &offset)
	binary.GetUint8(b[offset:], &r.BurnPercent, &offset)
	r.ExemptionThreshold = math.Float64frombits(thresholdBits)

	return true
}

// RentFromAccount loads the rent policy from the rent sysvar account.
func RentFromAccount(info AccountInfo) (Rent, error) {
	var rent Rent

	if !bytes.Equal(RentSysVar, info.Key) {
		return rent, ErrInvalidAccountData
	}
	if !rent.Unmarshal(info.Data) {
		return rent, ErrInvalidAccountData
	}

	return rent, nil
}
