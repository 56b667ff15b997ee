// Package blssig aggregates BLS12-381 signatures for the attestation pool.
// Signature verification happens upstream of the pool (gossip validation);
// the pool only ever needs to combine already-valid signatures into a
// single aggregate, so this wraps just that slice of github.com/supranational/blst.
package blssig

import (
	"errors"

	blst "github.com/supranational/blst/bindings/go"
)

// SignatureSize is the compressed length of a BLS12-381 G2 signature.
const SignatureSize = 96

// ErrNoSignatures is returned when Aggregate is called with no inputs.
var ErrNoSignatures = errors.New("blssig: no signatures to aggregate")

// ErrAggregateFailed is returned when blst rejects one of the inputs
// (not a valid compressed G2 point).
var ErrAggregateFailed = errors.New("blssig: signature aggregation failed")

// Aggregate combines compressed BLS signatures into a single aggregate
// signature. With one input it returns that signature unchanged.
func Aggregate(sigs [][SignatureSize]byte) ([SignatureSize]byte, error) {
	var out [SignatureSize]byte
	if len(sigs) == 0 {
		return out, ErrNoSignatures
	}
	if len(sigs) == 1 {
		return sigs[0], nil
	}

	raw := make([][]byte, len(sigs))
	for i := range sigs {
		raw[i] = sigs[i][:]
	}

	agg := new(blst.P2Aggregate)
	if !agg.AggregateCompressed(raw, true) {
		return out, ErrAggregateFailed
	}
	copy(out[:], agg.ToAffine().Compress())
	return out, nil
}
