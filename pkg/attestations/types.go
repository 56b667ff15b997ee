// Package attestations implements the aggregating attestation pool: the
// in-memory staging area that collects validator attestations, combines
// them into the largest possible aggregates, and serves them for block
// inclusion and for on-demand gossip aggregation.
//
// Attestation serialization and cryptographic verification (signature
// checks, committee shuffling) happen upstream, in gossip validation; the
// pool assumes every attestation it is handed is already individually
// valid.
package attestations

import (
	bitfield "github.com/prysmaticlabs/go-bitfield"

	"github.com/eth2030/attestpool/internal/blssig"
	"github.com/eth2030/attestpool/internal/sszutil"
	"github.com/eth2030/attestpool/internal/types"
)

// Slot is a consensus-layer slot number.
type Slot uint64

// Epoch is a consensus-layer epoch number.
type Epoch uint64

// CommitteeIndex identifies a committee within a slot.
type CommitteeIndex uint64

// Hash is a 32-byte hash-tree-root or shuffling-seed identity.
type Hash = types.Hash

// Signature is a compressed BLS12-381 G2 point: an individual or aggregate
// attestation signature.
type Signature = [blssig.SignatureSize]byte

// Checkpoint is a finality checkpoint: an epoch paired with its block root.
type Checkpoint struct {
	Epoch Epoch
	Root  Hash
}

func (c Checkpoint) hashTreeRoot() [32]byte {
	return sszutil.HashTreeRootContainer([][32]byte{
		sszutil.HashTreeRootUint64(uint64(c.Epoch)),
		sszutil.HashTreeRootBytes32([32]byte(c.Root)),
	})
}

// AttestationData identifies the target of a vote: the slot and committee
// being attested to, the block root observed at that slot, and the
// source/target checkpoints used for FFG voting. It is opaque to the pool
// beyond its slot and its hash-tree-root.
type AttestationData struct {
	Slot            Slot
	CommitteeIndex  CommitteeIndex
	BeaconBlockRoot Hash
	Source          Checkpoint
	Target          Checkpoint
}

// Equal reports whether two AttestationData values are identical. Used to
// defend against the (practically impossible, SHA-256-collision-requiring)
// case where two distinct data values hash to the same group key.
func (d AttestationData) Equal(o AttestationData) bool {
	return d.Slot == o.Slot &&
		d.CommitteeIndex == o.CommitteeIndex &&
		d.BeaconBlockRoot == o.BeaconBlockRoot &&
		d.Source == o.Source &&
		d.Target == o.Target
}

// HashTreeRoot computes the 32-byte SSZ hash-tree-root used as the group
// key throughout the pool.
func (d AttestationData) HashTreeRoot() Hash {
	fieldRoots := [][32]byte{
		sszutil.HashTreeRootUint64(uint64(d.Slot)),
		sszutil.HashTreeRootUint64(uint64(d.CommitteeIndex)),
		sszutil.HashTreeRootBytes32([32]byte(d.BeaconBlockRoot)),
		d.Source.hashTreeRoot(),
		d.Target.hashTreeRoot(),
	}
	return Hash(sszutil.HashTreeRootContainer(fieldRoots))
}

// Attestation is a vote by one or more validators on a specific
// AttestationData, compressed via a bitvector of participants and an
// aggregated BLS signature.
type Attestation struct {
	Data            AttestationData
	AggregationBits bitfield.Bitlist
	Signature       Signature
}

// ValidateableAttestation wraps an Attestation with the committee shuffling
// seed used as a tie-breaking identity for its group. The seed must be
// present; a zero seed is a programming error, not a missing-data case the
// pool can silently tolerate.
type ValidateableAttestation struct {
	Attestation
	ShufflingSeed Hash
}
