package attestations

import (
	"sort"

	bitfield "github.com/prysmaticlabs/go-bitfield"

	"github.com/eth2030/attestpool/internal/blssig"
)

// group collects every attestation the pool has seen for one
// AttestationData value (one hash-tree-root): a MatchingDataAttestationGroup.
// It supports greedy disjoint-set aggregation (stream) and bit-subtracting
// removal, and tracks a monotonically-growing seen-bits bitvector that
// never shrinks on remove, so an attestation whose bits were all seen
// before is never re-admitted even after the stored attestations that
// carried those bits are gone.
//
// Not safe for concurrent use; callers serialize access via the owning
// Pool's mutex.
type group struct {
	data          AttestationData
	shufflingSeed Hash
	members       []*ValidateableAttestation
	seenBits      bitfield.Bitlist
}

func newGroup(data AttestationData, shufflingSeed Hash) *group {
	return &group{data: data, shufflingSeed: shufflingSeed}
}

// add stores att if it contributes any validator bit not already recorded
// in seenBits, folding its bits into seenBits and returning true. If every
// bit att carries is already in seenBits, att is a redundant subset and is
// rejected: add returns false without storing it or touching seenBits.
//
// att.Data is required to equal g.data (the group is keyed by its
// hash-tree-root, so this only fails on a hash collision or a caller bug
// that routed an attestation to the wrong group); that case is a defect in
// the caller, not a rejectable candidate, so it is reported as the plain
// ErrAttestationDataMismatch sentinel rather than silently folded in or
// silently dropped.
func (g *group) add(att *ValidateableAttestation) (bool, error) {
	if !att.Data.Equal(g.data) {
		return false, ErrAttestationDataMismatch
	}

	if g.seenBits.Len() > 0 && g.seenBits.Len() == att.AggregationBits.Len() && g.seenBits.Contains(att.AggregationBits) {
		return false, nil
	}

	g.members = append(g.members, att)
	if g.seenBits.Len() == 0 {
		g.seenBits = att.AggregationBits
	} else {
		g.seenBits = g.seenBits.Or(att.AggregationBits)
	}
	return true, nil
}

// size returns the number of individual attestations currently held,
// not the number of aggregates Stream would produce.
func (g *group) size() int {
	return len(g.members)
}

func (g *group) isEmpty() bool {
	return len(g.members) == 0
}

// remove drops every stored member whose bits are a (non-strict) subset
// of includedBits (the bits of the just-included attestation), leaving every
// other member untouched — even one that partially overlaps includedBits.
// seenBits (the group's own monotonic seen-set) is never cleared by
// remove. Returns the number of attestations dropped.
func (g *group) remove(includedBits bitfield.Bitlist) int {
	kept := g.members[:0]
	dropped := 0
	for _, m := range g.members {
		if m.AggregationBits.Len() == includedBits.Len() && includedBits.Contains(m.AggregationBits) {
			dropped++
			continue
		}
		kept = append(kept, m)
	}
	g.members = kept
	return dropped
}

// AggregateStream lazily yields maximal disjoint aggregates over a group's
// members: a greedy cover, not an exhaustive enumeration of every possible
// combination. Each call to Next consumes the seed member and every member
// folded into its aggregate; the stream is taken over a point-in-time copy,
// so it is unaffected by concurrent Add/Remove calls made to the live pool
// after stream was called.
type AggregateStream struct {
	shufflingSeed Hash
	remaining     []*ValidateableAttestation
}

// stream snapshots the group's current members, sorted by participant
// count descending (ties broken by original insertion order, i.e. a
// stable sort) so that the greedy aggregation below tends to produce the
// fewest, widest aggregates first. Intra-group order beyond popcount is
// not specified by the protocol; this stable sort is a determinism
// tightening, not a reproduction of any particular reference order.
func (g *group) stream() *AggregateStream {
	snapshot := make([]*ValidateableAttestation, len(g.members))
	copy(snapshot, g.members)
	sort.SliceStable(snapshot, func(i, j int) bool {
		return snapshot[i].AggregationBits.Count() > snapshot[j].AggregationBits.Count()
	})
	return &AggregateStream{shufflingSeed: g.shufflingSeed, remaining: snapshot}
}

// Next produces the next aggregate: starting from the widest remaining
// attestation, it greedily folds in every other remaining attestation that
// does not overlap the accumulated bitset, combining signatures as it
// goes. Every attestation folded into the result is removed from the
// stream's working set, so a second call to Next only ever sees
// attestations that could not join the first aggregate. Together, the
// aggregates produced over a full drain of Next partition the snapshotted
// member set.
//
// Next returns (nil, false) once the stream is exhausted.
func (s *AggregateStream) Next() (*ValidateableAttestation, bool) {
	if len(s.remaining) == 0 {
		return nil, false
	}

	seed := s.remaining[0]
	bits := seed.AggregationBits
	sigs := [][96]byte{seed.Signature}
	data := seed.Data

	rest := s.remaining[1:]
	unused := rest[:0]
	for _, m := range rest {
		if bits.Len() != m.AggregationBits.Len() || bits.Overlaps(m.AggregationBits) {
			unused = append(unused, m)
			continue
		}
		bits = bits.Or(m.AggregationBits)
		sigs = append(sigs, m.Signature)
	}
	s.remaining = unused

	sig, err := blssig.Aggregate(sigs)
	if err != nil {
		sig = seed.Signature
	}

	return &ValidateableAttestation{
		Attestation: Attestation{
			Data:            data,
			AggregationBits: bits,
			Signature:       sig,
		},
		ShufflingSeed: s.shufflingSeed,
	}, true
}
