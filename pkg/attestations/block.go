package attestations

import "sort"

// SpecProvider supplies the protocol-state context block selection needs
// without this package depending on a concrete beacon-state
// implementation. Epoch computation, attestation validity, and the
// previous-epoch inclusion capacity are entirely the provider's
// responsibility; this package only consumes the results.
type SpecProvider interface {
	// ValidateAttestation reports any validity errors for data against the
	// state the provider was derived from (slot range, checkpoint
	// consistency, committee bounds). A non-empty result drops the group.
	ValidateAttestation(data AttestationData) []error

	// CurrentEpoch is the epoch of the block being built.
	CurrentEpoch() Epoch

	// ComputeEpochAtSlot maps a slot to its epoch.
	ComputeEpochAtSlot(slot Slot) Epoch

	// PreviousEpochAttestationCapacity is the number of previous-epoch
	// attestations that may still be admitted into this block.
	PreviousEpochAttestationCapacity() int
}

// ForkChecker validates that a candidate attestation data value is
// consistent with the chain's current fork choice. Committee-shuffling and
// signature verification are out of scope; a ForkChecker only answers
// "is this still a valid vote given the current chain view".
type ForkChecker interface {
	// AreAttestationsFromCorrectFork reports whether data's beacon block
	// root is reachable from the head this ForkChecker was derived from.
	AreAttestationsFromCorrectFork(data AttestationData) bool
}

// GetAttestationsForBlock selects attestations for inclusion in a block,
// walking known slots descending and, within a slot, its groups in
// whatever order the index yields them. Each surviving group's aggregate
// stream is consumed in order; the previous-epoch cap is applied
// per-candidate, and MAX_ATTESTATIONS is applied as the outer stop
// condition over the count of admissions already made — per spec §9, the
// total cap is checked before the previous-epoch filter, so a
// previous-epoch rejection does not halt the walk early, only skips that
// one candidate.
//
// The whole walk runs under a single RLock, matching GetAttestations: a
// concurrent Add, Remove, or OnSlot must not be allowed to interleave
// with block selection, since a group dropped mid-walk would otherwise
// make the admitted set depend on scheduling rather than pool state at
// one instant.
func (p *Pool) GetAttestationsForBlock(spec SpecProvider, fork ForkChecker) []*Attestation {
	maxAtts := p.cfg.MaxAttestations
	previousEpochLimit := spec.PreviousEpochAttestationCapacity()
	currentEpoch := spec.CurrentEpoch()

	result := make([]*Attestation, 0, maxAtts)
	previousEpochAdmitted := 0

	p.mu.RLock()
	defer p.mu.RUnlock()

	slots := make([]Slot, 0, len(p.bySlot))
	for s := range p.bySlot {
		slots = append(slots, s)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] > slots[j] })

	for _, slot := range slots {
		if len(result) >= maxAtts {
			break
		}

		for key := range p.bySlot[slot] {
			if len(result) >= maxAtts {
				break
			}

			g, ok := p.groups[key]
			if !ok || g.isEmpty() {
				continue
			}
			data := g.data
			if errs := spec.ValidateAttestation(data); len(errs) > 0 {
				continue
			}
			if !fork.AreAttestationsFromCorrectFork(data) {
				continue
			}

			stream := g.stream()
			for {
				if len(result) >= maxAtts {
					break
				}
				va, ok := stream.Next()
				if !ok {
					break
				}

				if spec.ComputeEpochAtSlot(va.Data.Slot) < currentEpoch {
					if previousEpochAdmitted >= previousEpochLimit {
						continue
					}
					previousEpochAdmitted++
				}

				result = append(result, &va.Attestation)
			}
		}
	}

	return result
}
