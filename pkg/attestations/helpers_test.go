package attestations

import (
	bitfield "github.com/prysmaticlabs/go-bitfield"

	"github.com/eth2030/attestpool/internal/types"
)

func bitsOf(committeeSize uint64, setBits ...uint64) bitfield.Bitlist {
	b := bitfield.NewBitlist(committeeSize)
	for _, idx := range setBits {
		b.SetBitAt(idx, true)
	}
	return b
}

// bitsFromPattern builds a Bitlist of the given committee size from a
// string of '1'/'0' characters, left-to-right as validator index 0..n-1 --
// a convenience for writing the spec's literal bit patterns (e.g.
// "1000_0000") directly in test tables.
func bitsFromPattern(pattern string) bitfield.Bitlist {
	var idxs []uint64
	var size uint64
	for _, c := range pattern {
		switch c {
		case '_':
			continue
		case '1':
			idxs = append(idxs, size)
			size++
		case '0':
			size++
		}
	}
	return bitsOf(size, idxs...)
}

func testData(slot Slot) AttestationData {
	return AttestationData{
		Slot:            slot,
		CommitteeIndex:  0,
		BeaconBlockRoot: types.HexToHash("0xaaaa"),
		Source:          Checkpoint{Epoch: Epoch(uint64(slot) / 32), Root: types.HexToHash("0xbbbb")},
		Target:          Checkpoint{Epoch: Epoch(uint64(slot)/32 + 1), Root: types.HexToHash("0xcccc")},
	}
}

func testSeed() Hash {
	return types.HexToHash("0xdead")
}

func makeAttestation(data AttestationData, bits bitfield.Bitlist) *ValidateableAttestation {
	var sig Signature
	copy(sig[:], []byte("test-signature-bytes-not-real-bls"))
	return &ValidateableAttestation{
		Attestation: Attestation{
			Data:            data,
			AggregationBits: bits,
			Signature:       sig,
		},
		ShufflingSeed: testSeed(),
	}
}
