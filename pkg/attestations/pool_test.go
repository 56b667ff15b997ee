package attestations

import (
	"testing"

	"github.com/eth2030/attestpool/pkg/metrics"
)

func TestPool_AddAndSize(t *testing.T) {
	gauge := metrics.NewGauge()
	pool := NewPool(nil, gauge)

	data := testData(5)
	att := makeAttestation(data, bitsFromPattern("1000_0000"))
	if err := pool.Add(att); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if pool.GetSize() != 1 {
		t.Errorf("expected size 1, got %d", pool.GetSize())
	}
	if gauge.Value() != 1 {
		t.Errorf("expected gauge to read 1, got %d", gauge.Value())
	}
}

func TestPool_AddNil(t *testing.T) {
	pool := NewPool(nil, nil)
	if err := pool.Add(nil); err != ErrNilAttestation {
		t.Errorf("expected ErrNilAttestation, got %v", err)
	}
}

func TestPool_AddEmptyBits(t *testing.T) {
	pool := NewPool(nil, nil)
	att := makeAttestation(testData(5), bitsFromPattern("0000_0000"))
	if err := pool.Add(att); err != ErrEmptyAggregationBits {
		t.Errorf("expected ErrEmptyAggregationBits, got %v", err)
	}
}

func TestPool_AddMissingShufflingSeed(t *testing.T) {
	pool := NewPool(nil, nil)
	att := makeAttestation(testData(5), bitsFromPattern("1000_0000"))
	att.ShufflingSeed = Hash{}

	err := pool.Add(att)
	if err == nil {
		t.Fatalf("expected an error")
	}
	if _, ok := err.(*ProgrammingError); !ok {
		t.Errorf("expected *ProgrammingError, got %T", err)
	}
}

// TestPool_AddIdempotentDuplicate covers the round-trip property: adding
// the same bits twice only increments size once.
func TestPool_AddIdempotentDuplicate(t *testing.T) {
	pool := NewPool(nil, nil)
	data := testData(5)
	bits := bitsFromPattern("1000_0000")

	if err := pool.Add(makeAttestation(data, bits)); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	if err := pool.Add(makeAttestation(data, bits)); err != nil {
		t.Fatalf("second add failed: %v", err)
	}
	if pool.GetSize() != 1 {
		t.Errorf("expected size 1 after duplicate add, got %d", pool.GetSize())
	}
}

func TestPool_Remove(t *testing.T) {
	pool := NewPool(nil, nil)
	data := testData(5)

	p := makeAttestation(data, bitsFromPattern("1111_0000"))
	q := makeAttestation(data, bitsFromPattern("0000_1111"))
	pool.Add(p)
	pool.Add(q)
	if pool.GetSize() != 2 {
		t.Fatalf("expected size 2, got %d", pool.GetSize())
	}

	pool.Remove(&Attestation{Data: data, AggregationBits: bitsFromPattern("1111_0000")})
	if pool.GetSize() != 1 {
		t.Errorf("expected size 1 after remove, got %d", pool.GetSize())
	}

	pPrime := makeAttestation(data, bitsFromPattern("1110_0000"))
	if err := pool.Add(pPrime); err != nil {
		t.Fatalf("add after remove should not error: %v", err)
	}
	if pool.GetSize() != 1 {
		t.Errorf("expected P' to be rejected as a seen-bits subset, size should remain 1, got %d", pool.GetSize())
	}
}

func TestPool_RemoveUnknownIsNoop(t *testing.T) {
	pool := NewPool(nil, nil)
	pool.Remove(&Attestation{Data: testData(5), AggregationBits: bitsFromPattern("1000_0000")})
	if pool.GetSize() != 0 {
		t.Errorf("expected size 0, got %d", pool.GetSize())
	}
}

// TestPool_Retention covers scenario 5: ATTESTATION_RETENTION_EPOCHS=2,
// SLOTS_PER_EPOCH=32 (retention=64). An attestation at slot 10 is pruned
// once OnSlot(100) is called, since 10 < 100-64=36.
func TestPool_Retention(t *testing.T) {
	pool := NewPool(DefaultConfig(), nil)
	att := makeAttestation(testData(10), bitsFromPattern("1000_0000"))
	if err := pool.Add(att); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if pool.GetSize() != 1 {
		t.Fatalf("expected size 1 before pruning, got %d", pool.GetSize())
	}

	pool.OnSlot(100)
	if pool.GetSize() != 0 {
		t.Errorf("expected size 0 after retention prune, got %d", pool.GetSize())
	}
}

func TestPool_RetentionNoopWithinWindow(t *testing.T) {
	pool := NewPool(DefaultConfig(), nil)
	att := makeAttestation(testData(10), bitsFromPattern("1000_0000"))
	pool.Add(att)

	pool.OnSlot(20)
	if pool.GetSize() != 1 {
		t.Errorf("expected attestation to survive a slot within the retention window, got size %d", pool.GetSize())
	}
}

func TestPool_GetAttestationsFiltersBySlot(t *testing.T) {
	pool := NewPool(nil, nil)
	pool.Add(makeAttestation(testData(5), bitsFromPattern("1000_0000")))
	pool.Add(makeAttestation(testData(6), bitsFromPattern("1000_0000")))

	slot := Slot(5)
	it := pool.GetAttestations(&slot, nil)
	count := 0
	for {
		att, ok := it.Next()
		if !ok {
			break
		}
		if att.Data.Slot != 5 {
			t.Errorf("expected only slot-5 attestations, got slot %d", att.Data.Slot)
		}
		count++
	}
	if count != 1 {
		t.Errorf("expected exactly 1 attestation for slot 5, got %d", count)
	}
}

func TestPool_CreateAggregateForUnknownHash(t *testing.T) {
	pool := NewPool(nil, nil)
	_, ok := pool.CreateAggregateFor(Hash{})
	if ok {
		t.Errorf("expected no aggregate for an unknown hash")
	}
}
