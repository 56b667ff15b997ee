package attestations

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/eth2030/attestpool/internal/types"
	"github.com/eth2030/attestpool/pkg/log"
)

// MetricsSink receives pool-size updates. Satisfied by *metrics.Gauge; a
// nil sink is valid and simply discards updates.
type MetricsSink interface {
	Set(v int64)
}

// Pool is the in-memory aggregating attestation pool: an index of
// per-data-hash groups, a slot index for retention pruning and block
// selection, and a running count of individually staged attestations.
//
// Pool is safe for concurrent use.
type Pool struct {
	cfg    *Config
	logger *log.Logger
	gauge  MetricsSink

	mu     sync.RWMutex
	groups map[types.Hash]*group
	bySlot map[Slot]map[types.Hash]struct{}
	size   atomic.Int64
}

// NewPool constructs an empty Pool. cfg may be nil, in which case
// DefaultConfig is used. gauge may be nil.
func NewPool(cfg *Config, gauge MetricsSink) *Pool {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Pool{
		cfg:    cfg,
		logger: log.Module("attestations"),
		gauge:  gauge,
		groups: make(map[types.Hash]*group),
		bySlot: make(map[Slot]map[types.Hash]struct{}),
	}
}

// Add stages an attestation into the pool, joining it to the
// MatchingDataAttestationGroup for its data hash (creating one if absent).
// Add rejects a nil attestation, one with zero participating bits, and one
// whose wrapper carries no shuffling seed (a ProgrammingError — the pool
// never attempts to invent one).
//
// Add is idempotent: calling it twice with the same bits, or with bits
// that are already a subset of the group's seen-bits, leaves the pool's
// size unchanged after the first call.
func (p *Pool) Add(att *ValidateableAttestation) error {
	if att == nil {
		return ErrNilAttestation
	}
	if att.AggregationBits.Count() == 0 {
		return ErrEmptyAggregationBits
	}
	if att.ShufflingSeed.IsZero() {
		p.logger.Error("rejecting attestation with missing shuffling seed", "slot", att.Data.Slot)
		return newProgrammingError(ErrMissingShufflingSeed)
	}

	key := att.Data.HashTreeRoot()

	p.mu.Lock()
	defer p.mu.Unlock()

	g, ok := p.groups[key]
	if !ok {
		g = newGroup(att.Data, att.ShufflingSeed)
		p.groups[key] = g
	}

	added, err := g.add(att)
	if err != nil {
		return err
	}
	p.indexSlotLocked(att.Data.Slot, key)
	if added {
		p.size.Add(1)
		p.setGaugeLocked()
	}
	return nil
}

// Remove locates the group for a's data hash and bit-subtracts its bits:
// every stored member whose bits are a subset of a's bits is dropped.
// Removing an attestation whose data hash has no group is a silent no-op.
// If the group becomes empty it is erased from both indexes.
func (p *Pool) Remove(a *Attestation) {
	if a == nil {
		return
	}
	key := a.Data.HashTreeRoot()

	p.mu.Lock()
	defer p.mu.Unlock()

	g, ok := p.groups[key]
	if !ok {
		return
	}

	dropped := g.remove(a.AggregationBits)
	if dropped > 0 {
		p.size.Add(-int64(dropped))
		p.setGaugeLocked()
	}
	if g.isEmpty() {
		p.removeGroupLocked(key)
	}
}

// RemoveAll applies Remove to every element of atts.
func (p *Pool) RemoveAll(atts []*Attestation) {
	for _, a := range atts {
		p.Remove(a)
	}
}

// removeGroupLocked erases a group from both indexes without touching its
// members' contribution to the size counter; callers that haven't already
// accounted for the group's size must do so first.
func (p *Pool) removeGroupLocked(key types.Hash) {
	g, ok := p.groups[key]
	if !ok {
		return
	}
	delete(p.groups, key)
	if slotSet, ok := p.bySlot[g.data.Slot]; ok {
		delete(slotSet, key)
		if len(slotSet) == 0 {
			delete(p.bySlot, g.data.Slot)
		}
	}
}

// CreateAggregateFor returns the first element of the current aggregate
// stream for the given data hash, or (nil, false) if no group exists for
// it. It does not mutate the pool.
func (p *Pool) CreateAggregateFor(dataHash types.Hash) (*ValidateableAttestation, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	g, ok := p.groups[dataHash]
	if !ok || g.isEmpty() {
		return nil, false
	}
	return g.stream().Next()
}

// GetAttestations returns a lazy snapshot iterator over every aggregate the
// pool can currently produce. When slot is non-nil, only that slot's
// groups are visited; when committeeIndex is non-nil, only groups whose
// data carries that committee index are visited. No retention or validity
// filtering is applied. The snapshot (slot-map read, group lookups, and
// each group's stream) is taken under one read lock at call time;
// subsequent pool mutations do not affect an in-progress iteration. A slot
// entry whose group is missing or empty is skipped.
func (p *Pool) GetAttestations(slot *Slot, committeeIndex *CommitteeIndex) *AttestationIterator {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var slots []Slot
	if slot != nil {
		slots = []Slot{*slot}
	} else {
		slots = make([]Slot, 0, len(p.bySlot))
		for s := range p.bySlot {
			slots = append(slots, s)
		}
		sort.Slice(slots, func(i, j int) bool { return slots[i] > slots[j] })
	}

	var streams []*AggregateStream
	for _, s := range slots {
		for key := range p.bySlot[s] {
			g, ok := p.groups[key]
			if !ok || g.isEmpty() {
				continue
			}
			if committeeIndex != nil && g.data.CommitteeIndex != *committeeIndex {
				continue
			}
			streams = append(streams, g.stream())
		}
	}
	return &AttestationIterator{streams: streams}
}

// AttestationIterator lazily walks a snapshot of every group's aggregate
// stream, taken at the moment GetAttestations was called.
type AttestationIterator struct {
	streams []*AggregateStream
	idx     int
}

// Next returns the next available aggregate, or (nil, false) once every
// stream is exhausted.
func (it *AttestationIterator) Next() (*Attestation, bool) {
	for it.idx < len(it.streams) {
		if va, ok := it.streams[it.idx].Next(); ok {
			return &va.Attestation, true
		}
		it.idx++
	}
	return nil, false
}

// OnSlot applies slot-arithmetic retention: every group whose data slot
// has fallen strictly before currentSlot - retention is pruned, where
// retention = SLOTS_PER_EPOCH * ATTESTATION_RETENTION_EPOCHS. A call at a
// slot within the retention window (currentSlot <= retention) is a
// no-op.
func (p *Pool) OnSlot(currentSlot Slot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	retention := p.cfg.RetentionSlots()
	if uint64(currentSlot) <= retention {
		return
	}
	firstValid := Slot(uint64(currentSlot) - retention)

	var stale []Slot
	for s := range p.bySlot {
		if s < firstValid {
			stale = append(stale, s)
		}
	}
	for _, s := range stale {
		for key := range p.bySlot[s] {
			if g, ok := p.groups[key]; ok {
				p.size.Add(-int64(g.size()))
			}
			p.removeGroupLocked(key)
		}
	}
	if len(stale) > 0 {
		p.setGaugeLocked()
		p.logger.Debug("pruned stale attestation groups", "first_valid_slot", firstValid, "slots_pruned", len(stale))
	}
}

// GetSize returns the total number of individually staged attestations
// across every group (not the number of aggregates or groups). It is an
// unsynchronized read of an atomic counter.
func (p *Pool) GetSize() int64 {
	return p.size.Load()
}

func (p *Pool) indexSlotLocked(slot Slot, key types.Hash) {
	set, ok := p.bySlot[slot]
	if !ok {
		set = make(map[types.Hash]struct{})
		p.bySlot[slot] = set
	}
	set[key] = struct{}{}
}

func (p *Pool) setGaugeLocked() {
	if p.gauge != nil {
		p.gauge.Set(p.size.Load())
	}
}
