package rhhash

// Table is a fixed-capacity active-bundle table. See the package doc
// comment for usage and the concurrency model.
type Table struct {
	slots []slot

	size       int
	numEntries int

	// oldest/newest anchor the global age list. Both are nilSlot iff the
	// table is empty.
	oldest, newest slotIndex

	closed bool
}

// New allocates a table with room for size active bundles.
//
// It returns ErrParam if size is not a positive number representable
// within the implementation's permissible index range, or ErrOOM if the
// backing slot array could not be allocated.
//
// Go's runtime does not, in general, let a program recover from a true
// out-of-memory condition (an allocation failure can terminate the process
// before a deferred recover runs). ErrOOM is returned for the one case
// this implementation can detect without attempting the allocation at all:
// a size within the permissible range that nonetheless overflows during
// the slot-array size computation. Genuine memory exhaustion on a valid,
// in-range size is still fatal, the same way it would be for any other Go
// allocation.
func New(size int) (*Table, error) {
	if size <= 0 || size > maxCapacity {
		return nil, ErrParam
	}

	slots, err := allocSlots(size)
	if err != nil {
		return nil, err
	}

	return &Table{
		slots:  slots,
		size:   size,
		oldest: nilSlot,
		newest: nilSlot,
	}, nil
}

func allocSlots(size int) (slots []slot, err error) {
	defer func() {
		if r := recover(); r != nil {
			slots = nil
			err = ErrOOM
		}
	}()

	slots = make([]slot, size)
	for i := range slots {
		slots[i] = vacantSlot()
	}

	return slots, nil
}

// Close releases the table's backing storage. The table must not be used
// afterwards.
func (t *Table) Close() {
	t.slots = nil
	t.closed = true
}

// Count returns the number of occupied slots.
func (t *Table) Count() int {
	t.mustBeOpen()

	return t.numEntries
}

// Available reports whether the table has room for another entry.
//
// The CID argument is reserved for future per-bucket admission policies
// and is currently ignored; Available reports only whether the table as a
// whole has a free slot anywhere.
func (t *Table) Available(_ uint64) error {
	t.mustBeOpen()

	if t.numEntries < t.size {
		return nil
	}

	return ErrTableFull
}

// Peek returns the oldest still-active bundle without removing it, for use
// by a retransmission scanner. It returns ErrCIDNotFound if the table is
// empty. Calling Peek twice in a row, with no intervening mutation,
// returns the same bundle both times.
func (t *Table) Peek() (Bundle, error) {
	t.mustBeOpen()

	if t.oldest == nilSlot {
		return Bundle{}, ErrCIDNotFound
	}

	return t.slots[t.oldest].bundle, nil
}

// Add inserts bundle as a new active entry. If overwrite is true and an
// entry with the same CID already exists, it replaces it and moves it to
// the newest end of the age list instead.
//
// It returns ErrDuplicateCID if overwrite is false and the CID already has
// an entry, or ErrTableFull if no vacant slot can be found.
//
// bundle.SID must not be VacantSID; that value is reserved internally to
// mark empty slots. Passing it is a programmer error, not an operational
// one, and Add panics rather than silently corrupting the table.
func (t *Table) Add(bundle Bundle, overwrite bool) error {
	t.mustBeOpen()

	if bundle.SID == VacantSID {
		panic("rhhash: Add called with bundle.SID == VacantSID")
	}

	home := t.home(bundle.CID)

	if !t.slots[home].occupied() {
		t.slots[home] = slot{bundle: bundle, next: nilSlot, prev: nilSlot}
		t.appendAgeTail(home)
		t.numEntries++

		return nil
	}

	// Walk the chain rooted at home looking for this CID. Whether home is
	// itself that chain's rightful head or an interloper physically
	// sitting there, following next from home reaches the chain's current
	// tail either way.
	cur := home

	var end slotIndex

	for {
		if t.slots[cur].bundle.CID == bundle.CID {
			return t.overwriteSlot(cur, bundle, overwrite)
		}

		if t.slots[cur].next == nilSlot {
			end = cur

			break
		}

		cur = t.slots[cur].next
	}

	open, found := t.findVacancy(home)
	if !found {
		return ErrTableFull
	}

	if t.slots[home].prev == nilSlot {
		t.installChainTail(bundle, end, open)
	} else {
		t.displaceAndInstall(home, bundle, open)
	}

	t.numEntries++

	return nil
}

// installChainTail handles the case where home is the legitimate chain
// head for a different CID that happens to share this bucket: bundle
// becomes a new tail node of that same chain.
func (t *Table) installChainTail(bundle Bundle, end, open slotIndex) {
	t.slots[open] = slot{bundle: bundle, prev: end, next: nilSlot}
	t.slots[end].next = open
	t.appendAgeTail(open)
}

// displaceAndInstall handles Robin-Hood displacement: home is occupied by
// an interloper, a tail/interior node of some other bucket's chain that
// was placed here by an earlier probe. That node is relocated to open,
// keeping its exact logical position in its own chain (same neighbours,
// same age-list position, just a different physical slot), which frees
// home for bundle to become a fresh, single-element chain head there.
//
// An interloper can already have a successor of its own, if its chain
// grew further after it first landed here, so this relocates it in place
// with its existing links rather than assuming it is always its chain's
// tail. That keeps the chain and age-list invariants intact in every
// case, not just the common one.
func (t *Table) displaceAndInstall(home slotIndex, bundle Bundle, open slotIndex) {
	occupant := t.slots[home]
	prevOfHome := occupant.prev
	nextOfHome := occupant.next

	t.slots[open] = slot{
		bundle: occupant.bundle,
		prev:   prevOfHome,
		next:   nextOfHome,
		after:  occupant.after,
		before: occupant.before,
	}

	t.slots[prevOfHome].next = open
	if nextOfHome != nilSlot {
		t.slots[nextOfHome].prev = open
	}

	t.relinkAgeNeighbours(occupant.before, occupant.after, open)

	t.slots[home] = slot{bundle: bundle, next: nilSlot, prev: nilSlot}
	t.appendAgeTail(home)
}

// overwriteSlot implements the "overwrite" sub-procedure of Add. It does
// not assume idx is the oldest entry: unlinking idx from wherever it sits
// in the age list and re-appending it at the tail is correct regardless
// of its prior position, whereas an unconditional write to the previous
// oldest slot's link would only be correct in that one case.
func (t *Table) overwriteSlot(idx slotIndex, bundle Bundle, overwrite bool) error {
	if !overwrite {
		return ErrDuplicateCID
	}

	t.unlinkAge(idx)
	t.slots[idx].bundle = bundle
	t.appendAgeTail(idx)

	return nil
}

// Remove looks up cid, removes it, and returns the bundle that was stored.
// It returns ErrCIDNotFound if no occupied slot carries cid.
func (t *Table) Remove(cid uint64) (Bundle, error) {
	t.mustBeOpen()

	home := t.home(cid)
	if !t.slots[home].occupied() {
		return Bundle{}, ErrCIDNotFound
	}

	victim := home
	for t.slots[victim].bundle.CID != cid {
		if t.slots[victim].next == nilSlot {
			return Bundle{}, ErrCIDNotFound
		}

		victim = t.slots[victim].next
	}

	out := t.slots[victim].bundle

	t.unlinkAge(victim)
	t.compactTail(victim)
	t.numEntries--

	return out, nil
}

// compactTail walks from victim to its chain's current tail end. If end is
// some other slot, end's bundle and age-list position are copied into
// victim (victim's own chain prev/next are left untouched), and end is
// vacated instead. Compacting with the tail, never the head, preserves
// the chain-head invariant: whatever CID ends up at victim still shares
// victim's chain, which by construction shares victim's home bucket, so a
// removal never needs to re-probe anything.
func (t *Table) compactTail(victim slotIndex) {
	end := victim
	for t.slots[end].next != nilSlot {
		end = t.slots[end].next
	}

	if end != victim {
		tail := t.slots[end]
		t.slots[victim].bundle = tail.bundle
		t.slots[victim].after = tail.after
		t.slots[victim].before = tail.before

		t.relinkAgeNeighbours(tail.before, tail.after, victim)
	}

	prevOfEnd := t.slots[end].prev
	if prevOfEnd != nilSlot {
		t.slots[prevOfEnd].next = nilSlot
	}

	t.slots[end] = vacantSlot()
}

// home computes the bucket a CID belongs to. The CID domain is assumed
// already well-mixed (a custodian-assigned sequence number), so the
// identity-based hash(cid) = cid mod size is used, matching the source's
// observable behavior; a stronger integer-mixing step could be substituted
// without changing the contract that a CID's home is deterministic and
// stable for the table's lifetime.
func (t *Table) home(cid uint64) slotIndex {
	return slotIndex(cid % uint64(t.size))
}

// findVacancy linearly probes forward from home, wrapping modulo size,
// stopping either at a vacant slot or when the probe wraps back to home
// (table full).
func (t *Table) findVacancy(home slotIndex) (slotIndex, bool) {
	probe := t.wrapIncr(home)
	for probe != home {
		if !t.slots[probe].occupied() {
			return probe, true
		}

		probe = t.wrapIncr(probe)
	}

	return nilSlot, false
}

func (t *Table) wrapIncr(i slotIndex) slotIndex {
	i++
	if int(i) == t.size {
		return 0
	}

	return i
}

// appendAgeTail links idx as the new newest entry of the global age list.
func (t *Table) appendAgeTail(idx slotIndex) {
	t.slots[idx].before = t.newest
	t.slots[idx].after = nilSlot

	if t.newest != nilSlot {
		t.slots[t.newest].after = idx
	} else {
		t.oldest = idx
	}

	t.newest = idx
}

// unlinkAge removes idx from wherever it currently sits in the age list,
// repairing the oldest/newest anchors if idx was at either end. It does
// not touch idx's own after/before fields; callers that are about to
// discard or overwrite idx don't need them, and callers that are about to
// re-append idx (overwriteSlot) set them via appendAgeTail immediately
// after.
func (t *Table) unlinkAge(idx slotIndex) {
	before := t.slots[idx].before
	after := t.slots[idx].after

	if before != nilSlot {
		t.slots[before].after = after
	} else {
		t.oldest = after
	}

	if after != nilSlot {
		t.slots[after].before = before
	} else {
		t.newest = before
	}
}

// relinkAgeNeighbours re-points the age-list neighbours that used to
// reference a slot (identified by its former before/after links) at
// newIdx instead, fixing up the oldest/newest anchors when a neighbour
// doesn't exist. Used whenever a slot's payload and age-list identity move
// to a different physical index (Robin-Hood displacement, tail
// compaction) without the logical age position changing at all.
func (t *Table) relinkAgeNeighbours(before, after, newIdx slotIndex) {
	if before != nilSlot {
		t.slots[before].after = newIdx
	} else {
		t.oldest = newIdx
	}

	if after != nilSlot {
		t.slots[after].before = newIdx
	} else {
		t.newest = newIdx
	}
}

func (t *Table) mustBeOpen() {
	if t.closed {
		panic("rhhash: use of Table after Close")
	}
}
