package cartridge

import "gones/internal/neserr"

// BankCache is a fixed-size mapping from (bank kind, bank index) to a
// stable buffer, with LRU eviction among slots not currently pinned in use.
// Because this port holds the whole ROM image in memory rather than
// streaming 8 KiB chunks from a file handle, a "cache miss" never re-reads
// from backing storage; it simply reassigns a slot's identity. The
// LRU/eviction/CacheExhausted discipline is still enforced so mappers that
// remap CHR at 1 KiB granularity (MMC3, Rambo-1) get a pointer that stays
// valid until the next call that can evict, the same guarantee a
// lazy-loading port would need.
type BankCache struct {
	cart  *Cartridge
	slots []cacheSlot
	clock uint64
}

type bankKind uint8

const (
	bankPRG16K bankKind = iota
	bankPRG8K
	bankCHR1K
)

type cacheSlot struct {
	kind     bankKind
	index    int
	lastUsed uint64 // 0 means never used
	pinned   bool
}

// NewBankCache creates a bank cache with the given number of slots.
func NewBankCache(cart *Cartridge, slots int) *BankCache {
	return &BankCache{cart: cart, slots: make([]cacheSlot, slots)}
}

// touch records use of (kind, index), returning the slot that now holds it.
// An existing hit just bumps its LRU stamp; a miss evicts the oldest
// unpinned slot (preferring an empty one) or reports CacheExhausted.
func (bc *BankCache) touch(kind bankKind, index int) (*cacheSlot, error) {
	bc.clock++

	for i := range bc.slots {
		s := &bc.slots[i]
		if s.lastUsed != 0 && s.kind == kind && s.index == index {
			s.lastUsed = bc.clock
			return s, nil
		}
	}

	var victim *cacheSlot
	for i := range bc.slots {
		s := &bc.slots[i]
		if s.lastUsed == 0 {
			victim = s
			break
		}
		if s.pinned {
			continue
		}
		if victim == nil || s.lastUsed < victim.lastUsed {
			victim = s
		}
	}
	if victim == nil || (victim.lastUsed != 0 && victim.pinned) {
		return nil, neserr.New(neserr.CacheExhausted, "no evictable bank-cache slot (kind=%d index=%d)", kind, index)
	}

	victim.kind = kind
	victim.index = index
	victim.lastUsed = bc.clock
	victim.pinned = false
	return victim, nil
}

// CachePRG returns the 16 KiB PRG bank at bankIndex, masked into range.
func (bc *BankCache) CachePRG(bankIndex int) ([]uint8, error) {
	total := len(bc.cart.prgROM) / 0x4000
	if total == 0 {
		return nil, neserr.New(neserr.BadROM, "cartridge has no PRG ROM")
	}
	bankIndex = ((bankIndex % total) + total) % total
	if _, err := bc.touch(bankPRG16K, bankIndex); err != nil {
		return nil, err
	}
	start := bankIndex * 0x4000
	return bc.cart.prgROM[start : start+0x4000], nil
}

// CachePRG8K returns the 8 KiB PRG bank at bankIndex, masked into range.
// Used by mappers (MMC3 and its relatives) that switch PRG at 8 KiB
// granularity rather than the 16 KiB granularity NROM-style mappers use.
func (bc *BankCache) CachePRG8K(bankIndex int) ([]uint8, error) {
	total := len(bc.cart.prgROM) / 0x2000
	if total == 0 {
		return nil, neserr.New(neserr.BadROM, "cartridge has no PRG ROM")
	}
	bankIndex = ((bankIndex % total) + total) % total
	if _, err := bc.touch(bankPRG8K, bankIndex); err != nil {
		return nil, err
	}
	start := bankIndex * 0x2000
	return bc.cart.prgROM[start : start+0x2000], nil
}

// CacheCHR1K returns the 1 KiB CHR bank at bankIndex (ROM or RAM backing,
// whichever the cartridge has), masked into range.
func (bc *BankCache) CacheCHR1K(bankIndex int) ([]uint8, error) {
	total := len(bc.cart.chrROM) / 0x400
	if total == 0 {
		return nil, neserr.New(neserr.BadROM, "cartridge has no CHR memory")
	}
	bankIndex = ((bankIndex % total) + total) % total
	if _, err := bc.touch(bankCHR1K, bankIndex); err != nil {
		return nil, err
	}
	start := bankIndex * 0x400
	return bc.cart.chrROM[start : start+0x400], nil
}

// Pin marks the slot currently holding (kind, index) as non-evictable. Used
// for WRAM-equivalent banks that must never move.
func (bc *BankCache) pin(kind bankKind, index int) {
	if s, err := bc.touch(kind, index); err == nil {
		s.pinned = true
	}
}
