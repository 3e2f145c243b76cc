package cartridge

// Mapper034 implements the dual-purpose iNES mapper slot 34: BNROM when the
// cartridge has at most one 8 KiB CHR bank (a single 32 KiB PRG register at
// any address 0x8000-0xFFFF, fixed CHR-RAM — used by Deadly Towers), and
// NINA-001 when it has more (three registers at 0x7FFD-0x7FFF: PRG 32 KiB
// select, CHR bank-0 4 KiB select, CHR bank-1 4 KiB select — used by
// Impossible Mission II, Deathbots).
type Mapper034 struct {
	cart     *Cartridge
	isNINA   bool
	prgBanks uint8
	chrBanks uint8 // 4 KiB banks, NINA-001 only

	prgBank  uint8
	chrBank0 uint8
	chrBank1 uint8
}

// NewMapper034 creates a new BNROM/NINA-001 mapper.
func NewMapper034(cart *Cartridge) *Mapper034 {
	return &Mapper034{
		cart:     cart,
		isNINA:   len(cart.chrROM) > 0x2000,
		prgBanks: uint8(len(cart.prgROM) / 0x8000),
		chrBanks: uint8(len(cart.chrROM) / 0x1000),
	}
}

// ReadPRG implements Mapper.
func (m *Mapper034) ReadPRG(address uint16) uint8 {
	switch {
	case address >= 0x6000 && address < 0x8000:
		return m.cart.sram[address-0x6000]
	case address >= 0x8000:
		offset := uint32(m.prgBank)*0x8000 + uint32(address-0x8000)
		if int(offset) < len(m.cart.prgROM) {
			return m.cart.prgROM[offset]
		}
	}
	return 0
}

// WritePRG implements Mapper.
func (m *Mapper034) WritePRG(address uint16, value uint8) {
	if m.isNINA {
		switch address {
		case 0x7FFD:
			if m.prgBanks > 0 {
				m.prgBank = value & (m.prgBanks - 1)
			}
		case 0x7FFE:
			if m.chrBanks > 0 {
				m.chrBank0 = value & (m.chrBanks - 1)
			}
		case 0x7FFF:
			if m.chrBanks > 0 {
				m.chrBank1 = value & (m.chrBanks - 1)
			}
		}
		return
	}
	if address >= 0x8000 && m.prgBanks > 0 {
		m.prgBank = value & (m.prgBanks - 1)
	}
}

// ReadCHR implements Mapper.
func (m *Mapper034) ReadCHR(address uint16) uint8 {
	if !m.isNINA {
		if int(address) < len(m.cart.chrROM) {
			return m.cart.chrROM[address]
		}
		return 0
	}
	var bank uint8
	var offsetInBank uint16
	if address < 0x1000 {
		bank, offsetInBank = m.chrBank0, address
	} else {
		bank, offsetInBank = m.chrBank1, address-0x1000
	}
	offset := uint32(bank)*0x1000 + uint32(offsetInBank)
	if int(offset) < len(m.cart.chrROM) {
		return m.cart.chrROM[offset]
	}
	return 0
}

// WriteCHR implements Mapper. BNROM's CHR-RAM is writable; NINA-001's CHR
// is ROM.
func (m *Mapper034) WriteCHR(address uint16, value uint8) {
	if m.isNINA || !m.cart.hasCHRRAM {
		return
	}
	if int(address) < len(m.cart.chrROM) {
		m.cart.chrROM[address] = value
	}
}

// MarshalRegisters implements RegisterCodec.
func (m *Mapper034) MarshalRegisters() []byte {
	return []byte{m.prgBank, m.chrBank0, m.chrBank1}
}

// UnmarshalRegisters implements RegisterCodec.
func (m *Mapper034) UnmarshalRegisters(data []byte) error {
	if len(data) < 3 {
		return errShortRegisterState
	}
	m.prgBank, m.chrBank0, m.chrBank1 = data[0], data[1], data[2]
	return nil
}
