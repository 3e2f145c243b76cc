package cartridge

// Mapper163 implements the Nanjing board (mapper 163) used by a handful of
// Chinese pirate reworkings (Final Fantasy VII, Gyruss). The board exposes a
// PRG bank register plus a small set of copy-protection registers in
// 0x5000-0x5FFF whose job is to foil the original cart-detection routines
// those games ship with, and flips a CHR bank mid-frame rather than at
// scanline 0. Real hardware drives the flip from an internal scanline
// counter latched by PPU /RD; this implementation uses the permitted
// ScanlineClock approximation and switches CHR at the two scanlines
// (128 and 240) the games actually rely on.
type Mapper163 struct {
	cart     *Cartridge
	prgBanks uint8 // 32 KiB PRG banks

	prgBank    uint8
	chrBankLow uint8 // CHR bank used for scanlines 0-127
	chrBankHi  uint8 // CHR bank used for scanlines 128-239

	scanline uint16

	// Protection registers: the handful of games using this board poll
	// 0x5000/0x5100/0x5101 expecting specific canned values to pass their
	// anti-piracy checks.
	protectLatch  uint8
	protectToggle bool
	invert        bool
}

// NewMapper163 creates a new Nanjing mapper.
func NewMapper163(cart *Cartridge) *Mapper163 {
	return &Mapper163{
		cart:     cart,
		prgBanks: uint8(len(cart.prgROM) / 0x8000),
	}
}

// ReadPRG implements Mapper.
func (m *Mapper163) ReadPRG(address uint16) uint8 {
	switch {
	case address >= 0x5000 && address < 0x6000:
		return m.readProtection(address)
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

func (m *Mapper163) readProtection(address uint16) uint8 {
	switch address & 0xFF {
	case 0x00:
		if m.invert {
			return ^m.protectLatch
		}
		return m.protectLatch
	case 0x01:
		if m.protectToggle {
			return 0x01
		}
		return 0x00
	default:
		return m.protectLatch
	}
}

// WritePRG implements Mapper.
func (m *Mapper163) WritePRG(address uint16, value uint8) {
	switch {
	case address >= 0x5000 && address < 0x6000:
		switch address & 0xFF {
		case 0x00:
			m.protectLatch = value
		case 0x01:
			m.protectToggle = value&0x01 != 0
			m.invert = value&0x02 != 0
		}
	case address >= 0x6000 && address < 0x8000:
		m.cart.sram[address-0x6000] = value
	case address >= 0x8000:
		if m.prgBanks > 0 {
			m.prgBank = value & (m.prgBanks - 1)
		}
		m.chrBankLow = (value >> 4) & 0x0F
		m.chrBankHi = m.chrBankLow
	}
}

// ScanlineClock implements ScanlineClocker, tracking the current scanline so
// ReadCHR can serve the bank appropriate to the 128/240 mid-frame flip.
func (m *Mapper163) ScanlineClock() {
	m.scanline++
	if m.scanline >= 262 {
		m.scanline = 0
	}
}

func (m *Mapper163) chrBank() uint8 {
	if m.scanline >= 128 && m.scanline < 240 {
		return m.chrBankHi
	}
	return m.chrBankLow
}

// ReadCHR implements Mapper.
func (m *Mapper163) ReadCHR(address uint16) uint8 {
	offset := uint32(m.chrBank())*0x2000 + uint32(address)
	if int(offset) < len(m.cart.chrROM) {
		return m.cart.chrROM[offset]
	}
	return 0
}

// WriteCHR implements Mapper. Nanjing boards ship with CHR-RAM.
func (m *Mapper163) WriteCHR(address uint16, value uint8) {
	if !m.cart.hasCHRRAM {
		return
	}
	offset := uint32(m.chrBank())*0x2000 + uint32(address)
	if int(offset) < len(m.cart.chrROM) {
		m.cart.chrROM[offset] = value
	}
}

// MarshalRegisters implements RegisterCodec.
func (m *Mapper163) MarshalRegisters() []byte {
	b := []byte{
		m.prgBank, m.chrBankLow, m.chrBankHi,
		uint8(m.scanline), uint8(m.scanline >> 8),
		m.protectLatch, boolByte(m.protectToggle), boolByte(m.invert),
	}
	return b
}

// UnmarshalRegisters implements RegisterCodec.
func (m *Mapper163) UnmarshalRegisters(data []byte) error {
	if len(data) < 8 {
		return errShortRegisterState
	}
	m.prgBank, m.chrBankLow, m.chrBankHi = data[0], data[1], data[2]
	m.scanline = uint16(data[3]) | uint16(data[4])<<8
	m.protectLatch = data[5]
	m.protectToggle = data[6] != 0
	m.invert = data[7] != 0
	return nil
}
