package cartridge

// Mapper009010 implements MMC2 (mapper 9, Punch-Out!!) and MMC4 (mapper 10,
// Fire Emblem / Famicom Wars): CHR banking driven by two independent
// latches that flip between their FD and FE states when the PPU fetches a
// tile from one of four fixed trigger addresses, rather than by a register
// write. PRG banking differs between the two: MMC2 switches a single 8 KiB
// window at 0x8000 with the remaining three 8 KiB windows fixed to the last
// three banks; MMC4 switches a 16 KiB window at 0x8000 with the last 16 KiB
// fixed, matching MMC1/UNROM-style PRG mapping.
type Mapper009010 struct {
	cart   *Cartridge
	isMMC4 bool

	prgBanks8K  uint8
	prgBanks16K uint8
	prgBank     uint8

	latch0, latch1     uint8 // 0 = FD state, 1 = FE state
	chr0FD, chr0FE     uint8
	chr1FD, chr1FE     uint8

	mirror MirrorMode
}

// NewMapper009 creates a new MMC2 mapper.
func NewMapper009(cart *Cartridge) *Mapper009010 {
	return &Mapper009010{
		cart:       cart,
		prgBanks8K: uint8(len(cart.prgROM) / 0x2000),
		mirror:     cart.mirror,
	}
}

// NewMapper010 creates a new MMC4 mapper.
func NewMapper010(cart *Cartridge) *Mapper009010 {
	return &Mapper009010{
		cart:        cart,
		isMMC4:      true,
		prgBanks16K: uint8(len(cart.prgROM) / 0x4000),
		mirror:      cart.mirror,
	}
}

// CurrentMirrorMode implements MirrorSource.
func (m *Mapper009010) CurrentMirrorMode() MirrorMode { return m.mirror }

// ReadPRG implements Mapper.
func (m *Mapper009010) ReadPRG(address uint16) uint8 {
	if address >= 0x6000 && address < 0x8000 {
		return m.cart.sram[address-0x6000]
	}
	if address < 0x8000 {
		return 0
	}

	if m.isMMC4 {
		var bank uint8
		if address < 0xC000 {
			bank = m.prgBank
		} else if m.prgBanks16K > 0 {
			bank = m.prgBanks16K - 1
		}
		base := address - 0x8000
		if address >= 0xC000 {
			base = address - 0xC000
		}
		offset := uint32(bank)*0x4000 + uint32(base)
		if int(offset) < len(m.cart.prgROM) {
			return m.cart.prgROM[offset]
		}
		return 0
	}

	var bank uint8
	var windowStart uint16
	switch {
	case address < 0xA000:
		bank, windowStart = m.prgBank, 0x8000
	case address < 0xC000:
		if m.prgBanks8K >= 3 {
			bank = m.prgBanks8K - 3
		}
		windowStart = 0xA000
	case address < 0xE000:
		if m.prgBanks8K >= 2 {
			bank = m.prgBanks8K - 2
		}
		windowStart = 0xC000
	default:
		if m.prgBanks8K >= 1 {
			bank = m.prgBanks8K - 1
		}
		windowStart = 0xE000
	}
	offset := uint32(bank)*0x2000 + uint32(address-windowStart)
	if int(offset) < len(m.cart.prgROM) {
		return m.cart.prgROM[offset]
	}
	return 0
}

// WritePRG implements Mapper. Registers are selected by the address, not a
// shift register: 0xA000 PRG bank, 0xB000/0xC000 CHR-0 FD/FE, 0xD000/0xE000
// CHR-1 FD/FE, 0xF000 mirroring.
func (m *Mapper009010) WritePRG(address uint16, value uint8) {
	switch {
	case address >= 0x6000 && address < 0x8000:
		m.cart.sram[address-0x6000] = value
	case address >= 0xA000 && address < 0xB000:
		m.prgBank = value & 0x0F
	case address >= 0xB000 && address < 0xC000:
		m.chr0FD = value & 0x1F
	case address >= 0xC000 && address < 0xD000:
		m.chr0FE = value & 0x1F
	case address >= 0xD000 && address < 0xE000:
		m.chr1FD = value & 0x1F
	case address >= 0xE000 && address < 0xF000:
		m.chr1FE = value & 0x1F
	case address >= 0xF000:
		if value&1 == 0 {
			m.mirror = MirrorVertical
		} else {
			m.mirror = MirrorHorizontal
		}
	}
}

// ObservePPUAddress implements PPUAddressObserver: flips the relevant latch
// when the PPU fetches one of the four trigger tiles.
func (m *Mapper009010) ObservePPUAddress(address uint16) {
	switch {
	case address >= 0x0FD8 && address <= 0x0FDF:
		m.latch0 = 0
	case address >= 0x0FE8 && address <= 0x0FEF:
		m.latch0 = 1
	case address >= 0x1FD8 && address <= 0x1FDF:
		m.latch1 = 0
	case address >= 0x1FE8 && address <= 0x1FEF:
		m.latch1 = 1
	}
}

func (m *Mapper009010) chrOffset(address uint16) uint32 {
	if address < 0x1000 {
		bank := m.chr0FD
		if m.latch0 == 1 {
			bank = m.chr0FE
		}
		return uint32(bank)*0x1000 + uint32(address)
	}
	bank := m.chr1FD
	if m.latch1 == 1 {
		bank = m.chr1FE
	}
	return uint32(bank)*0x1000 + uint32(address-0x1000)
}

// ReadCHR implements Mapper.
func (m *Mapper009010) ReadCHR(address uint16) uint8 {
	offset := m.chrOffset(address)
	if int(offset) < len(m.cart.chrROM) {
		return m.cart.chrROM[offset]
	}
	return 0
}

// WriteCHR implements Mapper.
func (m *Mapper009010) WriteCHR(address uint16, value uint8) {
	if !m.cart.hasCHRRAM {
		return
	}
	offset := m.chrOffset(address)
	if int(offset) < len(m.cart.chrROM) {
		m.cart.chrROM[offset] = value
	}
}

// MarshalRegisters implements RegisterCodec.
func (m *Mapper009010) MarshalRegisters() []byte {
	return []byte{m.prgBank, m.latch0, m.latch1, m.chr0FD, m.chr0FE, m.chr1FD, m.chr1FE, uint8(m.mirror)}
}

// UnmarshalRegisters implements RegisterCodec.
func (m *Mapper009010) UnmarshalRegisters(data []byte) error {
	if len(data) < 8 {
		return errShortRegisterState
	}
	m.prgBank = data[0]
	m.latch0, m.latch1 = data[1], data[2]
	m.chr0FD, m.chr0FE = data[3], data[4]
	m.chr1FD, m.chr1FE = data[5], data[6]
	m.mirror = MirrorMode(data[7])
	return nil
}
