package cartridge

// Mapper004 implements MMC3 (mapper 4): two switchable 8 KiB PRG banks plus
// one bank fixed to the second-last 8 KiB and one fixed to the last, six
// switchable CHR banks (two 2 KiB + four 1 KiB, or the mirror-image layout
// when CHR-mode is inverted), a scanline counter driving an IRQ line, and
// mapper-controlled nametable mirroring. Used by Super Mario Bros. 2/3,
// Mega Man 3-6 — the single most common discrete mapper in the library.
type Mapper004 struct {
	cart     *Cartridge
	prgBanks uint8 // number of 8 KiB PRG banks
	cache    *BankCache

	bankSelect uint8 // which of R0-R7 the next data write targets
	prgMode    uint8 // 0 or 1: which 8 KiB window is fixed to second-last
	chrMode    uint8 // 0 or 1: A12 inversion
	registers  [8]uint8

	mirror MirrorMode

	prgRAMEnabled      bool
	prgRAMWriteProtect bool

	irqLatch      uint8
	irqCounter    uint8
	irqEnabled    bool
	irqPending    bool
	irqReloadFlag bool
}

// NewMapper004 creates a new MMC3 mapper.
func NewMapper004(cart *Cartridge) *Mapper004 {
	return &Mapper004{
		cart:          cart,
		prgBanks:      uint8(len(cart.prgROM) / 0x2000),
		cache:         cart.cache,
		mirror:        cart.mirror,
		prgRAMEnabled: true,
	}
}

// ReadPRG implements Mapper.
func (m *Mapper004) ReadPRG(address uint16) uint8 {
	switch {
	case address >= 0x6000 && address < 0x8000:
		if m.prgRAMEnabled {
			return m.cart.sram[address-0x6000]
		}
		return 0

	case address >= 0x8000 && address < 0xA000:
		bank := m.secondLastBank()
		if m.prgMode == 0 {
			bank = m.registers[6]
		}
		return m.readPRGBank(bank, address-0x8000)

	case address >= 0xA000 && address < 0xC000:
		return m.readPRGBank(m.registers[7], address-0xA000)

	case address >= 0xC000 && address < 0xE000:
		bank := m.registers[6]
		if m.prgMode == 0 {
			bank = m.secondLastBank()
		}
		return m.readPRGBank(bank, address-0xC000)

	case address >= 0xE000:
		return m.readPRGBank(m.lastBank(), address-0xE000)
	}
	return 0
}

func (m *Mapper004) secondLastBank() uint8 {
	if m.prgBanks >= 2 {
		return m.prgBanks - 2
	}
	return 0
}

func (m *Mapper004) lastBank() uint8 {
	if m.prgBanks >= 1 {
		return m.prgBanks - 1
	}
	return 0
}

func (m *Mapper004) readPRGBank(bank uint8, offsetInBank uint16) uint8 {
	bankData, err := m.cache.CachePRG8K(int(bank))
	if err != nil {
		return 0
	}
	return bankData[offsetInBank]
}

// WritePRG implements Mapper.
func (m *Mapper004) WritePRG(address uint16, value uint8) {
	switch {
	case address >= 0x6000 && address < 0x8000:
		if m.prgRAMEnabled && !m.prgRAMWriteProtect {
			m.cart.sram[address-0x6000] = value
		}

	case address >= 0x8000 && address < 0xA000:
		if address&1 == 0 {
			m.bankSelect = value & 0x07
			m.prgMode = (value >> 6) & 0x01
			m.chrMode = (value >> 7) & 0x01
		} else {
			m.registers[m.bankSelect] = value
		}

	case address >= 0xA000 && address < 0xC000:
		if address&1 == 0 {
			if value&1 == 0 {
				m.mirror = MirrorVertical
			} else {
				m.mirror = MirrorHorizontal
			}
		} else {
			m.prgRAMWriteProtect = (value & 0x40) != 0
			m.prgRAMEnabled = (value & 0x80) != 0
		}

	case address >= 0xC000 && address < 0xE000:
		if address&1 == 0 {
			m.irqLatch = value
		} else {
			m.irqCounter = 0
			m.irqReloadFlag = true
		}

	case address >= 0xE000:
		if address&1 == 0 {
			m.irqEnabled = false
			m.irqPending = false
		} else {
			m.irqEnabled = true
		}
	}
}

// chrLayout resolves address to a (registerIndex, granularity, offset) triple
// honoring the A12-inversion chrMode bit.
func (m *Mapper004) chrBankAndOffset(address uint16) (bank uint8, offset uint32) {
	lowHalf := address < 0x1000
	if m.chrMode == 1 {
		lowHalf = !lowHalf
	}
	a := address
	if !lowHalf {
		a -= 0x1000
	}
	if lowHalf {
		switch {
		case a < 0x0800:
			return m.registers[0] &^ 1, uint32(a)
		default:
			return m.registers[1] &^ 1, uint32(a - 0x0800)
		}
	}
	switch {
	case a < 0x0400:
		return m.registers[2], uint32(a)
	case a < 0x0800:
		return m.registers[3], uint32(a - 0x0400)
	case a < 0x0C00:
		return m.registers[4], uint32(a - 0x0800)
	default:
		return m.registers[5], uint32(a - 0x0C00)
	}
}

// ReadCHR implements Mapper.
func (m *Mapper004) ReadCHR(address uint16) uint8 {
	bank, offset := m.chrBankAndOffset(address)
	bankData, err := m.cache.CacheCHR1K(int(bank) + int(offset/0x400))
	if err != nil {
		return 0
	}
	return bankData[offset%0x400]
}

// WriteCHR implements Mapper.
func (m *Mapper004) WriteCHR(address uint16, value uint8) {
	if !m.cart.hasCHRRAM {
		return
	}
	bank, offset := m.chrBankAndOffset(address)
	bankData, err := m.cache.CacheCHR1K(int(bank) + int(offset/0x400))
	if err != nil {
		return
	}
	bankData[offset%0x400] = value
}

// ScanlineClock implements ScanlineClocker: called once per visible
// scanline by the PPU, approximating the A12-rising-edge counter that real
// MMC3 hardware drives off pattern-table fetches.
func (m *Mapper004) ScanlineClock() {
	if m.irqCounter == 0 || m.irqReloadFlag {
		m.irqCounter = m.irqLatch
		m.irqReloadFlag = false
	} else {
		m.irqCounter--
	}
	if m.irqCounter == 0 && m.irqEnabled {
		m.irqPending = true
	}
}

// IRQPending implements IRQSource.
func (m *Mapper004) IRQPending() bool { return m.irqPending }

// CurrentMirrorMode implements MirrorSource.
func (m *Mapper004) CurrentMirrorMode() MirrorMode { return m.mirror }

// MarshalRegisters implements RegisterCodec.
func (m *Mapper004) MarshalRegisters() []byte {
	b := make([]byte, 0, 16)
	b = append(b, m.bankSelect, m.prgMode, m.chrMode)
	b = append(b, m.registers[:]...)
	b = append(b, uint8(m.mirror), boolByte(m.prgRAMEnabled), boolByte(m.prgRAMWriteProtect))
	b = append(b, m.irqLatch, m.irqCounter, boolByte(m.irqEnabled), boolByte(m.irqPending), boolByte(m.irqReloadFlag))
	return b
}

// UnmarshalRegisters implements RegisterCodec.
func (m *Mapper004) UnmarshalRegisters(data []byte) error {
	if len(data) < 16 {
		return errShortRegisterState
	}
	m.bankSelect, m.prgMode, m.chrMode = data[0], data[1], data[2]
	copy(m.registers[:], data[3:11])
	m.mirror = MirrorMode(data[11])
	m.prgRAMEnabled = data[12] != 0
	m.prgRAMWriteProtect = data[13] != 0
	m.irqLatch = data[14]
	m.irqCounter = data[15]
	if len(data) >= 19 {
		m.irqEnabled = data[16] != 0
		m.irqPending = data[17] != 0
		m.irqReloadFlag = data[18] != 0
	}
	return nil
}
