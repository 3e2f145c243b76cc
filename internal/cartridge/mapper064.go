package cartridge

// Mapper064 implements Rambo-1 (mapper 64): an MMC3 derivative used by
// Dragon Ninja (Bad Dudes) and Summer Carnival '92: Recca. On top of MMC3's
// command/data bank-select pair and mapper-controlled mirroring it adds two
// extra CHR registers (R8/R9) with a mode bit selecting 1 KiB CHR
// granularity for the 0x0000-0x0FFF window, a third switchable PRG register
// (R15) so all three 8 KiB windows below 0xE000 are game-controlled, and an
// IRQ mode bit: bit 0 of the 0xC001 reload write selects whether the
// counter is clocked per scanline or per four CPU cycles.
type Mapper064 struct {
	cart     *Cartridge
	prgBanks uint8
	cache    *BankCache

	bankSelect uint8 // target register for the next data write (0-9, 15)
	prgMode    uint8 // bit6 of the command byte
	chrMode    uint8 // bit7 of the command byte (A12 inversion)
	mode1K     bool  // bit5 of the command byte: 1 KiB granularity via R8/R9

	// R0-R9 as on MMC3 plus R8/R9; index 15 is the third PRG register.
	registers [16]uint8

	mirror MirrorMode

	prgRAMEnabled      bool
	prgRAMWriteProtect bool

	irqLatch      uint8
	irqCounter    uint8
	irqMode       uint8  // 0 = scanline-clocked, 1 = CPU-cycle-clocked
	irqCycleAccum uint64 // CPU cycles not yet folded into counter clocks
	irqEnabled    bool
	irqPending    bool
	irqReloadFlag bool
}

// NewMapper064 creates a new Rambo-1 mapper with the power-up bank layout
// the hardware presents: first 24 KiB of PRG in order, CHR banks 0/2/4-7.
func NewMapper064(cart *Cartridge) *Mapper064 {
	m := &Mapper064{
		cart:          cart,
		prgBanks:      uint8(len(cart.prgROM) / 0x2000),
		cache:         cart.cache,
		mirror:        cart.mirror,
		prgRAMEnabled: true,
	}
	m.registers[1] = 2
	m.registers[2] = 4
	m.registers[3] = 5
	m.registers[4] = 6
	m.registers[5] = 7
	m.registers[7] = 1
	m.registers[15] = 2
	return m
}

func (m *Mapper064) lastBank() uint8 {
	if m.prgBanks >= 1 {
		return m.prgBanks - 1
	}
	return 0
}

func (m *Mapper064) readPRGBank(bank uint8, offsetInBank uint16) uint8 {
	bankData, err := m.cache.CachePRG8K(int(bank))
	if err != nil {
		return 0
	}
	return bankData[offsetInBank]
}

// ReadPRG implements Mapper.
func (m *Mapper064) ReadPRG(address uint16) uint8 {
	switch {
	case address >= 0x6000 && address < 0x8000:
		if m.prgRAMEnabled {
			return m.cart.sram[address-0x6000]
		}
		return 0
	case address >= 0x8000 && address < 0xA000:
		bank := m.registers[6]
		if m.prgMode == 1 {
			bank = m.registers[15]
		}
		return m.readPRGBank(bank, address-0x8000)
	case address >= 0xA000 && address < 0xC000:
		return m.readPRGBank(m.registers[7], address-0xA000)
	case address >= 0xC000 && address < 0xE000:
		bank := m.registers[15]
		if m.prgMode == 1 {
			bank = m.registers[6]
		}
		return m.readPRGBank(bank, address-0xC000)
	case address >= 0xE000:
		return m.readPRGBank(m.lastBank(), address-0xE000)
	}
	return 0
}

// WritePRG implements Mapper.
func (m *Mapper064) WritePRG(address uint16, value uint8) {
	switch {
	case address >= 0x6000 && address < 0x8000:
		if m.prgRAMEnabled && !m.prgRAMWriteProtect {
			m.cart.sram[address-0x6000] = value
		}

	case address >= 0x8000 && address < 0xA000:
		if address&1 == 0 {
			m.bankSelect = value & 0x0F
			m.mode1K = (value & 0x20) != 0
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
			// Reload, and bit 0 picks the counter's clock source: 0 counts
			// scanlines, 1 counts CPU cycles through the /4 prescaler.
			m.irqMode = value & 1
			m.irqCounter = 0
			m.irqReloadFlag = true
			m.irqCycleAccum = 0
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

func (m *Mapper064) lowCHRBankAndOffset(address uint16) (bank uint8, offset uint32) {
	if m.mode1K {
		switch {
		case address < 0x0400:
			return m.registers[8], uint32(address)
		case address < 0x0800:
			return m.registers[9], uint32(address - 0x0400)
		case address < 0x0C00:
			return m.registers[0] &^ 1, uint32(address - 0x0800)
		default:
			return (m.registers[0] &^ 1) | 1, uint32(address - 0x0C00)
		}
	}
	if address < 0x0800 {
		return m.registers[0] &^ 1, uint32(address)
	}
	return m.registers[1] &^ 1, uint32(address - 0x0800)
}

func (m *Mapper064) chrBankAndOffset(address uint16) (bank uint8, offset uint32) {
	lowHalf := address < 0x1000
	if m.chrMode == 1 {
		lowHalf = !lowHalf
	}
	a := address
	if !lowHalf {
		a -= 0x1000
	}
	if lowHalf {
		return m.lowCHRBankAndOffset(a)
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
func (m *Mapper064) ReadCHR(address uint16) uint8 {
	bank, offset := m.chrBankAndOffset(address)
	bankData, err := m.cache.CacheCHR1K(int(bank) + int(offset/0x400))
	if err != nil {
		return 0
	}
	return bankData[offset%0x400]
}

// WriteCHR implements Mapper.
func (m *Mapper064) WriteCHR(address uint16, value uint8) {
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

// clockIRQCounter is the shared reload/decrement/fire step driven by either
// the scanline clock or the CPU-cycle prescaler, depending on irqMode.
func (m *Mapper064) clockIRQCounter() {
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

// ScanlineClock implements ScanlineClocker, reusing mapper004's counter
// approximation. Inert while the IRQ mode bit selects CPU-cycle clocking.
func (m *Mapper064) ScanlineClock() {
	if m.irqMode != 0 {
		return
	}
	m.clockIRQCounter()
}

// CPUClock implements CPUClocker: in cycle mode the counter is clocked once
// every four CPU cycles.
func (m *Mapper064) CPUClock(cycles uint64) {
	if m.irqMode != 1 {
		return
	}
	m.irqCycleAccum += cycles
	for m.irqCycleAccum >= 4 {
		m.irqCycleAccum -= 4
		m.clockIRQCounter()
	}
}

// IRQPending implements IRQSource.
func (m *Mapper064) IRQPending() bool { return m.irqPending }

// CurrentMirrorMode implements MirrorSource.
func (m *Mapper064) CurrentMirrorMode() MirrorMode { return m.mirror }

// MarshalRegisters implements RegisterCodec.
func (m *Mapper064) MarshalRegisters() []byte {
	b := make([]byte, 0, 29)
	b = append(b, m.bankSelect, m.prgMode, m.chrMode, boolByte(m.mode1K))
	b = append(b, m.registers[:]...)
	b = append(b, uint8(m.mirror), boolByte(m.prgRAMEnabled), boolByte(m.prgRAMWriteProtect))
	b = append(b, m.irqLatch, m.irqCounter, m.irqMode)
	b = append(b, boolByte(m.irqEnabled), boolByte(m.irqPending), boolByte(m.irqReloadFlag))
	return b
}

// UnmarshalRegisters implements RegisterCodec.
func (m *Mapper064) UnmarshalRegisters(data []byte) error {
	if len(data) < 29 {
		return errShortRegisterState
	}
	m.bankSelect, m.prgMode, m.chrMode = data[0], data[1], data[2]
	m.mode1K = data[3] != 0
	copy(m.registers[:], data[4:20])
	m.mirror = MirrorMode(data[20])
	m.prgRAMEnabled = data[21] != 0
	m.prgRAMWriteProtect = data[22] != 0
	m.irqLatch = data[23]
	m.irqCounter = data[24]
	m.irqMode = data[25]
	m.irqEnabled = data[26] != 0
	m.irqPending = data[27] != 0
	m.irqReloadFlag = data[28] != 0
	m.irqCycleAccum = 0
	return nil
}
