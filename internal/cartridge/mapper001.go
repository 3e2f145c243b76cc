package cartridge

// Mapper001 implements MMC1 (mapper 1): a 5-bit serial shift register
// clocked by writes to 0x8000-0xFFFF, committing to one of four targets
// (control, CHR bank 0, CHR bank 1, PRG bank) selected by address bits
// 13-14. Used by Zelda, Metroid, Mega Man 2, and roughly a quarter of all
// licensed carts.
type Mapper001 struct {
	cart *Cartridge

	prgBanks uint8 // number of 16 KiB PRG banks
	chrBanks uint8 // number of 4 KiB CHR banks

	shiftRegister uint8
	shiftCount    uint8

	control uint8 // mirroring (b0-1), PRG mode (b2-3), CHR mode (b4)
	chrBank0 uint8
	chrBank1 uint8
	prgBank  uint8

	prgRAMEnabled bool
}

// NewMapper001 creates a new MMC1 mapper.
func NewMapper001(cart *Cartridge) *Mapper001 {
	return &Mapper001{
		cart:          cart,
		prgBanks:      uint8(len(cart.prgROM) / 0x4000),
		chrBanks:      uint8(len(cart.chrROM) / 0x1000),
		shiftRegister: 0x10,
		control:       0x0C, // PRG mode 3 (fix last bank) on power-up
		prgRAMEnabled: true,
	}
}

func (m *Mapper001) mirroring() uint8 { return m.control & 0x03 }
func (m *Mapper001) prgMode() uint8   { return (m.control >> 2) & 0x03 }
func (m *Mapper001) chrMode() uint8   { return (m.control >> 4) & 0x01 }

// CurrentMirrorMode implements MirrorSource.
func (m *Mapper001) CurrentMirrorMode() MirrorMode {
	switch m.mirroring() {
	case 0:
		return MirrorSingleScreen0
	case 1:
		return MirrorSingleScreen1
	case 2:
		return MirrorVertical
	default:
		return MirrorHorizontal
	}
}

// ReadPRG implements Mapper.
func (m *Mapper001) ReadPRG(address uint16) uint8 {
	switch {
	case address >= 0x6000 && address < 0x8000:
		if m.prgRAMEnabled {
			return m.cart.sram[address-0x6000]
		}
		return 0

	case address >= 0x8000 && address < 0xC000:
		var bank uint8
		switch m.prgMode() {
		case 0, 1:
			bank = m.prgBank & 0xFE
		case 2:
			bank = 0
		default:
			bank = m.prgBank
		}
		offset := uint32(bank)*0x4000 + uint32(address-0x8000)
		if int(offset) < len(m.cart.prgROM) {
			return m.cart.prgROM[offset]
		}

	case address >= 0xC000:
		var bank uint8
		switch m.prgMode() {
		case 0, 1:
			bank = (m.prgBank & 0xFE) | 1
		case 2:
			bank = m.prgBank
		default:
			if m.prgBanks > 0 {
				bank = m.prgBanks - 1
			}
		}
		offset := uint32(bank)*0x4000 + uint32(address-0xC000)
		if int(offset) < len(m.cart.prgROM) {
			return m.cart.prgROM[offset]
		}
	}
	return 0
}

// WritePRG implements Mapper.
func (m *Mapper001) WritePRG(address uint16, value uint8) {
	switch {
	case address >= 0x6000 && address < 0x8000:
		if m.prgRAMEnabled {
			m.cart.sram[address-0x6000] = value
		}

	case address >= 0x8000:
		if (value & 0x80) != 0 {
			m.shiftRegister = 0x10
			m.shiftCount = 0
			m.control |= 0x0C // reset to PRG mode 3
			return
		}

		m.shiftRegister = (m.shiftRegister >> 1) | ((value & 1) << 4)
		m.shiftCount++

		if m.shiftCount == 5 {
			m.commit(address, m.shiftRegister)
			m.shiftRegister = 0x10
			m.shiftCount = 0
		}
	}
}

func (m *Mapper001) commit(address uint16, value uint8) {
	switch {
	case address < 0xA000:
		m.control = value & 0x1F
	case address < 0xC000:
		m.chrBank0 = value & 0x1F
	case address < 0xE000:
		m.chrBank1 = value & 0x1F
	default:
		m.prgBank = value & 0x0F
		m.prgRAMEnabled = (value & 0x10) == 0
	}
}

func (m *Mapper001) chrOffset(address uint16) (uint32, bool) {
	if len(m.cart.chrROM) == 0 {
		return 0, false
	}
	var bank uint8
	var offset uint32
	if m.chrMode() == 0 {
		bank = m.chrBank0 &^ 1
		if address >= 0x1000 {
			bank |= 1
		}
		offset = uint32(bank)*0x1000 + uint32(address&0x0FFF)
	} else {
		if address < 0x1000 {
			bank = m.chrBank0
			offset = uint32(bank)*0x1000 + uint32(address)
		} else {
			bank = m.chrBank1
			offset = uint32(bank)*0x1000 + uint32(address-0x1000)
		}
	}
	if int(offset) >= len(m.cart.chrROM) {
		return 0, false
	}
	return offset, true
}

// ReadCHR implements Mapper.
func (m *Mapper001) ReadCHR(address uint16) uint8 {
	if offset, ok := m.chrOffset(address); ok {
		return m.cart.chrROM[offset]
	}
	return 0
}

// WriteCHR implements Mapper.
func (m *Mapper001) WriteCHR(address uint16, value uint8) {
	if !m.cart.hasCHRRAM {
		return
	}
	if offset, ok := m.chrOffset(address); ok {
		m.cart.chrROM[offset] = value
	}
}

// MarshalRegisters implements RegisterCodec.
func (m *Mapper001) MarshalRegisters() []byte {
	ram := uint8(0)
	if m.prgRAMEnabled {
		ram = 1
	}
	return []byte{m.shiftRegister, m.shiftCount, m.control, m.chrBank0, m.chrBank1, m.prgBank, ram}
}

// UnmarshalRegisters implements RegisterCodec.
func (m *Mapper001) UnmarshalRegisters(data []byte) error {
	if len(data) < 7 {
		return errShortRegisterState
	}
	m.shiftRegister = data[0]
	m.shiftCount = data[1]
	m.control = data[2]
	m.chrBank0 = data[3]
	m.chrBank1 = data[4]
	m.prgBank = data[5]
	m.prgRAMEnabled = data[6] != 0
	return nil
}
