package cartridge

// Mapper003 implements CNROM (mapper 3): fixed PRG-ROM (mirrored from 16 KiB
// to the full 32 KiB window when the cart has only one bank) and a single
// switchable 8 KiB CHR-ROM bank selected by any write to 0x8000-0xFFFF. Used
// by Solomon's Key, Gradius, Adventures of Lolo.
type Mapper003 struct {
	cart     *Cartridge
	prgBanks uint8
	chrBanks uint8
	chrBank  uint8
}

// NewMapper003 creates a new CNROM mapper.
func NewMapper003(cart *Cartridge) *Mapper003 {
	return &Mapper003{
		cart:     cart,
		prgBanks: uint8(len(cart.prgROM) / 0x4000),
		chrBanks: uint8(len(cart.chrROM) / 0x2000),
	}
}

// ReadPRG implements Mapper.
func (m *Mapper003) ReadPRG(address uint16) uint8 {
	switch {
	case address >= 0x6000 && address < 0x8000:
		return m.cart.sram[address-0x6000]
	case address >= 0x8000:
		offset := uint32(address - 0x8000)
		if m.prgBanks == 1 {
			offset %= 0x4000
		}
		if int(offset) < len(m.cart.prgROM) {
			return m.cart.prgROM[offset]
		}
	}
	return 0
}

// WritePRG implements Mapper. Any write selects the CHR bank; CNROM's PRG
// is not switchable.
func (m *Mapper003) WritePRG(address uint16, value uint8) {
	switch {
	case address >= 0x6000 && address < 0x8000:
		m.cart.sram[address-0x6000] = value
	case address >= 0x8000:
		if m.chrBanks > 0 {
			m.chrBank = value & (m.chrBanks - 1)
		}
	}
}

// ReadCHR implements Mapper.
func (m *Mapper003) ReadCHR(address uint16) uint8 {
	offset := uint32(m.chrBank)*0x2000 + uint32(address)
	if int(offset) < len(m.cart.chrROM) {
		return m.cart.chrROM[offset]
	}
	return 0
}

// WriteCHR implements Mapper. CNROM's CHR is ROM; writes are ignored.
func (m *Mapper003) WriteCHR(address uint16, value uint8) {}

// MarshalRegisters implements RegisterCodec.
func (m *Mapper003) MarshalRegisters() []byte {
	return []byte{m.chrBank}
}

// UnmarshalRegisters implements RegisterCodec.
func (m *Mapper003) UnmarshalRegisters(data []byte) error {
	if len(data) < 1 {
		return errShortRegisterState
	}
	m.chrBank = data[0]
	return nil
}
