package cartridge

// Mapper066 implements GxROM (mapper 66, Dragon Power, Doraemon) and its
// mapper 140 sibling (Bio Senshi Dan). Both pack a 2-bit PRG bank select
// (bits 4-5) and a 2-bit CHR bank select (bits 0-1) into a single register;
// they differ only in where that register is addressable: mapper 66 at any
// 0x8000-0xFFFF write, mapper 140 at any 0x6000-0x7FFF write (it has no
// PRG-RAM to conflict with).
type Mapper066 struct {
	cart           *Cartridge
	prgBanks       uint8
	chrBanks       uint8
	prgBank        uint8
	chrBank        uint8
	registerAt6000 bool // true for mapper 140
}

// NewMapper066 creates a new GxROM mapper.
func NewMapper066(cart *Cartridge) *Mapper066 {
	return &Mapper066{
		cart:     cart,
		prgBanks: uint8(len(cart.prgROM) / 0x8000),
		chrBanks: uint8(len(cart.chrROM) / 0x2000),
	}
}

// NewMapper140 creates the mapper-140 variant (register at 0x6000-0x7FFF).
func NewMapper140(cart *Cartridge) *Mapper066 {
	m := NewMapper066(cart)
	m.registerAt6000 = true
	return m
}

// ReadPRG implements Mapper.
func (m *Mapper066) ReadPRG(address uint16) uint8 {
	if !m.registerAt6000 && address >= 0x6000 && address < 0x8000 {
		return m.cart.sram[address-0x6000]
	}
	if address >= 0x8000 {
		offset := uint32(m.prgBank)*0x8000 + uint32(address-0x8000)
		if int(offset) < len(m.cart.prgROM) {
			return m.cart.prgROM[offset]
		}
	}
	return 0
}

// WritePRG implements Mapper.
func (m *Mapper066) WritePRG(address uint16, value uint8) {
	inRegisterRange := address >= 0x8000
	if m.registerAt6000 {
		inRegisterRange = address >= 0x6000 && address < 0x8000
	} else if address >= 0x6000 && address < 0x8000 {
		m.cart.sram[address-0x6000] = value
		return
	}
	if !inRegisterRange {
		return
	}
	if m.prgBanks > 0 {
		m.prgBank = (value >> 4) & 0x03 & (m.prgBanks - 1)
	}
	if m.chrBanks > 0 {
		m.chrBank = value & 0x03 & (m.chrBanks - 1)
	}
}

// ReadCHR implements Mapper.
func (m *Mapper066) ReadCHR(address uint16) uint8 {
	offset := uint32(m.chrBank)*0x2000 + uint32(address)
	if int(offset) < len(m.cart.chrROM) {
		return m.cart.chrROM[offset]
	}
	return 0
}

// WriteCHR implements Mapper. GxROM CHR is always ROM.
func (m *Mapper066) WriteCHR(address uint16, value uint8) {}

// MarshalRegisters implements RegisterCodec.
func (m *Mapper066) MarshalRegisters() []byte {
	return []byte{m.prgBank, m.chrBank}
}

// UnmarshalRegisters implements RegisterCodec.
func (m *Mapper066) UnmarshalRegisters(data []byte) error {
	if len(data) < 2 {
		return errShortRegisterState
	}
	m.prgBank, m.chrBank = data[0], data[1]
	return nil
}
