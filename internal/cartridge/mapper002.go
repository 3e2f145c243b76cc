package cartridge

// Mapper002 implements UNROM/UxROM (mapper 2): a 16 KiB switchable PRG bank
// at 0x8000, a fixed last 16 KiB bank at 0xC000, and 8 KiB of CHR-RAM. Used
// by Mega Man, Castlevania, Duck Tales.
type Mapper002 struct {
	cart     *Cartridge
	prgBanks uint8
	prgBank  uint8
}

// NewMapper002 creates a new UNROM mapper.
func NewMapper002(cart *Cartridge) *Mapper002 {
	return &Mapper002{
		cart:     cart,
		prgBanks: uint8(len(cart.prgROM) / 0x4000),
	}
}

// ReadPRG implements Mapper.
func (m *Mapper002) ReadPRG(address uint16) uint8 {
	switch {
	case address >= 0x6000 && address < 0x8000:
		return m.cart.sram[address-0x6000]
	case address >= 0x8000 && address < 0xC000:
		offset := uint32(m.prgBank)*0x4000 + uint32(address-0x8000)
		if int(offset) < len(m.cart.prgROM) {
			return m.cart.prgROM[offset]
		}
	case address >= 0xC000:
		var lastBank uint8
		if m.prgBanks > 0 {
			lastBank = m.prgBanks - 1
		}
		offset := uint32(lastBank)*0x4000 + uint32(address-0xC000)
		if int(offset) < len(m.cart.prgROM) {
			return m.cart.prgROM[offset]
		}
	}
	return 0
}

// WritePRG implements Mapper.
func (m *Mapper002) WritePRG(address uint16, value uint8) {
	switch {
	case address >= 0x6000 && address < 0x8000:
		m.cart.sram[address-0x6000] = value
	case address >= 0x8000:
		if m.prgBanks > 0 {
			m.prgBank = value & (m.prgBanks - 1)
		}
	}
}

// ReadCHR implements Mapper. UNROM always uses 8 KiB of CHR-RAM.
func (m *Mapper002) ReadCHR(address uint16) uint8 {
	if int(address) < len(m.cart.chrROM) {
		return m.cart.chrROM[address]
	}
	return 0
}

// WriteCHR implements Mapper.
func (m *Mapper002) WriteCHR(address uint16, value uint8) {
	if int(address) < len(m.cart.chrROM) {
		m.cart.chrROM[address] = value
	}
}

// MarshalRegisters implements RegisterCodec.
func (m *Mapper002) MarshalRegisters() []byte {
	return []byte{m.prgBank}
}

// UnmarshalRegisters implements RegisterCodec.
func (m *Mapper002) UnmarshalRegisters(data []byte) error {
	if len(data) < 1 {
		return errShortRegisterState
	}
	m.prgBank = data[0]
	return nil
}
