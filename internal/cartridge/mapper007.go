package cartridge

// Mapper007 implements AxROM (mapper 7): a single switchable 32 KiB PRG
// bank selected by bits 0-2 of any write to 0x8000-0xFFFF, fixed 8 KiB
// CHR-RAM, and single-screen mirroring controlled by bit 4 of that same
// write. Used by Battletoads, Wizards & Warriors, Rocket Ranger.
type Mapper007 struct {
	cart     *Cartridge
	prgBanks uint8
	prgBank  uint8
	mirror   MirrorMode
}

// NewMapper007 creates a new AxROM mapper.
func NewMapper007(cart *Cartridge) *Mapper007 {
	return &Mapper007{
		cart:     cart,
		prgBanks: uint8(len(cart.prgROM) / 0x8000),
		mirror:   MirrorSingleScreen0,
	}
}

// CurrentMirrorMode implements MirrorSource.
func (m *Mapper007) CurrentMirrorMode() MirrorMode { return m.mirror }

// ReadPRG implements Mapper.
func (m *Mapper007) ReadPRG(address uint16) uint8 {
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
func (m *Mapper007) WritePRG(address uint16, value uint8) {
	switch {
	case address >= 0x6000 && address < 0x8000:
		m.cart.sram[address-0x6000] = value
	case address >= 0x8000:
		if m.prgBanks > 0 {
			m.prgBank = value & 0x07 & (m.prgBanks - 1)
		}
		if value&0x10 != 0 {
			m.mirror = MirrorSingleScreen1
		} else {
			m.mirror = MirrorSingleScreen0
		}
	}
}

// ReadCHR implements Mapper. AxROM always uses 8 KiB of CHR-RAM.
func (m *Mapper007) ReadCHR(address uint16) uint8 {
	if int(address) < len(m.cart.chrROM) {
		return m.cart.chrROM[address]
	}
	return 0
}

// WriteCHR implements Mapper.
func (m *Mapper007) WriteCHR(address uint16, value uint8) {
	if int(address) < len(m.cart.chrROM) {
		m.cart.chrROM[address] = value
	}
}

// MarshalRegisters implements RegisterCodec.
func (m *Mapper007) MarshalRegisters() []byte {
	return []byte{m.prgBank, uint8(m.mirror)}
}

// UnmarshalRegisters implements RegisterCodec.
func (m *Mapper007) UnmarshalRegisters(data []byte) error {
	if len(data) < 2 {
		return errShortRegisterState
	}
	m.prgBank = data[0]
	m.mirror = MirrorMode(data[1])
	return nil
}
