package cartridge

// Mapper079 implements AVE/American Video Entertainment's NINA-03/06 board
// (mapper 79, Krazy Kreatures, Deathbots, Tiles of Fate): a single register
// mirrored across 0x4100-0x5FFF (the unlicensed board decodes the CPU's
// M2/R/W lines rather than the full address bus, so writes land anywhere in
// that range). Bit 3 selects one of two 32 KiB PRG banks; bits 0-2 select
// one of eight 8 KiB CHR banks.
type Mapper079 struct {
	cart     *Cartridge
	prgBanks uint8 // 32 KiB PRG banks
	chrBanks uint8 // 8 KiB CHR banks
	prgBank  uint8
	chrBank  uint8
}

// NewMapper079 creates a new NINA-03/06 mapper.
func NewMapper079(cart *Cartridge) *Mapper079 {
	return &Mapper079{
		cart:     cart,
		prgBanks: uint8(len(cart.prgROM) / 0x8000),
		chrBanks: uint8(len(cart.chrROM) / 0x2000),
	}
}

// ReadPRG implements Mapper.
func (m *Mapper079) ReadPRG(address uint16) uint8 {
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
func (m *Mapper079) WritePRG(address uint16, value uint8) {
	switch {
	case address >= 0x6000 && address < 0x8000:
		m.cart.sram[address-0x6000] = value
	case address >= 0x4100 && address < 0x6000:
		if m.chrBanks > 0 {
			m.chrBank = value & 0x07 & (m.chrBanks - 1)
		}
		if m.prgBanks > 0 {
			m.prgBank = (value >> 3) & 0x01 & (m.prgBanks - 1)
		}
	}
}

// ReadCHR implements Mapper.
func (m *Mapper079) ReadCHR(address uint16) uint8 {
	offset := uint32(m.chrBank)*0x2000 + uint32(address)
	if int(offset) < len(m.cart.chrROM) {
		return m.cart.chrROM[offset]
	}
	return 0
}

// WriteCHR implements Mapper. NINA-03/06 CHR is always ROM.
func (m *Mapper079) WriteCHR(address uint16, value uint8) {}

// MarshalRegisters implements RegisterCodec.
func (m *Mapper079) MarshalRegisters() []byte {
	return []byte{m.prgBank, m.chrBank}
}

// UnmarshalRegisters implements RegisterCodec.
func (m *Mapper079) UnmarshalRegisters(data []byte) error {
	if len(data) < 2 {
		return errShortRegisterState
	}
	m.prgBank, m.chrBank = data[0], data[1]
	return nil
}
