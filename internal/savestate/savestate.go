// Package savestate captures and restores the subset of emulator state
// needed to resume execution from an arbitrary point: CPU registers and
// RAM, PPU registers and video memory, and per-cartridge mapper state. APU
// state is intentionally not part of the payload; a freshly reset APU
// resynchronizes against the restored CPU within a frame or two, and
// skipping it keeps the format stable across the APU's internal layout
// changing.
package savestate

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"gones/internal/bus"
	"gones/internal/memory"
	"gones/internal/neserr"
)

// formatVersion identifies the chunk layout below. Bump it if a chunk's
// payload shape changes in a way old readers can't tolerate.
const formatVersion = 1

var magic = [4]byte{'G', 'N', 'S', 'S'}

// CPUSnapshot is the captured 6502 state: registers, status flags packed as
// a byte, elapsed cycle count, and the 2 KiB of work RAM.
type CPUSnapshot struct {
	PC      uint16
	A, X, Y uint8
	SP      uint8
	Status  uint8
	Cycles  uint64
	RAM     [0x800]uint8
	OpenBus uint8
}

// PPUSnapshot is the captured PPU: its register/scroll/latch state, OAM,
// the four logical nametables, palette RAM, and the mirroring mode in
// effect (which may differ from the cartridge header if a mapper is
// switching it at runtime).
type PPUSnapshot struct {
	PPUCtrl    uint8
	PPUMask    uint8
	PPUStatus  uint8
	OAMAddr    uint8
	PPUScroll  uint8
	PPUAddrBuf uint8
	PPUData    uint8
	ReadBuffer uint8
	V, T       uint16
	X          uint8
	W          bool
	Scanline   int32
	Cycle      int32
	FrameCount uint64
	OddFrame   bool
	Sprite0Hit bool
	SpriteOver bool
	OAM        [256]uint8
	VRAM       [0x1000]uint8
	PaletteRAM [32]uint8
	MirrorMode uint8
}

// CartSnapshot is the captured cartridge: battery/work RAM, CHR-RAM if the
// board has any, and the mapper's own register file via its RegisterCodec.
type CartSnapshot struct {
	MapperID  uint8
	PRGBanks  int32
	CHRBanks  int32
	WRAM      [0x2000]uint8
	HasCHRRAM bool
	CHRRAM    []uint8
	Registers []byte
}

// Snapshot is a complete, restorable point-in-time capture of a running
// system.
type Snapshot struct {
	FrameCount uint64
	CycleCount uint64
	CPU        CPUSnapshot
	PPU        PPUSnapshot
	Cart       CartSnapshot
}

// Capture reads the live state out of b and returns an independent
// snapshot. b.LoadCartridge must have been called first; Capture returns an
// error if no cartridge is loaded, since a state with no mapper registers
// to restore against isn't useful.
func Capture(b *bus.Bus) (*Snapshot, error) {
	if b.Cart == nil {
		return nil, neserr.New(neserr.SaveStateIncompatible, "no cartridge loaded")
	}

	snap := &Snapshot{
		FrameCount: b.GetFrameCount(),
		CycleCount: b.GetCycleCount(),
	}

	snap.CPU = CPUSnapshot{
		PC:     b.CPU.PC,
		A:      b.CPU.A,
		X:      b.CPU.X,
		Y:      b.CPU.Y,
		SP:     b.CPU.SP,
		Status: b.CPU.GetStatusByte(),
		Cycles: b.CPU.Cycles(),
	}
	if b.Memory != nil {
		snap.CPU.RAM = b.Memory.GetRAM()
		snap.CPU.OpenBus = b.Memory.GetOpenBus()
	}

	ppuState := b.PPU.GetState()
	snap.PPU = PPUSnapshot{
		PPUCtrl:    ppuState.PPUCtrl,
		PPUMask:    ppuState.PPUMask,
		PPUStatus:  ppuState.PPUStatus,
		OAMAddr:    ppuState.OAMAddr,
		PPUScroll:  ppuState.PPUScroll,
		PPUAddrBuf: ppuState.PPUAddrBuf,
		PPUData:    ppuState.PPUData,
		ReadBuffer: ppuState.ReadBuffer,
		V:          ppuState.V,
		T:          ppuState.T,
		X:          ppuState.X,
		W:          ppuState.W,
		Scanline:   int32(ppuState.Scanline),
		Cycle:      int32(ppuState.Cycle),
		FrameCount: ppuState.FrameCount,
		OddFrame:   ppuState.OddFrame,
		Sprite0Hit: ppuState.Sprite0Hit,
		SpriteOver: ppuState.SpriteOver,
		OAM:        b.PPU.GetOAM(),
	}
	if ppuMem := b.PPU.GetMemory(); ppuMem != nil {
		snap.PPU.VRAM = ppuMem.GetVRAM()
		snap.PPU.PaletteRAM = ppuMem.GetPaletteRAM()
		snap.PPU.MirrorMode = uint8(ppuMem.GetMirrorMode())
	}

	mapperID, prgBanks, chrBanks := b.Cart.Fingerprint()
	snap.Cart = CartSnapshot{
		MapperID:  mapperID,
		PRGBanks:  int32(prgBanks),
		CHRBanks:  int32(chrBanks),
		WRAM:      b.Cart.GetWRAM(),
		HasCHRRAM: b.Cart.HasCHRRAM(),
		Registers: b.Cart.MarshalRegisters(),
	}
	if snap.Cart.HasCHRRAM {
		chrRAM := b.Cart.GetCHRRAM()
		snap.Cart.CHRRAM = make([]uint8, len(chrRAM))
		copy(snap.Cart.CHRRAM, chrRAM)
	}

	return snap, nil
}

// Restore applies the snapshot to b. It refuses to apply a state captured
// against a different mapper/PRG/CHR layout, since restoring mismatched
// mapper registers onto the wrong board would read garbage back rather than
// fail cleanly.
func (s *Snapshot) Restore(b *bus.Bus) error {
	if b.Cart == nil {
		return neserr.New(neserr.SaveStateIncompatible, "no cartridge loaded")
	}
	mapperID, prgBanks, chrBanks := b.Cart.Fingerprint()
	if mapperID != s.Cart.MapperID || int32(prgBanks) != s.Cart.PRGBanks || int32(chrBanks) != s.Cart.CHRBanks {
		return neserr.New(neserr.SaveStateIncompatible,
			"save state mapper %d (%d/%d banks) does not match loaded cartridge mapper %d (%d/%d banks)",
			s.Cart.MapperID, s.Cart.PRGBanks, s.Cart.CHRBanks, mapperID, prgBanks, chrBanks)
	}

	b.CPU.PC = s.CPU.PC
	b.CPU.A = s.CPU.A
	b.CPU.X = s.CPU.X
	b.CPU.Y = s.CPU.Y
	b.CPU.SP = s.CPU.SP
	b.CPU.SetStatusByte(s.CPU.Status)
	b.CPU.SetCycles(s.CPU.Cycles)
	if b.Memory != nil {
		b.Memory.SetRAM(s.CPU.RAM)
		b.Memory.SetOpenBus(s.CPU.OpenBus)
	}

	ppuState := b.PPU.GetState()
	ppuState.PPUCtrl = s.PPU.PPUCtrl
	ppuState.PPUMask = s.PPU.PPUMask
	ppuState.PPUStatus = s.PPU.PPUStatus
	ppuState.OAMAddr = s.PPU.OAMAddr
	ppuState.PPUScroll = s.PPU.PPUScroll
	ppuState.PPUAddrBuf = s.PPU.PPUAddrBuf
	ppuState.PPUData = s.PPU.PPUData
	ppuState.ReadBuffer = s.PPU.ReadBuffer
	ppuState.V = s.PPU.V
	ppuState.T = s.PPU.T
	ppuState.X = s.PPU.X
	ppuState.W = s.PPU.W
	ppuState.Scanline = int(s.PPU.Scanline)
	ppuState.Cycle = int(s.PPU.Cycle)
	ppuState.FrameCount = s.PPU.FrameCount
	ppuState.OddFrame = s.PPU.OddFrame
	ppuState.Sprite0Hit = s.PPU.Sprite0Hit
	ppuState.SpriteOver = s.PPU.SpriteOver
	b.PPU.SetState(ppuState)
	b.PPU.SetOAM(s.PPU.OAM)
	if ppuMem := b.PPU.GetMemory(); ppuMem != nil {
		ppuMem.SetVRAM(s.PPU.VRAM)
		ppuMem.SetPaletteRAM(s.PPU.PaletteRAM)
		ppuMem.SetMirrorMode(memory.MirrorMode(s.PPU.MirrorMode))
	}

	b.Cart.SetWRAM(s.Cart.WRAM)
	if s.Cart.HasCHRRAM {
		b.Cart.SetCHRRAM(s.Cart.CHRRAM)
	}
	if err := b.Cart.UnmarshalRegisters(s.Cart.Registers); err != nil {
		return fmt.Errorf("restoring mapper registers: %w", err)
	}

	return nil
}

// chunk tags, four ASCII bytes each.
var (
	tagMeta = [4]byte{'M', 'E', 'T', 'A'}
	tagCPU  = [4]byte{'C', 'P', 'U', ' '}
	tagRAM  = [4]byte{'R', 'A', 'M', ' '}
	tagPPU  = [4]byte{'P', 'P', 'U', ' '}
	tagOAM  = [4]byte{'O', 'A', 'M', ' '}
	tagVRAM = [4]byte{'V', 'R', 'A', 'M'}
	tagPAL  = [4]byte{'P', 'A', 'L', ' '}
	tagCART = [4]byte{'C', 'A', 'R', 'T'}
	tagWRAM = [4]byte{'W', 'R', 'A', 'M'}
	tagCHRR = [4]byte{'C', 'H', 'R', 'R'}
	tagREGS = [4]byte{'R', 'E', 'G', 'S'}
)

func writeChunk(buf *bytes.Buffer, tag [4]byte, payload []byte) {
	buf.Write(tag[:])
	binary.Write(buf, binary.LittleEndian, uint32(len(payload)))
	buf.Write(payload)
}

// Encode serializes the snapshot to a self-describing, chunk-based byte
// stream: a magic/version header followed by tag-length-payload chunks.
// Unknown chunks are skipped on decode, so the format can grow new chunks
// without breaking readers that don't need them.
func (s *Snapshot) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(magic[:])
	buf.WriteByte(formatVersion)

	var meta bytes.Buffer
	binary.Write(&meta, binary.LittleEndian, s.FrameCount)
	binary.Write(&meta, binary.LittleEndian, s.CycleCount)
	binary.Write(&meta, binary.LittleEndian, s.Cart.MapperID)
	binary.Write(&meta, binary.LittleEndian, s.Cart.PRGBanks)
	binary.Write(&meta, binary.LittleEndian, s.Cart.CHRBanks)
	writeChunk(&buf, tagMeta, meta.Bytes())

	var cpu bytes.Buffer
	binary.Write(&cpu, binary.LittleEndian, s.CPU.PC)
	cpu.WriteByte(s.CPU.A)
	cpu.WriteByte(s.CPU.X)
	cpu.WriteByte(s.CPU.Y)
	cpu.WriteByte(s.CPU.SP)
	cpu.WriteByte(s.CPU.Status)
	binary.Write(&cpu, binary.LittleEndian, s.CPU.Cycles)
	cpu.WriteByte(s.CPU.OpenBus)
	writeChunk(&buf, tagCPU, cpu.Bytes())
	writeChunk(&buf, tagRAM, s.CPU.RAM[:])

	var ppuBuf bytes.Buffer
	ppuBuf.WriteByte(s.PPU.PPUCtrl)
	ppuBuf.WriteByte(s.PPU.PPUMask)
	ppuBuf.WriteByte(s.PPU.PPUStatus)
	ppuBuf.WriteByte(s.PPU.OAMAddr)
	ppuBuf.WriteByte(s.PPU.PPUScroll)
	ppuBuf.WriteByte(s.PPU.PPUAddrBuf)
	ppuBuf.WriteByte(s.PPU.PPUData)
	ppuBuf.WriteByte(s.PPU.ReadBuffer)
	binary.Write(&ppuBuf, binary.LittleEndian, s.PPU.V)
	binary.Write(&ppuBuf, binary.LittleEndian, s.PPU.T)
	ppuBuf.WriteByte(s.PPU.X)
	ppuBuf.WriteByte(boolByte(s.PPU.W))
	binary.Write(&ppuBuf, binary.LittleEndian, s.PPU.Scanline)
	binary.Write(&ppuBuf, binary.LittleEndian, s.PPU.Cycle)
	binary.Write(&ppuBuf, binary.LittleEndian, s.PPU.FrameCount)
	ppuBuf.WriteByte(boolByte(s.PPU.OddFrame))
	ppuBuf.WriteByte(boolByte(s.PPU.Sprite0Hit))
	ppuBuf.WriteByte(boolByte(s.PPU.SpriteOver))
	ppuBuf.WriteByte(s.PPU.MirrorMode)
	writeChunk(&buf, tagPPU, ppuBuf.Bytes())
	writeChunk(&buf, tagOAM, s.PPU.OAM[:])
	writeChunk(&buf, tagVRAM, s.PPU.VRAM[:])
	writeChunk(&buf, tagPAL, s.PPU.PaletteRAM[:])

	writeChunk(&buf, tagWRAM, s.Cart.WRAM[:])
	if s.Cart.HasCHRRAM {
		writeChunk(&buf, tagCHRR, s.Cart.CHRRAM)
	}
	writeChunk(&buf, tagREGS, s.Cart.Registers)

	return buf.Bytes(), nil
}

// Decode parses a byte stream produced by Encode back into a Snapshot.
func Decode(data []byte) (*Snapshot, error) {
	r := bytes.NewReader(data)

	var gotMagic [4]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil || gotMagic != magic {
		return nil, neserr.New(neserr.SaveStateIncompatible, "not a save state file")
	}
	version, err := r.ReadByte()
	if err != nil || version != formatVersion {
		return nil, neserr.New(neserr.SaveStateIncompatible, "unsupported save state version %d", version)
	}

	s := &Snapshot{}
	hasCHRRAM := false

	for r.Len() > 0 {
		var tag [4]byte
		if _, err := io.ReadFull(r, tag[:]); err != nil {
			return nil, fmt.Errorf("reading chunk tag: %w", err)
		}
		var length uint32
		if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
			return nil, fmt.Errorf("reading chunk length: %w", err)
		}
		payload := make([]byte, length)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, fmt.Errorf("reading chunk payload: %w", err)
		}
		p := bytes.NewReader(payload)

		switch tag {
		case tagMeta:
			binary.Read(p, binary.LittleEndian, &s.FrameCount)
			binary.Read(p, binary.LittleEndian, &s.CycleCount)
			binary.Read(p, binary.LittleEndian, &s.Cart.MapperID)
			binary.Read(p, binary.LittleEndian, &s.Cart.PRGBanks)
			binary.Read(p, binary.LittleEndian, &s.Cart.CHRBanks)
		case tagCPU:
			binary.Read(p, binary.LittleEndian, &s.CPU.PC)
			s.CPU.A, _ = p.ReadByte()
			s.CPU.X, _ = p.ReadByte()
			s.CPU.Y, _ = p.ReadByte()
			s.CPU.SP, _ = p.ReadByte()
			s.CPU.Status, _ = p.ReadByte()
			binary.Read(p, binary.LittleEndian, &s.CPU.Cycles)
			s.CPU.OpenBus, _ = p.ReadByte()
		case tagRAM:
			copy(s.CPU.RAM[:], payload)
		case tagPPU:
			s.PPU.PPUCtrl, _ = p.ReadByte()
			s.PPU.PPUMask, _ = p.ReadByte()
			s.PPU.PPUStatus, _ = p.ReadByte()
			s.PPU.OAMAddr, _ = p.ReadByte()
			s.PPU.PPUScroll, _ = p.ReadByte()
			s.PPU.PPUAddrBuf, _ = p.ReadByte()
			s.PPU.PPUData, _ = p.ReadByte()
			s.PPU.ReadBuffer, _ = p.ReadByte()
			binary.Read(p, binary.LittleEndian, &s.PPU.V)
			binary.Read(p, binary.LittleEndian, &s.PPU.T)
			s.PPU.X, _ = p.ReadByte()
			w, _ := p.ReadByte()
			s.PPU.W = w != 0
			binary.Read(p, binary.LittleEndian, &s.PPU.Scanline)
			binary.Read(p, binary.LittleEndian, &s.PPU.Cycle)
			binary.Read(p, binary.LittleEndian, &s.PPU.FrameCount)
			oddFrame, _ := p.ReadByte()
			s.PPU.OddFrame = oddFrame != 0
			sprite0, _ := p.ReadByte()
			s.PPU.Sprite0Hit = sprite0 != 0
			spriteOver, _ := p.ReadByte()
			s.PPU.SpriteOver = spriteOver != 0
			s.PPU.MirrorMode, _ = p.ReadByte()
		case tagOAM:
			copy(s.PPU.OAM[:], payload)
		case tagVRAM:
			copy(s.PPU.VRAM[:], payload)
		case tagPAL:
			copy(s.PPU.PaletteRAM[:], payload)
		case tagWRAM:
			copy(s.Cart.WRAM[:], payload)
		case tagCHRR:
			hasCHRRAM = true
			s.Cart.CHRRAM = append([]byte(nil), payload...)
		case tagREGS:
			s.Cart.Registers = append([]byte(nil), payload...)
		}
		// Unrecognized tags are simply skipped: the payload was already
		// consumed above via its length prefix.
	}

	s.Cart.HasCHRRAM = hasCHRRAM
	return s, nil
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
