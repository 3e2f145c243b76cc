package ppu

import (
	"testing"
)

// TestNMIEnableDuringVBlank tests that setting PPUCTRL bit 7 while the
// vblank flag is already set fires an NMI immediately.
func TestNMIEnableDuringVBlank(t *testing.T) {
	ppu := New()
	ppu.Reset()

	nmiCount := 0
	ppu.SetNMICallback(func() { nmiCount++ })

	// Put the PPU in vblank with NMI disabled.
	ppu.ppuCtrl = 0
	ppu.ppuStatus |= 0x80

	ppu.WriteRegister(0x2000, 0x80)
	if nmiCount != 1 {
		t.Errorf("Expected immediate NMI when enabling during vblank, got %d", nmiCount)
	}

	// Enabling again while still in vblank retriggers (the callback edge
	// detection is the CPU's job, not the PPU's).
	ppu.WriteRegister(0x2000, 0x80)
	if nmiCount != 2 {
		t.Errorf("Expected second NMI callback, got %d", nmiCount)
	}
}

// TestNMIEnableOutsideVBlank tests that the same write outside vblank does
// not fire.
func TestNMIEnableOutsideVBlank(t *testing.T) {
	ppu := New()
	ppu.Reset()

	nmiCount := 0
	ppu.SetNMICallback(func() { nmiCount++ })

	ppu.ppuStatus &= 0x7F
	ppu.WriteRegister(0x2000, 0x80)

	if nmiCount != 0 {
		t.Errorf("Expected no NMI outside vblank, got %d", nmiCount)
	}
}

// TestStatusReadPreservesSpriteFlags tests that reading $2002 clears only
// the vblank flag and write toggle.
func TestStatusReadPreservesSpriteFlags(t *testing.T) {
	ppu := New()
	ppu.Reset()

	ppu.ppuStatus = 0xE0 // vblank + sprite 0 hit + overflow
	ppu.w = true

	status := ppu.ReadRegister(0x2002)
	if status != 0xE0 {
		t.Errorf("Expected read to return 0xE0, got 0x%02X", status)
	}
	if ppu.ppuStatus&0x80 != 0 {
		t.Error("Expected vblank flag cleared by read")
	}
	if ppu.ppuStatus&0x60 != 0x60 {
		t.Error("Expected sprite 0 hit and overflow to survive the read")
	}
	if ppu.w {
		t.Error("Expected write toggle cleared by read")
	}
}

// TestSpriteFlagsClearAtPreRender tests that sprite 0 hit and overflow
// clear on the pre-render line, not at vblank start.
func TestSpriteFlagsClearAtPreRender(t *testing.T) {
	ppu := New()
	ppu.Reset()

	ppu.ppuStatus |= 0x60
	ppu.sprite0Hit = true
	ppu.spriteOverflow = true

	// Crossing into vblank must not clear them.
	ppu.scanline = 241
	ppu.cycle = 0
	ppu.Step()
	if ppu.ppuStatus&0x60 != 0x60 {
		t.Error("Expected sprite flags to survive vblank start")
	}

	// The pre-render line clears them along with vblank.
	ppu.scanline = -1
	ppu.cycle = 0
	ppu.Step()
	if ppu.ppuStatus&0xE0 != 0 {
		t.Errorf("Expected status flags cleared at pre-render, got 0x%02X", ppu.ppuStatus)
	}
}

// TestPALFrameLayout tests the 312-scanline PAL frame.
func TestPALFrameLayout(t *testing.T) {
	ppu := New()
	ppu.Reset()
	ppu.SetPAL(true)

	frames := 0
	ppu.SetFrameCompleteCallback(func() { frames++ })

	// One PAL frame is 312 scanlines of 341 dots.
	for i := 0; i < 312*341; i++ {
		ppu.Step()
	}
	if frames != 1 {
		t.Errorf("Expected exactly one PAL frame after 312*341 dots, got %d", frames)
	}

	ppu.SetPAL(false)
	frames = 0
	for i := 0; i < 262*341; i++ {
		ppu.Step()
	}
	if frames != 1 {
		t.Errorf("Expected exactly one NTSC frame after 262*341 dots, got %d", frames)
	}
}
