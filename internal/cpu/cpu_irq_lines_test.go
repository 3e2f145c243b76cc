package cpu

import (
	"testing"
)

// TestIRQLineMasking tests that the four IRQ lines are tracked independently
// and that delivery requires every line's owner to acknowledge.
func TestIRQLineMasking(t *testing.T) {
	t.Run("Single_Line_Delivery", func(t *testing.T) {
		helper := NewCPUTestHelper()
		helper.SetupResetVector(0x8000)
		helper.Memory.SetBytes(0xFFFE, 0x00, 0x90) // IRQ handler at $9000

		helper.CPU.PC = 0x8123
		helper.CPU.SP = 0xFF
		helper.CPU.I = false

		helper.CPU.IRQ(2) // mapper line
		helper.CPU.ProcessPendingInterrupts()

		if helper.CPU.PC != 0x9000 {
			t.Errorf("Expected PC=0x9000 after IRQ delivery, got 0x%04X", helper.CPU.PC)
		}
	})

	t.Run("Ack_Deasserts_Only_Own_Line", func(t *testing.T) {
		helper := NewCPUTestHelper()
		helper.SetupResetVector(0x8000)
		helper.Memory.SetBytes(0xFFFE, 0x00, 0x90)

		helper.CPU.PC = 0x8123
		helper.CPU.SP = 0xFF
		helper.CPU.I = true // hold delivery while lines change

		helper.CPU.IRQ(0)
		helper.CPU.IRQ(2)
		helper.CPU.AckIRQ(0)

		// Line 2 is still asserted, so clearing I must deliver.
		helper.CPU.I = false
		helper.CPU.ProcessPendingInterrupts()
		if helper.CPU.PC != 0x9000 {
			t.Errorf("Expected delivery from line 2, PC=0x%04X", helper.CPU.PC)
		}
	})

	t.Run("All_Lines_Acked_No_Delivery", func(t *testing.T) {
		helper := NewCPUTestHelper()
		helper.SetupResetVector(0x8000)
		helper.Memory.SetBytes(0xFFFE, 0x00, 0x90)

		helper.CPU.PC = 0x8456
		helper.CPU.SP = 0xFF
		helper.CPU.I = false

		helper.CPU.IRQ(1)
		helper.CPU.IRQ(3)
		helper.CPU.AckIRQ(1)
		helper.CPU.AckIRQ(3)
		helper.CPU.ProcessPendingInterrupts()

		if helper.CPU.PC != 0x8456 {
			t.Errorf("Expected PC unchanged with all lines acked, got 0x%04X", helper.CPU.PC)
		}
	})

	t.Run("Out_Of_Range_Line_Ignored", func(t *testing.T) {
		helper := NewCPUTestHelper()
		helper.SetupResetVector(0x8000)
		helper.CPU.I = false
		helper.CPU.PC = 0x8000

		helper.CPU.IRQ(NumIRQLines)
		helper.CPU.IRQ(-1)
		helper.CPU.ProcessPendingInterrupts()

		if helper.CPU.PC != 0x8000 {
			t.Errorf("Expected no delivery for out-of-range lines, PC=0x%04X", helper.CPU.PC)
		}
	})
}

// TestSoftwareInterrupt tests the push-and-vector helper used for
// BRK-equivalent dispatch through an arbitrary vector.
func TestSoftwareInterrupt(t *testing.T) {
	helper := NewCPUTestHelper()
	helper.SetupResetVector(0x8000)
	helper.Memory.SetBytes(0xFFFA, 0x00, 0xB0) // vector to $B000

	helper.CPU.PC = 0x8ABC
	helper.CPU.SP = 0xFF
	helper.CPU.C = true
	helper.CPU.I = false
	helper.CPU.cycles = 0

	helper.CPU.SoftwareInterrupt(0xFFFA)

	if helper.CPU.PC != 0xB000 {
		t.Errorf("Expected PC=0xB000, got 0x%04X", helper.CPU.PC)
	}
	if helper.CPU.SP != 0xFC {
		t.Errorf("Expected SP=0xFC after pushing PC and P, got 0x%02X", helper.CPU.SP)
	}
	if !helper.CPU.I {
		t.Error("Expected I flag set after software interrupt")
	}
	if helper.CPU.cycles != 7 {
		t.Errorf("Expected 7 cycles for interrupt entry, got %d", helper.CPU.cycles)
	}

	// Pushed status carries B=1 and bit 5=1, like BRK/PHP.
	pushed := helper.Memory.Read(0x01FD)
	if pushed&0x30 != 0x30 {
		t.Errorf("Expected B and unused bits set in pushed status, got 0x%02X", pushed)
	}
	if pushed&0x01 == 0 {
		t.Error("Expected carry preserved in pushed status")
	}

	// Return address is the PC at the time of the call.
	if helper.Memory.Read(0x01FF) != 0x8A || helper.Memory.Read(0x01FE) != 0xBC {
		t.Error("Expected PC 0x8ABC pushed high-then-low")
	}
}

// TestRunUntil tests cycle-target execution used by the scheduler.
func TestRunUntil(t *testing.T) {
	helper := NewCPUTestHelper()
	helper.SetupResetVector(0x8000)

	// A run of 2-cycle NOPs.
	program := make([]uint8, 64)
	for i := range program {
		program[i] = 0xEA
	}
	helper.LoadProgram(0x8000, program...)
	helper.CPU.PC = 0x8000
	helper.CPU.cycles = 0

	helper.CPU.RunUntil(20)

	if helper.CPU.cycles < 20 {
		t.Errorf("Expected at least 20 cycles, got %d", helper.CPU.cycles)
	}
	// NOPs are 2 cycles each, so the overshoot is bounded by one instruction.
	if helper.CPU.cycles > 21 {
		t.Errorf("Expected at most one instruction of overshoot, got %d cycles", helper.CPU.cycles)
	}
}

// TestIllegalOpcodeTrap tests the diagnostic trap versus the release-mode
// 2-cycle NOP fallback for opcodes with no table entry.
func TestIllegalOpcodeTrap(t *testing.T) {
	t.Run("Release_Mode_NOP", func(t *testing.T) {
		helper := NewCPUTestHelper()
		helper.SetupResetVector(0x8000)
		helper.LoadProgram(0x8000, 0x02) // JAM/KIL - never assigned
		helper.CPU.PC = 0x8000
		helper.CPU.cycles = 0

		cycles := helper.CPU.Step()
		if cycles != 2 {
			t.Errorf("Expected 2-cycle NOP for unassigned opcode, got %d", cycles)
		}
		if helper.CPU.PC != 0x8001 {
			t.Errorf("Expected PC advanced past opcode, got 0x%04X", helper.CPU.PC)
		}
	})

	t.Run("Diagnostic_Trap", func(t *testing.T) {
		helper := NewCPUTestHelper()
		helper.SetupResetVector(0x8000)
		helper.LoadProgram(0x8000, 0x02)
		helper.CPU.PC = 0x8000

		var trappedPC uint16
		var trappedOp uint8
		helper.CPU.SetIllegalOpcodeTrap(func(pc uint16, opcode uint8) {
			trappedPC = pc
			trappedOp = opcode
		})

		helper.CPU.Step()
		if trappedPC != 0x8000 || trappedOp != 0x02 {
			t.Errorf("Expected trap at PC=0x8000 opcode=0x02, got PC=0x%04X opcode=0x%02X",
				trappedPC, trappedOp)
		}
	})
}
