package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewAssignmentLine(t *testing.T) {
	assignmentID := uuid.New()
	reqLineID := uuid.New()

	line, err := NewAssignmentLine(assignmentID, reqLineID, 5)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if line.Status != StatusAssigned {
		t.Errorf("Expected status %s, got %s", StatusAssigned, line.Status)
	}

	if line.Remaining() != 5 {
		t.Errorf("Expected remaining 5, got %d", line.Remaining())
	}

	_, err = NewAssignmentLine(assignmentID, reqLineID, 0)
	if err != ErrInvalidQuantity {
		t.Errorf("Expected error %v, got %v", ErrInvalidQuantity, err)
	}
}

func TestAssignmentLineRegisterPick(t *testing.T) {
	line, err := NewAssignmentLine(uuid.New(), uuid.New(), 2)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if err := line.RegisterPick(1, "8600100200431"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if line.Status != StatusInProgress {
		t.Errorf("Expected status %s after first pick, got %s", StatusInProgress, line.Status)
	}

	if line.LastScannedCode != "8600100200431" {
		t.Errorf("Expected last scanned code to be recorded, got %q", line.LastScannedCode)
	}

	if err := line.RegisterPick(1, "8600100200431"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if line.Status != StatusDone {
		t.Errorf("Expected status %s after reaching requested quantity, got %s", StatusDone, line.Status)
	}

	if line.ProcessedQty != 2 {
		t.Errorf("Expected processed 2, got %d", line.ProcessedQty)
	}

	// Picking past done is rejected, not clamped
	if err := line.RegisterPick(1, "8600100200431"); err != ErrAlreadyTerminal {
		t.Errorf("Expected error %v, got %v", ErrAlreadyTerminal, err)
	}

	if line.ProcessedQty != 2 {
		t.Errorf("Expected processed unchanged at 2, got %d", line.ProcessedQty)
	}
}

func TestAssignmentLineRegisterPickSurplus(t *testing.T) {
	line, err := NewAssignmentLine(uuid.New(), uuid.New(), 3)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if err := line.RegisterPick(2, "X"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// A surplus pick is rejected outright
	if err := line.RegisterPick(2, "X"); err != ErrInvalidQuantity {
		t.Errorf("Expected error %v, got %v", ErrInvalidQuantity, err)
	}

	if line.ProcessedQty != 2 {
		t.Errorf("Expected processed unchanged at 2, got %d", line.ProcessedQty)
	}

	if !line.WouldExceed(2) {
		t.Error("Expected WouldExceed(2) to be true with 1 remaining")
	}

	if line.WouldExceed(1) {
		t.Error("Expected WouldExceed(1) to be false with 1 remaining")
	}

	if err := line.RegisterPick(0, "X"); err != ErrInvalidQuantity {
		t.Errorf("Expected error %v, got %v", ErrInvalidQuantity, err)
	}
}

func TestAssignmentLineForceClose(t *testing.T) {
	line, err := NewAssignmentLine(uuid.New(), uuid.New(), 5)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if err := line.RegisterPick(3, "X"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if err := line.ForceClose(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if line.Status != StatusDone {
		t.Errorf("Expected status %s, got %s", StatusDone, line.Status)
	}

	// Processed quantity survives the short-close untouched
	if line.ProcessedQty != 3 {
		t.Errorf("Expected processed 3, got %d", line.ProcessedQty)
	}

	if err := line.ForceClose(); err != ErrAlreadyTerminal {
		t.Errorf("Expected error %v, got %v", ErrAlreadyTerminal, err)
	}
}
