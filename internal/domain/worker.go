package domain

import (
	"errors"

	"github.com/google/uuid"
)

// Capability is a closed enumeration of what a worker may do on the floor.
// Capabilities come from the identity/role provider; there is no dynamic
// role checking anywhere else.
type Capability string

// Possible capabilities
const (
	CapabilityPicker     Capability = "picker"
	CapabilitySupervisor Capability = "supervisor"
)

// Common validation errors for Worker
var (
	ErrEmptyWorkerID   = errors.New("worker ID cannot be empty")
	ErrEmptyWorkerName = errors.New("worker name cannot be empty")
)

// Worker is a floor worker as reported by the identity/role provider. Only
// active workers holding the picker capability are eligible for scheduling.
type Worker struct {
	ID           uuid.UUID    `json:"id"`
	Name         string       `json:"name"`
	Active       bool         `json:"active"`
	Capabilities []Capability `json:"capabilities"`
}

// Validate checks if the Worker has valid data.
func (w *Worker) Validate() error {
	if w.ID == uuid.Nil {
		return ErrEmptyWorkerID
	}

	if w.Name == "" {
		return ErrEmptyWorkerName
	}

	return nil
}

// HasCapability reports whether the worker holds the given capability.
func (w *Worker) HasCapability(c Capability) bool {
	for _, have := range w.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// Eligible reports whether the worker can receive pick assignments.
func (w *Worker) Eligible() bool {
	return w.Active && w.HasCapability(CapabilityPicker)
}
