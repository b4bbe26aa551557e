package domain

// Status represents the workflow state shared by requisitions, requisition
// lines, assignments, and assignment lines. The shape is the same at every
// level: new → assigned → in_progress → done. The error-absorbing states
// blocked and failed are reachable only at the assignment and requisition
// level, and only through an explicit supervisor action.
type Status string

// Possible workflow status values
const (
	StatusNew        Status = "new"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusBlocked    Status = "blocked"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether the status admits no further mutation.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDone, StatusBlocked, StatusFailed:
		return true
	default:
		return false
	}
}

// isValidStatus checks if the given status is a valid workflow Status.
func isValidStatus(s Status) bool {
	switch s {
	case StatusNew, StatusAssigned, StatusInProgress, StatusDone,
		StatusBlocked, StatusFailed:
		return true
	default:
		return false
	}
}

// isValidLineStatus checks a status against the line-level subset: lines
// never enter blocked or failed.
func isValidLineStatus(s Status) bool {
	switch s {
	case StatusNew, StatusAssigned, StatusInProgress, StatusDone:
		return true
	default:
		return false
	}
}

// DiscrepancyKind classifies why a line was closed short of its requested
// quantity.
type DiscrepancyKind string

// Possible discrepancy kinds
const (
	DiscrepancyNone         DiscrepancyKind = "none"
	DiscrepancyShortPick    DiscrepancyKind = "short_pick"
	DiscrepancyNotFound     DiscrepancyKind = "not_found"
	DiscrepancyDamaged      DiscrepancyKind = "damaged"
	DiscrepancyWrongBarcode DiscrepancyKind = "wrong_barcode"
	DiscrepancyOther        DiscrepancyKind = "other"
)

// isValidDiscrepancyKind checks if the given kind is a valid DiscrepancyKind.
func isValidDiscrepancyKind(k DiscrepancyKind) bool {
	switch k {
	case DiscrepancyNone, DiscrepancyShortPick, DiscrepancyNotFound,
		DiscrepancyDamaged, DiscrepancyWrongBarcode, DiscrepancyOther:
		return true
	default:
		return false
	}
}
