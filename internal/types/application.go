package types

// ApplicationStatus represents the current state of a rule application
// against an invoice. Discounts use the pending/applied/expired/cancelled
// subset; late fees use pending/applied/waived/paid/cancelled.
type ApplicationStatus string

const (
	ApplicationStatusPending   ApplicationStatus = "pending"
	ApplicationStatusApplied   ApplicationStatus = "applied"
	ApplicationStatusExpired   ApplicationStatus = "expired"
	ApplicationStatusWaived    ApplicationStatus = "waived"
	ApplicationStatusPaid      ApplicationStatus = "paid"
	ApplicationStatusCancelled ApplicationStatus = "cancelled"
)

func (s ApplicationStatus) String() string {
	return string(s)
}

// IsActive reports whether the application still counts against the
// one-active-application-per-invoice guard.
func (s ApplicationStatus) IsActive() bool {
	return s == ApplicationStatusPending || s == ApplicationStatusApplied
}

// IsTerminal reports whether the application has reached a final state.
func (s ApplicationStatus) IsTerminal() bool {
	switch s {
	case ApplicationStatusExpired, ApplicationStatusWaived, ApplicationStatusPaid, ApplicationStatusCancelled:
		return true
	}
	return false
}
