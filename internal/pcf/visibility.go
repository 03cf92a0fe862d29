package pcf

import "fmt"

// SharingStatus 跨供应商数据共享申请状态
type SharingStatus string

const (
	// SharingNotRequested is never stored; it stands for a missing request.
	SharingNotRequested SharingStatus = "not_requested"
	SharingPending      SharingStatus = "pending"
	SharingAccepted     SharingStatus = "accepted"
	SharingRejected     SharingStatus = "rejected"
)

func ParseSharingStatus(s string) (SharingStatus, error) {
	switch st := SharingStatus(s); st {
	case SharingNotRequested, SharingPending, SharingAccepted, SharingRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown sharing status %q", s)
}

// Visibility is the outcome of the gate for one line item.
type Visibility int

const (
	// VisibilityFull shows the child trace as computed.
	VisibilityFull Visibility = iota
	// VisibilityTruncated shows the child subtotal but hides its children.
	VisibilityTruncated
	// VisibilityDenied replaces the child with an empty trace and an error.
	VisibilityDenied
)

func (v Visibility) String() string {
	switch v {
	case VisibilityFull:
		return "full"
	case VisibilityTruncated:
		return "truncated"
	case VisibilityDenied:
		return "denied"
	}
	return "unknown"
}

// GateDecision is what the gate decided and the mention it attaches, if any.
type GateDecision struct {
	Visibility Visibility
	Mention    *Mention
}

// DecideVisibility evaluates the sharing state machine for a line item whose
// product belongs to child and is used by requester.
func DecideVisibility(child, requester Supplier, status SharingStatus, bootstrapSupplierID string) GateDecision {
	if child.ID == requester.ID {
		return GateDecision{Visibility: VisibilityFull}
	}
	name := child.DisplayName()
	switch status {
	case SharingAccepted:
		d := GateDecision{Visibility: VisibilityTruncated}
		if child.ID != bootstrapSupplierID {
			d.Mention = &Mention{
				Severity: SeverityInformation,
				Message:  fmt.Sprintf("Further emission trace details are hidden to protect %s's confidentiality.", name),
			}
		}
		return d
	case SharingPending:
		return denied(fmt.Sprintf("%s has not accepted your PCF data sharing request yet.", name))
	case SharingRejected:
		return denied(fmt.Sprintf("%s has rejected your PCF data sharing request.", name))
	default:
		return denied("You have not requested access to this product's PCF data yet.")
	}
}

func denied(msg string) GateDecision {
	return GateDecision{
		Visibility: VisibilityDenied,
		Mention:    &Mention{Severity: SeverityError, Message: msg},
	}
}
