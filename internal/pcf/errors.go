package pcf

import (
	"errors"
	"fmt"
)

var (
	ErrSelfReference    = errors.New("line item cannot reference its own product")
	ErrCycle            = errors.New("line item would create a cycle")
	ErrDuplicateEdge    = errors.New("line item already exists for this product pair")
	ErrNegativeQuantity = errors.New("quantity must not be negative")

	ErrMissingReference        = errors.New("emission requires a reference table")
	ErrReferenceKindMismatch   = errors.New("reference table kind does not match emission kind")
	ErrUnknownProduct          = errors.New("unknown product")
	ErrUnknownSupplier         = errors.New("unknown supplier")
	ErrUnknownReference        = errors.New("unknown reference table")
	ErrUnknownEmission         = errors.New("unknown emission")
	ErrUnknownLineItem         = errors.New("unknown line item")
	ErrForeignLineItem         = errors.New("line item belongs to another product")
	ErrInvalidLifecycleStage   = errors.New("invalid lifecycle stage")
	ErrUnsupportedEmissionKind = errors.New("unsupported emission kind")
)

// CycleError reports the edge that was rejected by the cycle guard.
type CycleError struct {
	ParentID string
	ChildID  string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("line item %s -> %s would create a cycle", e.ParentID, e.ChildID)
}

func (e *CycleError) Is(target error) bool {
	return target == ErrCycle
}
