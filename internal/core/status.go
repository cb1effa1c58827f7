package core

import (
	"fmt"
	"strings"
)

// POStatus is the purchase order lifecycle state.
type POStatus string

const (
	StatusDraft     POStatus = "draft"
	StatusIssued    POStatus = "issued"
	StatusReceiving POStatus = "receiving"
	StatusClosed    POStatus = "closed"
	StatusCanceled  POStatus = "canceled"
)

var statusTransitions = map[POStatus][]POStatus{
	StatusDraft:     {StatusIssued, StatusCanceled},
	StatusIssued:    {StatusReceiving, StatusClosed, StatusCanceled},
	StatusReceiving: {StatusClosed, StatusCanceled},
}

// ParseStatus normalizes a stored or user-supplied status. The British
// spelling "cancelled" is accepted and mapped to StatusCanceled.
func ParseStatus(s string) (POStatus, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "cancelled" {
		v = string(StatusCanceled)
	}
	switch st := POStatus(v); st {
	case StatusDraft, StatusIssued, StatusReceiving, StatusClosed, StatusCanceled:
		return st, nil
	}
	return "", fmt.Errorf("unknown purchase order status %q", s)
}

// IsTerminal reports whether no further transitions are possible.
func (s POStatus) IsTerminal() bool {
	return s == StatusClosed || s == StatusCanceled
}

// CanTransitionTo reports whether moving from s to next is a legal lifecycle step.
func (s POStatus) CanTransitionTo(next POStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsOpen reports whether goods are still expected against the order.
func (s POStatus) IsOpen() bool {
	return s == StatusIssued || s == StatusReceiving
}
