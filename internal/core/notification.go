package core

import (
	"context"
	"strings"
)

// Notification is an outbound purchase order message for a supplier.
type Notification struct {
	To       string         `json:"to"`
	CC       []string       `json:"cc,omitempty"`
	Subject  string         `json:"subject"`
	Supplier *Supplier      `json:"supplier"`
	Order    *PurchaseOrder `json:"order"`
}

// Notifier queues notifications. Enqueue must not wait for delivery.
type Notifier interface {
	Enqueue(ctx context.Context, n Notification) error
}

// ParseCCList splits a comma separated address list, dropping blanks.
func ParseCCList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
