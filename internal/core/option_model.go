package core

import "time"

// OptionGroup is a configurable selection dimension for order lines.
type OptionGroup struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	IsActive  bool   `json:"is_active"`
	SortOrder int    `json:"sort_order"`
}

// Option belongs to exactly one OptionGroup.
type Option struct {
	ID        int        `json:"id"`
	GroupID   int        `json:"group_id"`
	Code      string     `json:"code"`
	Name      string     `json:"name"`
	IsActive  bool       `json:"is_active"`
	SortOrder int        `json:"sort_order"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Available reports active and not soft-deleted.
func (o Option) Available() bool {
	return o.IsActive && o.DeletedAt == nil
}
