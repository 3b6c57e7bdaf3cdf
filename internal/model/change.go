package model

import (
	"fmt"
	"sort"
	"time"
)

// ChangeType identifies which local mutation a ChangeRecord carries.
type ChangeType string

const (
	ChangeEmployeeCreate ChangeType = "employee_create"
	ChangeEmployeeUpdate ChangeType = "employee_update"
	ChangeEmployeeDelete ChangeType = "employee_delete"
	ChangeLogCreate      ChangeType = "log_create"
	ChangeLogUpdate      ChangeType = "log_update"
	ChangeLogDelete      ChangeType = "log_delete"
)

// Valid reports whether t is a known change type.
func (t ChangeType) Valid() bool {
	switch t {
	case ChangeEmployeeCreate, ChangeEmployeeUpdate, ChangeEmployeeDelete,
		ChangeLogCreate, ChangeLogUpdate, ChangeLogDelete:
		return true
	}
	return false
}

// replayRank orders change types for outbound replay. Log deletions must
// reach the server before the owning employee is deleted, and employee
// creation/update must precede log creation so a log never references an
// employee absent server-side.
var replayRank = map[ChangeType]int{
	ChangeLogDelete:      0,
	ChangeEmployeeDelete: 1,
	ChangeEmployeeUpdate: 2,
	ChangeEmployeeCreate: 3,
	ChangeLogUpdate:      4,
	ChangeLogCreate:      5,
}

// ReplayRank returns the replay bucket for a change type. Unknown types
// sort last.
func ReplayRank(t ChangeType) int {
	if r, ok := replayRank[t]; ok {
		return r
	}
	return len(replayRank)
}

// ChangeRecord is one pending local mutation awaiting propagation. EntityID
// is the badge for employee changes; for log changes it is the remote id
// when known and the local id otherwise.
type ChangeRecord struct {
	Type      ChangeType `json:"change_type"`
	EntityID  string     `json:"entity_id"`
	Data      string     `json:"change_data,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Validate checks the record's required fields.
func (c *ChangeRecord) Validate() error {
	if !c.Type.Valid() {
		return fmt.Errorf("unknown change type %q", c.Type)
	}
	if c.EntityID == "" {
		return fmt.Errorf("entity_id is required")
	}
	return nil
}

// SortForReplay orders changes by replay bucket, ties broken by creation
// time. The sort is stable so equal records keep ledger order.
func SortForReplay(changes []ChangeRecord) {
	sort.SliceStable(changes, func(i, j int) bool {
		ri, rj := ReplayRank(changes[i].Type), ReplayRank(changes[j].Type)
		if ri != rj {
			return ri < rj
		}
		return changes[i].CreatedAt.Before(changes[j].CreatedAt)
	})
}
