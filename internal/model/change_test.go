package model

import (
	"testing"
	"time"
)

func TestSortForReplayBucketOrder(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	// Insertion order deliberately scrambled.
	changes := []ChangeRecord{
		{Type: ChangeLogCreate, EntityID: "10", CreatedAt: base},
		{Type: ChangeEmployeeDelete, EntityID: "B-1", CreatedAt: base.Add(5 * time.Minute)},
		{Type: ChangeLogUpdate, EntityID: "11", CreatedAt: base.Add(time.Minute)},
		{Type: ChangeLogDelete, EntityID: "12", CreatedAt: base.Add(10 * time.Minute)},
		{Type: ChangeEmployeeCreate, EntityID: "B-2", CreatedAt: base},
		{Type: ChangeLogDelete, EntityID: "13", CreatedAt: base.Add(2 * time.Minute)},
		{Type: ChangeEmployeeUpdate, EntityID: "B-3", CreatedAt: base},
	}

	SortForReplay(changes)

	want := []ChangeType{
		ChangeLogDelete, ChangeLogDelete,
		ChangeEmployeeDelete,
		ChangeEmployeeUpdate,
		ChangeEmployeeCreate,
		ChangeLogUpdate,
		ChangeLogCreate,
	}
	for i, typ := range want {
		if changes[i].Type != typ {
			t.Fatalf("position %d: got %s, want %s", i, changes[i].Type, typ)
		}
	}

	// Ties within a bucket break by created_at.
	if changes[0].EntityID != "13" || changes[1].EntityID != "12" {
		t.Errorf("log_delete bucket not ordered by created_at: %s, %s",
			changes[0].EntityID, changes[1].EntityID)
	}
}

func TestChangeRecordValidate(t *testing.T) {
	good := ChangeRecord{Type: ChangeLogCreate, EntityID: "42"}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid record rejected: %v", err)
	}
	bad := ChangeRecord{Type: ChangeType("log_upsert"), EntityID: "42"}
	if err := bad.Validate(); err == nil {
		t.Error("unknown change type accepted")
	}
	empty := ChangeRecord{Type: ChangeLogCreate}
	if err := empty.Validate(); err == nil {
		t.Error("empty entity_id accepted")
	}
}
