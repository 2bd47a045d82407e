package reconcile

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PointFields are the client-mutable attributes of a point. Identity, order
// and image ownership are never carried here. Nil name/description means the
// key was absent: kept as-is on update, empty on create.
type PointFields struct {
	Name        *string
	Description *string
	Lat         decimal.Decimal
	Lon         decimal.Decimal
}

// StringOr dereferences an optional string field.
func StringOr(s *string, fallback string) string {
	if s != nil {
		return *s
	}
	return fallback
}

// DesiredPoint is one entry of the full desired list sent on a route update.
// ID == 0 means the entry carries no id and is a create.
type DesiredPoint struct {
	ID     uint
	Fields PointFields
}

// Create is a fresh point at the given position, starting with no images.
type Create struct {
	Fields   PointFields
	Position int
}

// Update mutates an existing point in place; its images are untouched.
type Update struct {
	ID       uint
	Fields   PointFields
	Position int
}

// Plan is the set of operations turning the existing point set into the
// desired one.
type Plan struct {
	Creates   []Create
	Updates   []Update
	DeleteIDs []uint
}

// Build diffs the desired ordered list against the existing point ids and
// returns the operations to apply. Each desired entry gets position equal to
// its index in the list. An entry whose id is unknown (foreign or already
// deleted) is treated as a create, not an error. Existing ids not referenced
// by any desired entry are deleted.
//
// The plan is computed before any mutation; exceeding maxPoints rejects the
// whole operation. Applying the plan transactionally is the caller's job.
func Build(existingIDs []uint, desired []DesiredPoint, maxPoints int) (Plan, error) {
	if len(desired) > maxPoints {
		return Plan{}, fmt.Errorf("a route cannot have more than %d points (got %d)", maxPoints, len(desired))
	}

	existing := make(map[uint]bool, len(existingIDs))
	for _, id := range existingIDs {
		existing[id] = true
	}

	var plan Plan
	kept := make(map[uint]bool, len(desired))

	for idx, d := range desired {
		if d.ID > 0 && existing[d.ID] {
			plan.Updates = append(plan.Updates, Update{ID: d.ID, Fields: d.Fields, Position: idx})
			kept[d.ID] = true
			continue
		}
		plan.Creates = append(plan.Creates, Create{Fields: d.Fields, Position: idx})
	}

	for _, id := range existingIDs {
		if !kept[id] {
			plan.DeleteIDs = append(plan.DeleteIDs, id)
		}
	}

	return plan, nil
}
