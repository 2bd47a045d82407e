package reconcile

import (
	"testing"

	"github.com/shopspring/decimal"
)

func fields(name string) PointFields {
	return PointFields{
		Name: &name,
		Lat:  decimal.NewFromFloat(1.5),
		Lon:  decimal.NewFromFloat(2.5),
	}
}

func TestBuildAllNewPoints(t *testing.T) {
	plan, err := Build(nil, []DesiredPoint{
		{Fields: fields("a")},
		{Fields: fields("b")},
	}, 20)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(plan.Creates) != 2 || len(plan.Updates) != 0 || len(plan.DeleteIDs) != 0 {
		t.Fatalf("unexpected plan: %+v", plan)
	}
	if plan.Creates[0].Position != 0 || plan.Creates[1].Position != 1 {
		t.Errorf("positions not assigned from list index: %+v", plan.Creates)
	}
}

func TestBuildEmptyDesiredDeletesEverything(t *testing.T) {
	plan, err := Build([]uint{3, 4, 5}, nil, 20)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(plan.Creates) != 0 || len(plan.Updates) != 0 {
		t.Fatalf("unexpected plan: %+v", plan)
	}
	if len(plan.DeleteIDs) != 3 {
		t.Fatalf("expected all 3 deletions, got %v", plan.DeleteIDs)
	}
}

func TestBuildReorderKeepsIdentity(t *testing.T) {
	plan, err := Build([]uint{5, 3, 4}, []DesiredPoint{
		{ID: 4, Fields: fields("four")},
		{ID: 5, Fields: fields("five")},
		{ID: 3, Fields: fields("three")},
	}, 20)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(plan.Creates) != 0 || len(plan.DeleteIDs) != 0 {
		t.Fatalf("reorder must not create or delete: %+v", plan)
	}
	want := map[uint]int{4: 0, 5: 1, 3: 2}
	for _, u := range plan.Updates {
		if want[u.ID] != u.Position {
			t.Errorf("point %d: position = %d, want %d", u.ID, u.Position, want[u.ID])
		}
	}
}

func TestBuildMixedCreateUpdateDelete(t *testing.T) {
	plan, err := Build([]uint{1, 2, 3}, []DesiredPoint{
		{ID: 2, Fields: fields("kept")},
		{Fields: fields("new")},
	}, 20)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(plan.Updates) != 1 || plan.Updates[0].ID != 2 || plan.Updates[0].Position != 0 {
		t.Errorf("unexpected updates: %+v", plan.Updates)
	}
	if len(plan.Creates) != 1 || plan.Creates[0].Position != 1 {
		t.Errorf("unexpected creates: %+v", plan.Creates)
	}
	if len(plan.DeleteIDs) != 2 {
		t.Errorf("expected points 1 and 3 deleted, got %v", plan.DeleteIDs)
	}
}

func TestBuildUnknownIDBecomesCreate(t *testing.T) {
	plan, err := Build([]uint{1}, []DesiredPoint{
		{ID: 99, Fields: fields("foreign")},
	}, 20)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(plan.Creates) != 1 {
		t.Errorf("unknown id should become a create: %+v", plan)
	}
	if len(plan.DeleteIDs) != 1 || plan.DeleteIDs[0] != 1 {
		t.Errorf("unreferenced existing point should be deleted: %v", plan.DeleteIDs)
	}
}

func TestBuildRejectsTooManyPoints(t *testing.T) {
	desired := make([]DesiredPoint, 21)
	for i := range desired {
		desired[i] = DesiredPoint{Fields: fields("p")}
	}
	if _, err := Build(nil, desired, 20); err == nil {
		t.Fatal("expected an error for 21 desired points")
	}
}
