package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/dante-alig/lovelyplace-back/internal/catalog"
	"github.com/dante-alig/lovelyplace-back/internal/core/model"
)

func TestStore_CRUDAndOrder(t *testing.T) {
	ctx := context.Background()
	s := New(
		model.Location{ID: "b", Name: "B", Category: "drink"},
		model.Location{ID: "a", Name: "A", Category: "eat"},
	)
	c := model.Location{Name: "C", Category: "drink", Filters: []string{"decor:cozy"}}
	if err := s.Save(ctx, &c); err != nil {
		t.Fatal(err)
	}
	if len(c.ID) != 24 {
		t.Fatalf("generated id = %q", c.ID)
	}

	all, _ := s.Find(ctx, catalog.Predicate{})
	if len(all) != 3 || all[0].ID != "b" || all[1].ID != "a" || all[2].ID != c.ID {
		t.Fatalf("order = %v", all)
	}

	drink := catalog.Compile(model.NewCriteria("o", 1).WithCategory("drink").Build())
	got, _ := s.Find(ctx, drink)
	if len(got) != 2 {
		t.Fatalf("drink = %d", len(got))
	}

	// update keeps position
	a, _ := s.FindByID(ctx, "a")
	a.Category = "drink"
	_ = s.Save(ctx, &a)
	got, _ = s.Find(ctx, drink)
	if len(got) != 3 || got[1].ID != "a" {
		t.Fatalf("after update = %v", got)
	}

	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.FindByID(ctx, "a"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if err := s.Delete(ctx, "a"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New(model.Location{ID: "x", Photos: []string{"p1"}})
	l, _ := s.FindByID(ctx, "x")
	l.Photos[0] = "mutated"
	again, _ := s.FindByID(ctx, "x")
	if again.Photos[0] != "p1" {
		t.Fatal("store leaked internal slice")
	}
}

func TestRegisteredAsMemory(t *testing.T) {
	st, err := catalog.Open(context.Background(), "memory", catalog.Deps{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := st.(*Store); !ok {
		t.Fatalf("driver = %T", st)
	}
}
