package model

import "testing"

func TestCriteriaBuilder_BlankMeansAbsent(t *testing.T) {
	c := NewCriteria("10 rue de Rivoli, Paris", 5).
		WithCategory("  ").
		WithPostalCode("75001").
		WithKeywords("", " ").
		WithRequiredTags("decor:cozy", "decor:cozy", "ambiance:loud").
		Build()

	if c.Category != nil {
		t.Fatalf("category should be absent, got %q", *c.Category)
	}
	if c.PostalCode == nil || *c.PostalCode != "75001" {
		t.Fatalf("postal code = %v", c.PostalCode)
	}
	if c.Keywords != nil {
		t.Fatalf("keywords should be absent, got %v", c.Keywords)
	}
	if len(c.RequiredTags) != 2 {
		t.Fatalf("required tags not deduplicated: %v", c.RequiredTags)
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" a, b ,,c ,")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
	if SplitList("") != nil {
		t.Fatal("empty input should give nil")
	}
}
