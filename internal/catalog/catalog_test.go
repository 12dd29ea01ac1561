package catalog

import (
	"reflect"
	"testing"
)

func sampleSections() []Section {
	return []Section{
		{
			Title: "Sports",
			Items: []Node{
				{Name: "Skiing", Children: []Node{
					{Name: "Alpine skiing"},
					{Name: "Ski jumping"},
				}},
				{Name: "Ice Hockey"},
				{Name: "Curling"},
			},
		},
	}
}

func TestFilter_EmptyTermIsIdentity(t *testing.T) {
	sections := sampleSections()

	got := Filter(sections, "")
	if !reflect.DeepEqual(got, sections) {
		t.Errorf("Filter with empty term should return the tree unchanged")
	}

	got = Filter(sections, "   ")
	if !reflect.DeepEqual(got, sections) {
		t.Errorf("Filter with whitespace term should return the tree unchanged")
	}
}

func TestFilter_NoMatchIsEmpty(t *testing.T) {
	got := Filter(sampleSections(), "zzz-no-such-sport")
	if len(got) != 0 {
		t.Errorf("Filter with no matches should drop all sections, got %v", got)
	}
}

func TestFilter_MatchByName(t *testing.T) {
	got := Filter(sampleSections(), "curling")
	if len(got) != 1 || len(got[0].Items) != 1 {
		t.Fatalf("got %v, want one section with one item", got)
	}
	if got[0].Items[0].Name != "Curling" {
		t.Errorf("Items[0] = %q, want Curling", got[0].Items[0].Name)
	}
}

func TestFilter_KeptByDescendant(t *testing.T) {
	got := Filter(sampleSections(), "jumping")
	if len(got) != 1 || len(got[0].Items) != 1 {
		t.Fatalf("got %v, want one surviving parent", got)
	}

	parent := got[0].Items[0]
	if parent.Name != "Skiing" {
		t.Errorf("parent = %q, want Skiing", parent.Name)
	}
	// Retained children are the filtered subset, not the original set.
	if len(parent.Children) != 1 || parent.Children[0].Name != "Ski jumping" {
		t.Errorf("Children = %v, want only [Ski jumping]", parent.Children)
	}
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	sections := sampleSections()
	Filter(sections, "jumping")

	if len(sections[0].Items[0].Children) != 2 {
		t.Error("Filter mutated the underlying tree")
	}
}

func TestFilter_CaseInsensitive(t *testing.T) {
	got := Filter(sampleSections(), "ICE")
	if len(got) != 1 {
		t.Fatalf("got %v, want one section", got)
	}
	if len(got[0].Items) != 1 || got[0].Items[0].Name != "Ice Hockey" {
		t.Errorf("Items = %v, want [Ice Hockey]", got[0].Items)
	}
}
