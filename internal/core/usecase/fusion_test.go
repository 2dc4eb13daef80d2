package usecase

import (
	"testing"

	"github.com/akosterin/docqa/internal/core/domain"
)

func TestFuseRankedListsPrefersMultiListAppearances(t *testing.T) {
	listA := []domain.SearchResult{
		{ID: "a", SourceID: "doc-1"},
		{ID: "b", SourceID: "doc-2"},
	}
	listB := []domain.SearchResult{
		{ID: "b", SourceID: "doc-2"},
		{ID: "c", SourceID: "doc-3"},
	}

	fused := fuseRankedLists([][]domain.SearchResult{listA, listB}, 60)
	if len(fused) != 3 {
		t.Fatalf("expected 3 fused results, got %d", len(fused))
	}
	if fused[0].ID != "b" {
		t.Fatalf("expected b first after fusion, got %s", fused[0].ID)
	}
}

func TestFuseRankedListsSingleListPreservesOrder(t *testing.T) {
	list := []domain.SearchResult{
		{ID: "a", Score: 0.9},
		{ID: "b", Score: 0.5},
		{ID: "c", Score: 0.1},
	}

	fused := fuseRankedLists([][]domain.SearchResult{list}, 60)
	if len(fused) != 3 {
		t.Fatalf("expected 3 results, got %d", len(fused))
	}
	for i, want := range []string{"a", "b", "c"} {
		if fused[i].ID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, fused[i].ID)
		}
	}
}

func TestFuseRankedListsTieBreakDeterministic(t *testing.T) {
	listA := []domain.SearchResult{{ID: "z", SourceID: "doc-b"}}
	listB := []domain.SearchResult{{ID: "y", SourceID: "doc-a"}}

	fused := fuseRankedLists([][]domain.SearchResult{listA, listB}, 60)
	if len(fused) != 2 {
		t.Fatalf("expected 2 results, got %d", len(fused))
	}
	if fused[0].SourceID != "doc-a" {
		t.Fatalf("expected tie-break by source id, got first=%s", fused[0].SourceID)
	}
}

func TestFuseRankedListsFallsBackToContentKey(t *testing.T) {
	// No IDs: identity comes from (source, anchor, content).
	listA := []domain.SearchResult{{SourceID: "doc-1", Anchor: "p3", Content: "same text"}}
	listB := []domain.SearchResult{{SourceID: "doc-1", Anchor: "p3", Content: "same text"}}

	fused := fuseRankedLists([][]domain.SearchResult{listA, listB}, 60)
	if len(fused) != 1 {
		t.Fatalf("expected identical unkeyed results to merge, got %d", len(fused))
	}
}

func TestTrimResults(t *testing.T) {
	results := []domain.SearchResult{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	if got := trimResults(results, 2); len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got := trimResults(results, 0); len(got) != 3 {
		t.Fatalf("limit 0 should keep all results, got %d", len(got))
	}
}
