package usecase

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/akosterin/docqa/internal/core/domain"
)

func TestFitContextToBudgetKeepsEverythingUnderBudget(t *testing.T) {
	summaries := []domain.SearchResult{
		{ID: "s1", Content: strings.Repeat("s", 400)},
		{ID: "s2", Content: strings.Repeat("s", 400)},
	}
	chunks := []domain.SearchResult{
		{ID: "c1", Content: strings.Repeat("c", 800)},
		{ID: "c2", Content: strings.Repeat("c", 800)},
	}

	gotSummaries, gotChunks := fitContextToBudget(summaries, chunks, 24000)
	if len(gotSummaries) != 2 || len(gotChunks) != 2 {
		t.Fatalf("expected all results kept, got %d/%d", len(gotSummaries), len(gotChunks))
	}
	if gotChunks[0].Content != chunks[0].Content {
		t.Fatalf("content must be untouched when under budget")
	}
}

func TestFitContextToBudgetTruncatesBeforeDropping(t *testing.T) {
	// Chunk share of (4000-2000) tokens is 1600. First chunk consumes 1000,
	// the second (1000) exceeds the remainder but 600 >= minChunkTokens, so
	// it is truncated instead of dropped.
	chunks := []domain.SearchResult{
		{ID: "c1", Content: strings.Repeat("a", 4000)},
		{ID: "c2", Content: strings.Repeat("b", 4000)},
	}

	_, gotChunks := fitContextToBudget(nil, chunks, 4000)
	if len(gotChunks) != 2 {
		t.Fatalf("expected truncated second chunk, got %d chunks", len(gotChunks))
	}
	if gotChunks[0].Content != chunks[0].Content {
		t.Fatalf("first chunk should be intact")
	}
	second := gotChunks[1].Content
	if !strings.HasSuffix(second, "...") {
		t.Fatalf("second chunk should carry truncation marker")
	}
	if len(second) >= len(chunks[1].Content) {
		t.Fatalf("second chunk should be shorter than the original")
	}
}

func TestFitContextToBudgetTopRankedNeverDropped(t *testing.T) {
	chunks := []domain.SearchResult{
		{ID: "c1", Content: strings.Repeat("a", 100000)},
	}

	_, gotChunks := fitContextToBudget(nil, chunks, 2100)
	if len(gotChunks) != 1 {
		t.Fatalf("top-ranked chunk must survive any budget, got %d", len(gotChunks))
	}
	if len(gotChunks[0].Content) >= 100000 {
		t.Fatalf("surviving chunk should be truncated")
	}
}

func TestFitContextToBudgetDropsTailWhenTooSmallToTruncate(t *testing.T) {
	// 2800 budget leaves 800 tokens, 640 for chunks. First chunk takes 600;
	// remaining 40 < minChunkTokens, so the second is dropped.
	chunks := []domain.SearchResult{
		{ID: "c1", Content: strings.Repeat("a", 2400)},
		{ID: "c2", Content: strings.Repeat("b", 2400)},
	}

	_, gotChunks := fitContextToBudget(nil, chunks, 2800)
	if len(gotChunks) != 1 {
		t.Fatalf("expected second chunk dropped, got %d", len(gotChunks))
	}
	if gotChunks[0].ID != "c1" {
		t.Fatalf("expected c1 kept, got %s", gotChunks[0].ID)
	}
}

func TestTruncationNeverSplitsRunes(t *testing.T) {
	// Three-byte runes: the byte-count cut cannot land on a rune boundary.
	chunks := []domain.SearchResult{
		{ID: "c1", Content: strings.Repeat("€", 100000)},
	}

	_, gotChunks := fitContextToBudget(nil, chunks, 2100)
	if len(gotChunks) != 1 {
		t.Fatalf("expected truncated chunk, got %d", len(gotChunks))
	}
	if !utf8.ValidString(gotChunks[0].Content) {
		t.Fatalf("truncated content must stay valid UTF-8")
	}
	if !strings.HasSuffix(gotChunks[0].Content, "...") {
		t.Fatalf("truncated content should carry truncation marker")
	}
}

func TestCutAtRuneBoundary(t *testing.T) {
	s := "aé" // 3 bytes: cut at 2 lands inside the é
	if got := cutAtRuneBoundary(s, 2); got != "a" {
		t.Fatalf("expected cut backed up to rune boundary, got %q", got)
	}
	if got := cutAtRuneBoundary(s, 3); got != s {
		t.Fatalf("expected full string at exact length, got %q", got)
	}
	if got := cutAtRuneBoundary(s, 10); got != s {
		t.Fatalf("expected full string when limit exceeds length, got %q", got)
	}
}

func TestEstimateTokenCount(t *testing.T) {
	if got := estimateTokenCount(strings.Repeat("x", 400)); got != 100 {
		t.Fatalf("expected 100 tokens, got %d", got)
	}
}
