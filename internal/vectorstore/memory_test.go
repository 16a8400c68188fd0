package vectorstore

import (
	"context"
	"testing"

	"github.com/dgallion1/manualqa/internal/document"
)

func seedMemory(t *testing.T) *Memory {
	t.Helper()
	m := NewMemory()
	chunks := []document.Chunk{
		{ID: "guide_p0_c1", Source: "guide", Chapter: "Install", Page: 0, ChunkIndex: 1, Text: "boot from the installer image"},
		{ID: "guide_p1_c2", Source: "guide", Chapter: "Install", Page: 1, ChunkIndex: 2, Text: "verify firmware before installing"},
		{ID: "guide_p2_c3", Source: "guide", Chapter: "Usage", Page: 2, ChunkIndex: 3, Text: "daily operation of the appliance"},
		{ID: "faq_p0_c1", Source: "faq", Chapter: "FAQ", Page: 0, ChunkIndex: 1, Text: "frequently asked questions"},
	}
	vectors := [][]float64{
		{1, 0},
		{0.9, 0.1},
		{0, 1},
		{-1, 0},
	}
	if err := m.Upsert(context.Background(), chunks, vectors); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	return m
}

func TestMemory_UpsertLengthMismatch(t *testing.T) {
	m := NewMemory()
	err := m.Upsert(context.Background(), []document.Chunk{{ID: "a"}}, nil)
	if err == nil {
		t.Fatal("expected length mismatch error")
	}
}

func TestMemory_SimilaritySearchRanksByCosine(t *testing.T) {
	m := seedMemory(t)
	got, err := m.SimilaritySearch(context.Background(), []float64{1, 0}, 2, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Text != "boot from the installer image" {
		t.Errorf("unexpected top result %q", got[0].Text)
	}
	if got[0].Score < got[1].Score {
		t.Errorf("scores not descending: %v then %v", got[0].Score, got[1].Score)
	}
}

func TestMemory_SimilaritySearchChapterFilter(t *testing.T) {
	m := seedMemory(t)
	got, err := m.SimilaritySearch(context.Background(), []float64{1, 0}, 10, map[string]string{"chapter": "Install"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 Install results, got %d", len(got))
	}
	for _, r := range got {
		if r.Chapter != "Install" {
			t.Errorf("filter leaked chapter %q", r.Chapter)
		}
	}
}

func TestMemory_UpsertReplacesByID(t *testing.T) {
	m := seedMemory(t)
	err := m.Upsert(context.Background(),
		[]document.Chunk{{ID: "guide_p0_c1", Source: "guide", Chapter: "Install", Text: "rewritten text"}},
		[][]float64{{1, 0}})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := m.SimilaritySearch(context.Background(), []float64{1, 0}, 1, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if got[0].Text != "rewritten text" {
		t.Errorf("expected replacement, got %q", got[0].Text)
	}

	metas, err := m.AllMetadata(context.Background())
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if len(metas) != 4 {
		t.Errorf("expected 4 entries after replacement, got %d", len(metas))
	}
}

func TestMemory_AllMetadata(t *testing.T) {
	m := seedMemory(t)
	metas, err := m.AllMetadata(context.Background())
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if len(metas) != 4 {
		t.Fatalf("expected 4 metadata entries, got %d", len(metas))
	}
	chapters := make(map[string]bool)
	for _, meta := range metas {
		chapters[meta.Chapter] = true
	}
	for _, want := range []string{"Install", "Usage", "FAQ"} {
		if !chapters[want] {
			t.Errorf("missing chapter %q in metadata", want)
		}
	}
}

func TestMemory_DeleteSource(t *testing.T) {
	m := seedMemory(t)
	if err := m.DeleteSource(context.Background(), "guide"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	metas, err := m.AllMetadata(context.Background())
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if len(metas) != 1 {
		t.Fatalf("expected only faq chunks to remain, got %d entries", len(metas))
	}
	if metas[0].Source != "faq" {
		t.Errorf("expected faq to survive, got %q", metas[0].Source)
	}
}
