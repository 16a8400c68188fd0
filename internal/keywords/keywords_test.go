package keywords

import (
	"testing"

	"github.com/dgallion1/manualqa/internal/document"
)

func TestExtract_AttachesAtMostTopK(t *testing.T) {
	chunks := []document.Chunk{
		{ID: "a", Text: "virtual machine snapshots preserve disk state while the guest keeps running, and reverting a snapshot restores memory and device state together"},
		{ID: "b", Text: "network adapters support jumbo frames when the physical switch carries matching maximum transmission unit settings end to end"},
	}
	Extract(chunks, 3)
	for _, c := range chunks {
		if c.Keywords == nil {
			t.Errorf("chunk %s: expected non-nil keywords", c.ID)
		}
		if len(c.Keywords) > 3 {
			t.Errorf("chunk %s: expected at most 3 keywords, got %d", c.ID, len(c.Keywords))
		}
	}
}

func TestExtract_RichTextYieldsPhrases(t *testing.T) {
	chunks := []document.Chunk{
		{ID: "a", Text: "storage array replication copies datastore contents to a recovery site on a fixed schedule"},
	}
	Extract(chunks, DefaultTopK)
	if len(chunks[0].Keywords) == 0 {
		t.Error("expected at least one keyword from rich text")
	}
}

func TestExtract_EmptyTextYieldsEmptySlice(t *testing.T) {
	chunks := []document.Chunk{{ID: "a", Text: ""}}
	Extract(chunks, DefaultTopK)
	if chunks[0].Keywords == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(chunks[0].Keywords) != 0 {
		t.Errorf("expected no keywords for empty text, got %v", chunks[0].Keywords)
	}
}

func TestExtract_ZeroTopKUsesDefault(t *testing.T) {
	chunks := []document.Chunk{
		{ID: "a", Text: "high availability restarts failed virtual machines on surviving cluster hosts after a host failure is detected"},
	}
	Extract(chunks, 0)
	if len(chunks[0].Keywords) > DefaultTopK {
		t.Errorf("expected at most %d keywords, got %d", DefaultTopK, len(chunks[0].Keywords))
	}
}
