package document

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestJoinPath(t *testing.T) {
	tests := []struct {
		levels []string
		want   string
	}{
		{[]string{"Install"}, "Install"},
		{[]string{"Install", "Prerequisites"}, "Install > Prerequisites"},
		{[]string{"Install", "", "Checklist"}, "Install > Checklist"},
		{[]string{"", ""}, ""},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := JoinPath(tt.levels); got != tt.want {
			t.Errorf("JoinPath(%v): expected %q, got %q", tt.levels, tt.want, got)
		}
	}
}

func TestChunkJSON_PreservesNonASCII(t *testing.T) {
	// Normalization strips non-ASCII before chunking, but persisted
	// artifacts must keep whatever text they were given.
	c := Chunk{
		ID:         "guide_p3_c7",
		Source:     "guide",
		Chapter:    "Install > Voraussetzungen",
		Page:       3,
		ChunkIndex: 7,
		Text:       "prüfen Sie die Firmware — §4.2",
	}
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back Chunk
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back, c) {
		t.Errorf("round trip changed chunk: %+v vs %+v", back, c)
	}
	if !strings.Contains(back.Text, "prüfen") {
		t.Errorf("non-ASCII lost: %q", back.Text)
	}
}

func TestChunkJSON_OmitsEmptyKeywords(t *testing.T) {
	data, err := json.Marshal(Chunk{ID: "x"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "keywords") {
		t.Errorf("expected keywords omitted when empty, got %s", data)
	}
}
