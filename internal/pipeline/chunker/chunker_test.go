package chunker

import (
	"strings"
	"testing"

	"github.com/akolanti/StreamAPI/internal/domain/docModel"
)

func TestCount_MatchesFormula(t *testing.T) {
	tests := []struct {
		length, size, overlap, want int
	}{
		{0, 1000, 150, 0},
		{1, 1000, 150, 1},
		{1000, 1000, 150, 1},
		{1001, 1000, 150, 2},
		{10, 4, 1, 3},
		{12, 4, 1, 4},
		{13, 4, 1, 4},
		{14, 4, 1, 5},
	}
	for _, tt := range tests {
		if got := Count(tt.length, tt.size, tt.overlap); got != tt.want {
			t.Errorf("Count(%d, %d, %d) = %d; want %d", tt.length, tt.size, tt.overlap, got, tt.want)
		}
	}
}

func TestSplit_CountAndOverlapAgree(t *testing.T) {
	text := strings.Repeat("abcdefghij", 50) //500 bytes
	size, overlap := 120, 20

	chunks := Split(text, size, overlap)
	if len(chunks) != Count(len(text), size, overlap) {
		t.Fatalf("Split produced %d chunks, Count says %d", len(chunks), Count(len(text), size, overlap))
	}

	//every adjacent pair shares exactly the overlap region
	for i := 1; i < len(chunks); i++ {
		tail := chunks[i-1][len(chunks[i-1])-overlap:]
		if !strings.HasPrefix(chunks[i], tail) {
			t.Errorf("chunk %d does not start with the previous chunk's overlap", i)
		}
	}

	//chunks reassemble to the original text
	var rebuilt strings.Builder
	rebuilt.WriteString(chunks[0])
	for i := 1; i < len(chunks); i++ {
		rebuilt.WriteString(chunks[i][overlap:])
	}
	if rebuilt.String() != text {
		t.Error("reassembled chunks do not equal the original text")
	}
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("streaming transcripts ", 100)
	first := Split(text, 300, 40)
	second := Split(text, 300, 40)
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestSplit_Empty(t *testing.T) {
	if chunks := Split("", 1000, 150); chunks != nil {
		t.Errorf("expected nil for empty input, got %v", chunks)
	}
}

func TestChunkDocument_DeterministicIds(t *testing.T) {
	doc := docModel.Document{
		Id:              "doc-1",
		UserId:          "user-1",
		Filename:        "paper.pdf",
		FileType:        docModel.PDF,
		FulltextContent: strings.Repeat("x", 2500),
	}

	chunks := ChunkDocument(doc, 1000, 150)
	again := ChunkDocument(doc, 1000, 150)

	if len(chunks) != Count(2500, 1000, 150) {
		t.Fatalf("unexpected chunk count %d", len(chunks))
	}
	for i, c := range chunks {
		if want := docModel.ChunkId("doc-1", i); c.ChunkId != want {
			t.Errorf("chunk %d id = %q; want %q", i, c.ChunkId, want)
		}
		if c.ChunkId != again[i].ChunkId || c.Content != again[i].Content {
			t.Errorf("chunk %d not byte-identical across runs", i)
		}
		if c.Metadata.TotalChunks != len(chunks) || c.Metadata.ChunkIndex != i {
			t.Errorf("chunk %d metadata wrong: %+v", i, c.Metadata)
		}
	}
}
