package chunker

import (
	"github.com/akolanti/StreamAPI/internal/domain/docModel"
)

// Split cuts text into fixed-size windows that overlap by `overlap` bytes.
// Boundaries are purely positional: identical input and parameters always
// produce identical chunks, which keeps chunk ids stable across re-runs.
func Split(text string, size int, overlap int) []string {
	if len(text) == 0 {
		return nil
	}
	if size <= overlap {
		//misconfiguration; a single chunk is the only safe answer
		return []string{text}
	}

	step := size - overlap
	var chunks []string
	for start := 0; ; start += step {
		end := start + size
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			return chunks
		}
		chunks = append(chunks, text[start:end])
	}
}

// Count returns the number of chunks Split would produce without building
// them: ceil((L-O)/(S-O)), or 0 for empty input.
func Count(length int, size int, overlap int) int {
	if length == 0 {
		return 0
	}
	if size <= overlap || length <= size {
		return 1
	}
	step := size - overlap
	return (length - overlap + step - 1) / step
}

// ChunkDocument materializes the chunk records for a document from its
// stored full text. Chunk identity is deterministic from (documentId, index).
func ChunkDocument(doc docModel.Document, size int, overlap int) []docModel.Chunk {
	pieces := Split(doc.FulltextContent, size, overlap)
	chunks := make([]docModel.Chunk, len(pieces))
	for i, content := range pieces {
		chunks[i] = docModel.Chunk{
			ChunkId: docModel.ChunkId(doc.Id, i),
			Content: content,
			Metadata: docModel.ChunkMetadata{
				Filename:    doc.Filename,
				FileType:    doc.FileType,
				DocumentId:  doc.Id,
				ChunkIndex:  i,
				TotalChunks: len(pieces),
				UserId:      doc.UserId,
			},
		}
	}
	return chunks
}
