package docModel

import (
	"fmt"
	"time"
)

type DocStatus string
type FileType string

const (
	StatusPending    DocStatus = "pending"
	StatusProcessing DocStatus = "processing"
	StatusEmbedding  DocStatus = "embedding"
	StatusProcessed  DocStatus = "processed"
	StatusFailed     DocStatus = "failed"

	PDF  FileType = "pdf"
	DOCX FileType = "docx"
	TEX  FileType = "tex"
	ERR  FileType = "error"
)

// Document metadata. The relational store is the system of record; the
// vector store is a derived index that may lag but must eventually match.
type Document struct {
	Id              string    `json:"id"`
	UserId          string    `json:"user_id"`
	Filename        string    `json:"filename"`
	FileType        FileType  `json:"file_type"`
	GcsPath         string    `json:"gcs_path"`
	FulltextContent string    `json:"fulltext_content,omitempty"`
	Status          DocStatus `json:"status"`
	FailureReason   string    `json:"failure_reason,omitempty"`
	ChunksProcessed int       `json:"chunks_processed"`
	TotalChunks     int       `json:"total_chunks"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Chunk struct {
	ChunkId  string        `json:"id"`
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

type ChunkMetadata struct {
	Filename    string   `json:"filename"`
	FileType    FileType `json:"file_type"`
	DocumentId  string   `json:"document_id"`
	ChunkIndex  int      `json:"chunk_index"`
	TotalChunks int      `json:"total_chunks"`
	UserId      string   `json:"user_id"`
}

// ChunkId is deterministic from (documentId, index) so a retried
// embedding write overwrites rather than duplicates.
func ChunkId(documentId string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", documentId, index)
}
