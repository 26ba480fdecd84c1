package api

import "time"

// websocket actions a client may send
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// websocket frame types the server pushes
const (
	FrameTranscriptionEvent = "transcription_event"
	FrameError              = "error"
)

type ClientMessage struct {
	Action   string `json:"action"`
	StreamId string `json:"streamId"`
}

type ServerFrame struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type WebhookAck struct {
	Status   string `json:"status" example:"accepted"`
	StreamId string `json:"streamId" example:"stream_42"`
}

type ErrorResponse struct {
	Error string `json:"error" example:"field \"streamId\" is required"`
}

// DocumentResponse carries status twice: chroma_status is the legacy key the
// original consumers read, status is the canonical one. Same value.
type DocumentResponse struct {
	Id              string    `json:"id"`
	UserId          string    `json:"user_id"`
	Filename        string    `json:"filename"`
	FileType        string    `json:"file_type"`
	GcsPath         string    `json:"gcs_path"`
	Status          string    `json:"status"`
	ChromaStatus    string    `json:"chroma_status"`
	FailureReason   string    `json:"failure_reason,omitempty"`
	ChunksProcessed int       `json:"chunks_processed"`
	TotalChunks     int       `json:"total_chunks"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type DocumentDetailResponse struct {
	DocumentResponse
	Chunks []ChunkResponse `json:"chunks"`
}

type ChunkResponse struct {
	Id       string                `json:"id"`
	Content  string                `json:"content"`
	Metadata ChunkMetadataResponse `json:"metadata"`
}

type ChunkMetadataResponse struct {
	Filename    string `json:"filename"`
	FileType    string `json:"file_type"`
	DocumentId  string `json:"document_id"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
	UserId      string `json:"user_id"`
}

type DocumentListResponse struct {
	Documents []DocumentResponse `json:"documents"`
}

type DeleteDocumentResponse struct {
	Id     string `json:"id"`
	Status string `json:"status" example:"deleted"`
}

type TranscriptResponse struct {
	StreamId string   `json:"stream_id"`
	Lines    []string `json:"lines"`
}

// requests---------------------

type PatchDocumentRequest struct {
	Filename *string `json:"filename,omitempty"`
	Status   *string `json:"status,omitempty"`
}
