package adapter

import (
	"github.com/akolanti/StreamAPI/internal/api"
	"github.com/akolanti/StreamAPI/internal/domain/docModel"
)

func ToDocumentResponse(doc docModel.Document) api.DocumentResponse {
	return api.DocumentResponse{
		Id:              doc.Id,
		UserId:          doc.UserId,
		Filename:        doc.Filename,
		FileType:        string(doc.FileType),
		GcsPath:         doc.GcsPath,
		Status:          string(doc.Status),
		ChromaStatus:    string(doc.Status),
		FailureReason:   doc.FailureReason,
		ChunksProcessed: doc.ChunksProcessed,
		TotalChunks:     doc.TotalChunks,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}
}

func ToDocumentDetailResponse(doc docModel.Document, chunks []docModel.Chunk) api.DocumentDetailResponse {
	return api.DocumentDetailResponse{
		DocumentResponse: ToDocumentResponse(doc),
		Chunks:           ToChunkResponses(chunks),
	}
}

func ToChunkResponses(chunks []docModel.Chunk) []api.ChunkResponse {
	out := make([]api.ChunkResponse, len(chunks))
	for i, c := range chunks {
		out[i] = api.ChunkResponse{
			Id:      c.ChunkId,
			Content: c.Content,
			Metadata: api.ChunkMetadataResponse{
				Filename:    c.Metadata.Filename,
				FileType:    string(c.Metadata.FileType),
				DocumentId:  c.Metadata.DocumentId,
				ChunkIndex:  c.Metadata.ChunkIndex,
				TotalChunks: c.Metadata.TotalChunks,
				UserId:      c.Metadata.UserId,
			},
		}
	}
	return out
}

func ToDocumentListResponse(docs []docModel.Document) api.DocumentListResponse {
	out := make([]api.DocumentResponse, len(docs))
	for i, d := range docs {
		out[i] = ToDocumentResponse(d)
	}
	return api.DocumentListResponse{Documents: out}
}
