package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akolanti/StreamAPI/internal/api"
	"github.com/akolanti/StreamAPI/internal/config"
	"github.com/akolanti/StreamAPI/internal/data/blobStore"
	"github.com/akolanti/StreamAPI/internal/data/docStore"
	"github.com/akolanti/StreamAPI/internal/domain/docModel"
	"github.com/akolanti/StreamAPI/internal/pipeline"
	"github.com/akolanti/StreamAPI/internal/stream"
	"github.com/akolanti/StreamAPI/pkg/logger_i"
	"github.com/go-chi/chi/v5"
)

type fakeEmbedder struct{}

func (fakeEmbedder) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1}, nil
}

type fakeIndex struct{ deleted []string }

func (f *fakeIndex) EnsureCollection(ctx context.Context) error { return nil }
func (f *fakeIndex) UpsertChunk(ctx context.Context, chunk docModel.Chunk, vector []float32) error {
	return nil
}
func (f *fakeIndex) CountByDocument(ctx context.Context, documentId string) (int, error) {
	return 0, nil
}
func (f *fakeIndex) ListChunkIndices(ctx context.Context, documentId string) ([]int, error) {
	return nil, nil
}
func (f *fakeIndex) DeleteByDocument(ctx context.Context, documentId string) error {
	f.deleted = append(f.deleted, documentId)
	return nil
}

type fakeTranscripts struct{ lines map[string][]string }

func (f *fakeTranscripts) AppendLine(ctx context.Context, streamId string, text string) error {
	f.lines[streamId] = append(f.lines[streamId], text)
	return nil
}
func (f *fakeTranscripts) GetLines(ctx context.Context, streamId string) ([]string, error) {
	return f.lines[streamId], nil
}

type testEnv struct {
	store    *docStore.InMemoryDocStore
	index    *fakeIndex
	registry *stream.Registry
	runs     chan pipeline.Run
}

// wires the package singletons directly; sync.Once would pin the first
// test's dependencies for the whole package otherwise
func setupHandlers(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store:    docStore.InitInMemoryDocStore(),
		index:    &fakeIndex{},
		registry: stream.NewRegistry(),
		runs:     make(chan pipeline.Run, 10),
	}
	transcripts := &fakeTranscripts{lines: map[string][]string{"stream-1": {"hello", "world"}}}

	blobs, err := blobStore.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	orch := pipeline.NewOrchestrator(env.store, blobs, env.index, fakeEmbedder{})
	svc := pipeline.InitPipelineService(pipeline.ServiceConfig{
		RunChannel:        env.runs,
		DispatcherChannel: make(chan bool, 10),
		Orchestrator:      orch,
	})

	logRH = logger_i.NewLogger("StreamHandlers")
	logDH = logger_i.NewLogger("DocumentHandler")
	_registry = env.registry
	_eventRouter = stream.NewRouter(env.registry, transcripts)
	_transcripts = transcripts
	docHandlerInstance = &DocumentHandler{store: env.store, blobs: blobs, index: env.index, pipeline: svc}
	return env
}

func withTrace(r *http.Request) *http.Request {
	ctx := context.WithValue(r.Context(), config.TRACE_ID_KEY, "test-trace")
	return r.WithContext(ctx)
}

func testRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Post("/webhook", WebhookHandler)
	r.Get("/streams", GetStreamsHandler)
	r.Get("/streams/{id}/transcript", GetTranscriptHandler)
	r.Post("/documents", PostDocumentHandler)
	r.Get("/documents", ListDocumentsHandler)
	r.Get("/documents/{id}", GetDocumentHandler)
	r.Patch("/documents/{id}", PatchDocumentHandler)
	r.Delete("/documents/{id}", DeleteDocumentHandler)
	return r
}

func TestWebhookHandler(t *testing.T) {
	setupHandlers(t)
	router := testRouter()

	t.Run("valid event is accepted", func(t *testing.T) {
		body := `{"type":"start","streamId":"stream-1","timestamp":1.0}`
		req := withTrace(httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body)))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusAccepted {
			t.Fatalf("status = %d; want 202 (body %s)", rec.Code, rec.Body.String())
		}
		var ack api.WebhookAck
		if err := json.Unmarshal(rec.Body.Bytes(), &ack); err != nil {
			t.Fatal(err)
		}
		if ack.Status != "accepted" || ack.StreamId != "stream-1" {
			t.Errorf("unexpected ack %+v", ack)
		}
	})

	t.Run("missing streamId names the field", func(t *testing.T) {
		body := `{"type":"transcript","timestamp":1.0,"data":{"text":"hi"}}`
		req := withTrace(httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body)))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d; want 400", rec.Code)
		}
		var errResp api.ErrorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &errResp); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(errResp.Error, "streamId") {
			t.Errorf("error %q does not name the violated field", errResp.Error)
		}
	})

	t.Run("malformed body is rejected", func(t *testing.T) {
		req := withTrace(httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json")))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d; want 400", rec.Code)
		}
	})
}

func TestGetTranscriptHandler(t *testing.T) {
	setupHandlers(t)
	router := testRouter()

	req := withTrace(httptest.NewRequest(http.MethodGet, "/streams/stream-1/transcript", nil))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	var resp api.TranscriptResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Lines) != 2 || resp.Lines[0] != "hello" {
		t.Errorf("unexpected transcript %+v", resp)
	}
}

func multipartUpload(t *testing.T, userId string, filename string, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if userId != "" {
		if err := writer.WriteField("user_id", userId); err != nil {
			t.Fatal(err)
		}
	}
	part, err := writer.CreateFormFile("document", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, writer.FormDataContentType()
}

func TestPostDocumentHandler(t *testing.T) {
	env := setupHandlers(t)
	router := testRouter()

	t.Run("valid upload queues a run", func(t *testing.T) {
		body, contentType := multipartUpload(t, "user-1", "notes.txt", "some document text")
		req := withTrace(httptest.NewRequest(http.MethodPost, "/documents", body))
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusAccepted {
			t.Fatalf("status = %d; want 202 (body %s)", rec.Code, rec.Body.String())
		}
		var resp api.DocumentResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Status != string(docModel.StatusPending) || resp.ChromaStatus != resp.Status {
			t.Errorf("unexpected statuses %q / %q", resp.Status, resp.ChromaStatus)
		}

		select {
		case run := <-env.runs:
			if run.DocumentId != resp.Id {
				t.Errorf("queued run for %q; want %q", run.DocumentId, resp.Id)
			}
			if run.LocalPath == "" {
				t.Error("run has no spool path")
			}
		default:
			t.Error("no pipeline run was queued")
		}
	})

	t.Run("missing user_id is rejected", func(t *testing.T) {
		body, contentType := multipartUpload(t, "", "notes.txt", "text")
		req := withTrace(httptest.NewRequest(http.MethodPost, "/documents", body))
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d; want 400", rec.Code)
		}
	})

	t.Run("unsupported extension is rejected", func(t *testing.T) {
		body, contentType := multipartUpload(t, "user-1", "archive.zip", "junk")
		req := withTrace(httptest.NewRequest(http.MethodPost, "/documents", body))
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d; want 400", rec.Code)
		}
	})
}

func TestGetDocumentHandler(t *testing.T) {
	env := setupHandlers(t)
	router := testRouter()
	ctx := context.Background()

	text := strings.Repeat("x", 2500)
	_ = env.store.CreateDocument(ctx, docModel.Document{
		Id: "doc-1", UserId: "user-1", Filename: "paper.pdf", FileType: docModel.PDF,
		FulltextContent: text, Status: docModel.StatusProcessed,
		ChunksProcessed: 3, TotalChunks: 3,
	})

	t.Run("returns document with derived chunks", func(t *testing.T) {
		req := withTrace(httptest.NewRequest(http.MethodGet, "/documents/doc-1", nil))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want 200", rec.Code)
		}
		var resp api.DocumentDetailResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if len(resp.Chunks) != 3 {
			t.Errorf("derived %d chunks; want 3", len(resp.Chunks))
		}
		if resp.Chunks[0].Id != "doc-1_chunk_0" {
			t.Errorf("chunk id = %q", resp.Chunks[0].Id)
		}
	})

	t.Run("unknown document is 404", func(t *testing.T) {
		req := withTrace(httptest.NewRequest(http.MethodGet, "/documents/nope", nil))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d; want 404", rec.Code)
		}
	})
}

func TestPatchDocumentHandler_Retry(t *testing.T) {
	env := setupHandlers(t)
	router := testRouter()
	ctx := context.Background()

	_ = env.store.CreateDocument(ctx, docModel.Document{
		Id: "failed-doc", UserId: "u1", Filename: "a.txt", FileType: docModel.DOCX,
		Status: docModel.StatusFailed, FailureReason: "embedding exploded",
	})
	_ = env.store.CreateDocument(ctx, docModel.Document{
		Id: "done-doc", UserId: "u1", Filename: "b.txt", FileType: docModel.DOCX,
		Status: docModel.StatusProcessed,
	})

	t.Run("failed document can be retried", func(t *testing.T) {
		body := `{"status":"pending"}`
		req := withTrace(httptest.NewRequest(http.MethodPatch, "/documents/failed-doc", strings.NewReader(body)))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want 200 (body %s)", rec.Code, rec.Body.String())
		}
		select {
		case run := <-env.runs:
			if run.DocumentId != "failed-doc" {
				t.Errorf("queued %q", run.DocumentId)
			}
		default:
			t.Error("retry did not queue a run")
		}
	})

	t.Run("processed document cannot be retried", func(t *testing.T) {
		body := `{"status":"pending"}`
		req := withTrace(httptest.NewRequest(http.MethodPatch, "/documents/done-doc", strings.NewReader(body)))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d; want 400", rec.Code)
		}
	})

	t.Run("rename", func(t *testing.T) {
		body := `{"filename":"renamed.txt"}`
		req := withTrace(httptest.NewRequest(http.MethodPatch, "/documents/done-doc", strings.NewReader(body)))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want 200", rec.Code)
		}
		doc, _ := env.store.GetDocument(ctx, "done-doc")
		if doc.Filename != "renamed.txt" {
			t.Errorf("filename = %q", doc.Filename)
		}
	})
}

func TestDeleteDocumentHandler(t *testing.T) {
	env := setupHandlers(t)
	router := testRouter()
	ctx := context.Background()

	_ = env.store.CreateDocument(ctx, docModel.Document{
		Id: "doc-del", UserId: "u1", Filename: "a.txt", FileType: docModel.DOCX,
		Status: docModel.StatusProcessed,
	})
	if err := os.MkdirAll(config.SpoolDir, 0o750); err != nil {
		t.Fatal(err)
	}
	spool := filepath.Join(config.SpoolDir, "doc-del.txt")
	if err := os.WriteFile(spool, []byte("text"), 0o644); err != nil {
		t.Fatal(err)
	}

	req := withTrace(httptest.NewRequest(http.MethodDelete, "/documents/doc-del", nil))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	if _, err := env.store.GetDocument(ctx, "doc-del"); err == nil {
		t.Error("document still exists after delete")
	}
	if len(env.index.deleted) != 1 || env.index.deleted[0] != "doc-del" {
		t.Errorf("vector purge calls = %v", env.index.deleted)
	}
	if _, err := os.Stat(spool); !os.IsNotExist(err) {
		t.Error("spool copy still exists after delete")
	}

	t.Run("unknown document is 404", func(t *testing.T) {
		req := withTrace(httptest.NewRequest(http.MethodDelete, "/documents/ghost", nil))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d; want 404", rec.Code)
		}
	})
}

func TestListDocumentsHandler_RequiresUserId(t *testing.T) {
	setupHandlers(t)
	router := testRouter()

	req := withTrace(httptest.NewRequest(http.MethodGet, "/documents", nil))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d; want 400", rec.Code)
	}
}

func TestGetStreamsHandler(t *testing.T) {
	env := setupHandlers(t)
	router := testRouter()

	env.registry.Register("live-1")
	env.registry.Subscribe("live-1", "conn-1")

	req := withTrace(httptest.NewRequest(http.MethodGet, "/streams", nil))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	var infos []stream.StreamInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &infos); err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 || infos[0].StreamId != "live-1" || infos[0].Subscribers != 1 {
		t.Errorf("unexpected stream list %+v", infos)
	}
}
