package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/akolanti/StreamAPI/internal/adapter"
	"github.com/akolanti/StreamAPI/internal/adapter/utils"
	"github.com/akolanti/StreamAPI/internal/api"
	"github.com/akolanti/StreamAPI/internal/config"
	"github.com/akolanti/StreamAPI/internal/data/blobStore"
	"github.com/akolanti/StreamAPI/internal/data/docStore"
	"github.com/akolanti/StreamAPI/internal/domain/docModel"
	"github.com/akolanti/StreamAPI/internal/pipeline"
	"github.com/akolanti/StreamAPI/internal/pipeline/chunker"
	"github.com/akolanti/StreamAPI/internal/pipeline/extract"
	"github.com/akolanti/StreamAPI/internal/rag/vectorDB"
	"github.com/akolanti/StreamAPI/pkg/logger_i"
)

var (
	docHandlerInstance *DocumentHandler //private singleton
	docOnce            sync.Once
	logDH              *logger_i.Logger
)

type DocumentHandler struct {
	store    docStore.DocumentStore
	blobs    blobStore.BlobStore
	index    vectorDB.ChunkIndex
	pipeline *pipeline.Service
}

func InitDocumentHandler(store docStore.DocumentStore, blobs blobStore.BlobStore, index vectorDB.ChunkIndex, pipelineService *pipeline.Service) {
	docOnce.Do(func() {
		docHandlerInstance = &DocumentHandler{
			store:    store,
			blobs:    blobs,
			index:    index,
			pipeline: pipelineService,
		}
		logDH = logger_i.NewLogger("DocumentHandler")
		logDH.Info("Starting document handler")
	})
}

// PostDocumentHandler godoc
// @Summary      Upload a document for processing
// @Description  Receives a file via multipart/form-data, stores the raw bytes, and queues an async pipeline run.
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Param        user_id   formData  string  true  "Owner of the document"
// @Param        document  formData  file    true  "The PDF, DOCX or TEX file to upload"
// @Success      202  {object}  api.DocumentResponse  "Accepted - pipeline run queued"
// @Failure      400  {object}  api.ErrorResponse     "Missing fields or unsupported file type"
// @Failure      500  {object}  api.ErrorResponse     "Storage error"
// @Router       /documents [post]
func PostDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", r.RemoteAddr)
		return
	}
	h := docHandlerInstance

	const maxUploadSize = 32 << 20 //32mb
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "File too large or bad request")
		return
	}

	userId := r.FormValue("user_id")
	if userId == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "user_id is required")
		return
	}

	fileReader, fileMetadata, err := r.FormFile("document")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Could not retrieve file")
		return
	}
	defer fileReader.Close()

	fileType := extract.DetectFileType(fileMetadata.Filename)
	if fileType == docModel.ERR {
		WriteErrorResponse(w, http.StatusBadRequest, "unsupported file type")
		return
	}

	id := utils.GetNewUUID()
	spoolPath, err := h.spoolUpload(id, fileMetadata.Filename, fileReader)
	if err != nil {
		logDH.Error("could not spool upload", "error", err.Error())
		WriteErrorResponse(w, http.StatusInternalServerError, "Storage error")
		return
	}

	gcsPath, err := h.saveRawFile(r, id, fileMetadata.Filename, spoolPath)
	if err != nil {
		logDH.Error("could not persist raw file", "error", err.Error())
		WriteErrorResponse(w, http.StatusInternalServerError, "Storage error")
		return
	}

	doc := docModel.Document{
		Id:       id,
		UserId:   userId,
		Filename: fileMetadata.Filename,
		FileType: fileType,
		GcsPath:  gcsPath,
		Status:   docModel.StatusPending,
	}
	if err := h.store.CreateDocument(r.Context(), doc); err != nil {
		logDH.Error("could not create document", "error", err.Error())
		WriteErrorResponse(w, http.StatusInternalServerError, "Storage error")
		return
	}

	run := pipeline.Run{DocumentId: id, TraceId: traceFrom(r), LocalPath: spoolPath}
	if err := h.pipeline.Submit(run); err != nil {
		logDH.Error("could not queue pipeline run", "documentId", id, "error", err.Error())
		//the raw file is in the blob store; no run will consume the spool copy
		os.Remove(spoolPath)
		WriteErrorResponse(w, http.StatusServiceUnavailable, "Processing queue is full, retry later")
		return
	}

	created, err := h.store.GetDocument(r.Context(), id)
	if err != nil {
		created = doc
	}
	writeJsonResponse(w, http.StatusAccepted, adapter.ToDocumentResponse(created))
}

// GetDocumentHandler godoc
// @Summary      Get a document with its chunks
// @Description  Returns the document row plus its chunk list derived from the stored full text.
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  api.DocumentDetailResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /documents/{id} [get]
func GetDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")

	doc, err := docHandlerInstance.store.GetDocument(r.Context(), id)
	if err != nil {
		if errors.Is(err, docModel.ErrNotFound) {
			WriteErrorResponse(w, http.StatusNotFound, "document not found")
			return
		}
		WriteErrorResponse(w, http.StatusInternalServerError, "could not read document")
		return
	}

	//the chunk list is a projection of the relational row only; it says
	//nothing about what the vector index currently holds
	chunks := chunker.ChunkDocument(doc, config.ChunkSize, config.ChunkOverlap)
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentDetailResponse(doc, chunks))
}

// ListDocumentsHandler godoc
// @Summary      List a user's documents
// @Tags         Documents
// @Produce      json
// @Param        user_id  query     string  true  "Owner of the documents"
// @Success      200  {object}  api.DocumentListResponse
// @Failure      400  {object}  api.ErrorResponse
// @Router       /documents [get]
func ListDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	userId := r.URL.Query().Get("user_id")
	if userId == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "user_id is required")
		return
	}

	docs, err := docHandlerInstance.store.ListDocuments(r.Context(), userId)
	if err != nil {
		WriteErrorResponse(w, http.StatusInternalServerError, "could not list documents")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentListResponse(docs))
}

// PatchDocumentHandler godoc
// @Summary      Update a document
// @Description  Renames the document, or sets status to pending on a failed document to retry the pipeline.
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  api.DocumentResponse
// @Failure      400  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Failure      409  {object}  api.ErrorResponse "A pipeline run is already in flight"
// @Router       /documents/{id} [patch]
func PatchDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	h := docHandlerInstance
	id := utils.GetChiURLParam(r, "id")

	var patch api.PatchDocumentRequest
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	doc, err := h.store.GetDocument(r.Context(), id)
	if err != nil {
		if errors.Is(err, docModel.ErrNotFound) {
			WriteErrorResponse(w, http.StatusNotFound, "document not found")
			return
		}
		WriteErrorResponse(w, http.StatusInternalServerError, "could not read document")
		return
	}

	if patch.Filename != nil {
		if *patch.Filename == "" {
			WriteErrorResponse(w, http.StatusBadRequest, "filename cannot be empty")
			return
		}
		if err := h.store.UpdateFilename(r.Context(), id, *patch.Filename); err != nil {
			WriteErrorResponse(w, http.StatusInternalServerError, "could not update filename")
			return
		}
	}

	if patch.Status != nil {
		if docModel.DocStatus(*patch.Status) != docModel.StatusPending {
			WriteErrorResponse(w, http.StatusBadRequest, "status can only be set to pending")
			return
		}
		if doc.Status != docModel.StatusFailed {
			WriteErrorResponse(w, http.StatusBadRequest, "only failed documents can be retried")
			return
		}
		if err := h.store.UpdateStatus(r.Context(), id, docModel.StatusPending, ""); err != nil {
			WriteErrorResponse(w, http.StatusInternalServerError, "could not update status")
			return
		}
		if err := h.pipeline.Submit(pipeline.Run{DocumentId: id, TraceId: traceFrom(r)}); err != nil {
			if errors.Is(err, docModel.ErrAlreadyProcessing) {
				WriteErrorResponse(w, http.StatusConflict, "document is already processing")
				return
			}
			WriteErrorResponse(w, http.StatusServiceUnavailable, "Processing queue is full, retry later")
			return
		}
	}

	updated, err := h.store.GetDocument(r.Context(), id)
	if err != nil {
		WriteErrorResponse(w, http.StatusInternalServerError, "could not read document")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentResponse(updated))
}

// DeleteDocumentHandler godoc
// @Summary      Delete a document
// @Description  Cancels any in-flight pipeline run, removes the relational row, and purges the raw file and vector points best-effort.
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  api.DeleteDocumentResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /documents/{id} [delete]
func DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	h := docHandlerInstance
	id := utils.GetChiURLParam(r, "id")

	doc, err := h.store.GetDocument(r.Context(), id)
	if err != nil {
		if errors.Is(err, docModel.ErrNotFound) {
			WriteErrorResponse(w, http.StatusNotFound, "document not found")
			return
		}
		WriteErrorResponse(w, http.StatusInternalServerError, "could not read document")
		return
	}

	if h.pipeline.Orchestrator.Cancel(id) {
		logDH.Info("cancelled in-flight run", "documentId", id)
	}

	if err := h.store.DeleteDocument(r.Context(), id); err != nil && !errors.Is(err, docModel.ErrNotFound) {
		WriteErrorResponse(w, http.StatusInternalServerError, "could not delete document")
		return
	}

	//relational row is gone, the rest is cleanup; failures are logged only
	if err := h.blobs.Delete(r.Context(), pipeline.ObjectName(id, doc.Filename)); err != nil {
		logDH.Error("could not delete raw file", "documentId", id, "error", err.Error())
	}
	if err := h.index.DeleteByDocument(r.Context(), id); err != nil {
		logDH.Error("could not purge vector points", "documentId", id, "error", err.Error())
	}
	spool := filepath.Join(config.SpoolDir, id+filepath.Ext(doc.Filename))
	if err := os.Remove(spool); err != nil && !os.IsNotExist(err) {
		logDH.Error("could not remove spool copy", "documentId", id, "error", err.Error())
	}

	writeJsonResponse(w, http.StatusOK, api.DeleteDocumentResponse{Id: id, Status: "deleted"})
}

// spoolUpload keeps a local copy for extraction so the pipeline does not have
// to pull the file back out of the blob store on the happy path.
func (h *DocumentHandler) spoolUpload(id string, filename string, content io.Reader) (string, error) {
	if err := os.MkdirAll(config.SpoolDir, 0750); err != nil {
		return "", err
	}
	path := filepath.Join(config.SpoolDir, id+filepath.Ext(filename))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, content); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

func (h *DocumentHandler) saveRawFile(r *http.Request, id string, filename string, spoolPath string) (string, error) {
	f, err := os.Open(spoolPath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return h.blobs.Save(r.Context(), pipeline.ObjectName(id, filename), f)
}
