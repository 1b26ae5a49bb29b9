package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chatscribe/chatscribe/internal/fileproc"
	"github.com/chatscribe/chatscribe/internal/store"
)

type documentHandler struct {
	documents DocumentStore
	files     FileStore
	indexer   Indexer
	answerer  Answerer
	maxBytes  int64
	logger    *slog.Logger
}

// documentResponse is the JSON shape of a document. Extracted content is
// deliberately omitted from list/detail responses.
type documentResponse struct {
	ID               uuid.UUID `json:"id"`
	OriginalFilename string    `json:"original_filename"`
	FileType         string    `json:"file_type"`
	FileSize         int64     `json:"file_size"`
	UploadedAt       time.Time `json:"uploaded_at"`
}

func toDocumentResponse(d *store.Document) documentResponse {
	return documentResponse{
		ID:               d.ID,
		OriginalFilename: d.OriginalFilename,
		FileType:         d.FileType,
		FileSize:         d.FileSize,
		UploadedAt:       d.UploadedAt,
	}
}

// upload handles POST /api/v1/documents (multipart, field "file").
//
// The file is stored and its text extracted synchronously; indexing for
// retrieval is best-effort and never fails the upload.
func (h *documentHandler) upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "auth_required", "authentication required", h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			WriteError(w, http.StatusRequestEntityTooLarge, "file_too_large",
				fmt.Sprintf("upload exceeds %d bytes", h.maxBytes), h.logger)
			return
		}
		WriteError(w, http.StatusBadRequest, "missing_file", `multipart field "file" required`, h.logger)
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if filename == "" || filename == "." {
		WriteError(w, http.StatusBadRequest, "invalid_filename", "filename required", h.logger)
		return
	}
	if !h.files.IsAllowed(filename) {
		WriteError(w, http.StatusBadRequest, "file_type_not_allowed",
			"allowed file types: "+strings.Join(h.files.AllowedExtensions(), ", "), h.logger)
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			WriteError(w, http.StatusRequestEntityTooLarge, "file_too_large",
				fmt.Sprintf("upload exceeds %d bytes", h.maxBytes), h.logger)
			return
		}
		h.logger.Error("reading upload", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "could not read upload", h.logger)
		return
	}

	processed, err := h.files.Process(content, filename)
	if err != nil {
		if errors.Is(err, fileproc.ErrExtensionNotAllowed) {
			WriteError(w, http.StatusBadRequest, "file_type_not_allowed",
				"allowed file types: "+strings.Join(h.files.AllowedExtensions(), ", "), h.logger)
			return
		}
		if errors.Is(err, fileproc.ErrNoText) {
			WriteError(w, http.StatusUnprocessableEntity, "no_text", "no text could be extracted from the file", h.logger)
			return
		}
		h.logger.Error("processing upload", "filename", filename, "error", err)
		WriteError(w, http.StatusUnprocessableEntity, "processing_failed", "could not process the file", h.logger)
		return
	}

	doc, err := h.documents.CreateDocument(r.Context(), &store.Document{
		Filename:         processed.StorageName,
		OriginalFilename: filename,
		FilePath:         processed.Path,
		FileType:         strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), "."),
		FileSize:         int64(len(content)),
		Content:          processed.Text,
		UserID:           userID,
	})
	if err != nil {
		if _, rmErr := h.files.Delete(processed.Path); rmErr != nil {
			h.logger.Warn("orphaned upload cleanup failed", "path", processed.Path, "error", rmErr)
		}
		h.logger.Error("creating document", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "could not save document", h.logger)
		return
	}

	indexed := h.indexDocument(r, doc)

	writeJSON(w, http.StatusCreated, map[string]any{
		"document": toDocumentResponse(doc),
		"indexed":  indexed,
	})
}

// indexDocument runs the retrieval pipeline over a document's text.
// Failures are logged, not surfaced: the document row and file already
// exist and can be reprocessed later.
func (h *documentHandler) indexDocument(r *http.Request, doc *store.Document) bool {
	if !h.indexer.CanIndex() {
		h.logger.Warn("document not indexed, no embedding provider", "document_id", doc.ID)
		return false
	}

	chunks, err := h.indexer.ProcessDocument(r.Context(), doc.ID, doc.Content)
	if err != nil {
		h.logger.Error("indexing document", "document_id", doc.ID, "error", err)
		return false
	}

	h.logger.Info("document indexed", "document_id", doc.ID, "chunks", chunks)
	return true
}

// list handles GET /api/v1/documents.
func (h *documentHandler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "auth_required", "authentication required", h.logger)
		return
	}

	docs, err := h.documents.ListDocuments(r.Context(), userID)
	if err != nil {
		h.logger.Error("listing documents", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "could not list documents", h.logger)
		return
	}

	out := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentResponse(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": out})
}

// get handles GET /api/v1/documents/{id}.
func (h *documentHandler) get(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.ownedDocument(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"document": toDocumentResponse(doc)})
}

// delete handles DELETE /api/v1/documents/{id}: removes the row, the
// stored file, and the document's chunks from the vector index.
func (h *documentHandler) delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "auth_required", "authentication required", h.logger)
		return
	}

	doc, ok := h.ownedDocument(w, r)
	if !ok {
		return
	}

	if err := h.documents.DeleteDocument(r.Context(), doc.ID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "document not found", h.logger)
			return
		}
		h.logger.Error("deleting document", "document_id", doc.ID, "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "could not delete document", h.logger)
		return
	}

	// Row is gone; file and index cleanup are best-effort.
	if _, err := h.files.Delete(doc.FilePath); err != nil {
		h.logger.Warn("deleting stored file", "path", doc.FilePath, "error", err)
	}
	if err := h.indexer.DeleteDocument(r.Context(), doc.ID); err != nil {
		h.logger.Warn("deleting document chunks", "document_id", doc.ID, "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{"deleted": doc.ID})
}

// reprocess handles POST /api/v1/documents/{id}/reprocess: re-runs the
// indexing pipeline over the stored extracted text.
func (h *documentHandler) reprocess(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.ownedDocument(w, r)
	if !ok {
		return
	}

	if !h.indexer.CanIndex() {
		WriteError(w, http.StatusServiceUnavailable, "indexing_unavailable",
			"no embedding provider available", h.logger)
		return
	}

	chunks, err := h.indexer.ProcessDocument(r.Context(), doc.ID, doc.Content)
	if err != nil {
		h.logger.Error("reprocessing document", "document_id", doc.ID, "error", err)
		WriteError(w, http.StatusInternalServerError, "indexing_failed", "could not reprocess document", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"document_id": doc.ID,
		"chunks":      chunks,
	})
}

// summarize handles POST /api/v1/documents/{id}/summarize.
func (h *documentHandler) summarize(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.ownedDocument(w, r)
	if !ok {
		return
	}

	summary := h.answerer.Summarize(r.Context(), doc.Content)
	writeJSON(w, http.StatusOK, map[string]any{
		"document_id": doc.ID,
		"summary":     summary,
	})
}

// ownedDocument loads the document in the {id} path segment, scoped to the
// authenticated user. On failure it writes the error response and returns
// false.
func (h *documentHandler) ownedDocument(w http.ResponseWriter, r *http.Request) (*store.Document, bool) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "auth_required", "authentication required", h.logger)
		return nil, false
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_id", "invalid document ID", h.logger)
		return nil, false
	}

	doc, err := h.documents.GetDocument(r.Context(), id, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "document not found", h.logger)
			return nil, false
		}
		h.logger.Error("loading document", "document_id", id, "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "could not load document", h.logger)
		return nil, false
	}
	return doc, true
}
