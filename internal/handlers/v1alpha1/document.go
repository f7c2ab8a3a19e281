package v1alpha1

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	api "github.com/editalhub/edital-api/api/v1alpha1"
	"github.com/editalhub/edital-api/internal/handlers/v1alpha1/mappers"
	"github.com/editalhub/edital-api/internal/service"
	"github.com/editalhub/edital-api/pkg/requestid"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 32 MiB covers every announcement PDF seen so far.
const maxUploadBytes = 32 << 20

type DocumentHandler struct {
	documentSrv *service.DocumentService
}

func NewDocumentHandler(documentSrv *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentSrv: documentSrv}
}

func (h *DocumentHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/documents", func(r chi.Router) {
		r.Post("/", h.SubmitDocument)
		r.Get("/", h.ListDocuments)
		r.Get("/{id}", h.GetDocument)
		r.Post("/{id}/reprocess", h.ReprocessDocument)
	})
}

// (POST /api/v1/documents)
func (h *DocumentHandler) SubmitDocument(w http.ResponseWriter, r *http.Request) {
	logger := zap.S().Named("document_handler")

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		renderError(w, r, http.StatusBadRequest, fmt.Sprintf("failed to parse multipart form: %v", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "missing form file \"file\"")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, fmt.Sprintf("failed to read upload: %v", err))
		return
	}
	if len(data) > maxUploadBytes {
		renderError(w, r, http.StatusRequestEntityTooLarge, "uploaded document exceeds the size limit")
		return
	}

	displayName := r.FormValue("display_name")
	if displayName == "" {
		displayName = header.Filename
	}

	document, created, err := h.documentSrv.Submit(r.Context(), data, displayName)
	if err != nil {
		var emptyErr *service.ErrEmptyDocument
		if errors.As(err, &emptyErr) {
			renderError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		logger.Errorf("failed to submit document: %v", err)
		renderError(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to submit document: %v", err))
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	render.Status(r, status)
	render.JSON(w, r, mappers.DocumentToApi(*document))
}

// (POST /api/v1/documents/{id}/reprocess)
func (h *DocumentHandler) ReprocessDocument(w http.ResponseWriter, r *http.Request) {
	logger := zap.S().Named("document_handler")

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid document id")
		return
	}

	document, err := h.documentSrv.Reprocess(r.Context(), id)
	if err != nil {
		var notFoundErr *service.ErrResourceNotFound
		if errors.As(err, &notFoundErr) {
			renderError(w, r, http.StatusNotFound, err.Error())
			return
		}
		var processingErr *service.ErrDocumentProcessing
		if errors.As(err, &processingErr) {
			renderError(w, r, http.StatusConflict, err.Error())
			return
		}
		logger.Errorf("failed to reprocess document %s: %v", id, err)
		renderError(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to reprocess document: %v", err))
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, mappers.DocumentToApi(*document))
}

// (GET /api/v1/documents/{id})
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid document id")
		return
	}

	document, err := h.documentSrv.GetDocument(r.Context(), id)
	if err != nil {
		var notFoundErr *service.ErrResourceNotFound
		if errors.As(err, &notFoundErr) {
			renderError(w, r, http.StatusNotFound, err.Error())
			return
		}
		renderError(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to get document: %v", err))
		return
	}

	render.JSON(w, r, mappers.DocumentToApi(*document))
}

// (GET /api/v1/documents)
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	includeAll := r.URL.Query().Get("all") == "true"

	documents, err := h.documentSrv.ListDocuments(r.Context(), includeAll)
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to list documents: %v", err))
		return
	}

	render.JSON(w, r, mappers.DocumentListToApi(documents))
}

func renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, api.Error{Message: message, RequestId: requestid.FromContextPtr(r.Context())})
}
