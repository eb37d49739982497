package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"notevault-server/internal/domain"
	"notevault-server/internal/service"
	"notevault-server/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

type NoteHandler struct {
	service  *service.NoteService
	validate *validator.Validate
}

func NewNoteHandler(service *service.NoteService) *NoteHandler {
	return &NoteHandler{
		service:  service,
		validate: validator.New(),
	}
}

// writeServiceError maps the service's typed errors onto status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	var notFound *service.NotFoundError
	if errors.As(err, &notFound) {
		response.NotFound(w, notFound.Error())
		return
	}
	var invalid *service.ValidationError
	if errors.As(err, &invalid) {
		response.BadRequest(w, invalid.Error())
		return
	}
	response.InternalError(w, "internal server error")
}

func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request payload")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	note, err := h.service.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Created(w, note)
}

func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	notes, err := h.service.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if notes == nil {
		notes = []*domain.Note{}
	}
	response.Success(w, notes)
}

func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	noteID := mux.Vars(r)["id"]
	if noteID == "" {
		response.BadRequest(w, "note id is required")
		return
	}

	note, err := h.service.Get(r.Context(), noteID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, note)
}

func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	noteID := mux.Vars(r)["id"]
	if noteID == "" {
		response.BadRequest(w, "note id is required")
		return
	}

	var req domain.UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request payload")
		return
	}

	// Unknown ids take precedence over empty fields, so field checks are
	// left to the service after it has found the note.
	note, err := h.service.Update(r.Context(), noteID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, note)
}

func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	noteID := mux.Vars(r)["id"]
	if noteID == "" {
		response.BadRequest(w, "note id is required")
		return
	}

	if err := h.service.Delete(r.Context(), noteID); err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, map[string]string{"message": "note deleted successfully"})
}

// ListVersions returns the note's history, newest version first.
func (h *NoteHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	noteID := mux.Vars(r)["id"]
	if noteID == "" {
		response.BadRequest(w, "note id is required")
		return
	}

	versions, err := h.service.ListVersions(r.Context(), noteID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if versions == nil {
		versions = []*domain.NoteVersion{}
	}
	response.Success(w, versions)
}

func (h *NoteHandler) Restore(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	noteID := vars["id"]
	versionID := vars["versionId"]
	if noteID == "" || versionID == "" {
		response.BadRequest(w, "note id and version id are required")
		return
	}

	note, err := h.service.Restore(r.Context(), noteID, versionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, note)
}
