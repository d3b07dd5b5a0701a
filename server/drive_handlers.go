package server

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/lyfeumbria/manager/drive"
)

const (
	defaultPageSize = 50
	maxUploadSize   = 100 << 20
)

type createFolderRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parentId"`
}

func (s *Server) requireDrive(w http.ResponseWriter) bool {
	if s.drive == nil {
		writeError(w, http.StatusServiceUnavailable, "drive is not configured")
		return false
	}
	return true
}

// ListFilesHandler pages through a folder: ?folder=&pageSize=&pageToken=
func (s *Server) ListFilesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.requireDrive(w) {
			return
		}
		q := r.URL.Query()
		pageSize := defaultPageSize
		if v := q.Get("pageSize"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "pageSize must be a positive integer")
				return
			}
			pageSize = n
		}

		list, err := s.drive.ListFiles(r.Context(), q.Get("folder"), pageSize, q.Get("pageToken"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// SearchFilesHandler searches by name: ?q=&folder=. scope=global ignores the folder.
func (s *Server) SearchFilesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.requireDrive(w) {
			return
		}
		q := r.URL.Query()
		query := q.Get("q")
		if query == "" {
			writeError(w, http.StatusBadRequest, "q is required")
			return
		}
		folder := q.Get("folder")
		if folder == "" && q.Get("scope") != "global" {
			folder = s.drive.DefaultFolder()
		}

		files, err := s.drive.SearchFiles(r.Context(), query, folder)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if files == nil {
			files = []drive.File{}
		}
		writeJSON(w, http.StatusOK, files)
	}
}

// UploadHandler streams the "file" part of a multipart form into the folder named by
// the "parentId" field.
func (s *Server) UploadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.requireDrive(w) {
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "file is required")
			return
		}
		defer file.Close()

		mimeType := header.Header.Get("Content-Type")
		if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
			mimeType = mt
		} else {
			mimeType = "application/octet-stream"
		}

		uploaded, err := s.drive.Upload(r.Context(), r.FormValue("parentId"), header.Filename, mimeType, file)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		log.Info().Str("file_id", uploaded.ID).Str("name", uploaded.Name).Msg("file uploaded")
		writeJSON(w, http.StatusCreated, uploaded)
	}
}

func (s *Server) DeleteFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.requireDrive(w) {
			return
		}
		id := r.PathValue("id")
		if err := s.drive.Delete(r.Context(), id); err != nil {
			writeDomainError(w, err)
			return
		}
		log.Info().Str("file_id", id).Msg("file deleted")
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) CreateFolderHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.requireDrive(w) {
			return
		}
		var req createFolderRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeDomainError(w, err)
			return
		}
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		folder, err := s.drive.CreateFolder(r.Context(), req.Name, req.ParentID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, folder)
	}
}

