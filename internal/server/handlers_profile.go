package server

import (
	"errors"
	"mime"
	"net/http"

	"github.com/jonathan/hiring-pipeline/internal/enrich"
	"github.com/jonathan/hiring-pipeline/internal/types"
)

// handleHRProfile records years of experience and optional resume text.
func (s *Server) handleHRProfile(w http.ResponseWriter, r *http.Request) {
	var req types.HRProfileRequest
	if err := s.decode(r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	actor, err := s.workflow.CompleteHRProfile(r.Context(), caller(r), *req.YearsOfExperience, req.ResumeText)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, actor)
}

// handleResume accepts either a multipart upload in field "file" or a JSON
// body with resume_text.
func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	text, err := s.readResume(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	actor, err := s.workflow.SubmitResume(r.Context(), caller(r), text)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, actor)
}

func (s *Server) readResume(r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var req types.ResumeTextRequest
		if err := s.decode(r, &req); err != nil {
			return "", err
		}
		return enrich.PlainText(req.ResumeText), nil
	}

	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", tooLarge
		}
		return "", &ErrValidation{Field: "file", Message: "invalid multipart upload"}
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", &ErrValidation{Field: "file", Message: "required"}
	}
	defer file.Close()

	text, err := enrich.ExtractText(header.Filename, file)
	if err != nil {
		var unsupported *enrich.UnsupportedFileError
		var tooLarge *http.MaxBytesError
		if errors.As(err, &unsupported) || errors.As(err, &tooLarge) {
			return "", err
		}
		return "", &ErrValidation{Field: "file", Message: err.Error()}
	}
	if text == "" {
		return "", &ErrValidation{Field: "file", Message: "no text could be extracted"}
	}
	return text, nil
}
