package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/valpere/texsplit/internal/chunker"
	"github.com/valpere/texsplit/internal/latex"
	"github.com/valpere/texsplit/internal/pipeline"
	"github.com/valpere/texsplit/internal/translator"
)

type splitRequest struct {
	Text          string `json:"text"`
	ChunkSize     int    `json:"chunk_size"`
	StripComments bool   `json:"strip_comments"`
	MergeLines    bool   `json:"merge_lines"`
}

type mergeRequest struct {
	Template latex.Template `json:"template"`
	Chunks   []string       `json:"chunks"`
}

type translateRequest struct {
	Text      string `json:"text"`
	Source    string `json:"source"`
	Target    string `json:"target"`
	ChunkSize int    `json:"chunk_size"`
}

type documentResponse struct {
	Document string `json:"document"`
	Chunks   int    `json:"chunks,omitempty"`
	RunID    string `json:"run_id,omitempty"`
}

func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	var req splitRequest
	if !decode(w, r, &req) {
		return
	}

	text := req.Text
	if req.StripComments {
		text = latex.StripComments(text)
	}
	if req.MergeLines {
		text = latex.MergeSoftLines(text)
	}

	doc, err := chunker.Split(text, s.chunkSize(req.ChunkSize))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Template.Text == "" {
		jsonError(w, "template is required", http.StatusBadRequest)
		return
	}

	tmpl := req.Template
	if tmpl.Begin == "" || tmpl.End == "" {
		var err error
		if tmpl, err = latex.NewTemplate(req.Template.Text); err != nil {
			s.fail(w, err)
			return
		}
	}
	doc := &chunker.Document{Template: tmpl, Chunks: req.Chunks}
	out, err := doc.Reassemble(req.Chunks)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse{Document: out, Chunks: len(req.Chunks)})
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Target == "" {
		jsonError(w, "target is required", http.StatusBadRequest)
		return
	}

	source := req.Source
	if (source == "" || source == "auto") && s.opts.Detect != nil {
		if _, body, err := latex.Extract(req.Text); err == nil {
			if code, ok := s.opts.Detect(body); ok {
				source = code
			}
		}
	}

	sessOpts := s.opts.Session
	sessOpts.ID = ""
	sessOpts.SourceLang = source
	sessOpts.TargetLang = req.Target
	sess := translator.Open(sessOpts)

	popts := s.opts.Pipeline
	popts.MaxChars = s.chunkSize(req.ChunkSize)
	popts.Checkpoint = nil
	popts.Progress = nil
	popts.Logger = s.log

	out, err := pipeline.New(s.translator, popts).Run(r.Context(), req.Text, sess)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse{Document: out, RunID: sess.ID})
}

func (s *Server) chunkSize(n int) int {
	if n > 0 {
		return n
	}
	return s.opts.ChunkSize
}

// fail maps domain errors onto status codes.
func (s *Server) fail(w http.ResponseWriter, err error) {
	var (
		structErr *latex.StructureError
		parseErr  *latex.ParseError
		asmErr    *chunker.AssemblyError
		chunkErr  *pipeline.ChunkError
	)
	switch {
	case errors.As(err, &structErr), errors.As(err, &parseErr), errors.As(err, &asmErr):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &chunkErr):
		s.log.Warn("translation failed", "chunk", chunkErr.Index, "total", chunkErr.Total, "error", chunkErr.Err)
		jsonError(w, err.Error(), http.StatusBadGateway)
	default:
		s.log.Error("request failed", "error", err)
		jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		jsonError(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
