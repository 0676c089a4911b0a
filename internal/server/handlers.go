package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/oakwood-commons/jvx/internal/flatten"
	"github.com/oakwood-commons/jvx/internal/formatter"
	"github.com/oakwood-commons/jvx/pkg/loader"
	"github.com/oakwood-commons/jvx/pkg/value"
)

const (
	defaultRowLimit = 100
	maxRowLimit     = 1000
)

var maxDocumentBytes int64 = 64 << 20

type errorResponse struct {
	Error string `json:"error"`
}

type documentResponse struct {
	Document bool   `json:"document"`
	Source   string `json:"source,omitempty"`
	Version  uint64 `json:"version"`
}

type rowsResponse struct {
	Document     bool                `json:"document"`
	Error        string              `json:"error,omitempty"`
	Source       string              `json:"source,omitempty"`
	Version      uint64              `json:"version"`
	Total        int                 `json:"total"`
	Offset       int                 `json:"offset"`
	Rows         []formatter.RowView `json:"rows"`
	Search       string              `json:"search"`
	SearchNotice string              `json:"search_notice,omitempty"`
}

type toggleRequest struct {
	Path string `json:"path"`
}

type toggleResponse struct {
	Path     string `json:"path"`
	Expanded bool   `json:"expanded"`
	Total    int    `json:"total"`
}

type searchRequest struct {
	Term string `json:"term"`
}

type searchResponse struct {
	Search       string `json:"search"`
	SearchNotice string `json:"search_notice,omitempty"`
	Total        int    `json:"total"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// handleDocument replaces the shared document with the request body: raw
// text, or a multipart form with a "file" part.
func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxDocumentBytes)

	format, err := loader.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		data   []byte
		source = "pasted text"
		named  bool
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, header, err := r.FormFile("file")
		if err != nil {
			if tooLarge(err) {
				writeError(w, http.StatusRequestEntityTooLarge, "upload too large: "+err.Error())
				return
			}
			writeError(w, http.StatusBadRequest, "missing file: "+err.Error())
			return
		}
		defer func() { _ = file.Close() }()
		data, err = io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "read file: "+err.Error())
			return
		}
		source, named = header.Filename, true
	} else {
		data, err = io.ReadAll(r.Body)
		if err != nil {
			status := http.StatusBadRequest
			if tooLarge(err) {
				status = http.StatusRequestEntityTooLarge
			}
			writeError(w, status, "read body: "+err.Error())
			return
		}
	}

	var doc value.Value
	if named {
		doc, err = loader.LoadNamed(data, source, format)
	} else {
		doc, err = loader.Load(data, format)
	}
	if msg := s.ApplyLoad(doc, err, source); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	st := s.snapshot()
	s.log.Info("document replaced", "source", source, "document", st.hasDoc, "bytes", len(data))
	writeJSON(w, http.StatusOK, documentResponse{Document: st.hasDoc, Source: st.source, Version: st.version})
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return n, nil
}

// handleRows returns a window of rows for the virtualized list.
func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", defaultRowLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit = min(limit, maxRowLimit)

	v, st, err := s.viewFor(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer v.mu.Unlock()

	rows := v.engine.Rows()
	resp := rowsResponse{
		Document:     st.hasDoc,
		Error:        st.loadErr,
		Source:       st.source,
		Version:      st.version,
		Total:        len(rows),
		Offset:       offset,
		Rows:         []formatter.RowView{},
		Search:       v.engine.Search(),
		SearchNotice: v.engine.SearchNotice(),
	}
	if offset < len(rows) {
		end := min(offset+limit, len(rows))
		for _, row := range rows[offset:end] {
			resp.Rows = append(resp.Rows, formatter.NewRowView(row))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	v, _, err := s.viewFor(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer v.mu.Unlock()

	expanded := v.engine.Toggle(req.Path)
	writeJSON(w, http.StatusOK, toggleResponse{Path: req.Path, Expanded: expanded, Total: v.engine.Len()})
}

func (s *Server) handleExpandAll(w http.ResponseWriter, r *http.Request) {
	s.withView(w, r, (*flatten.Engine).ExpandAll)
}

func (s *Server) handleCollapseAll(w http.ResponseWriter, r *http.Request) {
	s.withView(w, r, (*flatten.Engine).CollapseAll)
}

func (s *Server) withView(w http.ResponseWriter, r *http.Request, fn func(*flatten.Engine)) {
	v, _, err := s.viewFor(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer v.mu.Unlock()
	fn(v.engine)
	writeJSON(w, http.StatusOK, map[string]int{"total": v.engine.Len()})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	v, _, err := s.viewFor(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer v.mu.Unlock()

	// On a pattern error the term is kept and filtering stays off until the
	// next search.
	if err := v.engine.SetSearch(req.Term); err != nil {
		writeError(w, http.StatusBadRequest, v.engine.SearchNotice())
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{
		Search:       v.engine.Search(),
		SearchNotice: v.engine.SearchNotice(),
		Total:        v.engine.Len(),
	})
}

// handleCopy returns the text the page writes to the clipboard for a visible
// row.
func (s *Server) handleCopy(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	what := q.Get("what")
	if what == "" {
		what = "value"
	}
	v, _, err := s.viewFor(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer v.mu.Unlock()

	row, ok := v.engine.RowAt(v.engine.IndexOf(q.Get("path")))
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("path %q is not visible", q.Get("path")))
		return
	}
	text, err := formatter.CopyText(row, what)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, text)
}

// handleEvents streams a "document" event whenever the shared document
// changes.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, ": connected\n\n"); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		if !errors.Is(err, http.ErrNotSupported) {
			return
		}
	}

	ch := s.notifier.Subscribe()
	defer s.notifier.Unsubscribe(ch)
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ch:
			st := s.snapshot()
			if _, err := fmt.Fprintf(w, "event: document\ndata: {\"version\":%d}\n\n", st.version); err != nil {
				return
			}
			_ = rc.Flush()
		}
	}
}
