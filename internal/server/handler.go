package server

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"headerDiffCodec/internal/headerdiff"
	"headerDiffCodec/internal/logging"
	"headerDiffCodec/internal/session"
	"headerDiffCodec/internal/stats"
)

// Request bodies larger than this are rejected.
const maxBodySize = 1 << 20

type createSessionRequest struct {
	Context      string `json:"context"`
	MaxTableSize int    `json:"max_table_size"`
}

type sessionResponse struct {
	ID           string        `json:"id"`
	Context      string        `json:"context"`
	MaxTableSize int           `json:"max_table_size"`
	Batches      int           `json:"batches"`
	TableSize    int           `json:"table_size"`
	Totals       stats.Batch   `json:"totals"`
	Entries      []entryOutput `json:"entries,omitempty"`
}

type entryOutput struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Value string `json:"value"`
	Age   int    `json:"age"`
}

type representationOutput struct {
	Name               string `json:"name"`
	Value              string `json:"value"`
	Representation     string `json:"representation"`
	Indexing           string `json:"indexing"`
	Reference          int    `json:"reference"`
	CommonPrefixLength int    `json:"common_prefix_length"`
	Bytes              string `json:"bytes"`
}

type batchResponse struct {
	Batch           int                    `json:"batch"`
	Stream          string                 `json:"stream"`
	Stats           stats.Batch            `json:"stats"`
	Ratio           float64                `json:"ratio"`
	HPACKRatio      float64                `json:"hpack_ratio"`
	Representations []representationOutput `json:"representations"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (srv *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		srv.Log(logging.LogLevelError, "Response writer failed: %s", err)
	}
}

func (srv *Server) writeError(w http.ResponseWriter, status int, err error) {
	srv.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (srv *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	srv.Log(logging.LogLevelWarn, "Not Found: %s %s", r.Method, r.URL.Path)
	srv.writeError(w, http.StatusNotFound, errors.New("not found"))
}

func (srv *Server) methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	srv.Log(logging.LogLevelWarn, "Method Not Allowed: %s %s", r.Method, r.URL.Path)
	srv.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func (srv *Server) sessionFromRequest(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		srv.writeError(w, http.StatusNotFound, errors.New("unknown session"))
		return nil, false
	}
	s, ok := srv.Store.Get(id)
	if !ok {
		srv.writeError(w, http.StatusNotFound, errors.New("unknown session"))
		return nil, false
	}
	return s, true
}

func (srv *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		srv.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.MaxTableSize < 0 || req.MaxTableSize > headerdiff.MaxTableSizeLimit {
		srv.writeError(w, http.StatusBadRequest, fmt.Errorf("max_table_size must be between 1 and %d", headerdiff.MaxTableSizeLimit))
		return
	}

	cfg, err := srv.Config.HeaderDiff(req.Context, srv.Logger)
	if err != nil {
		srv.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.MaxTableSize > 0 {
		cfg.MaxTableSize = req.MaxTableSize
	}

	s, err := srv.Store.Create(cfg)
	if err != nil {
		srv.writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	snap := s.Snapshot()
	srv.writeJSON(w, http.StatusCreated, sessionResponse{
		ID:           snap.ID.String(),
		Context:      snap.Context.String(),
		MaxTableSize: snap.MaxTableSize,
	})
}

func (srv *Server) getSession(w http.ResponseWriter, r *http.Request) {
	s, ok := srv.sessionFromRequest(w, r)
	if !ok {
		return
	}

	snap := s.Snapshot()
	resp := sessionResponse{
		ID:           snap.ID.String(),
		Context:      snap.Context.String(),
		MaxTableSize: snap.MaxTableSize,
		Batches:      snap.Batches,
		TableSize:    snap.TableSize,
		Totals:       snap.Totals,
	}
	for _, e := range snap.Entries {
		resp.Entries = append(resp.Entries, entryOutput{Index: e.Index, Name: e.Name, Value: e.Value, Age: e.Age})
	}
	srv.writeJSON(w, http.StatusOK, resp)
}

func (srv *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	s, ok := srv.sessionFromRequest(w, r)
	if !ok {
		return
	}
	srv.Store.Delete(s.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (srv *Server) roundTripBatch(w http.ResponseWriter, r *http.Request) {
	s, ok := srv.sessionFromRequest(w, r)
	if !ok {
		return
	}

	var headers []headerdiff.HeaderField
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&headers); err != nil {
		srv.writeError(w, http.StatusBadRequest, err)
		return
	}
	if headers == nil {
		headers = []headerdiff.HeaderField{}
	}

	result, err := s.RoundTrip(headers)
	if errors.Is(err, session.ErrInvalidHeaders) {
		srv.writeError(w, http.StatusBadRequest, err)
		return
	} else if err != nil {
		srv.Log(logging.LogLevelError, "Round trip failed for session %s: %v", s.ID, err)
		srv.Store.Delete(s.ID)
		srv.writeError(w, http.StatusConflict, err)
		return
	}

	resp := batchResponse{
		Batch:           result.Batch,
		Stream:          hex.EncodeToString(result.Stream),
		Stats:           result.Stats,
		Ratio:           result.Stats.Ratio(),
		HPACKRatio:      result.Stats.HPACKRatio(),
		Representations: make([]representationOutput, 0, len(result.Representations)),
	}
	for i, rep := range result.Representations {
		resp.Representations = append(resp.Representations, representationOutput{
			Name:               headers[i].Name,
			Value:              headers[i].Value,
			Representation:     rep.Kind.String(),
			Indexing:           rep.Indexing.String(),
			Reference:          rep.Reference,
			CommonPrefixLength: rep.CommonPrefixLength,
			Bytes:              hex.EncodeToString(rep.Encoded),
		})
	}
	srv.writeJSON(w, http.StatusOK, resp)
}
