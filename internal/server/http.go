package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mithrel/medchat/internal/db"
	"github.com/mithrel/medchat/internal/present"
	"github.com/mithrel/medchat/internal/render"
	"github.com/mithrel/medchat/internal/turn"
	"github.com/mithrel/medchat/pkg/api"
)

const (
	maxBody         = 1 << 20
	contentProtobuf = "application/x-protobuf"
)

// Server serves render and intake history endpoints backed by a Store.
type Server struct {
	cfg   *viper.Viper
	store *db.Store
	log   *log.Logger
	now   func() time.Time
}

func New(cfg *viper.Viper, store *db.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{cfg: cfg, store: store, log: logger, now: time.Now}
}

// Router returns an http.Handler with registered routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /v1/render", s.auth(s.handleRender))
	mux.HandleFunc("POST /v1/sessions/{id}/turns", s.auth(s.handleTurn))
	mux.HandleFunc("GET /v1/sessions/{id}", s.auth(s.handleSession))
	mux.HandleFunc("DELETE /v1/sessions/{id}", s.auth(s.handleDeleteSession))
	mux.HandleFunc("GET /v1/sessions", s.auth(s.handleSessions))
	mux.HandleFunc("GET /v1/records", s.auth(s.handleRecords))
	mux.HandleFunc("GET /v1/records/{id}", s.auth(s.handleRecord))
	return mux
}

// auth enforces the bearer token when auth.token is set.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok := strings.TrimSpace(s.cfg.GetString("auth.token"))
		if tok == "" {
			next.ServeHTTP(w, r)
			return
		}
		got := r.Header.Get("Authorization")
		if !strings.HasPrefix(got, "Bearer ") || strings.TrimSpace(strings.TrimPrefix(got, "Bearer ")) != tok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	}
}

type renderRequest struct {
	Text string `json:"text"`
	// Turn strips a trailing ```json payload before rendering.
	Turn bool `json:"turn,omitempty"`
}

type renderResponse struct {
	Nodes []api.Node `json:"nodes"`
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}
	text := req.Text
	if req.Turn {
		text = turn.Split(text).Text
	}
	nodes := render.Render(text)
	if nodes == nil {
		nodes = []api.Node{}
	}
	if strings.Contains(r.Header.Get("Accept"), contentProtobuf) {
		b, err := nodesProto(nodes)
		if err != nil {
			http.Error(w, "encode failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", contentProtobuf)
		_, _ = w.Write(b)
		return
	}
	writeJSON(w, http.StatusOK, renderResponse{Nodes: nodes})
}

// nodesProto encodes nodes as a structpb.ListValue mirroring their JSON form.
func nodesProto(nodes []api.Node) ([]byte, error) {
	raw, err := json.Marshal(nodes)
	if err != nil {
		return nil, err
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	list, err := structpb.NewList(items)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(list)
}

type turnRequest struct {
	Sender   api.Sender `json:"sender"`
	Content  string     `json:"content"`
	ImageURL string     `json:"image_url,omitempty"`
	Seq      int64      `json:"seq,omitempty"`
}

type turnResponse struct {
	Message     api.Message             `json:"message"`
	Nodes       []api.Node              `json:"nodes"`
	Record      *api.ConsultationRecord `json:"record,omitempty"`
	RecordError string                  `json:"record_error,omitempty"`
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	var req turnRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Sender == "" {
		req.Sender = api.SenderBot
	}
	if req.Sender != api.SenderBot && req.Sender != api.SenderUser {
		http.Error(w, "bad request: sender must be bot or user", http.StatusBadRequest)
		return
	}

	now := s.now().UTC()
	msg := api.Message{
		SessionID: sessionID,
		Seq:       req.Seq,
		Sender:    req.Sender,
		Content:   req.Content,
		ImageURL:  req.ImageURL,
		CreatedAt: now,
	}
	var res turn.Result
	if req.Sender == api.SenderBot {
		res = turn.Process(req.Content, now)
		msg.Content = res.Text
	} else {
		res.Nodes = present.Transcript([]api.Message{msg})[0].Nodes
	}

	resp := turnResponse{Nodes: res.Nodes}
	if res.RecordErr != nil {
		resp.RecordError = res.RecordErr.Error()
		s.log.Printf("turn: session=%s bad payload: %v", sessionID, res.RecordErr)
	}
	err := s.store.InTx(r.Context(), func(ctx context.Context) error {
		stored, err := s.store.Messages.Append(ctx, msg)
		if err != nil {
			return err
		}
		resp.Message = stored
		if res.Record == nil {
			return nil
		}
		rec := *res.Record
		rec.SessionID = sessionID
		saved, err := s.store.Records.Save(ctx, rec)
		if err != nil {
			return err
		}
		resp.Record = &saved
		return nil
	})
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if resp.Nodes == nil {
		resp.Nodes = []api.Node{}
	}
	s.log.Printf("turn: session=%s seq=%d sender=%s record=%t", sessionID, resp.Message.Seq, msg.Sender, resp.Record != nil)
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.store.Messages.ListSession(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       r.PathValue("id"),
		"messages": present.Transcript(msgs),
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.Messages.DeleteSession(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.log.Printf("session: deleted id=%s messages=%d", r.PathValue("id"), n)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": n})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.Messages.ListSessions(r.Context(), s.limit(r))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if sessions == nil {
		sessions = []api.Session{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.Records.List(r.Context(), s.limit(r))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if recs == nil {
		recs = []api.ConsultationRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": recs})
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Records.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// limit reads ?limit=, falling back to history.page_size.
func (s *Server) limit(r *http.Request) int {
	if ls := strings.TrimSpace(r.URL.Query().Get("limit")); ls != "" {
		if n, err := strconv.Atoi(ls); err == nil && n > 0 {
			return n
		}
	}
	return s.cfg.GetInt("history.page_size")
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, db.ErrConflict):
		http.Error(w, "conflict", http.StatusConflict)
	case errors.Is(err, db.ErrNoSession):
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
	default:
		s.log.Printf("store error: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
