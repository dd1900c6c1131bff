package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/docchat/docchat/internal/embed"
	"github.com/docchat/docchat/internal/generate"
	"github.com/docchat/docchat/internal/index"
)

// chatRequest is the JSON body of both chat endpoints. History is
// caller-supplied; the server keeps no conversation state.
type chatRequest struct {
	Query   string          `json:"query"`
	TopK    int             `json:"top_k"`
	History []generate.Turn `json:"history"`
}

func decodeChatRequest(w http.ResponseWriter, r *http.Request) (chatRequest, bool) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return req, false
	}
	if strings.TrimSpace(req.Query) == "" {
		jsonError(w, "query is required", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeChatRequest(w, r)
	if !ok {
		return
	}

	resp, err := s.svc.Chat(r.Context(), req.Query, req.TopK, req.History)
	if err != nil {
		s.writeChatError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleChatStream answers over Server-Sent Events. Each fragment arrives
// as `data: {"content":...}`, sources follow as `data: {"sources":...}`,
// and `data: [DONE]` terminates a successful stream. Errors after the
// first fragment arrive as an `error` event; status codes are already gone
// by then.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeChatRequest(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		jsonError(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	fragments, errc, sources, err := s.svc.ChatStream(r.Context(), req.Query, req.TopK, req.History)
	if err != nil {
		s.writeChatError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for f := range fragments {
		writeSSE(w, "", map[string]any{"content": f})
		flusher.Flush()
	}
	if err := <-errc; err != nil {
		s.log.Error("chat stream failed", "error", err)
		writeSSE(w, "error", map[string]any{"error": err.Error()})
		flusher.Flush()
		return
	}

	writeSSE(w, "", map[string]any{"sources": sources})
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// writeSSE emits one SSE frame. JSON encoding keeps fragment newlines from
// breaking the wire framing.
func writeSSE(w http.ResponseWriter, event string, payload any) {
	if event != "" {
		fmt.Fprintf(w, "event: %s\n", event)
	}
	b, _ := json.Marshal(payload)
	fmt.Fprintf(w, "data: %s\n\n", b)
}

// writeChatError maps domain errors onto HTTP status codes.
func (s *Server) writeChatError(w http.ResponseWriter, err error) {
	s.log.Error("chat failed", "error", err)
	switch {
	case errors.Is(err, index.ErrInvalidTopK):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, embed.ErrUnavailable),
		errors.Is(err, generate.ErrUnavailable),
		errors.Is(err, index.ErrUnavailable):
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}
