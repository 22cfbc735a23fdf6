package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/entrhq/webpilot/pkg/types"
)

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Messages []*types.Message `json:"messages"`
}

// ToolInfo describes one tool in GET /api/tools.
type ToolInfo struct {
	Name         string                 `json:"name"`
	Description  string                 `json:"description"`
	Parameters   map[string]interface{} `json:"parameters"`
	LoopBreaking bool                   `json:"loopBreaking,omitempty"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{"status": "ok"}
	if s.sessions != nil {
		body["sessions"] = s.sessions.Len()
	}
	respondJSON(w, http.StatusOK, body)
}

// handleChat runs one turn and streams its events. The final "messages"
// event carries the messages the turn added, so a stateless client can
// extend its history.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondErrorWithID(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Messages) == 0 {
		respondErrorWithID(w, r, http.StatusBadRequest, "messages must not be empty")
		return
	}
	for i, m := range req.Messages {
		if m == nil {
			respondErrorWithID(w, r, http.StatusBadRequest, fmt.Sprintf("messages[%d] is null", i))
			return
		}
		if err := m.Validate(); err != nil {
			respondErrorWithID(w, r, http.StatusBadRequest, fmt.Sprintf("messages[%d]: %v", i, err))
			return
		}
	}

	stream, err := newEventStream(w)
	if err != nil {
		respondErrorWithID(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.MaxDuration)
	defer cancel()

	added, err := s.chat.Run(ctx, req.Messages, func(ev *types.AgentEvent) {
		if werr := stream.send("", ev); werr != nil {
			logger.Debugf("Dropping event %s: %v", ev.Type, werr)
		}
	})
	if err != nil {
		logger.Warnf("Chat turn failed (request_id=%s): %v", GetRequestID(r.Context()), err)
	}
	if added == nil {
		added = []*types.Message{}
	}
	if werr := stream.send("messages", added); werr != nil {
		logger.Debugf("Dropping final messages: %v", werr)
	}
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	defs := s.tools.Definitions()
	out := make([]ToolInfo, 0, len(defs))
	for _, def := range defs {
		info := ToolInfo{Name: def.Name, Description: def.Description, Parameters: def.Parameters}
		if t, ok := s.tools.Lookup(def.Name); ok {
			info.LoopBreaking = t.IsLoopBreaking()
		}
		out = append(out, info)
	}
	respondJSON(w, http.StatusOK, out)
}

// handleCallTool runs one tool directly. The result envelope is returned
// with 200 whether or not the tool collected data.
func (s *Server) handleCallTool(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if _, ok := s.tools.Lookup(name); !ok {
		respondErrorWithID(w, r, http.StatusNotFound, fmt.Sprintf("unknown tool %q", name))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		respondErrorWithID(w, r, http.StatusBadRequest, fmt.Sprintf("failed to read body: %v", err))
		return
	}
	args := json.RawMessage(body)
	if strings.TrimSpace(string(body)) == "" {
		args = json.RawMessage("{}")
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.MaxDuration)
	defer cancel()

	result := s.tools.Execute(ctx, name, args)
	respondJSON(w, http.StatusOK, result)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("Failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

func respondErrorWithID(w http.ResponseWriter, r *http.Request, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message, RequestID: GetRequestID(r.Context())})
}
