package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/bartek-filipiuk/youtube-talker/internal/db"
	"github.com/bartek-filipiuk/youtube-talker/internal/ingestion"
	"github.com/bartek-filipiuk/youtube-talker/internal/pipeline"
	"github.com/bartek-filipiuk/youtube-talker/internal/types"
)

// maxAnswerVideos caps how many candidates ground a single answer.
const maxAnswerVideos = 3

// historyTurns is how much prior conversation the analyzer sees.
const historyTurns = 10

// ChatResponse represents the response for /chat
type ChatResponse struct {
	ConversationID uuid.UUID               `json:"conversation_id"`
	Reply          string                  `json:"reply"`
	Outcome        types.Outcome           `json:"outcome"`
	Decision       types.RoutingDecision   `json:"decision"`
	Candidates     []types.RankedCandidate `json:"candidates,omitempty"`
	Search         types.SearchMetadata    `json:"search"`
	Ranking        types.RankingMetadata   `json:"ranking"`
}

// handleChat answers one chat message: analyze, search, rank, route, then
// generate a grounded answer or the conversational fallback.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	scope := types.UserScope(req.UserID)
	if req.Channel != "" {
		scope = types.ChannelScope(req.Channel)
	}

	ctx := r.Context()
	conversationID := req.ConversationID
	var history []types.ConversationTurn
	if conversationID == uuid.Nil {
		conversationID = uuid.New()
	} else {
		turns, err := s.history.GetConversation(ctx, conversationID, historyTurns)
		if err != nil {
			// History is context, not a dependency: answer without it.
			log.Printf("Failed to load conversation %s: %v", conversationID, err)
		} else {
			history = turns
		}
	}

	result, err := s.pipeline.SearchAndRoute(ctx, req.Message, history, scope, pipeline.Options{})
	if err != nil {
		upstream := &ErrUpstream{Service: "query analysis", Cause: err}
		s.errorResponse(w, HTTPStatus(upstream), upstream.Error())
		return
	}

	reply, err := s.renderReply(ctx, req.Message, result, scope)
	if err != nil {
		upstream := &ErrUpstream{Service: "generation", Cause: err}
		s.errorResponse(w, HTTPStatus(upstream), upstream.Error())
		return
	}

	s.saveTurn(ctx, conversationID, req.UserID, db.RoleUser, req.Message)
	s.saveTurn(ctx, conversationID, req.UserID, db.RoleAssistant, reply)

	s.jsonResponse(w, http.StatusOK, ChatResponse{
		ConversationID: conversationID,
		Reply:          reply,
		Outcome:        result.Decision.Outcome,
		Decision:       result.Decision,
		Candidates:     result.Candidates,
		Search:         result.Search,
		Ranking:        result.Ranking,
	})
}

// renderReply picks the generation path the router decided on.
func (s *Server) renderReply(ctx context.Context, message string, result *pipeline.Result, scope types.Scope) (string, error) {
	if result.Decision.Outcome != types.OutcomeGenerate {
		return s.generator.Chitchat(ctx, message)
	}

	candidates := result.Candidates
	if len(candidates) > maxAnswerVideos {
		candidates = candidates[:maxAnswerVideos]
	}
	contexts, err := s.retriever.Retrieve(ctx, message, candidates, scope)
	if err != nil {
		return "", err
	}
	return s.generator.GroundedAnswer(ctx, message, contexts)
}

// saveTurn persists one chat turn; failures are logged, not fatal.
func (s *Server) saveTurn(ctx context.Context, conversationID, userID uuid.UUID, role, content string) {
	if err := s.history.SaveMessage(ctx, conversationID, userID, role, content); err != nil {
		log.Printf("Failed to save %s turn for conversation %s: %v", role, conversationID, err)
	}
}

// handleIngest ingests one video transcript.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req types.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := db.ExtractVideoID(req.URL); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.ingestor.Ingest(r.Context(), req)
	if err != nil {
		var fetchErr *ingestion.FetchError
		if errors.As(err, &fetchErr) {
			upstream := &ErrUpstream{Service: "transcript fetch", Cause: err}
			s.errorResponse(w, HTTPStatus(upstream), upstream.Error())
			return
		}
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.jsonResponse(w, http.StatusCreated, result)
}

// handleListVideos lists videos in a scope. The scope comes from query
// parameters: owner_id for a user library, channel for a shared channel.
func (s *Server) handleListVideos(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromQuery(r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	videos, err := s.videos.ListVideos(r.Context(), scope)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if videos == nil {
		videos = []types.VideoRecord{}
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{"videos": videos})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func scopeFromQuery(r *http.Request) (types.Scope, error) {
	ownerParam := r.URL.Query().Get("owner_id")
	channel := r.URL.Query().Get("channel")

	if ownerParam == "" && channel == "" {
		return types.Scope{}, &ErrValidation{Field: "owner_id", Message: "owner_id or channel is required"}
	}
	if ownerParam != "" && channel != "" {
		return types.Scope{}, &ErrValidation{Field: "owner_id", Message: "owner_id and channel are mutually exclusive"}
	}
	if channel != "" {
		return types.ChannelScope(channel), nil
	}

	ownerID, err := uuid.Parse(ownerParam)
	if err != nil {
		return types.Scope{}, &ErrValidation{Field: "owner_id", Message: "must be a valid UUID"}
	}
	return types.UserScope(ownerID), nil
}
