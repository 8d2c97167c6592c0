package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/bartek-filipiuk/youtube-talker/internal/generation"
	"github.com/bartek-filipiuk/youtube-talker/internal/ingestion"
	"github.com/bartek-filipiuk/youtube-talker/internal/pipeline"
	"github.com/bartek-filipiuk/youtube-talker/internal/server/ratelimit"
	"github.com/bartek-filipiuk/youtube-talker/internal/types"
)

// SearchPipeline runs the search-and-route flow for one query.
type SearchPipeline interface {
	SearchAndRoute(ctx context.Context, query string, history []types.ConversationTurn, scope types.Scope, opts pipeline.Options) (*pipeline.Result, error)
}

// AnswerGenerator renders the user-facing reply for either routing outcome.
type AnswerGenerator interface {
	GroundedAnswer(ctx context.Context, query string, contexts []generation.VideoContext) (string, error)
	Chitchat(ctx context.Context, message string) (string, error)
}

// TranscriptIngestor processes a video URL into searchable content.
type TranscriptIngestor interface {
	Ingest(ctx context.Context, req types.IngestRequest) (*ingestion.Result, error)
}

// VideoLister reads video metadata for a scope.
type VideoLister interface {
	ListVideos(ctx context.Context, scope types.Scope) ([]types.VideoRecord, error)
}

// HistoryStore persists chat turns.
type HistoryStore interface {
	SaveMessage(ctx context.Context, conversationID, userID uuid.UUID, role, content string) error
	GetConversation(ctx context.Context, conversationID uuid.UUID, limit int) ([]types.ConversationTurn, error)
}

// ContextRetriever fetches transcript excerpts to ground an answer in.
type ContextRetriever interface {
	Retrieve(ctx context.Context, query string, candidates []types.RankedCandidate, scope types.Scope) ([]generation.VideoContext, error)
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	pipeline    SearchPipeline
	generator   AnswerGenerator
	ingestor    TranscriptIngestor
	videos      VideoLister
	history     HistoryStore
	retriever   ContextRetriever
	rateLimiter *ratelimit.Limiter
	shutdown    func()
}

// Config holds server configuration
type Config struct {
	Port int
}

// Dependencies bundles the collaborators the handlers need.
type Dependencies struct {
	Pipeline  SearchPipeline
	Generator AnswerGenerator
	Ingestor  TranscriptIngestor
	Videos    VideoLister
	History   HistoryStore
	Retriever ContextRetriever
	// Shutdown is called after the HTTP server stops (close pools, clients).
	Shutdown func()
}

// New creates a new server instance
func New(cfg Config, deps Dependencies) *Server {
	s := &Server{
		pipeline:  deps.Pipeline,
		generator: deps.Generator,
		ingestor:  deps.Ingestor,
		videos:    deps.Videos,
		history:   deps.History,
		retriever: deps.Retriever,
		shutdown:  deps.Shutdown,
	}

	s.rateLimiter = ratelimit.NewLimiter(ratelimit.LoadConfig())

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(s.routes()))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // LLM calls dominate chat latency
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// routes builds the request mux.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("POST /videos", s.handleIngest)
	mux.HandleFunc("GET /videos", s.handleListVideos)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

// Start begins listening for requests
func (s *Server) Start() error {
	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	if s.shutdown != nil {
		s.shutdown()
	}
	log.Println("Server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// extractClientID extracts the client identifier from the request.
// Uses the IP address from RemoteAddr; X-Forwarded-For would only be safe
// behind a trusted proxy.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		response["retry_after"] = int(info.RetryAfter.Seconds())
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
	}

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
