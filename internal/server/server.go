package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/helpmate-ai/cobalt/internal/config"
	"github.com/helpmate-ai/cobalt/internal/core"
	"github.com/helpmate-ai/cobalt/internal/core/confidence"
	"github.com/helpmate-ai/cobalt/internal/core/response"
	"github.com/helpmate-ai/cobalt/internal/core/retrieval"
	"github.com/helpmate-ai/cobalt/internal/core/security"
	"github.com/helpmate-ai/cobalt/internal/core/tracker"
	"github.com/helpmate-ai/cobalt/internal/llm"
	"github.com/helpmate-ai/cobalt/internal/logger"
	"github.com/helpmate-ai/cobalt/internal/store"
)

type Server struct {
	Pipeline  *core.Pipeline
	Sessions  *store.SessionStore
	Questions *store.QuestionStore
	log       *logger.Logger
}

// NewServer wires every component from configuration. Environment
// variables override the LLM section so deployments can rotate keys
// without editing the config file.
func NewServer(cfg *config.Config, log *logger.Logger) (*Server, error) {
	applyEnvOverrides(cfg)

	db, err := store.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	var cache *redis.Client
	if cfg.Redis.Addr != "" {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := cache.Ping(context.Background()).Err(); err != nil {
			// The content store degrades to direct DB reads.
			log.Warn("redis unreachable, running without content cache", "error", err)
		}
	}

	client, err := llm.NewClient(context.Background(), cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize llm client: %w", err)
	}

	screen, err := security.NewScreen(security.Options{
		ExtraInjectionPatterns:  cfg.Security.ExtraInjectionPatterns,
		ExtraSuspiciousPatterns: cfg.Security.ExtraSuspiciousPatterns,
		ExtraVocabulary:         cfg.Security.ExtraVocabulary,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compile security patterns: %w", err)
	}

	contentStore := store.NewContentStore(db, cache,
		time.Duration(cfg.Retrieval.CacheTTLSeconds)*time.Second, log)
	sessionStore := store.NewSessionStore(db)
	questionStore := store.NewQuestionStore(db, log)

	retriever := retrieval.NewRetriever(contentStore, cfg.Retrieval.DiversityPenalty, log)
	scorer := confidence.NewScorer(cfg.Confidence.Weights)
	generator := response.NewGenerator(client, screen,
		time.Duration(cfg.LLM.TimeoutSeconds)*time.Second, log)
	track := tracker.NewTracker(questionStore, log)

	pipeline := core.NewPipeline(core.PipelineParams{
		Screen:             screen,
		Retriever:          retriever,
		Scorer:             scorer,
		Generator:          generator,
		Tracker:            track,
		Sessions:           sessionStore,
		DefaultThreshold:   cfg.Confidence.Threshold,
		RetrievalThreshold: cfg.Retrieval.DefaultThreshold,
		RetrievalLimit:     cfg.Retrieval.DefaultLimit,
		Logger:             log,
	})

	return &Server{
		Pipeline:  pipeline,
		Sessions:  sessionStore,
		Questions: questionStore,
		log:       log,
	}, nil
}

func applyEnvOverrides(cfg *config.Config) {
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/health", s.Health)
	r.POST("/sessions", s.CreateSession)
	r.POST("/messages", s.ProcessMessage)
	r.GET("/businesses/:id/unanswered", s.ListUnanswered)

	return r
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type CreateSessionRequest struct {
	BusinessID string `json:"business_id" binding:"required"`
	Language   string `json:"language"`
}

func (s *Server) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	businessID, err := uuid.Parse(req.BusinessID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid business_id"})
		return
	}
	if req.Language == "" {
		req.Language = "en"
	}

	sess, err := s.Sessions.CreateSession(c.Request.Context(), businessID, req.Language)
	if err != nil {
		s.log.Error("failed to create session", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	c.JSON(http.StatusOK, sess)
}

type ProcessMessageRequest struct {
	Message    string `json:"message" binding:"required"`
	SessionID  string `json:"session_id" binding:"required"`
	BusinessID string `json:"business_id" binding:"required"`
	Language   string `json:"language"`
}

func (s *Server) ProcessMessage(c *gin.Context) {
	var req ProcessMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session_id"})
		return
	}
	businessID, err := uuid.Parse(req.BusinessID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid business_id"})
		return
	}

	// Managed failures (security rejection, upstream fallback, internal
	// errors) all come back as a structured result with success=false;
	// the transport status stays 200.
	result := s.Pipeline.ProcessMessage(c.Request.Context(), core.MessageRequest{
		Message:    req.Message,
		SessionID:  sessionID,
		BusinessID: businessID,
		Language:   req.Language,
	})

	c.JSON(http.StatusOK, result)
}

func (s *Server) ListUnanswered(c *gin.Context) {
	businessID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid business id"})
		return
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	questions, err := s.Questions.ListByBusiness(c.Request.Context(), businessID, limit)
	if err != nil {
		s.log.Error("failed to list unanswered questions", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list questions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"questions": questions})
}
