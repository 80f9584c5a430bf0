package server

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"strconv"

	"github.com/chronocoders/indexnode/internal/common"
	"github.com/chronocoders/indexnode/internal/models"
)

// registerRoutes sets up the thin adapter's REST + WebSocket surface.
// jwtSecret gates every route except /api/health and
// the WebSocket upgrade, which carries no Authorization header.
func (s *Server) registerRoutes(mux *http.ServeMux, jwtSecret []byte) {
	auth := bearerTokenMiddleware(jwtSecret)

	mux.HandleFunc("/api/health", s.handleHealth)
	mux.Handle("/api/jobs/ws", http.HandlerFunc(s.handleJobsWS))
	mux.Handle("/api/queue/stats", auth(http.HandlerFunc(s.handleQueueStats)))
	mux.Handle("/api/jobs/", auth(http.HandlerFunc(s.handleJobByID)))
	mux.Handle("/api/jobs", auth(http.HandlerFunc(s.handleJobsRoot)))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleJobsRoot dispatches POST (submit) and GET (list) on /api/jobs.
func (s *Server) handleJobsRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleJobSubmit(w, r)
	case http.MethodGet:
		s.handleJobList(w, r)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

type jobSubmitRequest struct {
	JobType            models.JobType  `json:"job_type"`
	Priority           int             `json:"priority"`
	Config             json.RawMessage `json:"config"`
	EnableAIExtraction bool            `json:"enable_ai_extraction"`
	ExtractionSchema   json.RawMessage `json:"extraction_schema,omitempty"`
}

// handleJobSubmit implements POST /api/jobs.
// Admission is gated on credit balance before the job ever reaches the
// queue: an unresolvable balance check fails open (the worker's own
// fire-and-forget debit is the backstop), an insufficient one returns 402.
func (s *Server) handleJobSubmit(w http.ResponseWriter, r *http.Request) {
	var req jobSubmitRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.JobType == "" {
		WriteError(w, http.StatusBadRequest, "job_type is required")
		return
	}

	userID := common.ResolveUserID(r.Context())

	if jobClassCost(req.JobType) != nil {
		if insufficient := s.insufficientBalance(r.Context(), userID, models.MinAdmissionBalance); insufficient {
			WriteErrorWithCode(w, http.StatusPaymentRequired, "insufficient credit balance", "insufficient_credits")
			return
		}
	}

	job := &models.Job{
		UserID:             userID,
		Status:             models.JobStatusQueued,
		Priority:           req.Priority,
		JobType:            req.JobType,
		Config:             req.Config,
		EnableAIExtraction: req.EnableAIExtraction,
		ExtractionSchema:   req.ExtractionSchema,
	}

	id, err := s.deps.Queue.Enqueue(r.Context(), job)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// jobClassCost resolves the credit cost charged per job class.
func jobClassCost(jobType models.JobType) *big.Int {
	switch jobType {
	case models.JobTypeHttpCrawl:
		return models.CrawlJobCost
	case models.JobTypeBlockchainIndex:
		return models.EventIndexCost
	default:
		return nil
	}
}

// insufficientBalance reports true only when a balance was actually
// resolved and found short; any missing piece (no user, no account, no
// on-chain address, ledger unreachable) fails open so a misconfigured
// credit ledger never blocks submission outright.
func (s *Server) insufficientBalance(ctx context.Context, userID string, cost *big.Int) bool {
	if s.deps.Index == nil || s.deps.Credit == nil || userID == "" {
		return false
	}

	account, err := s.deps.Index.GetCreditAccount(ctx, userID)
	if err != nil || account == nil || account.OnChainAddress == "" {
		return false
	}

	balance, err := s.deps.Credit.GetBalance(ctx, account.OnChainAddress)
	if err != nil || balance == nil {
		return false
	}

	return balance.Cmp(cost) < 0
}

func (s *Server) handleJobList(w http.ResponseWriter, r *http.Request) {
	userID := common.ResolveUserID(r.Context())
	limit, offset := paginationParams(r)

	jobs, err := s.deps.Queue.ListJobs(r.Context(), userID, limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, jobs)
}

func paginationParams(r *http.Request) (limit, offset int) {
	limit = 50
	offset = 0
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}

// handleJobByID implements GET /api/jobs/{id}.
func (s *Server) handleJobByID(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	id := PathParam(r, "/api/jobs/", "")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "job id is required")
		return
	}

	job, err := s.deps.Queue.GetJob(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// handleQueueStats implements GET /api/queue/stats.
func (s *Server) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if s.deps.Coordinator == nil {
		WriteError(w, http.StatusServiceUnavailable, "coordinator not configured")
		return
	}
	stats, err := s.deps.Coordinator.GetQueueStats(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// handleJobsWS implements GET /api/jobs/ws, streaming models.JobEvent as the
// worker pool dispatches and completes jobs.
func (s *Server) handleJobsWS(w http.ResponseWriter, r *http.Request) {
	if s.deps.Hub == nil {
		WriteError(w, http.StatusServiceUnavailable, "job event stream not configured")
		return
	}
	s.deps.Hub.ServeWS(w, r)
}

// writeDomainError maps a common.Error Kind to the matching HTTP status;
// an unrecognized error is treated as an internal failure.
func writeDomainError(w http.ResponseWriter, err error) {
	switch common.KindOf(err) {
	case common.KindInputInvalid:
		WriteError(w, http.StatusBadRequest, err.Error())
	case common.KindNotFound:
		WriteError(w, http.StatusNotFound, err.Error())
	case common.KindInsufficientCredits:
		WriteErrorWithCode(w, http.StatusPaymentRequired, err.Error(), "insufficient_credits")
	case common.KindTransientExternal:
		WriteError(w, http.StatusServiceUnavailable, err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
