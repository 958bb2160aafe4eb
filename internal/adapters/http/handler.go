package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/PabloGalante/mindcare/internal/analysis/stress"
	"github.com/PabloGalante/mindcare/internal/app/analysis"
	"github.com/PabloGalante/mindcare/internal/app/conversation"
	"github.com/PabloGalante/mindcare/internal/app/emergency"
	"github.com/PabloGalante/mindcare/internal/app/privacy"
	"github.com/PabloGalante/mindcare/internal/app/profile"
	"github.com/PabloGalante/mindcare/internal/domain"
	"github.com/PabloGalante/mindcare/internal/observability"
)

const maxBodyBytes = 1 << 20

type Server struct {
	svc     *conversation.Service
	privacy *privacy.Service
	metrics *observability.Metrics

	rateLimitPerMinute int
	trustedProxies     []netip.Prefix
}

type Option func(*Server)

// WithPrivacy enables the /privacy endpoints.
func WithPrivacy(p *privacy.Service) Option {
	return func(s *Server) { s.privacy = p }
}

// WithMetrics exposes /metrics and records request metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

func WithRateLimit(requestsPerMinute int) Option {
	return func(s *Server) { s.rateLimitPerMinute = requestsPerMinute }
}

// WithTrustedProxies lets the listed peers set the client address through
// X-Forwarded-For or X-Real-IP.
func WithTrustedProxies(prefixes []netip.Prefix) Option {
	return func(s *Server) { s.trustedProxies = prefixes }
}

func NewServer(svc *conversation.Service, opts ...Option) http.Handler {
	s := &Server{svc: svc}
	for _, opt := range opts {
		opt(s)
	}
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealthz)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}

	// /sessions → create session (POST)
	mux.HandleFunc("/sessions", s.handleSessions)

	// /sessions/{id}            → GET: get session + messages
	// /sessions/{id}/messages   → POST: send message
	// /sessions/{id}/activities → POST: record a wellness activity
	mux.HandleFunc("/sessions/", s.handleSessionWithID)

	mux.HandleFunc("/stress-report", s.handleStressReport)

	// /privacy/report, /privacy/analytics
	// /privacy/sessions/{hash}, /privacy/sessions/{hash}/export, /privacy/sessions/{hash}/trends
	mux.HandleFunc("/privacy/", s.handlePrivacy)

	return chainMiddlewares(mux,
		withRateLimit(s.rateLimitPerMinute, s.trustedProxies),
		withLogging(s.metrics),
		withRequestID,
		withCORS,
	)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type createSessionRequest struct {
	UserID        string `json:"user_id"`
	PreferredMode string `json:"preferred_mode,omitempty"`
	Title         string `json:"title,omitempty"`
	Country       string `json:"country,omitempty"`
}

type createSessionResponse struct {
	Session     sessionResponse  `json:"session"`
	Welcome     *messageResponse `json:"welcome_message,omitempty"`
	SessionHash string           `json:"session_hash,omitempty"`
}

type sessionResponse struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Title         string    `json:"title"`
	PreferredMode string    `json:"preferred_mode"`
	Country       string    `json:"country"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type messageResponse struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Author      string    `json:"author"`
	Text        string    `json:"text"`
	Mode        string    `json:"mode"`
	ContentType string    `json:"content_type,omitempty"`
	TurnIndex   int       `json:"turn_index"`
	Urgency     string    `json:"urgency,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type sendMessageRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

type sendMessageResponse struct {
	UserMessage  messageResponse     `json:"user_message"`
	AgentMessage messageResponse     `json:"agent_message"`
	Analysis     analysis.Result     `json:"analysis"`
	Profile      profile.Delta       `json:"profile"`
	Crisis       *emergency.Response `json:"crisis,omitempty"`
	FollowUp     *emergency.FollowUp `json:"follow_up,omitempty"`
	PrivacyRisk  string              `json:"privacy_risk"`
	SessionHash  string              `json:"session_hash,omitempty"`
	Persisted    bool                `json:"persisted"`
}

type getSessionResponse struct {
	Session     sessionResponse   `json:"session"`
	Messages    []messageResponse `json:"messages"`
	Profile     *profile.Profile  `json:"profile,omitempty"`
	SessionHash string            `json:"session_hash,omitempty"`
}

type activityRequest struct {
	ActivityType        string `json:"activity_type"`
	EffectivenessRating *int   `json:"effectiveness_rating,omitempty"`
}

type stressReportRequest struct {
	Text      string `json:"text"`
	SessionID string `json:"session_id,omitempty"`
}

type stressReportResponse struct {
	stress.Assessment
	SessionHash string `json:"session_hash,omitempty"`
	Persisted   bool   `json:"persisted"`
}

// ─────────────────────────────────────────────
// Basic routing
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// /sessions
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateSession(w, r)
	default:
		methodNotAllowed(w)
	}
}

// /sessions/{id}, /sessions/{id}/messages or /sessions/{id}/activities
func (s *Server) handleSessionWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/sessions/")
	if path == "" {
		http.NotFound(w, r)
		return
	}

	parts := strings.Split(path, "/")
	id := parts[0]

	if id == "" {
		http.NotFound(w, r)
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.handleGetSession(w, r, domain.SessionID(id))
		default:
			methodNotAllowed(w)
		}
		return
	}

	if len(parts) == 2 {
		switch {
		case parts[1] == "messages" && r.Method == http.MethodPost:
			s.handleSendMessage(w, r, domain.SessionID(id))
		case parts[1] == "activities" && r.Method == http.MethodPost:
			s.handleRecordActivity(w, r, domain.SessionID(id))
		case parts[1] == "messages" || parts[1] == "activities":
			methodNotAllowed(w)
		default:
			http.NotFound(w, r)
		}
		return
	}

	http.NotFound(w, r)
}

// /privacy/...
func (s *Server) handlePrivacy(w http.ResponseWriter, r *http.Request) {
	if s.privacy == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "privacy store is not configured",
		})
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/privacy/"), "/")
	switch {
	case len(parts) == 1 && parts[0] == "report":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.handlePrivacyReport(w, r)

	case len(parts) == 1 && parts[0] == "analytics":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.handleAnalytics(w, r)

	case len(parts) == 2 && parts[0] == "sessions" && parts[1] != "":
		if r.Method != http.MethodDelete {
			methodNotAllowed(w)
			return
		}
		s.handleErase(w, r, parts[1])

	case len(parts) == 3 && parts[0] == "sessions" && parts[1] != "" && parts[2] == "export":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.handleExport(w, r, parts[1])

	case len(parts) == 3 && parts[0] == "sessions" && parts[1] != "" && parts[2] == "trends":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.handleTrends(w, r, parts[1])

	default:
		http.NotFound(w, r)
	}
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.UserID == "" {
		badRequest(w, "user_id is required")
		return
	}

	out, err := s.svc.StartSession(
		r.Context(),
		conversation.StartSessionInput{
			UserID:        domain.UserID(req.UserID),
			PreferredMode: parseInteractionMode(req.PreferredMode),
			Title:         req.Title,
			Country:       req.Country,
		},
	)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := createSessionResponse{
		Session:     toSessionResponse(out.Session),
		SessionHash: s.svc.SessionHash(out.Session.ID),
	}
	if out.Welcome != nil {
		m := toMessageResponse(out.Welcome)
		resp.Welcome = &m
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	session, msgs, err := s.svc.GetSessionTimeline(r.Context(), id, 0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := getSessionResponse{
		Session:     toSessionResponse(session),
		Messages:    toMessagesResponse(msgs),
		SessionHash: s.svc.SessionHash(session.ID),
	}
	if p, ok := s.svc.Profile(session.ID); ok {
		resp.Profile = &p
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request, sessionID domain.SessionID) {
	var req sendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.UserID == "" {
		badRequest(w, "user_id is required")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		badRequest(w, "text is required")
		return
	}

	out, err := s.svc.SendMessage(
		r.Context(),
		conversation.SendMessageInput{
			SessionID: sessionID,
			UserID:    domain.UserID(req.UserID),
			Text:      req.Text,
		},
	)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := sendMessageResponse{
		UserMessage:  toMessageResponse(out.UserMessage),
		AgentMessage: toMessageResponse(out.AgentMessage),
		Analysis:     out.Analysis,
		Profile:      out.Profile,
		Crisis:       out.Policy,
		FollowUp:     out.FollowUp,
		PrivacyRisk:  out.PrivacyRisk,
		SessionHash:  out.SessionHash,
		Persisted:    out.Persisted,
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecordActivity(w http.ResponseWriter, r *http.Request, sessionID domain.SessionID) {
	var req activityRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	act, err := s.svc.RecordActivity(r.Context(), sessionID, req.ActivityType, req.EffectivenessRating)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, act)
}

func (s *Server) handleStressReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req stressReportRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	out, err := s.svc.StressReport(r.Context(), conversation.StressReportInput{
		Text:      req.Text,
		SessionID: domain.SessionID(req.SessionID),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stressReportResponse{
		Assessment:  out.Report,
		SessionHash: out.SessionHash,
		Persisted:   out.Persisted,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, hash string) {
	includeContent, _ := strconv.ParseBool(r.URL.Query().Get("include_content"))

	exp, err := s.privacy.Export(r.Context(), hash, includeContent)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, exp)
}

func (s *Server) handleErase(w http.ResponseWriter, r *http.Request, hash string) {
	res, err := s.privacy.Erase(r.Context(), hash)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePrivacyReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.privacy.Report(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	days, ok := queryDays(w, r, 7)
	if !ok {
		return
	}

	a, err := s.privacy.Analytics(r.Context(), days)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request, hash string) {
	days, ok := queryDays(w, r, 30)
	if !ok {
		return
	}

	t, err := s.privacy.Trends(r.Context(), hash, days)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, t)
}

// ─────────────────────────────────────────────
// Conversation Helpers
// ─────────────────────────────────────────────

func toSessionResponse(s *domain.Session) sessionResponse {
	return sessionResponse{
		ID:            string(s.ID),
		UserID:        string(s.UserID),
		Title:         s.Title,
		PreferredMode: string(s.PreferredMode),
		Country:       s.Country,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func toMessageResponse(m *domain.Message) messageResponse {
	resp := messageResponse{
		ID:          string(m.ID),
		SessionID:   string(m.SessionID),
		Author:      string(m.Author),
		Text:        m.Text,
		Mode:        string(m.Mode),
		ContentType: m.ContentType,
		TurnIndex:   m.TurnIndex,
		CreatedAt:   m.CreatedAt,
	}
	if m.Author == domain.RoleUser {
		resp.Urgency = m.Urgency.String()
	}
	return resp
}

func toMessagesResponse(msgs []*domain.Message) []messageResponse {
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageResponse(m))
	}
	return out
}

func parseInteractionMode(s string) domain.InteractionMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "check_in", "checkin":
		return domain.ModeCheckIn
	case "deep_dive", "deep":
		return domain.ModeDeepDive
	case "action_plan", "action":
		return domain.ModeActionPlan
	default:
		return domain.ModeCheckIn
	}
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, "invalid JSON body")
		return false
	}
	return true
}

func queryDays(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return def, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 || days > 365 {
		badRequest(w, "days must be between 1 and 365")
		return 0, false
	}
	return days, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps error kinds to status codes. Details of storage and
// internal errors stay in the logs.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := observability.LoggerFromContext(r.Context())
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		badRequest(w, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, domain.ErrStorage), errors.Is(err, domain.ErrConfiguration):
		log.Error("request failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "service unavailable"})
	default:
		internalError(w, r, err)
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	observability.LoggerFromContext(r.Context()).Error("internal error", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
		"error": "method not allowed",
	})
}
