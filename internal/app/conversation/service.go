package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/PabloGalante/mindcare/internal/analysis/stress"
	"github.com/PabloGalante/mindcare/internal/app/agentflow"
	"github.com/PabloGalante/mindcare/internal/app/analysis"
	"github.com/PabloGalante/mindcare/internal/app/emergency"
	"github.com/PabloGalante/mindcare/internal/app/privacy"
	"github.com/PabloGalante/mindcare/internal/app/profile"
	"github.com/PabloGalante/mindcare/internal/app/tools"
	"github.com/PabloGalante/mindcare/internal/domain"
	"github.com/PabloGalante/mindcare/internal/observability"
)

// Message content types.
const (
	ContentTypeWelcome        = "welcome"
	ContentTypeText           = "text"
	ContentTypeCrisisResponse = "crisis_response"
)

const (
	DefaultMaxMessageChars = 4000
	DefaultHistoryWindow   = 10
)

const welcomeText = "Hi, I'm Mindcare. What would you like to work on today?"

// Service runs one conversation turn: triage, profile update, reply and
// persistence. It is the only writer of session risk profiles.
type Service struct {
	llm          domain.LLMClient
	sessionStore domain.SessionStore
	messageStore domain.MessageStore
	now          func() time.Time

	pipeline     *analysis.Pipeline
	profiles     *profile.Registry
	emergency    *emergency.Engine
	privacy      *privacy.Service
	sanitizer    *privacy.Sanitizer
	orchestrator *agentflow.Orchestrator

	maxMessageChars int
	historyWindow   int
	storeContent    bool
	defaultCountry  string
}

type Option func(*Service)

func WithPipeline(p *analysis.Pipeline) Option {
	return func(s *Service) { s.pipeline = p }
}

func WithProfiles(r *profile.Registry) Option {
	return func(s *Service) { s.profiles = r }
}

func WithEmergency(e *emergency.Engine) Option {
	return func(s *Service) { s.emergency = e }
}

// WithPrivacy enables persistence of analysis records and wellness activities.
func WithPrivacy(p *privacy.Service) Option {
	return func(s *Service) { s.privacy = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithMaxMessageChars(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxMessageChars = n
		}
	}
}

// WithHistoryWindow bounds the prior user turns fed to trend signals and the LLM.
func WithHistoryWindow(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyWindow = n
		}
	}
}

// WithStoreContent controls whether message text is handed to the record
// store at all. Even when enabled, only categories that require encryption keep it.
func WithStoreContent(enabled bool) Option {
	return func(s *Service) { s.storeContent = enabled }
}

func WithDefaultCountry(country string) Option {
	return func(s *Service) {
		if country != "" {
			s.defaultCountry = country
		}
	}
}

func NewService(
	llm domain.LLMClient,
	sessionStore domain.SessionStore,
	messageStore domain.MessageStore,
	opts ...Option,
) *Service {
	s := &Service{
		llm:             llm,
		sessionStore:    sessionStore,
		messageStore:    messageStore,
		now:             time.Now,
		sanitizer:       privacy.NewSanitizer(),
		maxMessageChars: DefaultMaxMessageChars,
		historyWindow:   DefaultHistoryWindow,
		storeContent:    true,
		defaultCountry:  "us",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.pipeline == nil {
		s.pipeline = analysis.NewPipeline(nil, nil, nil, nil)
	}
	if s.profiles == nil {
		s.profiles = profile.NewRegistry()
	}
	if s.emergency == nil {
		s.emergency = emergency.NewEngine(nil)
	}

	var activityTool tools.Tool
	if s.privacy != nil {
		activityTool = tools.NewActivityTool(s.privacy)
	}
	s.orchestrator = agentflow.NewDefaultOrchestrator(llm, activityTool)

	return s
}

type StartSessionInput struct {
	UserID        domain.UserID
	PreferredMode domain.InteractionMode
	Title         string
	Country       string
}

type StartSessionOutput struct {
	Session *domain.Session
	Welcome *domain.Message
}

func (s *Service) StartSession(ctx context.Context, in StartSessionInput) (*StartSessionOutput, error) {
	if in.UserID == "" {
		return nil, fmt.Errorf("user id is required: %w", domain.ErrInvalidInput)
	}

	now := s.now()

	log := observability.LoggerFromContext(ctx).With(
		"user_id", in.UserID,
		"preferred_mode", in.PreferredMode,
	)
	log.Info("starting new session")

	country := strings.ToLower(strings.TrimSpace(in.Country))
	if country == "" {
		country = s.defaultCountry
	}

	session := &domain.Session{
		ID:            domain.SessionID(uuid.NewString()),
		UserID:        in.UserID,
		CreatedAt:     now,
		UpdatedAt:     now,
		PreferredMode: in.PreferredMode,
		Title:         in.Title,
		Country:       country,
	}

	if err := s.sessionStore.CreateSession(session); err != nil {
		log.Error("failed to create session", "error", err)
		return nil, err
	}

	welcome := &domain.Message{
		ID:          domain.MessageID(uuid.NewString()),
		SessionID:   session.ID,
		SessionHash: s.SessionHash(session.ID),
		Author:      domain.RoleAgent,
		Text:        welcomeText,
		CreatedAt:   now,
		Mode:        session.PreferredMode,
		ContentType: ContentTypeWelcome,
	}

	if err := s.messageStore.AppendMessage(welcome); err != nil {
		log.Error("failed to append welcome message", "error", err)
		return nil, err
	}

	log.Info("session started", "session_id", session.ID)

	return &StartSessionOutput{
		Session: session,
		Welcome: welcome,
	}, nil
}

type SendMessageInput struct {
	SessionID domain.SessionID
	UserID    domain.UserID
	Text      string
}

type SendMessageOutput struct {
	UserMessage  *domain.Message
	AgentMessage *domain.Message

	Analysis analysis.Result
	Profile  profile.Delta
	// Policy is the crisis payload, set from medium urgency up.
	Policy *emergency.Response
	// FollowUp is the after-crisis guidance, set on the first calmer turn.
	FollowUp *emergency.FollowUp
	// PrivacyRisk grades the personal identifiers found in the user's text.
	PrivacyRisk string

	SessionHash string
	// Persisted is false when the analysis record could not be stored.
	Persisted bool
}

// SendMessage triages the text, folds it into the session profile and
// answers. Emergency turns are answered with the crisis payload and never
// reach the LLM. A storage failure only clears Persisted.
func (s *Service) SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageOutput, error) {
	if err := s.validateText(in.Text); err != nil {
		return nil, err
	}

	session, err := s.sessionStore.GetSession(in.SessionID)
	if err != nil {
		return nil, err
	}
	if in.UserID != "" && in.UserID != session.UserID {
		return nil, fmt.Errorf("session %s: %w", in.SessionID, domain.ErrNotFound)
	}

	log := observability.LoggerFromContext(ctx).With(
		"session_id", session.ID,
		"user_id", session.UserID,
		"mode", session.PreferredMode,
	)
	log.Info("sending message", "text_length", utf8.RuneCountInString(in.Text))

	recent, err := s.messageStore.GetMessagesBySession(session.ID, 2*s.historyWindow)
	if err != nil {
		log.Error("failed to load history", "error", err)
		return nil, err
	}

	res := s.pipeline.Analyze(ctx, in.Text, userTexts(recent, s.historyWindow))
	if len(recent) > 0 {
		// Continue turn numbering when the profile was evicted or lost on restart.
		last := recent[len(recent)-1].TurnIndex
		s.profiles.Update(session.ID, func(p *profile.Profile) {
			if p.TurnCount == 0 {
				p.TurnCount = last / 2
			}
		})
	}
	delta, _ := s.profiles.Apply(session.ID, res.Sentiment.Compound, res.Indicators())

	var sessionHash string
	if s.privacy != nil {
		sessionHash = s.privacy.SessionHash(session.ID)
	}

	log = log.With("urgency", res.Urgency.String(), "turn", delta.TurnCount)
	if res.Degraded {
		log.Warn("analysis degraded, treating turn as high urgency")
	}

	userMsg := &domain.Message{
		ID:          domain.MessageID(uuid.NewString()),
		SessionID:   session.ID,
		SessionHash: sessionHash,
		Author:      domain.RoleUser,
		Text:        in.Text,
		CreatedAt:   s.now(),
		TurnIndex:   2*delta.TurnCount - 1,
		Tags:        res.Indicators(),
		Mode:        session.PreferredMode,
		ContentType: ContentTypeText,
		Urgency:     res.Urgency,
	}

	if err := s.messageStore.AppendMessage(userMsg); err != nil {
		log.Error("failed to append user message", "error", err)
		return nil, err
	}

	risk := s.sanitizer.AssessPrivacyRisk(in.Text)
	if risk.RequiresManualReview {
		log.Warn("message carries sensitive identifiers", "privacy_risk", risk.Level, "kinds", detectedKinds(risk.Detected))
	}

	policy := s.emergency.Respond(ctx, emergency.Request{
		Urgency:         res.Urgency,
		Text:            in.Text,
		SessionHash:     sessionHash,
		Country:         s.countryFor(session),
		PreviousUrgency: previousUrgency(recent),
	})

	persisted := s.persist(ctx, sessionHash, in.Text, res, delta)

	replyText, contentType, err := s.reply(ctx, session, in.Text, recent, res, delta, policy, sessionHash)
	if err != nil {
		log.Error("failed to generate reply", "error", err)
		return nil, err
	}

	agentMsg := &domain.Message{
		ID:          domain.MessageID(uuid.NewString()),
		SessionID:   session.ID,
		SessionHash: sessionHash,
		Author:      domain.RoleAgent,
		Text:        replyText,
		CreatedAt:   s.now(),
		TurnIndex:   2 * delta.TurnCount,
		Mode:        session.PreferredMode,
		ReplyTo:     &userMsg.ID,
		ContentType: contentType,
		Urgency:     res.Urgency,
	}

	if err := s.messageStore.AppendMessage(agentMsg); err != nil {
		log.Error("failed to append agent message", "error", err)
		return nil, err
	}

	session.UpdatedAt = s.now()
	if err := s.sessionStore.UpdateSession(session); err != nil {
		log.Error("failed to update session", "error", err)
		return nil, err
	}

	log.Info("send message completed", "persisted", persisted, "content_type", contentType)

	out := &SendMessageOutput{
		UserMessage:  userMsg,
		AgentMessage: agentMsg,
		Analysis:     res,
		Profile:      delta,
		FollowUp:     policy.FollowUp,
		PrivacyRisk:  risk.Level,
		SessionHash:  sessionHash,
		Persisted:    persisted,
	}
	if res.Urgency >= domain.UrgencyMedium {
		out.Policy = &policy
	}
	return out, nil
}

// reply picks between the crisis payload and the agent flow. Only sanitized
// text is handed to the LLM.
func (s *Service) reply(
	ctx context.Context,
	session *domain.Session,
	text string,
	recent []*domain.Message,
	res analysis.Result,
	delta profile.Delta,
	policy emergency.Response,
	sessionHash string,
) (string, string, error) {
	if res.Urgency == domain.UrgencyEmergency {
		return policy.Text(), ContentTypeCrisisResponse, nil
	}

	convCtx := domain.ConversationContext{
		SessionID:   session.ID,
		UserID:      session.UserID,
		Mode:        session.PreferredMode,
		History:     s.sanitizeHistory(recent),
		Urgency:     res.Urgency,
		StressLevel: delta.StressLevel,
		Signals:     res.Indicators(),
	}

	replyText, err := s.orchestrator.Run(ctx, s.sanitizer.Sanitize(text), convCtx, sessionHash)
	if err != nil {
		if res.Urgency >= domain.UrgencyMedium {
			observability.LoggerFromContext(ctx).Error("agent flow failed, answering with crisis payload",
				"urgency", res.Urgency.String(),
				"error", err)
			return policy.Text(), ContentTypeCrisisResponse, nil
		}
		return "", "", err
	}
	return replyText, ContentTypeText, nil
}

func (s *Service) persist(ctx context.Context, sessionHash, text string, res analysis.Result, delta profile.Delta) bool {
	if s.privacy == nil {
		return false
	}

	rec := &domain.ConversationRecord{
		SessionHash:    sessionHash,
		SentimentScore: res.Sentiment.Compound,
		StressLevel:    delta.StressLevel,
		UrgencyLevel:   res.Urgency,
		Emotions:       encodeJSON(res.Sentiment.Emotions),
		RiskIndicators: encodeJSON(nonNil(res.Sentiment.Risks)),
	}
	var plaintext string
	if s.storeContent {
		plaintext = text
	}

	if err := s.privacy.Store(ctx, rec, plaintext); err != nil {
		observability.LoggerFromContext(ctx).Error("failed to persist analysis record",
			"session_hash", sessionHash,
			"urgency", res.Urgency.String(),
			"error", err)
		return false
	}
	return true
}

type StressReportInput struct {
	Text string
	// SessionID is optional. When set, prior turns feed the chronic-stress
	// check and the report is stored under the session's hash.
	SessionID domain.SessionID
}

type StressReportOutput struct {
	Report      stress.Assessment
	SessionHash string
	Persisted   bool
}

// StressReport runs the stress aggregator alone. Its level is independent of
// message urgency and may disagree with it.
func (s *Service) StressReport(ctx context.Context, in StressReportInput) (*StressReportOutput, error) {
	if err := s.validateText(in.Text); err != nil {
		return nil, err
	}

	var history []string
	var session *domain.Session
	if in.SessionID != "" {
		var err error
		session, err = s.sessionStore.GetSession(in.SessionID)
		if err != nil {
			return nil, err
		}
		recent, err := s.messageStore.GetMessagesBySession(session.ID, 2*s.historyWindow)
		if err != nil {
			return nil, err
		}
		history = userTexts(recent, s.historyWindow)
	}

	report := s.pipeline.StressReport(in.Text, history)
	out := &StressReportOutput{Report: report}

	if session == nil || s.privacy == nil {
		return out, nil
	}

	out.SessionHash = s.privacy.SessionHash(session.ID)
	rec := &domain.ConversationRecord{
		SessionHash:    out.SessionHash,
		Category:       domain.CategoryStressIndicators,
		StressLevel:    report.Score,
		UrgencyLevel:   urgencyForStress(report.Level),
		Emotions:       "{}",
		RiskIndicators: encodeJSON(slices.Concat([]string{}, report.Signals, report.CrisisSignals)),
	}
	if err := s.privacy.Store(ctx, rec, ""); err != nil {
		observability.LoggerFromContext(ctx).Error("failed to persist stress report",
			"session_hash", out.SessionHash,
			"error", err)
		return out, nil
	}
	out.Persisted = true
	return out, nil
}

// RecordActivity stores a wellness activity the user tried in this session.
func (s *Service) RecordActivity(ctx context.Context, sessionID domain.SessionID, activityType string, rating *int) (*domain.WellnessActivity, error) {
	if s.privacy == nil {
		return nil, fmt.Errorf("activity storage is not configured: %w", domain.ErrConfiguration)
	}
	session, err := s.sessionStore.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	return s.privacy.StoreActivity(ctx, s.privacy.SessionHash(session.ID), activityType, rating)
}

// EvictIdleProfiles forgets risk profiles of sessions idle for longer than
// maxIdle. A returning session continues its turn numbering from the timeline.
func (s *Service) EvictIdleProfiles(maxIdle time.Duration) int {
	return s.profiles.EvictIdle(maxIdle)
}

// Profile returns the current risk profile of a session, if it has spoken.
func (s *Service) Profile(sessionID domain.SessionID) (profile.Profile, bool) {
	return s.profiles.Get(sessionID)
}

// SessionHash returns today's pseudonym of a session, or "" without a privacy layer.
func (s *Service) SessionHash(sessionID domain.SessionID) string {
	if s.privacy == nil {
		return ""
	}
	return s.privacy.SessionHash(sessionID)
}

func (s *Service) GetSessionTimeline(
	ctx context.Context,
	sessionID domain.SessionID,
	limit int,
) (*domain.Session, []*domain.Message, error) {

	log := observability.LoggerFromContext(ctx).With(
		"session_id", sessionID,
		"limit", limit,
	)

	session, err := s.sessionStore.GetSession(sessionID)
	if err != nil {
		log.Error("failed to get session", "error", err)
		return nil, nil, err
	}

	msgs, err := s.messageStore.GetMessagesBySession(sessionID, limit)
	if err != nil {
		log.Error("failed to get messages", "error", err)
		return nil, nil, err
	}

	log.Info("fetched session timeline", "message_count", len(msgs))

	return session, msgs, nil
}

func (s *Service) validateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("text is required: %w", domain.ErrInvalidInput)
	}
	if n := utf8.RuneCountInString(text); n > s.maxMessageChars {
		return fmt.Errorf("text has %d characters, limit is %d: %w", n, s.maxMessageChars, domain.ErrInvalidInput)
	}
	return nil
}

func (s *Service) countryFor(session *domain.Session) string {
	if session.Country != "" {
		return session.Country
	}
	return s.defaultCountry
}

// sanitizeHistory returns copies of msgs with personal details masked.
func (s *Service) sanitizeHistory(msgs []*domain.Message) []*domain.Message {
	out := make([]*domain.Message, 0, len(msgs))
	for _, m := range msgs {
		c := *m
		c.Text = s.sanitizer.Sanitize(m.Text)
		out = append(out, &c)
	}
	return out
}

// previousUrgency is the urgency of the last user message in msgs.
func previousUrgency(msgs []*domain.Message) domain.UrgencyLevel {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Author == domain.RoleUser {
			return msgs[i].Urgency
		}
	}
	return domain.UrgencyNone
}

// detectedKinds lists the kinds of identifiers found, never their values.
func detectedKinds(detected map[string][]string) []string {
	kinds := make([]string, 0, len(detected))
	for k := range detected {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// userTexts returns the text of the last n user messages, oldest first.
func userTexts(msgs []*domain.Message, n int) []string {
	var out []string
	for _, m := range msgs {
		if m.Author == domain.RoleUser {
			out = append(out, m.Text)
		}
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

// urgencyForStress files a stress report at the urgency its level implies.
func urgencyForStress(level domain.StressLevel) domain.UrgencyLevel {
	switch level {
	case domain.StressCritical:
		return domain.UrgencyHigh
	case domain.StressHigh:
		return domain.UrgencyMedium
	case domain.StressModerate, domain.StressMild:
		return domain.UrgencyLow
	default:
		return domain.UrgencyNone
	}
}

func encodeJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
