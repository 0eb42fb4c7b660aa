package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shopassist/shopchat/internal/api/metrics"
	"github.com/shopassist/shopchat/internal/core/domain"
	"github.com/shopassist/shopchat/internal/core/ports"
)

// Notices shown to the user when a foreground operation fails.
const (
	NoticeSendFailed    = "Failed to send message. Please try again."
	NoticeCatalogFailed = "Failed to load chat sessions."
	NoticeOpenFailed    = "Failed to load chat session."
	NoticeDeleteFailed  = "Failed to delete chat session."
	NoticeResetFailed   = "Failed to reset chat session."
)

const (
	previewRunes   = 50
	previewDefault = "New conversation"
	refreshTask    = "catalog-refresh"
)

// ConversationService owns the active conversation and the session catalog.
//
// Operations do not hold the lock across network calls, so two operations
// may interleave. Concurrent sends on one session are not serialized: each
// appends its user message before the call and its reply when that call
// resolves, so replies may interleave with each other's user messages.
type ConversationService struct {
	api   ports.ConversationAPI
	tasks ports.TaskRunner
	log   zerolog.Logger
	now   func() time.Time
	newID func() string

	mu        sync.Mutex
	active    *domain.ConversationSession
	selection uint64         // bumped whenever active is replaced
	pending   map[string]int // in-flight sends per LocalKey
	catalog   []domain.SessionSummary
	loading   int
	lastError string
	seq       uint64

	observers observers[domain.ConversationSnapshot]
}

var _ ports.ConversationService = (*ConversationService)(nil)

func NewConversationService(api ports.ConversationAPI, tasks ports.TaskRunner, log zerolog.Logger) *ConversationService {
	return &ConversationService{
		api:     api,
		tasks:   tasks,
		log:     log.With().Str("component", "conversation").Logger(),
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
		pending: make(map[string]int),
	}
}

// StartDraft replaces the active session with an empty draft.
func (s *ConversationService) StartDraft() {
	s.mu.Lock()
	s.startDraftLocked()
	s.lastError = ""
	snap := s.commitLocked()
	s.mu.Unlock()
	s.observers.notify(snap.Seq, snap)
}

// Send appends text as a user message before contacting the server, then
// appends the assistant reply (or a fixed apology on failure). The user
// message is never rolled back. Empty text is ignored.
func (s *ConversationService) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	s.mu.Lock()
	if s.active == nil {
		s.startDraftLocked()
	}
	sess := s.active
	now := s.now().UTC()
	sess.Messages = append(sess.Messages, domain.Message{
		ID:        s.newID(),
		Role:      domain.RoleUser,
		Content:   text,
		Timestamp: now,
	})
	sess.UpdatedAt = now
	sess.State = domain.SessionPending
	s.pending[sess.LocalKey]++
	s.loading++
	s.lastError = ""
	localKey, sessionID := sess.LocalKey, sess.SessionID
	snap := s.commitLocked()
	s.mu.Unlock()
	s.observers.notify(snap.Seq, snap)

	reply, err := s.api.SendMessage(ctx, text, sessionID)

	s.mu.Lock()
	s.loading--
	s.pending[localKey]--
	stillPending := s.pending[localKey] > 0
	if !stillPending {
		delete(s.pending, localKey)
	}

	if err != nil {
		applied := s.active != nil && s.active.LocalKey == localKey
		if applied {
			s.active.Messages = append(s.active.Messages, domain.Message{
				ID:        s.newID(),
				Role:      domain.RoleAssistant,
				Content:   domain.ApologyMessage,
				Timestamp: s.now().UTC(),
			})
			if !stillPending {
				s.active.State = domain.SessionFailed
			}
			s.lastError = NoticeSendFailed
		}
		snap = s.commitLocked()
		s.mu.Unlock()
		s.observers.notify(snap.Seq, snap)

		s.log.Warn().Err(err).
			Str("kind", metrics.KindLabel(err)).
			Str("session_id", sessionID).
			Bool("applied", applied).
			Msg("send failed")
		metrics.MessagesSentTotal.WithLabelValues("failure").Inc()
		return err
	}

	applied := s.applyReplyLocked(localKey, reply, stillPending)
	snap = s.commitLocked()
	s.mu.Unlock()
	s.observers.notify(snap.Seq, snap)

	if !applied {
		s.log.Debug().Str("session_id", reply.SessionID).Msg("stale reply discarded")
		metrics.MessagesSentTotal.WithLabelValues("discarded").Inc()
	} else {
		metrics.MessagesSentTotal.WithLabelValues("success").Inc()
	}

	s.tasks.Submit(refreshTask, func(ctx context.Context) error {
		return s.refreshCatalog(ctx, false)
	})
	return nil
}

// applyReplyLocked folds a successful reply into the active session if the
// reply still belongs to it: either the same client-side session, or a
// session reopened under the id the reply reports.
func (s *ConversationService) applyReplyLocked(localKey string, reply *ports.Reply, stillPending bool) bool {
	a := s.active
	if a == nil {
		return false
	}
	switch {
	case a.LocalKey == localKey:
		if a.SessionID == "" && reply.SessionID != "" {
			a.SessionID = reply.SessionID
			if a.CreatedAt.IsZero() {
				a.CreatedAt = s.now().UTC()
			}
		}
		if !stillPending {
			a.State = domain.SessionReady
		}
	case reply.SessionID != "" && a.SessionID == reply.SessionID:
	default:
		return false
	}

	if !a.HasMessage(reply.BotResponse.ID) {
		a.Messages = append(a.Messages, reply.BotResponse)
	}
	a.UpdatedAt = s.now().UTC()
	return true
}

// RefreshCatalog replaces the catalog with the server's list. On failure the
// catalog is left as it was.
func (s *ConversationService) RefreshCatalog(ctx context.Context) error {
	return s.refreshCatalog(ctx, true)
}

func (s *ConversationService) refreshCatalog(ctx context.Context, foreground bool) error {
	trigger := "background"
	if foreground {
		trigger = "foreground"
	}

	sessions, err := s.api.ListSessions(ctx)
	metrics.CatalogRefreshTotal.WithLabelValues(trigger, metrics.Result(err)).Inc()
	if err != nil {
		s.log.Warn().Err(err).Str("kind", metrics.KindLabel(err)).Str("trigger", trigger).Msg("catalog refresh failed")
		if foreground {
			s.setError(NoticeCatalogFailed)
		}
		return err
	}

	catalog := make([]domain.SessionSummary, 0, len(sessions))
	for i := range sessions {
		catalog = append(catalog, summarize(&sessions[i]))
	}

	s.mu.Lock()
	s.catalog = catalog
	if foreground {
		s.lastError = ""
	}
	snap := s.commitLocked()
	s.mu.Unlock()
	s.observers.notify(snap.Seq, snap)
	return nil
}

// OpenSession makes sessionID the active session. Opening the session that
// is already active does nothing. On failure the active session is kept. A
// load that completes after a later draft or open is discarded.
func (s *ConversationService) OpenSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	if s.active != nil && s.active.SessionID != "" && s.active.SessionID == sessionID {
		s.mu.Unlock()
		return nil
	}
	s.loading++
	selection := s.selection
	snap := s.commitLocked()
	s.mu.Unlock()
	s.observers.notify(snap.Seq, snap)

	remote, err := s.api.GetSession(ctx, sessionID)

	s.mu.Lock()
	s.loading--
	// Another draft or open replaced the active session meanwhile.
	stale := s.selection != selection
	if err != nil {
		if !stale {
			s.lastError = NoticeOpenFailed
		}
		snap = s.commitLocked()
		s.mu.Unlock()
		s.observers.notify(snap.Seq, snap)
		s.log.Warn().Err(err).Str("kind", metrics.KindLabel(err)).Str("session_id", sessionID).Msg("open session failed")
		return err
	}
	if stale {
		snap = s.commitLocked()
		s.mu.Unlock()
		s.observers.notify(snap.Seq, snap)
		s.log.Debug().Str("session_id", sessionID).Msg("stale session load discarded")
		return nil
	}

	s.selection++
	s.active = &domain.ConversationSession{
		LocalKey:  s.newID(),
		SessionID: remote.SessionID,
		Messages:  dedupe(remote.Messages),
		State:     domain.SessionReady,
		CreatedAt: remote.CreatedAt,
		UpdatedAt: remote.UpdatedAt,
	}
	if s.active.SessionID == "" {
		s.active.SessionID = sessionID
	}
	s.lastError = ""
	snap = s.commitLocked()
	s.mu.Unlock()
	s.observers.notify(snap.Seq, snap)
	return nil
}

// DeleteSession removes sessionID on the server and from the catalog. If it
// was the active session a fresh draft takes its place. Not retried.
func (s *ConversationService) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.api.DeleteSession(ctx, sessionID); err != nil {
		s.log.Warn().Err(err).Str("kind", metrics.KindLabel(err)).Str("session_id", sessionID).Msg("delete session failed")
		s.setError(NoticeDeleteFailed)
		return err
	}

	s.mu.Lock()
	kept := make([]domain.SessionSummary, 0, len(s.catalog))
	for _, sum := range s.catalog {
		if sum.SessionID != sessionID {
			kept = append(kept, sum)
		}
	}
	s.catalog = kept
	if s.active != nil && s.active.SessionID == sessionID {
		s.startDraftLocked()
	}
	s.lastError = ""
	snap := s.commitLocked()
	s.mu.Unlock()
	s.observers.notify(snap.Seq, snap)

	s.log.Info().Str("session_id", sessionID).Msg("session deleted")
	return nil
}

// ResetSession clears a session's history on the server. If it is the active
// session its messages are reloaded.
func (s *ConversationService) ResetSession(ctx context.Context, sessionID string) error {
	if err := s.api.ResetSession(ctx, sessionID); err != nil {
		s.log.Warn().Err(err).Str("kind", metrics.KindLabel(err)).Str("session_id", sessionID).Msg("reset session failed")
		s.setError(NoticeResetFailed)
		return err
	}

	s.mu.Lock()
	isActive := s.active != nil && s.active.SessionID == sessionID
	s.mu.Unlock()

	if isActive {
		remote, err := s.api.GetSession(ctx, sessionID)
		if err != nil {
			s.log.Warn().Err(err).Str("session_id", sessionID).Msg("reload after reset failed")
			s.setError(NoticeOpenFailed)
			return err
		}
		s.mu.Lock()
		if s.active != nil && s.active.SessionID == sessionID {
			s.active.Messages = dedupe(remote.Messages)
			s.active.State = domain.SessionReady
			s.active.UpdatedAt = remote.UpdatedAt
		}
		s.lastError = ""
		snap := s.commitLocked()
		s.mu.Unlock()
		s.observers.notify(snap.Seq, snap)
	}

	s.tasks.Submit(refreshTask, func(ctx context.Context) error {
		return s.refreshCatalog(ctx, false)
	})
	return nil
}

// Snapshot returns a deep copy of the observable state.
func (s *ConversationService) Snapshot() domain.ConversationSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every state change.
func (s *ConversationService) Subscribe(fn func(domain.ConversationSnapshot)) (unsubscribe func()) {
	return s.observers.add(fn)
}

func (s *ConversationService) startDraftLocked() {
	now := s.now().UTC()
	s.selection++
	s.active = &domain.ConversationSession{
		LocalKey:  s.newID(),
		State:     domain.SessionDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *ConversationService) setError(notice string) {
	s.mu.Lock()
	s.lastError = notice
	snap := s.commitLocked()
	s.mu.Unlock()
	s.observers.notify(snap.Seq, snap)
}

// commitLocked records a state change and returns the snapshot to publish.
func (s *ConversationService) commitLocked() domain.ConversationSnapshot {
	s.seq++
	return s.snapshotLocked()
}

func (s *ConversationService) snapshotLocked() domain.ConversationSnapshot {
	return domain.ConversationSnapshot{
		Active:    s.active.Clone(),
		Catalog:   append([]domain.SessionSummary(nil), s.catalog...),
		Loading:   s.loading > 0,
		LastError: s.lastError,
		Seq:       s.seq,
	}
}

// summarize projects a persisted session onto its catalog entry.
func summarize(sess *domain.ConversationSession) domain.SessionSummary {
	return domain.SessionSummary{
		SessionID:    sess.SessionID,
		Preview:      preview(sess.Messages),
		CreatedAt:    sess.CreatedAt,
		UpdatedAt:    sess.UpdatedAt,
		MessageCount: len(sess.Messages),
	}
}

func preview(msgs []domain.Message) string {
	for _, m := range msgs {
		if m.Role != domain.RoleUser {
			continue
		}
		text := strings.TrimSpace(m.Content)
		if r := []rune(text); len(r) > previewRunes {
			return string(r[:previewRunes]) + "…"
		}
		return text
	}
	return previewDefault
}

// dedupe drops repeated message ids, keeping the first occurrence.
func dedupe(msgs []domain.Message) []domain.Message {
	seen := make(map[string]struct{}, len(msgs))
	out := make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}
