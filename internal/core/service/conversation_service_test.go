package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/shopassist/shopchat/internal/core/domain"
	"github.com/shopassist/shopchat/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type sendCall struct {
	text      string
	sessionID string
}

type stubConversationAPI struct {
	mu sync.Mutex

	sendFn   func(ctx context.Context, text, sessionID string) (*ports.Reply, error)
	listFn   func(ctx context.Context) ([]domain.ConversationSession, error)
	getFn    func(ctx context.Context, sessionID string) (*domain.ConversationSession, error)
	deleteFn func(ctx context.Context, sessionID string) error
	resetFn  func(ctx context.Context, sessionID string) error

	sends     []sendCall
	gets      []string
	listCalls int
}

func (s *stubConversationAPI) SendMessage(ctx context.Context, text, sessionID string) (*ports.Reply, error) {
	s.mu.Lock()
	s.sends = append(s.sends, sendCall{text: text, sessionID: sessionID})
	s.mu.Unlock()
	return s.sendFn(ctx, text, sessionID)
}

func (s *stubConversationAPI) ListSessions(ctx context.Context) ([]domain.ConversationSession, error) {
	s.mu.Lock()
	s.listCalls++
	s.mu.Unlock()
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx)
}

func (s *stubConversationAPI) GetSession(ctx context.Context, sessionID string) (*domain.ConversationSession, error) {
	s.mu.Lock()
	s.gets = append(s.gets, sessionID)
	s.mu.Unlock()
	return s.getFn(ctx, sessionID)
}

func (s *stubConversationAPI) DeleteSession(ctx context.Context, sessionID string) error {
	return s.deleteFn(ctx, sessionID)
}

func (s *stubConversationAPI) ResetSession(ctx context.Context, sessionID string) error {
	return s.resetFn(ctx, sessionID)
}

// syncRunner runs submitted tasks inline and swallows their errors, the way
// the real dispatcher does on its workers.
type syncRunner struct {
	names []string
	errs  []error
}

func (r *syncRunner) Submit(name string, task func(ctx context.Context) error) {
	r.names = append(r.names, name)
	r.errs = append(r.errs, task(context.Background()))
}

func botReply(sessionID, id, content string) *ports.Reply {
	return &ports.Reply{
		SessionID:   sessionID,
		BotResponse: domain.Message{ID: id, Role: domain.RoleAssistant, Content: content, Timestamp: time.Now().UTC()},
	}
}

func remoteSession(id string, contents ...string) *domain.ConversationSession {
	sess := &domain.ConversationSession{SessionID: id, CreatedAt: time.Now().UTC()}
	for i, c := range contents {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		sess.Messages = append(sess.Messages, domain.Message{ID: fmt.Sprintf("%s-m%d", id, i), Role: role, Content: c})
	}
	return sess
}

func newConvSvc(api *stubConversationAPI) (*ConversationService, *syncRunner) {
	runner := &syncRunner{}
	svc := NewConversationService(api, runner, zerolog.Nop())
	var n int
	var mu sync.Mutex
	svc.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("local-%d", n)
	}
	return svc, runner
}

// gate blocks a stubbed call until released, and reports when it was entered.
type gate struct {
	entered chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *gate) wait() {
	g.entered <- struct{}{}
	<-g.release
}

// ---------------------------------------------------------------------------
// Send
// ---------------------------------------------------------------------------

func TestConversationService_Send_EmptyTextIsNoop(t *testing.T) {
	api := &stubConversationAPI{}
	svc, _ := newConvSvc(api)

	for _, text := range []string{"", "   ", "\n\t"} {
		if err := svc.Send(context.Background(), text); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if len(api.sends) != 0 {
		t.Fatalf("expected no remote call, got %d", len(api.sends))
	}
	if svc.Snapshot().Active != nil {
		t.Fatalf("expected no active session")
	}
}

func TestConversationService_Send_DraftAdoptsServerSession(t *testing.T) {
	api := &stubConversationAPI{
		sendFn: func(context.Context, string, string) (*ports.Reply, error) {
			return botReply("s1", "b1", "Here are some running shoes"), nil
		},
	}
	svc, runner := newConvSvc(api)

	if err := svc.Send(context.Background(), "Show me running shoes"); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	snap := svc.Snapshot()
	msgs := snap.Active.Messages
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != domain.RoleUser || msgs[0].Content != "Show me running shoes" {
		t.Fatalf("unexpected first message: %+v", msgs[0])
	}
	if msgs[1].Role != domain.RoleAssistant || msgs[1].ID != "b1" {
		t.Fatalf("unexpected second message: %+v", msgs[1])
	}
	if snap.Active.SessionID != "s1" {
		t.Fatalf("expected session s1, got %q", snap.Active.SessionID)
	}
	if snap.Active.State != domain.SessionReady {
		t.Fatalf("expected ready, got %s", snap.Active.State)
	}
	if api.sends[0].sessionID != "" {
		t.Fatalf("draft must not carry a session id, got %q", api.sends[0].sessionID)
	}
	if len(runner.names) != 1 || runner.names[0] != refreshTask {
		t.Fatalf("expected a catalog refresh to be scheduled, got %v", runner.names)
	}
}

func TestConversationService_Send_SessionIDSetOnce(t *testing.T) {
	ids := []string{"s1", "s-other", "s-third"}
	var call int
	api := &stubConversationAPI{
		sendFn: func(context.Context, string, string) (*ports.Reply, error) {
			id := ids[call]
			call++
			return botReply(id, fmt.Sprintf("b%d", call), "ok"), nil
		},
	}
	svc, _ := newConvSvc(api)

	for _, text := range []string{"one", "two", "three"} {
		if err := svc.Send(context.Background(), text); err != nil {
			t.Fatalf("send failed: %v", err)
		}
	}

	snap := svc.Snapshot()
	if snap.Active.SessionID != "s1" {
		t.Fatalf("session id must stay at first response, got %q", snap.Active.SessionID)
	}
	if api.sends[1].sessionID != "s1" || api.sends[2].sessionID != "s1" {
		t.Fatalf("follow-up sends must carry s1: %+v", api.sends)
	}
	if len(snap.Active.Messages) != 6 {
		t.Fatalf("expected 6 messages, got %d", len(snap.Active.Messages))
	}
}

func TestConversationService_Send_OptimisticBeforeResolve(t *testing.T) {
	g := newGate()
	api := &stubConversationAPI{
		sendFn: func(context.Context, string, string) (*ports.Reply, error) {
			g.wait()
			return botReply("s1", "b1", "hi"), nil
		},
	}
	svc, _ := newConvSvc(api)

	done := make(chan error, 1)
	go func() { done <- svc.Send(context.Background(), "hello there") }()
	<-g.entered

	snap := svc.Snapshot()
	msgs := snap.Active.Messages
	if len(msgs) != 1 || msgs[len(msgs)-1].Content != "hello there" || msgs[0].Role != domain.RoleUser {
		t.Fatalf("expected optimistic user message, got %+v", msgs)
	}
	if snap.Active.State != domain.SessionPending || !snap.Loading {
		t.Fatalf("expected pending, got %s (loading=%v)", snap.Active.State, snap.Loading)
	}

	close(g.release)
	if err := <-done; err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if svc.Snapshot().Loading {
		t.Fatalf("loading must clear after resolve")
	}
}

func TestConversationService_Send_NetworkFailure(t *testing.T) {
	netErr := &domain.RemoteError{Kind: domain.ErrNetworkFailure, Op: "send_message", Err: errors.New("connection reset")}
	api := &stubConversationAPI{
		sendFn: func(context.Context, string, string) (*ports.Reply, error) { return nil, netErr },
	}
	svc, runner := newConvSvc(api)

	err := svc.Send(context.Background(), "Show me running shoes")
	if !errors.Is(err, domain.ErrNetworkFailure) {
		t.Fatalf("expected network failure, got %v", err)
	}

	snap := svc.Snapshot()
	msgs := snap.Active.Messages
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "Show me running shoes" || msgs[0].Role != domain.RoleUser {
		t.Fatalf("user message must be kept unchanged: %+v", msgs[0])
	}
	if msgs[1].Role != domain.RoleAssistant || msgs[1].Content != domain.ApologyMessage {
		t.Fatalf("expected apology, got %+v", msgs[1])
	}
	if snap.Active.State != domain.SessionFailed {
		t.Fatalf("expected failed, got %s", snap.Active.State)
	}
	if snap.LastError != NoticeSendFailed {
		t.Fatalf("unexpected notice %q", snap.LastError)
	}
	if len(runner.names) != 0 {
		t.Fatalf("no refresh expected after a failed send")
	}
}

func TestConversationService_Send_BackgroundRefreshFailureDoesNotTaintSend(t *testing.T) {
	api := &stubConversationAPI{
		sendFn: func(context.Context, string, string) (*ports.Reply, error) { return botReply("s1", "b1", "ok"), nil },
		listFn: func(context.Context) ([]domain.ConversationSession, error) {
			return nil, &domain.RemoteError{Kind: domain.ErrNetworkFailure, Op: "list_sessions"}
		},
	}
	svc, runner := newConvSvc(api)

	if err := svc.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("send must succeed despite refresh failure: %v", err)
	}
	if len(runner.errs) != 1 || runner.errs[0] == nil {
		t.Fatalf("expected the refresh task to fail, got %v", runner.errs)
	}
	snap := svc.Snapshot()
	if snap.LastError != "" {
		t.Fatalf("background failure must not surface, got %q", snap.LastError)
	}
	if snap.Active.State != domain.SessionReady {
		t.Fatalf("expected ready, got %s", snap.Active.State)
	}
}

func TestConversationService_Send_RefreshPopulatesCatalog(t *testing.T) {
	api := &stubConversationAPI{
		sendFn: func(context.Context, string, string) (*ports.Reply, error) { return botReply("s1", "b1", "ok"), nil },
		listFn: func(context.Context) ([]domain.ConversationSession, error) {
			return []domain.ConversationSession{*remoteSession("s1", "hi", "ok")}, nil
		},
	}
	svc, _ := newConvSvc(api)

	if err := svc.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	catalog := svc.Snapshot().Catalog
	if len(catalog) != 1 || catalog[0].SessionID != "s1" || catalog[0].Preview != "hi" || catalog[0].MessageCount != 2 {
		t.Fatalf("unexpected catalog: %+v", catalog)
	}
}

// ---------------------------------------------------------------------------
// Stale responses
// ---------------------------------------------------------------------------

func TestConversationService_Send_ConcurrentOnOneSession(t *testing.T) {
	tests := []struct {
		name      string
		firstDone string // which send resolves first
		lastFails bool
		wantID    string
		wantState domain.SessionState
	}{
		{name: "in order, last succeeds", firstDone: "a", wantID: "s-a", wantState: domain.SessionReady},
		{name: "in order, last fails", firstDone: "a", lastFails: true, wantID: "s-a", wantState: domain.SessionFailed},
		{name: "reversed, last succeeds", firstDone: "b", wantID: "s-b", wantState: domain.SessionReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gates := map[string]*gate{"a": newGate(), "b": newGate()}
			lastDone := "b"
			if tt.firstDone == "b" {
				lastDone = "a"
			}
			api := &stubConversationAPI{
				sendFn: func(_ context.Context, text, _ string) (*ports.Reply, error) {
					gates[text].wait()
					if tt.lastFails && text == lastDone {
						return nil, &domain.RemoteError{Kind: domain.ErrNetworkFailure, Op: "send"}
					}
					return botReply("s-"+text, "bot-"+text, "reply "+text), nil
				},
			}
			svc, _ := newConvSvc(api)

			done := map[string]chan error{"a": make(chan error, 1), "b": make(chan error, 1)}
			go func() { done["a"] <- svc.Send(context.Background(), "a") }()
			<-gates["a"].entered
			go func() { done["b"] <- svc.Send(context.Background(), "b") }()
			<-gates["b"].entered

			close(gates[tt.firstDone].release)
			if err := <-done[tt.firstDone]; err != nil {
				t.Fatalf("first send failed: %v", err)
			}
			mid := svc.Snapshot().Active
			if mid.State != domain.SessionPending {
				t.Fatalf("expected pending while a send is in flight, got %s", mid.State)
			}
			if mid.SessionID != tt.wantID {
				t.Fatalf("expected id %q from first response, got %q", tt.wantID, mid.SessionID)
			}

			close(gates[lastDone].release)
			<-done[lastDone]

			final := svc.Snapshot().Active
			if final.State != tt.wantState {
				t.Fatalf("expected %s after last completion, got %s", tt.wantState, final.State)
			}
			if final.SessionID != tt.wantID {
				t.Fatalf("session id changed to %q, want %q", final.SessionID, tt.wantID)
			}
			if len(final.Messages) != 4 {
				t.Fatalf("expected two user and two assistant messages, got %+v", final.Messages)
			}
			if final.Messages[0].Content != "a" || final.Messages[1].Content != "b" {
				t.Fatalf("user messages out of order: %+v", final.Messages)
			}
		})
	}
}

func TestConversationService_StaleReplyAfterOpenIsDiscarded(t *testing.T) {
	g := newGate()
	api := &stubConversationAPI{
		sendFn: func(_ context.Context, _ string, sessionID string) (*ports.Reply, error) {
			g.wait()
			return botReply(sessionID, "late-bot", "late answer"), nil
		},
		getFn: func(_ context.Context, id string) (*domain.ConversationSession, error) {
			if id == "s1" {
				return remoteSession("s1", "first question", "first answer"), nil
			}
			return remoteSession("s2", "other question", "other answer"), nil
		},
	}
	svc, _ := newConvSvc(api)

	if err := svc.OpenSession(context.Background(), "s1"); err != nil {
		t.Fatalf("open s1: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- svc.Send(context.Background(), "follow up") }()
	<-g.entered

	if err := svc.OpenSession(context.Background(), "s2"); err != nil {
		t.Fatalf("open s2: %v", err)
	}
	close(g.release)
	if err := <-done; err != nil {
		t.Fatalf("send failed: %v", err)
	}

	snap := svc.Snapshot()
	if snap.Active.SessionID != "s2" {
		t.Fatalf("expected s2 active, got %q", snap.Active.SessionID)
	}
	if len(snap.Active.Messages) != 2 || snap.Active.HasMessage("late-bot") {
		t.Fatalf("stale reply leaked into s2: %+v", snap.Active.Messages)
	}
	if snap.Active.State != domain.SessionReady {
		t.Fatalf("expected s2 ready, got %s", snap.Active.State)
	}
}

func TestConversationService_SlowOpenAfterLaterOpenIsDiscarded(t *testing.T) {
	g := newGate()
	api := &stubConversationAPI{
		getFn: func(_ context.Context, id string) (*domain.ConversationSession, error) {
			if id == "s1" {
				g.wait()
			}
			return remoteSession(id, id+" question", id+" answer"), nil
		},
	}
	svc, _ := newConvSvc(api)

	done := make(chan error, 1)
	go func() { done <- svc.OpenSession(context.Background(), "s1") }()
	<-g.entered

	if err := svc.OpenSession(context.Background(), "s2"); err != nil {
		t.Fatalf("open s2: %v", err)
	}
	close(g.release)
	if err := <-done; err != nil {
		t.Fatalf("open s1: %v", err)
	}

	snap := svc.Snapshot()
	if snap.Active.SessionID != "s2" {
		t.Fatalf("expected s2 to stay active, got %q", snap.Active.SessionID)
	}
	if snap.Active.Messages[0].Content != "s2 question" {
		t.Fatalf("s1 payload leaked into active session: %+v", snap.Active.Messages)
	}
	if snap.Loading || snap.LastError != "" {
		t.Fatalf("unexpected snapshot: loading=%v err=%q", snap.Loading, snap.LastError)
	}
}

func TestConversationService_SlowOpenAfterNewDraftIsDiscarded(t *testing.T) {
	g := newGate()
	api := &stubConversationAPI{
		getFn: func(_ context.Context, id string) (*domain.ConversationSession, error) {
			g.wait()
			return nil, errors.New("connection reset")
		},
	}
	svc, _ := newConvSvc(api)

	done := make(chan error, 1)
	go func() { done <- svc.OpenSession(context.Background(), "s1") }()
	<-g.entered

	svc.StartDraft()
	close(g.release)
	if err := <-done; err == nil {
		t.Fatal("expected the failed load to be reported to its caller")
	}

	snap := svc.Snapshot()
	if !snap.Active.IsDraft() || snap.Active.State != domain.SessionDraft {
		t.Fatalf("expected fresh draft to stay active, got %+v", snap.Active)
	}
	if snap.LastError != "" {
		t.Fatalf("stale failure must not raise a notice, got %q", snap.LastError)
	}
}

func TestConversationService_StaleDraftReplyAfterNewDraftIsDiscarded(t *testing.T) {
	g := newGate()
	api := &stubConversationAPI{
		sendFn: func(context.Context, string, string) (*ports.Reply, error) {
			g.wait()
			return botReply("s1", "b1", "answer"), nil
		},
	}
	svc, _ := newConvSvc(api)

	done := make(chan error, 1)
	go func() { done <- svc.Send(context.Background(), "question") }()
	<-g.entered

	svc.StartDraft()
	close(g.release)
	<-done

	snap := svc.Snapshot()
	if !snap.Active.IsDraft() || len(snap.Active.Messages) != 0 {
		t.Fatalf("new draft must stay empty, got %+v", snap.Active)
	}
	if snap.Active.State != domain.SessionDraft {
		t.Fatalf("expected draft state, got %s", snap.Active.State)
	}
}

func TestConversationService_ReplyAppliedToReopenedSession(t *testing.T) {
	g := newGate()
	api := &stubConversationAPI{
		sendFn: func(_ context.Context, _ string, sessionID string) (*ports.Reply, error) {
			g.wait()
			return botReply(sessionID, "late-bot", "late answer"), nil
		},
		getFn: func(_ context.Context, id string) (*domain.ConversationSession, error) {
			return remoteSession(id, "q", "a"), nil
		},
	}
	svc, _ := newConvSvc(api)
	svc.OpenSession(context.Background(), "s1")

	done := make(chan error, 1)
	go func() { done <- svc.Send(context.Background(), "follow up") }()
	<-g.entered

	svc.OpenSession(context.Background(), "s2")
	svc.OpenSession(context.Background(), "s1")
	close(g.release)
	<-done

	snap := svc.Snapshot()
	if snap.Active.SessionID != "s1" || !snap.Active.HasMessage("late-bot") {
		t.Fatalf("reply for s1 must apply to reopened s1: %+v", snap.Active.Messages)
	}
}

// ---------------------------------------------------------------------------
// Catalog / Open / Delete / Reset
// ---------------------------------------------------------------------------

func TestConversationService_RefreshCatalog_ReplacesWholesale(t *testing.T) {
	lists := [][]domain.ConversationSession{
		{*remoteSession("a", "alpha"), *remoteSession("b", "beta")},
		{*remoteSession("c", "gamma")},
	}
	var call int
	api := &stubConversationAPI{listFn: func(context.Context) ([]domain.ConversationSession, error) {
		l := lists[call]
		call++
		return l, nil
	}}
	svc, _ := newConvSvc(api)

	svc.RefreshCatalog(context.Background())
	svc.RefreshCatalog(context.Background())

	catalog := svc.Snapshot().Catalog
	if len(catalog) != 1 || catalog[0].SessionID != "c" {
		t.Fatalf("expected last fetch to win, got %+v", catalog)
	}
}

func TestConversationService_RefreshCatalog_FailureKeepsCatalog(t *testing.T) {
	fail := false
	api := &stubConversationAPI{listFn: func(context.Context) ([]domain.ConversationSession, error) {
		if fail {
			return nil, &domain.RemoteError{Kind: domain.ErrRejected, Status: 500}
		}
		return []domain.ConversationSession{*remoteSession("a", "alpha")}, nil
	}}
	svc, _ := newConvSvc(api)
	svc.RefreshCatalog(context.Background())

	fail = true
	if err := svc.RefreshCatalog(context.Background()); !errors.Is(err, domain.ErrRejected) {
		t.Fatalf("expected rejected, got %v", err)
	}
	snap := svc.Snapshot()
	if len(snap.Catalog) != 1 || snap.Catalog[0].SessionID != "a" {
		t.Fatalf("catalog must be unchanged, got %+v", snap.Catalog)
	}
	if snap.LastError != NoticeCatalogFailed {
		t.Fatalf("unexpected notice %q", snap.LastError)
	}
}

func TestConversationService_OpenSession_AlreadyActiveIsNoop(t *testing.T) {
	api := &stubConversationAPI{getFn: func(_ context.Context, id string) (*domain.ConversationSession, error) {
		return remoteSession(id, "q", "a"), nil
	}}
	svc, _ := newConvSvc(api)

	svc.OpenSession(context.Background(), "s2")
	before := svc.Snapshot()

	if err := svc.OpenSession(context.Background(), "s2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(api.gets) != 1 {
		t.Fatalf("expected no second fetch, got %v", api.gets)
	}
	after := svc.Snapshot()
	if after.Active.LocalKey != before.Active.LocalKey || len(after.Active.Messages) != len(before.Active.Messages) {
		t.Fatalf("state changed on no-op open")
	}
}

func TestConversationService_OpenSession_FailureKeepsActive(t *testing.T) {
	api := &stubConversationAPI{
		sendFn: func(context.Context, string, string) (*ports.Reply, error) { return botReply("s1", "b1", "ok"), nil },
		getFn: func(context.Context, string) (*domain.ConversationSession, error) {
			return nil, &domain.RemoteError{Kind: domain.ErrNotFound, Status: 404}
		},
	}
	svc, _ := newConvSvc(api)
	svc.Send(context.Background(), "hello")

	err := svc.OpenSession(context.Background(), "gone")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	snap := svc.Snapshot()
	if snap.Active.SessionID != "s1" || len(snap.Active.Messages) != 2 {
		t.Fatalf("active session disturbed: %+v", snap.Active)
	}
	if snap.LastError != NoticeOpenFailed {
		t.Fatalf("unexpected notice %q", snap.LastError)
	}
}

func TestConversationService_OpenSession_DropsDuplicateIDs(t *testing.T) {
	api := &stubConversationAPI{getFn: func(context.Context, string) (*domain.ConversationSession, error) {
		sess := remoteSession("s1", "q", "a")
		sess.Messages = append(sess.Messages, sess.Messages[0])
		return sess, nil
	}}
	svc, _ := newConvSvc(api)
	svc.OpenSession(context.Background(), "s1")

	if n := len(svc.Snapshot().Active.Messages); n != 2 {
		t.Fatalf("expected duplicates dropped, got %d messages", n)
	}
}

func TestConversationService_DeleteSession(t *testing.T) {
	deleteErr := error(nil)
	api := &stubConversationAPI{
		listFn: func(context.Context) ([]domain.ConversationSession, error) {
			return []domain.ConversationSession{*remoteSession("s1", "one"), *remoteSession("s2", "two")}, nil
		},
		getFn:    func(_ context.Context, id string) (*domain.ConversationSession, error) { return remoteSession(id, "q"), nil },
		deleteFn: func(context.Context, string) error { return deleteErr },
	}
	svc, _ := newConvSvc(api)
	svc.RefreshCatalog(context.Background())
	svc.OpenSession(context.Background(), "s1")

	t.Run("active session becomes draft", func(t *testing.T) {
		if err := svc.DeleteSession(context.Background(), "s1"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		snap := svc.Snapshot()
		if len(snap.Catalog) != 1 || snap.Catalog[0].SessionID != "s2" {
			t.Fatalf("unexpected catalog: %+v", snap.Catalog)
		}
		if !snap.Active.IsDraft() || len(snap.Active.Messages) != 0 {
			t.Fatalf("expected fresh draft, got %+v", snap.Active)
		}
	})

	t.Run("absent id leaves catalog unchanged", func(t *testing.T) {
		if err := svc.DeleteSession(context.Background(), "nope"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if snap := svc.Snapshot(); len(snap.Catalog) != 1 {
			t.Fatalf("catalog changed: %+v", snap.Catalog)
		}
	})

	t.Run("failure keeps catalog", func(t *testing.T) {
		deleteErr = &domain.RemoteError{Kind: domain.ErrNotFound, Status: 404}
		if err := svc.DeleteSession(context.Background(), "s2"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
		snap := svc.Snapshot()
		if len(snap.Catalog) != 1 || snap.LastError != NoticeDeleteFailed {
			t.Fatalf("unexpected snapshot: %+v", snap)
		}
	})
}

func TestConversationService_ResetSession_ReloadsActive(t *testing.T) {
	reset := false
	api := &stubConversationAPI{
		getFn: func(_ context.Context, id string) (*domain.ConversationSession, error) {
			if reset {
				return remoteSession(id, "welcome"), nil
			}
			return remoteSession(id, "q", "a", "q2", "a2"), nil
		},
		resetFn: func(context.Context, string) error { reset = true; return nil },
	}
	svc, runner := newConvSvc(api)
	svc.OpenSession(context.Background(), "s1")

	if err := svc.ResetSession(context.Background(), "s1"); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	snap := svc.Snapshot()
	if len(snap.Active.Messages) != 1 || snap.Active.Messages[0].Content != "welcome" {
		t.Fatalf("expected reloaded messages, got %+v", snap.Active.Messages)
	}
	if len(runner.names) != 1 {
		t.Fatalf("expected catalog refresh after reset")
	}
}

func TestPreview(t *testing.T) {
	long := strings.Repeat("ü", 60)
	tests := []struct {
		name string
		msgs []domain.Message
		want string
	}{
		{name: "empty", want: previewDefault},
		{name: "assistant only", msgs: []domain.Message{{Role: domain.RoleAssistant, Content: "hi"}}, want: previewDefault},
		{name: "first user message", msgs: []domain.Message{
			{Role: domain.RoleAssistant, Content: "welcome"},
			{Role: domain.RoleUser, Content: "  shoes please "},
			{Role: domain.RoleUser, Content: "later"},
		}, want: "shoes please"},
		{name: "truncated by runes", msgs: []domain.Message{{Role: domain.RoleUser, Content: long}}, want: strings.Repeat("ü", 50) + "…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := preview(tt.msgs); got != tt.want {
				t.Fatalf("preview = %q, want %q", got, tt.want)
			}
		})
	}
}
