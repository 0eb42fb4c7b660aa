// Package terminal implements the interactive line-oriented client. It only
// issues intents to the two session managers and prints their state.
package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/shopassist/shopchat/internal/core/domain"
	"github.com/shopassist/shopchat/internal/core/ports"
)

// AuthManager is the credential session manager as used by the shell.
type AuthManager interface {
	ports.AuthService
	TokenExpiry(ctx context.Context) (time.Time, bool)
}

// Renderer turns assistant markdown into terminal output.
type Renderer interface {
	Render(markdown string) (string, error)
}

// PlainRenderer prints markdown as is.
type PlainRenderer struct{}

func (PlainRenderer) Render(s string) (string, error) { return s + "\n", nil }

// Shell reads commands from in and writes results to out.
type Shell struct {
	auth   AuthManager
	chat   ports.ConversationService
	render Renderer
	in     *bufio.Reader
	out    io.Writer

	// terminal descriptor for echo-free password entry, -1 when in is not a tty
	ttyFd int

	// latest published conversation state
	mu   sync.Mutex
	view domain.ConversationSnapshot

	// last listed catalog, for /open <n>
	listed []domain.SessionSummary

	unsubscribe []func()
}

func NewShell(auth AuthManager, chat ports.ConversationService, render Renderer, in io.Reader, out io.Writer) *Shell {
	if render == nil {
		render = PlainRenderer{}
	}
	ttyFd := -1
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		ttyFd = int(f.Fd())
	}
	s := &Shell{
		auth:   auth,
		chat:   chat,
		render: render,
		in:     bufio.NewReader(in),
		out:    out,
		ttyFd:  ttyFd,
		view:   chat.Snapshot(),
	}
	s.unsubscribe = append(s.unsubscribe,
		chat.Subscribe(func(snap domain.ConversationSnapshot) {
			s.mu.Lock()
			if snap.Seq > s.view.Seq {
				s.view = snap
			}
			s.mu.Unlock()
		}),
		auth.Subscribe(func(snap domain.AuthSnapshot) {
			if snap.State == domain.AuthUnauthenticated {
				s.mu.Lock()
				s.listed = nil
				s.mu.Unlock()
			}
		}),
	)
	return s
}

// Close detaches the shell from both managers.
func (s *Shell) Close() {
	for _, fn := range s.unsubscribe {
		fn()
	}
	s.unsubscribe = nil
}

// snapshot returns the latest conversation state the shell has been sent.
func (s *Shell) snapshot() domain.ConversationSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Run hydrates the credential and processes lines until /quit or EOF.
func (s *Shell) Run(ctx context.Context) error {
	defer s.Close()
	s.printf("Shopping assistant. Type /help for commands.\n")
	switch s.auth.Hydrate(ctx) {
	case domain.AuthAuthenticated:
		if id := s.auth.Snapshot().Identity; id != nil {
			s.printf("Welcome back, %s.\n", id.Username)
		}
		_ = s.chat.RefreshCatalog(ctx)
	case domain.AuthError:
		s.printf("! %s\n", s.auth.Snapshot().LastError)
	default:
		s.printf("You are not logged in. Use /login or /register.\n")
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.printf("> ")
		line, err := s.readLine()
		if errors.Is(err, io.EOF) {
			s.printf("\n")
			return nil
		}
		if err != nil {
			return err
		}
		if quit := s.Execute(ctx, line); quit {
			return nil
		}
	}
}

// Execute handles one input line and reports whether the shell should exit.
func (s *Shell) Execute(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		s.send(ctx, line)
		return false
	}

	cmd, args := splitCommand(line)
	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		s.help()
	case "/login":
		s.login(ctx, args)
	case "/register":
		s.register(ctx)
	case "/logout":
		s.auth.Logout(ctx)
		s.chat.StartDraft()
		s.printf("Logged out.\n")
	case "/whoami":
		s.whoami(ctx)
	case "/profile":
		s.profile(ctx, args)
	case "/new":
		s.chat.StartDraft()
		s.printf("Started a new conversation.\n")
	case "/sessions":
		s.sessions(ctx)
	case "/open":
		s.withSessionArg(args, func(id string) { s.open(ctx, id) })
	case "/delete":
		s.withSessionArg(args, func(id string) {
			if s.chat.DeleteSession(ctx, id) == nil {
				s.printf("Deleted %s.\n", id)
				return
			}
			s.notice()
		})
	case "/reset":
		s.withSessionArg(args, func(id string) {
			if s.chat.ResetSession(ctx, id) == nil {
				s.printf("Reset %s.\n", id)
				s.printActive()
				return
			}
			s.notice()
		})
	default:
		s.printf("Unknown command %s. Type /help.\n", cmd)
	}
	return false
}

func (s *Shell) help() {
	s.printf(`Commands:
  /login <email> [password]   log in
  /register                   create an account
  /logout                     log out
  /whoami                     show the current account
  /profile [edit]             show or edit your profile
  /new                        start a new conversation
  /sessions                   list past conversations
  /open <id|n>                open a conversation
  /reset <id|n>               clear a conversation
  /delete <id|n>              delete a conversation
  /quit                       exit
Anything else is sent to the assistant.
`)
}

func (s *Shell) send(ctx context.Context, text string) {
	before := s.activeLen()
	if err := s.chat.Send(ctx, text); err != nil {
		s.notice()
	}
	snap := s.snapshot()
	if snap.Active == nil {
		return
	}
	// Skip the user message that was just echoed back.
	for _, m := range snap.Active.Messages[min(before+1, len(snap.Active.Messages)):] {
		if m.Role != domain.RoleUser {
			s.printMessage(m)
		}
	}
}

func (s *Shell) login(ctx context.Context, args []string) {
	if len(args) == 0 {
		s.printf("usage: /login <email> [password]\n")
		return
	}
	email := args[0]
	password := ""
	if len(args) > 1 {
		password = args[1]
	} else {
		password = s.promptSecret("Password: ")
	}

	res := s.auth.Login(ctx, email, password)
	if !res.Success {
		s.printf("! %s\n", res.Message)
		return
	}
	s.printf("Logged in as %s.\n", s.auth.Snapshot().Identity.Username)
	s.chat.StartDraft()
	_ = s.chat.RefreshCatalog(ctx)
}

func (s *Shell) register(ctx context.Context) {
	in := domain.RegisterInput{
		Username:        s.prompt("Username: "),
		Email:           s.prompt("Email: "),
		Password:        s.promptSecret("Password: "),
		PasswordConfirm: s.promptSecret("Confirm password: "),
		PhoneNumber:     s.prompt("Phone (optional): "),
		DateOfBirth:     s.prompt("Date of birth YYYY-MM-DD (optional): "),
	}
	res := s.auth.Register(ctx, in)
	if !res.Success {
		s.printf("! %s\n", res.Message)
		s.printFieldErrors(res.FieldErrors)
		return
	}
	s.printf("Welcome, %s.\n", s.auth.Snapshot().Identity.Username)
	s.chat.StartDraft()
	_ = s.chat.RefreshCatalog(ctx)
}

func (s *Shell) whoami(ctx context.Context) {
	snap := s.auth.Snapshot()
	if snap.State != domain.AuthAuthenticated || snap.Identity == nil {
		s.printf("Not logged in (%s).\n", snap.State)
		return
	}
	id := snap.Identity
	s.printf("%s <%s> (id %d)\n", id.Username, id.Email, id.ID)
	if exp, ok := s.auth.TokenExpiry(ctx); ok {
		s.printf("Access token expires %s.\n", exp.Local().Format(time.RFC1123))
	}
}

func (s *Shell) profile(ctx context.Context, args []string) {
	snap := s.auth.Snapshot()
	if snap.Identity == nil {
		s.printf("Not logged in.\n")
		return
	}
	id := snap.Identity
	if len(args) == 0 || args[0] != "edit" {
		s.printf("Username:      %s\n", id.Username)
		s.printf("Email:         %s\n", id.Email)
		s.printf("Phone:         %s\n", orDash(id.PhoneNumber))
		s.printf("Date of birth: %s\n", orDash(id.DateOfBirth))
		s.printf("Member since:  %s\n", id.CreatedAt.Local().Format("2006-01-02"))
		return
	}

	update := domain.ProfileUpdate{
		Username:    s.promptDefault("Username", id.Username),
		Email:       s.promptDefault("Email", id.Email),
		PhoneNumber: s.promptDefault("Phone", id.PhoneNumber),
		DateOfBirth: s.promptDefault("Date of birth", id.DateOfBirth),
	}
	res := s.auth.UpdateProfile(ctx, update)
	if !res.Success {
		s.printf("! %s\n", res.Message)
		s.printFieldErrors(res.FieldErrors)
		return
	}
	s.printf("Profile updated.\n")
}

func (s *Shell) sessions(ctx context.Context) {
	if err := s.chat.RefreshCatalog(ctx); err != nil {
		s.notice()
	}
	s.listed = s.snapshot().Catalog
	if len(s.listed) == 0 {
		s.printf("No conversations yet.\n")
		return
	}
	for i, sum := range s.listed {
		s.printf("%2d. %s  %s  (%d messages)\n    %s\n",
			i+1, sum.SessionID, sum.UpdatedAt.Local().Format("2006-01-02 15:04"), sum.MessageCount, sum.Preview)
	}
}

func (s *Shell) open(ctx context.Context, id string) {
	if err := s.chat.OpenSession(ctx, id); err != nil {
		s.notice()
		return
	}
	s.printActive()
}

func (s *Shell) withSessionArg(args []string, fn func(id string)) {
	if len(args) == 0 {
		s.printf("usage: a session id or a number from /sessions\n")
		return
	}
	fn(s.resolveSession(args[0]))
}

// resolveSession maps a 1-based index from the last listing to its id.
func (s *Shell) resolveSession(arg string) string {
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(s.listed) {
		return s.listed[n-1].SessionID
	}
	return arg
}

func (s *Shell) printActive() {
	snap := s.snapshot()
	if snap.Active == nil {
		return
	}
	for _, m := range snap.Active.Messages {
		s.printMessage(m)
	}
}

func (s *Shell) printMessage(m domain.Message) {
	switch m.Role {
	case domain.RoleUser:
		s.printf("you: %s\n", m.Content)
	case domain.RoleSystem:
		s.printf("[%s]\n", m.Content)
	default:
		out, err := s.render.Render(m.Content)
		if err != nil {
			out = m.Content + "\n"
		}
		s.printf("assistant:\n%s", out)
	}
}

func (s *Shell) printFieldErrors(fields domain.FieldErrors) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s.printf("  %s: %s\n", k, strings.Join(fields[k], " "))
	}
}

func (s *Shell) notice() {
	if msg := s.snapshot().LastError; msg != "" {
		s.printf("! %s\n", msg)
	}
}

func (s *Shell) activeLen() int {
	if a := s.snapshot().Active; a != nil {
		return len(a.Messages)
	}
	return 0
}

func (s *Shell) prompt(label string) string {
	s.printf("%s", label)
	line, _ := s.readLine()
	return strings.TrimSpace(line)
}

// promptSecret reads without echo when attached to a terminal.
func (s *Shell) promptSecret(label string) string {
	if s.ttyFd < 0 || s.in.Buffered() > 0 {
		return s.prompt(label)
	}
	s.printf("%s", label)
	b, err := term.ReadPassword(s.ttyFd)
	s.printf("\n")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// promptDefault keeps current when the answer is empty.
func (s *Shell) promptDefault(label, current string) string {
	v := s.prompt(fmt.Sprintf("%s [%s]: ", label, current))
	if v == "" {
		return current
	}
	return v
}

func (s *Shell) readLine() (string, error) {
	line, err := s.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func splitCommand(line string) (string, []string) {
	fields := strings.Fields(line)
	return strings.ToLower(fields[0]), fields[1:]
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
