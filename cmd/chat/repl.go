package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/saberactivo/social/internal/apperr"
	"github.com/saberactivo/social/internal/chat"
	"github.com/saberactivo/social/internal/client"
	"github.com/saberactivo/social/internal/models"
	"github.com/saberactivo/social/internal/session"
	"github.com/sirupsen/logrus"
)

const helpText = `commands:
  /signup <email> <password> <username>
  /login <email> <password>
  /logout
  /me
  /friends                list friends, * marks unread conversations
  /requests               list pending requests addressed to you
  /add <username>         send a friend request
  /accept <request-id>
  /reject <request-id>
  /open <username>        open the conversation and load its newest page
  /more                   load older messages
  /retry                  resend messages that failed
  /unread                 conversations with unread messages
  /notifications
  /readall                mark every notification read
  /lessons                lesson catalog, x marks completed lessons
  /complete <slug>        complete a lesson and collect its XP
  /ranking                global XP ranking
  /quit
any other line is sent to the open conversation`

// repl owns one user's chat stack and renders it as text.
type repl struct {
	client  *client.Client
	sess    *session.State
	log     *chat.Log
	tracker *chat.Tracker
	feed    *chat.Feed
	prop    *chat.Propagator
	logger  *logrus.Logger

	outMu sync.Mutex
	out   io.Writer

	namesMu sync.Mutex
	names   map[uuid.UUID]string
}

func newREPL(c *client.Client, sess *session.State, out io.Writer, logger *logrus.Logger) *repl {
	r := &repl{
		client: c,
		sess:   sess,
		logger: logger,
		out:    out,
		names:  make(map[uuid.UUID]string),
	}
	r.log = chat.NewLog(c, sess, logger)
	r.tracker = chat.NewTracker(c, c, sess, logger)
	r.feed = chat.NewFeed(c, sess)
	r.prop = chat.NewPropagator(c, sess, r.log, r.tracker, r.feed, logger)
	r.prop.OnMessage = r.onMessage
	r.prop.OnNotifications = r.onNotifications
	return r
}

func (r *repl) Close() {
	r.prop.Close()
}

func (r *repl) printf(format string, args ...any) {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	fmt.Fprintf(r.out, format+"\n", args...)
}

// Handle runs one input line and reports whether the loop should continue.
func (r *repl) Handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}
	if !strings.HasPrefix(line, "/") {
		r.report(r.send(ctx, line))
		return true
	}

	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	var err error
	switch cmd {
	case "/quit", "/exit":
		return false
	case "/help":
		r.printf("%s", helpText)
	case "/signup":
		err = r.signUp(ctx, args)
	case "/login":
		err = r.signIn(ctx, args)
	case "/logout":
		r.prop.Close()
		r.log.Close()
		err = r.client.SignOut(ctx)
		if err == nil {
			r.printf("signed out")
		}
	case "/me":
		err = r.me(ctx)
	case "/friends":
		err = r.friends(ctx)
	case "/requests":
		err = r.requests(ctx)
	case "/add":
		err = r.add(ctx, args)
	case "/accept", "/reject":
		err = r.answer(ctx, cmd, args)
	case "/open":
		err = r.open(ctx, args)
	case "/more":
		err = r.more(ctx)
	case "/retry":
		err = r.retry(ctx)
	case "/unread":
		r.unread()
	case "/notifications":
		r.notifications()
	case "/readall":
		err = r.feed.MarkAllRead(ctx)
		if err == nil {
			r.printf("all notifications read")
		}
	case "/lessons":
		err = r.lessons(ctx)
	case "/complete":
		err = r.complete(ctx, args)
	case "/ranking":
		err = r.ranking(ctx)
	default:
		err = apperr.Validation("unknown command %s, try /help", cmd)
	}
	r.report(err)
	return true
}

func (r *repl) report(err error) {
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrNotAuthenticated):
		r.printf("! sign in first (/login)")
	case apperr.IsTransient(err):
		r.printf("! server unavailable: %v", err)
	default:
		r.printf("! %v", err)
	}
}

func (r *repl) signUp(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return apperr.Validation("usage: /signup <email> <password> <username>")
	}
	u, err := r.client.SignUp(ctx, args[0], args[1], args[2])
	if err != nil {
		return err
	}
	return r.afterSignIn(ctx, u)
}

func (r *repl) signIn(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return apperr.Validation("usage: /login <email> <password>")
	}
	u, err := r.client.SignIn(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	return r.afterSignIn(ctx, u)
}

func (r *repl) afterSignIn(ctx context.Context, u *models.User) error {
	r.remember(u.ID, u.Username)
	if err := r.prop.Start(ctx); err != nil {
		return err
	}
	if err := r.tracker.Load(ctx); err != nil {
		r.logger.WithError(err).Warn("failed to load read markers")
	}
	r.printf("signed in as @%s, %d unread notifications", u.Username, r.feed.UnreadCount())
	return nil
}

func (r *repl) me(ctx context.Context) error {
	me, err := r.client.Me(ctx)
	if err != nil {
		return err
	}
	line := fmt.Sprintf("@%s  %s  %d XP", me.Profile.Username, me.Rank.Current.Label, me.Profile.TotalXP)
	if me.Rank.Next != nil {
		line += fmt.Sprintf("  (%d%% to %s, %d XP left)", me.Rank.Percent, me.Rank.Next.Label, me.Rank.Remaining)
	}
	r.printf("%s", line)
	r.printf("pending requests: %d, unread notifications: %d", me.PendingRequests, me.UnreadNotifications)
	return nil
}

func (r *repl) lessons(ctx context.Context) error {
	catalog, err := r.client.Lessons(ctx)
	if err != nil {
		return err
	}
	for _, lvl := range catalog.Levels {
		r.printf("%s: %d/%d lessons, %d%%", lvl.Level, lvl.Completed, lvl.Lessons, lvl.Percent)
	}
	for _, l := range catalog.Lessons {
		mark := " "
		if l.Completed {
			mark = "x"
		}
		r.printf("[%s] %-20s %s  %d XP", mark, l.Slug, l.Title, l.XP)
	}
	return nil
}

func (r *repl) complete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return apperr.Validation("usage: /complete <slug>")
	}
	catalog, err := r.client.Lessons(ctx)
	if err != nil {
		return err
	}
	for _, l := range catalog.Lessons {
		if l.Slug != args[0] {
			continue
		}
		done, err := r.client.CompleteLesson(ctx, l.ID)
		if err != nil {
			return err
		}
		if !done.Awarded {
			r.printf("%s already completed, %d XP total", l.Title, done.TotalXP)
			return nil
		}
		r.printf("+%d XP for %s, %d XP total (%s)", done.Progress.XPEarned, l.Title, done.TotalXP, done.Rank.Current.Label)
		return nil
	}
	return apperr.Validation("no lesson %q, try /lessons", args[0])
}

func (r *repl) ranking(ctx context.Context) error {
	board, err := r.client.Ranking(ctx)
	if err != nil {
		return err
	}
	for i, p := range board.Top {
		r.printf("%3d. @%s  %d XP", i+1, p.Username, p.TotalXP)
	}
	if board.Me != nil && board.Percentile != nil {
		r.printf("you: #%d of %d, ahead of %d%%", board.Position, board.TotalUsers, *board.Percentile)
	}
	return nil
}

func (r *repl) friends(ctx context.Context) error {
	friends, err := r.client.Friends(ctx)
	if err != nil {
		return err
	}
	if len(friends) == 0 {
		r.printf("no friends yet, try /add <username>")
		return nil
	}
	ids := make([]uuid.UUID, 0, len(friends))
	for _, f := range friends {
		ids = append(ids, f.UserID)
		r.remember(f.UserID, f.Username)
	}
	if err := r.tracker.Refresh(ctx, ids); err != nil {
		r.logger.WithError(err).Warn("failed to refresh unread state")
	}
	for _, f := range friends {
		mark := " "
		if r.tracker.IsUnread(f.UserID) {
			mark = "*"
		}
		r.printf("%s @%s  %d XP", mark, f.Username, f.TotalXP)
	}
	return nil
}

func (r *repl) requests(ctx context.Context) error {
	me, ok := r.sess.UserID()
	if !ok {
		return apperr.ErrNotAuthenticated
	}
	rows, err := r.client.Requests(ctx)
	if err != nil {
		return err
	}
	n := 0
	for _, row := range rows {
		if row.Status != models.StatusPending || row.ReceiverID != me {
			continue
		}
		n++
		r.printf("%s  from %s", row.ID, r.name(row.RequesterID))
	}
	if n == 0 {
		r.printf("no pending requests")
	}
	return nil
}

func (r *repl) add(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return apperr.Validation("usage: /add <username>")
	}
	view, err := r.client.Profile(ctx, strings.TrimPrefix(args[0], "@"))
	if err != nil {
		return err
	}
	r.remember(view.Profile.UserID, view.Profile.Username)
	if _, err := r.client.SendFriendRequest(ctx, view.Profile.UserID); err != nil {
		return err
	}
	r.printf("request sent to @%s", view.Profile.Username)
	return nil
}

func (r *repl) answer(ctx context.Context, cmd string, args []string) error {
	if len(args) != 1 {
		return apperr.Validation("usage: %s <request-id>", cmd)
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return apperr.Validation("invalid request id")
	}
	if cmd == "/accept" {
		row, err := r.client.AcceptRequest(ctx, id)
		if err != nil {
			return err
		}
		r.printf("you are now friends with %s", r.name(row.RequesterID))
		return nil
	}
	if _, err := r.client.RejectRequest(ctx, id); err != nil {
		return err
	}
	r.printf("request rejected")
	return nil
}

func (r *repl) open(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return apperr.Validation("usage: /open <username>")
	}
	view, err := r.client.Profile(ctx, strings.TrimPrefix(args[0], "@"))
	if err != nil {
		return err
	}
	r.remember(view.Profile.UserID, view.Profile.Username)
	if err := r.prop.Switch(ctx, view.Profile.UserID); err != nil {
		return err
	}
	r.printf("-- @%s --", view.Profile.Username)
	for _, e := range r.log.Entries() {
		r.printEntry(e)
	}
	if r.log.HasMore() {
		r.printf("-- /more for older messages --")
	}
	return nil
}

func (r *repl) more(ctx context.Context) error {
	before := len(r.log.Entries())
	n, err := r.log.LoadMore(ctx)
	if err != nil {
		return err
	}
	entries := r.log.Entries()
	for _, e := range entries[:min(n, len(entries))] {
		r.printEntry(e)
	}
	r.printf("-- %d older messages (%d total) --", n, before+n)
	return nil
}

func (r *repl) send(ctx context.Context, body string) error {
	e, err := r.log.Send(ctx, body)
	if err != nil {
		return err
	}
	if e.Delivery == chat.DeliveryFailed {
		r.printf("! not delivered, /retry to resend")
	}
	return nil
}

func (r *repl) retry(ctx context.Context) error {
	n := 0
	for _, e := range r.log.Entries() {
		if e.Delivery != chat.DeliveryFailed {
			continue
		}
		got, err := r.log.Retry(ctx, e.ClientToken)
		if err != nil {
			return err
		}
		if got.Delivery == chat.DeliverySent {
			n++
		}
	}
	r.printf("%d messages resent", n)
	return nil
}

func (r *repl) unread() {
	ids := r.tracker.Unread()
	if len(ids) == 0 {
		r.printf("no unread conversations")
		return
	}
	for _, id := range ids {
		r.printf("* %s", r.name(id))
	}
}

func (r *repl) notifications() {
	items := r.feed.Items()
	if len(items) == 0 {
		r.printf("no notifications")
		return
	}
	for _, n := range items {
		mark := " "
		if n.Unread() {
			mark = "*"
		}
		body := ""
		if n.Body != nil {
			body = ": " + *n.Body
		}
		r.printf("%s %s %s%s", mark, n.CreatedAt.Local().Format("Jan 2 15:04"), n.Title, body)
	}
}

func (r *repl) onMessage(m models.Message) {
	if me, ok := r.sess.UserID(); ok && m.SenderID == me {
		return
	}
	r.printEntry(chat.Entry{Message: m, Delivery: chat.DeliverySent})
}

func (r *repl) onNotifications() {
	r.printf("[%d unread notifications]", r.feed.UnreadCount())
}

func (r *repl) printEntry(e chat.Entry) {
	suffix := ""
	switch e.Delivery {
	case chat.DeliveryPending:
		suffix = " (sending)"
	case chat.DeliveryFailed:
		suffix = " (failed)"
	}
	r.printf("[%s] %s: %s%s", e.CreatedAt.Local().Format("15:04"), r.name(e.SenderID), e.Body, suffix)
}

func (r *repl) remember(id uuid.UUID, username string) {
	r.namesMu.Lock()
	r.names[id] = username
	r.namesMu.Unlock()
}

func (r *repl) name(id uuid.UUID) string {
	r.namesMu.Lock()
	defer r.namesMu.Unlock()
	if n, ok := r.names[id]; ok {
		return "@" + n
	}
	return id.String()[:8]
}
