package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/assistant"
	"github.com/spec-kit/support-engine/internal/cache"
	"github.com/spec-kit/support-engine/internal/config"
	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/events"
	"github.com/spec-kit/support-engine/internal/observability"
	apperrors "github.com/spec-kit/support-engine/pkg/util"
)

type fakeTicketRepo struct {
	tickets map[string]*domain.Ticket
	seq     int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]*domain.Ticket)}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.seq++
	ticket.ID = fmt.Sprintf("t-%d", r.seq)
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	r.tickets[ticket.ID] = ticket
	return nil
}

func (r *fakeTicketRepo) UpdateStatus(_ context.Context, ticket *domain.Ticket) error {
	stored, ok := r.tickets[ticket.ID]
	if !ok {
		return errors.New("no such ticket")
	}
	stored.Status = ticket.Status
	stored.ClosedAt = ticket.ClosedAt
	stored.UpdatedAt = time.Now()
	ticket.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, errors.New("no such ticket")
	}
	copied := *ticket
	return &copied, nil
}

func (r *fakeTicketRepo) ListByRequester(_ context.Context, requesterID int64, _, _ int) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, ticket := range r.tickets {
		if ticket.RequesterID == requesterID {
			out = append(out, *ticket)
		}
	}
	return out, nil
}

func (r *fakeTicketRepo) ListByStatus(_ context.Context, statuses []domain.TicketStatus, _, _ int) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, ticket := range r.tickets {
		for _, status := range statuses {
			if ticket.Status == status {
				out = append(out, *ticket)
			}
		}
	}
	return out, nil
}

type fakeMessageRepo struct {
	messages map[string][]domain.TicketMessage
	seq      int
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[string][]domain.TicketMessage)}
}

func (r *fakeMessageRepo) Create(_ context.Context, msg *domain.TicketMessage) error {
	r.seq++
	msg.ID = fmt.Sprintf("m-%d", r.seq)
	msg.CreatedAt = time.Now()
	r.messages[msg.TicketID] = append(r.messages[msg.TicketID], *msg)
	return nil
}

func (r *fakeMessageRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketMessage, error) {
	return r.messages[ticketID], nil
}

func (r *fakeMessageRepo) bySender(ticketID string, sender domain.MessageSender) int {
	count := 0
	for _, msg := range r.messages[ticketID] {
		if msg.Sender == sender {
			count++
		}
	}
	return count
}

type fakeResolver struct {
	outcome assistant.Outcome
	err     error
	calls   int
}

func (f *fakeResolver) Resolve(context.Context, string, []assistant.Message, bool) (assistant.Outcome, error) {
	f.calls++
	return f.outcome, f.err
}

type ticketFixture struct {
	service    *TicketService
	tickets    *fakeTicketRepo
	messages   *fakeMessageRepo
	resolver   *fakeResolver
	dispatcher events.Dispatcher
	seen       *[]events.EventType
}

func newTicketFixture(resolver *fakeResolver) ticketFixture {
	tickets := newFakeTicketRepo()
	messages := newFakeMessageRepo()
	dispatcher := events.NewInMemoryDispatcher()

	var seen []events.EventType
	record := func(_ context.Context, event events.Event) error {
		seen = append(seen, event.Type)
		return nil
	}
	for _, eventType := range []events.EventType{
		events.EventTicketOpened,
		events.EventTicketAutoResolved,
		events.EventTicketEscalated,
		events.EventTicketClosed,
		events.EventTicketMessageAdded,
	} {
		dispatcher.Subscribe(eventType, record)
	}

	svc := NewTicketService(TicketDependencies{
		TicketRepo:  tickets,
		MessageRepo: messages,
		Resolver:    resolver,
		Replies:     cache.NewResponseCache(config.CacheConfig{}),
		Convs:       cache.NewConversationStore(config.ConversationConfig{}),
		Dispatcher:  dispatcher,
		Metrics:     observability.NewMetrics(),
		Logger:      zap.NewNop(),
		KeywordCap:  5,
	})
	return ticketFixture{
		service:    svc,
		tickets:    tickets,
		messages:   messages,
		resolver:   resolver,
		dispatcher: dispatcher,
		seen:       &seen,
	}
}

func (f ticketFixture) sawEvent(eventType events.EventType) bool {
	for _, seen := range *f.seen {
		if seen == eventType {
			return true
		}
	}
	return false
}

func TestOpenResolvedTicket(t *testing.T) {
	fx := newTicketFixture(&fakeResolver{outcome: assistant.Outcome{Reply: "clear the app cache"}})

	ticket, outcome, err := fx.service.Open(context.Background(), 42, "buffering", "video keeps buffering on every channel")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Resolved {
		t.Fatal("expected automatic resolution")
	}
	if outcome.ReplyText == nil || *outcome.ReplyText != "clear the app cache" {
		t.Fatalf("got reply %v", outcome.ReplyText)
	}
	if ticket.Status != domain.TicketStatusOpen {
		t.Fatalf("resolved ticket should stay open, got %s", ticket.Status)
	}
	if got := fx.messages.bySender(ticket.ID, domain.SenderUser); got != 1 {
		t.Fatalf("expected 1 user message, got %d", got)
	}
	if got := fx.messages.bySender(ticket.ID, domain.SenderAssistant); got != 1 {
		t.Fatalf("expected 1 assistant message, got %d", got)
	}
	if !fx.sawEvent(events.EventTicketOpened) || !fx.sawEvent(events.EventTicketAutoResolved) {
		t.Fatal("expected opened and auto-resolved events")
	}
}

func TestOpenEscalatesWhenAssistantDeclines(t *testing.T) {
	fx := newTicketFixture(&fakeResolver{outcome: assistant.Outcome{Escalate: true}})

	ticket, outcome, err := fx.service.Open(context.Background(), 42, "broken", "device will not boot at all")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Resolved {
		t.Fatal("declined resolution must escalate")
	}
	if outcome.ReplyText != nil {
		t.Fatal("escalated outcome must not carry a reply")
	}

	stored, _ := fx.tickets.GetByID(context.Background(), ticket.ID)
	if stored.Status != domain.TicketStatusEscalated {
		t.Fatalf("expected ESCALATED, got %s", stored.Status)
	}
	if got := fx.messages.bySender(ticket.ID, domain.SenderAssistant); got != 0 {
		t.Fatalf("escalated ticket must have no assistant messages, got %d", got)
	}
	if !fx.sawEvent(events.EventTicketEscalated) {
		t.Fatal("expected escalation event")
	}
}

func TestOpenEscalatesOnProviderFault(t *testing.T) {
	fx := newTicketFixture(&fakeResolver{err: errors.New("connection refused")})

	_, outcome, err := fx.service.Open(context.Background(), 42, "help", "cannot log into the application")
	if err != nil {
		t.Fatalf("provider fault must not surface to the caller: %v", err)
	}
	if outcome.Resolved {
		t.Fatal("provider fault must escalate")
	}
	if !fx.sawEvent(events.EventTicketEscalated) {
		t.Fatal("expected escalation event")
	}
}

func TestIdenticalProblemServedFromCache(t *testing.T) {
	resolver := &fakeResolver{outcome: assistant.Outcome{Reply: "restart the device"}}
	fx := newTicketFixture(resolver)

	_, first, err := fx.service.Open(context.Background(), 1, "frozen", "screen is frozen")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// A different requester with the same fresh context and identical
	// problem text hits the cache instead of the provider.
	_, second, err := fx.service.Open(context.Background(), 2, "frozen", "screen is frozen")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !first.Resolved || !second.Resolved {
		t.Fatal("both turns should resolve")
	}
	if *second.ReplyText != *first.ReplyText {
		t.Fatal("cached turn should repeat the stored reply")
	}
	if resolver.calls != 1 {
		t.Fatalf("second turn should skip the provider, calls=%d", resolver.calls)
	}
}

func TestReplyOnClosedTicketRejected(t *testing.T) {
	fx := newTicketFixture(&fakeResolver{outcome: assistant.Outcome{Reply: "ok"}})

	ticket, _, err := fx.service.Open(context.Background(), 42, "issue", "subtitles are missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := fx.service.Close(context.Background(), ticket.ID, 42, false); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	_, err = fx.service.Reply(context.Background(), ticket.ID, 42, "it came back")
	if !apperrors.IsCode(err, "TICKET_CLOSED") {
		t.Fatalf("expected TICKET_CLOSED, got %v", err)
	}
	if err := fx.service.OperatorReply(context.Background(), ticket.ID, 9, "checking"); !apperrors.IsCode(err, "TICKET_CLOSED") {
		t.Fatalf("operator reply on closed ticket should fail, got %v", err)
	}
}

func TestReplyEnforcesOwnership(t *testing.T) {
	fx := newTicketFixture(&fakeResolver{outcome: assistant.Outcome{Reply: "ok"}})

	ticket, _, err := fx.service.Open(context.Background(), 42, "issue", "playlist is empty")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := fx.service.Reply(context.Background(), ticket.ID, 99, "hello"); !apperrors.IsCode(err, "NOT_FOUND") {
		t.Fatalf("foreign requester should see NOT_FOUND, got %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	fx := newTicketFixture(&fakeResolver{outcome: assistant.Outcome{Escalate: true}})

	ticket, _, err := fx.service.Open(context.Background(), 42, "issue", "account suspended without reason")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := fx.service.Close(context.Background(), ticket.ID, 7, true); err != nil {
		t.Fatalf("operator close failed: %v", err)
	}
	if err := fx.service.Close(context.Background(), ticket.ID, 7, true); err != nil {
		t.Fatalf("repeated close must succeed: %v", err)
	}

	stored, _ := fx.tickets.GetByID(context.Background(), ticket.ID)
	if stored.Status != domain.TicketStatusClosed {
		t.Fatalf("expected CLOSED, got %s", stored.Status)
	}
	if stored.ClosedAt == nil {
		t.Fatal("closed ticket must record the close time")
	}
}

func TestThreadTimestampsNeverDecrease(t *testing.T) {
	fx := newTicketFixture(&fakeResolver{outcome: assistant.Outcome{Reply: "try a restart"}})

	ticket, _, err := fx.service.Open(context.Background(), 42, "issue", "stream drops every minute")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := fx.service.Reply(context.Background(), ticket.ID, 42, "restart did not help"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := fx.service.OperatorReply(context.Background(), ticket.ID, 9, "looking into the stream logs"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msgs, err := fx.messages.ListByTicket(context.Background(), ticket.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 5 {
		t.Fatalf("expected 5 thread messages, got %d", len(msgs))
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt) {
			t.Fatalf("message %s at %v precedes %s at %v",
				msgs[i].ID, msgs[i].CreatedAt, msgs[i-1].ID, msgs[i-1].CreatedAt)
		}
	}
}

func TestStringPreviewKeepsRuneBoundaries(t *testing.T) {
	body := strings.Repeat("é", 100) // 2 bytes per rune

	preview := stringPreview(body, 120)
	if !utf8.ValidString(preview) {
		t.Fatalf("preview split a rune: %q", preview)
	}
	if len(preview) > 120 {
		t.Fatalf("preview exceeds limit: %d bytes", len(preview))
	}
	if !strings.HasSuffix(preview, "...") {
		t.Fatalf("truncated preview should end with ellipsis: %q", preview)
	}

	if got := stringPreview("short", 120); got != "short" {
		t.Fatalf("short body should pass through, got %q", got)
	}
}

func TestCloseReleasesTicketLock(t *testing.T) {
	fx := newTicketFixture(&fakeResolver{outcome: assistant.Outcome{Reply: "ok"}})

	ticket, _, err := fx.service.Open(context.Background(), 42, "issue", "cannot change email")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := fx.service.ticketLocks.Load(ticket.ID); !ok {
		t.Fatal("open ticket should hold a lock entry")
	}

	if err := fx.service.Close(context.Background(), ticket.ID, 42, false); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if _, ok := fx.service.ticketLocks.Load(ticket.ID); ok {
		t.Fatal("closed ticket should release its lock entry")
	}
}

func TestFollowupOnEscalatedTicketRetriesResolution(t *testing.T) {
	resolver := &fakeResolver{outcome: assistant.Outcome{Escalate: true}}
	fx := newTicketFixture(resolver)

	ticket, _, err := fx.service.Open(context.Background(), 42, "issue", "payment failed three times")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resolver.outcome = assistant.Outcome{Reply: "your card was declined, retry with another"}
	outcome, err := fx.service.Reply(context.Background(), ticket.ID, 42, "any update on my payment issue")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Resolved {
		t.Fatal("follow-up should re-attempt automated resolution")
	}
	stored, _ := fx.tickets.GetByID(context.Background(), ticket.ID)
	if stored.Status != domain.TicketStatusEscalated {
		t.Fatalf("resolved follow-up must not silently reopen, got %s", stored.Status)
	}
}
