package service

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/assistant"
	"github.com/spec-kit/support-engine/internal/cache"
	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/events"
	"github.com/spec-kit/support-engine/internal/observability"
	"github.com/spec-kit/support-engine/internal/repository"
	apperrors "github.com/spec-kit/support-engine/pkg/util"
)

// ReplyOutcome is the pipeline result rendered back to the user: either
// an assistant reply or an explicit hand-off to a human.
type ReplyOutcome struct {
	TicketID  string
	Resolved  bool
	ReplyText *string
}

// TicketService owns the ticket lifecycle: creation, message append,
// status transitions and the resolution pipeline that consults the
// response cache before calling the language assistant.
type TicketService struct {
	tickets  repository.TicketRepository
	messages repository.TicketMessageRepository
	resolver assistant.Resolver
	replies  *cache.ResponseCache
	convs    *cache.ConversationStore

	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	keywordCap int

	// ticketLocks serializes pipelines for the same ticket; unrelated
	// tickets proceed concurrently.
	ticketLocks sync.Map
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	MessageRepo repository.TicketMessageRepository
	Resolver    assistant.Resolver
	Replies     *cache.ResponseCache
	Convs       *cache.ConversationStore
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	KeywordCap  int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	keywordCap := deps.KeywordCap
	if keywordCap <= 0 {
		keywordCap = 5
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		resolver:   deps.Resolver,
		replies:    deps.Replies,
		convs:      deps.Convs,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		keywordCap: keywordCap,
	}
}

// Open creates a ticket, records the description as the first user
// message and runs the resolution pipeline. The new ticket is returned
// unconditionally short of a storage fault.
func (s *TicketService) Open(ctx context.Context, requesterID int64, title, description string) (*domain.Ticket, ReplyOutcome, error) {
	ticket := &domain.Ticket{
		ExternalKey: generateTicketKey(),
		RequesterID: requesterID,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Status:      domain.TicketStatusOpen,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, ReplyOutcome{}, err
	}

	unlock := s.lockTicket(ticket.ID)
	defer unlock()

	outcome, err := s.runTurn(ctx, ticket, ticket.Description, false)
	if err != nil {
		return nil, ReplyOutcome{}, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketOpened,
		EntityID: ticket.ID,
		ActorID:  requesterID,
		Payload: events.TicketOpenedPayload{
			RequesterID: requesterID,
			Title:       ticket.Title,
			Resolved:    outcome.Resolved,
		},
	})
	return ticket, outcome, nil
}

// Reply appends a user follow-up and re-runs the resolution pipeline.
// A follow-up on an escalated ticket still attempts automated
// resolution before going back to the operator queue.
func (s *TicketService) Reply(ctx context.Context, ticketID string, requesterID int64, body string) (ReplyOutcome, error) {
	unlock := s.lockTicket(ticketID)
	defer unlock()

	ticket, err := s.ownedTicket(ctx, ticketID, requesterID)
	if err != nil {
		return ReplyOutcome{}, err
	}
	if ticket.Closed() {
		return ReplyOutcome{}, apperrors.NewTicketClosed(ticketID)
	}

	return s.runTurn(ctx, ticket, strings.TrimSpace(body), true)
}

// Close sets the ticket status to closed. Idempotent; allowed for the
// ticket owner and for operators regardless of current status.
func (s *TicketService) Close(ctx context.Context, ticketID string, actorID int64, operator bool) error {
	unlock := s.lockTicket(ticketID)
	defer unlock()

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	if !operator && ticket.RequesterID != actorID {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	if ticket.Closed() {
		s.ticketLocks.Delete(ticketID)
		return nil
	}

	now := time.Now()
	ticket.Status = domain.TicketStatusClosed
	ticket.ClosedAt = &now
	if err := s.tickets.UpdateStatus(ctx, ticket); err != nil {
		return err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketClosed,
		EntityID: ticket.ID,
		ActorID:  actorID,
		Payload:  events.TicketClosedPayload{ClosedBy: actorID, Operator: operator},
	})
	// The close is committed, so later writers fail fast on status; the
	// lock entry would otherwise accumulate forever.
	s.ticketLocks.Delete(ticketID)
	return nil
}

// OperatorReply appends an operator message to the thread. Status is
// untouched; closing is an explicit separate action.
func (s *TicketService) OperatorReply(ctx context.Context, ticketID string, operatorID int64, body string) error {
	unlock := s.lockTicket(ticketID)
	defer unlock()

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	if ticket.Closed() {
		return apperrors.NewTicketClosed(ticketID)
	}

	msg := &domain.TicketMessage{
		TicketID: ticket.ID,
		Sender:   domain.SenderOperator,
		Body:     strings.TrimSpace(body),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return err
	}
	s.convs.Append(ticket.ID, "assistant", msg.Body)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketMessageAdded,
		EntityID: ticket.ID,
		ActorID:  operatorID,
		Payload: events.TicketMessageAddedPayload{
			MessageID:   msg.ID,
			Sender:      msg.Sender,
			BodyPreview: stringPreview(msg.Body, 120),
		},
	})
	return nil
}

// GetForRequester fetches a ticket with its thread, enforcing
// ownership.
func (s *TicketService) GetForRequester(ctx context.Context, ticketID string, requesterID int64) (*domain.Ticket, []domain.TicketMessage, error) {
	ticket, err := s.ownedTicket(ctx, ticketID, requesterID)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := s.messages.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, err
	}
	return ticket, msgs, nil
}

// ListForRequester returns the requester's tickets.
func (s *TicketService) ListForRequester(ctx context.Context, requesterID int64, limit, offset int) ([]domain.Ticket, error) {
	return s.tickets.ListByRequester(ctx, requesterID, limit, offset)
}

// ListEscalated returns the operator queue.
func (s *TicketService) ListEscalated(ctx context.Context, limit, offset int) ([]domain.Ticket, error) {
	return s.tickets.ListByStatus(ctx, []domain.TicketStatus{domain.TicketStatusEscalated}, limit, offset)
}

// runTurn records the inbound message and resolves it through cache →
// assistant. A provider fault is treated exactly like an assistant
// decline: the turn escalates and the user still gets an explicit
// hand-off, never a raw error.
func (s *TicketService) runTurn(ctx context.Context, ticket *domain.Ticket, text string, followup bool) (ReplyOutcome, error) {
	history := s.convs.Context(ticket.ID, ticket.RequesterID)
	contextFP := s.convs.ContextFingerprint(ticket.ID, ticket.RequesterID)
	problemFP := cache.Fingerprint(text)

	userMsg := &domain.TicketMessage{
		TicketID: ticket.ID,
		Sender:   domain.SenderUser,
		Body:     text,
	}
	if err := s.messages.Create(ctx, userMsg); err != nil {
		return ReplyOutcome{}, err
	}
	s.convs.Append(ticket.ID, "user", text)

	reply, resolved := s.resolve(ctx, text, history, followup, problemFP, contextFP)
	s.convs.RecordKeywords(ticket.RequesterID, cache.ExtractKeywords(text, s.keywordCap))
	s.metrics.RecordPipelineOutcome(resolved)

	if !resolved {
		if err := s.escalate(ctx, ticket); err != nil {
			return ReplyOutcome{}, err
		}
		return ReplyOutcome{TicketID: ticket.ID, Resolved: false}, nil
	}

	assistantMsg := &domain.TicketMessage{
		TicketID: ticket.ID,
		Sender:   domain.SenderAssistant,
		Body:     reply,
	}
	if err := s.messages.Create(ctx, assistantMsg); err != nil {
		return ReplyOutcome{}, err
	}
	s.convs.Append(ticket.ID, "assistant", reply)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAutoResolved,
		EntityID: ticket.ID,
		ActorID:  ticket.RequesterID,
		Payload: events.TicketMessageAddedPayload{
			MessageID:   assistantMsg.ID,
			Sender:      assistantMsg.Sender,
			BodyPreview: stringPreview(reply, 120),
		},
	})
	return ReplyOutcome{TicketID: ticket.ID, Resolved: true, ReplyText: &reply}, nil
}

func (s *TicketService) resolve(ctx context.Context, text string, history []assistant.Message, followup bool, problemFP, contextFP string) (string, bool) {
	if cached, hit := s.replies.Get(problemFP, contextFP); hit {
		s.metrics.RecordCacheLookup(true)
		return cached, true
	}
	s.metrics.RecordCacheLookup(false)

	outcome, err := s.resolver.Resolve(ctx, text, history, followup)
	if err != nil {
		s.metrics.RecordProviderCall(true)
		s.logger.Warn("resolution fell back to escalation", zap.Error(err))
		return "", false
	}
	s.metrics.RecordProviderCall(false)
	if outcome.Escalate {
		return "", false
	}

	s.replies.Set(problemFP, contextFP, outcome.Reply)
	return outcome.Reply, true
}

func (s *TicketService) escalate(ctx context.Context, ticket *domain.Ticket) error {
	ticket.Status = domain.TicketStatusEscalated
	if err := s.tickets.UpdateStatus(ctx, ticket); err != nil {
		return err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketEscalated,
		EntityID: ticket.ID,
		ActorID:  ticket.RequesterID,
		Payload: events.TicketEscalatedPayload{
			RequesterID: ticket.RequesterID,
			Title:       ticket.Title,
			Reason:      "assistant could not resolve",
		},
	})
	return nil
}

func (s *TicketService) ownedTicket(ctx context.Context, ticketID string, requesterID int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil || ticket.RequesterID != requesterID {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

func (s *TicketService) lockTicket(id string) func() {
	v, _ := s.ticketLocks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	cut := max - 3
	if cut < 0 {
		cut = 0
	}
	// Back up to a rune boundary so multi-byte text is never split.
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut] + "..."
}
