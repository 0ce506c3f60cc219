package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// fakeStore is the shared in-memory backing for every fake repository,
// standing in for the database in service tests.
type fakeStore struct {
	mu sync.Mutex

	tenants       map[string]*domain.Tenant
	tenantDomains map[string]string
	users         map[string]*domain.User
	tickets       map[string]*domain.Ticket
	messages      []*domain.Message
	participants  []*domain.TicketParticipant
	secureKeys    map[string]*domain.SecureKey
	settings      map[string]string

	seq int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tenants:       make(map[string]*domain.Tenant),
		tenantDomains: make(map[string]string),
		users:         make(map[string]*domain.User),
		tickets:       make(map[string]*domain.Ticket),
		secureKeys:    make(map[string]*domain.SecureKey),
		settings:      make(map[string]string),
	}
}

func (s *fakeStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *fakeStore) repositories() *repository.Repositories {
	return &repository.Repositories{
		Tenants:      &fakeTenantRepo{store: s},
		Users:        &fakeUserRepo{store: s},
		Tickets:      &fakeTicketRepo{store: s},
		Messages:     &fakeMessageRepo{store: s},
		Participants: &fakeParticipantRepo{store: s},
		SecureKeys:   &fakeSecureKeyRepo{store: s},
		Settings:     &fakeSettingsRepo{store: s},
	}
}

// messagesFor returns thread messages of one ticket in insertion order.
func (s *fakeStore) messagesFor(ticketID string) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.Message
	for _, m := range s.messages {
		if m.TicketID == ticketID {
			result = append(result, *m)
		}
	}
	return result
}

// fakeUnitOfWork runs the function against the shared store without any
// transactional isolation; service tests assert outcomes, not rollbacks.
type fakeUnitOfWork struct {
	store *fakeStore
}

func (u *fakeUnitOfWork) WithinTx(_ context.Context, fn func(r *repository.Repositories) error) error {
	return fn(u.store.repositories())
}

// recordingDispatcher captures published events for assertions.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) byType(t events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var result []events.Event
	for _, e := range d.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// recordingSender captures outbound mail.
type recordingSender struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

type sentMail struct {
	Recipients []string
	Subject    string
	Body       string
}

func (s *recordingSender) Send(_ context.Context, recipients []string, subject, body string) EmailResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMail{Recipients: recipients, Subject: subject, Body: body})
	if s.fail {
		return EmailResult{Success: false, Error: "send failed", RequestID: "req-1"}
	}
	return EmailResult{Success: true, RequestID: "req-1"}
}

// --- tenants ---

type fakeTenantRepo struct {
	store *fakeStore
}

func (r *fakeTenantRepo) Create(_ context.Context, tenant *domain.Tenant) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	tenant.ID = r.store.nextID("tenant")
	tenant.CreatedAt = time.Now()
	copied := *tenant
	r.store.tenants[tenant.ID] = &copied
	return nil
}

func (r *fakeTenantRepo) Update(_ context.Context, tenant *domain.Tenant) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.tenants[tenant.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *tenant
	r.store.tenants[tenant.ID] = &copied
	return nil
}

func (r *fakeTenantRepo) GetByID(_ context.Context, id string) (*domain.Tenant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	tenant, ok := r.store.tenants[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *tenant
	return &copied, nil
}

func (r *fakeTenantRepo) GetBySlug(_ context.Context, slug string) (*domain.Tenant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, tenant := range r.store.tenants {
		if tenant.Slug == slug {
			copied := *tenant
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTenantRepo) List(_ context.Context) ([]domain.Tenant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.Tenant
	for _, tenant := range r.store.tenants {
		result = append(result, *tenant)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *fakeTenantRepo) FindActiveByDomain(_ context.Context, emailDomain string) (*domain.Tenant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	tenantID, ok := r.store.tenantDomains[strings.ToLower(emailDomain)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	tenant, ok := r.store.tenants[tenantID]
	if !ok || !tenant.IsActive {
		return nil, pgx.ErrNoRows
	}
	copied := *tenant
	return &copied, nil
}

func (r *fakeTenantRepo) DomainOwner(_ context.Context, emailDomain string) (*string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	tenantID, ok := r.store.tenantDomains[strings.ToLower(emailDomain)]
	if !ok {
		return nil, nil
	}
	return &tenantID, nil
}

func (r *fakeTenantRepo) AddDomain(_ context.Context, tenantID, emailDomain string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.tenantDomains[strings.ToLower(emailDomain)] = tenantID
	return nil
}

func (r *fakeTenantRepo) RemoveDomain(_ context.Context, tenantID, emailDomain string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := strings.ToLower(emailDomain)
	if owner, ok := r.store.tenantDomains[key]; !ok || owner != tenantID {
		return pgx.ErrNoRows
	}
	delete(r.store.tenantDomains, key)
	return nil
}

func (r *fakeTenantRepo) ListDomains(_ context.Context, tenantID string) ([]domain.TenantDomain, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.TenantDomain
	for d, owner := range r.store.tenantDomains {
		if owner == tenantID {
			result = append(result, domain.TenantDomain{TenantID: tenantID, Domain: d})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Domain < result[j].Domain })
	return result, nil
}

// --- users ---

type fakeUserRepo struct {
	store *fakeStore
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	user.ID = r.store.nextID("user")
	user.Email = strings.ToLower(user.Email)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	r.store.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	user.UpdatedAt = time.Now()
	copied := *user
	r.store.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.store.users, id)
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	user, ok := r.store.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	email = strings.ToLower(email)
	for _, user := range r.store.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) ListByTenant(_ context.Context, tenantID string) ([]domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.User
	for _, user := range r.store.users {
		if user.BelongsTo(tenantID) {
			result = append(result, *user)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *fakeUserRepo) ListInternal(_ context.Context) ([]domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.User
	for _, user := range r.store.users {
		if user.Role.IsInternal() {
			result = append(result, *user)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *fakeUserRepo) AgentLoads(_ context.Context) ([]repository.AgentLoad, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	loads := make(map[string]int)
	for _, user := range r.store.users {
		if user.Role == domain.RoleAgent && user.IsActive {
			loads[user.ID] = 0
		}
	}
	for _, ticket := range r.store.tickets {
		if ticket.AssignedTo == nil {
			continue
		}
		if ticket.Status != domain.TicketStatusOpen && ticket.Status != domain.TicketStatusInProgress {
			continue
		}
		if _, ok := loads[*ticket.AssignedTo]; ok {
			loads[*ticket.AssignedTo]++
		}
	}
	result := make([]repository.AgentLoad, 0, len(loads))
	for id, open := range loads {
		result = append(result, repository.AgentLoad{UserID: id, Open: open})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Open != result[j].Open {
			return result[i].Open < result[j].Open
		}
		return result[i].UserID < result[j].UserID
	})
	return result, nil
}

// --- tickets ---

type fakeTicketRepo struct {
	store *fakeStore
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	ticket.ID = r.store.nextID("ticket")
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	copied := *ticket
	r.store.tickets[ticket.ID] = &copied
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	copied := *ticket
	r.store.tickets[ticket.ID] = &copied
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	ticket, ok := r.store.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var result []domain.Ticket
	for _, ticket := range r.store.tickets {
		if filter.TenantID != nil && ticket.TenantID != *filter.TenantID {
			continue
		}
		if filter.AssignedTo != nil && (ticket.AssignedTo == nil || *ticket.AssignedTo != *filter.AssignedTo) {
			continue
		}
		if filter.VisibleTo != nil && !r.visibleTo(ticket, *filter.VisibleTo) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, ticket.Priority) {
			continue
		}
		if filter.SearchTerm != nil {
			needle := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
			if needle != "" &&
				!strings.Contains(strings.ToLower(ticket.Title), needle) &&
				!strings.Contains(strings.ToLower(ticket.Description), needle) {
				continue
			}
		}
		result = append(result, *ticket)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *fakeTicketRepo) visibleTo(ticket *domain.Ticket, userID string) bool {
	if ticket.CreatedBy == userID {
		return true
	}
	for _, p := range r.store.participants {
		if p.TicketID == ticket.ID && p.UserID == userID {
			return true
		}
	}
	return false
}

func (r *fakeTicketRepo) ListPendingSince(_ context.Context, cutoff time.Time) ([]domain.Ticket, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.store.tickets {
		if ticket.Status == domain.TicketStatusPending && ticket.UpdatedAt.Before(cutoff) {
			result = append(result, *ticket)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *fakeTicketRepo) CountByCreator(_ context.Context, userID string) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	count := 0
	for _, ticket := range r.store.tickets {
		if ticket.CreatedBy == userID {
			count++
		}
	}
	return count, nil
}

func (r *fakeTicketRepo) ClearAssignee(_ context.Context, userID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, ticket := range r.store.tickets {
		if ticket.AssignedTo != nil && *ticket.AssignedTo == userID {
			ticket.AssignedTo = nil
		}
	}
	return nil
}

func containsStatus(haystack []domain.TicketStatus, needle domain.TicketStatus) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func containsPriority(haystack []domain.TicketPriority, needle domain.TicketPriority) bool {
	for _, p := range haystack {
		if p == needle {
			return true
		}
	}
	return false
}

// --- messages ---

type fakeMessageRepo struct {
	store *fakeStore
}

func (r *fakeMessageRepo) Create(_ context.Context, message *domain.Message) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	message.ID = r.store.nextID("msg")
	message.CreatedAt = time.Now()
	copied := *message
	r.store.messages = append(r.store.messages, &copied)
	return nil
}

func (r *fakeMessageRepo) ListByTicket(_ context.Context, ticketID string, includeInternal bool) ([]domain.Message, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.Message
	for _, m := range r.store.messages {
		if m.TicketID != ticketID {
			continue
		}
		if m.IsInternal && !includeInternal {
			continue
		}
		result = append(result, *m)
	}
	return result, nil
}

func (r *fakeMessageRepo) DeleteByUser(_ context.Context, userID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	kept := r.store.messages[:0]
	for _, m := range r.store.messages {
		if m.UserID != userID {
			kept = append(kept, m)
		}
	}
	r.store.messages = kept
	return nil
}

// --- participants ---

type fakeParticipantRepo struct {
	store *fakeStore
}

func (r *fakeParticipantRepo) Add(_ context.Context, participant *domain.TicketParticipant) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, p := range r.store.participants {
		if p.TicketID == participant.TicketID && p.UserID == participant.UserID {
			return nil
		}
	}
	participant.ID = r.store.nextID("part")
	participant.CreatedAt = time.Now()
	copied := *participant
	r.store.participants = append(r.store.participants, &copied)
	return nil
}

func (r *fakeParticipantRepo) Remove(_ context.Context, ticketID, userID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	kept := r.store.participants[:0]
	found := false
	for _, p := range r.store.participants {
		if p.TicketID == ticketID && p.UserID == userID {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	r.store.participants = kept
	if !found {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *fakeParticipantRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketParticipant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.TicketParticipant
	for _, p := range r.store.participants {
		if p.TicketID == ticketID {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (r *fakeParticipantRepo) Exists(_ context.Context, ticketID, userID string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, p := range r.store.participants {
		if p.TicketID == ticketID && p.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeParticipantRepo) DeleteByUser(_ context.Context, userID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	kept := r.store.participants[:0]
	for _, p := range r.store.participants {
		if p.UserID != userID {
			kept = append(kept, p)
		}
	}
	r.store.participants = kept
	return nil
}

// --- secure keys ---

type fakeSecureKeyRepo struct {
	store *fakeStore
}

func (r *fakeSecureKeyRepo) Create(_ context.Context, key *domain.SecureKey) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key.ID = r.store.nextID("key")
	key.CreatedAt = time.Now()
	copied := *key
	r.store.secureKeys[key.ID] = &copied
	return nil
}

func (r *fakeSecureKeyRepo) GetByID(_ context.Context, id string) (*domain.SecureKey, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key, ok := r.store.secureKeys[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *key
	return &copied, nil
}

func (r *fakeSecureKeyRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.SecureKey, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.SecureKey
	for _, key := range r.store.secureKeys {
		if key.TicketID == ticketID {
			result = append(result, *key)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *fakeSecureKeyRepo) Delete(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.secureKeys[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.store.secureKeys, id)
	return nil
}

// --- settings ---

type fakeSettingsRepo struct {
	store *fakeStore
}

func (r *fakeSettingsRepo) Get(_ context.Context, key string) (string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	value, ok := r.store.settings[key]
	if !ok {
		return "", pgx.ErrNoRows
	}
	return value, nil
}

func (r *fakeSettingsRepo) Set(_ context.Context, key, value string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.settings[key] = value
	return nil
}

func (r *fakeSettingsRepo) All(_ context.Context) (map[string]string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	result := make(map[string]string, len(r.store.settings))
	for k, v := range r.store.settings {
		result[k] = v
	}
	return result, nil
}

// assertStatus fails the test unless err is a DomainError with the
// wanted HTTP status.
func assertStatus(t *testing.T, err error, want int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with status %d, got nil", want)
	}
	var derr *apperrors.DomainError
	if !errors.As(err, &derr) {
		t.Fatalf("expected DomainError, got %T: %v", err, err)
	}
	if derr.HTTPStatus != want {
		t.Fatalf("status = %d (%s), want %d", derr.HTTPStatus, derr.Code, want)
	}
}
