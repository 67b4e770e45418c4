package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"journey-circle/internal/domain"
)

type mockConversationRepo struct {
	items map[string]domain.Conversation
}

func newMockConversationRepo() *mockConversationRepo {
	return &mockConversationRepo{
		items: make(map[string]domain.Conversation),
	}
}

func (m *mockConversationRepo) Create(_ context.Context, conv domain.Conversation) error {
	m.items[conv.ID] = conv
	return nil
}

func (m *mockConversationRepo) GetByID(_ context.Context, id string) (domain.Conversation, error) {
	conv, ok := m.items[id]
	if !ok {
		return domain.Conversation{}, pgx.ErrNoRows
	}
	return conv, nil
}

type mockMessageRepo struct {
	mu       sync.Mutex
	messages []domain.Message
}

func (m *mockMessageRepo) Create(_ context.Context, message domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, message)
	return nil
}

func (m *mockMessageRepo) ListByConversationID(_ context.Context, conversationID string) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Message
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *mockMessageRepo) MaxSeq(_ context.Context, conversationID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var max int64
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID && msg.Seq > max {
			max = msg.Seq
		}
	}
	return max, nil
}

type conversationFixture struct {
	conversations *ConversationService
	relationships *RelationshipService
	members       *mockMemberRepo
}

func newConversationFixture(t *testing.T) conversationFixture {
	t.Helper()
	members := newMockMemberRepo()
	rels := NewRelationshipService(zap.NewNop(), newMockRelationshipRepo(), members, &mockInvitationSender{}, nil)
	convs := NewConversationService(zap.NewNop(), newMockConversationRepo(), &mockMessageRepo{}, rels)
	seedMember(t, members, "owner-1", "owner@example.com", "pw-owner")
	seedMember(t, members, "supp-1", "friend@example.com", "pw-friend")
	return conversationFixture{
		conversations: convs,
		relationships: rels,
		members:       members,
	}
}

func (f conversationFixture) activateSupporter(t *testing.T, contact, supporterID string) {
	t.Helper()
	rel, err := f.relationships.Invite(context.Background(), "owner-1", contact)
	if err != nil {
		t.Fatalf("invite failed: %v", err)
	}
	if _, err := f.relationships.Accept(context.Background(), rel.ID, supporterID); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
}

func TestConversationServicePostMessage_MembershipDerivedFromLedger(t *testing.T) {
	f := newConversationFixture(t)
	conv, err := f.conversations.CreateConversation(context.Background(), "owner-1", "My journey")
	if err != nil {
		t.Fatalf("create conversation failed: %v", err)
	}

	// Antes de aceptar, el invitado no es miembro.
	if _, err := f.conversations.PostMessage(context.Background(), conv.ID, "supp-1", "hi", domain.MessageRoleResponse); !errors.Is(err, ErrNotAMember) {
		t.Fatalf("expected not a member before accept, got %v", err)
	}

	f.activateSupporter(t, "friend@example.com", "supp-1")

	if _, err := f.conversations.PostMessage(context.Background(), conv.ID, "owner-1", "Day 3 update", domain.MessageRoleUpdate); err != nil {
		t.Fatalf("owner post failed: %v", err)
	}
	if _, err := f.conversations.PostMessage(context.Background(), conv.ID, "supp-1", "Thinking of you", domain.MessageRoleResponse); err != nil {
		t.Fatalf("supporter post failed: %v", err)
	}
}

func TestConversationServicePostMessage_RoleByAuthor(t *testing.T) {
	f := newConversationFixture(t)
	conv, err := f.conversations.CreateConversation(context.Background(), "owner-1", "")
	if err != nil {
		t.Fatalf("create conversation failed: %v", err)
	}
	f.activateSupporter(t, "friend@example.com", "supp-1")

	if _, err := f.conversations.PostMessage(context.Background(), conv.ID, "owner-1", "x", domain.MessageRoleResponse); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("owner must post updates, got %v", err)
	}
	if _, err := f.conversations.PostMessage(context.Background(), conv.ID, "supp-1", "x", domain.MessageRoleUpdate); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("supporter must post responses, got %v", err)
	}
	if _, err := f.conversations.PostMessage(context.Background(), conv.ID, "owner-1", "x", "broadcast"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("unknown role must be rejected, got %v", err)
	}
	if _, err := f.conversations.PostMessage(context.Background(), conv.ID, "owner-1", "   ", domain.MessageRoleUpdate); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty body must be rejected, got %v", err)
	}
}

func TestConversationServiceListMessages_StableOrder(t *testing.T) {
	f := newConversationFixture(t)
	conv, err := f.conversations.CreateConversation(context.Background(), "owner-1", "")
	if err != nil {
		t.Fatalf("create conversation failed: %v", err)
	}
	f.activateSupporter(t, "friend@example.com", "supp-1")

	a, err := f.conversations.PostMessage(context.Background(), conv.ID, "owner-1", "A", domain.MessageRoleUpdate)
	if err != nil {
		t.Fatalf("post A failed: %v", err)
	}
	b, err := f.conversations.PostMessage(context.Background(), conv.ID, "supp-1", "B", domain.MessageRoleResponse)
	if err != nil {
		t.Fatalf("post B failed: %v", err)
	}
	if b.Seq != a.Seq+1 {
		t.Fatalf("expected monotonic seq, got %d then %d", a.Seq, b.Seq)
	}

	messages, err := f.conversations.ListMessages(context.Background(), conv.ID, "supp-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(messages) != 2 || messages[0].Body != "A" || messages[1].Body != "B" {
		t.Fatalf("expected [A, B], got %+v", messages)
	}
}

func TestConversationServiceRevokeCutsAccessImmediately(t *testing.T) {
	f := newConversationFixture(t)
	conv, err := f.conversations.CreateConversation(context.Background(), "owner-1", "")
	if err != nil {
		t.Fatalf("create conversation failed: %v", err)
	}

	rel, err := f.relationships.Invite(context.Background(), "owner-1", "friend@example.com")
	if err != nil {
		t.Fatalf("invite failed: %v", err)
	}
	if _, err := f.relationships.Accept(context.Background(), rel.ID, "supp-1"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	if _, err := f.conversations.PostMessage(context.Background(), conv.ID, "owner-1", "Day 3 update", domain.MessageRoleUpdate); err != nil {
		t.Fatalf("owner post failed: %v", err)
	}
	if _, err := f.conversations.PostMessage(context.Background(), conv.ID, "supp-1", "Thinking of you", domain.MessageRoleResponse); err != nil {
		t.Fatalf("supporter post failed: %v", err)
	}

	if _, err := f.relationships.Revoke(context.Background(), rel.ID, "owner-1"); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}

	// La historia previa tambien queda fuera de alcance.
	if _, err := f.conversations.ListMessages(context.Background(), conv.ID, "supp-1"); !errors.Is(err, ErrNotAMember) {
		t.Fatalf("expected revoked supporter to lose read access, got %v", err)
	}
	if _, err := f.conversations.PostMessage(context.Background(), conv.ID, "supp-1", "still here?", domain.MessageRoleResponse); !errors.Is(err, ErrNotAMember) {
		t.Fatalf("expected revoked supporter to lose write access, got %v", err)
	}

	// El dueno sigue viendo todo.
	messages, err := f.conversations.ListMessages(context.Background(), conv.ID, "owner-1")
	if err != nil || len(messages) != 2 {
		t.Fatalf("owner should keep access, got %v (%d messages)", err, len(messages))
	}
}

func TestConversationServiceUnknownConversation(t *testing.T) {
	f := newConversationFixture(t)

	if _, err := f.conversations.ListMessages(context.Background(), "missing", "owner-1"); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected conversation not found, got %v", err)
	}
	if _, err := f.conversations.PostMessage(context.Background(), "missing", "owner-1", "x", domain.MessageRoleUpdate); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected conversation not found, got %v", err)
	}
}

func TestConversationServiceConcurrentAppends(t *testing.T) {
	f := newConversationFixture(t)
	conv, err := f.conversations.CreateConversation(context.Background(), "owner-1", "")
	if err != nil {
		t.Fatalf("create conversation failed: %v", err)
	}

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := f.conversations.PostMessage(context.Background(), conv.ID, "owner-1", "update", domain.MessageRoleUpdate); err != nil {
				t.Errorf("concurrent post failed: %v", err)
			}
		}()
	}
	wg.Wait()

	messages, err := f.conversations.ListMessages(context.Background(), conv.ID, "owner-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(messages) != n {
		t.Fatalf("expected %d messages, got %d", n, len(messages))
	}
	seen := make(map[int64]bool, n)
	for _, msg := range messages {
		if msg.Seq < 1 || msg.Seq > n || seen[msg.Seq] {
			t.Fatalf("expected unique seq in [1,%d], got %d", n, msg.Seq)
		}
		seen[msg.Seq] = true
	}

	f.conversations.mu.Lock()
	pending := len(f.conversations.locks)
	f.conversations.mu.Unlock()
	if pending != 0 {
		t.Fatalf("expected idle lock entries dropped, got %d", pending)
	}
}

func TestConversationServiceLockEntriesDroppedWhenIdle(t *testing.T) {
	f := newConversationFixture(t)
	first, err := f.conversations.CreateConversation(context.Background(), "owner-1", "")
	if err != nil {
		t.Fatalf("create conversation failed: %v", err)
	}
	second, err := f.conversations.CreateConversation(context.Background(), "owner-1", "")
	if err != nil {
		t.Fatalf("create conversation failed: %v", err)
	}

	for _, conv := range []domain.Conversation{first, second} {
		if _, err := f.conversations.PostMessage(context.Background(), conv.ID, "owner-1", "update", domain.MessageRoleUpdate); err != nil {
			t.Fatalf("post failed: %v", err)
		}
	}

	f.conversations.mu.Lock()
	pending := len(f.conversations.locks)
	f.conversations.mu.Unlock()
	if pending != 0 {
		t.Fatalf("expected no lock entries after appends finished, got %d", pending)
	}
}
