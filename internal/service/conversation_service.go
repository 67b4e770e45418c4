package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"journey-circle/internal/domain"
	"journey-circle/internal/repository"
)

var (
	ErrNotAMember           = errors.New("not a member")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrInvalidRole          = errors.New("invalid role")
)

// SupporterLister deriva la membresia vigente desde el libro de vinculos.
type SupporterLister interface {
	ListSupporterIDs(ctx context.Context, ownerID string) ([]string, error)
}

// ConversationService administra conversaciones y sus mensajes.
// La membresia nunca se materializa: se consulta el libro de vinculos
// en cada lectura y escritura.
type ConversationService struct {
	logger        *zap.Logger
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	ledger        SupporterLister

	mu    sync.Mutex
	locks map[string]*conversationLock
}

// conversationLock serializa appends; refs cuenta los que esperan o
// sostienen el lock para poder descartar la entrada al quedar ociosa.
type conversationLock struct {
	mu   sync.Mutex
	refs int
}

func NewConversationService(
	logger *zap.Logger,
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	ledger SupporterLister,
) *ConversationService {
	return &ConversationService{
		logger:        logger,
		conversations: conversations,
		messages:      messages,
		ledger:        ledger,
		locks:         make(map[string]*conversationLock),
	}
}

func (s *ConversationService) CreateConversation(ctx context.Context, ownerID, title string) (domain.Conversation, error) {
	if s.conversations == nil {
		return domain.Conversation{}, errors.New("conversation service not configured")
	}
	conv := domain.Conversation{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     strings.TrimSpace(title),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return domain.Conversation{}, err
	}
	return conv, nil
}

// PostMessage agrega un mensaje; los appends se serializan por conversacion.
func (s *ConversationService) PostMessage(ctx context.Context, conversationID, authorID, body, role string) (domain.Message, error) {
	if s.conversations == nil || s.messages == nil || s.ledger == nil {
		return domain.Message{}, errors.New("conversation service not configured")
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return domain.Message{}, ErrInvalidInput
	}
	if role != domain.MessageRoleUpdate && role != domain.MessageRoleResponse {
		return domain.Message{}, ErrInvalidRole
	}

	conv, err := s.getConversation(ctx, conversationID)
	if err != nil {
		return domain.Message{}, err
	}
	isOwner, err := s.checkAccess(ctx, conv, authorID)
	if err != nil {
		return domain.Message{}, err
	}
	// El dueno publica updates; los acompanantes responden.
	if isOwner && role != domain.MessageRoleUpdate {
		return domain.Message{}, ErrInvalidRole
	}
	if !isOwner && role != domain.MessageRoleResponse {
		return domain.Message{}, ErrInvalidRole
	}

	lock := s.lockFor(conv.ID)
	lock.mu.Lock()
	defer func() {
		lock.mu.Unlock()
		s.releaseLock(conv.ID, lock)
	}()

	seq, err := s.messages.MaxSeq(ctx, conv.ID)
	if err != nil {
		return domain.Message{}, err
	}

	msg := domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		AuthorID:       authorID,
		Body:           body,
		Role:           role,
		Seq:            seq + 1,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

// ListMessages devuelve los mensajes en orden estable de creacion.
func (s *ConversationService) ListMessages(ctx context.Context, conversationID, requesterID string) ([]domain.Message, error) {
	if s.conversations == nil || s.messages == nil || s.ledger == nil {
		return nil, errors.New("conversation service not configured")
	}

	conv, err := s.getConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if _, err := s.checkAccess(ctx, conv, requesterID); err != nil {
		return nil, err
	}
	return s.messages.ListByConversationID(ctx, conv.ID)
}

func (s *ConversationService) getConversation(ctx context.Context, id string) (domain.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Conversation{}, ErrConversationNotFound
		}
		return domain.Conversation{}, err
	}
	return conv, nil
}

// checkAccess reconsulta el libro de vinculos en cada llamada: revocar a
// un acompanante le corta lectura y escritura de inmediato.
func (s *ConversationService) checkAccess(ctx context.Context, conv domain.Conversation, requesterID string) (bool, error) {
	if requesterID == conv.OwnerID {
		return true, nil
	}
	supporterIDs, err := s.ledger.ListSupporterIDs(ctx, conv.OwnerID)
	if err != nil {
		return false, err
	}
	for _, id := range supporterIDs {
		if id == requesterID {
			return false, nil
		}
	}
	return false, ErrNotAMember
}

func (s *ConversationService) lockFor(conversationID string) *conversationLock {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[conversationID]
	if !ok {
		lock = &conversationLock{}
		s.locks[conversationID] = lock
	}
	lock.refs++
	return lock
}

func (s *ConversationService) releaseLock(conversationID string, lock *conversationLock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(s.locks, conversationID)
	}
}
