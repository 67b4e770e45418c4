package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"journey-circle/internal/domain"
	"journey-circle/internal/email"
	"journey-circle/internal/repository"
)

var (
	ErrDuplicateInvitation  = errors.New("duplicate invitation")
	ErrNotAuthorized        = errors.New("not authorized")
	ErrInvalidState         = errors.New("invalid state")
	ErrRelationshipNotFound = errors.New("relationship not found")
)

// RelationshipService administra el ciclo de vida de los vinculos de apoyo.
type RelationshipService struct {
	logger        *zap.Logger
	relationships repository.RelationshipRepository
	members       repository.MemberRepository
	emailSender   email.Sender
	limiter       RateLimiter
}

func NewRelationshipService(
	logger *zap.Logger,
	relationships repository.RelationshipRepository,
	members repository.MemberRepository,
	emailSender email.Sender,
	limiter RateLimiter,
) *RelationshipService {
	return &RelationshipService{
		logger:        logger,
		relationships: relationships,
		members:       members,
		emailSender:   emailSender,
		limiter:       limiter,
	}
}

// Invite crea un vinculo pendiente hacia el contacto indicado.
func (s *RelationshipService) Invite(ctx context.Context, ownerID, contact string) (domain.SupporterRelationship, error) {
	if s.relationships == nil || s.members == nil {
		return domain.SupporterRelationship{}, errors.New("relationship service not configured")
	}

	contact = normalizeEmail(contact)
	if contact == "" {
		return domain.SupporterRelationship{}, ErrInvalidEmail
	}

	if s.limiter != nil && !s.limiter.Allow("invite:"+ownerID) {
		return domain.SupporterRelationship{}, ErrRateLimited
	}

	owner, err := s.members.GetByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SupporterRelationship{}, ErrMemberNotFound
		}
		return domain.SupporterRelationship{}, err
	}
	if contact == owner.Email {
		return domain.SupporterRelationship{}, ErrInvalidInput
	}

	_, err = s.relationships.GetNonRevoked(ctx, ownerID, contact)
	if err == nil {
		return domain.SupporterRelationship{}, ErrDuplicateInvitation
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.SupporterRelationship{}, err
	}

	rel := domain.SupporterRelationship{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Contact:   contact,
		State:     domain.RelationshipPending,
		CreatedAt: time.Now().UTC(),
	}
	// La consulta previa es solo el camino rapido: dos invitaciones
	// concurrentes pueden pasarla a la vez. El indice unico parcial del
	// almacen decide, y el insert perdedor vuelve como duplicado.
	if err := s.relationships.Create(ctx, rel); err != nil {
		if errors.Is(err, repository.ErrDuplicateRelationship) {
			return domain.SupporterRelationship{}, ErrDuplicateInvitation
		}
		return domain.SupporterRelationship{}, err
	}

	// La entrega del correo es best effort; el vinculo ya quedo registrado.
	if s.emailSender != nil {
		if err := s.emailSender.SendSupporterInvitation(ctx, contact, owner.DisplayName, rel.ID); err != nil && s.logger != nil {
			s.logger.Warn("send invitation email failed", zap.Error(err), zap.String("relationship_id", rel.ID))
		}
	}

	return rel, nil
}

// Accept transiciona pending -> active; solo el contacto invitado puede hacerlo.
func (s *RelationshipService) Accept(ctx context.Context, relationshipID, actingID string) (domain.SupporterRelationship, error) {
	if s.relationships == nil || s.members == nil {
		return domain.SupporterRelationship{}, errors.New("relationship service not configured")
	}

	rel, err := s.relationships.GetByID(ctx, relationshipID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SupporterRelationship{}, ErrRelationshipNotFound
		}
		return domain.SupporterRelationship{}, err
	}

	acting, err := s.members.GetByID(ctx, actingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SupporterRelationship{}, ErrNotAuthorized
		}
		return domain.SupporterRelationship{}, err
	}
	if actingID == rel.OwnerID || normalizeEmail(acting.Email) != rel.Contact {
		return domain.SupporterRelationship{}, ErrNotAuthorized
	}
	if rel.State != domain.RelationshipPending {
		return domain.SupporterRelationship{}, ErrInvalidState
	}

	acceptedAt := time.Now().UTC()
	ok, err := s.relationships.MarkAccepted(ctx, rel.ID, actingID, acceptedAt)
	if err != nil {
		return domain.SupporterRelationship{}, err
	}
	if !ok {
		return domain.SupporterRelationship{}, ErrInvalidState
	}

	rel.State = domain.RelationshipActive
	rel.SupporterID = actingID
	rel.AcceptedAt = &acceptedAt
	return rel, nil
}

// Revoke transiciona a revoked; solo el miembro que invito puede hacerlo.
func (s *RelationshipService) Revoke(ctx context.Context, relationshipID, actingID string) (domain.SupporterRelationship, error) {
	if s.relationships == nil {
		return domain.SupporterRelationship{}, errors.New("relationship service not configured")
	}

	rel, err := s.relationships.GetByID(ctx, relationshipID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SupporterRelationship{}, ErrRelationshipNotFound
		}
		return domain.SupporterRelationship{}, err
	}
	if rel.OwnerID != actingID {
		return domain.SupporterRelationship{}, ErrNotAuthorized
	}
	if rel.State == domain.RelationshipRevoked {
		return domain.SupporterRelationship{}, ErrInvalidState
	}

	revokedAt := time.Now().UTC()
	ok, err := s.relationships.MarkRevoked(ctx, rel.ID, revokedAt)
	if err != nil {
		return domain.SupporterRelationship{}, err
	}
	if !ok {
		return domain.SupporterRelationship{}, ErrInvalidState
	}

	rel.State = domain.RelationshipRevoked
	rel.RevokedAt = &revokedAt
	return rel, nil
}

// ListSupporterIDs devuelve los acompanantes activos del miembro.
func (s *RelationshipService) ListSupporterIDs(ctx context.Context, ownerID string) ([]string, error) {
	if s.relationships == nil {
		return nil, errors.New("relationship service not configured")
	}
	return s.relationships.ListActiveSupporterIDs(ctx, ownerID)
}
