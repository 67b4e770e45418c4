package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"journey-circle/internal/domain"
	"journey-circle/internal/repository"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrEmailTaken         = errors.New("email taken")
	ErrMemberNotFound     = errors.New("member not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("rate limited")
)

// MemberService coordina reglas de negocio para miembros.
type MemberService struct {
	logger  *zap.Logger
	members repository.MemberRepository
}

func NewMemberService(logger *zap.Logger, members repository.MemberRepository) *MemberService {
	return &MemberService{
		logger:  logger,
		members: members,
	}
}

type CreateMemberInput struct {
	Email       string
	DisplayName string
	Password    string
}

func (s *MemberService) CreateMember(ctx context.Context, input CreateMemberInput) (domain.Member, error) {
	if s.members == nil {
		return domain.Member{}, errors.New("member service not configured")
	}

	emailAddr := normalizeEmail(input.Email)
	if emailAddr == "" {
		return domain.Member{}, ErrInvalidEmail
	}
	password := strings.TrimSpace(input.Password)
	if password == "" {
		return domain.Member{}, ErrInvalidInput
	}

	_, err := s.members.GetByEmail(ctx, emailAddr)
	if err == nil {
		return domain.Member{}, ErrEmailTaken
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Member{}, err
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Member{}, err
	}

	member := domain.Member{
		ID:             uuid.NewString(),
		Email:          emailAddr,
		DisplayName:    strings.TrimSpace(input.DisplayName),
		CredentialHash: string(hashBytes),
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.members.Create(ctx, member); err != nil {
		return domain.Member{}, err
	}

	return member, nil
}

func (s *MemberService) GetMember(ctx context.Context, id string) (domain.Member, error) {
	if s.members == nil {
		return domain.Member{}, errors.New("member service not configured")
	}
	member, err := s.members.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Member{}, ErrMemberNotFound
	}
	return member, err
}

// RotateCredential reemplaza el hash de credenciales del miembro.
func (s *MemberService) RotateCredential(ctx context.Context, id, newPassword string) error {
	if s.members == nil {
		return errors.New("member service not configured")
	}
	newPassword = strings.TrimSpace(newPassword)
	if newPassword == "" {
		return ErrInvalidInput
	}
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.members.UpdateCredential(ctx, id, string(hashBytes)); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrMemberNotFound
		}
		return err
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
