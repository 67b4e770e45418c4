package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"journey-circle/internal/domain"
)

// MemberRepository define el contrato de persistencia para miembros.
type MemberRepository interface {
	Create(ctx context.Context, member domain.Member) error
	GetByID(ctx context.Context, id string) (domain.Member, error)
	GetByEmail(ctx context.Context, email string) (domain.Member, error)
	UpdateCredential(ctx context.Context, id, credentialHash string) error
}

// PgMemberRepository implementa MemberRepository usando pgxpool.
type PgMemberRepository struct {
	pool *pgxpool.Pool
}

func NewPgMemberRepository(pool *pgxpool.Pool) *PgMemberRepository {
	return &PgMemberRepository{pool: pool}
}

func (r *PgMemberRepository) Create(ctx context.Context, member domain.Member) error {
	const query = `
		INSERT INTO members (id, email, display_name, credential_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		member.ID,
		member.Email,
		member.DisplayName,
		member.CredentialHash,
		member.CreatedAt,
	)
	return err
}

func (r *PgMemberRepository) GetByID(ctx context.Context, id string) (domain.Member, error) {
	const query = `
		SELECT id, email, display_name, credential_hash, created_at
		FROM members
		WHERE id = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *PgMemberRepository) GetByEmail(ctx context.Context, email string) (domain.Member, error) {
	const query = `
		SELECT id, email, display_name, credential_hash, created_at
		FROM members
		WHERE email = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, email))
}

func (r *PgMemberRepository) UpdateCredential(ctx context.Context, id, credentialHash string) error {
	const query = `
		UPDATE members
		SET credential_hash = $2
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, credentialHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgMemberRepository) scanOne(row pgx.Row) (domain.Member, error) {
	var m domain.Member
	err := row.Scan(
		&m.ID,
		&m.Email,
		&m.DisplayName,
		&m.CredentialHash,
		&m.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Member{}, err
	}
	return m, err
}
