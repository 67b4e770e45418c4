package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"journey-circle/internal/domain"
)

// ErrDuplicateRelationship indica que ya existe un vinculo no revocado
// para el par (owner, contact).
var ErrDuplicateRelationship = errors.New("duplicate relationship")

// RelationshipRepository define el contrato de persistencia para vinculos.
type RelationshipRepository interface {
	Create(ctx context.Context, rel domain.SupporterRelationship) error
	GetByID(ctx context.Context, id string) (domain.SupporterRelationship, error)
	GetNonRevoked(ctx context.Context, ownerID, contact string) (domain.SupporterRelationship, error)
	MarkAccepted(ctx context.Context, id, supporterID string, acceptedAt time.Time) (bool, error)
	MarkRevoked(ctx context.Context, id string, revokedAt time.Time) (bool, error)
	ListActiveSupporterIDs(ctx context.Context, ownerID string) ([]string, error)
}

// PgRelationshipRepository implementa RelationshipRepository usando pgxpool.
type PgRelationshipRepository struct {
	pool *pgxpool.Pool
}

func NewPgRelationshipRepository(pool *pgxpool.Pool) *PgRelationshipRepository {
	return &PgRelationshipRepository{pool: pool}
}

// Create inserta el vinculo. La unicidad del par (owner_id, contact) entre
// vinculos no revocados la garantiza un indice parcial:
//
//	CREATE UNIQUE INDEX supporter_relationships_owner_contact_live
//	ON supporter_relationships (owner_id, contact) WHERE state <> 'revoked';
func (r *PgRelationshipRepository) Create(ctx context.Context, rel domain.SupporterRelationship) error {
	const query = `
		INSERT INTO supporter_relationships (id, owner_id, contact, supporter_id, state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	var supporterID interface{}
	if rel.SupporterID != "" {
		supporterID = rel.SupporterID
	}
	_, err := r.pool.Exec(ctx, query,
		rel.ID,
		rel.OwnerID,
		rel.Contact,
		supporterID,
		rel.State,
		rel.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateRelationship
	}
	return err
}

func (r *PgRelationshipRepository) GetByID(ctx context.Context, id string) (domain.SupporterRelationship, error) {
	const query = `
		SELECT id, owner_id, contact, supporter_id, state, created_at, accepted_at, revoked_at
		FROM supporter_relationships
		WHERE id = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *PgRelationshipRepository) GetNonRevoked(ctx context.Context, ownerID, contact string) (domain.SupporterRelationship, error) {
	const query = `
		SELECT id, owner_id, contact, supporter_id, state, created_at, accepted_at, revoked_at
		FROM supporter_relationships
		WHERE owner_id = $1 AND contact = $2 AND state <> $3
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, ownerID, contact, domain.RelationshipRevoked))
}

// MarkAccepted solo transiciona si el vinculo sigue pendiente.
func (r *PgRelationshipRepository) MarkAccepted(ctx context.Context, id, supporterID string, acceptedAt time.Time) (bool, error) {
	const query = `
		UPDATE supporter_relationships
		SET state = $3, supporter_id = $4, accepted_at = $5
		WHERE id = $1 AND state = $2
	`
	tag, err := r.pool.Exec(ctx, query,
		id,
		domain.RelationshipPending,
		domain.RelationshipActive,
		supporterID,
		acceptedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkRevoked solo transiciona si el vinculo no estaba ya revocado.
func (r *PgRelationshipRepository) MarkRevoked(ctx context.Context, id string, revokedAt time.Time) (bool, error) {
	const query = `
		UPDATE supporter_relationships
		SET state = $2, revoked_at = $3
		WHERE id = $1 AND state <> $2
	`
	tag, err := r.pool.Exec(ctx, query, id, domain.RelationshipRevoked, revokedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgRelationshipRepository) ListActiveSupporterIDs(ctx context.Context, ownerID string) ([]string, error) {
	const query = `
		SELECT supporter_id
		FROM supporter_relationships
		WHERE owner_id = $1 AND state = $2 AND supporter_id IS NOT NULL
	`
	rows, err := r.pool.Query(ctx, query, ownerID, domain.RelationshipActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PgRelationshipRepository) scanOne(row pgx.Row) (domain.SupporterRelationship, error) {
	var rel domain.SupporterRelationship
	var supporterID *string
	err := row.Scan(
		&rel.ID,
		&rel.OwnerID,
		&rel.Contact,
		&supporterID,
		&rel.State,
		&rel.CreatedAt,
		&rel.AcceptedAt,
		&rel.RevokedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SupporterRelationship{}, err
	}
	if supporterID != nil {
		rel.SupporterID = *supporterID
	}
	return rel, err
}
