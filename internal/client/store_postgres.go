package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ruconnect/pkg/domain"
	"ruconnect/pkg/platform/sentinel"
	"ruconnect/pkg/ruc"
)

// PostgresStore persists client records in PostgreSQL. The clients
// table carries a unique index on ruc.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, client *Client) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO clients (id, ruc, name, email, phone, registered_by, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, client.ID.String(), client.RUC.String(), client.Name, client.Email, client.Phone,
		client.RegisteredBy.String(), string(client.Status), client.CreatedAt, client.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.ClientID) (*Client, error) {
	return scanClient(s.pool.QueryRow(ctx, `
		SELECT id, ruc, name, email, phone, registered_by, status, created_at, updated_at
		FROM clients
		WHERE id = $1
	`, id.String()))
}

func (s *PostgresStore) FindByRUC(ctx context.Context, taxID ruc.RUC) (*Client, error) {
	return scanClient(s.pool.QueryRow(ctx, `
		SELECT id, ruc, name, email, phone, registered_by, status, created_at, updated_at
		FROM clients
		WHERE ruc = $1
	`, taxID.String()))
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]*Client, error) {
	query := strings.Builder{}
	query.WriteString(`
		SELECT id, ruc, name, email, phone, registered_by, status, created_at, updated_at
		FROM clients
	`)

	var (
		conds []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+q+"%")
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR ruc ILIKE $%d)", len(args), len(args)))
	}
	if len(conds) > 0 {
		query.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	query.WriteString(" ORDER BY created_at DESC, id")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query.WriteString(fmt.Sprintf(" OFFSET $%d", len(args)))
	}

	rows, err := s.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()
	return scanClients(rows)
}

func (s *PostgresStore) Update(ctx context.Context, client *Client) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE clients
		SET name = $2, email = $3, phone = $4, status = $5, updated_at = $6
		WHERE id = $1
	`, client.ID.String(), client.Name, client.Email, client.Phone, string(client.Status), client.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanClient(row pgx.Row) (*Client, error) {
	var (
		client          Client
		rawID           string
		rawRUC          string
		rawRegisteredBy string
		rawStatus       string
	)
	err := row.Scan(&rawID, &rawRUC, &client.Name, &client.Email, &client.Phone,
		&rawRegisteredBy, &rawStatus, &client.CreatedAt, &client.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find client: %w", err)
	}
	id, err := domain.ParseClientID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse stored client id: %w", err)
	}
	registeredBy, err := domain.ParseUserID(rawRegisteredBy)
	if err != nil {
		return nil, fmt.Errorf("parse stored registered_by: %w", err)
	}
	client.ID = id
	client.RUC = ruc.RUC(rawRUC)
	client.RegisteredBy = registeredBy
	client.Status = ClientStatus(rawStatus)
	return &client, nil
}

func scanClients(rows pgx.Rows) ([]*Client, error) {
	clients := make([]*Client, 0)
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return clients, nil
}

// isUniqueViolation matches PostgreSQL error 23505 (unique_violation).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
