package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/complaintdesk/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// Postgres stores both partitions in shared tables keyed by workflow.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to databaseURL and verifies the connection.
func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (s *Postgres) CountAdmins(ctx context.Context, workflow model.Workflow) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM admins WHERE workflow = $1`, string(workflow)).Scan(&n)
	return n, err
}

func (s *Postgres) CreateAdmin(ctx context.Context, admin *model.Admin) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO admins (workflow, id, email, name, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		string(admin.Workflow), admin.ID, admin.Email, admin.Name, admin.PasswordHash, admin.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicate
	}
	return err
}

func (s *Postgres) AdminByID(ctx context.Context, workflow model.Workflow, id string) (*model.Admin, error) {
	return s.getAdmin(ctx, `
		SELECT id, email, name, password_hash, created_at
		FROM admins WHERE workflow = $1 AND id = $2`, workflow, id)
}

func (s *Postgres) AdminByEmail(ctx context.Context, workflow model.Workflow, email string) (*model.Admin, error) {
	return s.getAdmin(ctx, `
		SELECT id, email, name, password_hash, created_at
		FROM admins WHERE workflow = $1 AND email = $2`, workflow, email)
}

func (s *Postgres) getAdmin(ctx context.Context, query string, workflow model.Workflow, key string) (*model.Admin, error) {
	a := &model.Admin{Workflow: workflow}
	err := s.pool.QueryRow(ctx, query, string(workflow), key).
		Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Postgres) CreateComplaint(ctx context.Context, c *model.Complaint) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO complaints (workflow, id, name, roll_number, stream, phone, email,
			complaint, status, created_at, lab_number, photo_base64)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		string(c.Workflow), c.ID, c.Name, c.RollNumber, c.Stream, c.Phone, c.Email,
		c.Body, c.Status, c.CreatedAt, c.LabNumber, c.Photo,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicate
	}
	return err
}

const complaintColumns = `id, name, roll_number, stream, phone, email, complaint,
	status, created_at, lab_number, photo_base64`

func scanComplaint(row pgx.Row, workflow model.Workflow) (model.Complaint, error) {
	c := model.Complaint{Workflow: workflow}
	err := row.Scan(&c.ID, &c.Name, &c.RollNumber, &c.Stream, &c.Phone, &c.Email, &c.Body,
		&c.Status, &c.CreatedAt, &c.LabNumber, &c.Photo)
	c.CreatedAt = c.CreatedAt.UTC()
	return c, err
}

func (s *Postgres) ComplaintByID(ctx context.Context, workflow model.Workflow, id string) (*model.Complaint, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+complaintColumns+` FROM complaints WHERE workflow = $1 AND id = $2`, string(workflow), id)
	c, err := scanComplaint(row, workflow)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Postgres) UpdateComplaintStatus(ctx context.Context, workflow model.Workflow, id, status string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE complaints SET status = $3 WHERE workflow = $1 AND id = $2`, string(workflow), id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) ListComplaints(ctx context.Context, workflow model.Workflow, limit int) ([]model.Complaint, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+complaintColumns+`
		FROM complaints WHERE workflow = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, string(workflow), clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Complaint, 0)
	for rows.Next() {
		c, err := scanComplaint(rows, workflow)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Postgres) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Postgres) Close(context.Context) error {
	s.pool.Close()
	return nil
}
