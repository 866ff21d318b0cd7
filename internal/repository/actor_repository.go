package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/service-marketplace/internal/model"
)

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

const actorColumns = "id,name,email,contact,role,password_hash,created_at"

// ActorRepo mirrors the 'actors' table.
type ActorRepo struct{ DB *sql.DB }

func NewActorRepo(db *sql.DB) *ActorRepo { return &ActorRepo{DB: db} }

var _ ActorStore = (*ActorRepo)(nil)

// Create inserts the actor.  The caller supplies ID, hash and timestamp.
func (r *ActorRepo) Create(ctx context.Context, a *model.Actor) error {
	a.Email = NormalizeEmail(a.Email)
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO actors (id,name,email,contact,role,password_hash,created_at) VALUES (?,?,?,?,?,?,?)",
		a.ID, a.Name, a.Email, a.Contact, string(a.Role), a.PasswordHash, a.CreatedAt)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	return nil
}

// GetByEmail fetches an actor by normalized email.
func (r *ActorRepo) GetByEmail(ctx context.Context, email string) (model.Actor, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+actorColumns+" FROM actors WHERE email=? LIMIT 1", NormalizeEmail(email))
	return scanActor(row)
}

// GetByID fetches an actor by id.
func (r *ActorRepo) GetByID(ctx context.Context, id string) (model.Actor, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+actorColumns+" FROM actors WHERE id=? LIMIT 1", id)
	return scanActor(row)
}

// GetMany loads several actors in one round trip.
func (r *ActorRepo) GetMany(ctx context.Context, ids []string) (map[string]model.Actor, error) {
	out := make(map[string]model.Actor, len(ids))
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+actorColumns+" FROM actors WHERE id IN ("+placeholders(len(ids))+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		a, err := scanActor(rows)
		if err != nil {
			return nil, err
		}
		out[a.ID] = a
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActor(s rowScanner) (model.Actor, error) {
	var a model.Actor
	var role string
	err := s.Scan(&a.ID, &a.Name, &a.Email, &a.Contact, &role, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Actor{}, ErrNotFound
	}
	if err != nil {
		return model.Actor{}, err
	}
	a.Role = model.Role(role)
	return a, nil
}

// NormalizeEmail lower-cases and trims an email address.  Every backend
// stores and looks up emails in this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// placeholders returns "?,?,?" with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
