package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ali123/ali123/types"
	"golang.org/x/crypto/bcrypt"
)

type UserStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewUserStore(db *sql.DB, dialect Dialect) *UserStore {
	return &UserStore{db: db, dialect: dialect}
}

func (r *UserStore) Create(ctx context.Context, username, password string) (int64, error) {
	if username == "" || password == "" {
		return 0, errors.New("username and password are required")
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}
	query := r.dialect.Rebind(`
		INSERT INTO api_users (username, password) VALUES (?, ?)
		ON CONFLICT (username) DO UPDATE SET password = excluded.password
		RETURNING id`)
	var id int64
	if err := r.db.QueryRowContext(ctx, query, username, string(hashedPassword)).Scan(&id); err != nil {
		return 0, fmt.Errorf("create user %s: %w", username, err)
	}
	return id, nil
}

// Find returns nil without error when the user does not exist or the password does not match.
func (r *UserStore) Find(ctx context.Context, username, password string) (*types.User, error) {
	query := r.dialect.Rebind(`SELECT id, username, password FROM api_users WHERE username = ?`)
	user := &types.User{}
	err := r.db.QueryRowContext(ctx, query, username).Scan(&user.ID, &user.Username, &user.Password)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, nil
	}
	user.Password = ""
	return user, nil
}

func (r *UserStore) FindByUsername(ctx context.Context, username string) (*types.User, error) {
	query := r.dialect.Rebind(`SELECT id, username FROM api_users WHERE username = ?`)
	user := &types.User{}
	err := r.db.QueryRowContext(ctx, query, username).Scan(&user.ID, &user.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (r *UserStore) Delete(ctx context.Context, username string) error {
	query := r.dialect.Rebind(`DELETE FROM api_users WHERE username = ?`)
	result, err := r.db.ExecContext(ctx, query, username)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return errors.New("no user found to delete")
	}
	return nil
}
