package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/linemk/tribal-market/internal/domain/models"
)

const userColumns = "id, email, name, pass_hash, role, is_active, otp_hash, otp_expires_at, created_at, updated_at"

type UserStorage interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	SetOTP(ctx context.Context, id int64, otpHash []byte, expiresAt time.Time) error
	// RegisterOTPFailure считает неверные вводы кода; на limit-й попытке код сгорает
	RegisterOTPFailure(ctx context.Context, id int64, limit int) error
	ResetPassword(ctx context.Context, id int64, passHash []byte) error
	SetActive(ctx context.Context, id int64, active bool) error
	SetRole(ctx context.Context, id int64, role models.Role) error
	ListUsers(ctx context.Context, role *models.Role, page models.Page) ([]*models.User, int, error)
	CountByRole(ctx context.Context) (map[models.Role]int, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserStorage {
	return &userRepository{db: db}
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var otpExpires sql.NullTime
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &user.PassHash, &user.Role, &user.IsActive,
		&user.OTPHash, &otpExpires, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}
	if otpExpires.Valid {
		user.OTPExpiresAt = &otpExpires.Time
	}
	return user, nil
}

// получение уже существующего пользователя
func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *userRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *userRepository) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO users (email, name, pass_hash, role, is_active) VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at",
		user.Email, user.Name, user.PassHash, user.Role, user.IsActive,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if pqCode(err) == codeUniqueViolation {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (r *userRepository) SetOTP(ctx context.Context, id int64, otpHash []byte, expiresAt time.Time) error {
	return r.execOne(ctx, "UPDATE users SET otp_hash = $1, otp_expires_at = $2, otp_attempts = 0, updated_at = NOW() WHERE id = $3", otpHash, expiresAt, id)
}

func (r *userRepository) RegisterOTPFailure(ctx context.Context, id int64, limit int) error {
	query := `
		UPDATE users SET
			otp_attempts = otp_attempts + 1,
			otp_hash = CASE WHEN otp_attempts + 1 >= $2 THEN NULL ELSE otp_hash END,
			otp_expires_at = CASE WHEN otp_attempts + 1 >= $2 THEN NULL ELSE otp_expires_at END,
			updated_at = NOW()
		WHERE id = $1`
	return r.execOne(ctx, query, id, limit)
}

// ResetPassword меняет пароль и сбрасывает одноразовый код
func (r *userRepository) ResetPassword(ctx context.Context, id int64, passHash []byte) error {
	return r.execOne(ctx, "UPDATE users SET pass_hash = $1, otp_hash = NULL, otp_expires_at = NULL, otp_attempts = 0, updated_at = NOW() WHERE id = $2", passHash, id)
}

func (r *userRepository) SetActive(ctx context.Context, id int64, active bool) error {
	return r.execOne(ctx, "UPDATE users SET is_active = $1, updated_at = NOW() WHERE id = $2", active, id)
}

func (r *userRepository) SetRole(ctx context.Context, id int64, role models.Role) error {
	return r.execOne(ctx, "UPDATE users SET role = $1, updated_at = NOW() WHERE id = $2", role, id)
}

func (r *userRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return expectAffected(res, ErrUserNotFound)
}

func (r *userRepository) ListUsers(ctx context.Context, role *models.Role, page models.Page) ([]*models.User, int, error) {
	page = page.Normalize()
	var wb whereBuilder
	if role != nil {
		wb.add("role = $%d", *role)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users"+wb.sql(), wb.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	limit, args := wb.limitOffset(page.Limit, page.Offset())
	rows, err := r.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users"+wb.sql()+" ORDER BY id DESC"+limit, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0, page.Limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *userRepository) CountByRole(ctx context.Context) (map[models.Role]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT role, COUNT(*) FROM users GROUP BY role")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.Role]int)
	for rows.Next() {
		var role models.Role
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			return nil, err
		}
		counts[role] = n
	}
	return counts, rows.Err()
}
