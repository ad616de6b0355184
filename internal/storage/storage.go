// Package storage реализует хранилище данных на основе PostgreSQL
// для учетных записей и зашифрованных шаблонов отпечатков. Шаблоны
// сохраняются только в зашифрованном виде: открытый текст до этого слоя
// не доходит.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/santiagoe16/gym-access-broker/internal/models"
)

// ErrUserNotFound возвращается, когда учетная запись не найдена
// или не видна в запрошенном зале.
var ErrUserNotFound = errors.New("storage: user not found")

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// GetUserByEmail возвращает учетную запись по email.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"

	query := `SELECT id, email, full_name, hashed_password, role, gym_id, is_active
			  FROM users WHERE email = $1`
	row := s.DB.QueryRowContext(ctx, query, email)

	var user models.User
	err := row.Scan(&user.ID, &user.Email, &user.FullName, &user.PasswordHash,
		&user.Role, &user.GymID, &user.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}

// GetMember возвращает активного участника зала по идентификатору.
// Учетные записи персонала и участники других залов не видны.
func (s *Storage) GetMember(ctx context.Context, gymID, userID int64) (*models.User, error) {
	const op = "storage.GetMember"

	query := `SELECT id, email, full_name, hashed_password, role, gym_id, is_active
			  FROM users
			  WHERE id = $1 AND gym_id = $2 AND role = 'user' AND is_active`
	row := s.DB.QueryRowContext(ctx, query, userID, gymID)

	var user models.User
	err := row.Scan(&user.ID, &user.Email, &user.FullName, &user.PasswordHash,
		&user.Role, &user.GymID, &user.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}

// SaveTemplate сохраняет зашифрованный шаблон для пары (участник, палец).
// Повторное сохранение перезаписывает предыдущий шаблон.
func (s *Storage) SaveTemplate(ctx context.Context, userID int64, finger int, ciphertext []byte) error {
	const op = "storage.SaveTemplate"

	query := `INSERT INTO fingerprint_templates (user_id, finger, template, updated_at)
			  VALUES ($1, $2, $3, now())
			  ON CONFLICT (user_id, finger)
			  DO UPDATE SET template = EXCLUDED.template, updated_at = now()`
	if _, err := s.DB.ExecContext(ctx, query, userID, finger, ciphertext); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListTemplates возвращает все зашифрованные шаблоны участников зала,
// упорядоченные по идентификатору участника и слоту пальца.
func (s *Storage) ListTemplates(ctx context.Context, gymID int64) ([]*models.StoredTemplate, error) {
	const op = "storage.ListTemplates"

	query := `SELECT u.id, u.full_name, t.finger, t.template
			  FROM fingerprint_templates t
			  JOIN users u ON u.id = t.user_id
			  WHERE u.gym_id = $1 AND u.role = 'user'
			  ORDER BY u.id, t.finger`
	rows, err := s.DB.QueryContext(ctx, query, gymID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []*models.StoredTemplate
	for rows.Next() {
		var tpl models.StoredTemplate
		if err := rows.Scan(&tpl.UserID, &tpl.FullName, &tpl.Finger, &tpl.Ciphertext); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
