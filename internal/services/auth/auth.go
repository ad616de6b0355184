// Package auth реализует проверку учетных данных персонала зала.
//
// Verify используется брокером для аутентификации устройств захвата,
// Login — REST-поверхностью для выдачи JWT.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/santiagoe16/gym-access-broker/internal/lib/jwt"
	"github.com/santiagoe16/gym-access-broker/internal/lib/password"
	"github.com/santiagoe16/gym-access-broker/internal/models"
	"github.com/santiagoe16/gym-access-broker/internal/storage"
)

var (
	// ErrInvalidCredentials — email не найден или пароль не совпал.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrInsufficientPrivilege — учетная запись существует, но роль не дает
	// права аутентифицировать устройство (обычные участники никогда не входят).
	ErrInsufficientPrivilege = errors.New("auth: insufficient privilege")
	// ErrInactiveUser — учетная запись деактивирована.
	ErrInactiveUser = errors.New("auth: inactive user")
)

// UserRepository описывает контракт для чтения учетных записей.
type UserRepository interface {
	// GetUserByEmail возвращает учетную запись по email или storage.ErrUserNotFound.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Service отвечает за проверку учетных данных и выдачу JWT.
type Service struct {
	users    UserRepository
	jwtMaker jwt.Maker
	log      *slog.Logger
}

// NewService создает новый экземпляр Service.
func NewService(users UserRepository, jwtMaker jwt.Maker, log *slog.Logger) *Service {
	return &Service{
		users:    users,
		jwtMaker: jwtMaker,
		log:      log,
	}
}

// Verify проверяет email и пароль сотрудника и возвращает его роль.
//
// Роль проверяется до пароля: участник с ролью user отклоняется как
// ErrInsufficientPrivilege даже при корректном пароле.
func (s *Service) Verify(ctx context.Context, email, rawPassword string) (models.Role, error) {
	user, err := s.verifyUser(ctx, email, rawPassword)
	if err != nil {
		return "", err
	}
	return user.Role, nil
}

// Login проверяет учетные данные и генерирует JWT для REST-поверхности.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (string, models.Role, error) {
	const op = "services.auth.Login"

	user, err := s.verifyUser(ctx, email, rawPassword)
	if err != nil {
		return "", "", err
	}
	token, err := s.jwtMaker.GenerateToken(user.Email, string(user.Role), user.GymID)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	return token, user.Role, nil
}

func (s *Service) verifyUser(ctx context.Context, email, rawPassword string) (*models.User, error) {
	const op = "services.auth.verifyUser"

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !user.Role.IsStaff() {
		return nil, ErrInsufficientPrivilege
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
