// Package directory реализует поиск участников зала для протокола
// регистрации отпечатков, с кешированием профилей.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/santiagoe16/gym-access-broker/internal/lib/sl"
	"github.com/santiagoe16/gym-access-broker/internal/models"
	"github.com/santiagoe16/gym-access-broker/internal/storage"
)

// ErrMemberNotFound возвращается, когда участник не найден в запрошенном зале.
var ErrMemberNotFound = errors.New("directory: member not found")

const cacheTTL = 5 * time.Minute

// MemberRepository описывает контракт чтения участников из хранилища.
type MemberRepository interface {
	// GetMember возвращает активного участника зала или storage.ErrUserNotFound.
	GetMember(ctx context.Context, gymID, userID int64) (*models.User, error)
}

// Cache описывает методы для кэширования профилей.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(key string, value any, expiration time.Duration) error
}

// Service реализует поиск участников с кешированием.
type Service struct {
	repo  MemberRepository
	cache Cache
	log   *slog.Logger
}

// NewService создает новый экземпляр Service.
func NewService(repo MemberRepository, cache Cache, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// FindMember ищет активного участника по строковым идентификаторам из
// протокола. Нечисловые идентификаторы трактуются как отсутствующие записи.
func (s *Service) FindMember(ctx context.Context, gymID, userID string) (*models.User, error) {
	const op = "services.directory.FindMember"

	gid, err := strconv.ParseInt(gymID, 10, 64)
	if err != nil {
		return nil, ErrMemberNotFound
	}
	uid, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return nil, ErrMemberNotFound
	}

	key := fmt.Sprintf("member:%d:%d", gid, uid)

	var cached models.User
	found, err := s.cache.Get(key, &cached)
	if err != nil {
		// ошибки кеша не фатальны, идем в хранилище
		s.log.Warn("member cache read failed", sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	member, err := s.repo.GetMember(ctx, gid, uid)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.cache.Set(key, member, cacheTTL); err != nil {
		s.log.Warn("member cache write failed", sl.Err(err))
	}
	return member, nil
}
