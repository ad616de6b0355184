package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/santiagoe16/gym-access-broker/internal/migrations"
	"github.com/santiagoe16/gym-access-broker/internal/models"
)

func setupStorage(t *testing.T) *Storage {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	st, err := New(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { st.DB.Close() })

	migrationsPath, err := filepath.Abs("../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(st.DB, migrationsPath))

	return st
}

func insertUser(t *testing.T, st *Storage, email, fullName, role string, gymID int64, active bool) int64 {
	t.Helper()

	var id int64
	err := st.DB.QueryRow(`
		INSERT INTO users (email, full_name, hashed_password, role, gym_id, is_active)
		VALUES ($1, $2, 'x', $3, $4, $5)
		RETURNING id`,
		email, fullName, role, gymID, active).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestStorage_GetUserByEmail(t *testing.T) {
	st := setupStorage(t)
	ctx := context.Background()

	insertUser(t, st, "trainer@gym.com", "Ana Torres", "trainer", 1, true)

	user, err := st.GetUserByEmail(ctx, "trainer@gym.com")
	require.NoError(t, err)
	assert.Equal(t, "Ana Torres", user.FullName)
	assert.Equal(t, models.RoleTrainer, user.Role)
	assert.Equal(t, int64(1), user.GymID)

	_, err = st.GetUserByEmail(ctx, "nobody@gym.com")
	assert.True(t, errors.Is(err, ErrUserNotFound))
}

func TestStorage_GetMember(t *testing.T) {
	st := setupStorage(t)
	ctx := context.Background()

	memberID := insertUser(t, st, "member@gym.com", "Luis Díaz", "user", 1, true)
	trainerID := insertUser(t, st, "trainer@gym.com", "Ana Torres", "trainer", 1, true)
	inactiveID := insertUser(t, st, "inactive@gym.com", "Mario Ruiz", "user", 1, false)

	member, err := st.GetMember(ctx, 1, memberID)
	require.NoError(t, err)
	assert.Equal(t, "Luis Díaz", member.FullName)

	// участник другого зала не виден
	_, err = st.GetMember(ctx, 2, memberID)
	assert.True(t, errors.Is(err, ErrUserNotFound))

	// персонал не выдается как участник
	_, err = st.GetMember(ctx, 1, trainerID)
	assert.True(t, errors.Is(err, ErrUserNotFound))

	// неактивные участники не выдаются
	_, err = st.GetMember(ctx, 1, inactiveID)
	assert.True(t, errors.Is(err, ErrUserNotFound))
}

func TestStorage_SaveTemplateOverwrites(t *testing.T) {
	st := setupStorage(t)
	ctx := context.Background()

	memberID := insertUser(t, st, "member@gym.com", "Luis Díaz", "user", 1, true)

	require.NoError(t, st.SaveTemplate(ctx, memberID, models.FingerPrimary, []byte("first")))
	require.NoError(t, st.SaveTemplate(ctx, memberID, models.FingerPrimary, []byte("second")))
	require.NoError(t, st.SaveTemplate(ctx, memberID, models.FingerSecondary, []byte("other")))

	templates, err := st.ListTemplates(ctx, 1)
	require.NoError(t, err)
	require.Len(t, templates, 2)
	assert.Equal(t, []byte("second"), templates[0].Ciphertext)
	assert.Equal(t, models.FingerPrimary, templates[0].Finger)
	assert.Equal(t, []byte("other"), templates[1].Ciphertext)
}

func TestStorage_ListTemplatesScopedToGym(t *testing.T) {
	st := setupStorage(t)
	ctx := context.Background()

	firstID := insertUser(t, st, "m1@gym.com", "Luis Díaz", "user", 1, true)
	secondID := insertUser(t, st, "m2@gym.com", "Eva Marín", "user", 2, true)

	require.NoError(t, st.SaveTemplate(ctx, firstID, models.FingerPrimary, []byte("one")))
	require.NoError(t, st.SaveTemplate(ctx, secondID, models.FingerPrimary, []byte("two")))

	templates, err := st.ListTemplates(ctx, 1)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, firstID, templates[0].UserID)
	assert.Equal(t, "Luis Díaz", templates[0].FullName)
}
