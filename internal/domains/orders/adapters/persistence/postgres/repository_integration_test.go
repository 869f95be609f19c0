//go:build integration
// +build integration

// To enable gopls support for this file, add the following to your VSCode settings.json:
// "gopls": {
//   "buildFlags": ["-tags=integration"]
// }

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	orderspostgres "github.com/Apurer/photo-orders/internal/domains/orders/adapters/persistence/postgres"
	"github.com/Apurer/photo-orders/internal/domains/orders/domain"
	"github.com/Apurer/photo-orders/internal/domains/orders/ports"
	"github.com/Apurer/photo-orders/internal/platform/migrations"
)

func setupPostgresContainer(t *testing.T) (*gorm.DB, func()) {
	ctx := context.Background()

	pgContainer, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcpostgres.WithDatabase("orders_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// TranslateError matters here: the repository maps gorm.ErrDuplicatedKey
	// from the pending-email index onto ports.ErrDuplicatePending.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, migrations.Run(db))

	cleanup := func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		_ = pgContainer.Terminate(ctx)
	}
	return db, cleanup
}

func newAwaitingOrder(t *testing.T, email string) *domain.Order {
	t.Helper()
	order, err := domain.NewOrder(email, domain.PackageBasic)
	require.NoError(t, err)
	return order
}

func TestRepository_InsertAndGet(t *testing.T) {
	db, cleanup := setupPostgresContainer(t)
	defer cleanup()
	repo := orderspostgres.NewRepository(db)
	ctx := context.Background()

	saved, err := repo.Insert(ctx, newAwaitingOrder(t, "ada@example.com"))
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)

	loaded, err := repo.GetByID(ctx, saved.ID)
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", loaded.Email)
	require.Equal(t, domain.PackageBasic, loaded.Package)
	require.Equal(t, domain.StatusAwaitingPayment, loaded.PaymentStatus)

	_, err = repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, ports.ErrNotFound)
}

func TestRepository_PendingEmailIndexBlocksSecondReservation(t *testing.T) {
	db, cleanup := setupPostgresContainer(t)
	defer cleanup()
	repo := orderspostgres.NewRepository(db)
	ctx := context.Background()

	first, err := repo.Insert(ctx, newAwaitingOrder(t, "ada@example.com"))
	require.NoError(t, err)

	_, err = repo.Insert(ctx, newAwaitingOrder(t, "ada@example.com"))
	require.ErrorIs(t, err, ports.ErrDuplicatePending)

	// The index is partial: completing the first order frees the email.
	require.NoError(t, repo.UpdateStatus(ctx, first.ID, domain.StatusCompleted))
	_, err = repo.Insert(ctx, newAwaitingOrder(t, "ada@example.com"))
	require.NoError(t, err)
}

func TestRepository_UpdateMediaRoundTripsTextArray(t *testing.T) {
	db, cleanup := setupPostgresContainer(t)
	defer cleanup()
	repo := orderspostgres.NewRepository(db)
	ctx := context.Background()

	saved, err := repo.Insert(ctx, newAwaitingOrder(t, "ada@example.com"))
	require.NoError(t, err)

	refs := []string{
		"https://bucket.s3.us-east-1.amazonaws.com/orders/" + saved.ID + "/1-0-a.jpg",
		"https://bucket.s3.us-east-1.amazonaws.com/orders/" + saved.ID + "/1-1-b.jpg",
	}
	require.NoError(t, repo.UpdateMedia(ctx, saved.ID, refs))

	loaded, err := repo.GetByID(ctx, saved.ID)
	require.NoError(t, err)
	require.Equal(t, refs, loaded.MediaRefs)
}

func TestRepository_UpdateStatusIsGuarded(t *testing.T) {
	db, cleanup := setupPostgresContainer(t)
	defer cleanup()
	repo := orderspostgres.NewRepository(db)
	ctx := context.Background()

	saved, err := repo.Insert(ctx, newAwaitingOrder(t, "ada@example.com"))
	require.NoError(t, err)

	require.NoError(t, repo.UpdateStatus(ctx, saved.ID, domain.StatusCompleted))
	// Replaying the completion is a no-op, not an error.
	require.NoError(t, repo.UpdateStatus(ctx, saved.ID, domain.StatusCompleted))
	// Leaving the terminal state is rejected.
	require.ErrorIs(t, repo.UpdateStatus(ctx, saved.ID, domain.StatusFailed), domain.ErrInvalidTransition)
}

func TestRepository_ConcurrentTerminalWritesSingleWinner(t *testing.T) {
	db, cleanup := setupPostgresContainer(t)
	defer cleanup()
	repo := orderspostgres.NewRepository(db)
	ctx := context.Background()

	// A cancel racing a webhook completion: both read AwaitingPayment, but the
	// compare-and-swap lets only the first commit through; the loser must see
	// the conflict rather than overwrite the terminal state.
	saved, err := repo.Insert(ctx, newAwaitingOrder(t, "ada@example.com"))
	require.NoError(t, err)

	errs := make(chan error, 2)
	go func() { errs <- repo.UpdateStatus(ctx, saved.ID, domain.StatusCompleted) }()
	go func() { errs <- repo.UpdateStatus(ctx, saved.ID, domain.StatusFailed) }()

	var failures []error
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			failures = append(failures, err)
		}
	}
	require.Len(t, failures, 1)
	require.ErrorIs(t, failures[0], domain.ErrInvalidTransition)

	loaded, err := repo.GetByID(ctx, saved.ID)
	require.NoError(t, err)
	require.True(t, loaded.PaymentStatus.Terminal())
}

func TestRepository_FindPendingByEmail(t *testing.T) {
	db, cleanup := setupPostgresContainer(t)
	defer cleanup()
	repo := orderspostgres.NewRepository(db)
	ctx := context.Background()

	pending, err := repo.FindPendingByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.Nil(t, pending)

	saved, err := repo.Insert(ctx, newAwaitingOrder(t, "ada@example.com"))
	require.NoError(t, err)

	pending, err = repo.FindPendingByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, pending)
	require.Equal(t, saved.ID, pending.ID)
}

func TestRepository_ListAllNewestFirst(t *testing.T) {
	db, cleanup := setupPostgresContainer(t)
	defer cleanup()
	repo := orderspostgres.NewRepository(db)
	ctx := context.Background()

	first, err := repo.Insert(ctx, newAwaitingOrder(t, "first@example.com"))
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	second, err := repo.Insert(ctx, newAwaitingOrder(t, "second@example.com"))
	require.NoError(t, err)

	list, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, second.ID, list[0].ID)
	require.Equal(t, first.ID, list[1].ID)
}
