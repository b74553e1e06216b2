package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/dmitrijs2005/gophtodo/internal/server/config"
	"github.com/dmitrijs2005/gophtodo/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/gophtodo/internal/server/repositories/todos"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func TestNewPostgresRepositoryManager_ReturnsInterface(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	m, err := NewPostgresRepositoryManager(db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var _ RepositoryManager = m
}

func TestFactories_ReturnConcreteRepos(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	m := &PostgresRepositoryManager{db: db}

	_, ok := m.Todos().(*todos.PostgresRepository)
	assert.True(t, ok, "Todos() must be postgres-backed")
	_, ok = m.Profiles().(*profiles.PostgresRepository)
	assert.True(t, ok, "Profiles() must be postgres-backed")
}

func TestRunMigrations_Success(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "." {
			return errors.New("unexpected dir")
		}
		if len(opts) != 0 {
			return errors.New("unexpected opts")
		}
		return nil
	}
	defer func() { gooseUpContext = orig }()

	m := &PostgresRepositoryManager{db: db}
	if err := m.RunMigrations(context.Background()); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
}

func TestRunMigrations_Error(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	m := &PostgresRepositoryManager{db: db}
	if err := m.RunMigrations(context.Background()); err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestClose_ClosesPool(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectClose()

	m := &PostgresRepositoryManager{db: db}
	require.NoError(t, m.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNew_SelectsBackend(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	origOpen := sqlOpen
	t.Cleanup(func() { sqlOpen = origOpen })
	var gotDriver, gotDSN string
	sqlOpen = func(driver, dsn string) (*sql.DB, error) {
		gotDriver, gotDSN = driver, dsn
		return db, nil
	}

	awsCfg := aws.Config{Region: "us-east-1"}

	tests := []struct {
		backend string
		check   func(t *testing.T, m RepositoryManager)
	}{
		{config.StoreMemory, func(t *testing.T, m RepositoryManager) {
			assert.IsType(t, &MemoryRepositoryManager{}, m)
			assert.IsType(t, &todos.MemoryRepository{}, m.Todos())
		}},
		{config.StorePostgres, func(t *testing.T, m RepositoryManager) {
			assert.IsType(t, &PostgresRepositoryManager{}, m)
			assert.Equal(t, "pgx", gotDriver)
			assert.Equal(t, "dsn", gotDSN)
		}},
		{config.StoreDynamoDB, func(t *testing.T, m RepositoryManager) {
			assert.IsType(t, &todos.DynamoDBRepository{}, m.Todos())
			assert.IsType(t, &profiles.DynamoDBRepository{}, m.Profiles())
		}},
		{config.StoreS3, func(t *testing.T, m RepositoryManager) {
			assert.IsType(t, &todos.S3Repository{}, m.Todos())
			assert.IsType(t, &profiles.DynamoDBRepository{}, m.Profiles())
			assert.NoError(t, m.RunMigrations(context.Background()))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			c := &config.Config{StoreBackend: tt.backend, DatabaseDSN: "dsn"}
			m, err := New(c, awsCfg)
			require.NoError(t, err)
			tt.check(t, m)
		})
	}

	_, err := New(&config.Config{StoreBackend: "redis"}, awsCfg)
	assert.Error(t, err)
}
