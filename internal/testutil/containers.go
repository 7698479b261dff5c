package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/testcontainers/testcontainers-go"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ConfabulousDev/wakalog/internal/db"
	"github.com/ConfabulousDev/wakalog/internal/storage"
)

const (
	minioUser   = "minioadmin"
	minioPass   = "minioadmin"
	minioBucket = "wakalog-test"
)

// TestEnvironment holds test infrastructure (PostgreSQL container, optional MinIO)
type TestEnvironment struct {
	DB                *db.DB
	DSN               string
	Storage           *storage.S3Storage
	PostgresContainer *postgres.PostgresContainer
	MinioContainer    *tcminio.MinioContainer
	Ctx               context.Context
}

// SetupTestEnvironment starts a PostgreSQL container with the schema applied.
// Containers are torn down when the test finishes.
func SetupTestEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()
	ctx := context.Background()

	t.Log("Starting PostgreSQL container...")
	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("wakalog_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}

	env := &TestEnvironment{
		PostgresContainer: postgresContainer,
		Ctx:               ctx,
	}
	t.Cleanup(func() {
		env.Cleanup(t)
	})

	env.DSN, err = postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get postgres connection string: %v", err)
	}

	env.DB, err = db.Connect(env.DSN, db.Options{MaxOpenConns: 5, QueryTimeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	t.Log("Running database migrations...")
	if err := db.Migrate(env.DB.Conn(), db.MigrateUp); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Log("Test environment ready!")
	return env
}

// WithStorage starts a MinIO container, creates the test bucket and attaches
// an S3Storage rooted at prefix.
func (e *TestEnvironment) WithStorage(t *testing.T, prefix string) *storage.S3Storage {
	t.Helper()

	t.Log("Starting MinIO container...")
	minioContainer, err := tcminio.Run(e.Ctx,
		"minio/minio:latest",
		tcminio.WithUsername(minioUser),
		tcminio.WithPassword(minioPass),
	)
	if err != nil {
		t.Fatalf("Failed to start minio container: %v", err)
	}
	e.MinioContainer = minioContainer

	endpoint, err := minioContainer.ConnectionString(e.Ctx)
	if err != nil {
		t.Fatalf("Failed to get minio endpoint: %v", err)
	}

	// MinIO needs a moment before it accepts bucket operations.
	admin, err := minio.New(endpoint, &minio.Options{
		Creds: credentials.NewStaticV4(minioUser, minioPass, ""),
	})
	if err != nil {
		t.Fatalf("Failed to create minio admin client: %v", err)
	}
	const maxRetries = 10
	for i := 0; i < maxRetries; i++ {
		err = admin.MakeBucket(e.Ctx, minioBucket, minio.MakeBucketOptions{})
		if err == nil {
			break
		}
		if exists, _ := admin.BucketExists(e.Ctx, minioBucket); exists {
			err = nil
			break
		}
		t.Logf("MinIO not ready yet, retrying... (%d/%d)", i+1, maxRetries)
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("Failed to create bucket after %d retries: %v", maxRetries, err)
	}

	e.Storage, err = storage.NewS3Storage(e.Ctx, storage.S3Config{
		Endpoint:        endpoint,
		AccessKeyID:     minioUser,
		SecretAccessKey: minioPass,
		BucketName:      minioBucket,
		Prefix:          prefix,
	})
	if err != nil {
		t.Fatalf("Failed to create S3 storage: %v", err)
	}
	return e.Storage
}

// Cleanup stops containers and closes connections
func (e *TestEnvironment) Cleanup(t *testing.T) {
	t.Helper()
	t.Log("Cleaning up test environment...")

	if e.DB != nil {
		if err := e.DB.Close(); err != nil {
			t.Logf("Warning: failed to close database: %v", err)
		}
	}

	if e.PostgresContainer != nil {
		if err := e.PostgresContainer.Terminate(e.Ctx); err != nil {
			t.Logf("Warning: failed to terminate postgres container: %v", err)
		}
	}

	if e.MinioContainer != nil {
		if err := e.MinioContainer.Terminate(e.Ctx); err != nil {
			t.Logf("Warning: failed to terminate minio container: %v", err)
		}
	}
}

// CleanDB empties the summary table so each test starts from a clean state.
func (e *TestEnvironment) CleanDB(t *testing.T) {
	t.Helper()

	if _, err := e.DB.Exec(e.Ctx, "TRUNCATE TABLE wakatime_summary"); err != nil {
		t.Fatalf("Failed to truncate wakatime_summary: %v", err)
	}
}
