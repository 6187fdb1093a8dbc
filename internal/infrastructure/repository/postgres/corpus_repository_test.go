package postgres

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
	"github.com/kanugurajesh/Assistly/internal/infrastructure/resilience"
)

func TestCorpusRepositoryListChunksInIDOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "text", "title", "source_url", "doc_type", "quality"}).
		AddRow("1", "Connect Snowflake", "Snowflake Setup", "https://docs.example/snowflake", "guide", "").
		AddRow("2", "Enable SSO", "SSO", "https://docs.example/sso", "guide", "high")
	mock.ExpectQuery("FROM doc_chunks\\s+ORDER BY id").WillReturnRows(rows)

	chunks, err := NewCorpusRepository(db, nil).ListChunks(context.Background())
	if err != nil {
		t.Fatalf("ListChunks() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Title != "Snowflake Setup" || chunks[1].QualityTag != "high" {
		t.Fatalf("unexpected chunks: %+v", chunks)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCorpusRepositoryRetriesNetworkError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM doc_chunks").WillReturnError(&net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")})
	mock.ExpectQuery("FROM doc_chunks").WillReturnRows(sqlmock.NewRows([]string{"id", "text", "title", "source_url", "doc_type", "quality"}))

	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
	})
	chunks, err := NewCorpusRepository(db, exec).ListChunks(context.Background())
	if err != nil {
		t.Fatalf("ListChunks() error = %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected empty corpus, got %d", len(chunks))
	}
}

func TestCorpusRepositoryPermanentErrorIsNotTemporary(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM doc_chunks").WillReturnError(errors.New("relation \"doc_chunks\" does not exist"))

	_, err = NewCorpusRepository(db, nil).ListChunks(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("did not expect temporary error: %v", err)
	}
}

func TestCorpusRepositoryFingerprint(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	updated := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\), MAX\\(updated_at\\) FROM doc_chunks").
		WillReturnRows(sqlmock.NewRows([]string{"count", "max"}).AddRow(42, updated))

	fp, err := NewCorpusRepository(db, nil).Fingerprint(context.Background())
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	if fp.ChunkCount != 42 || !fp.LastUpdatedAt.Equal(updated) {
		t.Fatalf("unexpected fingerprint %+v", fp)
	}
}

func TestCorpusRepositoryFingerprintEmptyTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM doc_chunks").WillReturnRows(sqlmock.NewRows([]string{"count", "max"}).AddRow(0, nil))

	fp, err := NewCorpusRepository(db, nil).Fingerprint(context.Background())
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	if fp.ChunkCount != 0 || !fp.LastUpdatedAt.IsZero() {
		t.Fatalf("unexpected fingerprint %+v", fp)
	}
}

func TestEnsureSchemaTakesAdvisoryLock(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WithArgs(schemaLockKey).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS doc_chunks").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
