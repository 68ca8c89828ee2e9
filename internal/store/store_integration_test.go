package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mohammad-safakhou/arxiv-digest/internal/digest"
)

func TestStorePostgresIntegration(t *testing.T) {
	if testing.Short() || os.Getenv("DIGEST_INTEGRATION") != "1" {
		t.Skip("set DIGEST_INTEGRATION=1 to run against a Postgres container")
	}
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		tcPostgres.WithDatabase("digest"),
		tcPostgres.WithUsername("digest"),
		tcPostgres.WithPassword("digest"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp")),
	)
	if err != nil {
		t.Fatalf("postgres container: %v", err)
	}
	defer func() { _ = pgC.Terminate(ctx) }()

	host, err := pgC.Host(ctx)
	if err != nil {
		t.Fatalf("postgres host: %v", err)
	}
	port, err := pgC.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("postgres port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://digest:digest@%s:%s/digest?sslmode=disable", host, port.Port())

	m, err := migrate.New("file://../../migrations", dsn)
	if err != nil {
		t.Fatalf("migrate init: %v", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("migrate up: %v", err)
	}

	st, err := NewWithDSN(ctx, dsn)
	if err != nil {
		t.Fatalf("store init: %v", err)
	}
	defer st.Close()

	rec := digest.RunRecord{
		UserID: "user-1", UserEmail: "a@b.c", Categories: []string{"cs.AI"}, MaxResults: 2,
		Warnings: []string{"TTS not configured; audio skipped"},
		Papers:   []digest.PaperRef{{ID: "http://arxiv.org/abs/2401.1v1", Title: "P", ArxivID: "2401.1v1"}},
		Status:   digest.StatusSuccess,
	}
	if err := st.InsertRun(ctx, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}
	runs, err := st.ListRuns(ctx, "user-1", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 1 || runs[0].Papers[0].ArxivID != "2401.1v1" || runs[0].Warnings[0] != rec.Warnings[0] {
		t.Fatalf("unexpected runs %+v", runs)
	}
}
