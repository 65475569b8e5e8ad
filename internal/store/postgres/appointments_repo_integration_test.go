package postgres

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"shopbook/backend/internal/domain"
	"shopbook/backend/internal/store"
)

func TestPostgresIntegration_ScheduleTxOverlapUpdateDelete(t *testing.T) {
	databaseURL := strings.TrimSpace(os.Getenv("SHOPBOOK_TEST_DATABASE_URL"))
	if databaseURL == "" {
		t.Skip("SHOPBOOK_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := Open(ctx, databaseURL, PoolConfig{MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() {
		_ = Close(db)
	})

	schema := "shopbook_test_" + randomHex(t, 8)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = db.NewRaw("DROP SCHEMA IF EXISTS " + schema + " CASCADE").Exec(ctx)
	})

	err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewRaw("CREATE SCHEMA " + schema).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewRaw("SET LOCAL search_path TO " + schema).Exec(ctx); err != nil {
			return err
		}
		if err := applyMigrations(ctx, tx); err != nil {
			return err
		}
		if err := lockSchedule(ctx, tx); err != nil {
			return err
		}

		s := scheduleTx{tx: tx}
		start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
		slot := 30 * time.Minute

		a, err := s.CreateAppointment(ctx, domain.Appointment{
			ID:         uuid.MustParse("00000000-0000-0000-0000-000000000901"),
			CustomerID: "alice",
			StartAt:    start,
			EndAt:      start.Add(slot),
			Status:     domain.StatusScheduled,
		})
		if err != nil {
			return err
		}
		if a.CreatedAt.IsZero() || a.UpdatedAt.IsZero() {
			return fmt.Errorf("timestamps not populated: %+v", a)
		}

		b, err := s.CreateAppointment(ctx, domain.Appointment{
			CustomerID: "bob",
			StartAt:    start.Add(15 * time.Minute),
			EndAt:      start.Add(15*time.Minute + slot),
			Status:     domain.StatusScheduled,
		})
		if err != nil {
			return err
		}
		if b.ID == uuid.Nil {
			return fmt.Errorf("expected generated id")
		}

		// Touching end boundary does not overlap.
		if _, err := s.CreateAppointment(ctx, domain.Appointment{
			CustomerID: "carol",
			StartAt:    start.Add(-slot),
			EndAt:      start,
			Status:     domain.StatusScheduled,
		}); err != nil {
			return err
		}

		window := domain.Window{Start: start.Add(10 * time.Minute), End: start.Add(10*time.Minute + slot)}
		rows, err := s.ListOverlapping(ctx, store.OverlapQuery{Window: window, Status: domain.StatusScheduled})
		if err != nil {
			return err
		}
		if len(rows) != 2 {
			return fmt.Errorf("overlapping = %d, want 2", len(rows))
		}

		rows, err = s.ListOverlapping(ctx, store.OverlapQuery{Window: window, Status: domain.StatusScheduled, ExcludeID: a.ID})
		if err != nil {
			return err
		}
		if len(rows) != 1 || rows[0].ID != b.ID {
			return fmt.Errorf("overlapping excluding a = %+v, want only b", rows)
		}

		reason := "sick"
		a.Status = domain.StatusCancelled
		a.CancellationReason = &reason
		a.CustomerID = "mallory"
		if _, err := s.UpdateAppointment(ctx, a); err != nil {
			return err
		}
		got, err := s.GetAppointment(ctx, a.ID)
		if err != nil {
			return err
		}
		if got.Status != domain.StatusCancelled || got.CancellationReason == nil || *got.CancellationReason != reason {
			return fmt.Errorf("updated row = %+v", got)
		}
		if got.CustomerID != "alice" {
			return fmt.Errorf("customer_id = %q, owner must not change", got.CustomerID)
		}

		rows, err = s.ListOverlapping(ctx, store.OverlapQuery{Window: window, Status: domain.StatusScheduled})
		if err != nil {
			return err
		}
		if len(rows) != 1 {
			return fmt.Errorf("overlapping after cancel = %d, want 1", len(rows))
		}

		if err := s.DeleteAppointment(ctx, b.ID); err != nil {
			return err
		}
		if err := s.DeleteAppointment(ctx, b.ID); !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("second delete err = %v, want %v", err, store.ErrNotFound)
		}
		if _, err := s.GetAppointment(ctx, b.ID); !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("get deleted err = %v, want %v", err, store.ErrNotFound)
		}

		// A duplicate key aborts the transaction, so this check runs last.
		_, err = s.CreateAppointment(ctx, domain.Appointment{
			ID:         a.ID,
			CustomerID: "alice",
			StartAt:    start,
			EndAt:      start.Add(slot),
			Status:     domain.StatusScheduled,
		})
		if !errors.Is(err, store.ErrIdempotencyConflict) {
			return fmt.Errorf("duplicate id err = %v, want %v", err, store.ErrIdempotencyConflict)
		}
		return errRollback
	})
	if !errors.Is(err, errRollback) {
		t.Fatalf("tx error: %v", err)
	}
}

var errRollback = errors.New("rollback")

func randomHex(t *testing.T, bytesLen int) string {
	t.Helper()
	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand.Read error: %v", err)
	}
	return hex.EncodeToString(b)
}

type rawExecutor interface {
	NewRaw(query string, args ...any) *bun.RawQuery
}

func applyMigrations(ctx context.Context, exec rawExecutor) error {
	dir, err := migrationsDir()
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	type mig struct {
		name string
		path string
	}
	migs := make([]mig, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		migs = append(migs, mig{name: e.Name(), path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(migs, func(i, j int) bool { return migs[i].name < migs[j].name })

	for _, m := range migs {
		b, err := os.ReadFile(m.path)
		if err != nil {
			return err
		}
		upSQL, err := extractGooseUp(string(b))
		if err != nil {
			return err
		}
		stmts := splitSQLStatements(upSQL)
		for _, stmt := range stmts {
			if _, err := exec.NewRaw(stmt).Exec(ctx); err != nil {
				return err
			}
		}
	}

	return nil
}

func migrationsDir() (string, error) {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("runtime.Caller failed")
	}
	base := filepath.Dir(file)
	return filepath.Clean(filepath.Join(base, "..", "..", "..", "migrations")), nil
}

func extractGooseUp(sql string) (string, error) {
	upMarker := "-- +goose Up"
	downMarker := "-- +goose Down"

	upIdx := strings.Index(sql, upMarker)
	if upIdx < 0 {
		return "", fmt.Errorf("missing goose up marker")
	}
	afterUp := sql[upIdx+len(upMarker):]
	afterUp = strings.TrimLeft(afterUp, "\r\n")

	downIdx := strings.Index(afterUp, downMarker)
	if downIdx < 0 {
		return strings.TrimSpace(afterUp), nil
	}
	return strings.TrimSpace(afterUp[:downIdx]), nil
}

func splitSQLStatements(sql string) []string {
	parts := strings.Split(sql, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
