package storage

import (
	"context"
	"errors"
	"os"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/fourthcafe-inventory/internal/core/domain"
	"github.com/rl1809/fourthcafe-inventory/internal/core/txn"
	"github.com/rl1809/fourthcafe-inventory/internal/port"
)

func getMySQLDB(t *testing.T) *sqlx.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/inventory?parseTime=true&multiStatements=true"
	}

	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	return db
}

func newMySQLAdapter(t *testing.T, ids port.IDGenerator) *MySQLAdapter {
	db := getMySQLDB(t)
	t.Cleanup(func() { db.Close() })

	adapter := NewMySQLAdapter(db, ids, nil)
	require.NoError(t, adapter.Migrate(context.Background()))
	return adapter
}

// deleteOnCleanup removes the given rows once the test finishes.
func deleteOnCleanup(t *testing.T, db *sqlx.DB, ids ...int64) {
	t.Helper()
	t.Cleanup(func() {
		for _, id := range ids {
			if _, err := db.ExecContext(context.Background(), `DELETE FROM inventory_table WHERE id = ?`, id); err != nil {
				t.Logf("cleanup inventory %d: %v", id, err)
			}
		}
	})
}

// fixedIDs always hands out the same identifier.
type fixedIDs struct {
	id int64
}

func (f fixedIDs) NextID(ctx context.Context) (int64, error) {
	return f.id, nil
}

// queueActions registers a hook that queues n post-commit actions counting into ran.
func queueActions(adapter *MySQLAdapter, n int, ran *int) {
	adapter.OnBeforeFirstPersist(func(ctx context.Context, tx *txn.Tx, rec *domain.InventoryRecord) error {
		for i := 0; i < n; i++ {
			if err := tx.AfterCommit(func(ctx context.Context) error {
				*ran++
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func TestMySQL_FirstPersist(t *testing.T) {
	adapter := newMySQLAdapter(t, nil)
	ctx := context.Background()

	var hookID int64
	adapter.OnBeforeFirstPersist(func(ctx context.Context, tx *txn.Tx, rec *domain.InventoryRecord) error {
		hookID = rec.ID
		return nil
	})

	rec := domain.NewInventoryRecord()
	require.NoError(t, saveInTx(t, adapter, rec))
	deleteOnCleanup(t, adapter.db, rec.ID)
	assert.NotZero(t, rec.ID)
	assert.Equal(t, rec.ID, hookID)

	got, err := adapter.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
}

func TestMySQL_SequenceIncreases(t *testing.T) {
	adapter := newMySQLAdapter(t, nil)

	first := domain.NewInventoryRecord()
	second := domain.NewInventoryRecord()
	require.NoError(t, saveInTx(t, adapter, first))
	require.NoError(t, saveInTx(t, adapter, second))
	deleteOnCleanup(t, adapter.db, first.ID, second.ID)

	assert.Greater(t, second.ID, first.ID)
}

func TestMySQL_Rollback(t *testing.T) {
	adapter := newMySQLAdapter(t, nil)
	ctx := context.Background()
	rec := domain.NewInventoryRecord()
	var assigned int64

	err := adapter.WithTx(ctx, func(ctx context.Context, s port.Session) error {
		if err := s.Save(ctx, rec); err != nil {
			return err
		}
		assigned = rec.ID
		return errors.New("abort")
	})
	require.Error(t, err)
	assert.True(t, rec.IsTransient())

	_, err = adapter.Get(ctx, assigned)
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestMySQL_HookFailureAbortsSave(t *testing.T) {
	const id = 9_000_001
	adapter := newMySQLAdapter(t, fixedIDs{id: id})
	deleteOnCleanup(t, adapter.db, id)

	ran := 0
	queueActions(adapter, 2, &ran)
	hookErr := errors.New("copy failed")
	adapter.OnBeforeFirstPersist(func(ctx context.Context, tx *txn.Tx, rec *domain.InventoryRecord) error {
		return hookErr
	})

	rec := domain.NewInventoryRecord()
	err := adapter.WithTx(context.Background(), func(ctx context.Context, s port.Session) error {
		if err := s.Save(ctx, rec); err != nil {
			t.Logf("save failed: %v", err)
		}
		return nil
	})

	require.NoError(t, err)
	assert.True(t, rec.IsTransient())
	assert.Zero(t, ran)

	_, err = adapter.Get(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestMySQL_InsertFailureResetsID(t *testing.T) {
	const id = 9_000_002
	adapter := newMySQLAdapter(t, fixedIDs{id: id})
	deleteOnCleanup(t, adapter.db, id)

	_, err := adapter.db.ExecContext(context.Background(), `INSERT INTO inventory_table (id) VALUES (?)`, id)
	require.NoError(t, err)

	ran := 0
	queueActions(adapter, 2, &ran)

	rec := domain.NewInventoryRecord()
	var saveErr error
	err = adapter.WithTx(context.Background(), func(ctx context.Context, s port.Session) error {
		saveErr = s.Save(ctx, rec)
		return nil
	})

	require.NoError(t, err)
	assert.ErrorContains(t, saveErr, "insert inventory")
	assert.True(t, rec.IsTransient())
	assert.Zero(t, ran)
}

func TestMySQL_CommitFailureDiscardsActions(t *testing.T) {
	adapter := newMySQLAdapter(t, nil)

	ran := 0
	queueActions(adapter, 2, &ran)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := domain.NewInventoryRecord()
	var assigned int64

	err := adapter.WithTx(ctx, func(ctx context.Context, s port.Session) error {
		if err := s.Save(ctx, rec); err != nil {
			return err
		}
		assigned = rec.ID
		cancel()
		return nil
	})

	require.Error(t, err)
	assert.True(t, rec.IsTransient())
	assert.Zero(t, ran)

	_, err = adapter.Get(context.Background(), assigned)
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestMySQL_UpdateUnknownRecord(t *testing.T) {
	adapter := newMySQLAdapter(t, nil)

	err := saveInTx(t, adapter, &domain.InventoryRecord{ID: -1})
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}
