package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/fourthcafe-inventory/internal/core/domain"
	"github.com/rl1809/fourthcafe-inventory/internal/core/txn"
	"github.com/rl1809/fourthcafe-inventory/internal/port"
)

const schema = `
CREATE TABLE IF NOT EXISTS inventory_table (
	id BIGINT NOT NULL PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS inventory_seq (
	next_id BIGINT NOT NULL
);
INSERT INTO inventory_seq (next_id)
SELECT 0 FROM DUAL WHERE NOT EXISTS (SELECT 1 FROM inventory_seq);
`

type MySQLAdapter struct {
	db    *sqlx.DB
	ids   port.IDGenerator
	hooks hookSet
	log   logrus.FieldLogger
}

// NewMySQLAdapter builds a RecordStore on MySQL. With a nil generator IDs come
// from the inventory_seq table inside the saving transaction.
func NewMySQLAdapter(db *sqlx.DB, ids port.IDGenerator, log logrus.FieldLogger) *MySQLAdapter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &MySQLAdapter{db: db, ids: ids, log: log}
}

// Migrate creates the inventory tables. The DSN must enable multiStatements.
func (m *MySQLAdapter) Migrate(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) OnBeforeFirstPersist(hook port.PersistHook) {
	m.hooks.add(hook)
}

func (m *MySQLAdapter) WithTx(ctx context.Context, fn func(ctx context.Context, s port.Session) error) (err error) {
	sqlTx, err := m.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	tx := txn.New(m.log)

	defer func() {
		if r := recover(); r != nil {
			sqlTx.Rollback()
			tx.Rollback()
			panic(r)
		}
	}()

	if err = fn(ctx, &mysqlSession{store: m, sqlTx: sqlTx, tx: tx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			err = fmt.Errorf("tx failed: %w, rollback failed: %v", err, rbErr)
		}
		tx.Rollback()
		return err
	}

	if err = sqlTx.Commit(); err != nil {
		tx.Rollback()
		return fmt.Errorf("commit tx: %w", err)
	}

	return tx.Commit(ctx)
}

func (m *MySQLAdapter) Get(ctx context.Context, id int64) (*domain.InventoryRecord, error) {
	var rec domain.InventoryRecord
	err := m.db.GetContext(ctx, &rec, `SELECT id FROM inventory_table WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	return &rec, nil
}

type mysqlSession struct {
	store *MySQLAdapter
	sqlTx *sqlx.Tx
	tx    *txn.Tx
}

func (s *mysqlSession) Tx() *txn.Tx {
	return s.tx
}

func (s *mysqlSession) Save(ctx context.Context, rec *domain.InventoryRecord) error {
	if rec == nil {
		return domain.ErrNilRecord
	}

	if rec.IsTransient() {
		return firstPersist(ctx, s.tx, rec, s.nextID, s.store.hooks.snapshot(), func(ctx context.Context) error {
			if _, err := s.sqlTx.ExecContext(ctx, `INSERT INTO inventory_table (id) VALUES (?)`, rec.ID); err != nil {
				return fmt.Errorf("insert inventory: %w", err)
			}
			return nil
		})
	}

	var found int
	err := s.sqlTx.GetContext(ctx, &found, `SELECT COUNT(*) FROM inventory_table WHERE id = ? FOR UPDATE`, rec.ID)
	if err != nil {
		return fmt.Errorf("lock inventory: %w", err)
	}
	if found == 0 {
		return fmt.Errorf("update inventory %d: %w", rec.ID, domain.ErrRecordNotFound)
	}
	return nil
}

func (s *mysqlSession) nextID(ctx context.Context) (int64, error) {
	if s.store.ids != nil {
		return s.store.ids.NextID(ctx)
	}

	result, err := s.sqlTx.ExecContext(ctx, `UPDATE inventory_seq SET next_id = LAST_INSERT_ID(next_id + 1)`)
	if err != nil {
		return 0, fmt.Errorf("advance sequence: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read sequence: %w", err)
	}
	return id, nil
}
