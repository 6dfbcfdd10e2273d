// Package sqlitestore is an example SubstateStore backing for the CLI,
// grounded on the teacher's geth storage exercises and their
// modernc.org/sqlite dependency: a single table keyed by the canonical
// SubstateId encoding, holding each substate's SBOR-encoded value.
package sqlitestore

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/radixdlt/radixkernel/internal/addr"
	"github.com/radixdlt/radixkernel/internal/sbor"
)

const schema = `
CREATE TABLE IF NOT EXISTS substates (
	key  BLOB PRIMARY KEY,
	value BLOB NOT NULL
);`

// Store persists substates in a single sqlite database file.
type Store struct {
	db *sql.DB
}

// Open creates or attaches to a sqlite database at path and ensures
// the substates table exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func substateKey(id addr.SubstateId) []byte {
	return []byte(id.String())
}

// Get implements track.SubstateStore.
func (s *Store) Get(id addr.SubstateId) (sbor.Value, bool, error) {
	row := s.db.QueryRow(`SELECT value FROM substates WHERE key = ?`, substateKey(id))
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return sbor.Value{}, false, nil
		}
		return sbor.Value{}, false, fmt.Errorf("sqlitestore: get %s: %w", id, err)
	}
	v, err := sbor.Decode(raw)
	if err != nil {
		return sbor.Value{}, false, fmt.Errorf("sqlitestore: decode %s: %w", id, err)
	}
	return v, true, nil
}

// Put implements track.SubstateStore.
func (s *Store) Put(id addr.SubstateId, value sbor.Value) error {
	encoded, err := sbor.Encode(value)
	if err != nil {
		return fmt.Errorf("sqlitestore: encode %s: %w", id, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO substates (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		substateKey(id), encoded,
	)
	if err != nil {
		return fmt.Errorf("sqlitestore: put %s: %w", id, err)
	}
	return nil
}
