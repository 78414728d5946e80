package store

import (
	"database/sql"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DB is the bridge's SQLite database. It currently holds the ignore
// list, so devices classified as non-renderers are not probed again
// after a restart.
type DB struct {
	conn *sql.DB
}

// IgnoredDevice is one persisted ignore-list entry.
type IgnoredDevice struct {
	UDN          string
	FriendlyName string
	DeviceType   string
	AddedAt      string
}

// InitDB ouvre ou crée la base SQLite dans le répertoire dir
func InitDB(dir string) (*DB, error) {
	path := filepath.Join(dir, "airpnp.db")
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.initTables(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) initTables() error {
	_, err := db.conn.Exec(`
	CREATE TABLE IF NOT EXISTS ignored (
		udn TEXT PRIMARY KEY,
		friendly_name TEXT,
		device_type TEXT,
		added_at TEXT
	);
	`)
	return err
}

// AddIgnored ajoute ou met à jour une entrée de la liste d'exclusion
func (db *DB) AddIgnored(udn, friendlyName, deviceType string) error {
	_, err := db.conn.Exec(`
	INSERT INTO ignored(udn, friendly_name, device_type, added_at)
	VALUES(?, ?, ?, ?)
	ON CONFLICT(udn) DO UPDATE SET
		friendly_name=excluded.friendly_name,
		device_type=excluded.device_type;
	`, udn, friendlyName, deviceType, time.Now().UTC().Format(time.RFC3339))
	return err
}

// IsIgnored reports whether the UDN is on the ignore list.
func (db *DB) IsIgnored(udn string) (bool, error) {
	row := db.conn.QueryRow(`SELECT 1 FROM ignored WHERE udn = ?`, udn)
	var one int
	err := row.Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListIgnored returns every persisted entry, oldest first.
func (db *DB) ListIgnored() ([]IgnoredDevice, error) {
	rows, err := db.conn.Query(`
	SELECT udn, friendly_name, device_type, added_at
	FROM ignored ORDER BY added_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []IgnoredDevice
	for rows.Next() {
		var d IgnoredDevice
		if err := rows.Scan(&d.UDN, &d.FriendlyName, &d.DeviceType, &d.AddedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// RemoveIgnored deletes an entry, so the device is reclassified on its
// next announcement.
func (db *DB) RemoveIgnored(udn string) error {
	_, err := db.conn.Exec(`DELETE FROM ignored WHERE udn = ?`, udn)
	return err
}

func (db *DB) Close() error {
	return db.conn.Close()
}
