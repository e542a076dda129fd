package repos

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"

	"github.com/3axap4eHko/litra/internal/models"
)

const initSchema = `
  CREATE TABLE IF NOT EXISTS settings (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    power INTEGER,
    brightness INTEGER,
    temperature INTEGER,
    updated_at TIMESTAMP
  );
`

// SettingsRepo persists the last applied lamp settings so they survive a
// restart and can be replayed after a reconnect.
type SettingsRepo struct {
	logger *log.Logger
	db     *sql.DB
}

func OpenDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("error opening settings database (%s): %w", path, err)
	}
	return db, nil
}

func NewSettingsRepo(logger *log.Logger, db *sql.DB) (*SettingsRepo, error) {
	_, err := db.Exec(initSchema)
	if err != nil {
		return nil, fmt.Errorf("error initialising settings schema: %w", err)
	}

	return &SettingsRepo{logger: logger, db: db}, nil
}

// Load returns the stored settings; ok is false when nothing has been
// saved yet.
func (r *SettingsRepo) Load() (models.DeviceState, bool, error) {
	row := r.db.QueryRow("SELECT power, brightness, temperature FROM settings WHERE id = 1")
	var (
		p bool
		b int
		t int
	)
	err := row.Scan(&p, &b, &t)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.DeviceState{}, false, nil
		}
		return models.DeviceState{}, false, fmt.Errorf("error reading stored settings: %w", err)
	}

	return models.DeviceState{Power: p, Brightness: b, Temperature: t}, true, nil
}

func (r *SettingsRepo) Save(s models.DeviceState) error {
	_, err := r.db.Exec(`
    INSERT INTO settings (id, power, brightness, temperature, updated_at)
    VALUES (1, $1, $2, $3, $4)
    ON CONFLICT (id) DO UPDATE SET
      power = excluded.power,
      brightness = excluded.brightness,
      temperature = excluded.temperature,
      updated_at = excluded.updated_at
  `, s.Power, s.Brightness, s.Temperature, time.Now())
	if err != nil {
		return fmt.Errorf("error saving settings %v: %w", s, err)
	}

	r.logger.Debugf("saved settings: %v", s)
	return nil
}
