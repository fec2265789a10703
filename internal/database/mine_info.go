package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lawnchairsociety/minedepths/internal/mine"
)

var _ mine.InfoStore = (*Database)(nil)

const infoColumns = `level, platform_containers_left, chests_left, coal_carts_left, elevator_placed, year`

func scanInfo(row interface{ Scan(...any) error }) (mine.Info, error) {
	var info mine.Info
	var elevator int
	err := row.Scan(&info.Level, &info.PlatformContainersLeft, &info.ChestsLeft,
		&info.CoalCartsLeft, &elevator, &info.Year)
	info.ElevatorPlaced = elevator != 0
	return info, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// GetInfo returns the stored record for a level.
func (d *Database) GetInfo(level int) (mine.Info, bool, error) {
	row := d.db.QueryRow(d.qb.Build(`SELECT `+infoColumns+` FROM mine_info WHERE level = ?`), level)
	info, err := scanInfo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return mine.Info{}, false, nil
	}
	if err != nil {
		return mine.Info{}, false, fmt.Errorf("failed to read mine info for level %d: %w", level, err)
	}
	return info, true, nil
}

// PutInfo inserts or replaces the record for info.Level.
func (d *Database) PutInfo(info mine.Info) error {
	_, err := d.db.Exec(d.qb.Build(`
		INSERT INTO mine_info (`+infoColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (level) DO UPDATE SET
			platform_containers_left = excluded.platform_containers_left,
			chests_left = excluded.chests_left,
			coal_carts_left = excluded.coal_carts_left,
			elevator_placed = excluded.elevator_placed,
			year = excluded.year
	`), info.Level, info.PlatformContainersLeft, info.ChestsLeft, info.CoalCartsLeft,
		boolToInt(info.ElevatorPlaced), info.Year)
	if err != nil {
		return fmt.Errorf("failed to save mine info for level %d: %w", info.Level, err)
	}
	return nil
}

// AllInfo returns every record ordered by level.
func (d *Database) AllInfo() ([]mine.Info, error) {
	rows, err := d.db.Query(`SELECT ` + infoColumns + ` FROM mine_info ORDER BY level`)
	if err != nil {
		return nil, fmt.Errorf("failed to list mine info: %w", err)
	}
	defer rows.Close()

	var infos []mine.Info
	for rows.Next() {
		info, err := scanInfo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mine info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// DeepestLevel returns the deepest level ever reached, 0 if none.
func (d *Database) DeepestLevel() (int, error) {
	var deepest int
	err := d.db.QueryRow(`SELECT deepest FROM mine_progress WHERE id = 1`).Scan(&deepest)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read deepest level: %w", err)
	}
	return deepest, nil
}

// SetDeepestLevel raises the deepest level; lower values are ignored.
func (d *Database) SetDeepestLevel(level int) error {
	_, err := d.db.Exec(d.qb.Build(`
		INSERT INTO mine_progress (id, deepest) VALUES (1, ?)
		ON CONFLICT (id) DO UPDATE SET deepest = `+d.dialect.Greatest("mine_progress.deepest", "excluded.deepest")), level)
	if err != nil {
		return fmt.Errorf("failed to save deepest level: %w", err)
	}
	return nil
}
