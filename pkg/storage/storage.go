// Package storage reads and updates a city's food pack: one SQLite file per
// city, one row per place, with a click counter as the popularity signal.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/zen-systems/foodgate/pkg/food"
)

// ErrNotFound is returned when a requested place doesn't exist.
var ErrNotFound = errors.New("not found")

// Store wraps one city's food.db.
type Store struct {
	db *sql.DB
}

// Open opens a city pack. WAL mode keeps concurrent readers cheap; writes
// go through single-statement updates so no pool-level locking is needed.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dbPath, err)
	}
	// Pragmas are per-connection; pin the pool to one connection so they
	// stick and the single writer never trips SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// ensureSchema creates the food table when opening a fresh file. Production
// packs ship with the table already populated; this only matters for empty
// databases and tests.
func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS food (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			ten_quan     TEXT    DEFAULT '',
			ten_mon      TEXT    DEFAULT '',
			dia_chi      TEXT    DEFAULT '',
			quan         TEXT    DEFAULT '',
			thanh_pho    TEXT    DEFAULT '',
			gia_min      INTEGER DEFAULT 0,
			gia_max      INTEGER DEFAULT 0,
			note         TEXT    DEFAULT '',
			so_lan_click INTEGER DEFAULT 0
		)`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

const placeColumns = `id,
	COALESCE(ten_quan, ''), COALESCE(ten_mon, ''), COALESCE(dia_chi, ''),
	COALESCE(quan, ''), COALESCE(thanh_pho, ''),
	COALESCE(gia_min, 0), COALESCE(gia_max, 0), COALESCE(note, '')`

func scanPlace(scan func(dest ...any) error) (food.Place, error) {
	var p food.Place
	err := scan(&p.ID, &p.Shop, &p.Dish, &p.Address, &p.District, &p.City,
		&p.PriceMin, &p.PriceMax, &p.Note)
	return p, err
}

// InsertPlace adds a place and returns its assigned id. Packs are normally
// built offline; this is the seeding path for fresh databases and tests.
func (s *Store) InsertPlace(ctx context.Context, p food.Place) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO food (ten_quan, ten_mon, dia_chi, quan, thanh_pho, gia_min, gia_max, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Shop, p.Dish, p.Address, p.District, p.City, p.PriceMin, p.PriceMax, p.Note)
	if err != nil {
		return 0, fmt.Errorf("insert place: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert place: %w", err)
	}
	return id, nil
}

// FindByIDs fetches places for the given ids, preserving the input order
// for ids that exist and silently skipping ids that don't.
func (s *Store) FindByIDs(ctx context.Context, ids []int64) ([]food.Place, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]byte, 0, len(ids)*2-1)
	args := make([]any, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args[i] = id
	}
	query := fmt.Sprintf("SELECT %s FROM food WHERE id IN (%s)", placeColumns, placeholders)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find by ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byID := make(map[int64]food.Place, len(ids))
	for rows.Next() {
		p, err := scanPlace(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan place: %w", err)
		}
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find by ids: %w", err)
	}

	ordered := make([]food.Place, 0, len(byID))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

// FindByText runs a LIKE search over shop and dish names, most-clicked
// first.
func (s *Store) FindByText(ctx context.Context, keyword string, limit int) ([]food.Place, error) {
	like := "%" + keyword + "%"
	query := fmt.Sprintf(`SELECT %s FROM food
		WHERE ten_quan LIKE ? OR ten_mon LIKE ?
		ORDER BY COALESCE(so_lan_click, 0) DESC
		LIMIT ?`, placeColumns)
	rows, err := s.db.QueryContext(ctx, query, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("find by text: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var places []food.Place
	for rows.Next() {
		p, err := scanPlace(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan place: %w", err)
		}
		places = append(places, p)
	}
	return places, rows.Err()
}

// IncrementClick bumps a place's click counter by one and returns the new
// value. The increment is a single UPDATE, so concurrent clicks on the same
// place never lose updates.
func (s *Store) IncrementClick(ctx context.Context, id int64) (int, error) {
	var clicks int
	err := s.db.QueryRowContext(ctx, `
		UPDATE food SET so_lan_click = COALESCE(so_lan_click, 0) + 1
		WHERE id = ?
		RETURNING so_lan_click`, id).Scan(&clicks)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("food id=%d: %w", id, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("increment click: %w", err)
	}
	return clicks, nil
}
