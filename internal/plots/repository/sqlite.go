package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"plot-planner/internal/engine/calibration"
	"plot-planner/internal/plots/models"
)

// ============================================================
// SQLite Repository
// ============================================================

var ErrNotFound = errors.New("not found")

type Repository struct {
	db *sql.DB
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Init применяет миграции.
func (r *Repository) Init(ctx context.Context, migrationsPath string) error {
	if err := r.runMigrations(ctx, migrationsPath); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

// Ping проверяет соединение (для readiness).
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ============================================================
// Ventures
// ============================================================

const ventureColumns = `id, name, image_file, width, height,
        origin_x, origin_y, reference_pixels, reference_units, unit, is_calibrated, created_at`

func (r *Repository) CreateVenture(ctx context.Context, v *models.Venture) error {
	rec := v.Calibration
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO ventures (id, name, image_file, width, height,
            origin_x, origin_y, reference_pixels, reference_units, unit, is_calibrated)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, v.ID, v.Name, v.ImageFile, v.Width, v.Height,
		rec.Origin.X, rec.Origin.Y, rec.Scale.ReferencePixels, rec.Scale.ReferenceUnits, string(rec.Scale.Unit), rec.Calibrated)
	if err != nil {
		return fmt.Errorf("insert venture: %w", err)
	}

	stored, err := r.GetVenture(ctx, v.ID)
	if err != nil {
		return err
	}
	*v = *stored
	return nil
}

func (r *Repository) GetVenture(ctx context.Context, id string) (*models.Venture, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+ventureColumns+` FROM ventures WHERE id = ?`, id)

	v, err := scanVenture(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

func (r *Repository) ListVentures(ctx context.Context) ([]models.Venture, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+ventureColumns+` FROM ventures ORDER BY created_at, rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Venture{}
	for rows.Next() {
		v, err := scanVenture(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// UpdateCalibration заменяет запись калибровки целиком.
func (r *Repository) UpdateCalibration(ctx context.Context, ventureID string, rec calibration.Record) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE ventures
        SET origin_x = ?, origin_y = ?, reference_pixels = ?, reference_units = ?, unit = ?, is_calibrated = ?
        WHERE id = ?
    `, rec.Origin.X, rec.Origin.Y, rec.Scale.ReferencePixels, rec.Scale.ReferenceUnits, string(rec.Scale.Unit), rec.Calibrated, ventureID)
	if err != nil {
		return fmt.Errorf("update calibration: %w", err)
	}
	return expectOne(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVenture(s scanner) (*models.Venture, error) {
	var (
		v    models.Venture
		unit string
	)
	rec := &v.Calibration
	if err := s.Scan(&v.ID, &v.Name, &v.ImageFile, &v.Width, &v.Height,
		&rec.Origin.X, &rec.Origin.Y, &rec.Scale.ReferencePixels, &rec.Scale.ReferenceUnits, &unit, &rec.Calibrated,
		&v.CreatedAt); err != nil {
		return nil, err
	}
	rec.Scale.Unit = calibration.Unit(unit)
	return &v, nil
}

// ============================================================
// Plots
// ============================================================

func (r *Repository) CreatePlot(ctx context.Context, p *models.Plot) error {
	geom, err := json.Marshal(p.Geometry)
	if err != nil {
		return fmt.Errorf("encode geometry: %w", err)
	}
	attrs, err := marshalAttributes(p.Attributes)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
        INSERT INTO plots (id, venture_id, geometry, attributes)
        VALUES (?, ?, ?, ?)
    `, p.ID, p.VentureID, string(geom), attrs)
	if err != nil {
		return fmt.Errorf("insert plot: %w", err)
	}

	stored, err := r.GetPlot(ctx, p.VentureID, p.ID)
	if err != nil {
		return err
	}
	*p = *stored
	return nil
}

func (r *Repository) GetPlot(ctx context.Context, ventureID, plotID string) (*models.Plot, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, venture_id, geometry, attributes, created_at
        FROM plots
        WHERE venture_id = ? AND id = ?
    `, ventureID, plotID)

	p, err := scanPlot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// ListPlots возвращает участки в порядке сохранения.
func (r *Repository) ListPlots(ctx context.Context, ventureID string) ([]models.Plot, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, venture_id, geometry, attributes, created_at
        FROM plots
        WHERE venture_id = ?
        ORDER BY rowid
    `, ventureID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Plot{}
	for rows.Next() {
		p, err := scanPlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *Repository) DeletePlot(ctx context.Context, ventureID, plotID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM plots WHERE venture_id = ? AND id = ?`, ventureID, plotID)
	if err != nil {
		return fmt.Errorf("delete plot: %w", err)
	}
	return expectOne(res)
}

func scanPlot(s scanner) (*models.Plot, error) {
	var (
		p     models.Plot
		geom  string
		attrs string
	)
	if err := s.Scan(&p.ID, &p.VentureID, &geom, &attrs, &p.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(geom), &p.Geometry); err != nil {
		return nil, fmt.Errorf("decode geometry %s: %w", p.ID, err)
	}
	p.Attributes = map[string]any{}
	if err := json.Unmarshal([]byte(attrs), &p.Attributes); err != nil {
		return nil, fmt.Errorf("decode attributes %s: %w", p.ID, err)
	}
	return &p, nil
}

func marshalAttributes(attrs map[string]any) (string, error) {
	if attrs == nil {
		return "{}", nil
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("encode attributes: %w", err)
	}
	return string(data), nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ============================================================
// Migrations
// ============================================================

func (r *Repository) runMigrations(ctx context.Context, migrationsPath string) error {
	data, err := os.ReadFile(migrationsPath)
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, string(data)); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	return nil
}

// OpenSQLite открывает sqlite по указанному пути.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
