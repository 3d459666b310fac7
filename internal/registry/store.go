package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/meshport/meshport-agent/internal/preset"
)

type Store interface {
	CreateCollection(ctx context.Context, c *Collection) error
	GetCollection(ctx context.Context, id string) (*Collection, error)
	GetCollectionByName(ctx context.Context, sceneID, name string) (*Collection, error)
	ListCollections(ctx context.Context, sceneID string) ([]*Collection, error)
	UpdateCollectionName(ctx context.Context, id, name string) error
	UpdateCollectionOutputPath(ctx context.Context, id, outputPath string) error
	UpdateCollectionFormat(ctx context.Context, id string, format preset.Format, settings map[string]any) error
	ReplaceMembers(ctx context.Context, id string, members []string) error
	DeleteCollection(ctx context.Context, id string) error
	CountCollections(ctx context.Context, sceneID string) (int, error)

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) CreateCollection(ctx context.Context, c *Collection) error {
	settings, err := json.Marshal(c.Settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO collections (id, scene_id, name, output_path, format, preset_id, settings, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.SceneID, c.Name, c.OutputPath, string(c.Format), nullString(c.PresetID),
		string(settings), c.CreatedAt.Format(time.RFC3339), c.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return err
	}

	if err := insertMembers(ctx, tx, c.ID, c.Members); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetCollection(ctx context.Context, id string) (*Collection, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, scene_id, name, output_path, format, preset_id, settings, created_at, updated_at
		FROM collections WHERE id = ?
	`, id)
	return s.scanCollection(ctx, row)
}

func (s *SQLiteStore) GetCollectionByName(ctx context.Context, sceneID, name string) (*Collection, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, scene_id, name, output_path, format, preset_id, settings, created_at, updated_at
		FROM collections WHERE scene_id = ? AND name = ?
	`, sceneID, name)
	return s.scanCollection(ctx, row)
}

func (s *SQLiteStore) scanCollection(ctx context.Context, row *sql.Row) (*Collection, error) {
	c, err := scanCollectionColumns(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	members, err := s.loadMembers(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Members = members
	return c, nil
}

func (s *SQLiteStore) ListCollections(ctx context.Context, sceneID string) ([]*Collection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scene_id, name, output_path, format, preset_id, settings, created_at, updated_at
		FROM collections WHERE scene_id = ? ORDER BY name
	`, sceneID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var collections []*Collection
	for rows.Next() {
		c, err := scanCollectionColumns(rows.Scan)
		if err != nil {
			return nil, err
		}
		collections = append(collections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, c := range collections {
		members, err := s.loadMembers(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		c.Members = members
	}
	return collections, nil
}

func scanCollectionColumns(scan func(dest ...any) error) (*Collection, error) {
	var c Collection
	var format, settings, createdAt, updatedAt string
	var presetID sql.NullString

	err := scan(&c.ID, &c.SceneID, &c.Name, &c.OutputPath, &format, &presetID, &settings, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	c.Format = preset.Format(format)
	c.PresetID = presetID.String
	if err := json.Unmarshal([]byte(settings), &c.Settings); err != nil {
		c.Settings = map[string]any{}
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &c, nil
}

func (s *SQLiteStore) loadMembers(ctx context.Context, collectionID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT object_id FROM collection_members WHERE collection_id = ? ORDER BY position
	`, collectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		members = append(members, id)
	}
	return members, rows.Err()
}

func (s *SQLiteStore) UpdateCollectionName(ctx context.Context, id, name string) error {
	return s.touchUpdate(ctx, id, "UPDATE collections SET name = ?, updated_at = datetime('now') WHERE id = ?", name, id)
}

func (s *SQLiteStore) UpdateCollectionOutputPath(ctx context.Context, id, outputPath string) error {
	return s.touchUpdate(ctx, id, "UPDATE collections SET output_path = ?, updated_at = datetime('now') WHERE id = ?", outputPath, id)
}

func (s *SQLiteStore) UpdateCollectionFormat(ctx context.Context, id string, format preset.Format, settings map[string]any) error {
	encoded, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	return s.touchUpdate(ctx, id,
		"UPDATE collections SET format = ?, settings = ?, updated_at = datetime('now') WHERE id = ?",
		string(format), string(encoded), id)
}

func (s *SQLiteStore) touchUpdate(ctx context.Context, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) ReplaceMembers(ctx context.Context, id string, members []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM collection_members WHERE collection_id = ?", id); err != nil {
		return err
	}
	if err := insertMembers(ctx, tx, id, members); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE collections SET updated_at = datetime('now') WHERE id = ?", id); err != nil {
		return err
	}

	return tx.Commit()
}

func insertMembers(ctx context.Context, tx *sql.Tx, collectionID string, members []string) error {
	for i, objectID := range members {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO collection_members (collection_id, object_id, position) VALUES (?, ?, ?)
		`, collectionID, objectID, i)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) DeleteCollection(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM collections WHERE id = ?", id)
	return err
}

func (s *SQLiteStore) CountCollections(ctx context.Context, sceneID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM collections WHERE scene_id = ?", sceneID).Scan(&count)
	return count, err
}

func (s *SQLiteStore) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (s *SQLiteStore) SetConfig(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
