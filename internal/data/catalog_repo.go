package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/target/mmk-bulkval/internal/core"
	"github.com/target/mmk-bulkval/internal/domain/model"
)

// CatalogRepo reads the add-on catalog.
type CatalogRepo struct {
	DB *sql.DB
}

// NewCatalogRepo creates a CatalogRepo.
func NewCatalogRepo(db *sql.DB) *CatalogRepo {
	return &CatalogRepo{DB: db}
}

func (r *CatalogRepo) one(ctx context.Context, notFound error, query string, args []any, dest ...any) error {
	err := r.DB.QueryRowContext(ctx, query, args...).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return err
}

// GetApplication loads an application.
func (r *CatalogRepo) GetApplication(ctx context.Context, id int64) (*model.Application, error) {
	var a model.Application
	if err := r.one(ctx, model.ErrApplicationNotFound,
		`SELECT id, guid, name FROM applications WHERE id = $1`, []any{id},
		&a.ID, &a.GUID, &a.Name); err != nil {
		return nil, fmt.Errorf("get application %d: %w", id, err)
	}
	return &a, nil
}

// GetAppVersion loads an application version.
func (r *CatalogRepo) GetAppVersion(ctx context.Context, id int64) (*model.AppVersion, error) {
	var v model.AppVersion
	if err := r.one(ctx, model.ErrAppVersionNotFound,
		`SELECT id, application_id, version FROM app_versions WHERE id = $1`, []any{id},
		&v.ID, &v.ApplicationID, &v.Version); err != nil {
		return nil, fmt.Errorf("get app version %d: %w", id, err)
	}
	return &v, nil
}

// GetAddon loads an add-on.
func (r *CatalogRepo) GetAddon(ctx context.Context, id int64) (*model.Addon, error) {
	var a model.Addon
	if err := r.one(ctx, model.ErrAddonNotFound,
		`SELECT id, slug, name FROM addons WHERE id = $1`, []any{id},
		&a.ID, &a.Slug, &a.Name); err != nil {
		return nil, fmt.Errorf("get addon %d: %w", id, err)
	}
	return &a, nil
}

// ListCandidateFiles returns every file of the add-on's versions whose compatibility
// entry for the application ends at the given max version.
func (r *CatalogRepo) ListCandidateFiles(ctx context.Context, q core.CandidateQuery) ([]model.CandidateFile, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT v.id, f.id, f.status
		FROM versions v
		JOIN applications_versions av ON av.version_id = v.id
		JOIN files f ON f.version_id = v.id
		WHERE v.addon_id = $1 AND av.application_id = $2 AND av.max_id = $3
		ORDER BY v.id, f.id
	`, q.AddonID, q.ApplicationID, q.CurrMaxVersionID)
	if err != nil {
		return nil, dbErr("list candidate files", err)
	}
	defer rows.Close()

	var out []model.CandidateFile
	for rows.Next() {
		var c model.CandidateFile
		if err := rows.Scan(&c.VersionID, &c.FileID, &c.Status); err != nil {
			return nil, fmt.Errorf("scan candidate file: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetVersionDetail loads a version and its add-on.
func (r *CatalogRepo) GetVersionDetail(ctx context.Context, versionID int64) (*model.VersionDetail, error) {
	var d model.VersionDetail
	if err := r.one(ctx, model.ErrVersionNotFound, `
		SELECT v.id, v.addon_id, v.version, a.id, a.slug, a.name
		FROM versions v JOIN addons a ON a.id = v.addon_id
		WHERE v.id = $1
	`, []any{versionID},
		&d.Version.ID, &d.Version.AddonID, &d.Version.Version, &d.Addon.ID, &d.Addon.Slug, &d.Addon.Name,
	); err != nil {
		return nil, fmt.Errorf("get version %d: %w", versionID, err)
	}
	return &d, nil
}

// GetFileDetail loads a file with its version and add-on.
func (r *CatalogRepo) GetFileDetail(ctx context.Context, fileID int64) (*model.FileDetail, error) {
	var d model.FileDetail
	if err := r.one(ctx, model.ErrFileNotFound, `
		SELECT f.id, f.version_id, f.filename, f.file_path, f.status,
		       v.id, v.addon_id, v.version, a.id, a.slug, a.name
		FROM files f
		JOIN versions v ON v.id = f.version_id
		JOIN addons a ON a.id = v.addon_id
		WHERE f.id = $1
	`, []any{fileID},
		&d.File.ID, &d.File.VersionID, &d.File.Filename, &d.File.FilePath, &d.File.Status,
		&d.Version.ID, &d.Version.AddonID, &d.Version.Version, &d.Addon.ID, &d.Addon.Slug, &d.Addon.Name,
	); err != nil {
		return nil, fmt.Errorf("get file %d: %w", fileID, err)
	}
	return &d, nil
}

// ListCompatEntries returns the version's compatibility entries for an application.
func (r *CatalogRepo) ListCompatEntries(ctx context.Context, versionID, applicationID int64) ([]*model.CompatEntry, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT av.id, av.version_id, av.application_id, av.min_id, av.max_id, mx.version
		FROM applications_versions av
		JOIN app_versions mx ON mx.id = av.max_id
		WHERE av.version_id = $1 AND av.application_id = $2
		ORDER BY av.id
	`, versionID, applicationID)
	if err != nil {
		return nil, dbErr("list compat entries", err)
	}
	defer rows.Close()

	var out []*model.CompatEntry
	for rows.Next() {
		var e model.CompatEntry
		if err := rows.Scan(&e.ID, &e.VersionID, &e.ApplicationID, &e.MinVersionID, &e.MaxVersionID, &e.MaxVersion); err != nil {
			return nil, fmt.Errorf("scan compat entry: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// SetCompatMax moves a compatibility entry's max version.
func (r *CatalogRepo) SetCompatMax(ctx context.Context, entryID, maxVersionID int64) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE applications_versions SET max_id = $2 WHERE id = $1`, entryID, maxVersionID)
	if err != nil {
		return dbErr("set compat max", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set compat max rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("compat entry %d: %w", entryID, model.ErrVersionNotFound)
	}
	return nil
}

// ListAuthors returns the add-on's authors in listing order.
func (r *CatalogRepo) ListAuthors(ctx context.Context, addonID int64) ([]model.Author, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT u.id, u.email
		FROM addon_users au JOIN users u ON u.id = au.user_id
		WHERE au.addon_id = $1
		ORDER BY au.position, u.id
	`, addonID)
	if err != nil {
		return nil, dbErr("list authors", err)
	}
	defer rows.Close()

	var out []model.Author
	for rows.Next() {
		var a model.Author
		if err := rows.Scan(&a.ID, &a.Email); err != nil {
			return nil, fmt.Errorf("scan author: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

var _ core.CatalogRepository = (*CatalogRepo)(nil)
