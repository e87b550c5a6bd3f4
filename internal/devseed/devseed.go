// Package devseed loads a small demo catalog so a development database can run a
// bulk validation job end to end.
package devseed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/mmk-bulkval/internal/data/pgxutil"
	"github.com/target/mmk-bulkval/internal/domain/model"
)

// FirefoxGUID is the application guid used for the demo catalog.
const FirefoxGUID = "{ec8030f7-c20a-464f-9b0e-13a3a9e97384}"

// Result identifies the rows a job can be created against.
type Result struct {
	ApplicationID    int64
	CurrMaxVersionID int64
	TargetVersionID  int64
	AddonIDs         []int64
}

type addonSeed struct {
	slug    string
	name    string
	authors []string
	// versions maps a version string to the status of its single file.
	versions []versionSeed
}

type versionSeed struct {
	version string
	status  model.FileStatus
	// maxApp is the app version the version is currently marked compatible up to.
	maxApp string
}

var appVersions = []string{"3.6", "4.0", "5.0"}

const (
	currMax = "4.0"
	target  = "5.0"
)

func defaultAddons() []addonSeed {
	return []addonSeed{
		{
			slug:    "tab-sorter",
			name:    "Tab Sorter",
			authors: []string{"tabs@example.com"},
			versions: []versionSeed{
				{version: "1.0", status: model.FileStatusPublic, maxApp: currMax},
				{version: "1.1", status: model.FileStatusPublic, maxApp: currMax},
			},
		},
		{
			slug:    "reader-mode-plus",
			name:    "Reader Mode Plus",
			authors: []string{"reader@example.com", "helper@example.com"},
			versions: []versionSeed{
				{version: "2.3", status: model.FileStatusPublic, maxApp: currMax},
				{version: "2.4b1", status: model.FileStatusBeta, maxApp: currMax},
			},
		},
		{
			slug:    "legacy-toolbar",
			name:    "Legacy Toolbar",
			authors: []string{"toolbar@example.com"},
			versions: []versionSeed{
				{version: "0.9", status: model.FileStatusUnreviewed, maxApp: "3.6"},
			},
		},
	}
}

// Run seeds the demo catalog. Rows that already exist are reused, so running it
// twice leaves the catalog unchanged.
func Run(ctx context.Context, db *sql.DB, logger *slog.Logger) (*Result, error) {
	if db == nil {
		return nil, errors.New("database connection is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "devseed")

	res := &Result{}
	err := pgxutil.InTx(ctx, db, nil, func(tx *sql.Tx) error {
		s := seeder{ctx: ctx, tx: tx, logger: logger}
		appID, err := s.application("Firefox", FirefoxGUID)
		if err != nil {
			return err
		}
		res.ApplicationID = appID

		appVersionIDs := make(map[string]int64, len(appVersions))
		for _, v := range appVersions {
			id, verr := s.appVersion(appID, v)
			if verr != nil {
				return verr
			}
			appVersionIDs[v] = id
		}
		res.CurrMaxVersionID = appVersionIDs[currMax]
		res.TargetVersionID = appVersionIDs[target]

		for _, a := range defaultAddons() {
			addonID, aerr := s.addon(a, appID, appVersionIDs)
			if aerr != nil {
				return fmt.Errorf("seed addon %s: %w", a.slug, aerr)
			}
			res.AddonIDs = append(res.AddonIDs, addonID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "demo catalog ready",
		"application_id", res.ApplicationID,
		"curr_max_version_id", res.CurrMaxVersionID,
		"target_version_id", res.TargetVersionID,
		"addons", len(res.AddonIDs))
	return res, nil
}

type seeder struct {
	ctx    context.Context
	tx     *sql.Tx
	logger *slog.Logger
}

func (s seeder) application(name, guid string) (int64, error) {
	var id int64
	err := s.tx.QueryRowContext(s.ctx, `
		INSERT INTO applications (guid, name) VALUES ($1, $2)
		ON CONFLICT (guid) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, guid, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("seed application: %w", err)
	}
	return id, nil
}

func (s seeder) appVersion(appID int64, version string) (int64, error) {
	var id int64
	err := s.tx.QueryRowContext(s.ctx, `
		INSERT INTO app_versions (application_id, version) VALUES ($1, $2)
		ON CONFLICT (application_id, version) DO UPDATE SET version = EXCLUDED.version
		RETURNING id`, appID, version).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("seed app version %s: %w", version, err)
	}
	return id, nil
}

func (s seeder) addon(a addonSeed, appID int64, appVersionIDs map[string]int64) (int64, error) {
	var addonID int64
	err := s.tx.QueryRowContext(s.ctx, `
		INSERT INTO addons (slug, name) VALUES ($1, $2)
		ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, a.slug, a.name).Scan(&addonID)
	if err != nil {
		return 0, err
	}

	for pos, email := range a.authors {
		userID, uerr := s.user(email)
		if uerr != nil {
			return 0, uerr
		}
		if _, err = s.tx.ExecContext(s.ctx, `
			INSERT INTO addon_users (addon_id, user_id, position) VALUES ($1, $2, $3)
			ON CONFLICT (addon_id, user_id) DO NOTHING`, addonID, userID, pos); err != nil {
			return 0, fmt.Errorf("link author %s: %w", email, err)
		}
	}

	for _, v := range a.versions {
		created, verr := s.version(addonID, a.slug, v, appID, appVersionIDs)
		if verr != nil {
			return 0, verr
		}
		if created {
			s.logger.InfoContext(s.ctx, "created version", "addon", a.slug, "version", v.version)
		}
	}
	return addonID, nil
}

func (s seeder) user(email string) (int64, error) {
	var id int64
	err := s.tx.QueryRowContext(s.ctx, `SELECT id FROM users WHERE email = $1 ORDER BY id LIMIT 1`, email).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("find user %s: %w", email, err)
	}
	if err = s.tx.QueryRowContext(s.ctx,
		`INSERT INTO users (email) VALUES ($1) RETURNING id`, email).Scan(&id); err != nil {
		return 0, fmt.Errorf("create user %s: %w", email, err)
	}
	return id, nil
}

func (s seeder) version(
	addonID int64,
	slug string,
	v versionSeed,
	appID int64,
	appVersionIDs map[string]int64,
) (bool, error) {
	var versionID int64
	err := s.tx.QueryRowContext(s.ctx,
		`SELECT id FROM versions WHERE addon_id = $1 AND version = $2`, addonID, v.version).Scan(&versionID)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("find version %s: %w", v.version, err)
	}

	if err = s.tx.QueryRowContext(s.ctx,
		`INSERT INTO versions (addon_id, version) VALUES ($1, $2) RETURNING id`,
		addonID, v.version).Scan(&versionID); err != nil {
		return false, fmt.Errorf("create version %s: %w", v.version, err)
	}
	filename := fmt.Sprintf("%s-%s.xpi", slug, v.version)
	if _, err = s.tx.ExecContext(s.ctx, `
		INSERT INTO files (version_id, filename, file_path, status) VALUES ($1, $2, $3, $4)`,
		versionID, filename, "/var/addons/"+slug+"/"+filename, int16(v.status)); err != nil {
		return false, fmt.Errorf("create file for %s: %w", v.version, err)
	}
	if _, err = s.tx.ExecContext(s.ctx, `
		INSERT INTO applications_versions (version_id, application_id, min_id, max_id)
		VALUES ($1, $2, $3, $4)`,
		versionID, appID, appVersionIDs[appVersions[0]], appVersionIDs[v.maxApp]); err != nil {
		return false, fmt.Errorf("create compat entry for %s: %w", v.version, err)
	}
	return true, nil
}
