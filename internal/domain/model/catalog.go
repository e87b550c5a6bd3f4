package model

import "errors"

// FileStatus is the review status code of a catalog file.
type FileStatus int16

// Catalog review statuses.
const (
	FileStatusNull             FileStatus = 0
	FileStatusUnreviewed       FileStatus = 1
	FileStatusPending          FileStatus = 2
	FileStatusNominated        FileStatus = 3
	FileStatusPublic           FileStatus = 4
	FileStatusDisabled         FileStatus = 5
	FileStatusListed           FileStatus = 6
	FileStatusBeta             FileStatus = 7
	FileStatusLite             FileStatus = 8
	FileStatusLiteAndNominated FileStatus = 9
	FileStatusPurgatory        FileStatus = 10
	FileStatusDeleted          FileStatus = 11
)

// IsPublic reports whether the file is fully reviewed and public.
func (s FileStatus) IsPublic() bool {
	return s == FileStatusPublic
}

// IsPreliminary reports whether the file passed preliminary ("lite") review.
func (s FileStatus) IsPreliminary() bool {
	return s == FileStatusLite || s == FileStatusLiteAndNominated
}

// IsUnderReview reports whether the file is awaiting a review.
func (s FileStatus) IsUnderReview() bool {
	return s == FileStatusUnreviewed || s == FileStatusNominated || s == FileStatusLiteAndNominated
}

// IsPreliminaryEligible reports whether the file can be picked up for bulk validation
// alongside a reviewed version: anything under review, plus the beta channel.
func (s FileStatus) IsPreliminaryEligible() bool {
	return s.IsUnderReview() || s == FileStatusBeta
}

// Application is a target client application (e.g. Firefox).
type Application struct {
	ID   int64  `json:"id"   db:"id"`
	GUID string `json:"guid" db:"guid"`
	Name string `json:"name" db:"name"`
}

// AppVersion is a released version of an application.
type AppVersion struct {
	ID            int64  `json:"id"             db:"id"`
	ApplicationID int64  `json:"application_id" db:"application_id"`
	Version       string `json:"version"        db:"version"`
}

// Addon is a catalog add-on.
type Addon struct {
	ID   int64  `json:"id"   db:"id"`
	Slug string `json:"slug" db:"slug"`
	Name string `json:"name" db:"name"`
}

// Version is a released version of an add-on.
type Version struct {
	ID      int64  `json:"id"       db:"id"`
	AddonID int64  `json:"addon_id" db:"addon_id"`
	Version string `json:"version"  db:"version"`
}

// File is an uploaded file belonging to an add-on version.
type File struct {
	ID        int64      `json:"id"         db:"id"`
	VersionID int64      `json:"version_id" db:"version_id"`
	Filename  string     `json:"filename"   db:"filename"`
	FilePath  string     `json:"file_path"  db:"file_path"`
	Status    FileStatus `json:"status"     db:"status"`
}

// CandidateFile is one file of an add-on version that matched a job's compatibility range.
type CandidateFile struct {
	VersionID int64      `db:"version_id"`
	FileID    int64      `db:"file_id"`
	Status    FileStatus `db:"status"`
}

// CompatEntry states which application versions an add-on version supports.
type CompatEntry struct {
	ID            int64  `json:"id"             db:"id"`
	VersionID     int64  `json:"version_id"     db:"version_id"`
	ApplicationID int64  `json:"application_id" db:"application_id"`
	MinVersionID  int64  `json:"min_id"         db:"min_id"`
	MaxVersionID  int64  `json:"max_id"         db:"max_id"`
	MaxVersion    string `json:"max_version"    db:"max_version"`
}

// Author is a user listed as an author of an add-on.
type Author struct {
	ID    int64  `json:"id"    db:"id"`
	Email string `json:"email" db:"email"`
}

// VersionDetail is a version joined with its owning add-on.
type VersionDetail struct {
	Version Version
	Addon   Addon
}

// FileDetail is a file joined with its version and add-on.
type FileDetail struct {
	File    File
	Version Version
	Addon   Addon
}

// Catalog lookup errors.
var (
	ErrApplicationNotFound = errors.New("application not found")
	ErrAppVersionNotFound  = errors.New("application version not found")
	ErrAddonNotFound       = errors.New("addon not found")
	ErrVersionNotFound     = errors.New("version not found")
	ErrFileNotFound        = errors.New("file not found")
)
