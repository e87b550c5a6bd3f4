package service

import (
	"fmt"
	"strings"
)

// Links builds absolute URLs into the add-on site.
type Links struct {
	SiteURL string
}

func (l Links) base() string {
	return strings.TrimRight(l.SiteURL, "/")
}

// Admin is the admin validation page.
func (l Links) Admin() string {
	return l.base() + "/admin/validation"
}

// Compat is the developer page of an add-on version.
func (l Links) Compat(addonID, versionID int64) string {
	return fmt.Sprintf("%s/developers/addon/%d/versions/%d", l.base(), addonID, versionID)
}

// Result is the developer page of one validation result.
func (l Links) Result(addonSlug string, resultID int64) string {
	return fmt.Sprintf("%s/developers/addon/%s/validation-result/%d", l.base(), addonSlug, resultID)
}
