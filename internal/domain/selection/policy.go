// Package selection decides which files of an add-on are validated by a bulk job.
package selection

import (
	"slices"

	"github.com/target/mmk-bulkval/internal/domain/model"
)

// Rule names the branch of the policy that produced a selection.
type Rule string

const (
	// RulePublic anchors on the latest version with a public file.
	RulePublic Rule = "public"
	// RulePreliminary anchors on the latest version with a preliminary-reviewed file.
	RulePreliminary Rule = "preliminary"
	// RuleEligible takes every preliminary-eligible file.
	RuleEligible Rule = "eligible"
)

// Selection is the outcome of applying the policy to one add-on.
type Selection struct {
	Rule    Rule
	Anchor  int64 // version id the selection anchors on, 0 for RuleEligible
	FileIDs []int64
}

// Select returns the ids of the files to validate, deduplicated and sorted ascending.
func Select(candidates []model.CandidateFile) []int64 {
	return Apply(candidates).FileIDs
}

// Apply runs the policy in priority order:
//
//  1. latest public version: all of its files plus later preliminary-eligible files;
//  2. otherwise the latest preliminary version, with the same rule for later files;
//  3. otherwise every preliminary-eligible file.
//
// Versions are ordered by id.
func Apply(candidates []model.CandidateFile) Selection {
	if anchor, ok := latestVersion(candidates, model.FileStatus.IsPublic); ok {
		return Selection{Rule: RulePublic, Anchor: anchor, FileIDs: fromAnchor(candidates, anchor)}
	}
	if anchor, ok := latestVersion(candidates, model.FileStatus.IsPreliminary); ok {
		return Selection{Rule: RulePreliminary, Anchor: anchor, FileIDs: fromAnchor(candidates, anchor)}
	}

	ids := make([]int64, 0, len(candidates))
	for _, c := range candidates {
		if c.Status.IsPreliminaryEligible() {
			ids = append(ids, c.FileID)
		}
	}
	return Selection{Rule: RuleEligible, FileIDs: normalize(ids)}
}

func latestVersion(candidates []model.CandidateFile, match func(model.FileStatus) bool) (int64, bool) {
	var (
		latest int64
		found  bool
	)
	for _, c := range candidates {
		if !match(c.Status) {
			continue
		}
		if !found || c.VersionID > latest {
			latest = c.VersionID
			found = true
		}
	}
	return latest, found
}

func fromAnchor(candidates []model.CandidateFile, anchor int64) []int64 {
	ids := make([]int64, 0, len(candidates))
	for _, c := range candidates {
		switch {
		case c.VersionID == anchor:
			ids = append(ids, c.FileID)
		case c.VersionID > anchor && c.Status.IsPreliminaryEligible():
			ids = append(ids, c.FileID)
		}
	}
	return normalize(ids)
}

func normalize(ids []int64) []int64 {
	if len(ids) == 0 {
		return []int64{}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}
