package workflow

import (
	"sort"

	"studio-portal/internal/models"
)

// CanModifySelection reports whether the client may still change their picks.
func CanModifySelection(s *models.Session) bool {
	return s.Status == models.StatusActive
}

// CanSubmitSelection decides whether selection may be submitted for s.
func CanSubmitSelection(s *models.Session, selection []models.SelectionItem) error {
	if len(selection) == 0 {
		return ErrEmptySelection
	}
	if len(selection) > s.PackageLimit {
		return newError(CodeLimitExceeded, "cannot select more than %d images", s.PackageLimit)
	}
	if s.Status != models.StatusActive {
		return ErrAlreadySubmitted
	}
	return nil
}

// IsStageReadyToAdvance reports whether every image's latest revision is
// approved. A session with no revisions is never ready.
func IsStageReadyToAdvance(s *models.Session) bool {
	latest := LatestRevisions(s.ClientData.RevisionHistory)
	if len(latest) == 0 {
		return false
	}
	for _, rev := range latest {
		if rev.Status != models.RevisionApproved {
			return false
		}
	}
	return true
}

// LatestRevisions keeps the highest version per filename. On equal versions
// the entry seen first wins.
func LatestRevisions(history []models.RevisionItem) map[string]models.RevisionItem {
	idx := latestIndex(history)
	out := make(map[string]models.RevisionItem, len(idx))
	for name, i := range idx {
		out[name] = history[i]
	}
	return out
}

// SortedLatest is LatestRevisions ordered by filename.
func SortedLatest(history []models.RevisionItem) []models.RevisionItem {
	latest := LatestRevisions(history)
	out := make([]models.RevisionItem, 0, len(latest))
	for _, rev := range latest {
		out = append(out, rev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out
}

func latestIndex(history []models.RevisionItem) map[string]int {
	idx := make(map[string]int)
	for i, rev := range history {
		cur, ok := idx[rev.Filename]
		if !ok || rev.Version > history[cur].Version {
			idx[rev.Filename] = i
		}
	}
	return idx
}
