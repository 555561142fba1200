package scm

import (
	"fmt"

	"github.com/chmouel/lazyhg/internal/models"
)

// UnknownStatusError is returned when hg reports a status letter lazyhg does not know.
type UnknownStatusError struct {
	Code string
	Path string
}

func (e *UnknownStatusError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("unknown status code %q", e.Code)
	}
	return fmt.Sprintf("unknown status code %q for %s", e.Code, e.Path)
}

// TranslateStatus maps a raw hg status letter to a Status.
// An added file with a copy source is reported as renamed.
func TranslateStatus(raw string, renamed bool) (models.Status, error) {
	switch raw {
	case "M":
		return models.StatusModified, nil
	case "R":
		return models.StatusDeleted, nil
	case "I":
		return models.StatusIgnored, nil
	case "?":
		return models.StatusUntracked, nil
	case "!":
		return models.StatusMissing, nil
	case "A":
		if renamed {
			return models.StatusRenamed, nil
		}
		return models.StatusAdded, nil
	case "C":
		return models.StatusClean, nil
	default:
		return 0, &UnknownStatusError{Code: raw}
	}
}

// ToMergeStatus maps a raw hg resolve --list letter to a MergeStatus.
// Anything other than R or U means the file takes no part in merge resolution.
func ToMergeStatus(raw string) models.MergeStatus {
	switch raw {
	case "R":
		return models.MergeStatusResolved
	case "U":
		return models.MergeStatusUnresolved
	default:
		return models.MergeStatusNone
	}
}
