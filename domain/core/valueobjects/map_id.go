package valueobjects

import (
	"fmt"
	"regexp"

	pkgerrors "github.com/zhaizeyu/smart-mind/pkg/errors"
)

var mapIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateMapID rejects map ids that are unsafe as file names or storage
// keys. Stores and the workspace both check it, so a bad id never reaches
// a repository or takes a session slot.
func ValidateMapID(mapID string) error {
	if !mapIDPattern.MatchString(mapID) {
		return pkgerrors.NewValidationError(fmt.Sprintf("invalid map id %q", mapID)).
			WithCode("INVALID_MAP_ID")
	}
	return nil
}
