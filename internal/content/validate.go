package content

import (
	"strings"

	apperrors "github.com/samherejoy-web/BTools-sub000/pkg/errors"
)

const (
	maxTitleLength = 1024
	maxBodyLength  = 1 << 20
)

// Validate rejects items missing the fields the engine cannot work without.
func Validate(item Item) error {
	if strings.TrimSpace(item.ID) == "" {
		return apperrors.InvalidParameter("item id is required")
	}
	if strings.TrimSpace(item.Title) == "" {
		return apperrors.InvalidParameter("item %s: title is required", item.ID)
	}
	if len(item.Title) > maxTitleLength {
		return apperrors.InvalidParameter("item %s: title must be at most %d characters", item.ID, maxTitleLength)
	}
	if len(item.Body) > maxBodyLength {
		return apperrors.InvalidParameter("item %s: body must be at most %d bytes", item.ID, maxBodyLength)
	}
	if !item.Type.Valid() {
		return apperrors.InvalidParameter("item %s: unknown type %d", item.ID, int(item.Type))
	}
	return nil
}
