package usecase

import (
	"errors"
	"fmt"
	"time"

	"go.ngs.io/gridprofiles/internal/domain"
)

// ErrInvalidRequest marks requests rejected before any network activity.
var ErrInvalidRequest = errors.New("invalid request")

// DefaultProgressEvery is the number of hours between progress log lines.
const DefaultProgressEvery = 24

// ProfileRequest encapsulates a profile generation request.
type ProfileRequest struct {
	// Inclusive date range; only the date part is used.
	Start time.Time
	End   time.Time

	Plants []domain.Plant
}

// validate checks the range and that every plant belongs to one of cats.
func (r *ProfileRequest) validate(cats ...domain.Category) error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", ErrInvalidRequest)
	}
	if r.End.Before(r.Start) {
		return fmt.Errorf("%w: end date %s is before start date %s", ErrInvalidRequest,
			r.End.Format(domain.DateLayout), r.Start.Format(domain.DateLayout))
	}
	if len(r.Plants) == 0 {
		return fmt.Errorf("%w: no plants given", ErrInvalidRequest)
	}

	seen := make(map[int32]bool, len(r.Plants))
	for _, p := range r.Plants {
		if seen[p.ID] {
			return fmt.Errorf("%w: duplicate plant_id %d", ErrInvalidRequest, p.ID)
		}
		seen[p.ID] = true

		ok := false
		for _, c := range cats {
			if p.Category == c {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("%w: plant %d has type %q, expected one of %v", ErrInvalidRequest, p.ID, p.Category, cats)
		}
	}
	return nil
}
