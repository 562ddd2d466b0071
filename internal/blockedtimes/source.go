package blockedtimes

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/clinic-crm/internal/availability"
)

// Source feeds active blocked times to the availability checker.
type Source struct {
	repo Repository
}

// NewSource wraps repo as an availability.BlockLister.
func NewSource(repo Repository) *Source {
	return &Source{repo: repo}
}

var _ availability.BlockLister = (*Source)(nil)

func (s *Source) ListBlocks(ctx context.Context, providerID uuid.UUID, window availability.Interval) ([]availability.Block, error) {
	rows, err := s.repo.List(ctx, ListFilter{ProviderID: &providerID, Window: &window})
	if err != nil {
		return nil, err
	}
	out := make([]availability.Block, 0, len(rows))
	for _, b := range rows {
		out = append(out, b.Block())
	}
	return out, nil
}

// Expand lists the concrete instances of rows inside window, evaluating
// recurrence wall-clock times in loc.
func Expand(rows []*BlockedTime, window availability.Interval, loc *time.Location) []Occurrence {
	var out []Occurrence
	for _, b := range rows {
		block := b.Block()
		block.Start = block.Start.In(loc)
		block.End = block.End.In(loc)
		for _, iv := range availability.Expand(block, window) {
			occ := Occurrence{BlockedTime: *b, SeriesStart: b.Start}
			occ.Start = iv.Start.In(loc)
			occ.End = iv.End.In(loc)
			out = append(out, occ)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}
