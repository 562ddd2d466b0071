package availability

import (
	"context"

	"github.com/google/uuid"
)

type stubDirectory map[uuid.UUID]string

func (d stubDirectory) ProviderWorkingHours(_ context.Context, id uuid.UUID) (string, error) {
	hours, ok := d[id]
	if !ok {
		return "", ErrProviderNotFound
	}
	return hours, nil
}

type stubAppointments struct {
	busy    []Busy
	windows []Interval
}

func (s *stubAppointments) ListBusy(_ context.Context, _ uuid.UUID, window Interval) ([]Busy, error) {
	s.windows = append(s.windows, window)
	var out []Busy
	for _, b := range s.busy {
		if b.Interval.Overlaps(window) {
			out = append(out, b)
		}
	}
	return out, nil
}

type stubBlocks []Block

func (s stubBlocks) ListBlocks(context.Context, uuid.UUID, Interval) ([]Block, error) {
	return s, nil
}
