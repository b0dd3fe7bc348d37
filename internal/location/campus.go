package location

import (
	"context"
	"fmt"

	"github.com/SolomonGao/UniPick-sub000/internal/geocode"
	"github.com/SolomonGao/UniPick-sub000/pkg/models"
)

// CampusSource resolves the configured campus label through the
// geocoder and uses the best match as the browsing coordinate. An
// empty label or a label the geocoder cannot place both surface as
// ErrUnavailable.
func CampusSource(g geocode.Client, campus string) Source {
	return SourceFunc(func(ctx context.Context) (models.Coordinate, error) {
		if campus == "" {
			return models.Coordinate{}, fmt.Errorf("%w: no campus configured", ErrUnavailable)
		}
		places, err := g.Forward(ctx, campus)
		if err != nil {
			return models.Coordinate{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if len(places) == 0 {
			return models.Coordinate{}, fmt.Errorf("%w: campus %q not found", ErrUnavailable, campus)
		}
		return places[0].Coord, nil
	})
}
