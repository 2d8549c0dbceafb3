package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"carpark_aggregator/internal/domain"
)

// EnrichBasicInfo shallow-merges static facility metadata into reg. Metadata
// wins on every key it carries; facilities not yet seen are created with an
// empty vehicle_type list.
func EnrichBasicInfo(ctx context.Context, reg *Registry, payload any) error {
	parks, err := listAt("basic_info", payload, carParkKey)
	if err != nil {
		return err
	}
	l := log.Ctx(ctx)
	for i, it := range parks {
		park, ok := it.(map[string]any)
		if !ok {
			l.Debug().Int("index", i).Msg("basic_info: skipping non-object entry")
			continue
		}
		id, key, _, ok := idOf(park, domain.FieldParkID)
		if !ok {
			l.Warn().Int("index", i).Msg("basic_info: entry without park_id")
			continue
		}

		fields := make(map[string]any, len(park))
		var (
			vts   []domain.VehicleType
			langs map[string]domain.Document
		)
		for k, v := range park {
			switch k {
			case domain.FieldParkID:
			case domain.FieldVehicleType:
				if vts, err = vehicleTypesFrom(v); err != nil {
					l.Warn().Str("park_id", key).Err(err).Msg("basic_info: dropping vehicle_type")
				}
			case domain.FieldLanguages:
				if langs, err = languagesFrom(v); err != nil {
					l.Warn().Str("park_id", key).Err(err).Msg("basic_info: dropping carpark_info_vacancy")
				}
			default:
				fields[k] = v
			}
		}
		reg.mergeInfo(id, key, fields, vts, langs)
	}
	return nil
}
