package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"carpark_aggregator/internal/domain"
)

// Top-level list keys of the feeds.
const (
	resultsKey = "results"  // info/vacancy API (hourly vacancy and language variants)
	carParkKey = "car_park" // static resource files (vacancy and basic info)
)

// MergeVacancy folds the two vacancy feeds into reg: the hourly feed first,
// then the normalized feed appended onto it. Field-level irregularities
// degrade to sentinels; only a missing top-level list is an error.
func MergeVacancy(ctx context.Context, reg *Registry, hourly, normalized any) error {
	if err := mergeHourly(ctx, reg, hourly); err != nil {
		return err
	}
	return mergeNormalized(ctx, reg, normalized)
}

// mergeHourly reads {"results":[{"park_Id":..,"<vehicle>":[{vacancy-info}..]}]}.
// Every non-id field names a vehicle type; each vacancy-info object becomes
// its own VehicleType with a single HOURLY service category.
func mergeHourly(ctx context.Context, reg *Registry, payload any) error {
	parks, err := listAt("vacancy_info", payload, resultsKey)
	if err != nil {
		return err
	}
	l := log.Ctx(ctx)
	for i, it := range parks {
		park, ok := it.(map[string]any)
		if !ok {
			l.Debug().Int("index", i).Msg("vacancy_info: skipping non-object entry")
			continue
		}
		id, key, idField, ok := idOf(park, domain.FieldLegacyID, domain.FieldParkID)
		if !ok {
			l.Warn().Int("index", i).Msg("vacancy_info: entry without park_Id")
			continue
		}

		vts := []domain.VehicleType{}
		for _, vehicle := range sortedKeys(park) {
			if vehicle == idField || vehicle == domain.FieldLegacyID {
				continue
			}
			infos, ok := park[vehicle].([]any)
			if !ok {
				l.Debug().Str("park_id", key).Str("field", vehicle).Msg("vacancy_info: field is not a vacancy list")
				continue
			}
			for _, raw := range infos {
				info, ok := raw.(map[string]any)
				if !ok {
					l.Debug().Str("park_id", key).Str("field", vehicle).Msg("vacancy_info: skipping non-object vacancy info")
					continue
				}
				vts = append(vts, hourlyEntry(vehicle, info))
			}
		}
		reg.setVehicleTypes(id, key, vts)
	}
	return nil
}

// mergeNormalized reads {"car_park":[{"park_id":..,"vehicle_type":[..]}]} and
// appends its vehicle types, creating facilities it has not seen.
func mergeNormalized(ctx context.Context, reg *Registry, payload any) error {
	parks, err := listAt("vacancy", payload, carParkKey)
	if err != nil {
		return err
	}
	l := log.Ctx(ctx)
	for i, it := range parks {
		park, ok := it.(map[string]any)
		if !ok {
			l.Debug().Int("index", i).Msg("vacancy: skipping non-object entry")
			continue
		}
		id, key, _, ok := idOf(park, domain.FieldParkID)
		if !ok {
			l.Warn().Int("index", i).Msg("vacancy: entry without park_id")
			continue
		}
		vts, err := vehicleTypesFrom(park[domain.FieldVehicleType])
		if err != nil {
			l.Debug().Str("park_id", key).Err(err).Msg("vacancy: no vehicle types")
		}
		reg.appendVehicleTypes(id, key, vts)
	}
	return nil
}
