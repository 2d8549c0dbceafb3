package app

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"carpark_aggregator/internal/domain"
)

/********** payload shape **********/

// listAt returns root[key] as a list. Anything else is a ShapeError.
func listAt(feed string, root any, key string) ([]any, error) {
	obj, ok := root.(map[string]any)
	if !ok {
		return nil, &domain.ShapeError{Feed: feed, Key: "$", Want: "an object"}
	}
	v, ok := obj[key]
	if !ok {
		return nil, &domain.ShapeError{Feed: feed, Key: key, Want: "present"}
	}
	list, ok := v.([]any)
	if !ok {
		return nil, &domain.ShapeError{Feed: feed, Key: key, Want: "a list"}
	}
	return list, nil
}

// idOf returns the first usable id among keys, with the key it came from.
func idOf(m map[string]any, keys ...string) (id any, key, field string, ok bool) {
	for _, k := range keys {
		v, present := m[k]
		if !present {
			continue
		}
		if canon, usable := domain.KeyOf(v); usable {
			return v, canon, k, true
		}
	}
	return nil, "", "", false
}

/********** tiny helpers **********/

// stringOr: strings pass through, other scalars are formatted, nil/missing take def.
func stringOr(v any, def string) string {
	switch t := v.(type) {
	case nil:
		return def
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return def
	}
}

// numberOr: numbers and strings holding a JSON number literal pass through,
// anything else takes def. "NaN", "+5", ".5" or "0x1p4" are not numbers here.
func numberOr(v any, def json.Number) json.Number {
	switch t := v.(type) {
	case json.Number:
		if isNumberLiteral(t.String()) {
			return t
		}
	case float64:
		if !math.IsNaN(t) && !math.IsInf(t, 0) {
			return json.Number(strconv.FormatFloat(t, 'f', -1, 64))
		}
	case int:
		return json.Number(strconv.Itoa(t))
	case string:
		if s := strings.TrimSpace(t); isNumberLiteral(s) {
			return json.Number(s)
		}
	}
	return def
}

func isNumberLiteral(s string) bool {
	if s == "" || (s[0] != '-' && (s[0] < '0' || s[0] > '9')) {
		return false
	}
	return json.Valid([]byte(s))
}

// sortedKeys gives a stable iteration order over a decoded object.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

/********** vacancy mappers **********/

// hourlyEntry maps one inline vacancy-info object of the hourly feed.
func hourlyEntry(vehicle string, info map[string]any) domain.VehicleType {
	return domain.VehicleType{
		Type: vehicle,
		ServiceCategories: []domain.ServiceCategory{{
			Category:    domain.CategoryHourly,
			VacancyType: stringOr(info["vacancy_type"], domain.NotAvailable),
			Vacancy:     numberOr(info["vacancy"], domain.UnknownVacancy),
			LastUpdate:  stringOr(info["lastupdate"], domain.NotAvailable),
		}},
	}
}

// vehicleTypesFrom takes an upstream vehicle_type list element by element,
// unchanged. Only a value that is not a list is rejected.
func vehicleTypesFrom(v any) ([]domain.VehicleType, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("vehicle_type is %T, not a list", v)
	}
	out := make([]domain.VehicleType, 0, len(list))
	for i, it := range list {
		vt, err := domain.VehicleTypeOf(it)
		if err != nil {
			return nil, fmt.Errorf("vehicle_type[%d]: %w", i, err)
		}
		out = append(out, vt)
	}
	return out, nil
}

/********** language mappers **********/

// languageDoc copies an info/vacancy entry with its id normalized to park_id.
func languageDoc(entry map[string]any, id any) domain.Document {
	doc := make(domain.Document, len(entry))
	doc[domain.FieldParkID] = id
	for k, v := range entry {
		if k == domain.FieldLegacyID {
			continue
		}
		doc[k] = v
	}
	return doc
}

// languagesFrom maps a {lang: {...}} object, used when basic info carries carpark_info_vacancy.
func languagesFrom(v any) (map[string]domain.Document, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("carpark_info_vacancy is %T, not an object", v)
	}
	out := make(map[string]domain.Document, len(obj))
	for lang, d := range obj {
		dm, ok := d.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("carpark_info_vacancy[%s] is %T, not an object", lang, d)
		}
		out[lang] = domain.Document(dm)
	}
	return out, nil
}
