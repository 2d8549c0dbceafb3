package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Record field names shared by every feed.
const (
	FieldParkID      = "park_id"
	FieldLegacyID    = "park_Id" // id spelling used by the info/vacancy API
	FieldVehicleType = "vehicle_type"
	FieldLanguages   = "carpark_info_vacancy"
)

// Defaults for vacancy entries whose upstream fields are missing.
const (
	CategoryHourly = "HOURLY"
	NotAvailable   = "N/A"
	UnknownVacancy = json.Number("-1")
)

type ServiceCategory struct {
	Category    string      `json:"category"`
	VacancyType string      `json:"vacancy_type"`
	Vacancy     json.Number `json:"vacancy"`
	LastUpdate  string      `json:"lastupdate"`
}

// VehicleType is one vehicle_type entry. Entries built from the hourly feed
// only use the typed fields. Entries taken from an upstream vehicle_type list
// also keep the upstream bytes in Raw; Raw is what gets emitted, the typed
// fields are a read-only view of it.
type VehicleType struct {
	Type              string            `json:"type"`
	ServiceCategories []ServiceCategory `json:"service_category"`
	Raw               json.RawMessage   `json:"-"`
}

// VehicleTypeOf wraps an upstream vehicle_type element as-is.
func VehicleTypeOf(v any) (VehicleType, error) {
	b, err := encode(v)
	if err != nil {
		return VehicleType{}, err
	}
	return rawVehicleType(b)
}

func rawVehicleType(b []byte) (VehicleType, error) {
	var v any
	if err := unmarshalNumber(b, &v); err != nil {
		return VehicleType{}, err
	}
	vt := VehicleType{Raw: append(json.RawMessage(nil), b...)}
	m, ok := v.(map[string]any)
	if !ok {
		return vt, nil
	}
	vt.Type, _ = m["type"].(string)
	cats, _ := m["service_category"].([]any)
	for _, c := range cats {
		cm, ok := c.(map[string]any)
		if !ok {
			continue
		}
		var sc ServiceCategory
		sc.Category, _ = cm["category"].(string)
		sc.VacancyType, _ = cm["vacancy_type"].(string)
		sc.Vacancy, _ = cm["vacancy"].(json.Number)
		sc.LastUpdate, _ = cm["lastupdate"].(string)
		vt.ServiceCategories = append(vt.ServiceCategories, sc)
	}
	return vt, nil
}

func (v VehicleType) MarshalJSON() ([]byte, error) {
	if v.Raw != nil {
		return v.Raw, nil
	}
	type plain VehicleType
	return encode(plain(v))
}

func (v *VehicleType) UnmarshalJSON(b []byte) error {
	vt, err := rawVehicleType(b)
	if err != nil {
		return err
	}
	*v = vt
	return nil
}

// Document is one facility's info/vacancy payload in one language.
type Document map[string]any

// Facility is the merged record for one park_id.
//
// VehicleTypes and Languages distinguish absent (nil) from empty: a facility
// only seen by the language feed has no vehicle_type key at all.
type Facility struct {
	Key          string // canonical join key
	ParkID       any    // id as the first source spelled it
	Info         map[string]any
	VehicleTypes []VehicleType
	Languages    map[string]Document
}

func (f Facility) HasVehicleTypes() bool { return f.VehicleTypes != nil }

// MarshalJSON writes park_id first, then vehicle_type, the metadata fields in
// key order and carpark_info_vacancy last. '&', '<' and '>' are not escaped.
func (f Facility) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	n := 0
	put := func(k string, v any) error {
		vb, err := encode(v)
		if err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		kb, _ := encode(k)
		if n > 0 {
			buf.WriteByte(',')
		}
		n++
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
		return nil
	}

	if err := put(FieldParkID, f.ParkID); err != nil {
		return nil, err
	}
	if f.VehicleTypes != nil {
		if err := put(FieldVehicleType, f.VehicleTypes); err != nil {
			return nil, err
		}
	}
	keys := make([]string, 0, len(f.Info))
	for k := range f.Info {
		switch k {
		case FieldParkID, FieldVehicleType, FieldLanguages:
		default:
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := put(k, f.Info[k]); err != nil {
			return nil, err
		}
	}
	if f.Languages != nil {
		if err := put(FieldLanguages, f.Languages); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (f *Facility) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw map[string]json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	var out Facility
	if v, ok := raw[FieldParkID]; ok {
		if err := unmarshalNumber(v, &out.ParkID); err != nil {
			return fmt.Errorf("park_id: %w", err)
		}
		delete(raw, FieldParkID)
	}
	key, ok := KeyOf(out.ParkID)
	if !ok {
		return fmt.Errorf("record without usable park_id")
	}
	out.Key = key

	if v, ok := raw[FieldVehicleType]; ok {
		out.VehicleTypes = []VehicleType{}
		if err := unmarshalNumber(v, &out.VehicleTypes); err != nil {
			return fmt.Errorf("vehicle_type: %w", err)
		}
		delete(raw, FieldVehicleType)
	}
	if v, ok := raw[FieldLanguages]; ok {
		out.Languages = map[string]Document{}
		if err := unmarshalNumber(v, &out.Languages); err != nil {
			return fmt.Errorf("carpark_info_vacancy: %w", err)
		}
		delete(raw, FieldLanguages)
	}

	out.Info = make(map[string]any, len(raw))
	for k, v := range raw {
		var x any
		if err := unmarshalNumber(v, &x); err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		out.Info[k] = x
	}
	*f = out
	return nil
}

// encode is json.Marshal without HTML escaping.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func unmarshalNumber(b []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return dec.Decode(dst)
}

// KeyOf canonicalizes a park id so that "123", 123 and json.Number("123")
// join to the same facility. Empty and non-scalar ids are rejected.
func KeyOf(id any) (string, bool) {
	switch v := id.(type) {
	case string:
		return v, v != ""
	case json.Number:
		return v.String(), v != ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	default:
		return "", false
	}
}

// WithLanguage returns a copy of f that carries only the given language document.
func (f Facility) WithLanguage(lang string) Facility {
	if f.Languages == nil {
		return f
	}
	out := f
	out.Languages = map[string]Document{}
	if d, ok := f.Languages[lang]; ok {
		out.Languages[lang] = d
	}
	return out
}
