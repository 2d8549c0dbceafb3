package app

import (
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"carpark_aggregator/internal/domain"
)

// Registry is the run's accumulator: facilities keyed by canonical park id,
// iterated in order of first sighting. All methods are safe for concurrent use.
type Registry struct {
	mu sync.Mutex
	m  *orderedmap.OrderedMap[string, *domain.Facility]
}

func NewRegistry() *Registry {
	return &Registry{m: orderedmap.New[string, *domain.Facility]()}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m.Len()
}

// Get returns a copy of the facility stored under key.
func (r *Registry) Get(key string) (domain.Facility, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.m.Get(key)
	if !ok {
		return domain.Facility{}, false
	}
	return clone(f), true
}

// Facilities returns copies of every facility in first-sighting order.
func (r *Registry) Facilities() []domain.Facility {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Facility, 0, r.m.Len())
	for p := r.m.Oldest(); p != nil; p = p.Next() {
		out = append(out, clone(p.Value))
	}
	return out
}

// lookup must be called with mu held. A created facility has no vehicle
// types and no languages; callers decide which of them become present.
func (r *Registry) lookup(id any, key string) *domain.Facility {
	f, ok := r.m.Get(key)
	if !ok {
		f = &domain.Facility{Key: key, ParkID: id}
		r.m.Set(key, f)
	}
	return f
}

func (r *Registry) setVehicleTypes(id any, key string, vts []domain.VehicleType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f := r.lookup(id, key)
	f.VehicleTypes = append([]domain.VehicleType{}, vts...)
}

func (r *Registry) appendVehicleTypes(id any, key string, vts []domain.VehicleType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f := r.lookup(id, key)
	if f.VehicleTypes == nil {
		f.VehicleTypes = []domain.VehicleType{}
	}
	f.VehicleTypes = append(f.VehicleTypes, vts...)
}

// mergeInfo applies basic-info fields last-write-wins. A nil vts or langs
// leaves the corresponding part untouched.
func (r *Registry) mergeInfo(id any, key string, fields map[string]any, vts []domain.VehicleType, langs map[string]domain.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f := r.lookup(id, key)
	f.ParkID = id
	if f.Info == nil {
		f.Info = make(map[string]any, len(fields))
	}
	for k, v := range fields {
		f.Info[k] = v
	}
	switch {
	case vts != nil:
		f.VehicleTypes = append([]domain.VehicleType{}, vts...)
	case f.VehicleTypes == nil:
		f.VehicleTypes = []domain.VehicleType{}
	}
	if langs != nil {
		f.Languages = make(map[string]domain.Document, len(langs))
		for l, d := range langs {
			f.Languages[l] = d
		}
	}
}

// attachLanguage sets one language document without disturbing the others.
func (r *Registry) attachLanguage(id any, key, lang string, doc domain.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f := r.lookup(id, key)
	if f.Languages == nil {
		f.Languages = map[string]domain.Document{}
	}
	f.Languages[lang] = doc
}

func clone(f *domain.Facility) domain.Facility {
	out := *f
	if f.Info != nil {
		out.Info = make(map[string]any, len(f.Info))
		for k, v := range f.Info {
			out.Info[k] = v
		}
	}
	if f.VehicleTypes != nil {
		out.VehicleTypes = append([]domain.VehicleType{}, f.VehicleTypes...)
	}
	if f.Languages != nil {
		out.Languages = make(map[string]domain.Document, len(f.Languages))
		for l, d := range f.Languages {
			out.Languages[l] = d
		}
	}
	return out
}
