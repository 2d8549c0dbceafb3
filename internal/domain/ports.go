package domain

import "context"

// FeedClient fetches the four upstream feeds as decoded JSON (numbers kept as json.Number).
type FeedClient interface {
	VacancyInfo(ctx context.Context) (any, error)
	Vacancy(ctx context.Context) (any, error)
	BasicInfo(ctx context.Context) (any, error)
	InfoVacancy(ctx context.Context, lang string) (any, error)
}

// SnapshotWriter persists a finished run. Implementations must not leave partial output.
type SnapshotWriter interface {
	Write(ctx context.Context, fs []Facility) error
}

// SnapshotReader serves the last written run. Generation changes whenever a
// new run replaces the artifact.
type SnapshotReader interface {
	Load(ctx context.Context) ([]Facility, error)
	Generation(ctx context.Context) (string, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Read models & queries
type FacilityView struct {
	Facility Facility `json:"facility"`
	Language string   `json:"language,omitempty"` // empty when every language is included
}

type PageQuery struct {
	Limit  int
	Cursor *string
}

type FacilitiesPage struct {
	Items      []Facility `json:"items"`
	NextCursor *string    `json:"next_cursor,omitempty"`
}
