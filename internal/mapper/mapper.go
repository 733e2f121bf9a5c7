// Package mapper converts between persisted entities and their API DTOs.
package mapper

// EntityMapper converts a DTO D to an entity E and back
type EntityMapper[D any, E any] interface {
	ToEntity(dto *D) *E
	ToDTO(entity *E) *D
	ToDTOs(entities []E) []D
	FromID(id *int64) *E
}

// mapList applies toDTO over a slice of entities
func mapList[D any, E any](entities []E, toDTO func(*E) *D) []D {
	out := make([]D, 0, len(entities))
	for i := range entities {
		if d := toDTO(&entities[i]); d != nil {
			out = append(out, *d)
		}
	}
	return out
}

// idOf returns a pointer to a copy of id, nil for the zero id
func idOf(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

// idValue dereferences an optional id
func idValue(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}
