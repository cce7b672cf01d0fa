package database

import (
	"context"
	"encoding/json"
)

// Record is any model stored under its own id.
type Record interface {
	RecordID() string
}

// List decodes every record of a collection.
func List[T any](ctx context.Context, s Store, c Collection) ([]T, error) {
	entries, err := s.GetAll(ctx, c)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(entries))
	for _, e := range entries {
		var v T
		if err := json.Unmarshal(e.Data, &v); err != nil {
			return nil, newStorageError("decode", c, e.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Find returns the record with id, reporting whether it exists.
func Find[T any](ctx context.Context, s Store, c Collection, id string) (T, bool, error) {
	var zero T
	entries, err := s.GetAll(ctx, c)
	if err != nil {
		return zero, false, err
	}
	for _, e := range entries {
		if e.ID != id {
			continue
		}
		var v T
		if err := json.Unmarshal(e.Data, &v); err != nil {
			return zero, false, newStorageError("decode", c, e.ID, err)
		}
		return v, true, nil
	}
	return zero, false, nil
}

// Put encodes rec and upserts it by its id.
func Put[T Record](ctx context.Context, s Store, c Collection, rec T) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return newStorageError("encode", c, rec.RecordID(), err)
	}
	return s.SaveOne(ctx, c, rec.RecordID(), data)
}

// RemoveWhere deletes every record of c matching pred and returns how many were removed.
func RemoveWhere[T Record](ctx context.Context, s Store, c Collection, pred func(T) bool) (int, error) {
	items, err := List[T](ctx, s, c)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, it := range items {
		if !pred(it) {
			continue
		}
		if err := s.DeleteOne(ctx, c, it.RecordID()); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
