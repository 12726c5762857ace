package valkey

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/valkey-io/valkey-go"

	"github.com/samirrijal/fieldarchitect/internal/core/domain"
)

const (
	fieldKeyPrefix = "fieldarchitect:field:"
	fieldIndexKey  = "fieldarchitect:fields" // sorted set scored by created_at
)

// FieldStore implements ports.FieldRepository on Valkey. Each field is a JSON
// string key; a sorted set keeps ids ordered by creation time.
type FieldStore struct {
	client valkey.Client
}

// NewFieldStore creates a store over an existing client.
func NewFieldStore(client valkey.Client) *FieldStore {
	return &FieldStore{client: client}
}

func fieldKey(id string) string { return fieldKeyPrefix + id }

func (s *FieldStore) Save(ctx context.Context, f *domain.SavedField) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal field: %w", err)
	}
	cmds := valkey.Commands{
		s.client.B().Set().Key(fieldKey(f.ID)).Value(valkey.BinaryString(data)).Build(),
		s.client.B().Zadd().Key(fieldIndexKey).ScoreMember().
			ScoreMember(float64(f.CreatedAt.UnixNano()), f.ID).Build(),
	}
	for _, resp := range s.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("store field %s: %w", f.ID, err)
		}
	}
	return nil
}

func (s *FieldStore) GetByID(ctx context.Context, id string) (*domain.SavedField, error) {
	data, err := s.client.Do(ctx, s.client.B().Get().Key(fieldKey(id)).Build()).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get field %s: %w", id, err)
	}
	var f domain.SavedField
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode field %s: %w", id, err)
	}
	return &f, nil
}

// List returns fields newest first.
func (s *FieldStore) List(ctx context.Context) ([]domain.SavedField, error) {
	ids, err := s.client.Do(ctx, s.client.B().Zrange().Key(fieldIndexKey).Min("+inf").Max("-inf").
		Byscore().Rev().Build()).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("list field ids: %w", err)
	}
	if len(ids) == 0 {
		return []domain.SavedField{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = fieldKey(id)
	}
	values, err := s.client.Do(ctx, s.client.B().Mget().Key(keys...).Build()).ToArray()
	if err != nil {
		return nil, fmt.Errorf("load fields: %w", err)
	}

	out := make([]domain.SavedField, 0, len(values))
	for i, v := range values {
		data, err := v.AsBytes()
		if err != nil {
			// index entry outlived its record
			if valkey.IsValkeyNil(err) {
				continue
			}
			return nil, fmt.Errorf("load field %s: %w", ids[i], err)
		}
		var f domain.SavedField
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decode field %s: %w", ids[i], err)
		}
		out = append(out, f)
	}
	return out, nil
}

func (s *FieldStore) Delete(ctx context.Context, id string) error {
	removed, err := s.client.Do(ctx, s.client.B().Del().Key(fieldKey(id)).Build()).AsInt64()
	if err != nil {
		return fmt.Errorf("delete field %s: %w", id, err)
	}
	if err := s.client.Do(ctx, s.client.B().Zrem().Key(fieldIndexKey).Member(id).Build()).Error(); err != nil {
		return fmt.Errorf("unindex field %s: %w", id, err)
	}
	if removed == 0 {
		return domain.ErrNotFound
	}
	return nil
}
