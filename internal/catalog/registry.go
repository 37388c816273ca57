package catalog

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/meur/sharehub/internal/auth"
	"github.com/meur/sharehub/internal/models"
)

// minEntries is how many entries a registry must keep.
func minEntries(kind models.GroupingKind) int {
	if kind == models.KindTab {
		return 1
	}
	return 0
}

func checkKind(kind models.GroupingKind) error {
	if !kind.Valid() {
		return invalid("unknown registry %q", kind)
	}
	return nil
}

// ListGroupings returns a registry in display order.
func (s *Service) ListGroupings(ctx context.Context, kind models.GroupingKind) ([]models.Grouping, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	entries, err := s.store.ListGroupings(ctx, kind)
	if err != nil {
		return nil, s.mapStoreError("list "+string(kind), err)
	}
	return entries, nil
}

// AddGrouping appends a named entry to the registry.
func (s *Service) AddGrouping(ctx context.Context, session auth.Session, kind models.GroupingKind, cmd models.GroupingCreate) (models.Grouping, error) {
	if err := requireAdmin(session, "add "+string(kind)); err != nil {
		return models.Grouping{}, err
	}
	if err := checkKind(kind); err != nil {
		return models.Grouping{}, err
	}
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return models.Grouping{}, invalid("name is required")
	}

	entry, err := s.store.InsertGrouping(ctx, kind, models.Grouping{
		ID:        s.newID(),
		Name:      name,
		CreatedAt: s.clock(),
	})
	if err != nil {
		return models.Grouping{}, s.mapStoreError("add "+string(kind), err)
	}
	s.logger.Info("registry entry added", zap.String("kind", string(kind)), zap.String("name", name))
	return entry, nil
}

// UpdateGrouping renames an entry and/or moves it to another position.
func (s *Service) UpdateGrouping(ctx context.Context, session auth.Session, kind models.GroupingKind, id string, cmd models.GroupingUpdate) (models.Grouping, error) {
	if err := requireAdmin(session, "update "+string(kind)); err != nil {
		return models.Grouping{}, err
	}
	if err := checkKind(kind); err != nil {
		return models.Grouping{}, err
	}
	if cmd.Name == nil && cmd.Order == nil {
		return models.Grouping{}, invalid("name or order is required")
	}
	if cmd.Name != nil {
		name := strings.TrimSpace(*cmd.Name)
		if name == "" {
			return models.Grouping{}, invalid("name must not be empty")
		}
		cmd.Name = &name
	}
	if cmd.Order != nil && *cmd.Order < 0 {
		return models.Grouping{}, invalid("order must not be negative")
	}

	entry, err := s.store.UpdateGrouping(ctx, kind, id, cmd.Name, cmd.Order)
	if err != nil {
		return models.Grouping{}, s.mapStoreError("update "+string(kind), err)
	}
	return entry, nil
}

// DeleteGrouping removes an entry and returns the renumbered registry.
// The last tab cannot be deleted.
func (s *Service) DeleteGrouping(ctx context.Context, session auth.Session, kind models.GroupingKind, id string) ([]models.Grouping, error) {
	if err := requireAdmin(session, "delete "+string(kind)); err != nil {
		return nil, err
	}
	if err := checkKind(kind); err != nil {
		return nil, err
	}

	remaining, err := s.store.DeleteGrouping(ctx, kind, id, minEntries(kind))
	if err != nil {
		return nil, s.mapStoreError("delete "+string(kind), err)
	}
	s.logger.Info("registry entry deleted", zap.String("kind", string(kind)), zap.String("id", id))
	return remaining, nil
}

// EnsureGroupings adds every name that is not yet present, in order.
// Existing entries are left untouched. It returns the number added.
func (s *Service) EnsureGroupings(ctx context.Context, kind models.GroupingKind, names []string) (int, error) {
	existing, err := s.ListGroupings(ctx, kind)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(existing))
	for _, e := range existing {
		seen[e.Name] = true
	}

	added := 0
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		if _, err := s.store.InsertGrouping(ctx, kind, models.Grouping{
			ID:        s.newID(),
			Name:      name,
			CreatedAt: s.clock(),
		}); err != nil {
			return added, s.mapStoreError("ensure "+string(kind), err)
		}
		seen[name] = true
		added++
	}
	return added, nil
}
