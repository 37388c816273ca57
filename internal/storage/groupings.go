package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/meur/sharehub/internal/models"
)

// --- Categories and tabs ---

func tableFor(kind models.GroupingKind) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("unknown grouping kind %q", kind)
	}
	return string(kind), nil
}

// ListGroupings returns the entries of a registry in display order
func (s *Store) ListGroupings(ctx context.Context, kind models.GroupingKind) ([]models.Grouping, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	return listGroupings(ctx, s.db, table)
}

func listGroupings(ctx context.Context, q queryer, table string) ([]models.Grouping, error) {
	entries := []models.Grouping{}
	err := sqlx.SelectContext(ctx, q, &entries,
		`SELECT id, name, display_order, created_at FROM `+table+` ORDER BY display_order, created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	return entries, nil
}

// GetGrouping returns one registry entry
func (s *Store) GetGrouping(ctx context.Context, kind models.GroupingKind, id string) (models.Grouping, error) {
	table, err := tableFor(kind)
	if err != nil {
		return models.Grouping{}, err
	}
	var g models.Grouping
	err = s.db.GetContext(ctx, &g, s.db.Rebind(
		`SELECT id, name, display_order, created_at FROM `+table+` WHERE id = ?`), id)
	if err != nil {
		return models.Grouping{}, notFoundIfNoRows(err)
	}
	return g, nil
}

// InsertGrouping appends an entry at the end of the registry
func (s *Store) InsertGrouping(ctx context.Context, kind models.GroupingKind, g models.Grouping) (models.Grouping, error) {
	table, err := tableFor(kind)
	if err != nil {
		return models.Grouping{}, err
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = s.now()
	}

	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		var count int
		if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM `+table); err != nil {
			return fmt.Errorf("count %s: %w", table, err)
		}
		g.Order = count
		_, err := tx.ExecContext(ctx, tx.Rebind(
			`INSERT INTO `+table+` (id, name, display_order, created_at) VALUES (?, ?, ?, ?)`),
			g.ID, g.Name, g.Order, g.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrConflict
			}
			return fmt.Errorf("insert into %s: %w", table, err)
		}
		return nil
	})
	if err != nil {
		return models.Grouping{}, err
	}
	return g, nil
}

// UpdateGrouping renames an entry and/or moves it to a new position.
// Orders stay dense after a move.
func (s *Store) UpdateGrouping(ctx context.Context, kind models.GroupingKind, id string, name *string, order *int) (models.Grouping, error) {
	table, err := tableFor(kind)
	if err != nil {
		return models.Grouping{}, err
	}

	var updated models.Grouping
	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		entries, err := listGroupings(ctx, tx, table)
		if err != nil {
			return err
		}
		idx := indexOfGrouping(entries, id)
		if idx < 0 {
			return ErrNotFound
		}

		if name != nil && *name != entries[idx].Name {
			_, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE `+table+` SET name = ? WHERE id = ?`), *name, id)
			if err != nil {
				if isUniqueViolation(err) {
					return ErrConflict
				}
				return fmt.Errorf("rename in %s: %w", table, err)
			}
			entries[idx].Name = *name
		}

		if order != nil {
			entries = moveGrouping(entries, idx, *order)
		}
		if err := renumber(ctx, tx, table, entries); err != nil {
			return err
		}
		updated = entries[indexOfGrouping(entries, id)]
		return nil
	})
	if err != nil {
		return models.Grouping{}, err
	}
	return updated, nil
}

// DeleteGrouping removes an entry and renumbers the rest to 0..n-2.
// It refuses with ErrLastEntry when no more than minRemaining entries exist.
func (s *Store) DeleteGrouping(ctx context.Context, kind models.GroupingKind, id string, minRemaining int) ([]models.Grouping, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	var remaining []models.Grouping
	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		entries, err := listGroupings(ctx, tx, table)
		if err != nil {
			return err
		}
		idx := indexOfGrouping(entries, id)
		if idx < 0 {
			return ErrNotFound
		}
		if len(entries) <= minRemaining {
			return ErrLastEntry
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM `+table+` WHERE id = ?`), id); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
		remaining = append(entries[:idx:idx], entries[idx+1:]...)
		return renumber(ctx, tx, table, remaining)
	})
	if err != nil {
		return nil, err
	}
	return remaining, nil
}

// renumber rewrites display_order so entries[i].Order == i.
func renumber(ctx context.Context, tx *sqlx.Tx, table string, entries []models.Grouping) error {
	for i := range entries {
		if entries[i].Order == i {
			continue
		}
		_, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE `+table+` SET display_order = ? WHERE id = ?`), i, entries[i].ID)
		if err != nil {
			return fmt.Errorf("renumber %s: %w", table, err)
		}
		entries[i].Order = i
	}
	return nil
}

func indexOfGrouping(entries []models.Grouping, id string) int {
	for i, e := range entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func moveGrouping(entries []models.Grouping, from, to int) []models.Grouping {
	if to < 0 {
		to = 0
	}
	if to > len(entries)-1 {
		to = len(entries) - 1
	}
	if from == to {
		return entries
	}
	moved := entries[from]
	out := make([]models.Grouping, 0, len(entries))
	out = append(out, entries[:from]...)
	out = append(out, entries[from+1:]...)
	out = append(out[:to], append([]models.Grouping{moved}, out[to:]...)...)
	return out
}
