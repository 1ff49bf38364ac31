// Package lifecycle drives soft delete, restore and purge across the
// ownership graph of the training content models.
package lifecycle

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Edge declares that rows of Child are owned by rows of Parent through the
// ForeignKey column on Child's table.
type Edge struct {
	Parent     interface{}
	Child      interface{}
	ForeignKey string
}

// Report counts affected rows per model.
type Report map[string]int64

type Graph struct {
	edges []Edge
	now   func() time.Time
}

func NewGraph(edges ...Edge) *Graph {
	return &Graph{edges: edges, now: time.Now}
}

func typeKey(m interface{}) reflect.Type {
	t := reflect.TypeOf(m)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

func (g *Graph) children(parent interface{}) []Edge {
	key := typeKey(parent)
	var out []Edge
	for _, e := range g.edges {
		if typeKey(e.Parent) == key {
			out = append(out, e)
		}
	}
	return out
}

// SoftDelete stamps root and everything it owns with the same deleted_at, so
// Restore can bring back exactly that cascade later.
func (g *Graph) SoftDelete(ctx context.Context, db *gorm.DB, root interface{}, id uint) (Report, error) {
	report := Report{}
	ts := g.now()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tx = tx.Session(&gorm.Session{SkipHooks: true})
		var live int64
		if err := tx.Model(root).Where("id = ?", id).Count(&live).Error; err != nil {
			return err
		}
		if live == 0 {
			return gorm.ErrRecordNotFound
		}
		return g.walk(tx, root, []uint{id}, report, func(q *gorm.DB, m interface{}, ids []uint) (int64, error) {
			res := q.Model(m).Where("id IN ?", ids).Update("deleted_at", ts)
			return res.RowsAffected, res.Error
		}, func(q *gorm.DB, m interface{}, fk string, parentIDs []uint) ([]uint, error) {
			var ids []uint
			err := q.Model(m).Where(fk+" IN ?", parentIDs).Pluck("id", &ids).Error
			return ids, err
		})
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("model", typeKey(root).Name()).Uint("id", id).Interface("report", report).Msg("lifecycle: soft delete cascade done")
	return report, nil
}

// Restore undeletes root and the descendants deleted in the same cascade.
func (g *Graph) Restore(ctx context.Context, db *gorm.DB, root interface{}, id uint) (Report, error) {
	report := Report{}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tx = tx.Session(&gorm.Session{SkipHooks: true})
		var stamps []time.Time
		if err := tx.Unscoped().Model(root).Where("id = ? AND deleted_at IS NOT NULL", id).Pluck("deleted_at", &stamps).Error; err != nil {
			return err
		}
		if len(stamps) == 0 {
			return gorm.ErrRecordNotFound
		}
		ts := stamps[0]
		return g.walk(tx, root, []uint{id}, report, func(q *gorm.DB, m interface{}, ids []uint) (int64, error) {
			res := q.Unscoped().Model(m).Where("id IN ?", ids).Update("deleted_at", nil)
			return res.RowsAffected, res.Error
		}, func(q *gorm.DB, m interface{}, fk string, parentIDs []uint) ([]uint, error) {
			var ids []uint
			err := q.Unscoped().Model(m).Where(fk+" IN ? AND deleted_at = ?", parentIDs, ts).Pluck("id", &ids).Error
			return ids, err
		})
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("model", typeKey(root).Name()).Uint("id", id).Interface("report", report).Msg("lifecycle: restore cascade done")
	return report, nil
}

// Purge hard-deletes root and all descendants, deleted or not, leaves first.
func (g *Graph) Purge(ctx context.Context, db *gorm.DB, root interface{}, id uint) (Report, error) {
	report := Report{}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tx = tx.Session(&gorm.Session{SkipHooks: true})
		return g.purge(tx, root, []uint{id}, report)
	})
	if err != nil {
		return nil, err
	}
	log.Warn().Str("model", typeKey(root).Name()).Uint("id", id).Interface("report", report).Msg("lifecycle: purge cascade done")
	return report, nil
}

type applyFunc func(tx *gorm.DB, m interface{}, ids []uint) (int64, error)
type childIDsFunc func(tx *gorm.DB, m interface{}, fk string, parentIDs []uint) ([]uint, error)

// walk collects every level's IDs before applying, so children are found
// while their parent is still in its original state.
func (g *Graph) walk(tx *gorm.DB, node interface{}, ids []uint, report Report, apply applyFunc, childIDs childIDsFunc) error {
	if len(ids) == 0 {
		return nil
	}
	for _, e := range g.children(node) {
		cids, err := childIDs(tx, e.Child, e.ForeignKey, ids)
		if err != nil {
			return fmt.Errorf("lifecycle: load %s children: %w", typeKey(e.Child).Name(), err)
		}
		if err := g.walk(tx, e.Child, cids, report, apply, childIDs); err != nil {
			return err
		}
	}
	n, err := apply(tx, node, ids)
	if err != nil {
		return fmt.Errorf("lifecycle: apply to %s: %w", typeKey(node).Name(), err)
	}
	report[typeKey(node).Name()] += n
	return nil
}

func (g *Graph) purge(tx *gorm.DB, node interface{}, ids []uint, report Report) error {
	if len(ids) == 0 {
		return nil
	}
	for _, e := range g.children(node) {
		var cids []uint
		if err := tx.Unscoped().Model(e.Child).Where(e.ForeignKey+" IN ?", ids).Pluck("id", &cids).Error; err != nil {
			return fmt.Errorf("lifecycle: load %s children: %w", typeKey(e.Child).Name(), err)
		}
		if err := g.purge(tx, e.Child, cids, report); err != nil {
			return err
		}
	}
	res := tx.Unscoped().Where("id IN ?", ids).Delete(reflect.New(typeKey(node)).Interface())
	if res.Error != nil {
		return fmt.Errorf("lifecycle: purge %s: %w", typeKey(node).Name(), res.Error)
	}
	report[typeKey(node).Name()] += res.RowsAffected
	return nil
}
