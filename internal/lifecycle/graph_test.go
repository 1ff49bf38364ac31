package lifecycle_test

import (
	"context"
	"testing"

	"github.com/lshigami/compliance/internal/lifecycle"
	"github.com/lshigami/compliance/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type Folder struct {
	ID        uint
	Name      string
	DeletedAt gorm.DeletedAt
}

type Note struct {
	ID        uint
	FolderID  uint
	Body      string
	DeletedAt gorm.DeletedAt
}

func setup(t *testing.T) (*gorm.DB, *lifecycle.Graph) {
	db := testutil.NewDB(t)
	require.NoError(t, db.AutoMigrate(&Folder{}, &Note{}))
	require.NoError(t, db.Create(&Folder{ID: 1, Name: "a"}).Error)
	require.NoError(t, db.Create(&Folder{ID: 2, Name: "b"}).Error)
	require.NoError(t, db.Create(&[]Note{{ID: 1, FolderID: 1}, {ID: 2, FolderID: 1}, {ID: 3, FolderID: 2}}).Error)
	return db, lifecycle.NewGraph(lifecycle.Edge{Parent: &Folder{}, Child: &Note{}, ForeignKey: "folder_id"})
}

func TestRestoreOnlyBringsBackTheSameCascade(t *testing.T) {
	ctx := context.Background()
	db, g := setup(t)

	require.NoError(t, db.Delete(&Note{}, 2).Error)

	report, err := g.SoftDelete(ctx, db, &Folder{}, 1)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Report{"Folder": 1, "Note": 1}, report)

	var live int64
	require.NoError(t, db.Model(&Note{}).Count(&live).Error)
	assert.EqualValues(t, 1, live)

	report, err = g.Restore(ctx, db, &Folder{}, 1)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Report{"Folder": 1, "Note": 1}, report)

	var ids []uint
	require.NoError(t, db.Model(&Note{}).Order("id").Pluck("id", &ids).Error)
	assert.Equal(t, []uint{1, 3}, ids)

	_, err = g.Restore(ctx, db, &Folder{}, 1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = g.SoftDelete(ctx, db, &Folder{}, 99)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestPurgeRemovesDeletedDescendants(t *testing.T) {
	ctx := context.Background()
	db, g := setup(t)
	require.NoError(t, db.Delete(&Note{}, 2).Error)

	report, err := g.Purge(ctx, db, &Folder{}, 1)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Report{"Folder": 1, "Note": 2}, report)

	var left int64
	require.NoError(t, db.Unscoped().Model(&Note{}).Count(&left).Error)
	assert.EqualValues(t, 1, left)
}
