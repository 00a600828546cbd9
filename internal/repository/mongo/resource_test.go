package mongo

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sakif/resource-showcase/internal/apperror"
	"github.com/sakif/resource-showcase/internal/model"
	"github.com/sakif/resource-showcase/internal/repository"
)

// These tests cover the query and document shapes; store_test.go runs the
// store methods against a mock deployment.

func TestPatchSet_OnlyPresentFields(t *testing.T) {
	featured := true
	title := "New title"

	set := patchSet(model.ResourcePatch{Featured: &featured, Title: &title})

	assert.Equal(t, bson.M{"featured": true, "title": "New title"}, set)
}

func TestPatchSet_EmptyTagsStayAnArray(t *testing.T) {
	var tags []string
	set := patchSet(model.ResourcePatch{Tags: &tags})

	assert.Equal(t, []string{}, set["tags"])
}

func TestPublishedFilter_NoCursor(t *testing.T) {
	f, err := publishedFilter(model.CategoryAI, nil)
	require.NoError(t, err)

	assert.Equal(t, bson.D{
		{Key: "isPublished", Value: true},
		{Key: "category", Value: model.CategoryAI},
	}, f)
}

func TestPublishedFilter_WithCursor(t *testing.T) {
	oid := primitive.NewObjectID()
	ts := time.Date(2025, 9, 26, 7, 0, 0, 0, time.UTC)

	f, err := publishedFilter("", &repository.Cursor{CreatedAt: ts, ID: oid.Hex()})
	require.NoError(t, err)

	require.Len(t, f, 2)
	assert.Equal(t, "$or", f[1].Key)
	or := f[1].Value.(bson.A)
	assert.Equal(t, bson.M{"createdAt": bson.M{"$lt": ts}}, or[0])
	assert.Equal(t, bson.M{"createdAt": ts, "_id": bson.M{"$lt": oid}}, or[1])
}

func TestPublishedFilter_CursorWithForeignID(t *testing.T) {
	_, err := publishedFilter("", &repository.Cursor{CreatedAt: time.Now(), ID: "not-an-object-id"})
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestDocumentToModel(t *testing.T) {
	oid := primitive.NewObjectID()
	d := document{ID: oid, Resource: model.Resource{Title: "x"}}

	r := d.toModel()

	assert.Equal(t, oid.Hex(), r.ID)
	assert.NotNil(t, r.Tags)
}

func TestDocument_MarshalsFlat(t *testing.T) {
	d := document{ID: primitive.NewObjectID(), Resource: model.Resource{ID: "ignored", Title: "x", Featured: true}}

	raw, err := bson.Marshal(d)
	require.NoError(t, err)

	var m bson.M
	require.NoError(t, bson.Unmarshal(raw, &m))
	assert.Equal(t, d.ID, m["_id"])
	assert.Equal(t, "x", m["title"])
	assert.Equal(t, true, m["featured"])
	_, hasID := m["id"]
	assert.False(t, hasID, "the string id must not be stored")
}
