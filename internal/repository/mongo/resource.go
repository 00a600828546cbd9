package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/resource-showcase/internal/apperror"
	"github.com/sakif/resource-showcase/internal/model"
	"github.com/sakif/resource-showcase/internal/repository"
)

var _ repository.ResourceRepository = (*Store)(nil)

// document is the stored form of a resource.
type document struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	model.Resource `bson:",inline"`
}

func (d document) toModel() model.Resource {
	r := d.Resource
	r.ID = d.ID.Hex()
	r.CreatedAt = r.CreatedAt.UTC()
	if r.Tags == nil {
		r.Tags = []string{}
	}
	return r
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

// Create inserts r and fills in its ID and CreatedAt.
func (s *Store) Create(ctx context.Context, r *model.Resource) error {
	r.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if r.Tags == nil {
		r.Tags = []string{}
	}

	doc := document{ID: primitive.NewObjectID(), Resource: *r}
	if _, err := s.c.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("mongo: creating resource: %w", err)
	}
	r.ID = doc.ID.Hex()
	return nil
}

// GetByID returns the resource with the given hex id. A malformed id cannot
// name any document, so it is reported as NotFound.
func (s *Store) GetByID(ctx context.Context, id string) (*model.Resource, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperror.NotFound("resource", id)
	}

	var doc document
	if err := s.c.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("resource", id)
		}
		return nil, fmt.Errorf("mongo: getting resource %s: %w", id, err)
	}
	r := doc.toModel()
	return &r, nil
}

// Update applies the present fields of patch with a single $set.
func (s *Store) Update(ctx context.Context, id string, patch model.ResourcePatch) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperror.NotFound("resource", id)
	}
	if patch.IsEmpty() {
		_, err := s.GetByID(ctx, id)
		return err
	}

	res, err := s.c.UpdateByID(ctx, oid, bson.M{"$set": patchSet(patch)})
	if err != nil {
		return fmt.Errorf("mongo: updating resource %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("resource", id)
	}
	return nil
}

// patchSet builds the $set document for the fields present in p.
func patchSet(p model.ResourcePatch) bson.M {
	set := bson.M{}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.MediaURL != nil {
		set["mediaUrl"] = *p.MediaURL
	}
	if p.MediaType != nil {
		set["mediaType"] = *p.MediaType
	}
	if p.Category != nil {
		set["category"] = *p.Category
	}
	if p.Tags != nil {
		tags := *p.Tags
		if tags == nil {
			tags = []string{}
		}
		set["tags"] = tags
	}
	if p.ResourceURL != nil {
		set["resourceUrl"] = *p.ResourceURL
	}
	if p.IsPublished != nil {
		set["isPublished"] = *p.IsPublished
	}
	if p.Featured != nil {
		set["featured"] = *p.Featured
	}
	return set
}

// Delete removes the resource. Missing or malformed ids are not errors.
func (s *Store) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	if _, err := s.c.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("mongo: deleting resource %s: %w", id, err)
	}
	return nil
}

// ListPublished returns one page of the public listing.
func (s *Store) ListPublished(ctx context.Context, q repository.PublishedQuery) (*repository.Page, error) {
	after, err := repository.DecodeCursor(q.Cursor)
	if err != nil {
		return nil, err
	}
	category := repository.NormalizeCategory(q.Category)

	fetch := func(ctx context.Context, after *repository.Cursor, n int) ([]model.Resource, error) {
		filter, err := publishedFilter(category, after)
		if err != nil {
			return nil, err
		}
		return s.find(ctx, filter, options.Find().SetSort(newestFirst).SetLimit(int64(n)))
	}

	page, err := repository.CollectPage(ctx, fetch, q.Search, q.Limit, after)
	if err != nil {
		return nil, fmt.Errorf("mongo: listing published resources: %w", err)
	}
	return page, nil
}

// publishedFilter selects published resources, optionally in one category,
// strictly after the keyset position.
func publishedFilter(category model.Category, after *repository.Cursor) (bson.D, error) {
	filter := bson.D{{Key: "isPublished", Value: true}}
	if category != "" {
		filter = append(filter, bson.E{Key: "category", Value: category})
	}
	if after != nil {
		oid, err := primitive.ObjectIDFromHex(after.ID)
		if err != nil {
			return nil, apperror.ValidationFailed("cursor", "cursor is malformed")
		}
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.M{"createdAt": bson.M{"$lt": after.CreatedAt}},
			bson.M{"createdAt": after.CreatedAt, "_id": bson.M{"$lt": oid}},
		}})
	}
	return filter, nil
}

// ListAll returns every resource, newest first.
func (s *Store) ListAll(ctx context.Context) ([]model.Resource, error) {
	rs, err := s.find(ctx, bson.D{}, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, fmt.Errorf("mongo: listing resources: %w", err)
	}
	return rs, nil
}

// ListFeatured returns published, featured resources, newest first.
func (s *Store) ListFeatured(ctx context.Context, limit int) ([]model.Resource, error) {
	filter := bson.D{{Key: "isPublished", Value: true}, {Key: "featured", Value: true}}
	rs, err := s.find(ctx, filter, options.Find().SetSort(newestFirst).SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("mongo: listing featured resources: %w", err)
	}
	return rs, nil
}

func (s *Store) find(ctx context.Context, filter any, opts ...*options.FindOptions) ([]model.Resource, error) {
	cur, err := s.c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]model.Resource, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}
