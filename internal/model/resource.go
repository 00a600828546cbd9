// Package model defines the resource and identity types shared by every
// layer, with the category taxonomy the UI and the validators use.
package model

import "time"

// MediaType says how a resource's media should be rendered.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// Valid reports whether m is one of the known media types.
func (m MediaType) Valid() bool {
	return m == MediaImage || m == MediaVideo
}

// Category is the fixed taxonomy resources are filed under.
type Category string

const (
	CategoryWeb          Category = "web"
	CategoryApp          Category = "app"
	CategoryDesign       Category = "design"
	CategoryDevelopment  Category = "development"
	CategoryAI           Category = "ai"
	CategoryProductivity Category = "productivity"
	CategoryBusiness     Category = "business"
	CategoryLearning     Category = "learning"
	CategoryDevOps       Category = "devops"

	// CategoryAll is only meaningful as a list filter. It is never stored.
	CategoryAll Category = "all"
)

// CategoryInfo pairs a category with the label the UI shows for it.
type CategoryInfo struct {
	ID    Category `json:"id"`
	Label string   `json:"label"`
	Icon  string   `json:"icon"`
}

var categories = []CategoryInfo{
	{ID: CategoryWeb, Label: "Web", Icon: "🌐"},
	{ID: CategoryApp, Label: "App", Icon: "📱"},
	{ID: CategoryDesign, Label: "Design", Icon: "🎨"},
	{ID: CategoryDevelopment, Label: "Development", Icon: "💻"},
	{ID: CategoryAI, Label: "AI Tools", Icon: "🤖"},
	{ID: CategoryProductivity, Label: "Productivity", Icon: "⚡"},
	{ID: CategoryBusiness, Label: "Business", Icon: "💼"},
	{ID: CategoryLearning, Label: "Learning", Icon: "📚"},
	{ID: CategoryDevOps, Label: "DevOps", Icon: "🔧"},
}

// Categories returns the storable categories in display order.
// The returned slice is a copy; callers may modify it.
func Categories() []CategoryInfo {
	out := make([]CategoryInfo, len(categories))
	copy(out, categories)
	return out
}

// Valid reports whether c is a storable category ("all" is not).
func (c Category) Valid() bool {
	for _, info := range categories {
		if info.ID == c {
			return true
		}
	}
	return false
}

// Resource is a curated link with attached media.
//
// The `json:"..."` tags are the wire names the browser UI uses; the `bson`
// tags are the document field names in MongoDB. ID is kept out of the bson
// document because the Mongo store maps it to/from the ObjectID `_id`.
//
// CreatedAt is owned by the persistence layer: stores stamp it on Create and
// never change it afterwards. Anything a caller puts there is overwritten.
type Resource struct {
	ID          string    `json:"id"          bson:"-"`
	Title       string    `json:"title"       bson:"title"`
	Description string    `json:"description" bson:"description"`
	MediaURL    string    `json:"mediaUrl"    bson:"mediaUrl"`
	MediaType   MediaType `json:"mediaType"   bson:"mediaType"`
	Category    Category  `json:"category"    bson:"category"`
	Tags        []string  `json:"tags"        bson:"tags"`
	ResourceURL string    `json:"resourceUrl" bson:"resourceUrl"`
	CreatedAt   time.Time `json:"createdAt"   bson:"createdAt"`
	IsPublished bool      `json:"isPublished" bson:"isPublished"`
	Featured    bool      `json:"featured"    bson:"featured"`
}

// ResourcePatch is a partial update. A nil field was absent from the request
// and must be left untouched by the store.
//
// WHY POINTERS?
// With plain values there is no way to tell "featured: false" apart from
// "featured not sent"; both decode to false. A *bool is nil when the key is
// missing from the JSON body.
type ResourcePatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	MediaURL    *string    `json:"mediaUrl,omitempty"`
	MediaType   *MediaType `json:"mediaType,omitempty"`
	Category    *Category  `json:"category,omitempty"`
	Tags        *[]string  `json:"tags,omitempty"`
	ResourceURL *string    `json:"resourceUrl,omitempty"`
	IsPublished *bool      `json:"isPublished,omitempty"`
	Featured    *bool      `json:"featured,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p ResourcePatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.MediaURL == nil &&
		p.MediaType == nil && p.Category == nil && p.Tags == nil &&
		p.ResourceURL == nil && p.IsPublished == nil && p.Featured == nil
}

// Apply copies every present field of p onto r. The in-memory store
// updates through it; SQLite and Mongo translate the patch into SET/$set.
func (p ResourcePatch) Apply(r *Resource) {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.MediaURL != nil {
		r.MediaURL = *p.MediaURL
	}
	if p.MediaType != nil {
		r.MediaType = *p.MediaType
	}
	if p.Category != nil {
		r.Category = *p.Category
	}
	if p.Tags != nil {
		r.Tags = append([]string{}, (*p.Tags)...)
	}
	if p.ResourceURL != nil {
		r.ResourceURL = *p.ResourceURL
	}
	if p.IsPublished != nil {
		r.IsPublished = *p.IsPublished
	}
	if p.Featured != nil {
		r.Featured = *p.Featured
	}
}
