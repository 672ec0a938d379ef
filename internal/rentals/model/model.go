// Package model defines the rental property document and its MongoDB
// repository. The sync engine only reads and writes the availability
// fields; everything else on the document belongs to other parts of the
// product and is written with merge semantics so it is never clobbered.
package model

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// SyncStatus is the persisted outcome of the most recent calendar sync.
type SyncStatus string

const (
	SyncStatusNever SyncStatus = "never"
	SyncStatusOK    SyncStatus = "ok"
	SyncStatusError SyncStatus = "error"
)

// BlockedRange is one unavailable date interval, inclusive on both ends,
// serialized as ISO YYYY-MM-DD strings.
type BlockedRange struct {
	Start string `bson:"start" json:"start"`
	End   string `bson:"end" json:"end"`
}

// Property is a bookable rental with an optional third-party calendar
// feed. The engine reads ICalURL and Active, and owns the four
// availability fields; Name, Slug, and OwnerID are managed elsewhere.
type Property struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID          string             `bson:"ownerId,omitempty" json:"ownerId,omitempty"`
	Name             string             `bson:"name,omitempty" json:"name,omitempty"`
	Slug             string             `bson:"slug,omitempty" json:"slug,omitempty"`
	Active           bool               `bson:"active" json:"active"`
	ICalURL          string             `bson:"icalUrl,omitempty" json:"icalUrl,omitempty"`
	BlockedRanges    []BlockedRange     `bson:"blockedRanges,omitempty" json:"blockedRanges"`
	ICalSyncStatus   SyncStatus         `bson:"icalSyncStatus,omitempty" json:"icalSyncStatus"`
	ICalErrorMessage string             `bson:"icalErrorMessage,omitempty" json:"icalErrorMessage"`
	ICalLastSyncedAt *time.Time         `bson:"icalLastSyncedAt,omitempty" json:"icalLastSyncedAt,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt        time.Time          `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// SyncPatch is a partial update of the availability fields. Nil pointer
// fields are left untouched in the stored document; in particular a failed
// sync patches status and error text while BlockedRanges stays nil so the
// previously known availability survives.
type SyncPatch struct {
	BlockedRanges *[]BlockedRange
	SyncStatus    SyncStatus
	ErrorMessage  *string
	LastSyncedAt  *time.Time
}

// Model is the MongoDB-backed property repository.
type Model struct {
	col *mongo.Collection
}

// New wires the repository to the rentalsProperties collection.
func New(db *mongo.Database) *Model {
	return &Model{col: db.Collection("rentalsProperties")}
}

// ListActiveProperties returns every property flagged active.
func (m *Model) ListActiveProperties(ctx context.Context) ([]*Property, error) {
	cur, err := m.col.Find(ctx, bson.M{"active": true})
	if err != nil {
		return nil, fmt.Errorf("failed to list active properties: %w", err)
	}
	defer cur.Close(ctx)

	var props []*Property
	if err := cur.All(ctx, &props); err != nil {
		return nil, fmt.Errorf("failed to decode properties: %w", err)
	}
	return props, nil
}

// DescribeProperty fetches one property by its hex id. A missing document
// returns (nil, nil); so does a malformed id, which cannot match any
// document and should read as not-found rather than as a server fault.
func (m *Model) DescribeProperty(ctx context.Context, id string) (*Property, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	var prop Property
	if err := m.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&prop); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to describe property: %w", err)
	}
	return &prop, nil
}

// PatchPropertySync applies a partial availability update. Only the fields
// set on the patch make it into the $set document, so concurrent edits to
// unrelated fields are never overwritten.
func (m *Model) PatchPropertySync(ctx context.Context, id string, patch SyncPatch) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid property id %q: %w", id, err)
	}

	set := bson.M{"updatedAt": time.Now()}
	if patch.SyncStatus != "" {
		set["icalSyncStatus"] = patch.SyncStatus
	}
	if patch.BlockedRanges != nil {
		set["blockedRanges"] = *patch.BlockedRanges
	}
	if patch.ErrorMessage != nil {
		set["icalErrorMessage"] = *patch.ErrorMessage
	}
	if patch.LastSyncedAt != nil {
		set["icalLastSyncedAt"] = *patch.LastSyncedAt
	}

	res, err := m.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to patch property %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("property %s not found", id)
	}
	return nil
}
