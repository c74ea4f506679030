package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/complaintdesk/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Mongo keeps each partition in its own pair of collections:
// <workflow>_admins and <workflow>_complaints.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// OpenMongo connects to uri, selects database name and ensures the indexes
// that back id lookups and per-partition email uniqueness.
func OpenMongo(ctx context.Context, uri, name string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := &Mongo{client: client, db: client.Database(name)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Mongo) admins(workflow model.Workflow) *mongo.Collection {
	return s.db.Collection(string(workflow) + "_admins")
}

func (s *Mongo) complaints(workflow model.Workflow) *mongo.Collection {
	return s.db.Collection(string(workflow) + "_complaints")
}

func (s *Mongo) ensureIndexes(ctx context.Context) error {
	for _, wf := range model.Workflows {
		_, err := s.admins(wf).Indexes().CreateMany(ctx, []mongo.IndexModel{
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		})
		if err != nil {
			return fmt.Errorf("index %s admins: %w", wf, err)
		}
		_, err = s.complaints(wf).Indexes().CreateMany(ctx, []mongo.IndexModel{
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		})
		if err != nil {
			return fmt.Errorf("index %s complaints: %w", wf, err)
		}
	}
	return nil
}

var noObjectID = bson.M{"_id": 0}

func (s *Mongo) CountAdmins(ctx context.Context, workflow model.Workflow) (int, error) {
	n, err := s.admins(workflow).CountDocuments(ctx, bson.M{})
	return int(n), err
}

func (s *Mongo) CreateAdmin(ctx context.Context, admin *model.Admin) error {
	_, err := s.admins(admin.Workflow).InsertOne(ctx, admin)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (s *Mongo) AdminByID(ctx context.Context, workflow model.Workflow, id string) (*model.Admin, error) {
	return s.findAdmin(ctx, workflow, bson.M{"id": id})
}

func (s *Mongo) AdminByEmail(ctx context.Context, workflow model.Workflow, email string) (*model.Admin, error) {
	return s.findAdmin(ctx, workflow, bson.M{"email": email})
}

func (s *Mongo) findAdmin(ctx context.Context, workflow model.Workflow, filter bson.M) (*model.Admin, error) {
	var a model.Admin
	err := s.admins(workflow).
		FindOne(ctx, filter, options.FindOne().SetProjection(noObjectID)).
		Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Workflow = workflow
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}

func (s *Mongo) CreateComplaint(ctx context.Context, c *model.Complaint) error {
	_, err := s.complaints(c.Workflow).InsertOne(ctx, c)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (s *Mongo) ComplaintByID(ctx context.Context, workflow model.Workflow, id string) (*model.Complaint, error) {
	var c model.Complaint
	err := s.complaints(workflow).
		FindOne(ctx, bson.M{"id": id}, options.FindOne().SetProjection(noObjectID)).
		Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Workflow = workflow
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func (s *Mongo) UpdateComplaintStatus(ctx context.Context, workflow model.Workflow, id, status string) error {
	res, err := s.complaints(workflow).UpdateOne(ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{"status": status}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Mongo) ListComplaints(ctx context.Context, workflow model.Workflow, limit int) ([]model.Complaint, error) {
	opts := options.Find().
		SetProjection(noObjectID).
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "id", Value: -1}}).
		SetLimit(int64(clampLimit(limit)))

	cur, err := s.complaints(workflow).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	out := make([]model.Complaint, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Workflow = workflow
		out[i].CreatedAt = out[i].CreatedAt.UTC()
	}
	return out, nil
}

func (s *Mongo) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Mongo) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
