package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"codetracker/internal/config"
	"codetracker/internal/models"
	"codetracker/internal/urlutil"
)

const mongoOpTimeout = 5 * time.Second

// MongoStore implements Store on MongoDB.
type MongoStore struct {
	client   *mongo.Client
	problems *mongo.Collection
	topics   *mongo.Collection
	users    *mongo.Collection
}

func NewMongoStore(cfg config.DBConfig) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Connection))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	database := client.Database(cfg.Database)
	s := &MongoStore{
		client:   client,
		problems: database.Collection(cfg.Collections.Problems),
		topics:   database.Collection(cfg.Collections.Topics),
		users:    database.Collection(cfg.Collections.Users),
	}
	if err := s.createIndexes(); err != nil {
		return nil, fmt.Errorf("create indexes: %w", err)
	}
	return s, nil
}

func (s *MongoStore) createIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	problemIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "normalized_url", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "topic", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "completed", Value: 1}}},
		{Keys: bson.D{{Key: "last_refreshed", Value: 1}}},
	}
	if _, err := s.problems.Indexes().CreateMany(ctx, problemIndexes); err != nil {
		return err
	}

	topicIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "slug", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := s.topics.Indexes().CreateOne(ctx, topicIndex); err != nil {
		return err
	}

	userIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, err := s.users.Indexes().CreateOne(ctx, userIndex)
	return err
}

// mongoProblem shadows models.SavedProblem with an ObjectID primary key.
type mongoProblem struct {
	ID primitive.ObjectID `bson:"_id,omitempty"`
	models.SavedProblem   `bson:",inline"`
}

func (s *MongoStore) CreateProblem(ctx context.Context, p *models.SavedProblem) (*models.SavedProblem, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	doc := mongoProblem{SavedProblem: *p}
	doc.SavedProblem.ID = ""
	doc.NormalizedURL = urlutil.Normalize(p.URL)
	doc.LastRefreshed = p.DateAdded

	res, err := s.problems.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, err
	}

	saved := *p
	saved.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return &saved, nil
}

func (s *MongoStore) GetProblemByURL(ctx context.Context, userID, url string) (*models.SavedProblem, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	filter := bson.M{"user_id": userID, "normalized_url": urlutil.Normalize(url)}
	var doc mongoProblem
	err := s.problems.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return docToProblem(doc), nil
}

func (s *MongoStore) ListProblems(ctx context.Context, userID string, f ProblemFilter) ([]models.SavedProblem, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	filter := bson.M{"user_id": userID}
	if f.Platform != "" {
		filter["platform"] = f.Platform
	}
	if f.Difficulty != "" {
		filter["difficulty"] = f.Difficulty
	}
	if f.Topic != "" {
		filter["topic"] = f.Topic
	}
	if f.Completed != nil {
		filter["completed"] = *f.Completed
	}

	opts := options.Find().SetSort(bson.D{{Key: "date_added", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}

	cursor, err := s.problems.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.SavedProblem
	for cursor.Next(ctx) {
		var doc mongoProblem
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, *docToProblem(doc))
	}
	return out, cursor.Err()
}

func (s *MongoStore) UpdateProblem(ctx context.Context, userID, id string, u ProblemUpdate) (*models.SavedProblem, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	set := bson.M{}
	if u.Completed != nil {
		set["completed"] = *u.Completed
	}
	if u.Notes != nil {
		set["notes"] = *u.Notes
	}
	if len(set) == 0 {
		return s.getProblemByID(ctx, userID, oid)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc mongoProblem
	err = s.problems.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "user_id": userID},
		bson.M{"$set": set},
		opts,
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return docToProblem(doc), nil
}

func (s *MongoStore) getProblemByID(ctx context.Context, userID string, oid primitive.ObjectID) (*models.SavedProblem, error) {
	var doc mongoProblem
	err := s.problems.FindOne(ctx, bson.M{"_id": oid, "user_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return docToProblem(doc), nil
}

func (s *MongoStore) DeleteProblem(ctx context.Context, userID, id string) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := s.problems.DeleteOne(ctx, bson.M{"_id": oid, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) ProblemExists(ctx context.Context, userID, url string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	filter := bson.M{"user_id": userID, "normalized_url": urlutil.Normalize(url)}
	count, err := s.problems.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *MongoStore) ListStaleProblems(ctx context.Context, refreshedBefore time.Time, limit int) ([]models.SavedProblem, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	filter := bson.M{"last_refreshed": bson.M{"$lt": refreshedBefore}}
	opts := options.Find().
		SetSort(bson.D{{Key: "last_refreshed", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := s.problems.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.SavedProblem
	for cursor.Next(ctx) {
		var doc mongoProblem
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, *docToProblem(doc))
	}
	return out, cursor.Err()
}

func (s *MongoStore) UpdateProblemMetadata(ctx context.Context, id string, draft models.ProblemDraft, refreshedAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	set := bson.M{
		"title":          draft.Title,
		"difficulty":     draft.Difficulty,
		"topics":         draft.Topics,
		"companies":      draft.Companies,
		"description":    draft.Description,
		"last_refreshed": refreshedAt,
	}
	res, err := s.problems.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

type mongoTopic struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	models.Topic `bson:",inline"`
}

func (s *MongoStore) CreateTopic(ctx context.Context, t *models.Topic) (*models.Topic, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	doc := mongoTopic{Topic: *t}
	doc.Topic.ID = ""
	res, err := s.topics.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, err
	}
	saved := *t
	saved.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return &saved, nil
}

func (s *MongoStore) ListTopics(ctx context.Context, userID string) ([]models.Topic, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := s.topics.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.Topic
	for cursor.Next(ctx) {
		var doc mongoTopic
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		topic := doc.Topic
		topic.ID = doc.ID.Hex()
		out = append(out, topic)
	}
	return out, cursor.Err()
}

func (s *MongoStore) GetTopic(ctx context.Context, userID, slug string) (*models.Topic, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	var doc mongoTopic
	err := s.topics.FindOne(ctx, bson.M{"user_id": userID, "slug": slug}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	topic := doc.Topic
	topic.ID = doc.ID.Hex()
	return &topic, nil
}

func (s *MongoStore) DeleteTopic(ctx context.Context, userID, slug string) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	res, err := s.topics.DeleteOne(ctx, bson.M{"user_id": userID, "slug": slug})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

type mongoUser struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	models.User `bson:",inline"`
}

func (s *MongoStore) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	doc := mongoUser{User: *u}
	doc.User.ID = ""
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	res, err := s.users.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, err
	}
	saved := doc.User
	saved.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return &saved, nil
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	var doc mongoUser
	err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	user := doc.User
	user.ID = doc.ID.Hex()
	return &user, nil
}

func (s *MongoStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var doc mongoUser
	err = s.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	user := doc.User
	user.ID = doc.ID.Hex()
	return &user, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func docToProblem(doc mongoProblem) *models.SavedProblem {
	p := doc.SavedProblem
	p.ID = doc.ID.Hex()
	return &p
}
