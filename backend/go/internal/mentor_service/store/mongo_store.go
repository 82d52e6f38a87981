package store

import (
	"context"
	"errors"
	"time"

	"student_mentor/backend/go/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	StudentsCollection      = "students"
	ConversationsCollection = "conversations"
	FactsCollection         = "facts"
)

// NewMongoStore builds a Store on db. Call EnsureIndexes once at startup.
func NewMongoStore(db *mongo.Database) Store {
	return Store{
		Students:      &MongoStudents{collection: db.Collection(StudentsCollection), now: time.Now},
		Conversations: &MongoConversations{collection: db.Collection(ConversationsCollection), now: time.Now},
		FactEvents:    &MongoFactEvents{collection: db.Collection(FactsCollection)},
	}
}

// EnsureIndexes creates the unique and lookup indexes the store relies on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(StudentsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_email"),
	})
	if err != nil {
		return wrapErr("ensure students indexes", err)
	}
	_, err = db.Collection(ConversationsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "student_id", Value: 1}, {Key: "mentor_type", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_student_mentor"),
		},
		{
			Keys:    bson.D{{Key: "student_id", Value: 1}, {Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("student_recent"),
		},
	})
	if err != nil {
		return wrapErr("ensure conversations indexes", err)
	}
	_, err = db.Collection(FactsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "student_id", Value: 1}, {Key: "extracted_at", Value: -1}},
		Options: options.Index().SetName("student_extracted"),
	})
	return wrapErr("ensure facts indexes", err)
}

func newID() string {
	return primitive.NewObjectID().Hex()
}

// MongoStudents implements Students on the students collection.
type MongoStudents struct {
	collection *mongo.Collection
	now        func() time.Time
}

func (s *MongoStudents) Create(ctx context.Context, st *models.Student) (string, error) {
	if err := validateNewStudent(st); err != nil {
		return "", err
	}
	now := s.now()
	doc := copyStudent(st)
	doc.ID = newID()
	doc.Email = models.NormalizeEmail(st.Email)
	doc.Facts = models.StudentFacts{}
	doc.CreatedAt, doc.UpdatedAt = now, now

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", conflict(doc.Email)
		}
		return "", wrapErr("create student", err)
	}
	return doc.ID, nil
}

func (s *MongoStudents) Get(ctx context.Context, id string) (*models.Student, error) {
	return s.findOne(ctx, "get student", bson.M{"_id": id}, id)
}

func (s *MongoStudents) GetByEmail(ctx context.Context, email string) (*models.Student, error) {
	return s.findOne(ctx, "get student by email", bson.M{"email": models.NormalizeEmail(email)}, email)
}

func (s *MongoStudents) findOne(ctx context.Context, op string, filter bson.M, ref string) (*models.Student, error) {
	var st models.Student
	err := s.collection.FindOne(ctx, filter).Decode(&st)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound("student", ref)
	}
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return &st, nil
}

func (s *MongoStudents) Update(ctx context.Context, id string, upd models.StudentUpdate) (*models.Student, error) {
	if err := validateUpdate(upd); err != nil {
		return nil, err
	}
	set := bson.M{"updated_at": s.now()}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.University != nil {
		set["university"] = *upd.University
	}
	if upd.Program != nil {
		set["program"] = *upd.Program
	}
	if upd.Year != nil {
		set["year"] = *upd.Year
	}

	var st models.Student
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&st)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound("student", id)
	}
	if err != nil {
		return nil, wrapErr("update student", err)
	}
	return &st, nil
}

func (s *MongoStudents) Facts(ctx context.Context, id string) (models.StudentFacts, error) {
	var doc struct {
		Facts models.StudentFacts `bson:"facts"`
	}
	opts := options.FindOne().SetProjection(bson.M{"facts": 1})
	err := s.collection.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.StudentFacts{}, notFound("student", id)
	}
	if err != nil {
		return models.StudentFacts{}, wrapErr("get facts", err)
	}
	return doc.Facts, nil
}

// UpsertFact sets facts.<category>.<key>. Existing keys keep their position
// in the document, new keys are appended.
func (s *MongoStudents) UpsertFact(ctx context.Context, id string, category models.FactCategory, key string, entry models.FactEntry) error {
	if _, err := models.ParseFactCategory(string(category)); err != nil {
		return invalid("%v", err)
	}
	path := "facts." + string(category) + "." + key
	res, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{path: entry, "updated_at": s.now()}},
	)
	if err != nil {
		return wrapErr("upsert fact", err)
	}
	if res.MatchedCount == 0 {
		return notFound("student", id)
	}
	return nil
}

// MongoConversations implements Conversations on the conversations collection.
type MongoConversations struct {
	collection *mongo.Collection
	now        func() time.Time
}

// GetOrCreateForStudent upserts on (student_id, mentor_type). The greeting
// is written with $setOnInsert, so concurrent callers converge on one
// document; a duplicate key from the race is resolved by re-reading.
func (c *MongoConversations) GetOrCreateForStudent(ctx context.Context, studentID string) (*models.Conversation, error) {
	filter := bson.M{"student_id": studentID, "mentor_type": models.MentorTypePrimary}
	seed := models.NewConversation(newID(), studentID, c.now())
	update := bson.M{"$setOnInsert": bson.M{
		"_id":        seed.ID,
		"messages":   seed.Messages,
		"created_at": seed.CreatedAt,
		"updated_at": seed.UpdatedAt,
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var conv models.Conversation
	err := c.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&conv)
	if mongo.IsDuplicateKeyError(err) {
		err = c.collection.FindOne(ctx, filter).Decode(&conv)
	}
	if err != nil {
		return nil, wrapErr("get or create conversation", err)
	}
	return &conv, nil
}

func (c *MongoConversations) Get(ctx context.Context, id string) (*models.Conversation, error) {
	var conv models.Conversation
	err := c.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound("conversation", id)
	}
	if err != nil {
		return nil, wrapErr("get conversation", err)
	}
	return &conv, nil
}

func (c *MongoConversations) AppendMessage(ctx context.Context, id string, msg models.Message) error {
	if err := validateMessage(msg); err != nil {
		return err
	}
	res, err := c.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$push": bson.M{"messages": msg},
			"$set":  bson.M{"updated_at": msg.Timestamp},
		},
	)
	if err != nil {
		return wrapErr("append message", err)
	}
	if res.MatchedCount == 0 {
		return notFound("conversation", id)
	}
	return nil
}

func (c *MongoConversations) Messages(ctx context.Context, id string) ([]models.Message, error) {
	var doc struct {
		Messages []models.Message `bson:"messages"`
	}
	opts := options.FindOne().SetProjection(bson.M{"messages": 1})
	err := c.collection.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound("conversation", id)
	}
	if err != nil {
		return nil, wrapErr("get messages", err)
	}
	return doc.Messages, nil
}

func (c *MongoConversations) Recent(ctx context.Context, studentID string, limit int) ([]*models.Conversation, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := c.collection.Find(ctx, bson.M{"student_id": studentID}, opts)
	if err != nil {
		return nil, wrapErr("recent conversations", err)
	}
	defer cursor.Close(ctx)

	var out []*models.Conversation
	if err := cursor.All(ctx, &out); err != nil {
		return nil, wrapErr("recent conversations", err)
	}
	return out, nil
}

func (c *MongoConversations) UpdateSummary(ctx context.Context, id, summary string, at time.Time) error {
	res, err := c.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"summary": summary, "summary_updated_at": at}},
	)
	if err != nil {
		return wrapErr("update summary", err)
	}
	if res.MatchedCount == 0 {
		return notFound("conversation", id)
	}
	return nil
}

// MongoFactEvents implements FactEvents on the facts collection.
type MongoFactEvents struct {
	collection *mongo.Collection
}

func (f *MongoFactEvents) Append(ctx context.Context, ev *models.FactEvent) error {
	if ev.ID == "" {
		ev.ID = newID()
	}
	_, err := f.collection.InsertOne(ctx, ev)
	return wrapErr("append fact event", err)
}

func (f *MongoFactEvents) ListByStudent(ctx context.Context, studentID string, limit int) ([]models.FactEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "extracted_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := f.collection.Find(ctx, bson.M{"student_id": studentID}, opts)
	if err != nil {
		return nil, wrapErr("list fact events", err)
	}
	defer cursor.Close(ctx)

	var out []models.FactEvent
	if err := cursor.All(ctx, &out); err != nil {
		return nil, wrapErr("list fact events", err)
	}
	for i := range out {
		out[i].Value = models.NormalizeValue(out[i].Value)
	}
	return out, nil
}
