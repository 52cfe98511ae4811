package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// FailedJob is a job that exhausted its retries.
type FailedJob struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type     string             `bson:"type" json:"type"`
	Payload  string             `bson:"payload" json:"payload"`
	Error    string             `bson:"error" json:"error"`
	Attempts int                `bson:"attempts" json:"attempts"`
	FailedAt time.Time          `bson:"failed_at" json:"failed_at"`
}

type FailedStore interface {
	Record(ctx context.Context, job FailedJob) error
}

type MemoryFailedStore struct {
	mu   sync.Mutex
	jobs []FailedJob
}

func NewMemoryFailedStore() *MemoryFailedStore { return &MemoryFailedStore{} }

func (s *MemoryFailedStore) Record(_ context.Context, job FailedJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
	return nil
}

func (s *MemoryFailedStore) All() []FailedJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]FailedJob(nil), s.jobs...)
}

// MongoFailedStore writes failures to the failed_jobs collection.
type MongoFailedStore struct {
	col *mongo.Collection
}

func NewMongoFailedStore(col *mongo.Collection) *MongoFailedStore {
	return &MongoFailedStore{col: col}
}

func (s *MongoFailedStore) Record(ctx context.Context, job FailedJob) error {
	_, err := s.col.InsertOne(ctx, job)
	return err
}

// multiStore records into every store, keeping going past failures.
type multiStore []FailedStore

func (m multiStore) Record(ctx context.Context, job FailedJob) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, job); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
