// Package migration applies versioned changes (indexes, backfills) to the
// MongoDB database and records what ran in the migrations collection.
//
// Usage (in database/migrations):
//
//	func init() {
//	    migration.Register("20250101000000_users_email_unique", usersEmailUnique{})
//	}
//
// Run from the CLI:
//
//	shopkart migrate
//	shopkart migrate:rollback
//	shopkart migrate:status
package migration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shashiranjanraj/shopkart/pkg/logger"
)

type Migration interface {
	Up(ctx context.Context, db *mongo.Database) error
	Down(ctx context.Context, db *mongo.Database) error
}

type record struct {
	Name  string    `bson:"_id"`
	Batch int       `bson:"batch"`
	RunAt time.Time `bson:"run_at"`
}

type registered struct {
	name string
	m    Migration
}

var (
	mu       sync.Mutex
	registry []registered
)

// Register adds a migration. Names sort chronologically, so prefix them with
// a timestamp.
func Register(name string, m Migration) {
	mu.Lock()
	defer mu.Unlock()
	registry = append(registry, registered{name: name, m: m})
}

func all() []registered {
	mu.Lock()
	defer mu.Unlock()
	out := append([]registered(nil), registry...)
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

var ErrNoMigrations = errors.New("no migrations registered")

// Runner executes and tracks migrations. Progress lines go to out.
type Runner struct {
	db  *mongo.Database
	col *mongo.Collection
	out io.Writer
}

func New(db *mongo.Database, out io.Writer) *Runner {
	return &Runner{db: db, col: db.Collection("migrations"), out: out}
}

func (r *Runner) ran(ctx context.Context) (map[string]record, error) {
	cur, err := r.col.Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	var recs []record
	if err := cur.All(ctx, &recs); err != nil {
		return nil, err
	}
	out := make(map[string]record, len(recs))
	for _, rec := range recs {
		out[rec.Name] = rec
	}
	return out, nil
}

// Pending returns the names of registered migrations that have not run.
func (r *Runner) Pending(ctx context.Context) ([]string, error) {
	done, err := r.ran(ctx)
	if err != nil {
		return nil, fmt.Errorf("migration: fetch ran: %w", err)
	}
	var names []string
	for _, reg := range all() {
		if _, ok := done[reg.name]; !ok {
			names = append(names, reg.name)
		}
	}
	return names, nil
}

// Run executes every pending migration as one batch.
func (r *Runner) Run(ctx context.Context) error {
	regs := all()
	if len(regs) == 0 {
		return ErrNoMigrations
	}

	done, err := r.ran(ctx)
	if err != nil {
		return fmt.Errorf("migration: fetch ran: %w", err)
	}

	batch := 1
	for _, rec := range done {
		batch = max(batch, rec.Batch+1)
	}

	count := 0
	for _, reg := range regs {
		if _, ok := done[reg.name]; ok {
			continue
		}
		fmt.Fprintf(r.out, "  Migrating: %s\n", reg.name)
		if err := reg.m.Up(ctx, r.db); err != nil {
			return fmt.Errorf("migration: %s up: %w", reg.name, err)
		}
		rec := record{Name: reg.name, Batch: batch, RunAt: time.Now().UTC()}
		if _, err := r.col.InsertOne(ctx, rec); err != nil {
			return fmt.Errorf("migration: record %s: %w", reg.name, err)
		}
		fmt.Fprintf(r.out, "  Migrated:  %s\n", reg.name)
		count++
	}

	if count == 0 {
		fmt.Fprintln(r.out, "Nothing to migrate.")
		return nil
	}
	logger.Info("migration: done", "ran", count, "batch", batch)
	return nil
}

// Rollback reverses the most recent batch in reverse order.
func (r *Runner) Rollback(ctx context.Context) error {
	var last record
	err := r.col.FindOne(ctx, bson.D{}, options.FindOne().SetSort(bson.D{{Key: "batch", Value: -1}})).Decode(&last)
	if errors.Is(err, mongo.ErrNoDocuments) {
		fmt.Fprintln(r.out, "Nothing to roll back.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration: find last batch: %w", err)
	}

	cur, err := r.col.Find(ctx, bson.M{"batch": last.Batch}, options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}))
	if err != nil {
		return err
	}
	var recs []record
	if err := cur.All(ctx, &recs); err != nil {
		return err
	}

	byName := make(map[string]Migration)
	for _, reg := range all() {
		byName[reg.name] = reg.m
	}

	for _, rec := range recs {
		m, ok := byName[rec.Name]
		if !ok {
			return fmt.Errorf("migration: cannot roll back %s: not registered", rec.Name)
		}
		fmt.Fprintf(r.out, "  Rolling back: %s\n", rec.Name)
		if err := m.Down(ctx, r.db); err != nil {
			return fmt.Errorf("migration: %s down: %w", rec.Name, err)
		}
		if _, err := r.col.DeleteOne(ctx, bson.M{"_id": rec.Name}); err != nil {
			return err
		}
	}
	logger.Info("migration: rolled back", "batch", last.Batch, "count", len(recs))
	return nil
}

// Status writes a table of registered migrations and whether each has run.
func (r *Runner) Status(ctx context.Context) error {
	done, err := r.ran(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "%-55s  %-8s  %s\n", "Migration", "Status", "Batch")
	for _, reg := range all() {
		if rec, ok := done[reg.name]; ok {
			fmt.Fprintf(r.out, "%-55s  %-8s  %d\n", reg.name, "Ran", rec.Batch)
		} else {
			fmt.Fprintf(r.out, "%-55s  %-8s  -\n", reg.name, "Pending")
		}
	}
	return nil
}
