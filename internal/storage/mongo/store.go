// Package mongo implements the document store on MongoDB.
package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tracker/internal/models"
	"tracker/internal/storage"
)

// Store is a storage.Store backed by one MongoDB database.
type Store struct {
	client *mongo.Client
	logger zerolog.Logger

	users     *collection[*models.User]
	projects  *collection[*models.Project]
	sprints   *collection[*models.Sprint]
	tasks     *collection[*models.Task]
	statuses  *collection[*models.Status]
	workflows *collection[*models.Workflow]
}

var _ storage.Store = (*Store)(nil)

// Open connects to uri, selects database and creates the unique indexes.
func Open(ctx context.Context, uri, database string, logger zerolog.Logger) (*Store, error) {
	if database == "" {
		return nil, fmt.Errorf("empty database name")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetConnectTimeout(10*time.Second))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:    client,
		logger:    logger.With().Str("component", "mongo").Logger(),
		users:     newCollection[*models.User](db.Collection("users"), "user"),
		projects:  newCollection[*models.Project](db.Collection("projects"), "project"),
		sprints:   newCollection[*models.Sprint](db.Collection("sprints"), "sprint"),
		tasks:     newCollection[*models.Task](db.Collection("tasks"), "task"),
		statuses:  newCollection[*models.Status](db.Collection("statuses"), "status"),
		workflows: newCollection[*models.Workflow](db.Collection("workflows"), "workflow"),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	s.logger.Debug().Str("database", database).Msg("database ready")
	return s, nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) Users() storage.Collection[*models.User]         { return s.users }
func (s *Store) Projects() storage.Collection[*models.Project]   { return s.projects }
func (s *Store) Sprints() storage.Collection[*models.Sprint]     { return s.sprints }
func (s *Store) Tasks() storage.Collection[*models.Task]         { return s.tasks }
func (s *Store) Statuses() storage.Collection[*models.Status]    { return s.statuses }
func (s *Store) Workflows() storage.Collection[*models.Workflow] { return s.workflows }

func (s *Store) ensureIndexes(ctx context.Context) error {
	unique := func(field string) mongo.IndexModel {
		return mongo.IndexModel{Keys: bson.D{{Key: field, Value: 1}}, Options: options.Index().SetUnique(true)}
	}
	plain := func(field string) mongo.IndexModel {
		return mongo.IndexModel{Keys: bson.D{{Key: field, Value: 1}}}
	}

	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.users.coll: {
			unique("email"),
			{
				Keys: bson.D{{Key: "username", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"username": bson.M{"$type": "string"}}),
			},
		},
		s.statuses.coll:  {unique("name")},
		s.workflows.coll: {unique("name")},
		s.projects.coll:  {plain("ownerId"), plain("memberIds")},
		s.sprints.coll:   {plain("projectId")},
		s.tasks.coll:     {plain("projectId"), plain("sprintId")},
	}

	for coll, idx := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}
