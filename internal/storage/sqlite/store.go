package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"tracker/internal/models"
	"tracker/internal/storage"
)

// Store keeps every collection as a table of JSON documents in one SQLite
// database file.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger

	users     *collection[*models.User]
	projects  *collection[*models.Project]
	sprints   *collection[*models.Sprint]
	tasks     *collection[*models.Task]
	statuses  *collection[*models.Status]
	workflows *collection[*models.Workflow]
}

var _ storage.Store = (*Store)(nil)

// Open initializes a new SQLite store and runs the required migrations.
// Use ":memory:" for a throwaway database.
func Open(dbPath string, logger zerolog.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}

	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=ON", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// a single connection keeps ":memory:" databases alive and serializes writers
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{
		db:        conn,
		logger:    logger.With().Str("component", "sqlite").Logger(),
		users:     newCollection[*models.User](conn, "users", "user"),
		projects:  newCollection[*models.Project](conn, "projects", "project"),
		sprints:   newCollection[*models.Sprint](conn, "sprints", "sprint"),
		tasks:     newCollection[*models.Task](conn, "tasks", "task"),
		statuses:  newCollection[*models.Status](conn, "statuses", "status"),
		workflows: newCollection[*models.Workflow](conn, "workflows", "workflow"),
	}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	s.logger.Debug().Str("path", dbPath).Msg("database ready")
	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Users() storage.Collection[*models.User]         { return s.users }
func (s *Store) Projects() storage.Collection[*models.Project]   { return s.projects }
func (s *Store) Sprints() storage.Collection[*models.Sprint]     { return s.sprints }
func (s *Store) Tasks() storage.Collection[*models.Task]         { return s.tasks }
func (s *Store) Statuses() storage.Collection[*models.Status]    { return s.statuses }
func (s *Store) Workflows() storage.Collection[*models.Workflow] { return s.workflows }

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) migrate() error {
	var stmts []string
	for _, table := range []string{"users", "projects", "sprints", "tasks", "statuses", "workflows"} {
		stmts = append(stmts, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            id TEXT PRIMARY KEY,
            doc TEXT NOT NULL CHECK (json_valid(doc))
        );`, table))
	}

	stmts = append(stmts,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_users_email ON users(json_extract(doc, '$.email'));`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_users_username ON users(json_extract(doc, '$.username'))
            WHERE json_extract(doc, '$.username') IS NOT NULL;`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_statuses_name ON statuses(json_extract(doc, '$.name'));`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_workflows_name ON workflows(json_extract(doc, '$.name'));`,
		`CREATE INDEX IF NOT EXISTS idx_sprints_project ON sprints(json_extract(doc, '$.projectId'));`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(json_extract(doc, '$.projectId'));`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_sprint ON tasks(json_extract(doc, '$.sprintId'));`,
		`CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(json_extract(doc, '$.ownerId'));`,
	)

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
