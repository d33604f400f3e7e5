package job

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maauso/charactercast-api/internal/character"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Compile-time check that PostgresRepository implements Repository.
var _ Repository = (*PostgresRepository)(nil)

// PostgresRepository stores jobs in PostgreSQL through a pgx connection pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// ConnectPostgres opens a pool, verifies it and applies the embedded schema.
func ConnectPostgres(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("job: connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("job: ping database: %w", err)
	}

	repo := &PostgresRepository{pool: pool}
	if err := repo.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the connection pool.
func (r *PostgresRepository) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

func (r *PostgresRepository) migrate(ctx context.Context) error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("job: read migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		stmt, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("job: read migration %s: %w", name, err)
		}
		if _, err := r.pool.Exec(ctx, string(stmt)); err != nil {
			return fmt.Errorf("job: apply migration %s: %w", name, err)
		}
	}
	return nil
}

// Create inserts a new job row.
func (r *PostgresRepository) Create(ctx context.Context, job *Job) (string, error) {
	if err := job.Validate(); err != nil {
		return "", err
	}
	j := job.Clone()

	attrs, err := json.Marshal(j.Attributes)
	if err != nil {
		return "", fmt.Errorf("job: marshal attributes: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO character_jobs
		   (id, owner, character_type, character_attributes, topic, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		j.ID, j.Owner, string(j.CharacterType), attrs, j.Topic, string(j.Status), j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", ErrDuplicateJob
		}
		return "", fmt.Errorf("job: insert: %w", err)
	}
	return j.ID, nil
}

// Get loads a job filtered by id and owner.
func (r *PostgresRepository) Get(ctx context.Context, id, owner string) (*Job, error) {
	row := r.pool.QueryRow(ctx, selectJob+` WHERE id = $1 AND owner = $2`, id, owner)
	return scanJob(row)
}

// Update locks the row, applies u in Go so the state machine is enforced in
// one place, then writes the changed columns back.
func (r *PostgresRepository) Update(ctx context.Context, id, owner string, u Update) (*Job, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("job: begin update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, selectJob+` WHERE id = $1 AND owner = $2 FOR UPDATE`, id, owner)
	current, err := scanJob(row)
	if err != nil {
		return nil, err
	}

	if err := current.Apply(u); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE character_jobs
		    SET status = $3, script = $4, image_url = $5, audio_url = $6,
		        video_url = $7, error_message = $8, updated_at = $9
		  WHERE id = $1 AND owner = $2`,
		id, owner, string(current.Status),
		nullString(current.Script), nullString(current.ImageURL), nullString(current.AudioURL),
		nullString(current.VideoURL), nullString(current.ErrorMessage), current.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("job: update: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("job: commit update: %w", err)
	}
	return current, nil
}

const selectJob = `SELECT id, owner, character_type, character_attributes, topic, status,
       script, image_url, audio_url, video_url, error_message, created_at, updated_at
  FROM character_jobs`

func scanJob(row pgx.Row) (*Job, error) {
	var (
		j                                    Job
		charType, status                     string
		attrs                                []byte
		script, image, audio, video, message *string
	)
	err := row.Scan(&j.ID, &j.Owner, &charType, &attrs, &j.Topic, &status,
		&script, &image, &audio, &video, &message, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("job: scan: %w", err)
	}

	j.CharacterType = character.Type(charType)
	j.Status = Status(status)
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &j.Attributes); err != nil {
			return nil, fmt.Errorf("job: unmarshal attributes: %w", err)
		}
	}
	j.Script = deref(script)
	j.ImageURL = deref(image)
	j.AudioURL = deref(audio)
	j.VideoURL = deref(video)
	j.ErrorMessage = deref(message)
	return &j, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
