// Package store holds the relational access layer for podcast job
// records. The API server and the background worker each construct their
// own Service over their own connection pool.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Kingjinsight/Lets-break-the-information-gap/internal/models"
)

// ErrNotFound is returned when a podcast record does not exist (or is not
// visible to the requesting owner).
var ErrNotFound = errors.New("podcast not found")

type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

const podcastColumns = "id, user_id, title, script, audio_file_path, status, created_at"

func (s *Service) Create(ctx context.Context, ownerID int64, title string, articleIDs []int64) (*models.Podcast, error) {
	var p models.Podcast
	err := s.db.QueryRow(ctx,
		`INSERT INTO podcasts (user_id, title, script, audio_file_path, status)
		 VALUES ($1, $2, '', '', $3)
		 RETURNING `+podcastColumns,
		ownerID, title, models.PodcastStatusPending,
	).Scan(&p.ID, &p.OwnerID, &p.Title, &p.Script, &p.AudioFilePath, &p.Status, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert podcast: %w", err)
	}

	for _, articleID := range articleIDs {
		_, err := s.db.Exec(ctx,
			`INSERT INTO podcast_articles (podcast_id, article_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			p.ID, articleID,
		)
		if err != nil {
			return nil, fmt.Errorf("associate article %d: %w", articleID, err)
		}
	}

	return &p, nil
}

func (s *Service) GetByID(ctx context.Context, id, ownerID int64) (*models.Podcast, error) {
	var p models.Podcast
	err := s.db.QueryRow(ctx,
		`SELECT `+podcastColumns+` FROM podcasts WHERE id = $1 AND user_id = $2`,
		id, ownerID,
	).Scan(&p.ID, &p.OwnerID, &p.Title, &p.Script, &p.AudioFilePath, &p.Status, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get podcast: %w", err)
	}
	return &p, nil
}

func (s *Service) List(ctx context.Context, ownerID int64, limit, offset int) ([]models.Podcast, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+podcastColumns+` FROM podcasts
		 WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		ownerID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list podcasts: %w", err)
	}
	defer rows.Close()

	var podcasts []models.Podcast
	for rows.Next() {
		var p models.Podcast
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Title, &p.Script, &p.AudioFilePath, &p.Status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan podcast: %w", err)
		}
		podcasts = append(podcasts, p)
	}
	return podcasts, rows.Err()
}

// Delete removes the record and its audio artifact. Artifact removal is
// best-effort; a stale file never blocks record deletion.
func (s *Service) Delete(ctx context.Context, id, ownerID int64) error {
	p, err := s.GetByID(ctx, id, ownerID)
	if err != nil {
		return err
	}

	if p.AudioFilePath != "" {
		if err := os.Remove(p.AudioFilePath); err != nil && !os.IsNotExist(err) {
			slog.Warn("could not delete audio file", "path", p.AudioFilePath, "error", err)
		}
	}

	_, err = s.db.Exec(ctx, `DELETE FROM podcasts WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete podcast: %w", err)
	}
	return nil
}

// UpdateResult is the orchestrator's single terminal write: script, audio
// path (empty = no audio) and final status, committed in one transaction
// with the row locked.
func (s *Service) UpdateResult(ctx context.Context, id int64, script, audioPath, status string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin update tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists int64
	err = tx.QueryRow(ctx, `SELECT id FROM podcasts WHERE id = $1 FOR UPDATE`, id).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock podcast %d: %w", id, err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE podcasts SET script = $2, audio_file_path = $3, status = $4 WHERE id = $1`,
		id, script, audioPath, status,
	)
	if err != nil {
		return fmt.Errorf("update podcast %d: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit podcast %d: %w", id, err)
	}
	return nil
}
