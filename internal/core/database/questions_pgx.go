package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"

	"github.com/markdave123-py/Examcraft/internal/core"
	"github.com/markdave123-py/Examcraft/internal/models"
)

const questionColumns = `id, owner_id, question, options, answer_index, answer_detected, explanation,
	category, difficulty, source, embedding_model, created_at, updated_at`

func (c *DatabaseClient) EnsureCollection(ctx context.Context, name, ownerID string) error {
	const q = `
		INSERT INTO question_collections (name, owner_id)
		VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING
	`
	_, err := c.db.ExecContext(ctx, q, name, ownerID)
	return err
}

// UpsertQuestions writes one batch in a single transaction. Existing ids are
// overwritten, keeping their created_at.
func (c *DatabaseClient) UpsertQuestions(ctx context.Context, collection string, questions []models.IndexedQuestion) error {
	if len(questions) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO indexed_questions
			(collection, id, owner_id, question, options, answer_index, answer_detected, explanation,
			 category, difficulty, source, embedding, embedding_model)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (collection, id) DO UPDATE SET
			question        = EXCLUDED.question,
			options         = EXCLUDED.options,
			answer_index    = EXCLUDED.answer_index,
			answer_detected = EXCLUDED.answer_detected,
			explanation     = EXCLUDED.explanation,
			difficulty      = EXCLUDED.difficulty,
			source          = EXCLUDED.source,
			embedding       = EXCLUDED.embedding,
			embedding_model = EXCLUDED.embedding_model,
			updated_at      = now()
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range questions {
		iq := &questions[i]
		opts, err := json.Marshal(iq.Options)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encode options: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			collection, iq.ID, iq.OwnerID, iq.Question, string(opts), iq.AnswerIndex, iq.AnswerDetected,
			iq.Explanation, string(iq.Category), string(iq.Difficulty), iq.Source,
			pgvector.NewVector(iq.Embedding), iq.EmbeddingModel,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// filterClause renders the WHERE clause shared by listing and search.
// Placeholders start at $1.
func filterClause(collection string, filter core.QuestionFilter) (string, []any) {
	where := []string{"collection = $1"}
	args := []any{collection}
	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		where = append(where, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	if len(filter.Categories) > 0 {
		ph := make([]string, len(filter.Categories))
		for i, cat := range filter.Categories {
			args = append(args, string(cat))
			ph[i] = fmt.Sprintf("$%d", len(args))
		}
		where = append(where, "category IN ("+strings.Join(ph, ", ")+")")
	}
	return strings.Join(where, " AND "), args
}

// SearchQuestions ranks by cosine distance among rows of the same embedding model.
func (c *DatabaseClient) SearchQuestions(ctx context.Context, collection string, filter core.QuestionFilter, vec []float32, model string, limit int) ([]models.IndexedQuestion, error) {
	where, args := filterClause(collection, filter)
	args = append(args, model)
	where += fmt.Sprintf(" AND embedding_model = $%d", len(args))
	args = append(args, pgvector.NewVector(vec))
	order := fmt.Sprintf("embedding <=> $%d", len(args))
	args = append(args, limit)

	q := fmt.Sprintf(`SELECT %s FROM indexed_questions WHERE %s ORDER BY %s LIMIT $%d`,
		questionColumns, where, order, len(args))
	return c.queryQuestions(ctx, q, args...)
}

func (c *DatabaseClient) ListQuestions(ctx context.Context, collection string, filter core.QuestionFilter, limit int) ([]models.IndexedQuestion, error) {
	where, args := filterClause(collection, filter)
	q := fmt.Sprintf(`SELECT %s FROM indexed_questions WHERE %s`, questionColumns, where)
	if limit > 0 {
		args = append(args, limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return c.queryQuestions(ctx, q, args...)
}

func (c *DatabaseClient) queryQuestions(ctx context.Context, q string, args ...any) ([]models.IndexedQuestion, error) {
	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.IndexedQuestion
	for rows.Next() {
		var (
			iq         models.IndexedQuestion
			opts       []byte
			category   string
			difficulty string
		)
		if err := rows.Scan(
			&iq.ID, &iq.OwnerID, &iq.Question, &opts, &iq.AnswerIndex, &iq.AnswerDetected, &iq.Explanation,
			&category, &difficulty, &iq.Source, &iq.EmbeddingModel, &iq.CreatedAt, &iq.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(opts, &iq.Options); err != nil {
			return nil, fmt.Errorf("decode options of %s: %w", iq.ID, err)
		}
		iq.Category = models.CategoryTag(category)
		iq.Difficulty = models.Difficulty(difficulty)
		out = append(out, iq)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) CountQuestions(ctx context.Context, collection, ownerID string) (int, error) {
	const q = `SELECT count(*) FROM indexed_questions WHERE collection = $1 AND owner_id = $2`
	var n int
	if err := c.db.QueryRowContext(ctx, q, collection, ownerID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (c *DatabaseClient) DeleteQuestions(ctx context.Context, collection, ownerID string) error {
	const q = `DELETE FROM indexed_questions WHERE collection = $1 AND owner_id = $2`
	_, err := c.db.ExecContext(ctx, q, collection, ownerID)
	return err
}

func (c *DatabaseClient) ListCollections(ctx context.Context) ([]models.Collection, error) {
	const q = `SELECT name, owner_id, created_at FROM question_collections ORDER BY name`
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Collection
	for rows.Next() {
		var col models.Collection
		if err := rows.Scan(&col.Name, &col.OwnerID, &col.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, col)
	}
	return out, rows.Err()
}
