package questionbank

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/markdave123-py/Examcraft/internal/core"
	vectorstore "github.com/markdave123-py/Examcraft/internal/core/vector-store"
	"github.com/markdave123-py/Examcraft/internal/models"
)

var _ core.QuestionBank = (*FirestoreBank)(nil)

// FirestoreBank is the shared question bank that per-owner questions are
// migrated into.
type FirestoreBank struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreBank(ctx context.Context, projectID, collection string) (*FirestoreBank, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}
	if collection == "" {
		collection = "questions"
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return &FirestoreBank{client: client, collection: collection}, nil
}

// bankQuestion is the stored document shape.
type bankQuestion struct {
	Question       string    `firestore:"question"`
	Options        []string  `firestore:"options"`
	AnswerIndex    int       `firestore:"answer_index"`
	AnswerDetected bool      `firestore:"answer_detected"`
	Explanation    string    `firestore:"explanation"`
	Category       string    `firestore:"category"`
	Difficulty     string    `firestore:"difficulty"`
	Source         string    `firestore:"source"`
	OwnerID        string    `firestore:"owner_id"`
	IndexedID      string    `firestore:"indexed_id"`
	CreatedAt      time.Time `firestore:"created_at,serverTimestamp"`
}

func toBankQuestion(q models.IndexedQuestion) bankQuestion {
	return bankQuestion{
		Question:       q.Question,
		Options:        q.Options[:],
		AnswerIndex:    q.AnswerIndex,
		AnswerDetected: q.AnswerDetected,
		Explanation:    q.Explanation,
		Category:       string(q.Category),
		Difficulty:     string(q.Difficulty),
		Source:         q.Source,
		OwnerID:        q.OwnerID,
		IndexedID:      q.ID,
	}
}

// DedupeDocID identifies a question by its normalized text and category,
// independent of the owner it came from.
func DedupeDocID(question string, category models.CategoryTag) string {
	h := sha256.New()
	h.Write([]byte(vectorstore.NormalizeQuestion(question)))
	h.Write([]byte{0})
	h.Write([]byte(category))
	return hex.EncodeToString(h.Sum(nil))[:40]
}

// Insert stores q. With dedupe set, a question already present under the
// same text and category is left untouched and false is returned.
func (b *FirestoreBank) Insert(ctx context.Context, q models.IndexedQuestion, dedupe bool) (bool, error) {
	col := b.client.Collection(b.collection)
	doc := toBankQuestion(q)

	if !dedupe {
		if _, err := col.Doc(q.ID).Set(ctx, doc); err != nil {
			return false, fmt.Errorf("set question %s: %w", q.ID, err)
		}
		return true, nil
	}

	id := DedupeDocID(q.Question, q.Category)
	if _, err := col.Doc(id).Create(ctx, doc); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return false, nil
		}
		return false, fmt.Errorf("create question %s: %w", id, err)
	}
	return true, nil
}

func (b *FirestoreBank) Close() error {
	return b.client.Close()
}
