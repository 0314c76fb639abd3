package questionbank

import (
	"testing"

	"github.com/markdave123-py/Examcraft/internal/models"
)

func TestDedupeDocIDIgnoresOwnerAndSpacing(t *testing.T) {
	a := DedupeDocID("Capital of  India?", models.CategoryGK)
	b := DedupeDocID("  capital of india? ", models.CategoryGK)
	if a != b {
		t.Fatalf("expected equal ids, got %s and %s", a, b)
	}
	if len(a) != 40 {
		t.Fatalf("expected 40 hex chars, got %d", len(a))
	}
	if c := DedupeDocID("Capital of India?", models.CategoryCustom); c == a {
		t.Fatal("category must change the id")
	}
}

func TestToBankQuestion(t *testing.T) {
	q := models.IndexedQuestion{
		ID:      "abc",
		OwnerID: "u1",
		CandidateQuestion: models.CandidateQuestion{
			Question:       "Capital of India?",
			Options:        [4]string{"Delhi", "Mumbai", "Chennai", "Kolkata"},
			AnswerIndex:    0,
			AnswerDetected: true,
			Category:       models.CategoryGK,
			Difficulty:     models.DifficultyEasy,
		},
		Source: "paper.pdf",
	}
	doc := toBankQuestion(q)
	if len(doc.Options) != 4 || doc.Options[3] != "Kolkata" {
		t.Fatalf("unexpected options %v", doc.Options)
	}
	if doc.Category != "gk" || doc.Difficulty != "easy" || doc.IndexedID != "abc" || doc.OwnerID != "u1" {
		t.Fatalf("unexpected document %+v", doc)
	}
	if !doc.CreatedAt.IsZero() {
		t.Fatal("created_at is set by the server")
	}
}
