package vectorstore

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/markdave123-py/Examcraft/internal/models"
)

// maxCollectionName is the longest collection name the backing stores accept.
const maxCollectionName = 63

// NormalizeQuestion lowercases and collapses whitespace.
func NormalizeQuestion(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// QuestionID is a stable id for (owner, normalized question, category).
// Each field is length-prefixed before hashing so that no two distinct
// tuples share an encoding.
func QuestionID(ownerID, question string, category models.CategoryTag) string {
	h := sha256.New()
	for _, part := range []string{ownerID, NormalizeQuestion(question), string(category)} {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(part)))
		h.Write(n[:])
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CollectionName derives the per-owner collection name.
func CollectionName(ownerID string) string {
	var b strings.Builder
	b.WriteString("user_")
	for _, r := range ownerID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	b.WriteString("_questions")
	name := b.String()
	if len(name) > maxCollectionName {
		name = name[:maxCollectionName]
	}
	return name
}
