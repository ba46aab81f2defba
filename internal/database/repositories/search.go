package repositories

import (
	"context"
	"fmt"
	"strings"
	"vance/internal/database"
	"vance/internal/database/models"

	"github.com/google/uuid"
)

type SearchRepository interface {
	SearchQuery(ctx context.Context, query string, userID uuid.UUID) (*models.SearchResult, error)
}

type searchRepository struct {
	db database.DBTX
}

func NewSearchRepository(db database.DBTX) SearchRepository {
	return &searchRepository{db: db}
}

// SearchQuery matches notes the user owns or that are shared with the user.
func (s *searchRepository) SearchQuery(ctx context.Context, query string, userID uuid.UUID) (*models.SearchResult, error) {
	formattedQuery := formatTsQuery(query)
	if formattedQuery == "" {
		return &models.SearchResult{Notes: []models.Note{}}, nil
	}

	tsQuery := "to_tsquery('english', $2)"
	notesQuery := `
	SELECT ` + noteColumns + `
	FROM note n
	WHERE (n.user_id = $1 OR EXISTS (SELECT 1 FROM user_note s WHERE s.note_id = n.id AND s.user_id = $1))
	  AND to_tsvector('english', n.title || ' ' || n.content) @@ ` + tsQuery + `
	ORDER BY ts_rank(to_tsvector('english', n.title || ' ' || n.content), ` + tsQuery + `) DESC
	`

	rows, err := s.db.QueryContext(ctx, notesQuery, userID, formattedQuery)
	if err != nil {
		return nil, fmt.Errorf("error searching notes: %w", err)
	}
	defer rows.Close()

	notes := []models.Note{}
	for rows.Next() {
		var note models.Note
		if err := scanNote(rows, &note); err != nil {
			return nil, fmt.Errorf("error scanning note: %w", err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notes: %w", err)
	}
	return &models.SearchResult{Notes: notes}, nil
}

// formatTsQuery turns free text into a prefix-matching AND query. tsquery
// operators are stripped so user input cannot break the expression.
func formatTsQuery(query string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '\'', '&', '|', '!', ':', '(', ')', '*', '\\', '<', '>':
			return ' '
		}
		return r
	}, query)

	words := strings.Fields(clean)
	for i, word := range words {
		words[i] = word + ":*"
	}
	return strings.Join(words, " & ")
}
