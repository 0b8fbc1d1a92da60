package catalog

import (
	"context"
	"fmt"

	"yamdb/pkg/database"
)

// Mean returns the arithmetic mean of scores, or nil when there are none.
func Mean(scores []int) *float64 {
	if len(scores) == 0 {
		return nil
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	m := float64(sum) / float64(len(scores))
	return &m
}

// scoresByTitle loads every review score of the given titles in one query.
func scoresByTitle(ctx context.Context, q database.Querier, ids []int64) (map[int64][]int, error) {
	out := make(map[int64][]int, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := q.QueryContext(ctx,
		`SELECT title_id, score FROM reviews WHERE title_id IN (`+database.Placeholders(len(ids))+`)`,
		int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("load scores: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var score int
		if err := rows.Scan(&id, &score); err != nil {
			return nil, err
		}
		out[id] = append(out[id], score)
	}
	return out, rows.Err()
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
