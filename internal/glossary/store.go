package glossary

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amityvox/amityvox/internal/models"
)

// Store loads a channel's effective glossary from Postgres, satisfying
// internal/orchestrator's GlossaryLookup interface. It unions the shared
// default-scope entries with the owning community's own entries.
type Store struct {
	pool            *pgxpool.Pool
	useDefaultTerms bool
}

// NewStore wraps pool. When useDefaultTerms is true, the built-in Default()
// set is folded in alongside whatever default-scope rows exist in the
// database, so an instance with no seeded rows still protects common terms.
func NewStore(pool *pgxpool.Pool, useDefaultTerms bool) *Store {
	return &Store{pool: pool, useDefaultTerms: useDefaultTerms}
}

// ForChannel resolves channelID to its owning community and returns the
// merged glossary (component C's input) for that scope.
func (s *Store) ForChannel(ctx context.Context, channelID string) ([]models.GlossaryEntry, error) {
	var communityID string
	err := s.pool.QueryRow(ctx, `SELECT community_id FROM channels WHERE id = $1`, channelID).Scan(&communityID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("channel %s not found", channelID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading channel community: %w", err)
	}

	defaults, err := s.entriesForScope(ctx, models.GlossaryScopeDefault)
	if err != nil {
		return nil, err
	}
	if s.useDefaultTerms {
		defaults = append(Default(), defaults...)
	}

	if communityID == models.DMCommunityID || communityID == models.GlossaryScopeDefault {
		return Merge(defaults, nil), nil
	}

	community, err := s.entriesForScope(ctx, communityID)
	if err != nil {
		return nil, err
	}
	return Merge(defaults, community), nil
}

func (s *Store) entriesForScope(ctx context.Context, scope string) ([]models.GlossaryEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT scope, term, category, preserve_case FROM glossary_entries WHERE scope = $1`, scope)
	if err != nil {
		return nil, fmt.Errorf("loading glossary entries for scope %s: %w", scope, err)
	}
	defer rows.Close()

	var out []models.GlossaryEntry
	for rows.Next() {
		var e models.GlossaryEntry
		if err := rows.Scan(&e.Scope, &e.Term, &e.Category, &e.PreserveCase); err != nil {
			return nil, fmt.Errorf("scanning glossary entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
