package tenant

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ErrNotFound is returned when no active tenant owns a subdomain.
var ErrNotFound = errors.New("tenant not found")

// Store abstracts the control-plane lookup so the resolver can be tested
// against a fake and so an unconfigured deployment can run with no store
// at all.
type Store interface {
	BySubdomain(ctx context.Context, subdomain string) (*Record, error)
}

// SQLStore queries the `tenant` table through a sqlx pool.
type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore { return &SQLStore{db: db} }

// BySubdomain fetches the single active tenant for a subdomain.  The
// caller supplies a context so the lookup respects the gateway's query
// deadline.  Each uncached lookup checks out one pool connection and
// releases it before returning; a failed release is logged and swallowed
// so it never masks the lookup result.
func (s *SQLStore) BySubdomain(ctx context.Context, subdomain string) (*Record, error) {
	const q = `
        SELECT id, subdomain, name, status, ` + "`type`" + `, database_url,
               created_at, updated_at
        FROM   tenant
        WHERE  subdomain = ?
          AND  status    = 'active'
        LIMIT  1;`

	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			zap.S().Warnw("tenant store connection release failed", "err", cerr)
		}
	}()

	var rec Record
	if err := conn.GetContext(ctx, &rec, q, subdomain); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}
