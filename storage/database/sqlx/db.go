package sqlxrepos

import (
	sq "github.com/Masterminds/squirrel"
)

// psql builds Postgres-flavored queries.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
