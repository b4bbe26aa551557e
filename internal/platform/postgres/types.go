package postgres

import "github.com/jackc/pgx/v5/pgtype"

// pgTypeMap decodes Postgres-specific values (the text[] columns) that
// database/sql cannot scan on its own. No types are registered after init,
// so sharing it across stores is safe.
var pgTypeMap = pgtype.NewMap()
