package postgres

import "github.com/jackc/pgx/v5/pgconn"

var (
	errUnique     = &pgconn.PgError{Code: codeUniqueViolation}
	errForeignKey = &pgconn.PgError{Code: codeForeignKeyViolation}
)
