package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects bun to Postgres or SQLite. SQLite is limited to a single
// connection so in-memory databases survive between queries, and always runs
// with foreign keys on so quiz deletion cascades.
func Open(driver, dsn string) (*bun.DB, error) {
	switch driver {
	case DriverPostgres:
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
		return bun.NewDB(sqldb, pgdialect.New()), nil
	case DriverSQLite:
		sqldb, err := sql.Open("sqlite", sqliteDSN(dsn))
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

// sqliteDSN turns on foreign key enforcement unless the DSN already sets it.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}

// CreateSchema creates every table with its keys and constraints. It is safe
// to run against an existing schema.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	tables := []struct {
		model       interface{}
		foreignKeys []string
	}{
		{model: (*quizRow)(nil)},
		{model: (*questionRow)(nil), foreignKeys: []string{
			`("quiz_id") REFERENCES "quizzes" ("id") ON DELETE CASCADE`,
		}},
		{model: (*answerRow)(nil), foreignKeys: []string{
			`("question_id") REFERENCES "questions" ("id") ON DELETE CASCADE`,
		}},
		{model: (*responseRow)(nil), foreignKeys: []string{
			`("quiz_id") REFERENCES "quizzes" ("id") ON DELETE CASCADE`,
		}},
		{model: (*resultRow)(nil), foreignKeys: []string{
			`("quiz_id") REFERENCES "quizzes" ("id") ON DELETE CASCADE`,
		}},
	}
	for _, t := range tables {
		q := db.NewCreateTable().Model(t.model).IfNotExists()
		for _, fk := range t.foreignKeys {
			q = q.ForeignKey(fk)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	indexes := []struct {
		model  interface{}
		name   string
		column string
	}{
		{(*questionRow)(nil), "questions_quiz_id_idx", "quiz_id"},
		{(*answerRow)(nil), "answers_question_id_idx", "question_id"},
		{(*resultRow)(nil), "results_quiz_id_idx", "quiz_id"},
	}
	for _, idx := range indexes {
		if _, err := db.NewCreateIndex().Model(idx.model).Index(idx.name).Column(idx.column).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}

// DropSchema drops every table, children first.
func DropSchema(ctx context.Context, db bun.IDB) error {
	models := []interface{}{
		(*resultRow)(nil),
		(*responseRow)(nil),
		(*answerRow)(nil),
		(*questionRow)(nil),
		(*quizRow)(nil),
	}
	for _, m := range models {
		if _, err := db.NewDropTable().Model(m).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
	}
	return nil
}

// isUniqueViolation recognizes unique-constraint failures from both drivers.
func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
