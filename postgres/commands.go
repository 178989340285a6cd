package postgres

import (
	"fmt"

	"github.com/boz/bringup/command"
	"github.com/lib/pq"
)

// Statement is a single SQL statement run with psql inside the
// container.  Identifiers are quoted when the statement is built.
type Statement struct {
	kind     command.Kind
	User     string
	Database string
	SQL      string
}

func (s Statement) Kind() command.Kind {
	return s.kind
}

func (s Statement) Args() []string {
	return []string{
		"psql",
		"-v", "ON_ERROR_STOP=1",
		"-U", s.User,
		"-d", s.Database,
		"-c", s.SQL,
	}
}

// protocol issues maintenance statements from the postgres database so
// that neither the template nor the working copy holds a session.
type protocol struct {
	user string
}

func (p protocol) Name() string {
	return "postgres"
}

func (p protocol) statement(kind command.Kind, sql string) Statement {
	return Statement{kind: kind, User: p.user, Database: maintenanceDatabase, SQL: sql}
}

func (p protocol) MarkTemplate(template string) command.Command {
	return p.statement(command.KindSnapshot,
		fmt.Sprintf("ALTER DATABASE %s WITH is_template = TRUE", pq.QuoteIdentifier(template)))
}

func (p protocol) Drop(working string) command.Command {
	return p.statement(command.KindDrop,
		fmt.Sprintf("DROP DATABASE IF EXISTS %s WITH (FORCE)", pq.QuoteIdentifier(working)))
}

func (p protocol) Create(working, template string) command.Command {
	return p.statement(command.KindCreate,
		fmt.Sprintf("CREATE DATABASE %s TEMPLATE %s", pq.QuoteIdentifier(working), pq.QuoteIdentifier(template)))
}
