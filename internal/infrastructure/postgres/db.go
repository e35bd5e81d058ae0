package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type ConnectionInfo struct {
	Host     string
	Port     int
	Username string
	DBName   string
	SSLMode  string
	Password string
}

func (i ConnectionInfo) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s dbname=%s sslmode=%s password=%s",
		i.Host,
		i.Port,
		i.Username,
		i.DBName,
		i.SSLMode,
		i.Password,
	)
}

// Open connects through the pgx stdlib driver and pings the server.
func Open(ctx context.Context, info ConnectionInfo) (*sql.DB, error) {
	db, err := sql.Open("pgx", info.DSN())
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS invoices (
	reference   TEXT PRIMARY KEY,
	amount      NUMERIC(19,4) NOT NULL,
	amount_paid NUMERIC(19,4) NOT NULL DEFAULT 0,
	tax_amount  NUMERIC(19,4) NOT NULL DEFAULT 0,
	type        TEXT NOT NULL DEFAULT 'standard',
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS invoice_payments (
	invoice_reference TEXT NOT NULL REFERENCES invoices(reference) ON DELETE CASCADE,
	position          INT NOT NULL,
	reference         TEXT NOT NULL,
	amount            NUMERIC(19,4) NOT NULL,
	PRIMARY KEY (invoice_reference, position)
);`

// Migrate creates the invoice tables when missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}
