package store

func schemaFor(dialect Dialect) []string {
	id, ts := "INTEGER PRIMARY KEY AUTOINCREMENT", "TIMESTAMP NOT NULL"
	if dialect == DialectPostgres {
		id, ts = "BIGSERIAL PRIMARY KEY", "TIMESTAMPTZ NOT NULL"
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
	user_id TEXT PRIMARY KEY,
	password_hash TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	mobile TEXT NOT NULL UNIQUE,
	role TEXT NOT NULL DEFAULT 'user',
	created_at ` + ts + `
)`,
		`CREATE TABLE IF NOT EXISTS applications (
	application_id ` + id + `,
	user_id TEXT NOT NULL,
	certificate_type TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'Pending',
	application_data TEXT NOT NULL,
	pdf_path TEXT NOT NULL DEFAULT '',
	remarks TEXT NOT NULL DEFAULT '',
	created_at ` + ts + `
)`,
		`CREATE INDEX IF NOT EXISTS applications_user_idx ON applications (user_id)`,
		`CREATE TABLE IF NOT EXISTS complaints (
	id ` + id + `,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	phone TEXT NOT NULL,
	short_description TEXT NOT NULL,
	full_complaint TEXT NOT NULL,
	created_at ` + ts + `
)`,
		`CREATE INDEX IF NOT EXISTS complaints_user_idx ON complaints (user_id)`,
	}
}
