package application

// Schema creates the tables the service writes to.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS loan_applications (
		id             UUID PRIMARY KEY,
		name           TEXT NOT NULL,
		phone          TEXT NOT NULL,
		email          TEXT NOT NULL,
		nin            TEXT NOT NULL DEFAULT '',
		amount         NUMERIC(14,2) NOT NULL,
		term           TEXT NOT NULL CHECK (term IN ('SHORT', 'MEDIUM')),
		interest       INTEGER NOT NULL,
		total_amount   NUMERIC(14,2) NOT NULL,
		receipt_number TEXT NOT NULL UNIQUE,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS loan_applications_name_lower_idx ON loan_applications (lower(name))`,
	`CREATE TABLE IF NOT EXISTS loan_application_events (
		id             BIGSERIAL PRIMARY KEY,
		event_type     TEXT NOT NULL,
		receipt_number TEXT NOT NULL,
		details        JSONB NOT NULL DEFAULT '{}',
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// wireSchema describes the persisted application document.
const wireSchema = `{
  "type": "object",
  "required": ["name", "phone", "email", "nin", "amount", "term", "interest", "total_amount", "receipt_number"],
  "properties": {
    "name":           {"type": "string", "minLength": 1, "maxLength": 200},
    "phone":          {"type": "string", "minLength": 1, "maxLength": 32},
    "email":          {"type": "string", "minLength": 3, "maxLength": 254},
    "nin":            {"type": "string", "maxLength": 32},
    "amount":         {"type": "string", "pattern": "^[0-9]+(\\.[0-9]+)?$"},
    "term":           {"type": "string", "enum": ["SHORT", "MEDIUM"]},
    "interest":       {"type": "integer", "minimum": 0, "maximum": 100},
    "total_amount":   {"type": "string", "pattern": "^[0-9]+(\\.[0-9]+)?$"},
    "receipt_number": {"type": "string", "pattern": "^GFN-[0-9]+$"}
  }
}`
