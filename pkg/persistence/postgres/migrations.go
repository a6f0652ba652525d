package postgres

// migrations returns the versioned schema migrations applied at startup.
// The UNIQUE (process_id, stage_order) constraint backs the advancement
// rule: finding "the stage at order+1" is only well defined when orders are
// unique within a process. The constraint is deferred so an upsert can
// renumber stages within its transaction without tripping over transient
// duplicates.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS clients (
				id BIGSERIAL PRIMARY KEY,
				name TEXT NOT NULL,
				phone TEXT NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				UNIQUE (name, phone)
			);

			CREATE TABLE IF NOT EXISTS process_types (
				id BIGSERIAL PRIMARY KEY,
				name TEXT NOT NULL UNIQUE
			);

			CREATE TABLE IF NOT EXISTS users (
				id BIGSERIAL PRIMARY KEY,
				name TEXT NOT NULL,
				email TEXT NOT NULL UNIQUE,
				phone TEXT NOT NULL DEFAULT '',
				password_hash TEXT NOT NULL,
				role TEXT NOT NULL DEFAULT 'staff',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS processes (
				id BIGSERIAL PRIMARY KEY,
				name TEXT NOT NULL,
				type_id BIGINT NOT NULL REFERENCES process_types (id),
				client_id BIGINT NOT NULL REFERENCES clients (id),
				status TEXT NOT NULL DEFAULT 'in_progress',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				UNIQUE (client_id, type_id)
			);

			CREATE TABLE IF NOT EXISTS stages (
				id BIGSERIAL PRIMARY KEY,
				process_id BIGINT NOT NULL REFERENCES processes (id) ON DELETE CASCADE,
				name TEXT NOT NULL,
				stage_order INTEGER NOT NULL,
				status TEXT,
				user_id BIGINT REFERENCES users (id),
				due_date TIMESTAMP WITH TIME ZONE,
				urgent BOOLEAN NOT NULL DEFAULT FALSE,
				notes TEXT NOT NULL DEFAULT '',
				UNIQUE (process_id, name),
				UNIQUE (process_id, stage_order) DEFERRABLE INITIALLY DEFERRED
			);

			CREATE TABLE IF NOT EXISTS notifications (
				id BIGSERIAL PRIMARY KEY,
				user_id BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
				stage_id BIGINT NOT NULL REFERENCES stages (id) ON DELETE CASCADE,
				message TEXT NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				UNIQUE (user_id, stage_id, message)
			);

			CREATE INDEX IF NOT EXISTS idx_stages_user_status ON stages (user_id, status);
			CREATE INDEX IF NOT EXISTS idx_processes_client ON processes (client_id);

			INSERT INTO process_types (name)
			VALUES ('Locação'), ('Venda'), ('Administração')
			ON CONFLICT (name) DO NOTHING;
		`,
	}
}
