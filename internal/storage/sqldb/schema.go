package sqldb

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS keywords (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS documents (
		id SERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		link TEXT NOT NULL,
		category_id INTEGER NOT NULL REFERENCES categories(id)
	)`,
	`CREATE TABLE IF NOT EXISTS document_keywords (
		document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		keyword_id INTEGER NOT NULL REFERENCES keywords(id),
		PRIMARY KEY (document_id, keyword_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_link ON documents(link)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_category ON documents(category_id)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS keywords (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		link TEXT NOT NULL,
		category_id INTEGER NOT NULL,
		FOREIGN KEY (category_id) REFERENCES categories(id)
	)`,
	`CREATE TABLE IF NOT EXISTS document_keywords (
		document_id INTEGER NOT NULL,
		keyword_id INTEGER NOT NULL,
		PRIMARY KEY (document_id, keyword_id),
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE,
		FOREIGN KEY (keyword_id) REFERENCES keywords(id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_link ON documents(link)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_category ON documents(category_id)`,
}
