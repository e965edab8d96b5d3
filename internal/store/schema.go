package store

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'student',
	active BOOLEAN NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS subjects (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS grades (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	level TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS questions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	text TEXT NOT NULL,
	subject_id INTEGER NOT NULL REFERENCES subjects(id),
	grade_id INTEGER NOT NULL REFERENCES grades(id),
	type TEXT NOT NULL DEFAULT 'single-choice'
);

CREATE INDEX IF NOT EXISTS idx_questions_subject_grade ON questions(subject_id, grade_id);

CREATE TABLE IF NOT EXISTS answer_options (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	question_id INTEGER NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
	text TEXT NOT NULL,
	is_correct BOOLEAN NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS exams (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER REFERENCES users(id),
	subject_id INTEGER NOT NULL REFERENCES subjects(id),
	grade_id INTEGER NOT NULL REFERENCES grades(id),
	status TEXT NOT NULL DEFAULT 'pending',
	generated_at DATETIME NOT NULL,
	completed_at DATETIME
);

CREATE TABLE IF NOT EXISTS exam_questions (
	exam_id INTEGER NOT NULL REFERENCES exams(id) ON DELETE CASCADE,
	question_id INTEGER NOT NULL REFERENCES questions(id),
	question_order INTEGER NOT NULL,
	PRIMARY KEY (exam_id, question_order),
	UNIQUE (exam_id, question_id)
);

CREATE TABLE IF NOT EXISTS exam_results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id),
	exam_id INTEGER NOT NULL UNIQUE REFERENCES exams(id),
	score REAL NOT NULL,
	total_questions INTEGER NOT NULL,
	correct_questions INTEGER NOT NULL,
	user_answers TEXT NOT NULL,
	feedback TEXT NOT NULL DEFAULT '',
	submission_date DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_exam_results_user ON exam_results(user_id, submission_date);

CREATE TABLE IF NOT EXISTS imported_files (
	path TEXT PRIMARY KEY,
	hash TEXT NOT NULL,
	imported_at DATETIME NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'student',
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS subjects (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS grades (
	id BIGSERIAL PRIMARY KEY,
	level TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS questions (
	id BIGSERIAL PRIMARY KEY,
	text TEXT NOT NULL,
	subject_id BIGINT NOT NULL REFERENCES subjects(id),
	grade_id BIGINT NOT NULL REFERENCES grades(id),
	type TEXT NOT NULL DEFAULT 'single-choice'
);

CREATE INDEX IF NOT EXISTS idx_questions_subject_grade ON questions(subject_id, grade_id);

CREATE TABLE IF NOT EXISTS answer_options (
	id BIGSERIAL PRIMARY KEY,
	question_id BIGINT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
	text TEXT NOT NULL,
	is_correct BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS exams (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT REFERENCES users(id),
	subject_id BIGINT NOT NULL REFERENCES subjects(id),
	grade_id BIGINT NOT NULL REFERENCES grades(id),
	status TEXT NOT NULL DEFAULT 'pending',
	generated_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS exam_questions (
	exam_id BIGINT NOT NULL REFERENCES exams(id) ON DELETE CASCADE,
	question_id BIGINT NOT NULL REFERENCES questions(id),
	question_order INTEGER NOT NULL,
	PRIMARY KEY (exam_id, question_order),
	UNIQUE (exam_id, question_id)
);

CREATE TABLE IF NOT EXISTS exam_results (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users(id),
	exam_id BIGINT NOT NULL UNIQUE REFERENCES exams(id),
	score DOUBLE PRECISION NOT NULL,
	total_questions INTEGER NOT NULL,
	correct_questions INTEGER NOT NULL,
	user_answers TEXT NOT NULL,
	feedback TEXT NOT NULL DEFAULT '',
	submission_date TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_exam_results_user ON exam_results(user_id, submission_date);

CREATE TABLE IF NOT EXISTS imported_files (
	path TEXT PRIMARY KEY,
	hash TEXT NOT NULL,
	imported_at TIMESTAMPTZ NOT NULL
);
`
