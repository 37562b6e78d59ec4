package database

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

var (
	db   *sql.DB
	once sync.Once
)

func Init(dbPath string) error {
	var err error
	once.Do(func() {
		// 确保数据目录存在
		dir := filepath.Dir(dbPath)
		if dir != "" && dir != "." {
			if err = os.MkdirAll(dir, 0755); err != nil {
				return
			}
		}

		// 添加连接参数：WAL模式、忙等待超时
		dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
		db, err = sql.Open("sqlite", dsn)
		if err != nil {
			return
		}
		if err = db.Ping(); err != nil {
			return
		}

		// 限制连接池大小，SQLite 单写多读
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		err = createTables()
	})
	return err
}

func GetDB() *sql.DB {
	return db
}

func createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		is_admin INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);

	CREATE TABLE IF NOT EXISTS partners (
		id TEXT PRIMARY KEY,
		display_name TEXT UNIQUE NOT NULL,
		partnership_start TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_partners_name ON partners(display_name);

	CREATE TABLE IF NOT EXISTS nonbillable_pis (
		id TEXT PRIMARY KEY,
		pi TEXT UNIQUE NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_nonbillable_pis_pi ON nonbillable_pis(pi);

	CREATE TABLE IF NOT EXISTS nonbillable_projects (
		id TEXT PRIMARY KEY,
		project TEXT UNIQUE NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_nonbillable_projects_project ON nonbillable_projects(project);

	CREATE TABLE IF NOT EXISTS timed_projects (
		id TEXT PRIMARY KEY,
		project TEXT UNIQUE NOT NULL,
		start_month TEXT NOT NULL,
		end_month TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_timed_projects_project ON timed_projects(project);

	CREATE TABLE IF NOT EXISTS invoice_runs (
		id TEXT PRIMARY KEY,
		invoice_month TEXT NOT NULL,
		status TEXT NOT NULL,
		source_files INTEGER NOT NULL DEFAULT 0,
		total_rows INTEGER NOT NULL DEFAULT 0,
		billable_rows INTEGER NOT NULL DEFAULT 0,
		credited_rows INTEGER NOT NULL DEFAULT 0,
		total_cost TEXT NOT NULL DEFAULT '0',
		total_credit TEXT NOT NULL DEFAULT '0',
		total_balance TEXT NOT NULL DEFAULT '0',
		output_dir TEXT NOT NULL DEFAULT '',
		uploaded_to_s3 INTEGER NOT NULL DEFAULT 0,
		failure_message TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_invoice_runs_month ON invoice_runs(invoice_month, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_invoice_runs_time ON invoice_runs(created_at DESC);

	CREATE TABLE IF NOT EXISTS system_config (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(schema)
	return err
}

func Close() error {
	if db != nil {
		return db.Close()
	}
	return nil
}
