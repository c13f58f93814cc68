package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed snapshot.sql
var snapshotSQL string

// SnapshotFunctions lists the functions snapshot.sql must create
var SnapshotFunctions = []string{
	"init_snapshot",
	"insert_snapshot",
	"select_current_snapshot",
	"select_snapshot_chunks",
	"delete_snapshots",
}

// Init creates the database extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadSnapshotSql loads the snapshot store functions.
// Without force nothing is executed when all functions already exist.
func LoadSnapshotSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, SnapshotFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing snapshot functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(snapshotSQL)
	if err != nil {
		return fmt.Errorf("error executing snapshot SQL: %w", err)
	}

	exist, err := checkFunctions(db, SnapshotFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL snapshot functions loaded successfully")
	return nil
}

// checkFunctions reports whether every function in sqlFunctions exists.
// An empty list reports false.
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
