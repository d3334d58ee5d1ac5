package database

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/agrion/agrion/config"
	"github.com/agrion/agrion/internal/apierror"
	"github.com/cenkalti/backoff/v4"
	"github.com/lib/pq"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Schema holds every engine table.
const Schema = "agrion"

var instance *Datasource
var once sync.Once

type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// queries implements Store on top of either the pool or an open transaction.
type queries struct {
	db querier
}

type Datasource struct {
	queries
	Conn *sql.DB
}

// NewDatasource wraps an open connection pool.
func NewDatasource(conn *sql.DB) *Datasource {
	return &Datasource{queries: queries{db: conn}, Conn: conn}
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection returns the process-wide datasource, connecting on first use.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		instance = NewDatasource(con)
	})
	if err != nil {
		return nil, err
	}
	if instance == nil {
		return nil, errors.New("database connection was not established")
	}
	return instance, nil
}

// ConnectDB opens a pooled connection and retries the initial ping with exponential backoff.
func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 30 * time.Second
	err = backoff.RetryNotify(db.Ping, b, func(err error, next time.Duration) {
		logrus.WithError(err).Warnf("database not reachable, retrying in %s", next)
	})
	if err != nil {
		logrus.Errorf("database connection error ❌: %v", err)
		_ = db.Close()
		return nil, err
	}

	logrus.Info("Database connection established ✅")
	return db, nil
}

// EnsureSchema creates the engine schema so the migration table can live inside it.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE SCHEMA IF NOT EXISTS ` + Schema)
	return err
}

// RunInTx runs fn inside one read-committed transaction. Any error from fn rolls everything back.
func (d *Datasource) RunInTx(ctx context.Context, fn func(tx Store) error) error {
	tx, err := d.Conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return storageError(err, "failed to begin transaction")
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if err := fn(queries{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storageError(err, "failed to commit transaction")
	}
	return nil
}

// storageError maps driver failures onto API errors. Constraint violations are caller errors;
// everything else is treated as transient.
func storageError(err error, message string) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return apierror.NewAPIError(apierror.ErrConflict, message+": record already exists", err)
		case "23503", "23514", "22P02":
			return apierror.NewAPIError(apierror.ErrInvalidInput, message, err)
		}
	}
	return apierror.NewAPIError(apierror.ErrTransientIO, message, pkgerrors.Wrap(err, message))
}

func notFound(message string) error {
	return apierror.NewAPIError(apierror.ErrNotFound, message, nil)
}

func rowsAffected(result sql.Result, message string) (int64, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return 0, storageError(err, message)
	}
	return n, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
