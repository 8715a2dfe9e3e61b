package db

import (
	"context"

	"dao_governance_pool/configs"

	"github.com/go-pg/migrations/v8"
	"github.com/go-pg/pg/v10"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type queryLogger struct {
	logger *zap.SugaredLogger
}

func (l queryLogger) BeforeQuery(c context.Context, q *pg.QueryEvent) (context.Context, error) {
	query, err := q.FormattedQuery()
	if err != nil {
		return c, nil
	}

	l.logger.Debug(string(query))
	return c, nil
}

func (l queryLogger) AfterQuery(c context.Context, q *pg.QueryEvent) error {
	return nil
}

// StartDB connects, verifies the connection and brings the schema up to the
// latest migration before returning the handle.
func StartDB(config configs.DB, logger *zap.SugaredLogger) (*pg.DB, error) {
	options, err := pg.ParseURL(config.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse db url")
	}

	db := pg.Connect(options)
	db.AddQueryHook(queryLogger{logger})

	if err := db.Ping(context.Background()); err != nil {
		return nil, errors.Wrap(err, "failed to ping db")
	}

	collection := migrations.NewCollection()
	if err := collection.DiscoverSQLMigrations("migrations"); err != nil {
		return nil, errors.Wrap(err, "failed to discover migrations")
	}

	if _, _, err := collection.Run(db, "init"); err != nil {
		return nil, errors.Wrap(err, "failed to init migrations")
	}

	oldVersion, newVersion, err := collection.Run(db, "up")
	if err != nil {
		return nil, errors.Wrap(err, "failed to run migrations")
	}

	if newVersion != oldVersion {
		logger.Infow("schema migrated", "from", oldVersion, "to", newVersion)
	} else {
		logger.Infow("schema up to date", "version", oldVersion)
	}

	return db, nil
}
