package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/dmitrijs2005/gophtodo/internal/awsx"
	"github.com/dmitrijs2005/gophtodo/internal/server/config"
	"github.com/dmitrijs2005/gophtodo/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/gophtodo/internal/server/repositories/todos"
)

// RepositoryManager owns the store clients for one process and vends the
// repositories built on them.
type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Todos() todos.Repository
	Profiles() profiles.Repository
	Close() error
}

// sqlOpen is a seam for testing sql.Open.
var sqlOpen = sql.Open

// New builds the manager for c.StoreBackend. awsCfg is only used by the
// cloud backends.
func New(c *config.Config, awsCfg aws.Config) (RepositoryManager, error) {
	switch c.StoreBackend {
	case config.StoreMemory:
		return NewMemoryRepositoryManager(), nil
	case config.StorePostgres:
		db, err := sqlOpen("pgx", c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
		return NewPostgresRepositoryManager(db)
	case config.StoreDynamoDB:
		client := awsx.NewDynamoDB(awsCfg)
		return NewDynamoDBRepositoryManager(client, client, c.TableName, c.ProfileTableName), nil
	case config.StoreS3:
		return NewS3RepositoryManager(awsx.NewS3(awsCfg), c.S3Bucket, c.S3Prefix,
			awsx.NewDynamoDB(awsCfg), c.ProfileTableName), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
}
