package repomanager

import (
	"context"

	"github.com/dmitrijs2005/gophtodo/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/gophtodo/internal/server/repositories/todos"
)

// DynamoDBRepositoryManager keeps todos and profiles in two DynamoDB tables.
// Tables are provisioned outside the service, so there is nothing to migrate.
type DynamoDBRepositoryManager struct {
	todos    *todos.DynamoDBRepository
	profiles *profiles.DynamoDBRepository
}

func NewDynamoDBRepositoryManager(todoClient todos.DynamoDBAPI, profileClient profiles.DynamoDBAPI, todoTable, profileTable string) *DynamoDBRepositoryManager {
	return &DynamoDBRepositoryManager{
		todos:    todos.NewDynamoDBRepository(todoClient, todoTable),
		profiles: profiles.NewDynamoDBRepository(profileClient, profileTable),
	}
}

func (m *DynamoDBRepositoryManager) RunMigrations(context.Context) error { return nil }
func (m *DynamoDBRepositoryManager) Todos() todos.Repository { return m.todos }
func (m *DynamoDBRepositoryManager) Profiles() profiles.Repository { return m.profiles }
func (m *DynamoDBRepositoryManager) Close() error { return nil }

// S3RepositoryManager keeps todos as objects and profiles in DynamoDB.
type S3RepositoryManager struct {
	todos    *todos.S3Repository
	profiles *profiles.DynamoDBRepository
}

func NewS3RepositoryManager(s3Client todos.S3API, bucket, prefix string, profileClient profiles.DynamoDBAPI, profileTable string) *S3RepositoryManager {
	return &S3RepositoryManager{
		todos:    todos.NewS3Repository(s3Client, bucket, prefix),
		profiles: profiles.NewDynamoDBRepository(profileClient, profileTable),
	}
}

func (m *S3RepositoryManager) RunMigrations(context.Context) error { return nil }
func (m *S3RepositoryManager) Todos() todos.Repository { return m.todos }
func (m *S3RepositoryManager) Profiles() profiles.Repository { return m.profiles }
func (m *S3RepositoryManager) Close() error { return nil }
