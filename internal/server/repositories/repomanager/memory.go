package repomanager

import (
	"context"

	"github.com/dmitrijs2005/gophtodo/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/gophtodo/internal/server/repositories/todos"
)

// MemoryRepositoryManager holds process-local stores; data is lost on exit.
type MemoryRepositoryManager struct {
	todos    *todos.MemoryRepository
	profiles *profiles.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		todos:    todos.NewMemoryRepository(),
		profiles: profiles.NewMemoryRepository(),
	}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context) error { return nil }
func (m *MemoryRepositoryManager) Todos() todos.Repository { return m.todos }
func (m *MemoryRepositoryManager) Profiles() profiles.Repository { return m.profiles }
func (m *MemoryRepositoryManager) Close() error { return nil }
