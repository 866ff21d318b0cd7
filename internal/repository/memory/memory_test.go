package memory_test

import (
	"testing"

	"github.com/iliyamo/service-marketplace/internal/repository"
	"github.com/iliyamo/service-marketplace/internal/repository/memory"
	"github.com/iliyamo/service-marketplace/internal/repository/storetest"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(*testing.T) repository.Store { return memory.New() })
}
