package memory

import (
	"testing"

	"github.com/example/smart-scheduler/internal/persistence/persistencetest"
)

func TestStorage_RepositoryContract(t *testing.T) {
	t.Parallel()

	persistencetest.Run(t, func(t *testing.T) persistencetest.Store {
		return New()
	})
}
