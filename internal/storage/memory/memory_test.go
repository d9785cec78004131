package memory

import (
	"testing"

	"finanzas/internal/storage"
	"finanzas/internal/storage/storagetest"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		return New()
	})
}
