package store_test

import (
	"testing"

	"github.com/ashureev/lingua-tutor/internal/store"
	"github.com/ashureev/lingua-tutor/internal/store/storetest"
)

func TestMemoryStoreCompliance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Repository {
		return store.NewMemory()
	})
}
