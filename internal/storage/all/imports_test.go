package all

import (
	"reflect"
	"slices"
	"testing"

	"fastjsonl/internal/config"
	"fastjsonl/internal/storage"
)

func TestAllKindsRegistered(t *testing.T) {
	want := []string{"arrow", "mssql", "mysql", "postgres", "sqlite"}
	if got := storage.ListKinds(); !reflect.DeepEqual(got, want) {
		t.Fatalf("ListKinds() = %v, want %v", got, want)
	}
}

// Job files are checked against config.StorageKinds without loading any
// backend; the two lists must agree.
func TestConfigKindsMatchRegistry(t *testing.T) {
	kinds := slices.Sorted(slices.Values(config.StorageKinds))
	if got := storage.ListKinds(); !slices.Equal(got, kinds) {
		t.Fatalf("ListKinds() = %v, config.StorageKinds = %v", got, kinds)
	}
}
