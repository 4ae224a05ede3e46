package utils

import (
	"strings"
)

const (
	StorageProviderFile = "file"
	StorageProviderGCS  = "gcs"
)

// NormalizeStorageProvider maps an empty or unknown provider name onto the local file provider.
func NormalizeStorageProvider(provider string) string {
	provider = strings.TrimSpace(strings.ToLower(provider))
	switch provider {
	case StorageProviderGCS:
		return StorageProviderGCS
	}
	return StorageProviderFile
}
