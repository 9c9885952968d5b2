package credentials

import (
	"encoding/json"
	"errors"
	"fmt"

	"mediaworker/logger"
	"mediaworker/utils"

	"github.com/cockroachdb/pebble"
)

// BackendField names the profile entry that selects the storage backend.
const BackendField = "backend"

var ErrNotFound = errors.New("credentials not found")

var db *pebble.DB

// OpenDB opens the Pebble DB for credentials at the specified path
func OpenDB(dbPath string) error {
	var err error
	db, err = pebble.Open(dbPath, &pebble.Options{})
	if err != nil {
		logger.Errorf("Failed to open Pebble DB: %v", err)
		return err
	}
	return nil
}

// CloseDB closes the DB
func CloseDB() error {
	if db != nil {
		err := db.Close()
		db = nil
		return err
	}
	return nil
}

// GetCredentials returns the profile stored under key.
func GetCredentials(key string) (map[string]string, error) {
	if db == nil {
		return nil, fmt.Errorf("credentials store not initialized")
	}
	value, closer, err := db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, err
	}
	defer closer.Close()
	creds := make(map[string]string)
	if err := json.Unmarshal(value, &creds); err != nil {
		return nil, err
	}
	return creds, nil
}

// StoreCredentials stores the credentials map under the given key
func StoreCredentials(key string, creds map[string]string) error {
	if db == nil {
		return fmt.Errorf("credentials store not initialized")
	}
	encodedCreds, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	return db.Set([]byte(key), encodedCreds, pebble.Sync)
}

// RegisterCredentials stores a profile under a fresh random key and returns it.
func RegisterCredentials(creds map[string]string) (string, error) {
	key, err := utils.GenerateRNS()
	if err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	if err := StoreCredentials(key, creds); err != nil {
		return "", err
	}
	return key, nil
}

// DeleteCredentials deletes the credentials for the given key
func DeleteCredentials(key string) error {
	if db == nil {
		return fmt.Errorf("credentials store not initialized")
	}
	return db.Delete([]byte(key), pebble.Sync)
}

// MergeAccessInfo overlays the profile stored under key onto base. A backend
// entry in the profile replaces backend.
func MergeAccessInfo(backend string, base map[string]string, key string) (string, map[string]string, error) {
	merged := make(map[string]string, len(base))
	for k, v := range base {
		merged[k] = v
	}
	if key == "" {
		return backend, merged, nil
	}
	profile, err := GetCredentials(key)
	if err != nil {
		return "", nil, err
	}
	for k, v := range profile {
		if k == BackendField {
			backend = v
			continue
		}
		merged[k] = v
	}
	return backend, merged, nil
}
