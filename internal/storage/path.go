package storage

import (
	"fmt"
	"path"
	"strings"
)

const objectScheme = "s3://"

// Location is either a local file path or a key in the configured bucket.
type Location struct {
	Path   string
	Key    string
	Remote bool
}

func (l Location) String() string {
	if l.Remote {
		return objectScheme + l.Key
	}
	return l.Path
}

// ParseLocation treats an "s3://" prefix as an object key and anything else as a local path.
func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, fmt.Errorf("location is required")
	}
	if !strings.HasPrefix(raw, objectScheme) {
		return Location{Path: raw}, nil
	}
	key, err := CleanKey(strings.TrimPrefix(raw, objectScheme))
	if err != nil {
		return Location{}, err
	}
	return Location{Key: key, Remote: true}, nil
}

func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(strings.TrimPrefix(key, "/"))
	if key == "" {
		return "", fmt.Errorf("object key is required")
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") || strings.Contains(cleaned, "/../") {
		return "", fmt.Errorf("invalid object key: %q", key)
	}
	return cleaned, nil
}
