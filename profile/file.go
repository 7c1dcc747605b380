// Package profile implements the stores of user financial profiles.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/etnz/advisory"
)

// userIDRe restricts IDs to names that cannot escape the store's folder.
var userIDRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// FileStore reads profiles from a folder of <user_id>.json files.
type FileStore struct {
	Dir string
}

// Profile reads the profile of userID.
func (s *FileStore) Profile(ctx context.Context, userID string) (*advisory.Profile, error) {
	if !userIDRe.MatchString(userID) {
		return nil, fmt.Errorf("invalid user id %q: %w", userID, advisory.ErrNotFound)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ReadFile(filepath.Join(s.Dir, userID+".json"), userID)
}

// ReadFile decodes a profile from a JSON file. The user ID defaults to userID when the file
// does not carry one.
func ReadFile(path, userID string) (*advisory.Profile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("no profile file %q: %w", path, advisory.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("could not read profile file %q: %w", path, err)
	}
	var p advisory.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("could not decode profile file %q: %w", path, err)
	}
	if p.UserID == "" {
		p.UserID = userID
	}
	return &p, nil
}
