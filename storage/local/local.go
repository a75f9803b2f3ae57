// Package local persists the client's durable state (the serialized
// Identity and the bearer token) as a single JSON file, the counterpart
// of the two local-storage entries the browser dashboard kept.
package local

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/Yasheenyash33/StacklyHub-main-main/core"
	"github.com/Yasheenyash33/StacklyHub-main-main/core/state"
)

type CredentialFile struct {
	path string
}

var _ state.CredentialStore = (*CredentialFile)(nil)

// NewCredentialFile stores credentials at path, or at the default location
// under the user config dir when path is empty.
func NewCredentialFile(path string) (*CredentialFile, error) {
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, errors.Wrap(err, "resolving config dir")
		}
		path = filepath.Join(dir, "stacklyhub", "credentials.json")
	}
	return &CredentialFile{path: path}, nil
}

// Default builds the store configured by core.Conf.
func Default() (*CredentialFile, error) {
	return NewCredentialFile(core.Conf.CredentialsFile)
}

func (f *CredentialFile) Path() string { return f.path }

// Load reads the cached credentials; (nil, nil) when nothing is cached.
func (f *CredentialFile) Load() (*state.Credentials, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "reading credential cache")
	}
	var creds state.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, errors.Wrap(err, "parsing credential cache")
	}
	return &creds, nil
}

func (f *CredentialFile) Save(creds state.Credentials) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return errors.Wrap(err, "creating credential dir")
	}
	data, err := json.Marshal(creds)
	if err != nil {
		return errors.Wrap(err, "encoding credentials")
	}
	// the token is a secret; owner-only
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return errors.Wrap(err, "writing credential cache")
	}
	return nil
}

func (f *CredentialFile) Clear() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "clearing credential cache")
	}
	return nil
}
