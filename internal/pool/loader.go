package pool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	credentialExt = ".password"
	usedMarkerExt = ".password.used"
)

// Writer is the slice of the lease store the loader needs: replacing the
// stored pool wholesale.
type Writer interface {
	BulkWrite(ctx context.Context, creds []Credential) error
}

// Loader scans the password directory and reconciles credential files against
// used markers, handing the resulting set to the lease store.
type Loader struct {
	dir       string
	host      string
	port      int
	store     Writer
	readiness *Readiness
}

// NewLoader builds a loader for the given directory and endpoint identity.
func NewLoader(dir, host string, port int, store Writer, readiness *Readiness) *Loader {
	return &Loader{
		dir:       filepath.Clean(dir),
		host:      host,
		port:      port,
		store:     store,
		readiness: readiness,
	}
}

// LoadPool builds one credential per *.password file in the directory,
// marking those with a matching *.password.used marker unavailable, and
// writes the full set to the lease store. Any filesystem or store error is
// returned to the caller; nothing is thrown past this boundary. On success
// the readiness flag is marked loaded.
func (l *Loader) LoadPool(ctx context.Context) ([]Credential, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read password directory %s: %w", l.dir, err)
	}

	used := make(map[string]struct{})
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, usedMarkerExt):
			used[strings.TrimSuffix(name, ".used")] = struct{}{}
		case strings.HasSuffix(name, credentialExt):
			files = append(files, name)
		}
	}

	creds := make([]Credential, 0, len(files))
	for _, name := range files {
		username := strings.TrimSuffix(name, credentialExt)

		data, err := os.ReadFile(filepath.Join(l.dir, name))
		if err != nil {
			return nil, fmt.Errorf("read credential file %s: %w", name, err)
		}
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			log.WithField("username", username).Warn("credential file has empty secret")
		}

		_, marked := used[name]
		creds = append(creds, Credential{
			Username:  username,
			Password:  secret,
			IPAddress: l.host,
			Port:      l.port,
			Available: !marked,
		})
	}

	if err := l.store.BulkWrite(ctx, creds); err != nil {
		return nil, fmt.Errorf("write credential pool: %w", err)
	}

	l.readiness.MarkLoaded()
	log.WithFields(log.Fields{
		"dir":   l.dir,
		"total": len(creds),
		"used":  len(used),
	}).Info("credential pool loaded")
	return creds, nil
}
