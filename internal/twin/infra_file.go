package twin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

const profilesFileName = "profiles.json"

type profilesDocument struct {
	Profiles []Profile `json:"profiles"`
}

// fileRepo keeps every profile in one JSON document that is read and
// rewritten in full on each access.
type fileRepo struct {
	path string
	// nil disables serialization of read-modify-write; concurrent appends
	// may then lose updates.
	mu *sync.Mutex
	// afterRead runs between the read and the write of Append.
	afterRead func()
}

// NewFileRepo creates dataDir and an empty profiles document if they are missing.
func NewFileRepo(dataDir string, lock bool) (Repo, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	r := &fileRepo{path: filepath.Join(dataDir, profilesFileName)}
	if lock {
		r.mu = &sync.Mutex{}
	}

	if _, err := os.Stat(r.path); errors.Is(err, os.ErrNotExist) {
		if err := r.write(&profilesDocument{Profiles: []Profile{}}); err != nil {
			return nil, err
		}
		log.Printf("[store] created %s", r.path)
	} else if err != nil {
		return nil, fmt.Errorf("stat %s: %w", r.path, err)
	}

	return r, nil
}

func (r *fileRepo) Get(ctx context.Context, id string) (*Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := r.read()
	if err != nil {
		return nil, err
	}
	for i := range doc.Profiles {
		if doc.Profiles[i].ID == id {
			p := doc.Profiles[i]
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (r *fileRepo) Append(ctx context.Context, p *Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if r.mu != nil {
		r.mu.Lock()
		defer r.mu.Unlock()
	}

	doc, err := r.read()
	if err != nil {
		return err
	}
	if r.afterRead != nil {
		r.afterRead()
	}
	for _, existing := range doc.Profiles {
		if existing.ID == p.ID {
			return fmt.Errorf("profile %s already exists", p.ID)
		}
	}

	doc.Profiles = append(doc.Profiles, *p)
	return r.write(doc)
}

func (r *fileRepo) read() (*profilesDocument, error) {
	b, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", r.path, err)
	}

	var doc profilesDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", r.path, err)
	}
	return &doc, nil
}

// write replaces the document through a temp file and rename.
func (r *fileRepo) write(doc *profilesDocument) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding profiles: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), profilesFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", r.path, err)
	}
	return nil
}
