package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	domain "flyte-gateway/internal/domain/user"
	apperrors "flyte-gateway/pkg/errors"
)

const reloadDebounce = 100 * time.Millisecond

// userFile is the on-disk layout shared with the other services reading the file.
type userFile struct {
	Users []domain.User `json:"users"`
}

// UserRepoJSON stores accounts in a single JSON document.
// Every read-modify-write runs under one mutex against the current file
// contents, and writes replace the file atomically through a rename.
type UserRepoJSON struct {
	path string
	log  *zap.Logger

	mu    sync.RWMutex
	users []domain.User

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Options controls the JSON user store.
type Options struct {
	// Watch reloads the in-memory snapshot when another process edits the file.
	Watch bool
}

// NewUserRepoJSON opens (creating if needed) the user file at path.
func NewUserRepoJSON(path string, log *zap.Logger, opts Options) (*UserRepoJSON, error) {
	r := &UserRepoJSON{
		path: filepath.Clean(path),
		log:  log.Named("jsonstore"),
	}

	if err := r.ensureFile(); err != nil {
		return nil, err
	}

	users, err := r.readFile()
	if err != nil {
		return nil, err
	}
	r.users = users

	if opts.Watch {
		if err := r.startWatcher(); err != nil {
			return nil, err
		}
	}

	r.log.Info("user store opened",
		zap.String("path", r.path),
		zap.Int("users", len(users)),
		zap.Bool("watch", opts.Watch),
	)
	return r, nil
}

func (r *UserRepoJSON) ensureFile() error {
	if _, err := os.Stat(r.path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat user file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create user file dir: %w", err)
	}
	r.log.Warn("user file missing, creating empty one", zap.String("path", r.path))
	return r.writeFile(nil)
}

// readFile parses the user file. A missing file reads as empty.
func (r *UserRepoJSON) readFile() ([]domain.User, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.User{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read user file: %w", err)
	}

	var f userFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse user file %s: %w", r.path, err)
	}
	if f.Users == nil {
		f.Users = []domain.User{}
	}
	return f.Users, nil
}

// writeFile writes users to a temp file in the same directory and renames it over the original.
func (r *UserRepoJSON) writeFile(users []domain.User) error {
	if users == nil {
		users = []domain.User{}
	}
	data, err := json.MarshalIndent(userFile{Users: users}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode user file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), "."+filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp user file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp user file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp user file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp user file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp user file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("replace user file: %w", err)
	}
	return nil
}

// modify runs fn against the current file contents and persists the result.
// The caller must not hold r.mu.
func (r *UserRepoJSON) modify(fn func(users []domain.User) ([]domain.User, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// The file is the source of truth; another process may have written it
	users, err := r.readFile()
	if err != nil {
		return err
	}

	users, err = fn(users)
	if err != nil {
		return err
	}

	if err := r.writeFile(users); err != nil {
		r.log.Error("failed to write user file", zap.Error(err))
		return err
	}
	r.users = users
	return nil
}

// snapshot returns the users to serve a read from.
// Without a watcher the file is re-read so external edits are never missed.
func (r *UserRepoJSON) snapshot() ([]domain.User, error) {
	if r.watcher == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		users, err := r.readFile()
		if err != nil {
			return nil, err
		}
		r.users = users
		return users, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.users, nil
}

// Create inserts u unless its username or email is already taken.
func (r *UserRepoJSON) Create(ctx context.Context, u *domain.User) error {
	if u == nil {
		return errors.New("user cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := r.modify(func(users []domain.User) ([]domain.User, error) {
		for i := range users {
			if users[i].ConflictsWith(u) {
				return nil, apperrors.NewAlreadyExistsError("user", "username or email already exists")
			}
		}
		return append(users, *u), nil
	})
	if err != nil {
		return err
	}

	r.log.Info("user created", zap.String("username", u.Username))
	return nil
}

// GetByUsername returns a copy of the account, or nil when absent.
func (r *UserRepoJSON) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	users, err := r.snapshot()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Username == username {
			u := users[i]
			return &u, nil
		}
	}
	return nil, nil
}

// FindByLogin returns every account the identifier names.
func (r *UserRepoJSON) FindByLogin(ctx context.Context, identifier string) ([]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	users, err := r.snapshot()
	if err != nil {
		return nil, err
	}
	var found []domain.User
	for i := range users {
		if users[i].MatchesLogin(identifier) {
			found = append(found, users[i])
		}
	}
	return found, nil
}

// Update applies mutate to the account named originalUsername.
func (r *UserRepoJSON) Update(ctx context.Context, originalUsername string, mutate func(*domain.User) error) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var updated domain.User
	err := r.modify(func(users []domain.User) ([]domain.User, error) {
		idx := -1
		for i := range users {
			if users[i].Username == originalUsername {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, apperrors.NewNotFoundError("user", "user not found")
		}

		next := users[idx]
		if err := mutate(&next); err != nil {
			return nil, err
		}
		for i := range users {
			if i != idx && users[i].ConflictsWith(&next) {
				return nil, apperrors.NewAlreadyExistsError("user", "username or email already exists")
			}
		}

		out := make([]domain.User, len(users))
		copy(out, users)
		out[idx] = next
		updated = next
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	r.log.Info("user updated", zap.String("original_username", originalUsername), zap.String("username", updated.Username))
	return &updated, nil
}

// reload refreshes the snapshot after an external change.
func (r *UserRepoJSON) reload() {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.readFile()
	if err != nil {
		// Keep serving the last good snapshot
		r.log.Warn("failed to reload user file", zap.Error(err))
		return
	}
	r.users = users
	r.log.Debug("user file reloaded", zap.Int("users", len(users)))
}

// startWatcher watches the parent directory; the file itself is replaced
// on every write so a watch on its inode would go stale.
func (r *UserRepoJSON) startWatcher() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(r.path)); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(r.path), err)
	}

	r.watcher = w
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	go r.watch()
	return nil
}

func (r *UserRepoJSON) watch() {
	defer close(r.doneCh)

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-r.stopCh:
			return

		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != r.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			// Debounce bursts from editors and our own rename
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			timerCh = timer.C

		case <-timerCh:
			timerCh = nil
			r.reload()

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.log.Warn("user file watcher error", zap.Error(err))
		}
	}
}

// Close stops the file watcher.
func (r *UserRepoJSON) Close() error {
	if r.watcher == nil {
		return nil
	}
	close(r.stopCh)
	<-r.doneCh
	return r.watcher.Close()
}
