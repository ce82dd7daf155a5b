package registry

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dbgateway/gateway/internal/gwerrors"
	"github.com/dbgateway/gateway/internal/vault"
)

// Registry is the in-memory, file-backed collection of server descriptors.
// All mutating operations persist to disk before returning, and hold a
// mutex for the duration of the read-modify-write so two CLI/API callers
// don't race each other onto the same file.
type Registry struct {
	mu     sync.Mutex
	path   string
	secret string
}

// New opens (or initializes, if absent) the registry document at path.
// secret is the passphrase used to encrypt/decrypt descriptor passwords
// at rest.
func New(path, secret string) *Registry {
	return &Registry{path: path, secret: secret}
}

// GetAll returns every stored descriptor with secrets left encrypted, in
// on-disk order.
func (r *Registry) GetAll() ([]Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, err := Load(r.path)
	if err != nil {
		return nil, err
	}
	return cfg.Servers, nil
}

// Get returns the descriptor with the given id, with secrets left
// encrypted.
func (r *Registry) Get(id string) (Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, err := Load(r.path)
	if err != nil {
		return Descriptor{}, err
	}
	for _, d := range cfg.Servers {
		if d.ID == id {
			return d, nil
		}
	}
	return Descriptor{}, gwerrors.ErrNotFound
}

// Add validates, assigns a fresh id, encrypts secrets, appends d to the
// registry, and persists the result. It returns the stored descriptor
// (still encrypted) with its assigned id.
func (r *Registry) Add(d Descriptor) (Descriptor, error) {
	if err := Validate(d); err != nil {
		return Descriptor{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, err := Load(r.path)
	if err != nil {
		return Descriptor{}, err
	}

	prepared, err := r.prepare(d, nil)
	if err != nil {
		return Descriptor{}, err
	}
	prepared.ID = uuid.Must(uuid.NewV7()).String()

	cfg.Servers = append(cfg.Servers, prepared)
	if err := Save(r.path, cfg); err != nil {
		return Descriptor{}, err
	}
	return prepared, nil
}

// Update validates and replaces the descriptor with a matching id,
// re-encrypting secrets per the unchanged-password rule (see prepare), and
// persists the result.
func (r *Registry) Update(d Descriptor) (Descriptor, error) {
	if d.ID == "" {
		return Descriptor{}, gwerrors.NewValidationError("id", "required", "id is required for update")
	}
	if err := Validate(d); err != nil {
		return Descriptor{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, err := Load(r.path)
	if err != nil {
		return Descriptor{}, err
	}

	idx := indexOf(cfg.Servers, d.ID)
	if idx < 0 {
		return Descriptor{}, gwerrors.ErrNotFound
	}

	prepared, err := r.prepare(d, &cfg.Servers[idx])
	if err != nil {
		return Descriptor{}, err
	}
	prepared.ID = d.ID

	cfg.Servers[idx] = prepared
	if err := Save(r.path, cfg); err != nil {
		return Descriptor{}, err
	}
	return prepared, nil
}

// AddOrUpdate adds d as a new descriptor when it has no id (or its id
// isn't present in the registry), otherwise updates the existing entry.
func (r *Registry) AddOrUpdate(d Descriptor) (Descriptor, error) {
	if d.ID != "" {
		if existing, err := r.Get(d.ID); err == nil {
			_ = existing
			return r.Update(d)
		}
	}
	return r.Add(d)
}

// RemoveByID removes the descriptor with the given id. Removing an id that
// isn't present is not an error: RemoveByID is idempotent.
func (r *Registry) RemoveByID(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, err := Load(r.path)
	if err != nil {
		return err
	}

	idx := indexOf(cfg.Servers, id)
	if idx < 0 {
		return nil
	}

	cfg.Servers = append(cfg.Servers[:idx], cfg.Servers[idx+1:]...)
	return Save(r.path, cfg)
}

// Prepare normalizes the whole stored document in place: every descriptor
// missing an id is assigned a fresh UUIDv7, and every descriptor not yet
// marked Encrypted has its plaintext secrets encrypted, exactly as Add
// would for a single new descriptor. This is the config-file-level
// migration spec.md §6 describes for a hand-authored or legacy
// sqlectron.json that predates this registry — Add/Update only ever see
// one descriptor at a time and never need it.
func (r *Registry) Prepare() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, err := Load(r.path)
	if err != nil {
		return err
	}

	changed := false
	for i, d := range cfg.Servers {
		if d.ID == "" {
			d.ID = uuid.Must(uuid.NewV7()).String()
			changed = true
		}
		if !d.Encrypted {
			prepared, err := r.prepare(d, nil)
			if err != nil {
				return fmt.Errorf("prepare server %q: %w", d.Name, err)
			}
			prepared.ID = d.ID
			d = prepared
			changed = true
		}
		cfg.Servers[i] = d
	}

	if !changed {
		return nil
	}
	return Save(r.path, cfg)
}

// DecryptSecrets returns a copy of d with Password (and the nested SSH
// Password/PrivateKey, if present) decrypted, for handing to a connector at
// dial time. The original stored descriptor, and its Encrypted flag, are
// left untouched.
func (r *Registry) DecryptSecrets(d Descriptor) (Descriptor, error) {
	out := d.Clone()
	if !out.Encrypted {
		return out, nil
	}

	if out.Password != "" {
		plain, err := vault.Decrypt(out.Password, r.secret)
		if err != nil {
			return Descriptor{}, err
		}
		out.Password = plain
	}

	if out.SSH != nil {
		if out.SSH.Password != "" {
			plain, err := vault.Decrypt(out.SSH.Password, r.secret)
			if err != nil {
				return Descriptor{}, err
			}
			out.SSH.Password = plain
		}
		if out.SSH.PrivateKey != "" {
			plain, err := vault.Decrypt(out.SSH.PrivateKey, r.secret)
			if err != nil {
				return Descriptor{}, err
			}
			out.SSH.PrivateKey = plain
		}
	}

	out.Encrypted = false
	return out, nil
}

// prepare returns d with its secret fields encrypted for storage. When
// previous is non-nil and d's plaintext-equivalent password matches what
// previous already has stored, the previous ciphertext is kept verbatim
// instead of re-encrypting, so an unchanged password doesn't produce a
// different ciphertext on every save (spec.md §9).
func (r *Registry) prepare(d Descriptor, previous *Descriptor) (Descriptor, error) {
	out := d.Clone()

	if err := r.preparePassword(&out.Password, previousPassword(previous)); err != nil {
		return Descriptor{}, err
	}

	if out.SSH != nil {
		var prevSSHPassword, prevSSHKey string
		if previous != nil && previous.SSH != nil {
			prevSSHPassword = previous.SSH.Password
			prevSSHKey = previous.SSH.PrivateKey
		}
		if err := r.preparePassword(&out.SSH.Password, prevSSHPassword); err != nil {
			return Descriptor{}, err
		}
		if err := r.preparePassword(&out.SSH.PrivateKey, prevSSHKey); err != nil {
			return Descriptor{}, err
		}
	}

	out.Encrypted = true
	return out, nil
}

// preparePassword encrypts *field in place unless it already equals the
// previous stored ciphertext's plaintext, in which case the previous
// ciphertext is kept unchanged.
func (r *Registry) preparePassword(field *string, previousCiphertext string) error {
	if *field == "" {
		return nil
	}

	if previousCiphertext != "" {
		prevPlain, err := vault.Decrypt(previousCiphertext, r.secret)
		if err == nil && prevPlain == *field {
			*field = previousCiphertext
			return nil
		}
	}

	ciphertext, err := vault.Encrypt(*field, r.secret)
	if err != nil {
		return err
	}
	*field = ciphertext
	return nil
}

func previousPassword(previous *Descriptor) string {
	if previous == nil {
		return ""
	}
	return previous.Password
}

func indexOf(servers []Descriptor, id string) int {
	for i, d := range servers {
		if d.ID == id {
			return i
		}
	}
	return -1
}
