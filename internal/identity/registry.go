// Package identity persists the local player's device and user identifiers.
//
// Reads always go to the backing store so that callers resolving "who am I"
// at dispatch time see the value written by the most recent login, never a
// copy captured earlier.
package identity

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"unosync/internal/domain"
	"unosync/internal/ports"
)

// Storage keys.
const (
	KeyDeviceID = "uno_device_id"
	KeyUserID   = "uno_current_user_id"
	KeyUsername = "uno_username"
)

const (
	deviceIDPrefix = "device_"
	usernamePrefix = "UnoPlayer_"
	minDeviceIDLen = 10
	base36         = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// Registry reads and writes the persisted identity.
type Registry struct {
	store ports.KVStore

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRegistry creates a registry over store. rng may be nil to use a time-seeded default.
func NewRegistry(store ports.KVStore, rng *rand.Rand) *Registry {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Registry{store: store, rng: rng}
}

// DeviceID returns the persisted device id, generating and storing one on
// first use. generated reports whether a new id was created.
func (r *Registry) DeviceID(ctx context.Context) (id string, generated bool, err error) {
	id, err = r.get(ctx, KeyDeviceID)
	if err != nil {
		return "", false, err
	}
	if len(id) >= minDeviceIDLen {
		return id, false, nil
	}

	id = deviceIDPrefix + uuid.NewString()
	if err := r.store.Set(ctx, KeyDeviceID, id); err != nil {
		return "", false, fmt.Errorf("persist device id: %w", err)
	}
	return id, true, nil
}

// ForgetDevice removes the stored device id so the next login generates a new one.
func (r *Registry) ForgetDevice(ctx context.Context) error {
	return r.store.Delete(ctx, KeyDeviceID)
}

// UserID returns the persisted user id, or "" when none has been stored.
func (r *Registry) UserID(ctx context.Context) (string, error) {
	return r.get(ctx, KeyUserID)
}

// SetUserID persists the user id resolved by authentication.
func (r *Registry) SetUserID(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return errors.New("identity: empty user id")
	}
	return r.store.Set(ctx, KeyUserID, userID)
}

// Username returns the persisted username, or "".
func (r *Registry) Username(ctx context.Context) (string, error) {
	return r.get(ctx, KeyUsername)
}

func (r *Registry) SetUsername(ctx context.Context, username string) error {
	return r.store.Set(ctx, KeyUsername, username)
}

// Load returns the full persisted identity.
func (r *Registry) Load(ctx context.Context) (domain.Identity, error) {
	var (
		out domain.Identity
		err error
	)
	if out.DeviceID, err = r.get(ctx, KeyDeviceID); err != nil {
		return domain.Identity{}, err
	}
	if out.UserID, err = r.get(ctx, KeyUserID); err != nil {
		return domain.Identity{}, err
	}
	if out.Username, err = r.get(ctx, KeyUsername); err != nil {
		return domain.Identity{}, err
	}
	return out, nil
}

// Logout clears the user id and username. The device id is kept so the same
// account is reused on the next login.
func (r *Registry) Logout(ctx context.Context) error {
	if err := r.store.Delete(ctx, KeyUserID); err != nil {
		return err
	}
	return r.store.Delete(ctx, KeyUsername)
}

// GenerateUsername returns a friendly guest name like "UnoPlayer_k3x9qa".
func (r *Registry) GenerateUsername() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	b.WriteString(usernamePrefix)
	for i := 0; i < 6; i++ {
		b.WriteByte(base36[r.rng.Intn(len(base36))])
	}
	return b.String()
}

func (r *Registry) get(ctx context.Context, key string) (string, error) {
	v, err := r.store.Get(ctx, key)
	if errors.Is(err, ports.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return v, nil
}
