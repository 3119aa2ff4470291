// Package identity supplies the stable user identifier the rest of the app
// keys records by. Cloud installs get an anonymous device identity
// registered with the document store; local installs get a fixed
// placeholder. Both deliver the id through a callback so callers see the
// same asynchronous contract regardless of mode.
package identity

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LocalUserID is the placeholder identity used when no cloud backend is
// configured.
const LocalUserID = "local-user"

const deviceIDFileName = "device-id"

// Provider delivers the user id once known. The callback may fire after
// Init returns; the returned function cancels the registration.
type Provider interface {
	Init(ctx context.Context, onUser func(userID string)) (func(), error)
}

// SessionRegistrar records an anonymous session with the backend.
// *storage.MongoStore satisfies this.
type SessionRegistrar interface {
	RegisterSession(ctx context.Context, sessionID string) error
}

// CloudProvider implements anonymous sign-in against the document store:
// a device id persisted under the data directory is registered as a
// session and becomes the user id. The id never changes and never expires.
type CloudProvider struct {
	dataDir   string
	registrar SessionRegistrar
	log       zerolog.Logger
}

// NewCloudProvider creates a provider that persists its device id in dataDir.
func NewCloudProvider(dataDir string, registrar SessionRegistrar, log zerolog.Logger) *CloudProvider {
	return &CloudProvider{dataDir: dataDir, registrar: registrar, log: log}
}

// Init loads or creates the device id, registers the session and forwards
// the identity. Registration failure is forwarded as no identity (nil is
// rendered as an empty id), matching a failed anonymous sign-in.
func (p *CloudProvider) Init(ctx context.Context, onUser func(userID string)) (func(), error) {
	id, err := p.loadOrCreateDeviceID()
	if err != nil {
		return nil, fmt.Errorf("CloudProvider.Init: %w", err)
	}

	done := make(chan struct{})
	go func() {
		if err := p.registrar.RegisterSession(ctx, id); err != nil {
			p.log.Error().Err(err).Msg("Anonymous session registration failed")
			select {
			case <-done:
			default:
				onUser("")
			}
			return
		}
		select {
		case <-done:
		default:
			onUser(id)
		}
	}()

	return func() { close(done) }, nil
}

func (p *CloudProvider) loadOrCreateDeviceID() (string, error) {
	path := filepath.Join(p.dataDir, deviceIDFileName)

	data, err := os.ReadFile(path)
	if err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("read device id: %w", err)
	}

	id := uuid.NewString()
	if err := os.MkdirAll(p.dataDir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("persist device id: %w", err)
	}
	return id, nil
}

// LocalProvider fabricates a fixed identity. The short delay preserves the
// asynchronous contract shape of the cloud provider.
type LocalProvider struct{}

// NewLocalProvider creates a LocalProvider.
func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

// Init delivers the placeholder identity after a short delay. The identity
// never changes afterwards.
func (p *LocalProvider) Init(ctx context.Context, onUser func(userID string)) (func(), error) {
	timer := time.AfterFunc(10*time.Millisecond, func() {
		onUser(LocalUserID)
	})
	return func() { timer.Stop() }, nil
}

var (
	_ Provider = (*CloudProvider)(nil)
	_ Provider = (*LocalProvider)(nil)
)
