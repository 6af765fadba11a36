package callkit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/callkit/device"
	"github.com/opd-ai/callkit/engine"
	"github.com/opd-ai/callkit/feature"
)

// CallClient is the SDK entry point. It owns the engine binding, hands
// out the device manager, and creates the call agent that binds a user
// identity to the calling service.
//
// A client holds at most one agent at a time. Disposing the agent frees
// the slot for a replacement; creating a second agent while one is
// active fails with ErrAgentActive.
type CallClient struct {
	id  string
	eng engine.Engine
	log *logrus.Entry

	opts ClientOptions

	mu         sync.Mutex
	disposed   bool
	agent      *CallAgent
	devices    *device.Manager
	lastCallID string

	features *feature.Registry
}

// NewCallClient creates a client over the given engine binding. A nil
// opts uses defaults.
func NewCallClient(eng engine.Engine, opts *ClientOptions) (*CallClient, error) {
	if eng == nil {
		return nil, errors.New("engine cannot be nil")
	}
	if opts == nil {
		opts = NewClientOptions()
	}
	if opts.LogLevel != "" {
		level, err := logrus.ParseLevel(opts.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.LogLevel, err)
		}
		logrus.SetLevel(level)
	}

	c := &CallClient{
		id:   uuid.NewString(),
		eng:  eng,
		opts: *opts,
	}
	c.log = logrus.WithFields(logrus.Fields{"component": "callkit.CallClient", "client_id": c.id})
	c.features = feature.NewRegistry(feature.Context{Owner: c, ClientID: c.id})

	c.log.WithFields(logrus.Fields{
		"app_name":    opts.Diagnostics.AppName,
		"app_version": opts.Diagnostics.AppVersion,
	}).Info("call client created")
	return c, nil
}

// ClientID returns the client's stable identifier, suitable for
// correlating support tickets with service-side logs.
func (c *CallClient) ClientID() string { return c.id }

// LastCallID returns the ID of the most recently created call, empty
// when no call has been started or accepted yet.
func (c *CallClient) LastCallID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastCallID
}

// Feature returns the lazily constructed client-scoped extension for the
// factory, such as feature.DebugInfo.
func (c *CallClient) Feature(factory feature.Factory) (feature.Feature, error) {
	return c.features.Get(factory)
}

// CreateCallAgent authenticates with the calling service and returns the
// agent bound to the credential's identity. Only one agent may be active
// per client.
func (c *CallClient) CreateCallAgent(ctx context.Context, cred TokenCredential, opts *AgentOptions) (*CallAgent, error) {
	if cred == nil {
		return nil, errors.New("credential cannot be nil")
	}
	if opts == nil {
		opts = &AgentOptions{}
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil, ErrClientDisposed
	}
	if c.agent != nil {
		c.mu.Unlock()
		return nil, ErrAgentActive
	}
	c.mu.Unlock()

	token, err := cred.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve credential: %w", err)
	}
	session, err := c.eng.Connect(ctx, token, opts.DisplayName)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	agent := newCallAgent(c, session, opts.DisplayName)

	c.mu.Lock()
	if c.disposed || c.agent != nil {
		// Lost the race while connecting; back out the session.
		disposed := c.disposed
		c.mu.Unlock()
		agent.Dispose()
		if disposed {
			return nil, ErrClientDisposed
		}
		return nil, ErrAgentActive
	}
	c.agent = agent
	c.mu.Unlock()

	c.log.WithField("agent_id", agent.ID()).Info("call agent created")
	return agent, nil
}

// DeviceManager returns the local device manager. The manager is created
// on first use and shared afterwards.
func (c *CallClient) DeviceManager(ctx context.Context) (*device.Manager, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return nil, ErrClientDisposed
	}
	if c.devices != nil {
		return c.devices, nil
	}

	mgr, err := device.NewManager(c.eng.Devices())
	if err != nil {
		return nil, fmt.Errorf("create device manager: %w", err)
	}
	c.devices = mgr
	return mgr, nil
}

// Dispose tears the client down: the active agent, the device manager
// and all client-scoped features. Safe to call more than once.
func (c *CallClient) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	agent := c.agent
	devices := c.devices
	c.agent = nil
	c.devices = nil
	c.mu.Unlock()

	if agent != nil {
		agent.Dispose()
	}
	if devices != nil {
		devices.Dispose()
	}
	c.features.Dispose()

	c.log.Info("call client disposed")
}

// releaseAgent frees the single-agent slot. Called by the agent at the
// end of its Dispose.
func (c *CallClient) releaseAgent(a *CallAgent) {
	c.mu.Lock()
	if c.agent == a {
		c.agent = nil
	}
	c.mu.Unlock()
}

// noteCall records the most recent call ID for support correlation.
func (c *CallClient) noteCall(callID string) {
	c.mu.Lock()
	c.lastCallID = callID
	c.mu.Unlock()
}
