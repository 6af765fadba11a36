package callkit

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/opd-ai/callkit/identifier"
	"github.com/opd-ai/callkit/media"
)

// ClientOptions configures a CallClient.
type ClientOptions struct {
	// LogLevel selects the logrus level for SDK logging. Accepts the
	// usual names (trace, debug, info, warn, error). Empty leaves the
	// process-wide level untouched.
	LogLevel string `yaml:"log_level"`

	// Diagnostics tags telemetry the engine emits about this
	// application.
	Diagnostics DiagnosticsOptions `yaml:"diagnostics"`
}

// DiagnosticsOptions identifies the embedding application in engine
// telemetry.
type DiagnosticsOptions struct {
	AppName    string   `yaml:"app_name"`
	AppVersion string   `yaml:"app_version"`
	Tags       []string `yaml:"tags"`
}

// NewClientOptions returns options with defaults applied.
func NewClientOptions() *ClientOptions {
	return &ClientOptions{}
}

// LoadClientOptions reads client options from a yaml file.
func LoadClientOptions(path string) (*ClientOptions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read options file: %w", err)
	}

	opts := NewClientOptions()
	if err := yaml.Unmarshal(data, opts); err != nil {
		return nil, fmt.Errorf("parse options file: %w", err)
	}
	if opts.LogLevel != "" {
		if _, err := logrus.ParseLevel(opts.LogLevel); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.LogLevel, err)
		}
	}
	return opts, nil
}

// AgentOptions configures a CallAgent.
type AgentOptions struct {
	// DisplayName is shown to callees for outgoing calls.
	DisplayName string
}

// StartCallOptions configures an outgoing call.
type StartCallOptions struct {
	// VideoStreams are outgoing video bindings active from the start.
	VideoStreams []*media.LocalVideoStream
	// AudioStream selects the microphone for outgoing audio. Nil uses
	// the host default.
	AudioStream *media.LocalAudioStream
	// Muted starts the call with outgoing audio muted.
	Muted bool
	// AlternateCallerID is the PSTN number presented to phone callees.
	AlternateCallerID *identifier.PhoneNumber
	// ThreadID associates the call with a chat thread.
	ThreadID string
}

// JoinOptions configures joining an existing group call.
type JoinOptions struct {
	VideoStreams []*media.LocalVideoStream
	AudioStream  *media.LocalAudioStream
	Muted        bool
}

// AcceptOptions configures accepting an incoming call.
type AcceptOptions struct {
	VideoStreams []*media.LocalVideoStream
	AudioStream  *media.LocalAudioStream
}

// GroupLocator addresses an existing group call.
type GroupLocator struct {
	GroupID uuid.UUID
}
