package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/smartlock-gate/internal/constants"
)

type Config struct {
	Backend BackendConfig
	Camera  CameraConfig
	Gate    GateConfig
	Journal JournalConfig
	NATS    NATSConfig
	Web     WebConfig
	Log     LogConfig
}

type BackendConfig struct {
	URL         string        // base URL of the access-control API (e.g., http://backend:5000)
	Timeout     time.Duration // bound on a single verification round trip
	AccessToken string        // JWT for admin-only endpoints such as /logs/ (optional)
	CaptureDir  string        // directory to save API responses for debugging (optional)
}

// GetAccessToken returns the admin access token.
// Falls back to reading BACKEND_ACCESS_TOKEN_FILE when the token itself is not set,
// which is how container secrets are usually mounted.
func (c *BackendConfig) GetAccessToken() string {
	if c.AccessToken != "" {
		return c.AccessToken
	}
	path := os.Getenv("BACKEND_ACCESS_TOKEN_FILE")
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

type CameraConfig struct {
	SnapshotURL string        // still-frame endpoint of the gate camera (e.g., http://cam/snapshot.jpg)
	Timeout     time.Duration // defaults to 5s
}

type GateConfig struct {
	TerminalID   string        // identifies this gate in events and bus subjects
	Locale       string        // status message language (pl or en)
	ASCIIStatus  bool          // strip diacritics for displays without Unicode fonts
	FaceWindow   time.Duration // how long a verified token waits for the face capture
	EventLogSize int           // maximum number of in-memory access events
	MaxFaceSize  int           // longest edge of the face frame sent to the backend
}

type JournalConfig struct {
	URL          string // postgres://... or mysql://... (optional, journal disabled when empty)
	MaxOpenConns int
	MaxIdleConns int
}

type NATSConfig struct {
	URL           string // optional, event bus disabled when empty
	SubjectPrefix string // defaults to "gate"
}

type WebConfig struct {
	Port           int
	Host           string
	RateLimit      float64 // trigger requests per second
	RateBurst      int
	OperatorToken  string   // bearer token for trigger endpoints; empty disables the check
	AllowedOrigins []string // CORS origins besides localhost
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text or json
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads a positive float, falling back to defaultVal.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envDuration accepts Go duration syntax ("15s") or a bare number of seconds.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return defaultVal
	}
	return b
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList splits a comma separated variable, dropping empty items.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func Load() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:         strings.TrimRight(os.Getenv("BACKEND_URL"), "/"),
			Timeout:     envDuration("BACKEND_TIMEOUT", 10*time.Second),
			AccessToken: os.Getenv("BACKEND_ACCESS_TOKEN"),
			CaptureDir:  os.Getenv("BACKEND_CAPTURE_DIR"),
		},
		Camera: CameraConfig{
			SnapshotURL: os.Getenv("CAMERA_SNAPSHOT_URL"),
			Timeout:     envDuration("CAMERA_TIMEOUT", 5*time.Second),
		},
		Gate: GateConfig{
			TerminalID:   envString("GATE_TERMINAL_ID", defaultTerminalID()),
			Locale:       envString("GATE_LOCALE", "pl"),
			ASCIIStatus:  envBool("GATE_ASCII_STATUS", false),
			FaceWindow:   envDuration("GATE_FACE_WINDOW", constants.DefaultFaceWindow),
			EventLogSize: envInt("GATE_EVENT_LOG_SIZE", constants.DefaultEventLogSize),
			MaxFaceSize:  envInt("GATE_MAX_FACE_SIZE", constants.MaxImageSize),
		},
		Journal: JournalConfig{
			URL:          os.Getenv("JOURNAL_DATABASE_URL"),
			MaxOpenConns: envInt("JOURNAL_MAX_OPEN_CONNS", 5),
			MaxIdleConns: envInt("JOURNAL_MAX_IDLE_CONNS", 2),
		},
		NATS: NATSConfig{
			URL:           os.Getenv("NATS_URL"),
			SubjectPrefix: envString("NATS_SUBJECT_PREFIX", "gate"),
		},
		Web: WebConfig{
			Port:           envInt("WEB_PORT", 8080),
			Host:           envString("WEB_HOST", "0.0.0.0"),
			RateLimit:      envFloat("WEB_TRIGGER_RATE", 2),
			RateBurst:      envInt("WEB_TRIGGER_BURST", 4),
			OperatorToken:  os.Getenv("WEB_OPERATOR_TOKEN"),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "text"),
		},
	}
}

// Validate reports configuration that makes the gate unusable.
func (c *Config) Validate() error {
	if c.Backend.URL == "" {
		return errors.New("BACKEND_URL environment variable is required")
	}
	if c.Gate.TerminalID == "" {
		return errors.New("GATE_TERMINAL_ID must not be empty")
	}
	return nil
}

func defaultTerminalID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "gate-1"
	}
	return host
}
