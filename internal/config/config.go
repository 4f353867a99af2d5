// Package config provides functionality for managing configuration options
// for the application using command-line flags, an optional JSON or TOML
// config file, a .env file and environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Storage backends accepted by Options.Store.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Duration is a time.Duration that reads "1m30s" style strings from config files.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Options holds the configuration values for the server and the responder.
type Options struct {
	// Port defines the web server's listening address (ip:port).
	Port string `json:"address" toml:"address"`

	// ResponderAddress is the listening address of the responder service.
	ResponderAddress string `json:"responder_address" toml:"responder_address"`

	// Store selects the client storage backend: memory, sqlite or postgres.
	Store string `json:"store" toml:"store"`

	// DatabaseDSN holds the PostgreSQL connection string.
	DatabaseDSN string `json:"database_dsn" toml:"database_dsn"`

	// SQLitePath is the database file used by the sqlite store.
	SQLitePath string `json:"sqlite_path" toml:"sqlite_path"`

	// ResponderURL is the chat endpoint user queries are relayed to.
	ResponderURL string `json:"responder_url" toml:"responder_url"`

	// ChatTimeout bounds one chat exchange; zero means no timeout.
	ChatTimeout Duration `json:"chat_timeout" toml:"chat_timeout"`

	// ChatIdleTTL is how long an untouched conversation stays in memory.
	ChatIdleTTL Duration `json:"chat_idle_ttl" toml:"chat_idle_ttl"`

	// FormsURL is the forms relay endpoint used by the contact form.
	FormsURL string `json:"forms_url" toml:"forms_url"`

	// FormsAccessKey is sent as access_key with every contact submission.
	FormsAccessKey string `json:"forms_access_key" toml:"forms_access_key"`

	// ContactRatePerMinute limits contact submissions per client scope.
	ContactRatePerMinute int `json:"contact_rate_per_minute" toml:"contact_rate_per_minute"`

	// AllowedOrigins are the CORS origins accepted by the responder.
	AllowedOrigins []string `json:"allowed_origins" toml:"allowed_origins"`

	// KnowledgePath is the question,answer CSV the responder retrieves from.
	KnowledgePath string `json:"knowledge_path" toml:"knowledge_path"`

	// ModelURL is the base URL of the Ollama-compatible model server.
	ModelURL string `json:"model_url" toml:"model_url"`

	// ModelName is the model asked for answers.
	ModelName string `json:"model_name" toml:"model_name"`

	// CertFile and KeyFile enable HTTPS when both are set.
	CertFile string `json:"cert_file" toml:"cert_file"`
	KeyFile  string `json:"key_file" toml:"key_file"`

	// SecureCookies marks scope and flash cookies Secure.
	SecureCookies bool `json:"secure_cookies" toml:"secure_cookies"`

	// LogLevel is passed to the zap logger.
	LogLevel string `json:"log_level" toml:"log_level"`

	// Config is the path to the config file (.json or .toml).
	Config string `json:"-" toml:"-"`
}

// Parse parses the process command line, the config file and the environment.
func Parse() (*Options, error) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs builds Options from the given arguments. Precedence, lowest
// first: flag defaults and values, config file, .env file, environment.
func ParseArgs(args []string) (*Options, error) {
	options := &Options{}
	fs := newFlagSet(options)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			if err := loadFile(options, options.Config); err != nil {
				return nil, err
			}
		}
	}

	if err := applyEnv(options); err != nil {
		return nil, err
	}

	if err := options.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return options, nil
}

func newFlagSet(o *Options) *flag.FlagSet {
	fs := flag.NewFlagSet("healthchat", flag.ContinueOnError)
	fs.StringVar(&o.Port, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&o.ResponderAddress, "responder-addr", "127.0.0.1:8000", "responder listen address")
	fs.StringVar(&o.Store, "store", StoreMemory, "client storage backend: memory | sqlite | postgres")
	fs.StringVar(&o.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&o.SQLitePath, "sqlite", "./data/healthchat.db", "sqlite database file")
	fs.StringVar(&o.ResponderURL, "responder", "http://127.0.0.1:8000/chat", "chat responder endpoint")
	fs.DurationVar(&o.ChatTimeout.Duration, "chat-timeout", 0, "chat request timeout (0 disables)")
	fs.DurationVar(&o.ChatIdleTTL.Duration, "chat-idle-ttl", 2*time.Hour, "evict conversations idle for this long")
	fs.StringVar(&o.FormsURL, "forms", "https://api.web3forms.com/submit", "forms relay endpoint")
	fs.StringVar(&o.FormsAccessKey, "forms-key", "", "forms relay access key")
	fs.IntVar(&o.ContactRatePerMinute, "contact-rate", 5, "contact submissions per minute per client")
	fs.StringVar(&o.KnowledgePath, "knowledge", "./data/knowledge.csv", "responder knowledge base (question,answer CSV)")
	fs.StringVar(&o.ModelURL, "model-url", "http://127.0.0.1:11434", "Ollama-compatible model server")
	fs.StringVar(&o.ModelName, "model", "llama3.1:8b", "model used by the responder")
	fs.StringVar(&o.CertFile, "cert", "", "TLS certificate file")
	fs.StringVar(&o.KeyFile, "key", "", "TLS key file")
	fs.BoolVar(&o.SecureCookies, "secure-cookies", false, "mark cookies Secure")
	fs.StringVar(&o.LogLevel, "log-level", "info", "log level")
	fs.StringVar(&o.Config, "config", "config.json", "path to config file")
	fs.StringVar(&o.Config, "c", "config.json", "path to config file (shorthand)")
	o.AllowedOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	return fs
}

func loadFile(o *Options, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), o); err != nil {
			return fmt.Errorf("error while parsing config file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, o); err != nil {
			return fmt.Errorf("error while parsing config file: %w", err)
		}
	}
	return nil
}

func applyEnv(o *Options) error {
	if v := os.Getenv("SERVER_ADDRESS"); v != "" {
		o.Port = v
	}
	if v := os.Getenv("RESPONDER_ADDRESS"); v != "" {
		o.ResponderAddress = v
	}
	if v := os.Getenv("STORE"); v != "" {
		o.Store = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		o.DatabaseDSN = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		o.SQLitePath = v
	}
	if v := os.Getenv("RESPONDER_URL"); v != "" {
		o.ResponderURL = v
	}
	if v := os.Getenv("FORMS_URL"); v != "" {
		o.FormsURL = v
	}
	if v := os.Getenv("WEB3FORM_ACCESS_KEY"); v != "" {
		o.FormsAccessKey = v
	}
	if v := os.Getenv("KNOWLEDGE_PATH"); v != "" {
		o.KnowledgePath = v
	}
	if v := os.Getenv("MODEL_URL"); v != "" {
		o.ModelURL = v
	}
	if v := os.Getenv("MODEL_NAME"); v != "" {
		o.ModelName = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		o.LogLevel = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		o.AllowedOrigins = splitList(v)
	}

	if v := os.Getenv("CHAT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CHAT_TIMEOUT: %w", err)
		}
		o.ChatTimeout.Duration = d
	}
	if v := os.Getenv("CHAT_IDLE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CHAT_IDLE_TTL: %w", err)
		}
		o.ChatIdleTTL.Duration = d
	}
	if v := os.Getenv("CONTACT_RATE_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("CONTACT_RATE_PER_MINUTE: %w", err)
		}
		o.ContactRatePerMinute = n
	}
	if v := os.Getenv("SECURE_COOKIES"); v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("SECURE_COOKIES: %w", err)
		}
		o.SecureCookies = b
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks that the selected backend has what it needs.
func (o *Options) Validate() error {
	switch o.Store {
	case StoreMemory:
	case StoreSQLite:
		if o.SQLitePath == "" {
			return errors.New("sqlite store requires a database path")
		}
	case StorePostgres:
		if o.DatabaseDSN == "" {
			return errors.New("postgres store requires a DSN")
		}
	default:
		return fmt.Errorf("unknown store %q", o.Store)
	}
	if o.Port == "" {
		return errors.New("server address cannot be empty")
	}
	if o.ResponderURL == "" {
		return errors.New("responder URL cannot be empty")
	}
	if o.ChatIdleTTL.Duration <= 0 {
		return errors.New("chat idle TTL must be > 0")
	}
	if o.ContactRatePerMinute <= 0 {
		return errors.New("contact rate must be > 0")
	}
	if (o.CertFile == "") != (o.KeyFile == "") {
		return errors.New("cert and key must be set together")
	}
	return nil
}

// TLSEnabled reports whether the server should listen with HTTPS.
func (o *Options) TLSEnabled() bool {
	return o.CertFile != "" && o.KeyFile != ""
}
