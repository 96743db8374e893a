// Package config manages the server configuration.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/semihalev/zlog/v2"
)

const configver = "1.0.0"

// Config type
type Config struct {
	Version         string
	Bind            string
	BindTLS         string
	TLSCertificate  string
	TLSPrivateKey   string
	Metrics         string
	LogLevel        string
	AccessLog       string
	AccessList      []string
	ClientRateLimit int
	Domains         []string
	TTL             uint32
	HostsFile       string
	MaxDepth        int
	Timeout         Duration

	DB DB

	sVersion string
}

// DB holds the backing store connection parameters. The query template must
// contain exactly one placeholder bound to the queried name.
type DB struct {
	DSN          string
	Host         string
	User         string
	Password     string
	Name         string
	Query        string
	MaxOpenConns int
	MaxIdleConns int
}

// ServerVersion return current server version
func (c *Config) ServerVersion() string {
	return c.sVersion
}

// Duration type
type Duration struct {
	time.Duration
}

// UnmarshalText for duration type
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

var defaultConfig = `
# Config version, config and build versions can be different.
version = "%s"

# Address to bind to for the DNS server
bind = ":53"

# Address to bind to for the DNS-over-TLS server
# bindtls = ":853"

# TLS certificate file
# tlscertificate = "server.crt"

# TLS private key file
# tlsprivatekey = "server.key"

# Address to bind to for the Prometheus metrics http server, left blank for disabled
# metrics = "127.0.0.1:8081"

# What kind of information should be logged, Log verbosity level [error,warn,info,debug]
loglevel = "info"

# The location of access log file, left blank for disabled. Uses Common Log Format by default.
# accesslog = ""

# Which clients allowed to make queries
accesslist = [
"0.0.0.0/0",
"::0/0"
]

# Client ip address based ratelimit per minute, 0 for disabled
clientratelimit = 0

# Authoritative domains, queries outside of them are answered with NXDOMAIN
domains = [
"sample.org"
]

# Time to live in seconds for every returned address record
ttl = 10

# Enables serving address records from a hosts file, left blank for disabled.
# Hosts file entries take precedence over the backing store.
# hostsfile = "/etc/hosts"

# Maximum length of an alias chain before resolution is aborted
maxdepth = 8

# Network timeout for each store lookup in duration
timeout = "3s"

# Backing store connection. Either a full dsn or the discrete fields below.
# The password can also be given with the DB_PASSWORD environment variable.
[db]
# dsn = "root:changeme@tcp(127.0.0.1:3306)/test"
host = "127.0.0.1:3306"
user = "root"
password = "changeme"
name = "test"
query = "SELECT address FROM dns WHERE domain = ?"
maxopenconns = 10
maxidleconns = 5
`

// Load loads the given config file
func Load(cfgfile, version string) (*Config, error) {
	config := new(Config)

	if _, err := os.Stat(cfgfile); os.IsNotExist(err) {
		if err := generateConfig(cfgfile); err != nil {
			return nil, err
		}
	}

	zlog.Info("Loading config file", "path", cfgfile)

	if _, err := toml.DecodeFile(cfgfile, config); err != nil {
		return nil, fmt.Errorf("could not load config: %s", err)
	}

	if config.Version != configver {
		zlog.Warn("Config file is out of version, you can generate new one and check the changes.")
	}

	config.sVersion = version

	if password := os.Getenv("DB_PASSWORD"); password != "" {
		config.DB.Password = password
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if len(c.Domains) == 0 {
		return fmt.Errorf("config: at least one authoritative domain required")
	}

	for _, domain := range c.Domains {
		if strings.TrimSpace(domain) == "" {
			return fmt.Errorf("config: empty authoritative domain")
		}
	}

	if c.TTL == 0 {
		c.TTL = 10
	}

	if c.MaxDepth <= 0 {
		c.MaxDepth = 8
	}

	if c.Timeout.Duration == 0 {
		c.Timeout.Duration = 3 * time.Second
	}

	if c.ClientRateLimit < 0 {
		return fmt.Errorf("config: clientratelimit cannot be negative: %d", c.ClientRateLimit)
	}

	if c.DB.Query == "" {
		c.DB.Query = "SELECT address FROM dns WHERE domain = ?"
	}

	if strings.Count(c.DB.Query, "?") != 1 {
		return fmt.Errorf("config: db query must have exactly one placeholder: %q", c.DB.Query)
	}

	return nil
}

func generateConfig(path string) error {
	output, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not generate config: %s", err)
	}

	defer func() {
		err := output.Close()
		if err != nil {
			zlog.Warn("Config generation failed while file closing", "error", err.Error())
		}
	}()

	r := strings.NewReader(fmt.Sprintf(defaultConfig, configver))
	if _, err := io.Copy(output, r); err != nil {
		return fmt.Errorf("could not copy default config: %s", err)
	}

	if abs, err := filepath.Abs(path); err == nil {
		zlog.Info("Default config file generated", "config", abs)
	}

	return nil
}
