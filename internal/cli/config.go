package cli

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/viper"

	"github.com/pthm/quarry/dialect"
	"github.com/pthm/quarry/param"
)

const (
	maxWalkDepth = 25

	redactedPassword = "xxxxx"
)

var passwordPair = regexp.MustCompile(`(?i)(password=)[^\s;&]+`)

// Database drivers understood by Config.
const (
	DriverPostgres  = "postgres" // lib/pq
	DriverPgx       = "pgx"
	DriverMySQL     = "mysql"
	DriverSQLite    = "sqlite"
	DriverSQLServer = "sqlserver"
)

// Config represents the quarry configuration from quarry.yaml.
type Config struct {
	// Descriptor is the bean descriptor file.
	Descriptor string `mapstructure:"descriptor" json:"descriptor"`

	// Dialect overrides the dialect implied by database.driver.
	Dialect string `mapstructure:"dialect" json:"dialect"`

	VirtualParamPrefix string `mapstructure:"vparam_prefix" json:"vparam_prefix"`

	Database DatabaseConfig `mapstructure:"database" json:"database"`
	Params   param.Config   `mapstructure:"params" json:"params"`
	Log      LogConfig      `mapstructure:"log" json:"log"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver" json:"driver"`
	URL      string `mapstructure:"url" json:"url,omitempty"`
	Host     string `mapstructure:"host" json:"host,omitempty"`
	Port     int    `mapstructure:"port" json:"port,omitempty"`
	Name     string `mapstructure:"name" json:"name,omitempty"`
	User     string `mapstructure:"user" json:"user,omitempty"`
	Password string `mapstructure:"password" json:"-"`
	SSLMode  string `mapstructure:"sslmode" json:"sslmode,omitempty"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

// LoadConfig discovers and loads configuration with proper precedence:
// flags > env > config file > defaults.
//
// Returns the loaded config, the path to the config file (empty if none found),
// and any error encountered.
func LoadConfig(explicitConfigPath string) (*Config, string, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("QUARRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath, err := findConfigFile(explicitConfigPath)
	if err != nil {
		return nil, "", err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, configPath, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, configPath, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, configPath, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("descriptor", "beans.yaml")
	v.SetDefault("dialect", "")
	v.SetDefault("vparam_prefix", ":")

	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.name", "")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.sslmode", "disable")

	// Every key is registered so AutomaticEnv can see QUARRY_PARAMS_*.
	p := param.DefaultConfig()
	v.SetDefault("params.default_max", p.DefaultMax)
	v.SetDefault("params.max_allowed", p.MaxAllowed)
	v.SetDefault("params.start_page", p.StartPage)
	v.SetDefault("params.max_param", p.MaxParam)
	v.SetDefault("params.offset_param", p.OffsetParam)
	v.SetDefault("params.page_param", p.PageParam)
	v.SetDefault("params.sort_param", p.SortParam)
	v.SetDefault("params.order_param", p.OrderParam)
	v.SetDefault("params.operator_suffix", p.OperatorSuffix)
	v.SetDefault("params.ignore_case_suffix", p.IgnoreCaseSuffix)
	v.SetDefault("params.separator", p.Separator)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// findConfigFile finds the config file to use.
// If explicitPath is provided, it validates the file exists.
// Otherwise, it walks up from cwd looking for quarry.yaml or quarry.yml,
// stopping at a .git directory or after maxWalkDepth levels.
func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}

	dir := cwd
	for i := 0; i < maxWalkDepth; i++ {
		for _, name := range []string{"quarry.yaml", "quarry.yml"} {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		// Stop at the repo root.
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", nil
}

// SQLDriver returns the database/sql driver name for database.driver.
func (c *Config) SQLDriver() (string, error) {
	switch d := strings.ToLower(c.Database.Driver); d {
	case "", DriverPostgres:
		return DriverPostgres, nil
	case DriverPgx, DriverMySQL, DriverSQLite, DriverSQLServer:
		return d, nil
	default:
		return "", fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
}

// ResolvedDialect returns the dialect named by the dialect key, or the one
// implied by database.driver when the key is empty.
func (c *Config) ResolvedDialect() (dialect.Dialect, error) {
	if c.Dialect != "" {
		return dialect.Get(c.Dialect)
	}
	driver, err := c.SQLDriver()
	if err != nil {
		return nil, err
	}
	return dialect.Get(driver)
}

// DSN returns the database connection string.
// If database.url is set, it's returned directly.
// Otherwise, builds a driver-specific DSN from discrete fields.
func (c *Config) DSN() (string, error) {
	db := c.Database

	if db.URL != "" {
		return db.URL, nil
	}

	driver, err := c.SQLDriver()
	if err != nil {
		return "", err
	}

	if driver == DriverSQLite {
		if db.Name == "" {
			return "", fmt.Errorf("database.name is required for sqlite")
		}
		return db.Name, nil
	}

	if db.Host == "" {
		return "", fmt.Errorf("database.host is required when database.url is not set")
	}
	if db.Name == "" {
		return "", fmt.Errorf("database.name is required when database.url is not set")
	}
	if db.User == "" {
		return "", fmt.Errorf("database.user is required when database.url is not set")
	}

	host := net.JoinHostPort(db.Host, strconv.Itoa(c.port(driver)))

	switch driver {
	case DriverMySQL:
		mc := mysql.NewConfig()
		mc.User = db.User
		mc.Passwd = db.Password
		mc.Net = "tcp"
		mc.Addr = host
		mc.DBName = db.Name
		return mc.FormatDSN(), nil

	case DriverSQLServer:
		u := &url.URL{Scheme: "sqlserver", Host: host, User: userInfo(db)}
		q := u.Query()
		q.Set("database", db.Name)
		u.RawQuery = q.Encode()
		return u.String(), nil
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   host,
		Path:   "/" + db.Name,
		User:   userInfo(db),
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (c *Config) port(driver string) int {
	if c.Database.Port > 0 {
		return c.Database.Port
	}
	switch driver {
	case DriverMySQL:
		return 3306
	case DriverSQLServer:
		return 1433
	default:
		return 5432
	}
}

func userInfo(db DatabaseConfig) *url.Userinfo {
	if db.Password != "" {
		return url.UserPassword(db.User, db.Password)
	}
	return url.User(db.User)
}

// Redacted returns a copy of c with every database password masked,
// including one embedded in database.url.
func (c Config) Redacted() Config {
	if c.Database.Password != "" {
		c.Database.Password = redactedPassword
	}
	c.Database.URL = redactDSN(c.Database.URL)
	return c
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" && u.Host != "" {
		return u.Redacted()
	}
	if mc, err := mysql.ParseDSN(dsn); err == nil {
		if mc.Passwd == "" {
			return dsn
		}
		mc.Passwd = redactedPassword
		return mc.FormatDSN()
	}
	// key=value form (lib/pq, go-mssqldb ADO strings)
	return passwordPair.ReplaceAllString(dsn, "${1}"+redactedPassword)
}
