package tfgo

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// ServerConfig locates the game server.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// NetworkConfig tunes the connection.
type NetworkConfig struct {
	ConnectTimeout time.Duration `mapstructure:"connectTimeout"`
	IdleTimeout    time.Duration `mapstructure:"idleTimeout"`
	WriteTimeout   time.Duration `mapstructure:"writeTimeout"`
	ReceiveBuffer  int           `mapstructure:"receiveBuffer"`
	MaxRecordSize  int           `mapstructure:"maxRecordSize"`
}

// PlayerConfig is the local player's identity.
type PlayerConfig struct {
	Name string `mapstructure:"name"`
	Icon string `mapstructure:"icon"`
}

// Config is the client configuration.
type Config struct {
	Server        ServerConfig  `mapstructure:"server"`
	Network       NetworkConfig `mapstructure:"network"`
	Player        PlayerConfig  `mapstructure:"player"`
	WeaponCatalog string        `mapstructure:"weaponCatalog"` // optional TOML file
	LogLevel      string        `mapstructure:"logLevel"`
}

// LoadConfig reads the client configuration. An optional .env file is loaded
// into the environment first; TFGO_* variables (TFGO_SERVER_HOST, ...)
// override file values. With an empty path, tfgo.{yaml,toml,json} is looked
// up in the working directory and ./config, and a missing file is not an
// error.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "failed to load .env")
	}

	v := viper.New()
	v.SetDefault("server.host", "10.150.160.52")
	v.SetDefault("server.port", 9265)
	v.SetDefault("network.connectTimeout", defaultConnectTimeout)
	v.SetDefault("network.idleTimeout", defaultIdleTimeout)
	v.SetDefault("network.writeTimeout", defaultWriteTimeout)
	v.SetDefault("network.receiveBuffer", DefaultReceiveBuffer)
	v.SetDefault("network.maxRecordSize", defaultMaxPackageLength)
	v.SetDefault("player.name", "")
	v.SetDefault("player.icon", "")
	v.SetDefault("weaponCatalog", "")
	v.SetDefault("logLevel", "info")

	v.SetEnvPrefix("TFGO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("tfgo")
		v.AddConfigPath(".")
		v.AddConfigPath("config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "failed to read config")
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validateConfig(config *Config) error {
	if config.Server.Host == "" {
		return errors.New("server host is empty")
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return errors.Errorf("server port %d out of range", config.Server.Port)
	}

	n := config.Network
	if n.ConnectTimeout <= 0 || n.IdleTimeout <= 0 || n.WriteTimeout <= 0 {
		return errors.New("network timeouts must be positive")
	}

	if n.ReceiveBuffer <= 0 {
		return errors.Errorf("receive buffer %d must be positive", n.ReceiveBuffer)
	}

	if n.MaxRecordSize < n.ReceiveBuffer {
		return errors.Errorf("max record size %d is smaller than the receive buffer %d",
			n.MaxRecordSize, n.ReceiveBuffer)
	}

	return nil
}

// Address returns the server address as host:port.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// User returns the configured local player.
func (c *Config) User() User {
	return User{Name: c.Player.Name, Icon: c.Player.Icon}
}

// Options converts the configuration into connection options, loading the
// weapon catalog if one is configured.
func (c *Config) Options() ([]Option, error) {
	opts := []Option{
		ConnectTimeoutOption(c.Network.ConnectTimeout),
		IdleTimeoutOption(c.Network.IdleTimeout),
		WriteTimeoutOption(c.Network.WriteTimeout),
		ReceiveBufferOption(c.Network.ReceiveBuffer),
		MessageMaxSize(c.Network.MaxRecordSize),
	}

	if c.WeaponCatalog != "" {
		catalog, err := LoadCatalog(c.WeaponCatalog)
		if err != nil {
			return nil, err
		}
		opts = append(opts, CatalogOption(catalog))
	}

	return opts, nil
}
