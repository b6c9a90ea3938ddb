package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"golang_saga/log"
)

const EnvPrefix = "SAGA"

type Config struct {
	Listen       string        `mapstructure:"listen"`
	ServicesFile string        `mapstructure:"services_file"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Transaction  Transaction   `mapstructure:"transaction"`
	Dispatch     Dispatch      `mapstructure:"dispatch"`
	Log          log.Config    `mapstructure:"log"`
}

type Transaction struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	DeadTimeout   time.Duration `mapstructure:"dead_timeout"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	//扫描时不在第一条已过期的事务处停止
	FullSweep    bool          `mapstructure:"full_sweep"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	PollAttempts uint64        `mapstructure:"poll_attempts"`
}

type Dispatch struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	Retries       uint64        `mapstructure:"retries"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("listen", "0.0.0.0:8080")
	v.SetDefault("services_file", "./example_services.yml")
	v.SetDefault("read_timeout", 10*time.Second)
	// confirm 最长会等待 poll_interval * poll_attempts
	v.SetDefault("write_timeout", 30*time.Second)

	v.SetDefault("transaction.timeout", 60*time.Second)
	v.SetDefault("transaction.dead_timeout", 300*time.Second)
	v.SetDefault("transaction.sweep_interval", 2*time.Second)
	v.SetDefault("transaction.full_sweep", false)
	v.SetDefault("transaction.poll_interval", 64*time.Millisecond)
	v.SetDefault("transaction.poll_attempts", 250)

	v.SetDefault("dispatch.timeout", 5*time.Second)
	v.SetDefault("dispatch.retries", 0)
	v.SetDefault("dispatch.retry_interval", 100*time.Millisecond)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 7)
	v.SetDefault("log.compress", false)
}

// BindFlags 注册常用命令行参数并绑定到 viper
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	flags.String("listen", "0.0.0.0:8080", "address to listen on")
	flags.String("services", "./example_services.yml", "participant registry file")
	flags.String("log-level", "info", `log level: "debug", "info", "warn" or "error"`)
	flags.String("log-file", "", "also write logs to this file, rotated")
	flags.Bool("full-sweep", false, "scan the whole stale range on every sweep")

	for key, flag := range map[string]string{
		"listen":                 "listen",
		"services_file":          "services",
		"log.level":              "log-level",
		"log.file":               "log-file",
		"transaction.full_sweep": "full-sweep",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return err
		}
	}
	return nil
}

// Load 依次读取默认值, 配置文件(可选), 环境变量 SAGA_*, 以及已绑定的参数
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if c.Transaction.DeadTimeout < c.Transaction.Timeout {
		return nil, fmt.Errorf("transaction.dead_timeout (%s) must not be shorter than transaction.timeout (%s)",
			c.Transaction.DeadTimeout, c.Transaction.Timeout)
	}
	return c, nil
}
