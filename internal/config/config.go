package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/Fludizz/WeatherDuino/internal/protocol"
)

const (
	EnvPrefix   = "WD"
	DefaultPort = 65001
)

// Flag keys, shared by the cobra command and Load.
const (
	KeyPort                = "port"
	KeyVerbose             = "verbose"
	KeyLogOutput           = "logoutput"
	KeySQLOutput           = "sqloutput"
	KeyCarbon              = "carbon"
	KeyMQTT                = "mqtt"
	KeyNATS                = "nats"
	KeyRedis               = "redis"
	KeyFilter              = "filter"
	KeyVersions            = "versions"
	KeyNames               = "names"
	KeyMetricsAddr         = "metrics-addr"
	KeyContinueOnSinkError = "continue-on-sink-error"
)

type Output int

const (
	OutputConsole Output = iota
	OutputLogFile
	OutputSQL
	OutputCarbon
	OutputMQTT
	OutputNATS
	OutputRedis
)

func (o Output) String() string {
	switch o {
	case OutputConsole:
		return "console"
	case OutputLogFile:
		return "logfile"
	case OutputSQL:
		return "sqlite"
	case OutputCarbon:
		return "carbon"
	case OutputMQTT:
		return "mqtt"
	case OutputNATS:
		return "nats"
	case OutputRedis:
		return "redis"
	default:
		return fmt.Sprintf("output(%d)", int(o))
	}
}

var outputKeys = []struct {
	key    string
	output Output
}{
	{KeyLogOutput, OutputLogFile},
	{KeySQLOutput, OutputSQL},
	{KeyCarbon, OutputCarbon},
	{KeyMQTT, OutputMQTT},
	{KeyNATS, OutputNATS},
	{KeyRedis, OutputRedis},
}

type Config struct {
	AppEnv   string
	LogLevel slog.Level

	Port int

	Output Output
	// Target is the path, address or URL for Output; empty for the console.
	Target string

	Filter   *protocol.DeviceID
	Versions []protocol.Version

	NamesPath           string
	MetricsAddr         string
	ContinueOnSinkError bool
}

func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// New returns a viper instance reading WD_* variables for the flag keys and
// the unprefixed APP_ENV and LOG_LEVEL.
func New() *viper.Viper {
	vp := viper.New()
	vp.SetEnvPrefix(EnvPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	vp.AutomaticEnv()
	_ = vp.BindEnv("app-env", "APP_ENV")
	_ = vp.BindEnv("log-level", "LOG_LEVEL")
	vp.SetDefault(KeyPort, DefaultPort)
	vp.SetDefault(KeyVersions, "1,2")
	return vp
}

func Load(vp *viper.Viper) (Config, error) {
	appEnv := strings.TrimSpace(vp.GetString("app-env"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(vp.GetString("log-level"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}
	if vp.GetBool(KeyVerbose) {
		level = slog.LevelDebug
	}

	port := vp.GetInt(KeyPort)
	if port < 1 || port > 65535 {
		return Config{}, fmt.Errorf("invalid --port %d (allowed: 1-65535)", port)
	}

	output, target, err := selectOutput(vp)
	if err != nil {
		return Config{}, err
	}

	versions, err := protocol.ParseVersions(vp.GetString(KeyVersions))
	if err != nil {
		return Config{}, fmt.Errorf("invalid --versions: %w", err)
	}

	var filter *protocol.DeviceID
	if s := strings.TrimSpace(vp.GetString(KeyFilter)); s != "" {
		id, err := protocol.ParseDeviceID(s)
		if err != nil {
			return Config{}, fmt.Errorf("invalid --filter: %w", err)
		}
		filter = &id
	}

	return Config{
		AppEnv:              appEnv,
		LogLevel:            level,
		Port:                port,
		Output:              output,
		Target:              target,
		Filter:              filter,
		Versions:            versions,
		NamesPath:           strings.TrimSpace(vp.GetString(KeyNames)),
		MetricsAddr:         strings.TrimSpace(vp.GetString(KeyMetricsAddr)),
		ContinueOnSinkError: vp.GetBool(KeyContinueOnSinkError),
	}, nil
}

// selectOutput allows at most one output key; none selects the console.
func selectOutput(vp *viper.Viper) (Output, string, error) {
	var (
		chosen []string
		output = OutputConsole
		target string
	)
	for _, o := range outputKeys {
		v := strings.TrimSpace(vp.GetString(o.key))
		if v == "" {
			continue
		}
		chosen = append(chosen, "--"+o.key)
		output, target = o.output, v
	}
	if len(chosen) > 1 {
		return OutputConsole, "", fmt.Errorf("only one output may be selected, got %s", strings.Join(chosen, ", "))
	}
	return output, target, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
