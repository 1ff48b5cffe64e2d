package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/room-booking/internal/scheduler"
)

// Config captures environment driven configuration values for the booking service.
type Config struct {
	HTTPPort          int
	SQLiteDSN         string
	StoreTimeout      time.Duration
	SweepInterval     time.Duration
	ReminderLeadTimes scheduler.LeadTimes
	DeliveryTimeout   time.Duration
	AMQPURL           string
	AMQPExchange      string
	CORSOrigins       []string
	DispatchWorkers   int
	DispatchRetries   int
	LogLevel          slog.Level
}

// Defaults returns the configuration used when no variable is set.
func Defaults() Config {
	return Config{
		HTTPPort:          8080,
		SQLiteDSN:         "file:roombook.db",
		StoreTimeout:      5 * time.Second,
		SweepInterval:     time.Minute,
		ReminderLeadTimes: append(scheduler.LeadTimes(nil), scheduler.DefaultLeadTimes...),
		DeliveryTimeout:   5 * time.Second,
		AMQPExchange:      "roombook.events",
		CORSOrigins:       []string{"*"},
		DispatchWorkers:   4,
		DispatchRetries:   3,
		LogLevel:          slog.LevelInfo,
	}
}

// Load parses configuration values from the process environment. Values from
// envFiles (".env" when none are given) fill in variables the environment
// leaves unset; a missing default .env file is not an error.
//
// Every invalid entry is collected and reported in a single error.
func Load(envFiles ...string) (Config, error) {
	fileValues, err := readEnvFiles(envFiles)
	if err != nil {
		return Config{}, err
	}
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(fileValues[key])
	}
	return parse(lookup)
}

func readEnvFiles(files []string) (map[string]string, error) {
	optional := len(files) == 0
	if optional {
		files = []string{".env"}
	}

	values, err := godotenv.Read(files...)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read env files: %w", err)
	}
	return values, nil
}

func parse(lookup func(string) string) (Config, error) {
	cfg := Defaults()
	invalid := make([]string, 0, 2)

	if v := lookup("ROOMBOOK_HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "ROOMBOOK_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := lookup("ROOMBOOK_SQLITE_DSN"); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	durations := []struct {
		key    string
		target *time.Duration
	}{
		{"ROOMBOOK_STORE_TIMEOUT", &cfg.StoreTimeout},
		{"ROOMBOOK_SWEEP_INTERVAL", &cfg.SweepInterval},
		{"ROOMBOOK_DELIVERY_TIMEOUT", &cfg.DeliveryTimeout},
	}
	for _, d := range durations {
		v := lookup(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed <= 0 {
			invalid = append(invalid, d.key)
			continue
		}
		*d.target = parsed
	}

	if v := lookup("ROOMBOOK_REMINDER_LEAD_TIMES"); v != "" {
		leads, err := scheduler.ParseLeadTimes(v)
		if err != nil {
			invalid = append(invalid, "ROOMBOOK_REMINDER_LEAD_TIMES")
		} else {
			cfg.ReminderLeadTimes = leads
		}
	}

	cfg.AMQPURL = lookup("ROOMBOOK_AMQP_URL")
	if exchange := lookup("ROOMBOOK_AMQP_EXCHANGE"); exchange != "" {
		cfg.AMQPExchange = exchange
	}

	if v := lookup("ROOMBOOK_CORS_ORIGINS"); v != "" {
		origins := make([]string, 0)
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
		if len(origins) == 0 {
			invalid = append(invalid, "ROOMBOOK_CORS_ORIGINS")
		} else {
			cfg.CORSOrigins = origins
		}
	}

	ints := []struct {
		key    string
		min    int
		target *int
	}{
		{"ROOMBOOK_DISPATCH_WORKERS", 1, &cfg.DispatchWorkers},
		{"ROOMBOOK_DISPATCH_RETRIES", 0, &cfg.DispatchRetries},
	}
	for _, n := range ints {
		v := lookup(n.key)
		if v == "" {
			continue
		}
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < n.min {
			invalid = append(invalid, n.key)
			continue
		}
		*n.target = parsed
	}

	if v := lookup("ROOMBOOK_LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			invalid = append(invalid, "ROOMBOOK_LOG_LEVEL")
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
