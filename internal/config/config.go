package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

var GistfeedVersion = "0.0.1"

var C *config

// Not using nested structs because the library
// doesn't support dot notation in this case sadly
type config struct {
	LogLevel     string `yaml:"log-level"`
	GistfeedHome string `yaml:"gistfeed-home"`
	DBUri        string `yaml:"db-uri"`

	SqliteJournalMode string `yaml:"sqlite.journal-mode"`

	HttpHost       string `yaml:"http.host"`
	HttpPort       string `yaml:"http.port"`
	MetricsEnabled bool   `yaml:"metrics-enabled"`

	GithubToken   string `yaml:"github.token"`
	GithubApiUrl  string `yaml:"github.api-url"`
	GithubTimeout int    `yaml:"github.timeout"`

	QueueWorkers     int `yaml:"queue.workers"`
	QueueSize        int `yaml:"queue.size"`
	QueueMaxAttempts int `yaml:"queue.max-attempts"`

	ExampleUsers []string `yaml:"index.example-users"`
}

func configWithDefaults() (*config, error) {
	homeDir, err := os.UserHomeDir()
	c := &config{}
	if err != nil {
		return c, err
	}

	c.LogLevel = "warn"
	c.GistfeedHome = filepath.Join(homeDir, ".gistfeed")
	c.DBUri = "gistfeed.db"
	c.SqliteJournalMode = "WAL"

	c.HttpHost = "0.0.0.0"
	c.HttpPort = "6158"
	c.MetricsEnabled = false

	c.GithubApiUrl = "https://api.github.com"
	c.GithubTimeout = 30

	c.QueueWorkers = 1
	c.QueueSize = 256
	c.QueueMaxAttempts = 3

	return c, nil
}

func InitConfig(configPath string) error {
	// Default values
	c, err := configWithDefaults()
	if err != nil {
		return err
	}

	file, err := os.Open(configPath)
	if err == nil {
		fmt.Println("Using config file: " + configPath)

		// Override default values with values from config.yml
		d := yaml.NewDecoder(file)
		if err = d.Decode(&c); err != nil {
			return err
		}
		defer file.Close()
	}

	// Override default values with environment variables (as yaml)
	configEnv := os.Getenv("CONFIG")
	if configEnv != "" {
		fmt.Println("Using config from environment variable: CONFIG")
		d := yaml.NewDecoder(strings.NewReader(configEnv))
		if err = d.Decode(&c); err != nil {
			return err
		}
	}

	if c.GithubToken == "" {
		c.GithubToken = os.Getenv("GITHUB_TOKEN")
	}

	C = c

	return nil
}

func InitLog() {
	if err := os.MkdirAll(filepath.Join(GetHomeDir(), "log"), 0755); err != nil {
		panic(err)
	}
	file, err := os.OpenFile(filepath.Join(GetHomeDir(), "log", "gistfeed.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		panic(err)
	}
	multi := zerolog.MultiLevelWriter(zerolog.NewConsoleWriter(), file)

	var level zerolog.Level
	level, err = zerolog.ParseLevel(C.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	log.Logger = zerolog.New(multi).Level(level).With().Timestamp().Logger()
}

func GetHomeDir() string {
	absolutePath, _ := filepath.Abs(C.GistfeedHome)
	return filepath.Clean(absolutePath)
}
