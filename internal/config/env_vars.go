package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const (
	scheduleFileName = "schedule.json"
	tokensFileName   = "tokens.json"
	devEnv           = "DEV"
)

type EnvVars struct {
	Port            string        `envconfig:"PORT" default:"8000"`
	AppName         string        `envconfig:"APP_NAME" default:"Publish Agent"`
	DataFolder      string        `envconfig:"DATA_FOLDER" default:"./data"`
	Env             string        `envconfig:"ENV" default:"DEV"`
	HTTPTimeout     time.Duration `envconfig:"HTTP_TIMEOUT" default:"15s"`
	JobTimeout      time.Duration `envconfig:"JOB_TIMEOUT" default:"2m"`
	PublishAttempts int           `envconfig:"PUBLISH_ATTEMPTS" default:"3"`
	WatchSchedule   bool          `envconfig:"WATCH_SCHEDULE" default:"true"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.Port
	if port == "" {
		port = "8000"
	}
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	if e.AppName == "" {
		return "Publish Agent"
	}
	return e.AppName
}

func (e EnvVars) GetDataFolder() string {
	if e.DataFolder == "" {
		return "./data"
	}
	return e.DataFolder
}

func (e EnvVars) GetScheduleFile() string {
	return filepath.Join(e.GetDataFolder(), scheduleFileName)
}

func (e EnvVars) GetTokensFile() string {
	return filepath.Join(e.GetDataFolder(), tokensFileName)
}

func (e EnvVars) GetEnv() string {
	if e.Env == "" {
		return devEnv
	}
	return strings.ToUpper(e.Env)
}

func (e EnvVars) IsDev() bool {
	return e.GetEnv() == devEnv
}

func (e EnvVars) GetHTTPTimeout() time.Duration {
	if e.HTTPTimeout <= 0 {
		return 15 * time.Second
	}
	return e.HTTPTimeout
}

// GetJobTimeout bounds one scheduled firing, including retries.
func (e EnvVars) GetJobTimeout() time.Duration {
	if e.JobTimeout <= 0 {
		return 2 * time.Minute
	}
	return e.JobTimeout
}

func (e EnvVars) GetPublishAttempts() int {
	if e.PublishAttempts <= 0 {
		return 1
	}
	return e.PublishAttempts
}

func (e EnvVars) GetWatchSchedule() bool {
	return e.WatchSchedule
}
