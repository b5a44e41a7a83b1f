package environment

import (
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	envParser "github.com/caarlos0/env/v6"
	"github.com/forceu/uploadrelay/internal/environment/flagparser"
)

// EnvPrefix is prepended to all env variables read by the bot and the worker
const EnvPrefix = "RELAY_"

// Environment is a struct containing available env variables
type Environment struct {
	BotToken             string   `env:"BOT_TOKEN"`
	BotApiEndpoint       string   `env:"BOT_API_ENDPOINT"`
	AuthorizedUsers      []string `env:"AUTHORIZED_USERS" envSeparator:","`
	GithubToken          string   `env:"GITHUB_TOKEN"`
	GithubRepo           string   `env:"GITHUB_REPO"`
	GithubApiUrl         string   `env:"GITHUB_API_URL" envDefault:"https://api.github.com"`
	WorkflowFile         string   `env:"WORKFLOW_FILE" envDefault:"upload.yml"`
	DefaultRef           string   `env:"DEFAULT_REF" envDefault:"main"`
	FallbackRef          string   `env:"FALLBACK_REF" envDefault:"master"`
	ConfigDir            string   `env:"CONFIG_DIR" envDefault:"config"`
	DataDir              string   `env:"DATA_DIR" envDefault:"."`
	DownloadDir          string   `env:"DOWNLOAD_DIR" envDefault:"downloads"`
	SignalUrl            string   `env:"SIGNAL_URL" envDefault:"file://cancel_queue"`
	LogToStdout          bool     `env:"LOG_STDOUT" envDefault:"false"`
	AnimationIntervalMs  int      `env:"ANIMATION_INTERVAL_MS" envDefault:"1000"`
	AnimationMaxUpdates  int      `env:"ANIMATION_MAX_UPDATES" envDefault:"60"`
	ProgressIntervalSec  int      `env:"PROGRESS_INTERVAL_SEC" envDefault:"5"`
	SessionMaxAgeHours   int      `env:"SESSION_MAX_AGE_HOURS" envDefault:"24"`
	ReconcileIntervalSec int      `env:"RECONCILE_INTERVAL_SEC" envDefault:"30"`
	MaxBandwidthKB       int      `env:"MAX_BANDWIDTH_KB" envDefault:"0"`
	EditsPerSecond       int      `env:"EDITS_PER_SECOND" envDefault:"1"`
	PixeldrainApiKey     string   `env:"PIXELDRAIN_API_KEY"`
	GofileApiKey         string   `env:"GOFILE_API_KEY"`
	CatboxUserHash       string   `env:"CATBOX_USER_HASH"`

	// Inputs of the job, only read by the worker
	SessionId    string `env:"SESSION_ID"`
	Service      string `env:"SERVICE"`
	WorkflowData string `env:"WORKFLOW_DATA"`
}

// New parses the env variables
func New() Environment {
	result := Environment{}
	err := envParser.Parse(&result, envParser.Options{
		Prefix: EnvPrefix,
	})
	if err != nil {
		fmt.Println("Error parsing env variables:", err)
		osExit(1)
		return Environment{}
	}

	flags := flagparser.ParseFlags()
	if flags.IsConfigDirSet {
		result.ConfigDir = flags.ConfigDir
	}
	if flags.IsDataDirSet {
		result.DataDir = flags.DataDir
	}
	if flags.IsSignalUrlSet {
		result.SignalUrl = flags.SignalUrl
	}
	if flags.IsPayloadFileSet {
		content, err := os.ReadFile(flags.PayloadFile)
		if err != nil {
			fmt.Println("Error reading payload file:", err)
			osExit(1)
			return Environment{}
		}
		result.WorkflowData = string(content)
	}

	result.ConfigDir = path.Clean(result.ConfigDir)
	result.DataDir = path.Clean(result.DataDir)
	result.DownloadDir = inDataDir(result.DataDir, result.DownloadDir)
	result.SignalUrl = signalUrlInDataDir(result.DataDir, result.SignalUrl)
	result.AuthorizedUsers = cleanList(result.AuthorizedUsers)
	result.GithubApiUrl = strings.TrimSuffix(result.GithubApiUrl, "/")

	if result.AnimationIntervalMs < 100 {
		result.AnimationIntervalMs = 100
	}
	if result.AnimationMaxUpdates < 1 {
		result.AnimationMaxUpdates = 1
	}
	if result.ProgressIntervalSec < 1 {
		result.ProgressIntervalSec = 1
	}
	if result.SessionMaxAgeHours < 1 {
		result.SessionMaxAgeHours = 1
	}
	if result.ReconcileIntervalSec < 5 {
		result.ReconcileIntervalSec = 5
	}
	if result.MaxBandwidthKB < 0 {
		result.MaxBandwidthKB = 0
	}
	if result.EditsPerSecond < 1 {
		result.EditsPerSecond = 1
	}
	if result.DefaultRef == "" {
		result.DefaultRef = "main"
	}
	return result
}

// inDataDir returns dir relative to the data directory, absolute paths are kept
func inDataDir(dataDir, dir string) string {
	if path.IsAbs(dir) {
		return path.Clean(dir)
	}
	return path.Join(dataDir, dir)
}

// signalUrlInDataDir places relative file:// and sqlite:// paths in the data directory
func signalUrlInDataDir(dataDir, signalUrl string) string {
	for _, scheme := range []string{"file://", "sqlite://"} {
		if strings.HasPrefix(signalUrl, scheme) {
			location := strings.TrimPrefix(signalUrl, scheme)
			if location == "" || path.IsAbs(location) {
				return signalUrl
			}
			return scheme + inDataDir(dataDir, location)
		}
	}
	return signalUrl
}

func cleanList(input []string) []string {
	result := make([]string, 0, len(input))
	for _, entry := range input {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			result = append(result, entry)
		}
	}
	return result
}

// IsAuthorized returns true if no user restriction is set or the user id is part of the allowed users
func (e *Environment) IsAuthorized(userId string) bool {
	if len(e.AuthorizedUsers) == 0 {
		return true
	}
	for _, user := range e.AuthorizedUsers {
		if user == userId {
			return true
		}
	}
	return false
}

// IsGithubProvided returns true if all required env variables have been set for dispatching jobs
func (e *Environment) IsGithubProvided() bool {
	return e.GithubToken != "" && e.GithubRepo != "" && strings.Contains(e.GithubRepo, "/")
}

// IsHostingProvided returns true if at least one credential for a hosting service has been set
func (e *Environment) IsHostingProvided() bool {
	return e.PixeldrainApiKey != "" || e.GofileApiKey != "" || e.CatboxUserHash != ""
}

// AnimationInterval returns the refresh interval of the initialising animation
func (e *Environment) AnimationInterval() time.Duration {
	return time.Duration(e.AnimationIntervalMs) * time.Millisecond
}

// ProgressInterval returns the minimum time between two progress updates of the worker
func (e *Environment) ProgressInterval() time.Duration {
	return time.Duration(e.ProgressIntervalSec) * time.Second
}

// SessionMaxAge returns the time after which a session is removed from the registry
func (e *Environment) SessionMaxAge() time.Duration {
	return time.Duration(e.SessionMaxAgeHours) * time.Hour
}

// ReconcileInterval returns the interval in which outcome markers of the worker are checked
func (e *Environment) ReconcileInterval() time.Duration {
	return time.Duration(e.ReconcileIntervalSec) * time.Second
}

// GetLogPath returns the directory the log file is written to
func (e *Environment) GetLogPath() string {
	return e.ConfigDir
}

var osExit = os.Exit
