//go:build test

package environment

import (
	"os"
	"testing"
	"time"

	"github.com/forceu/uploadrelay/internal/test"
)

func TestEnvLoad(t *testing.T) {
	os.Setenv("RELAY_CONFIG_DIR", "test/")
	os.Setenv("RELAY_AUTHORIZED_USERS", " 1, 2,,3 ")
	os.Setenv("RELAY_ANIMATION_INTERVAL_MS", "5")
	os.Setenv("RELAY_EDITS_PER_SECOND", "0")
	os.Setenv("RELAY_GITHUB_API_URL", "http://localhost/")
	env := New()
	test.IsEqualString(t, env.ConfigDir, "test")
	test.IsEqualString(t, env.GetLogPath(), "test")
	test.IsEqualInt(t, len(env.AuthorizedUsers), 3)
	test.IsEqualString(t, env.AuthorizedUsers[1], "2")
	test.IsEqualInt(t, env.AnimationIntervalMs, 100)
	test.IsEqualInt(t, env.EditsPerSecond, 1)
	test.IsEqualString(t, env.GithubApiUrl, "http://localhost")
	test.IsEqualString(t, env.SignalUrl, "file://cancel_queue")
	test.IsEqualString(t, env.DefaultRef, "main")
	test.IsEqualString(t, env.FallbackRef, "master")
	test.IsEqualInt(t, env.AnimationMaxUpdates, 60)
	test.IsEqualInt64(t, int64(env.ProgressInterval()), int64(5*time.Second))
	test.IsEqualInt64(t, int64(env.SessionMaxAge()), int64(24*time.Hour))
	test.IsEqualInt64(t, int64(env.ReconcileInterval()), int64(30*time.Second))
	test.IsEqualInt64(t, int64(env.AnimationInterval()), int64(100*time.Millisecond))
	os.Unsetenv("RELAY_CONFIG_DIR")
	os.Unsetenv("RELAY_AUTHORIZED_USERS")
	os.Unsetenv("RELAY_ANIMATION_INTERVAL_MS")
	os.Unsetenv("RELAY_EDITS_PER_SECOND")
	os.Unsetenv("RELAY_GITHUB_API_URL")

	os.Setenv("RELAY_ANIMATION_MAX_UPDATES", "invalid")
	osExit = test.ExitCode(t, 1)
	env = New()
	test.IsEqualString(t, env.ConfigDir, "")
	osExit = os.Exit
	os.Unsetenv("RELAY_ANIMATION_MAX_UPDATES")
}

func TestDataDir(t *testing.T) {
	os.Setenv("RELAY_DATA_DIR", "/srv/relay/")
	env := New()
	test.IsEqualString(t, env.DataDir, "/srv/relay")
	test.IsEqualString(t, env.DownloadDir, "/srv/relay/downloads")
	test.IsEqualString(t, env.SignalUrl, "file:///srv/relay/cancel_queue")

	os.Setenv("RELAY_DOWNLOAD_DIR", "/tmp/downloads")
	os.Setenv("RELAY_SIGNAL_URL", "sqlite://signals.db")
	env = New()
	test.IsEqualString(t, env.DownloadDir, "/tmp/downloads")
	test.IsEqualString(t, env.SignalUrl, "sqlite:///srv/relay/signals.db")

	os.Setenv("RELAY_SIGNAL_URL", "redis://localhost:6379")
	env = New()
	test.IsEqualString(t, env.SignalUrl, "redis://localhost:6379")
	os.Unsetenv("RELAY_DATA_DIR")
	os.Unsetenv("RELAY_DOWNLOAD_DIR")
	os.Unsetenv("RELAY_SIGNAL_URL")

	env = New()
	test.IsEqualString(t, env.DownloadDir, "downloads")
	test.IsEqualString(t, env.SignalUrl, "file://cancel_queue")
}

func TestIsAuthorized(t *testing.T) {
	env := Environment{}
	test.IsEqualBool(t, env.IsAuthorized("123"), true)
	env.AuthorizedUsers = []string{"1", "2"}
	test.IsEqualBool(t, env.IsAuthorized("2"), true)
	test.IsEqualBool(t, env.IsAuthorized("123"), false)
}

func TestIsGithubProvided(t *testing.T) {
	env := Environment{GithubToken: "token"}
	test.IsEqualBool(t, env.IsGithubProvided(), false)
	env.GithubRepo = "invalid"
	test.IsEqualBool(t, env.IsGithubProvided(), false)
	env.GithubRepo = "owner/repo"
	test.IsEqualBool(t, env.IsGithubProvided(), true)
}
