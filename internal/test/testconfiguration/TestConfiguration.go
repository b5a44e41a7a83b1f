//go:build test

package testconfiguration

import (
	"net/http/httptest"
	"os"

	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
)

const (
	baseDir = "test"
	// DownloadDir is the download directory of the worker during tests
	DownloadDir = baseDir + "/downloads"
	// SignalDir is the directory of the local signal store during tests
	SignalDir = baseDir + "/signals"
	// SignalUrl points to SignalDir
	SignalUrl   = "file://" + SignalDir
	hostingFile = baseDir + "/hosting.yml"
)

// SetDirEnv points the config, download and signal locations to the test directory
func SetDirEnv() {
	os.Setenv("RELAY_CONFIG_DIR", baseDir)
	os.Setenv("RELAY_DOWNLOAD_DIR", DownloadDir)
	os.Setenv("RELAY_SIGNAL_URL", SignalUrl)
	for _, dir := range []string{baseDir, DownloadDir, SignalDir} {
		err := os.MkdirAll(dir, 0777)
		if err != nil {
			panic(err)
		}
	}
}

// Create creates a configuration for unit testing. If withCredentials is set, a valid hosting.yml is written
func Create(withCredentials bool) {
	SetDirEnv()
	if withCredentials {
		WriteHostingConfigFile(true)
	}
}

// WriteHostingConfigFile writes the credentials file, either valid or with invalid yaml
func WriteHostingConfigFile(valid bool) {
	content := hostingTestFile
	if !valid {
		content = []byte("pixeldrain: [invalid")
	}
	err := os.WriteFile(hostingFile, content, 0600)
	if err != nil {
		panic(err)
	}
}

// Delete removes the test directory and the env variables set by SetDirEnv
func Delete() {
	os.RemoveAll(baseDir)
	os.Unsetenv("RELAY_CONFIG_DIR")
	os.Unsetenv("RELAY_DOWNLOAD_DIR")
	os.Unsetenv("RELAY_SIGNAL_URL")
}

// StartS3TestServer starts an in-memory S3 server with the given buckets. Call Close on the server when done
func StartS3TestServer(buckets ...string) (*httptest.Server, *s3mem.Backend) {
	backend := s3mem.New()
	for _, bucket := range buckets {
		_ = backend.CreateBucket(bucket)
	}
	faker := gofakes3.New(backend)
	return httptest.NewServer(faker.Server()), backend
}

var hostingTestFile = []byte(`pixeldrain:
  api_key: test-pixeldrain-key
gofile:
  api_key: test-gofile-key
catbox:
  user_hash: test-catbox-hash
`)
