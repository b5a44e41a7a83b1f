//go:build test

package testconfiguration

import (
	"os"
	"testing"

	"github.com/forceu/uploadrelay/internal/helper"
	"github.com/forceu/uploadrelay/internal/test"
)

func TestCreate(t *testing.T) {
	Create(true)
	test.IsEqualBool(t, helper.FolderExists(SignalDir), true)
	test.IsEqualBool(t, helper.FolderExists(DownloadDir), true)
	test.FileExists(t, hostingFile)
	test.IsEqualString(t, os.Getenv("RELAY_SIGNAL_URL"), SignalUrl)
}

func TestWriteHostingConfigFile(t *testing.T) {
	WriteHostingConfigFile(false)
	content, err := os.ReadFile(hostingFile)
	test.IsNil(t, err)
	test.ContainsString(t, string(content), "[invalid")
}

func TestDelete(t *testing.T) {
	Delete()
	test.IsEqualBool(t, helper.FolderExists(baseDir), false)
	test.IsEqualString(t, os.Getenv("RELAY_CONFIG_DIR"), "")
}

func TestStartS3TestServer(t *testing.T) {
	server, backend := StartS3TestServer("relay-test")
	defer server.Close()
	buckets, err := backend.ListBuckets()
	test.IsNil(t, err)
	test.IsEqualInt(t, len(buckets), 1)
	test.IsEqualString(t, buckets[0].Name, "relay-test")
}
