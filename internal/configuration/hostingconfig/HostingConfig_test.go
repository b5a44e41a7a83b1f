//go:build test

package hostingconfig

import (
	"os"
	"testing"

	"github.com/forceu/uploadrelay/internal/test"
	"github.com/forceu/uploadrelay/internal/test/testconfiguration"
)

func TestMain(m *testing.M) {
	testconfiguration.Create(false)
	exitVal := m.Run()
	testconfiguration.Delete()
	os.Exit(exitVal)
}

func TestLoad(t *testing.T) {
	config, ok := Load()
	test.IsEqualBool(t, ok, false)
	test.IsEqualBool(t, config == HostingConfig{}, true)

	saved := HostingConfig{
		Pixeldrain: PixeldrainConfig{ApiKey: "pd-key"},
		Catbox:     CatboxConfig{UserHash: "hash"},
	}
	test.IsNil(t, Write(saved))
	test.FileExists(t, "test/hosting.yml")
	config, ok = Load()
	test.IsEqualBool(t, ok, true)
	test.IsEqualBool(t, config == saved, true)

	os.Setenv("RELAY_GOFILE_API_KEY", "gf-key")
	config, ok = Load()
	test.IsEqualBool(t, ok, true)
	test.IsEqualString(t, config.Gofile.ApiKey, "gf-key")
	test.IsEqualString(t, config.Pixeldrain.ApiKey, "")
	os.Unsetenv("RELAY_GOFILE_API_KEY")

	testconfiguration.WriteHostingConfigFile(false)
	config, ok = Load()
	test.IsEqualBool(t, ok, false)
	test.IsEqualBool(t, config == HostingConfig{}, true)
}

func TestLoadTestFile(t *testing.T) {
	testconfiguration.WriteHostingConfigFile(true)
	config, ok := Load()
	test.IsEqualBool(t, ok, true)
	test.IsEqualString(t, config.Pixeldrain.ApiKey, "test-pixeldrain-key")
	test.IsEqualString(t, config.Gofile.ApiKey, "test-gofile-key")
	test.IsEqualString(t, config.Catbox.UserHash, "test-catbox-hash")
}
