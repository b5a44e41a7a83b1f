package hostingconfig

import (
	"fmt"
	"os"

	"github.com/forceu/uploadrelay/internal/environment"
	"github.com/forceu/uploadrelay/internal/helper"
	"gopkg.in/yaml.v3"
)

// FileName is the name of the credentials file in the config directory
const FileName = "hosting.yml"

// HostingConfig contains all credentials for the hosting services. Every value is optional,
// services are used anonymously if no credential is set
type HostingConfig struct {
	Pixeldrain PixeldrainConfig `yaml:"pixeldrain"`
	Gofile     GofileConfig     `yaml:"gofile"`
	Catbox     CatboxConfig     `yaml:"catbox"`
}

// PixeldrainConfig holds the API key for pixeldrain.com
type PixeldrainConfig struct {
	ApiKey string `yaml:"api_key"`
}

// GofileConfig holds the account token for gofile.io
type GofileConfig struct {
	ApiKey string `yaml:"api_key"`
}

// CatboxConfig holds the user hash for catbox.moe
type CatboxConfig struct {
	UserHash string `yaml:"user_hash"`
}

// Load loads hosting credentials from env variables or <config dir>/hosting.yml
func Load() (HostingConfig, bool) {
	env := environment.New()
	if env.IsHostingProvided() {
		return loadFromEnv(&env), true
	}
	path := env.ConfigDir + "/" + FileName
	if helper.FileExists(path) {
		return loadFromFile(path)
	}
	return HostingConfig{}, false
}

// Write saves the credentials file to the config directory
func Write(config HostingConfig) error {
	env := environment.New()
	helper.CreateDir(env.ConfigDir)
	file, err := os.OpenFile(env.ConfigDir+"/"+FileName, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := yaml.NewEncoder(file)
	defer encoder.Close()
	return encoder.Encode(config)
}

func loadFromEnv(env *environment.Environment) HostingConfig {
	return HostingConfig{
		Pixeldrain: PixeldrainConfig{ApiKey: env.PixeldrainApiKey},
		Gofile:     GofileConfig{ApiKey: env.GofileApiKey},
		Catbox:     CatboxConfig{UserHash: env.CatboxUserHash},
	}
}

func loadFromFile(path string) (HostingConfig, bool) {
	var result HostingConfig
	file, err := os.ReadFile(path)
	if err != nil {
		fmt.Println("Warning: Unable to read " + FileName + "!")
		return HostingConfig{}, false
	}
	err = yaml.Unmarshal(file, &result)
	if err != nil {
		fmt.Println("Warning: " + FileName + " contains invalid yaml!")
		return HostingConfig{}, false
	}
	return result, true
}
