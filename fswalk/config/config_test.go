package config

import (
	"os"
	"path/filepath"
	"testing"

	internal "github.com/ZanzyTHEbar/fswalk/fswalk"
	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/filter"
	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/options"
	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ConfigTestSuite tests the config package functionality
type ConfigTestSuite struct {
	suite.Suite
	tempDir string
	origDir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupTest() {
	var err error
	suite.origDir, err = os.Getwd()
	require.NoError(suite.T(), err)

	suite.tempDir = suite.T().TempDir()
	require.NoError(suite.T(), os.Chdir(suite.tempDir))
}

func (suite *ConfigTestSuite) TearDownTest() {
	if suite.origDir != "" {
		os.Chdir(suite.origDir)
	}
}

func (suite *ConfigTestSuite) writeConfig(content string) string {
	path := filepath.Join(suite.tempDir, "config.yaml")
	require.NoError(suite.T(), os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (suite *ConfigTestSuite) TestLoadConfigWithDefaults() {
	cfg, err := LoadConfig("")
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), cfg)

	assert.Equal(suite.T(), "files", cfg.Walk.Type)
	assert.Equal(suite.T(), options.UnlimitedDepth, cfg.Walk.Depth)
	assert.Equal(suite.T(), internal.DefaultHighWaterMark, cfg.Walk.HighWaterMark)
	assert.Empty(suite.T(), cfg.Walk.FileFilter)
	assert.Equal(suite.T(), internal.DefaultLogLevel, cfg.Logging.Level)
	assert.Equal(suite.T(), "text", cfg.Output.Format)
	assert.Equal(suite.T(), "auto", cfg.Output.Color)
}

func (suite *ConfigTestSuite) TestLoadConfigWithFile() {
	path := suite.writeConfig(`
walk:
  type: both
  depth: 3
  fileFilter:
    - "*.go"
    - "!*_test.go"
  directoryFilter: ["!vendor"]
  alwaysStat: true
  highWaterMark: 64
  workers: 2
  ignoreFile: .fswalkignore
logging:
  level: debug
output:
  format: json
  color: never
`)

	cfg, err := LoadConfig(path)
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), "both", cfg.Walk.Type)
	assert.Equal(suite.T(), 3, cfg.Walk.Depth)
	assert.Equal(suite.T(), []string{"*.go", "!*_test.go"}, cfg.Walk.FileFilter)
	assert.Equal(suite.T(), []string{"!vendor"}, cfg.Walk.DirectoryFilter)
	assert.True(suite.T(), cfg.Walk.AlwaysStat)
	assert.Equal(suite.T(), 64, cfg.Walk.HighWaterMark)
	assert.Equal(suite.T(), 2, cfg.Walk.Workers)
	assert.Equal(suite.T(), ".fswalkignore", cfg.Walk.IgnoreFile)
	assert.Equal(suite.T(), "debug", cfg.Logging.Level)
	assert.Equal(suite.T(), "json", cfg.Output.Format)

	opts := cfg.Walk.TraversalOptions()
	assert.Equal(suite.T(), types.EntryType("both"), opts.Type)
	assert.Equal(suite.T(), 3, opts.MaxDepth)
	assert.Equal(suite.T(), filter.Globs{"*.go", "!*_test.go"}, opts.FileFilter)
	assert.Equal(suite.T(), filter.Globs{"!vendor"}, opts.DirectoryFilter)
	assert.Equal(suite.T(), 2, opts.Workers)

	compiled, err := opts.Compile(suite.tempDir)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), types.TypeFilesDirectories, compiled.Type)
}

func (suite *ConfigTestSuite) TestLoadConfigFromWorkingDirectory() {
	suite.writeConfig("walk:\n  type: directories\n")

	cfg, err := LoadConfig("")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "directories", cfg.Walk.Type)
}

func (suite *ConfigTestSuite) TestEnvironmentOverrides() {
	suite.T().Setenv("FSWALK_WALK_TYPE", "all")
	suite.T().Setenv("FSWALK_WALK_DEPTH", "1")
	suite.T().Setenv("FSWALK_LOGGING_LEVEL", "info")

	cfg, err := LoadConfig("")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "all", cfg.Walk.Type)
	assert.Equal(suite.T(), 1, cfg.Walk.Depth)
	assert.Equal(suite.T(), "info", cfg.Logging.Level)
}

func (suite *ConfigTestSuite) TestLoadConfigInvalidFile() {
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	assert.Error(suite.T(), err)
	assert.Nil(suite.T(), cfg)
}

func (suite *ConfigTestSuite) TestLoadConfigMalformedFile() {
	path := suite.writeConfig("walk:\n  type: files\n  fileFilter: [unclosed bracket\n")

	cfg, err := LoadConfig(path)
	assert.Error(suite.T(), err)
	assert.Nil(suite.T(), cfg)
}

func (suite *ConfigTestSuite) TestValidation() {
	tests := map[string]string{
		"bad type":   "walk:\n  type: sockets\n",
		"negative":   "walk:\n  depth: -2\n",
		"bad format": "output:\n  format: xml\n",
		"bad color":  "output:\n  color: sometimes\n",
	}
	for name, content := range tests {
		suite.Run(name, func() {
			cfg, err := LoadConfig(suite.writeConfig(content))
			assert.Error(suite.T(), err)
			assert.Nil(suite.T(), cfg)
		})
	}
}

func TestWalkConfigDefaultsAreKept(t *testing.T) {
	opts := WalkConfig{Type: "files"}.TraversalOptions()
	assert.Equal(t, internal.DefaultHighWaterMark, opts.HighWaterMark)
	assert.Equal(t, options.DefaultWorkers(), opts.Workers)
	assert.Nil(t, opts.FileFilter)
}
