package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	appName      = "daakiya"
	dirEnv       = "DAAKIYA_CONFIG_DIR"
	historyFile  = "history.json"
	settingsTOML = "settings.toml"
	settingsJSON = "settings.json"
)

// Dir honours DAAKIYA_CONFIG_DIR, then the user config dir, then the working dir.
func Dir() string {
	if dir := strings.TrimSpace(os.Getenv(dirEnv)); dir != "" {
		return dir
	}
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		return "." + appName
	}
	return filepath.Join(base, appName)
}

func DefaultHistoryPath() string {
	return filepath.Join(Dir(), historyFile)
}
