package database

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	AppDirName       = ".tour-stitcher"
	AppDirEnv        = "STITCHER_HOME"
	SubTourDirName   = "subtours"
	SubTourExt       = ".tour"
	RunsFileName     = "runs.json"
	SQLiteDBFileName = "stitcher.db"
	ConfigFileName   = "config.yaml"
)

// GetAppDir returns ~/.tour-stitcher (or $STITCHER_HOME), creating it if needed
func GetAppDir() (string, error) {
	appDir := os.Getenv(AppDirEnv)
	if appDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		appDir = filepath.Join(homeDir, AppDirName)
	}

	if err := os.MkdirAll(appDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create app directory: %w", err)
	}

	return appDir, nil
}

// GetDefaultDBPath returns the default SQLite database path: ~/.tour-stitcher/stitcher.db
func GetDefaultDBPath() (string, error) {
	appDir, err := GetAppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(appDir, SQLiteDBFileName), nil
}

// GetConfigFilePath returns ~/.tour-stitcher/config.yaml
func GetConfigFilePath() (string, error) {
	appDir, err := GetAppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(appDir, ConfigFileName), nil
}

// SubTourPath returns the file holding the sub-tour of the named cluster
func SubTourPath(dir, name string) string {
	return filepath.Join(dir, name+SubTourExt)
}
