package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// UserDefaults represents the optional per-user defaults file. Its
// values seed flags not set on the command line.
type UserDefaults struct {
	Defaults DefaultFlags `toml:"defaults"`
}

// DefaultFlags holds persistent flag defaults.
type DefaultFlags struct {
	Workers *int    `toml:"workers"`
	Quiet   *bool   `toml:"quiet"`
	LogDir  *string `toml:"log_dir"`
	BWLimit *string `toml:"bwlimit"`
}

// UserDefaultsPath returns the resolved path to the defaults file.
func UserDefaultsPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "everysync", "defaults.toml")
}

// LoadUserDefaults reads the defaults file from the XDG path. Returns
// a zero value (no error) if the file does not exist. The file is
// always optional.
func LoadUserDefaults() (UserDefaults, error) {
	path := UserDefaultsPath()
	if path == "" {
		return UserDefaults{}, nil
	}

	var d UserDefaults
	_, err := toml.DecodeFile(path, &d)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return UserDefaults{}, nil
		}
		return UserDefaults{}, err
	}
	return d, nil
}
