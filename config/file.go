// This file is part of tascore.
//
// tascore is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// tascore is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with tascore.  If not, see <https://www.gnu.org/licenses/>.

package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/jsle-tas/tascore/errors"
)

// dotDir is the resource directory name under the user's home, following
// the same per-tool dotfile convention as the rest of this codebase's
// ancestry.
const dotDir = ".tascore"

// ResourcePath builds a path under the user's resource directory from a
// subdirectory and filename, either of which may be empty.
func ResourcePath(subdir, filename string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Errorf("prefs: %v", err)
	}

	parts := []string{home, dotDir}
	if subdir != "" {
		parts = append(parts, subdir)
	}
	if filename != "" {
		parts = append(parts, filename)
	}
	return filepath.Join(parts...), nil
}

// Load reads a Shared configuration from a TOML file at path. Fields
// absent from the file retain their Default() value.
func Load(path string) (Shared, error) {
	cfg := Default()
	cfg.Throttle = nil
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Shared{}, errors.Errorf("prefs: %v", err)
	}
	if cfg.Throttle == nil {
		cfg.Throttle = Default().Throttle
	}
	return cfg, nil
}

// Save writes cfg to path as TOML, creating parent directories as needed.
func Save(path string, cfg Shared) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Errorf("prefs: %v", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Errorf("prefs: %v", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return errors.Errorf("prefs: %v", err)
	}
	return nil
}
