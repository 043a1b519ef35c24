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

package config_test

import (
	"path/filepath"
	"testing"

	"github.com/jsle-tas/tascore/config"
	"github.com/jsle-tas/tascore/test"
)

func TestResourcePath(t *testing.T) {
	pth, err := config.ResourcePath("foo/bar", "baz")
	test.DemandSuccess(t, err)
	if filepath.Base(pth) != "baz" {
		t.Errorf("expected path to end in baz, got %s", pth)
	}

	pth, err = config.ResourcePath("", "")
	test.DemandSuccess(t, err)
	if filepath.Base(pth) != ".tascore" {
		t.Errorf("expected bare resource path to end in .tascore, got %s", pth)
	}
}

func TestDefault(t *testing.T) {
	cfg := config.Default()
	test.ExpectEquality(t, cfg.FramerateNum, uint32(60))
	test.ExpectEquality(t, cfg.FramerateDen, uint32(1))
	test.ExpectEquality(t, cfg.Fastforward, false)
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(filepath.Join(dir, "does-not-exist.toml"))
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, cfg, config.Default())
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "tascore.toml")

	want := config.Default()
	want.Fastforward = true
	want.ShowHUD = true
	want.Throttle = config.ThrottleTable{"main:time": 500}

	test.DemandSuccess(t, config.Save(path, want))

	got, err := config.Load(path)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, got, want)
}
