package skin_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/calvinalkan/flagskin/internal/skin"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// isolatedEnv points HOME into a temp dir so no real user config is read.
func isolatedEnv(t *testing.T) map[string]string {
	t.Helper()

	home := t.TempDir()

	return map[string]string{"HOME": home}
}

func Test_LoadConfig_Returns_Defaults_When_No_Files(t *testing.T) {
	t.Parallel()

	env := isolatedEnv(t)

	cfg, err := skin.LoadConfig(skin.LoadConfigInput{WorkDir: t.TempDir(), Env: env})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	want := skin.DefaultConfig()
	want.CacheDir = filepath.Join(env["HOME"], ".cache", "flagskin", "textures")

	if diff := cmp.Diff(want, cfg, cmpopts.IgnoreFields(skin.Config{}, "Sources")); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}

	if cfg.Sources.Global != "" || cfg.Sources.Project != "" || len(cfg.Sources.Env) != 0 {
		t.Fatalf("sources=%+v, want none", cfg.Sources)
	}
}

func Test_LoadConfig_Default_Colors_Match_Factions(t *testing.T) {
	t.Parallel()

	cfg := skin.DefaultConfig()

	for _, f := range skin.Factions {
		if got := cfg.Source(f).Color; got != f.DefaultColor() {
			t.Fatalf("%s color=%v, want %v", f, got, f.DefaultColor())
		}
	}

	if cfg.Factions.Sorcerer.Color != "#4B4A6A" {
		t.Fatalf("sorcerer=%q, want #4B4A6A", cfg.Factions.Sorcerer.Color)
	}
}

func Test_LoadConfig_Project_File_Overrides_Global(t *testing.T) {
	t.Parallel()

	env := isolatedEnv(t)
	env["XDG_CONFIG_HOME"] = filepath.Join(env["HOME"], "xdg")
	work := t.TempDir()

	globalPath := filepath.Join(env["XDG_CONFIG_HOME"], "flagskin", "config.json")
	writeFile(t, globalPath, `{
		"use_cache": false,
		"factions": {"sorcerer": {"color": "#111111", "image_url": "https://x.test/s.png"}},
	}`)
	writeFile(t, filepath.Join(work, skin.ConfigFileName), `{
		// project wins for color only
		"factions": {"sorcerer": {"color": "#222222"}}
	}`)

	cfg, err := skin.LoadConfig(skin.LoadConfigInput{WorkDir: work, Env: env})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.UseCache {
		t.Fatal("use_cache from global config lost")
	}

	if got := cfg.Factions.Sorcerer; got.Color != "#222222" || got.ImageURL != "https://x.test/s.png" {
		t.Fatalf("sorcerer=%+v, want project color and global url", got)
	}

	if cfg.Sources.Global != globalPath || cfg.Sources.Project != filepath.Join(work, skin.ConfigFileName) {
		t.Fatalf("sources=%+v", cfg.Sources)
	}
}

func Test_LoadConfig_Explicit_Path_Replaces_Project_File(t *testing.T) {
	t.Parallel()

	work := t.TempDir()
	writeFile(t, filepath.Join(work, skin.ConfigFileName), `{"debug": true}`)
	writeFile(t, filepath.Join(work, "alt.json"), `{"neutral_discriminant": 42}`)

	cfg, err := skin.LoadConfig(skin.LoadConfigInput{WorkDir: work, ConfigPath: "alt.json", Env: isolatedEnv(t)})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Debug {
		t.Fatal("project file was read despite explicit config")
	}

	if cfg.NeutralDiscriminant != 42 {
		t.Fatalf("neutral_discriminant=%d, want 42", cfg.NeutralDiscriminant)
	}
}

func Test_LoadConfig_Returns_Error_When_Explicit_Path_Missing(t *testing.T) {
	t.Parallel()

	_, err := skin.LoadConfig(skin.LoadConfigInput{WorkDir: t.TempDir(), ConfigPath: "nope.json", Env: isolatedEnv(t)})
	if !errors.Is(err, skin.ErrConfigFileNotFound) {
		t.Fatalf("err=%v, want ErrConfigFileNotFound", err)
	}
}

func Test_LoadConfig_Returns_Error_When_File_Invalid(t *testing.T) {
	t.Parallel()

	work := t.TempDir()
	writeFile(t, filepath.Join(work, skin.ConfigFileName), `{"enabled": "yes"}`)

	_, err := skin.LoadConfig(skin.LoadConfigInput{WorkDir: work, Env: isolatedEnv(t)})
	if !errors.Is(err, skin.ErrConfigInvalid) {
		t.Fatalf("err=%v, want ErrConfigInvalid", err)
	}
}

func Test_LoadConfig_Env_Overrides_Files(t *testing.T) {
	t.Parallel()

	work := t.TempDir()
	writeFile(t, filepath.Join(work, skin.ConfigFileName), `{"enabled": true, "cache_dir": "from-file"}`)

	env := isolatedEnv(t)
	env["FLAGSKIN_ENABLED"] = "false"
	env["FLAGSKIN_DEBUG"] = "true"
	env["FLAGSKIN_NEUTRAL_DISCRIMINANT"] = "7"

	cfg, err := skin.LoadConfig(skin.LoadConfigInput{WorkDir: work, Env: env})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Enabled || !cfg.Debug || cfg.NeutralDiscriminant != 7 {
		t.Fatalf("cfg=%+v, want env overrides applied", cfg)
	}

	if got, want := cfg.CacheDir, filepath.Join(work, "from-file"); got != want {
		t.Fatalf("cache_dir=%q, want %q", got, want)
	}

	want := []string{"FLAGSKIN_ENABLED", "FLAGSKIN_DEBUG", "FLAGSKIN_NEUTRAL_DISCRIMINANT"}
	if diff := cmp.Diff(want, cfg.Sources.Env); diff != "" {
		t.Fatalf("env sources mismatch (-want +got):\n%s", diff)
	}
}

func Test_LoadConfig_Returns_Error_When_Env_Invalid(t *testing.T) {
	t.Parallel()

	env := isolatedEnv(t)
	env["FLAGSKIN_USE_CACHE"] = "maybe"

	_, err := skin.LoadConfig(skin.LoadConfigInput{WorkDir: t.TempDir(), Env: env})
	if !errors.Is(err, skin.ErrEnvInvalid) {
		t.Fatalf("err=%v, want ErrEnvInvalid", err)
	}
}

func Test_LoadConfig_Uses_XDG_Cache_Home(t *testing.T) {
	t.Parallel()

	env := isolatedEnv(t)
	env["XDG_CACHE_HOME"] = filepath.Join(env["HOME"], "cache")

	cfg, err := skin.LoadConfig(skin.LoadConfigInput{WorkDir: t.TempDir(), Env: env})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if got, want := cfg.CacheDir, filepath.Join(env["HOME"], "cache", "flagskin", "textures"); got != want {
		t.Fatalf("cache_dir=%q, want %q", got, want)
	}
}

func Test_LoadConfig_Resolves_Relative_Paths_Against_WorkDir(t *testing.T) {
	t.Parallel()

	work := t.TempDir()
	writeFile(t, filepath.Join(work, skin.ConfigFileName), `{
		"cache_dir": "cache",
		"factions": {
			"sorcerer": {"image_path": "art/sorcerer.png"},
			"warlock": {"image_path": "/abs/warlock.png"},
		},
	}`)

	cfg, err := skin.LoadConfig(skin.LoadConfigInput{WorkDir: work, Env: isolatedEnv(t)})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	want := []string{
		filepath.Join(work, "cache"),
		filepath.Join(work, "art", "sorcerer.png"),
		"/abs/warlock.png",
		"",
	}
	got := []string{
		cfg.CacheDir,
		cfg.Factions.Sorcerer.ImagePath,
		cfg.Factions.Warlock.ImagePath,
		cfg.Factions.Neutral.ImagePath,
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
}

func Test_ConfigFiles_Lists_Global_And_Project_Paths(t *testing.T) {
	t.Parallel()

	env := map[string]string{"XDG_CONFIG_HOME": "/xdg"}

	got := skin.ConfigFiles(skin.LoadConfigInput{WorkDir: "/work", Env: env})
	want := []string{"/xdg/flagskin/config.json", "/work/" + skin.ConfigFileName}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("files mismatch (-want +got):\n%s", diff)
	}

	got = skin.ConfigFiles(skin.LoadConfigInput{WorkDir: "/work", ConfigPath: "alt.json"})
	want = []string{"/work/alt.json"}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("explicit files mismatch (-want +got):\n%s", diff)
	}
}

func Test_Config_Source_Uses_Default_Color_When_Hex_Invalid(t *testing.T) {
	t.Parallel()

	cfg := skin.DefaultConfig()
	cfg.Factions.Warlock.Color = "purple"
	cfg.Factions.Warlock.ImagePath = "  wolf.png  "

	src := cfg.Source(skin.Warlock)

	if src.Color != skin.Warlock.DefaultColor() {
		t.Fatalf("color=%v, want default", src.Color)
	}

	if src.Path != "wolf.png" {
		t.Fatalf("path=%q, want trimmed", src.Path)
	}

	if diff := cmp.Diff([]skin.Faction{skin.Warlock}, cfg.InvalidColors()); diff != "" {
		t.Fatalf("invalid colors mismatch (-want +got):\n%s", diff)
	}
}

func Test_FormatConfig_Renders_JSON_Keys(t *testing.T) {
	t.Parallel()

	out, err := skin.FormatConfig(skin.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{`"enabled": true`, `"neutral_discriminant": 99`, `"image_url": ""`} {
		if !strings.Contains(out, key) {
			t.Fatalf("output missing %s:\n%s", key, out)
		}
	}
}
