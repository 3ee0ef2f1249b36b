package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultManifest(t *testing.T) {
	want := []struct {
		path string
		kind EntryKind
	}{
		{"", EntryDir},
		{"data", EntryDir},
		{"data/models", EntryDir},
		{"maps", EntryDir},
		{"maps/megawads", EntryDir},
		{"wads", EntryDir},
		{"instruments", EntryDir},
		{"timidity.cfg", EntryFile},
	}

	got := DefaultManifest()
	if len(got) != len(want) {
		t.Fatalf("DefaultManifest() has %d entries, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Path != w.path || got[i].Kind != w.kind {
			t.Errorf("entry %d = %s, want %q (%s)", i, got[i], w.path, w.kind)
		}
		if got[i].Optional {
			t.Errorf("entry %d (%s) should be required", i, got[i])
		}
	}

	if err := ValidateManifest(got); err != nil {
		t.Errorf("default manifest should be valid: %v", err)
	}
}

func TestDefaultLibrariesEngineLast(t *testing.T) {
	libs := DefaultLibraries()

	want := []string{"SDL2", "mpg123", "SDL2_mixer", "enet", "Doom2DF"}
	if strings.Join(libs, ",") != strings.Join(want, ",") {
		t.Fatalf("DefaultLibraries() = %v, want %v", libs, want)
	}
	if libs[len(libs)-1] != EngineLibrary {
		t.Errorf("engine library must be last, got %q", libs[len(libs)-1])
	}
	if err := ValidateLibraryOrder(libs, EngineLibrary); err != nil {
		t.Errorf("default library order should be valid: %v", err)
	}
}

func TestValidateLibraryOrder(t *testing.T) {
	tests := []struct {
		name        string
		libs        []string
		errContains string
	}{
		{name: "valid", libs: []string{"SDL2", "Doom2DF"}},
		{name: "empty", libs: nil, errContains: "empty"},
		{name: "engine not last", libs: []string{"Doom2DF", "SDL2"}, errContains: "must be loaded last"},
		{name: "engine missing", libs: []string{"SDL2", "enet"}, errContains: "not declared"},
		{name: "duplicate", libs: []string{"SDL2", "SDL2", "Doom2DF"}, errContains: "declared twice"},
		{name: "blank name", libs: []string{"", "Doom2DF"}, errContains: "empty name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLibraryOrder(tt.libs, EngineLibrary)
			if tt.errContains == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("expected error containing %q, got %v", tt.errContains, err)
			}
		})
	}
}

func TestValidateManifest(t *testing.T) {
	tests := []struct {
		name        string
		entries     []ManifestEntry
		errContains string
	}{
		{name: "empty", entries: nil, errContains: "empty"},
		{name: "unknown kind", entries: []ManifestEntry{{Path: "wads", Kind: "link"}}, errContains: "unknown kind"},
		{name: "escaping path", entries: []ManifestEntry{{Path: "../wads", Kind: EntryDir}}, errContains: "escapes"},
		{name: "absolute path", entries: []ManifestEntry{{Path: "/wads", Kind: EntryDir}}, errContains: "relative"},
		{name: "root as file", entries: []ManifestEntry{{Path: "", Kind: EntryFile}}, errContains: "bundle root"},
		{
			name: "duplicate after cleaning",
			entries: []ManifestEntry{
				{Path: "maps/megawads", Kind: EntryDir},
				{Path: "./maps/megawads/", Kind: EntryDir},
			},
			errContains: "duplicate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateManifest(tt.entries)
			if err == nil || !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("expected error containing %q, got %v", tt.errContains, err)
			}
		})
	}
}

func TestParseStagePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    StagePolicy
		wantErr bool
	}{
		{in: "", want: PolicyCompare},
		{in: "overwrite", want: PolicyOverwrite},
		{in: "skip-if-present", want: PolicySkipIfPresent},
		{in: "compare", want: PolicyCompare},
		{in: "newer", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseStagePolicy(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseStagePolicy(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseStagePolicy(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestParseLauncherConfig(t *testing.T) {
	tests := []struct {
		name        string
		yamlContent string
		errContains string
		validate    func(*testing.T, *LauncherConfig)
	}{
		{
			name:        "empty document keeps defaults",
			yamlContent: "",
			validate: func(t *testing.T, cfg *LauncherConfig) {
				if cfg.Policy != PolicyCompare {
					t.Errorf("expected policy compare, got %q", cfg.Policy)
				}
				if len(cfg.Manifest) != len(DefaultManifest()) {
					t.Errorf("expected default manifest, got %d entries", len(cfg.Manifest))
				}
				if cfg.EngineEntry != DefaultEngineEntry {
					t.Errorf("expected entry %q, got %q", DefaultEngineEntry, cfg.EngineEntry)
				}
			},
		},
		{
			name: "overrides",
			yamlContent: `
stagingDir: /sdcard/d2df
policy: skip-if-present
libraryDir: lib/arm64
engineArgs: ["-map", "MAP01"]
manifest:
  - {path: "wads", kind: dir}
  - {path: "timidity.cfg", kind: file}
  - {path: "mods", kind: dir, optional: true}
`,
			validate: func(t *testing.T, cfg *LauncherConfig) {
				if cfg.StagingDir != "/sdcard/d2df" {
					t.Errorf("expected stagingDir /sdcard/d2df, got %q", cfg.StagingDir)
				}
				if cfg.Policy != PolicySkipIfPresent {
					t.Errorf("expected policy skip-if-present, got %q", cfg.Policy)
				}
				if cfg.LibraryDir != "lib/arm64" {
					t.Errorf("expected libraryDir lib/arm64, got %q", cfg.LibraryDir)
				}
				if len(cfg.EngineArgs) != 2 || cfg.EngineArgs[1] != "MAP01" {
					t.Errorf("unexpected engineArgs %v", cfg.EngineArgs)
				}
				if len(cfg.Manifest) != 3 || !cfg.Manifest[2].Optional {
					t.Errorf("unexpected manifest %v", cfg.Manifest)
				}
				if cfg.Libraries[len(cfg.Libraries)-1] != EngineLibrary {
					t.Errorf("libraries should keep defaults, got %v", cfg.Libraries)
				}
			},
		},
		{
			name:        "bad policy",
			yamlContent: "policy: sometimes\n",
			errContains: "unknown stage policy",
		},
		{
			name:        "engine not last",
			yamlContent: "libraries: [Doom2DF, SDL2]\n",
			errContains: "must be loaded last",
		},
		{
			name:        "malformed yaml",
			yamlContent: "manifest: [\n",
			errContains: "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseLauncherConfig([]byte(tt.yamlContent))
			if tt.errContains != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errContains) {
					t.Fatalf("expected error containing %q, got %v", tt.errContains, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.validate(t, cfg)
		})
	}
}

func TestLoadLauncherConfig(t *testing.T) {
	cfg, err := LoadLauncherConfig("")
	if err != nil {
		t.Fatalf("LoadLauncherConfig(\"\") error: %v", err)
	}
	if cfg.EngineLibrary != EngineLibrary {
		t.Errorf("expected default engine library, got %q", cfg.EngineLibrary)
	}

	path := filepath.Join(t.TempDir(), "launcher.yaml")
	if err := os.WriteFile(path, []byte("policy: overwrite\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadLauncherConfig(path)
	if err != nil {
		t.Fatalf("LoadLauncherConfig() error: %v", err)
	}
	if cfg.Policy != PolicyOverwrite {
		t.Errorf("expected policy overwrite, got %q", cfg.Policy)
	}

	if _, err := LoadLauncherConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
