package shared_test

import (
	"os"
	"path/filepath"
	"testing"

	"carpark_aggregator/internal/shared"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AGGREGATOR_CONFIG", "")
	cfg, err := shared.Load()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(cfg.Langs) != 3 || cfg.Langs[0] != "en_US" {
		t.Fatalf("unexpected langs: %v", cfg.Langs)
	}
	if cfg.OutputPath != "dist/carpark_data.json" {
		t.Fatalf("unexpected output path: %s", cfg.OutputPath)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	yml := "output_path: out/from-file.json\nlangs: [en_US, zh_TW]\nfeeds:\n  vacancy: http://example.test/vacancy.json\n"
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AGGREGATOR_CONFIG", path)
	t.Setenv("OUTPUT_PATH", "out/from-env.json")

	cfg, err := shared.Load()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if cfg.OutputPath != "out/from-env.json" {
		t.Fatalf("env should win over file, got %s", cfg.OutputPath)
	}
	if len(cfg.Langs) != 2 {
		t.Fatalf("expected langs from file, got %v", cfg.Langs)
	}
	if cfg.Feeds.Vacancy != "http://example.test/vacancy.json" {
		t.Fatalf("expected vacancy feed from file, got %s", cfg.Feeds.Vacancy)
	}
	// untouched keys keep their defaults
	if cfg.Feeds.BasicInfo != shared.Defaults().Feeds.BasicInfo {
		t.Fatalf("basic info default lost: %s", cfg.Feeds.BasicInfo)
	}
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]func(*shared.Config){
		"too many langs": func(c *shared.Config) { c.Langs = []string{"en_US", "zh_TW", "zh_CN", "ja_JP"} },
		"no langs":       func(c *shared.Config) { c.Langs = nil },
		"duplicate lang": func(c *shared.Config) { c.Langs = []string{"en_US", "en_US"} },
		"bad lang tag":   func(c *shared.Config) { c.Langs = []string{"not a tag!"} },
		"bad feed url":   func(c *shared.Config) { c.Feeds.BasicInfo = "::not-a-url" },
		"empty output":   func(c *shared.Config) { c.OutputPath = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := shared.Defaults()
			mutate(&c)
			if err := c.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestParseLang_Underscore(t *testing.T) {
	tag, err := shared.ParseLang("zh_TW")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if tag.String() != "zh-TW" {
		t.Fatalf("unexpected tag: %s", tag)
	}
}
