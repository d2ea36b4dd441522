// Package config loads env-tagged structs from the process environment and
// optional dotenv files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Load fills cfg, a pointer to a struct with `env` and `envDefault` tags,
// from the process environment.
func Load(cfg any) error {
	return parse(cfg, nil)
}

// LoadWithFiles is Load with dotenv files layered underneath the process
// environment. Missing files are skipped. When several files set the same
// key the first one wins. The process environment is left untouched.
func LoadWithFiles(cfg any, files ...string) error {
	vars := make(map[string]string)
	for _, f := range files {
		values, err := godotenv.Read(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load env file %s: %w", f, err)
		}
		for k, v := range values {
			if _, seen := vars[k]; !seen {
				vars[k] = v
			}
		}
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	return parse(cfg, vars)
}

func parse(cfg any, vars map[string]string) error {
	opts := env.Options{}
	if vars != nil {
		opts.Environment = vars
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
