package deps

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/modfile"
)

// Summary describes the dependency manifests found in a project root.
// A nil field means the manifest is absent.
type Summary struct {
	Requirements []string // requirements.txt entries, comments dropped; nil when absent
	Pyproject    *Flags
	PackageJSON  *Flags
	GoModule     *GoModule
	Dockerfile   *Dockerfile
	Compose      *Compose
}

// Flags records whether runtime and development dependencies are declared.
type Flags struct {
	Runtime bool
	Dev     bool
}

// GoModule is the interesting part of a go.mod file.
type GoModule struct {
	Path     string
	Requires []string // "path version", direct requirements first
}

// Analyze inspects the well-known manifests directly under root.
func Analyze(root string) (*Summary, error) {
	s := &Summary{}

	if data, ok, err := readOptional(root, "requirements.txt"); err != nil {
		return nil, err
	} else if ok {
		s.Requirements = parseRequirements(data)
	}

	if data, ok, err := readOptional(root, "pyproject.toml"); err != nil {
		return nil, err
	} else if ok {
		s.Pyproject = parsePyproject(data)
	}

	if data, ok, err := readOptional(root, "package.json"); err != nil {
		return nil, err
	} else if ok {
		s.PackageJSON = parsePackageJSON(data)
	}

	if data, ok, err := readOptional(root, "go.mod"); err != nil {
		return nil, err
	} else if ok {
		mod, parseErr := parseGoMod(data)
		if parseErr != nil {
			return nil, parseErr
		}
		s.GoModule = mod
	}

	if data, ok, err := readOptional(root, "Dockerfile"); err != nil {
		return nil, err
	} else if ok {
		s.Dockerfile = parseDockerfile(data)
	}

	if data, ok, err := readOptional(root, "docker-compose.yml"); err != nil {
		return nil, err
	} else if ok {
		s.Compose = parseCompose(data)
	}

	return s, nil
}

func readOptional(root, name string) ([]byte, bool, error) {
	data, err := os.ReadFile(filepath.Join(root, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", name, err)
	}
	return data, true, nil
}

func parseRequirements(data []byte) []string {
	out := []string{}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// parsePyproject looks at PEP 621 and Poetry tables. Unparseable files fall
// back to a plain text search for the table names.
func parsePyproject(data []byte) *Flags {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		text := string(data)
		return &Flags{
			Runtime: strings.Contains(text, "dependencies"),
			Dev:     strings.Contains(text, "dev-dependencies"),
		}
	}

	f := &Flags{}
	project, _ := doc["project"].(map[string]any)
	if nonEmpty(project["dependencies"]) {
		f.Runtime = true
	}
	if nonEmpty(project["optional-dependencies"]) {
		f.Dev = true
	}

	tool, _ := doc["tool"].(map[string]any)
	poetry, _ := tool["poetry"].(map[string]any)
	if nonEmpty(poetry["dependencies"]) {
		f.Runtime = true
	}
	if nonEmpty(poetry["dev-dependencies"]) {
		f.Dev = true
	}
	groups, _ := poetry["group"].(map[string]any)
	for _, g := range groups {
		if gm, ok := g.(map[string]any); ok && nonEmpty(gm["dependencies"]) {
			f.Dev = true
		}
	}
	if nonEmpty(doc["dependency-groups"]) {
		f.Dev = true
	}
	return f
}

func nonEmpty(v any) bool {
	switch t := v.(type) {
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return false
	}
}

func parsePackageJSON(data []byte) *Flags {
	var pkg struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		text := string(data)
		return &Flags{
			Runtime: strings.Contains(text, `"dependencies"`),
			Dev:     strings.Contains(text, `"devDependencies"`),
		}
	}
	return &Flags{Runtime: len(pkg.Dependencies) > 0, Dev: len(pkg.DevDependencies) > 0}
}

func parseGoMod(data []byte) (*GoModule, error) {
	f, err := modfile.ParseLax("go.mod", data, nil)
	if err != nil {
		return nil, fmt.Errorf("parse go.mod: %w", err)
	}
	mod := &GoModule{}
	if f.Module != nil {
		mod.Path = f.Module.Mod.Path
	}
	var indirect []string
	for _, r := range f.Require {
		entry := r.Mod.Path + " " + r.Mod.Version
		if r.Indirect {
			indirect = append(indirect, entry+" // indirect")
			continue
		}
		mod.Requires = append(mod.Requires, entry)
	}
	mod.Requires = append(mod.Requires, indirect...)
	return mod, nil
}
