// Package prompt loads system prompt templates from TOML files.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"
)

const fileExt = ".toml"

// Prompt represents the structure of a TOML prompt file
type Prompt struct {
	Description string  `toml:"description,omitempty"`
	System      string  `toml:"system"`
	Model       *string `toml:"model,omitempty"`
}

// Entry is a prompt template found on disk
type Entry struct {
	Name string // Relative to its prompt directory, without extension, slash separated
	Dir  string
}

// Path returns the file the entry was loaded from
func (e Entry) Path() string {
	return filepath.Join(e.Dir, filepath.FromSlash(e.Name)+fileExt)
}

// LoadPrompt loads a prompt file and returns its contents
func LoadPrompt(filePath string) (*Prompt, error) {
	var prompt Prompt
	if _, err := toml.DecodeFile(filePath, &prompt); err != nil {
		return nil, fmt.Errorf("error decoding prompt file: %w", err)
	}
	return &prompt, nil
}

// Find returns the path of the named prompt. When the name exists in more
// than one directory the last one in dirs wins.
func Find(name string, dirs []string) (string, error) {
	promptFile := name
	if !strings.HasSuffix(promptFile, fileExt) {
		promptFile += fileExt
	}

	var promptPath string
	for _, dir := range dirs {
		candidate := filepath.Join(dir, filepath.FromSlash(promptFile))
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			promptPath = candidate
		}
	}
	if promptPath == "" {
		return "", fmt.Errorf("prompt file '%s' not found in any of the prompt directories: %v", promptFile, dirs)
	}
	return promptPath, nil
}

// Resolve loads the named prompt and substitutes {{key}} placeholders in its
// system text with vars.
func Resolve(name string, dirs []string, vars map[string]string) (*Prompt, error) {
	path, err := Find(name, dirs)
	if err != nil {
		return nil, err
	}
	p, err := LoadPrompt(path)
	if err != nil {
		return nil, err
	}
	for key, value := range vars {
		p.System = strings.ReplaceAll(p.System, fmt.Sprintf("{{%s}}", key), value)
	}
	p.System = strings.TrimSpace(p.System)
	if p.Model != nil && strings.TrimSpace(*p.Model) == "" {
		p.Model = nil
	}
	return p, nil
}

// List returns every prompt template under dirs, sorted by name. A name found
// in several directories is reported once, with the directory Find would use.
func List(dirs []string) ([]Entry, error) {
	found := make(map[string]string)

	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			log.WithField("dir", dir).Debug("prompt directory does not exist")
			continue
		}

		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() || !strings.HasSuffix(info.Name(), fileExt) {
				return nil
			}

			relPath, err := filepath.Rel(dir, path)
			if err != nil {
				return nil
			}
			name := filepath.ToSlash(strings.TrimSuffix(relPath, fileExt))
			if existing, ok := found[name]; ok {
				log.WithFields(log.Fields{"prompt": name, "shadowed": existing, "dir": dir}).Debug("prompt found in multiple directories")
			}
			found[name] = dir
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("error walking prompt directory %s: %w", dir, err)
		}
	}

	entries := make([]Entry, 0, len(found))
	for name, dir := range found {
		entries = append(entries, Entry{Name: name, Dir: dir})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// ParseArgs parses key:value arguments into template variables
func ParseArgs(args []string) (map[string]string, error) {
	result := make(map[string]string)
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if strings.HasPrefix(arg, `"`) && strings.HasSuffix(arg, `"`) {
			arg = strings.Trim(arg, `"`)
		}

		parts := strings.SplitN(arg, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid argument format: %s. Expected format: key:value", arg)
		}

		key := strings.TrimSpace(parts[0])
		if key == "" {
			return nil, fmt.Errorf("invalid argument format: %s. Key cannot be empty", arg)
		}
		value := strings.TrimSpace(parts[1])
		value = strings.ReplaceAll(value, `\:`, ":")
		value = strings.ReplaceAll(value, `\"`, `"`)
		result[key] = value
	}
	return result, nil
}
