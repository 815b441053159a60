// Package skills loads SKILL.md files (YAML front matter plus a Markdown
// body) from a workspace skills/ directory and answers the
// always+requirements availability check the context assembler needs to
// build the active-skills section and the skills catalog.
package skills

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// frontMatter is the YAML header of a SKILL.md file.
type frontMatter struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Always      bool     `yaml:"always"`
	Requires    []string `yaml:"requires"`
}

// Skill is one loaded skill: its declared metadata plus the full file
// contents (front matter and body both) needed to splice it into the
// system prompt verbatim.
type Skill struct {
	Name        string
	Description string
	Always      bool
	Requires    []string
	Location    string
	Body        string
	FullContent string
}

// RequirementChecker reports whether a single requirement string is
// satisfied. The default checker understands "env:VAR" and "bin:name"; a
// custom checker can be supplied where the tool's own connectivity/SDK
// checks apply.
type RequirementChecker func(requirement string) bool

// DefaultRequirementChecker resolves "env:VAR_NAME" by checking the
// environment and "bin:name" by searching PATH. Any other shape is treated
// as satisfied, since the spec leaves the requirement vocabulary open.
func DefaultRequirementChecker(requirement string) bool {
	switch {
	case strings.HasPrefix(requirement, "env:"):
		return os.Getenv(strings.TrimPrefix(requirement, "env:")) != ""
	case strings.HasPrefix(requirement, "bin:"):
		_, err := exec.LookPath(strings.TrimPrefix(requirement, "bin:"))
		return err == nil
	default:
		return true
	}
}

// Available reports whether every declared requirement is satisfied.
func (s Skill) Available(check RequirementChecker) bool {
	if check == nil {
		check = DefaultRequirementChecker
	}
	for _, req := range s.Requires {
		if !check(req) {
			return false
		}
	}
	return true
}

// MissingRequirements returns the subset of Requires that check rejects.
func (s Skill) MissingRequirements(check RequirementChecker) []string {
	if check == nil {
		check = DefaultRequirementChecker
	}
	var missing []string
	for _, req := range s.Requires {
		if !check(req) {
			missing = append(missing, req)
		}
	}
	return missing
}

// Load scans dir for "<skill-name>/SKILL.md" files and parses each one.
// A single malformed skill is skipped with an error appended to the
// returned slice's companion error, rather than aborting the whole load.
func Load(dir string) ([]Skill, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("skills: read dir: %w", err)
	}

	var skills []Skill
	var errs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name(), "SKILL.md")
		if _, err := os.Stat(path); err != nil {
			continue
		}
		skill, err := ParseFile(path)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		skills = append(skills, skill)
	}

	if len(errs) > 0 {
		return skills, fmt.Errorf("skills: %s", strings.Join(errs, "; "))
	}
	return skills, nil
}

// ParseFile parses a single SKILL.md file's YAML front matter and body.
func ParseFile(path string) (Skill, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Skill{}, err
	}

	yamlHeader, body, err := splitFrontMatter(string(data))
	if err != nil {
		return Skill{}, err
	}

	var header frontMatter
	if err := yaml.Unmarshal([]byte(yamlHeader), &header); err != nil {
		return Skill{}, fmt.Errorf("parse front matter: %w", err)
	}
	if header.Name == "" {
		return Skill{}, fmt.Errorf("missing required 'name' field")
	}

	return Skill{
		Name:        header.Name,
		Description: header.Description,
		Always:      header.Always,
		Requires:    header.Requires,
		Location:    path,
		Body:        body,
		FullContent: string(data),
	}, nil
}

// splitFrontMatter separates the leading "---\n...\n---\n" YAML block from
// the remaining Markdown body.
func splitFrontMatter(content string) (yamlHeader, body string, err error) {
	const delim = "---"
	if !strings.HasPrefix(content, delim) {
		return "", "", fmt.Errorf("missing YAML front matter")
	}
	rest := content[len(delim):]
	idx := strings.Index(rest, "\n"+delim)
	if idx == -1 {
		return "", "", fmt.Errorf("unterminated YAML front matter")
	}
	fm := strings.TrimPrefix(rest[:idx], "\n")
	remainder := rest[idx+len(delim)+1:]
	return fm, strings.TrimLeft(remainder, "\n"), nil
}
