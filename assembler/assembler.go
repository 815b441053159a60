// Package assembler builds the ordered message list fed to the LLM: the
// system prompt (identity, bootstrap files, memory, skills), the turn
// history, and the current user turn with media and runtime context
// spliced in.
package assembler

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/kodeflux/agentcore/logging"
	"github.com/kodeflux/agentcore/memory"
	"github.com/kodeflux/agentcore/message"
	"github.com/kodeflux/agentcore/skills"
)

// sectionSeparator joins non-empty system prompt sections.
const sectionSeparator = "\n\n---\n\n"

// bootstrapFiles is the fixed list of optional workspace-root files spliced
// into the system prompt when present.
var bootstrapFiles = []string{"AGENTS.md", "SOUL.md", "USER.md", "TOOLS.md", "IDENTITY.md"}

// Options configures an Assembler.
type Options struct {
	AgentName          string
	Workspace          string
	SkillsDir          string
	RequirementChecker skills.RequirementChecker
	Now                func() time.Time
	Logger             logging.Logger
}

// Assembler builds prompts and message lists for one workspace.
type Assembler struct {
	opts        Options
	memoryStore *memory.Store
}

// New creates an Assembler rooted at opts.Workspace, backed by memoryStore
// for the "Memory" system-prompt section.
func New(memoryStore *memory.Store, optFns ...func(*Options)) (*Assembler, error) {
	opts := Options{
		AgentName: "Agent",
		Workspace: ".",
		Now:       time.Now,
		Logger:    logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.SkillsDir == "" {
		opts.SkillsDir = filepath.Join(opts.Workspace, "skills")
	}
	if opts.RequirementChecker == nil {
		opts.RequirementChecker = skills.DefaultRequirementChecker
	}

	absWorkspace, err := filepath.Abs(opts.Workspace)
	if err != nil {
		return nil, fmt.Errorf("assembler: resolve workspace: %w", err)
	}
	opts.Workspace = absWorkspace

	return &Assembler{opts: opts, memoryStore: memoryStore}, nil
}

// BuildMessages returns the ordered list for the LLM: the system message,
// then history verbatim, then one user message carrying the current turn
// plus runtime context.
func (a *Assembler) BuildMessages(history []message.ChatMessage, currentMessage string, media []string, channel, chatID string) ([]message.ChatMessage, error) {
	systemPrompt, err := a.BuildSystemPrompt()
	if err != nil {
		return nil, err
	}

	out := make([]message.ChatMessage, 0, len(history)+2)
	out = append(out, message.NewSystem(systemPrompt))
	out = append(out, history...)

	userContent := a.BuildUserContent(currentMessage, media)
	userContent = a.injectRuntimeContext(userContent, channel, chatID)
	out = append(out, message.ChatMessage{Role: message.RoleUser, Content: userContent})

	return out, nil
}

// BuildSystemPrompt joins the Identity, Bootstrap files, Memory, Active
// skills and Skills catalog sections, each included only if non-empty.
func (a *Assembler) BuildSystemPrompt() (string, error) {
	var sections []string

	sections = appendIfNonEmpty(sections, a.identitySection())

	bootstrap, err := a.bootstrapSection()
	if err != nil {
		return "", err
	}
	sections = appendIfNonEmpty(sections, bootstrap)

	memSection, err := a.memorySection()
	if err != nil {
		return "", err
	}
	sections = appendIfNonEmpty(sections, memSection)

	loaded, err := skills.Load(a.opts.SkillsDir)
	if err != nil {
		a.opts.Logger.Warn("assembler: skills load had errors", "error", err)
	}

	sections = appendIfNonEmpty(sections, a.activeSkillsSection(loaded))
	sections = appendIfNonEmpty(sections, a.skillsCatalogSection(loaded))

	return strings.Join(sections, sectionSeparator), nil
}

func appendIfNonEmpty(sections []string, s string) []string {
	if strings.TrimSpace(s) == "" {
		return sections
	}
	return append(sections, s)
}

func (a *Assembler) identitySection() string {
	return fmt.Sprintf(
		"You are %s, an autonomous agent running on %s/%s (%s).\n"+
			"Your workspace is %s.\n"+
			"Long-term memory lives at memory/MEMORY.md; a searchable history log lives at memory/HISTORY.md.\n\n"+
			"Tool usage: read before you write. Verify a file or resource exists before acting on it. "+
			"Re-read after edits when accuracy matters. Do not predict what a tool will return; call it and "+
			"read the actual result. On failure, diagnose before retrying.",
		a.opts.AgentName, runtime.GOOS, runtime.GOARCH, runtime.Version(), a.opts.Workspace,
	)
}

func (a *Assembler) bootstrapSection() (string, error) {
	var parts []string
	for _, name := range bootstrapFiles {
		data, err := os.ReadFile(filepath.Join(a.opts.Workspace, name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("assembler: read %s: %w", name, err)
		}
		parts = append(parts, fmt.Sprintf("## %s\n\n%s", name, string(data)))
	}
	return strings.Join(parts, "\n\n"), nil
}

func (a *Assembler) memorySection() (string, error) {
	if a.memoryStore == nil {
		return "", nil
	}
	ctx, err := a.memoryStore.GetMemoryContext()
	if err != nil {
		return "", fmt.Errorf("assembler: memory context: %w", err)
	}
	if ctx == "" {
		return "", nil
	}
	return "# Memory\n\n" + ctx, nil
}

func (a *Assembler) activeSkillsSection(loaded []skills.Skill) string {
	var parts []string
	for _, s := range loaded {
		if !s.Always {
			continue
		}
		if !s.Available(a.opts.RequirementChecker) {
			continue
		}
		parts = append(parts, s.FullContent)
	}
	if len(parts) == 0 {
		return ""
	}
	return "# Active Skills\n\n" + strings.Join(parts, "\n\n")
}

// injectRuntimeContext appends the "[Runtime Context]" block to the user
// content: concatenated with a blank-line separator for plain strings, or as
// a trailing text part for a mixed sequence.
func (a *Assembler) injectRuntimeContext(content any, channel, chatID string) any {
	now := a.opts.Now()
	block := fmt.Sprintf(
		"[Runtime Context]\nCurrent Time: %s (%s) (%s)\nChannel: %s\nChat ID: %s",
		now.Format("2006-01-02 15:04"), now.Weekday().String(), now.Location().String(), channel, chatID,
	)

	switch v := content.(type) {
	case string:
		if v == "" {
			return block
		}
		return v + "\n\n" + block
	case []message.ContentPart:
		return append(v, message.TextContentPart(block))
	default:
		return block
	}
}
