package assembler

import (
	"fmt"
	"strings"

	"github.com/kodeflux/agentcore/skills"
)

// skillsCatalogSection renders every loaded skill as an XML summary so the
// model can decide which ones to read in full via its own tools, plus the
// instruction text explaining how to do so.
func (a *Assembler) skillsCatalogSection(loaded []skills.Skill) string {
	if len(loaded) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("# Skills Catalog\n\n<skills>\n")
	for _, s := range loaded {
		available := s.Available(a.opts.RequirementChecker)
		fmt.Fprintf(&b, "  <skill available=%q>\n", boolString(available))
		fmt.Fprintf(&b, "    <name>%s</name>\n", s.Name)
		fmt.Fprintf(&b, "    <description>%s</description>\n", s.Description)
		fmt.Fprintf(&b, "    <location>%s</location>\n", s.Location)
		if !available {
			missing := s.MissingRequirements(a.opts.RequirementChecker)
			fmt.Fprintf(&b, "    <requires>%s</requires>\n", strings.Join(missing, ", "))
		}
		b.WriteString("  </skill>\n")
	}
	b.WriteString("</skills>\n\n")
	b.WriteString("To use an available skill, read its SKILL.md file at the listed location before acting. " +
		"Skills marked unavailable are missing a requirement listed above and should not be used.")

	return b.String()
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
