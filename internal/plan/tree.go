package plan

import (
	"fmt"
	"strings"
)

// Tree renders the plan as an indented tree showing each step's kind and ordering
func Tree(p *Plan) string {
	var sb strings.Builder

	sb.WriteString(p.Name)
	if p.Description != "" {
		sb.WriteString(" - " + p.Description)
	}
	sb.WriteString("\n")

	writeTree(&sb, p.Steps, "")
	return sb.String()
}

func writeTree(sb *strings.Builder, steps []*Step, prefix string) {
	for i, s := range steps {
		last := i == len(steps)-1

		branch, indent := "├── ", "│   "
		if last {
			branch, indent = "└── ", "    "
		}

		sb.WriteString(prefix + branch + describeStep(s) + "\n")
		writeTree(sb, s.Children(), prefix+indent)
	}
}

func describeStep(s *Step) string {
	var sb strings.Builder
	sb.WriteString(s.Name)

	kind := s.Kind()
	sb.WriteString(fmt.Sprintf(" [%s]", kind))

	switch kind {
	case KindRun:
		sb.WriteString(" " + firstLine(s.Run))
	case KindSleep:
		sb.WriteString(" " + s.Sleep.String())
	case KindGroup, KindSequence:
		sb.WriteString(fmt.Sprintf(" %d step(s)", len(s.Children())))
	}

	if len(s.After) > 0 {
		sb.WriteString(" after: " + strings.Join(s.After, ", "))
	}
	if s.AllowFailure {
		sb.WriteString(" (allow_failure)")
	}
	return sb.String()
}

func firstLine(cmd string) string {
	cmd = strings.TrimSpace(cmd)
	if i := strings.IndexByte(cmd, '\n'); i >= 0 {
		return cmd[:i] + " ..."
	}
	return cmd
}
