package history

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"
)

// reportMeta is the YAML frontmatter of a run report.
type reportMeta struct {
	Time           time.Time `yaml:"time"`
	Input          string    `yaml:"input"`
	CurrentVersion string    `yaml:"current_version"`
	NewVersion     string    `yaml:"new_version,omitempty"`
	Tag            string    `yaml:"tag,omitempty"`
	Publish        bool      `yaml:"publish"`
	DistTag        string    `yaml:"dist_tag,omitempty"`
	Passed         bool      `yaml:"passed"`
	FailedStep     string    `yaml:"failed_step,omitempty"`
	Error          string    `yaml:"error,omitempty"`
	// Steps holds "<status> <title>" pairs in execution order.
	Steps []string `yaml:"steps,omitempty"`
}

func metaFromRun(run Run) reportMeta {
	m := reportMeta{
		Time:           run.Time,
		Input:          run.Input,
		CurrentVersion: run.CurrentVersion,
		NewVersion:     run.NewVersion,
		Tag:            run.Tag,
		Publish:        run.Publish,
		DistTag:        run.DistTag,
		Passed:         run.Passed,
		FailedStep:     run.FailedStep,
		Error:          run.Error,
	}
	for _, st := range run.Steps {
		m.Steps = append(m.Steps, st.Status+" "+st.Title)
	}
	return m
}

func (m reportMeta) run(id string) Run {
	run := Run{
		ID:             id,
		Time:           m.Time,
		Input:          m.Input,
		CurrentVersion: m.CurrentVersion,
		NewVersion:     m.NewVersion,
		Tag:            m.Tag,
		Publish:        m.Publish,
		DistTag:        m.DistTag,
		Passed:         m.Passed,
		FailedStep:     m.FailedStep,
		Error:          m.Error,
	}
	for _, s := range m.Steps {
		status, title, _ := strings.Cut(s, " ")
		run.Steps = append(run.Steps, StepRecord{Title: title, Status: status})
	}
	return run
}

// readReport parses a report file. A file without frontmatter yields a
// zero reportMeta and its whole content as body.
func readReport(path string) (reportMeta, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return reportMeta{}, "", fmt.Errorf("reading report %s: %w", path, err)
	}

	var meta reportMeta
	body, err := frontmatter.Parse(bytes.NewReader(data), &meta)
	if err != nil {
		slog.Debug("unreadable report frontmatter", "path", path, "error", err)
		return reportMeta{}, string(data), nil
	}
	return meta, string(body), nil
}

// writeReport writes meta as YAML frontmatter followed by body. The file is
// written to a temp path and renamed so readers never see a partial report.
func writeReport(path string, meta reportMeta, body string) error {
	fm, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshaling report frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(fm)
	buf.WriteString("---\n\n")
	buf.WriteString(body)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

func renderBody(run Run) string {
	var b strings.Builder

	target := run.NewVersion
	if target == "" {
		target = run.Input
	}
	fmt.Fprintf(&b, "# Prerequisite check: %s → %s\n\n", run.CurrentVersion, target)

	if len(run.Steps) > 0 {
		b.WriteString("| Step | Status | Duration |\n")
		b.WriteString("|------|--------|----------|\n")
		for _, st := range run.Steps {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", st.Title, st.Status, st.Duration.Round(time.Millisecond))
		}
		b.WriteString("\n")
	}

	if run.Error != "" {
		b.WriteString("## Error\n\n```\n")
		b.WriteString(run.Error)
		b.WriteString("\n```\n")
	}
	return b.String()
}
