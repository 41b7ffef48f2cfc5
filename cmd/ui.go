package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/xhad/sowgen/internal/models"
	"github.com/xhad/sowgen/pkg/sow"
)

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
}

// fetchTracker advances the active spinner each time a page is fetched.
type fetchTracker struct {
	bar *progressbar.ProgressBar
}

func (f *fetchTracker) onFetch(url string) {
	if f.bar != nil {
		f.bar.Describe(color.CyanString("🔍 Fetching %s", url))
		_ = f.bar.Add(1)
	}
}

func (f *fetchTracker) start(description string) {
	f.bar = getSpinner(description)
}

func (f *fetchTracker) stop() {
	if f.bar != nil {
		_ = f.bar.Finish()
		f.bar = nil
	}
}

func readUpload(path string) (*models.Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return &models.Upload{Name: filepath.Base(path), Data: data}, nil
}

// render formats markdown for the terminal, falling back to the raw text.
func render(markdown string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return markdown
	}
	out, err := renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return out
}

func printWarnings(warnings []string) {
	for _, w := range warnings {
		color.Yellow("⚠ %s", w)
	}
}

func printExamples(draft *sow.Draft) {
	if len(draft.Examples) == 0 {
		color.Yellow("No examples found.")
		return
	}
	for i, ex := range draft.Examples {
		mark := color.GreenString("[x]")
		if !ex.Include {
			mark = color.RedString("[ ]")
		}
		fmt.Printf("%s %2d %s %s\n", mark, i+1, color.BlueString("(%s)", ex.Origin), preview(ex.Text, 100))
	}
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
