// Command scedit edits the sections of a novelibre project in the terminal.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"

	"github.com/kobzarvs/scedit/internal/app"
	"github.com/kobzarvs/scedit/internal/markup"
	"github.com/kobzarvs/scedit/internal/novx"
	"github.com/kobzarvs/scedit/internal/textops"
)

var CLI struct {
	Debug bool `name:"debug" help:"Write debug messages to the log."`

	Edit     EditCmd     `cmd:"" default:"withargs" help:"Open a section in the editor."`
	Sections SectionsCmd `cmd:"" help:"List the sections of a project."`
	Count    CountCmd    `cmd:"" help:"Count the words of a project or one section."`
	Check    CheckCmd    `cmd:"" help:"Report sections whose markup is not well-formed."`
	Restore  RestoreCmd  `cmd:"" help:"Print the project as it was before the last save."`
	Lock     LockCmd     `cmd:"" help:"Lock a project against editing."`
	Unlock   UnlockCmd   `cmd:"" help:"Remove a project lock."`
}

type EditCmd struct {
	Project string `arg:"" type:"path" help:"Project file (.novx); created if missing."`
	Section string `arg:"" optional:"" help:"Section ID, e.g. sc12. Defaults to the last edited section."`
}

func (c *EditCmd) Run(ctx *kong.Context) error {
	return app.New(app.Options{Project: c.Project, Section: c.Section, Debug: CLI.Debug}).Run()
}

type SectionsCmd struct {
	Project string `arg:"" type:"existingfile" help:"Project file (.novx)."`
}

func (c *SectionsCmd) Run(ctx *kong.Context) error {
	p, err := novx.Load(c.Project)
	if err != nil {
		return err
	}
	listSections(ctx.Stdout, p)
	return nil
}

type CountCmd struct {
	Project string `arg:"" type:"existingfile" help:"Project file (.novx)."`
	Section string `name:"section" short:"s" help:"Count only this section."`
}

func (c *CountCmd) Run(ctx *kong.Context) error {
	p, err := novx.Load(c.Project)
	if err != nil {
		return err
	}
	return countWords(ctx.Stdout, p, c.Section)
}

type CheckCmd struct {
	Project string `arg:"" type:"existingfile" help:"Project file (.novx)."`
}

func (c *CheckCmd) Run(ctx *kong.Context) error {
	p, err := novx.Load(c.Project)
	if err != nil {
		return err
	}
	if n := checkProject(ctx.Stdout, p); n > 0 {
		return fmt.Errorf("%d malformed sections", n)
	}
	return nil
}

type RestoreCmd struct {
	Project string `arg:"" type:"path" help:"Project file (.novx)."`
	Output  string `name:"output" short:"o" type:"path" help:"Write to this file instead of stdout."`
}

func (c *RestoreCmd) Run(ctx *kong.Context) error {
	data, err := novx.ReadBackup(c.Project)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no backup of %s", c.Project)
		}
		return err
	}
	if c.Output == "" {
		_, err = ctx.Stdout.Write(data)
		return err
	}
	return os.WriteFile(c.Output, data, 0o644)
}

type LockCmd struct {
	Project string `arg:"" type:"existingfile" help:"Project file (.novx)."`
}

func (c *LockCmd) Run(ctx *kong.Context) error {
	p, err := novx.Load(c.Project)
	if err != nil {
		return err
	}
	return p.Lock()
}

type UnlockCmd struct {
	Project string `arg:"" type:"existingfile" help:"Project file (.novx)."`
}

func (c *UnlockCmd) Run(ctx *kong.Context) error {
	p, err := novx.Load(c.Project)
	if err != nil {
		return err
	}
	return p.Unlock()
}

func listSections(w io.Writer, p *novx.Project) {
	for _, ch := range p.Chapters {
		fmt.Fprintf(w, "%s  %s\n", ch.ID, ch.Title)
		for _, id := range ch.Sections {
			sc, _ := p.Section(id)
			kind := "normal"
			if sc.Type > 0 {
				kind = "unused"
				if sc.Type > 1 {
					kind = "stage"
				}
			}
			fmt.Fprintf(w, "  %-6s %-7s %s\n", sc.ID, kind, sc.Title)
		}
	}
}

func countWords(w io.Writer, p *novx.Project, only string) error {
	ids := p.SectionIDs()
	if only != "" {
		if _, ok := p.Section(only); !ok {
			return fmt.Errorf("%w: %s", novx.ErrUnknownSection, only)
		}
		ids = []string{only}
	}
	total := 0
	for _, id := range ids {
		sc, _ := p.Section(id)
		if sc.Type > 1 {
			continue
		}
		text, err := markup.Decode(sc.Content)
		if err != nil {
			text = sc.Content
		}
		n := textops.CountWords(text)
		total += n
		fmt.Fprintf(w, "%-6s %6d  %s\n", id, n, sc.Title)
	}
	if only == "" {
		fmt.Fprintf(w, "%-6s %6d\n", "total", total)
	}
	return nil
}

// checkProject prints one line per malformed section and returns how many
// there are.
func checkProject(w io.Writer, p *novx.Project) int {
	bad := 0
	for _, id := range p.SectionIDs() {
		sc, _ := p.Section(id)
		text, err := markup.Decode(sc.Content)
		if err == nil {
			err = markup.CheckValidity(text)
		}
		if err != nil {
			bad++
			fmt.Fprintf(w, "%s: %v\n", id, err)
		}
	}
	return bad
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("scedit"),
		kong.Description("Section editor for novelibre projects"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
