package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/xhad/sowgen/pkg/prompt"
	"github.com/xhad/sowgen/pkg/session"
	"github.com/xhad/sowgen/pkg/sow"
)

const shellHelp = `Commands:
  load <path>          set the base document
  describe <text>      set the description
  role <vendor|client> set Company's role
  keyword <text>       set the SEC filing search keyword
  url <address>        set an extra page to pull examples from
  custom <text>        set a custom clause
  gather               fetch examples and list them
  toggle <n>           include or exclude example n
  generate             generate the scope of work
  refine <feedback>    revise the current document
  show                 print the current document
  reset                clear the document and inputs
  help                 show this help
  exit                 quit`

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session: gather examples, generate, then refine",
		RunE: func(cmd *cobra.Command, args []string) error {
			tracker := &fetchTracker{}
			a, err := newApp(cmd.Context(), cfg, logger, tracker.onFetch)
			if err != nil {
				return err
			}
			defer a.Close()

			sh := &shell{
				generator: a.generator,
				sess:      session.New(),
				tracker:   tracker,
				out:       os.Stdout,
				req:       sow.Request{Role: prompt.RoleClient},
			}
			return sh.run(cmd.Context(), os.Stdin)
		},
	}
}

type shell struct {
	generator *sow.Generator
	sess      *session.Session
	tracker   *fetchTracker
	out       io.Writer

	req   sow.Request
	draft *sow.Draft
}

func (sh *shell) run(ctx context.Context, in io.Reader) error {
	color.Cyan("Scope of Work shell (type 'help' for commands, 'exit' to quit)")

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	userPrompt := color.New(color.FgGreen).PrintfFunc()

	for {
		userPrompt("\nsow> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		name, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)

		if name == "exit" || name == "quit" {
			break
		}
		if err := sh.dispatch(ctx, strings.ToLower(name), arg); err != nil {
			color.Red("Error: %v", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return scanner.Err()
}

func (sh *shell) dispatch(ctx context.Context, name, arg string) error {
	switch name {
	case "help":
		fmt.Fprintln(sh.out, shellHelp)
	case "load":
		upload, err := readUpload(arg)
		if err != nil {
			return err
		}
		sh.req.Upload = upload
		sh.draft = nil
		color.Green("✓ Loaded %s (%d bytes)", upload.Name, len(upload.Data))
	case "describe":
		sh.req.Description = arg
		sh.draft = nil
	case "role":
		role, err := prompt.ParseRole(arg)
		if err != nil {
			return err
		}
		sh.req.Role = role
		// the stance only affects the prompt, gathered examples stay valid
		if sh.draft != nil {
			sh.draft.Request.Role = role
		}
		color.Green("✓ %s (%s)", role, prompt.StanceFor(role))
	case "keyword":
		sh.req.Keyword = arg
		sh.draft = nil
	case "url":
		sh.req.URL = arg
		sh.draft = nil
	case "custom":
		sh.req.CustomClause = arg
		sh.draft = nil
	case "gather":
		return sh.gather(ctx)
	case "toggle":
		return sh.toggle(arg)
	case "generate":
		return sh.generate(ctx)
	case "refine":
		return sh.refine(ctx, arg)
	case "show":
		if !sh.sess.HasDocument() {
			return sow.ErrNoDocument
		}
		fmt.Fprint(sh.out, render(sh.sess.Document()))
	case "reset":
		sh.sess.Clear()
		sh.req = sow.Request{Role: prompt.RoleClient}
		sh.draft = nil
		color.Green("✓ Session reset")
	default:
		return fmt.Errorf("unknown command %q (type 'help')", name)
	}
	return nil
}

func (sh *shell) gather(ctx context.Context) error {
	sh.tracker.start("🔍 Gathering examples...")
	draft, err := sh.generator.Gather(ctx, sh.req)
	sh.tracker.stop()
	if err != nil {
		return err
	}

	sh.draft = draft
	printWarnings(draft.Warnings())
	printExamples(draft)
	return nil
}

func (sh *shell) toggle(arg string) error {
	if sh.draft == nil {
		return errors.New("nothing gathered yet (run 'gather')")
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(sh.draft.Examples) {
		return fmt.Errorf("example number must be between 1 and %d", len(sh.draft.Examples))
	}
	sh.draft.SetIncluded(n-1, !sh.draft.Examples[n-1].Include)
	printExamples(sh.draft)
	return nil
}

func (sh *shell) generate(ctx context.Context) error {
	if sh.draft == nil {
		if err := sh.gather(ctx); err != nil {
			return err
		}
	}

	spinner := getSpinner("🤖 Generating scope of work...")
	result, err := sh.generator.Compose(ctx, sh.sess, sh.draft)
	_ = spinner.Finish()
	if err != nil {
		return err
	}

	printWarnings(result.Warnings)
	fmt.Fprint(sh.out, render(result.Document))
	return nil
}

func (sh *shell) refine(ctx context.Context, feedback string) error {
	spinner := getSpinner("✏️  Refining...")
	refined, err := sh.generator.Refine(ctx, sh.sess, feedback)
	_ = spinner.Finish()
	if err != nil {
		return err
	}

	fmt.Fprint(sh.out, render(refined))
	return nil
}
