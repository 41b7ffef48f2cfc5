package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xhad/sowgen/pkg/prompt"
	"github.com/xhad/sowgen/pkg/session"
	"github.com/xhad/sowgen/pkg/sow"
	"github.com/xhad/sowgen/server"
)

func newGenerateCmd() *cobra.Command {
	var (
		file, description, role string
		keyword, url, custom    string
		output                  string
		raw                     bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a Scope of Work in one shot",
		Example: `  sowgen generate --file brief.docx --description "Provide drone inspection services" --role vendor
  sowgen generate --file rfp.pdf --description "Managed IT support" --keyword "managed services" -o sow.md`,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := prompt.ParseRole(role)
			if err != nil {
				return err
			}
			req := sow.Request{
				Description:  description,
				Role:         r,
				Keyword:      keyword,
				URL:          url,
				CustomClause: custom,
			}
			if file != "" {
				if req.Upload, err = readUpload(file); err != nil {
					return err
				}
			}
			// fail before wiring anything that talks to the network
			if err := req.Validate(); err != nil {
				return err
			}

			tracker := &fetchTracker{}
			a, err := newApp(cmd.Context(), cfg, logger, tracker.onFetch)
			if err != nil {
				return err
			}
			defer a.Close()

			tracker.start("🔍 Gathering examples...")
			draft, err := a.generator.Gather(cmd.Context(), req)
			tracker.stop()
			if err != nil {
				return err
			}
			printWarnings(draft.Warnings())

			spinner := getSpinner("🤖 Generating scope of work...")
			result, err := a.generator.Compose(cmd.Context(), session.New(), draft)
			_ = spinner.Finish()
			if err != nil {
				return err
			}

			if output != "" {
				if err := os.WriteFile(output, []byte(result.Document), 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", output, err)
				}
				color.Green("✓ Scope of work written to %s", output)
				return nil
			}
			if raw {
				fmt.Println(result.Document)
				return nil
			}
			fmt.Print(render(result.Document))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Base document (pdf, docx, xlsx, xls, pptx)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "What the engagement is about")
	cmd.Flags().StringVarP(&role, "role", "r", "client", "Company's role: vendor or client")
	cmd.Flags().StringVarP(&keyword, "keyword", "k", "", "Keyword for the SEC filing search")
	cmd.Flags().StringVarP(&url, "url", "u", "", "Extra page to pull example paragraphs from")
	cmd.Flags().StringVar(&custom, "custom", "", "Custom clause to include as an example")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the document to a file instead of stdout")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print markdown without terminal rendering")

	return cmd
}

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the generator over a websocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = cfg.Server.Addr
			}

			a, err := newApp(cmd.Context(), cfg, logger, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := server.NewWSServer(server.Config{
				Addr:   addr,
				Logger: logger.Named("server"),
			}, a.generator)

			color.Cyan("Listening on %s (ws endpoint /ws)", addr)
			if err := srv.ListenAndServe(cmd.Context()); err != nil {
				logger.Error("server stopped", zap.Error(err))
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to server.addr from config)")
	return cmd
}
