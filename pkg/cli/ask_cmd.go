package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"invoice-analytics/internal/domain"
	"invoice-analytics/internal/export"
	"invoice-analytics/internal/service/chat"
)

// silentError sets the exit code without printing anything more. The
// failure has already been shown.
type silentError struct{ code int }

func (e silentError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func newAskCmd(st *state) *cobra.Command {
	var (
		exportDest   string
		exportFormat string
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about the invoice data",
		Long: "Send a natural-language question to the analytics service and stream\n" +
			"its answer: narration, the generated SQL and the result rows.",
		Example: `  invoicectl ask "Which vendors did we pay most in 2025?"
  invoicectl ask "Spend per month" --export spend.parquet
  invoicectl ask "Open invoices" --export s3://reports/open.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return fmt.Errorf("question must not be empty")
			}

			var format export.Format
			if exportDest != "" {
				var err error
				if exportFormat != "" {
					format, err = export.ParseFormat(exportFormat)
				} else {
					format, err = export.FormatFromPath(exportDest)
				}
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
			opts := []chat.Option{chat.WithLogger(logger)}
			if st.output != "json" {
				opts = append(opts, chat.WithObserver(newLogPrinter(out).observe))
			}
			ctrl := chat.NewController(chat.NewHTTPTransport(st.analyticsURL), opts...)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			session, err := ctrl.Submit(ctx, question)
			if err != nil {
				return err
			}

			var result *export.Result
			if exportDest != "" && session.Status == domain.SessionDone {
				result, err = exportSession(ctx, logger, session, format, exportDest)
				if err != nil {
					return err
				}
			}

			if st.output == "json" {
				if err := printJSON(out, askOutput{Session: session, Export: result}); err != nil {
					return err
				}
			} else {
				printAskSummary(out, session, result)
			}
			if session.Status == domain.SessionFailed {
				return silentError{code: 1}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&exportDest, "export", "", "Write the result to a local path or s3://bucket/key")
	cmd.Flags().StringVar(&exportFormat, "format", "", "Export format: csv, parquet or json (default: from the file extension)")

	return cmd
}

type askOutput struct {
	Session domain.Session `json:"session"`
	Export  *export.Result `json:"export,omitempty"`
}

func printAskSummary(w io.Writer, s domain.Session, result *export.Result) {
	printSessionResult(w, s)
	if result != nil {
		_, _ = fmt.Fprintln(w, successStyle.Render(
			fmt.Sprintf("Exported %d rows to %s (%s, %d bytes)", result.Rows, result.Destination, result.Format, result.Bytes)))
	}
}

func exportSession(ctx context.Context, logger *slog.Logger, s domain.Session, format export.Format, dest string) (*export.Result, error) {
	if len(s.ResultColumns) == 0 {
		return nil, fmt.Errorf("nothing to export: the answer has no result rows")
	}
	opts := []export.Option{export.WithLogger(logger)}
	if settings, ok := s3SettingsFromEnv(); ok {
		opts = append(opts, export.WithUploader(export.NewS3Client(settings)))
	}
	return export.NewExporter(opts...).Export(ctx, s.ResultColumns, s.ResultRows, format, dest)
}

// s3SettingsFromEnv reads the same S3_* variables as the server.
func s3SettingsFromEnv() (export.S3Settings, bool) {
	s := export.S3Settings{
		KeyID:    os.Getenv("S3_KEY_ID"),
		Secret:   os.Getenv("S3_SECRET"),
		Endpoint: os.Getenv("S3_ENDPOINT"),
		Region:   os.Getenv("S3_REGION"),
	}
	if s.KeyID == "" || s.Secret == "" || s.Endpoint == "" || s.Region == "" {
		return export.S3Settings{}, false
	}
	return s, true
}
