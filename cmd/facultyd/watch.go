package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"faculty-availability-backend/config"
	"faculty-availability-backend/internal/status"
	"faculty-availability-backend/internal/store"
	"faculty-availability-backend/internal/viewer"
)

func watchCommand() *cobra.Command {
	var (
		server     string
		facultyID  int64
		department string
		retry      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the live board of a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if server == "" {
				port := 5000
				if cfg := config.FromContext(cmd.Context()); cfg != nil {
					port = cfg.Server.Port
				}
				server = fmt.Sprintf("http://localhost:%d", port)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			opts := []viewer.Option{
				viewer.WithRetry(retry),
				viewer.OnChange(func(b *viewer.Board) { render(out, b, department) }),
			}
			if facultyID > 0 {
				opts = append(opts, viewer.WithFaculty(facultyID))
			}
			return viewer.NewWatcher(server, viewer.NewBoard(), opts...).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "server base URL (default http://localhost:<server.port>)")
	cmd.Flags().Int64Var(&facultyID, "faculty", 0, "follow a single faculty member")
	cmd.Flags().StringVar(&department, "department", "", "only show one department")
	cmd.Flags().DurationVar(&retry, "retry", 5*time.Second, "delay before reconnecting")
	return cmd
}

func render(w io.Writer, b *viewer.Board, department string) {
	fmt.Fprintf(w, "\n--- %s ---\n", time.Now().Format(time.TimeOnly))
	if err := b.Err(); err != nil {
		fmt.Fprintf(w, "! showing cached data: %v\n", err)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tNAME\tDEPARTMENT\tOFFICE\tSTATUS\tNOTE\tUPDATED")
	for _, p := range b.Filter(department) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			status.Code(p.StatusCode).Icon(), p.Name, p.Department, p.OfficeLocation,
			p.StatusMessage, note(p), p.LastUpdated.Local().Format(time.DateTime))
	}
	tw.Flush()
}

func note(p store.Projection) string {
	switch {
	case p.CustomMessage != "" && p.EstimatedDuration > 0:
		return fmt.Sprintf("%s (~%d min)", p.CustomMessage, p.EstimatedDuration)
	case p.EstimatedDuration > 0:
		return fmt.Sprintf("~%d min", p.EstimatedDuration)
	default:
		return p.CustomMessage
	}
}
