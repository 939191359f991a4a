package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mlahaye/parley/internal/app"
	"github.com/mlahaye/parley/internal/config"
	"github.com/mlahaye/parley/internal/db"
	"github.com/mlahaye/parley/internal/export"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "parley",
		Short:         "Live meeting transcription, translation, and notes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.parley/config.yaml)")

	root.AddCommand(runCmd(&cfgPath))
	root.AddCommand(exportCmd(&cfgPath))
	root.AddCommand(versionCmd())
	return root
}

func runCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the TUI (requires a running parley daemon)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			p := tea.NewProgram(app.New(cfg), tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}
}

func exportCmd(cfgPath *string) *cobra.Command {
	var (
		meetingID int64
		format    string
		memo      bool
		outPath   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a recorded meeting's transcript or memo",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			dbPath := cfg.DBPath
			if dbPath == "" {
				dbPath = db.DefaultPath()
			}

			store, err := db.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			meeting, err := store.GetMeeting(meetingID)
			if err != nil {
				return err
			}

			var out string
			if memo {
				notes, err := store.MeetingNotes(meetingID, "")
				if err != nil {
					return err
				}
				out = export.Memo(meeting, notes)
			} else {
				f, err := export.ParseFormat(format)
				if err != nil {
					return err
				}
				segs, err := store.MeetingSegments(meetingID)
				if err != nil {
					return err
				}
				trs, err := store.MeetingTranslations(meetingID)
				if err != nil {
					return err
				}
				out, err = export.Transcript(meeting, segs, trs, f)
				if err != nil {
					return err
				}
			}

			if outPath == "" {
				fmt.Fprint(cmd.OutOrStdout(), out)
				return nil
			}
			return os.WriteFile(outPath, []byte(out), 0o644)
		},
	}

	cmd.Flags().Int64Var(&meetingID, "meeting", 0, "meeting id to export")
	cmd.Flags().StringVar(&format, "format", "txt", "transcript format: txt, md, json")
	cmd.Flags().BoolVar(&memo, "memo", false, "export the notes memo instead of the transcript")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write to file instead of stdout")
	cmd.MarkFlagRequired("meeting")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "parley", version)
		},
	}
}
