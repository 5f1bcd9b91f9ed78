package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/crew/internal/config"
	"github.com/nextlevelbuilder/crew/internal/store"
)

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List saved REPL sessions",
		Run: func(cmd *cobra.Command, args []string) {
			withSessions(func(s *store.SessionStore) error {
				infos, err := s.List()
				if err != nil {
					return err
				}
				if len(infos) == 0 {
					fmt.Println("No sessions.")
					return nil
				}
				for _, info := range infos {
					fmt.Printf("%-20s %4d messages  %s\n", info.Name, info.Messages, info.UpdatedAt.Format("2006-01-02 15:04"))
				}
				return nil
			})
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved session",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			withSessions(func(s *store.SessionStore) error {
				if err := s.Delete(args[0]); err != nil {
					return err
				}
				fmt.Printf("Deleted session %q\n", args[0])
				return nil
			})
		},
	})
	return cmd
}

func withSessions(fn func(*store.SessionStore) error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	s, err := store.Open(filepath.Join(cfg.Workspace, ".crew", "sessions.db"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()
	if err := fn(s); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
