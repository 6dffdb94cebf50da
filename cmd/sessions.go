package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"carechat/chat"
	"carechat/export"
)

var (
	exportFormat string
	exportDir    string
	exportStdout bool
)

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"session"},
	Short:   "Manage saved chat sessions",
	Long: `List, search, rename, delete and export the chat sessions stored on
this device. Session IDs may be abbreviated to any unique prefix.`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer a.Close()

		printSessions(cmd.OutOrStdout(), a.store.Sessions(), a.store.CurrentSessionID())
		return nil
	},
}

var sessionsSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Fuzzy search session titles",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer a.Close()

		matches := a.store.SearchSessions(strings.Join(args, " "))
		if len(matches) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No matching sessions")
			return nil
		}
		printSessions(cmd.OutOrStdout(), matches, a.store.CurrentSessionID())
		return nil
	},
}

var sessionsRenameCmd = &cobra.Command{
	Use:   "rename <session-id> <title>",
	Short: "Rename a session",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer a.Close()

		sess, err := resolveSession(a.store, args[0])
		if err != nil {
			return err
		}
		a.store.RenameSession(sess.ID, strings.Join(args[1:], " "))
		fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s\n", shortID(sess.ID))
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:     "delete <session-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a session",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer a.Close()

		sess, err := resolveSession(a.store, args[0])
		if err != nil {
			return err
		}
		a.store.DeleteSession(sess.ID)
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (%s)\n", shortID(sess.ID), sess.Title)
		return nil
	},
}

var sessionsExportCmd = &cobra.Command{
	Use:   "export [session-id]",
	Short: "Export a session to json, yaml or markdown",
	Long: `Export a session to a file. Without an ID the current session is
exported. Files are written to ~/Downloads unless --output is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(exportFormat)
		if err != nil {
			return err
		}

		a, err := openApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer a.Close()

		sess := a.store.CurrentSession()
		if len(args) == 1 {
			if sess, err = resolveSession(a.store, args[0]); err != nil {
				return err
			}
		}

		if exportStdout {
			return exporter.Export(&sess, cmd.OutOrStdout())
		}

		dir := exportDir
		if dir == "" {
			dir = export.DefaultExportDir()
		}
		path, err := export.WriteFile(exporter, &sess, dir)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %q to %s\n", sess.Title, path)
		return nil
	},
}

// resolveSession finds a session by full ID or unique ID prefix.
func resolveSession(store *chat.Store, id string) (chat.Session, error) {
	var matches []chat.Session
	for _, s := range store.Sessions() {
		if s.ID == id {
			return s, nil
		}
		if strings.HasPrefix(s.ID, id) {
			matches = append(matches, s)
		}
	}
	switch len(matches) {
	case 0:
		return chat.Session{}, fmt.Errorf("session not found: %s", id)
	case 1:
		return matches[0], nil
	default:
		return chat.Session{}, fmt.Errorf("session ID %q is ambiguous (%d matches)", id, len(matches))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printSessions(out io.Writer, sessions []chat.Session, currentID string) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, headerStyle.Render("ID")+"\t"+headerStyle.Render("TITLE")+"\t"+
		headerStyle.Render("MESSAGES")+"\t"+headerStyle.Render("MODEL")+"\t"+headerStyle.Render("UPDATED"))

	for _, s := range sessions {
		marker := "  "
		if s.ID == currentID {
			marker = "* "
		}
		fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\t%s\n",
			marker,
			idStyle.Render(shortID(s.ID)),
			titleStyle.Render(s.Title),
			countStyle.Render(fmt.Sprintf("%d", len(s.Messages))),
			s.Model,
			dateStyle.Render(s.UpdatedAt.Local().Format("2006-01-02 15:04")),
		)
	}
	w.Flush()
}

func init() {
	sessionsExportCmd.Flags().StringVarP(&exportFormat, "format", "f", "md", "Export format: json, yaml or md")
	sessionsExportCmd.Flags().StringVarP(&exportDir, "output", "o", "", "Output directory (default ~/Downloads)")
	sessionsExportCmd.Flags().BoolVar(&exportStdout, "stdout", false, "Write to standard output instead of a file")

	sessionsCmd.Args = cobra.NoArgs
	sessionsCmd.RunE = sessionsListCmd.RunE
	sessionsCmd.AddCommand(sessionsListCmd, sessionsSearchCmd, sessionsRenameCmd, sessionsDeleteCmd, sessionsExportCmd)
	rootCmd.AddCommand(sessionsCmd)
}
