package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taxdesk/portal-client/internal/models"
	"github.com/taxdesk/portal-client/internal/progress"
	strutil "github.com/taxdesk/portal-client/internal/util/strings"
)

// newFoldersCmd creates the 'folders' command group.
func newFoldersCmd() *cobra.Command {
	foldersCmd := &cobra.Command{
		Use:   "folders",
		Short: "Folder operations (create, rename, delete, archive, tree)",
		Long:  `Commands for managing the folders in your library.`,
	}

	foldersCmd.AddCommand(newFoldersCreateCmd())
	foldersCmd.AddCommand(newFoldersRenameCmd())
	foldersCmd.AddCommand(newFoldersDeleteCmd())
	foldersCmd.AddCommand(newArchiveCmd(models.KindFolder, true))
	foldersCmd.AddCommand(newArchiveCmd(models.KindFolder, false))
	foldersCmd.AddCommand(newFoldersTreeCmd())

	return foldersCmd
}

// newFoldersCreateCmd creates the 'folders create' command.
func newFoldersCreateCmd() *cobra.Command {
	var title string
	var parent string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new folder",
		Long: `Create a new folder in your library.

Example:
  # Create folder in the library root
  taxdesk folders create --title "2024 Returns"

  # Create subfolder
  taxdesk folders create --title "Receipts" --parent 42`,
		RunE: func(cmd *cobra.Command, args []string) error {
			parentRef, err := models.ParseFolderRef(parent)
			if err != nil {
				return err
			}

			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.Close()

			log := GetLogger()
			log.Info().Str("title", title).Str("parent", parentRef.String()).Msg("Creating folder")

			folder, err := s.browse.CreateFolder(GetContext(), title, parentRef)
			if err != nil {
				return failed("create folder", err)
			}

			log.Info().Int64("folder_id", folder.ID).Msg("Folder created")
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Folder created successfully\n")
			fmt.Fprintf(cmd.OutOrStdout(), "  Title: %s\n", folder.Title)
			fmt.Fprintf(cmd.OutOrStdout(), "  ID: %d\n", folder.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Folder title (required)")
	cmd.Flags().StringVar(&parent, "parent", "", "Parent folder ID (default: library root)")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

// newFoldersRenameCmd creates the 'folders rename' command.
func newFoldersRenameCmd() *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "rename <folder-id>",
		Short: "Rename a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.Close()

			folder, err := s.browse.RenameFolder(GetContext(), ids[0], title)
			if err != nil {
				return failed("rename folder", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Folder %d renamed to %q\n", folder.ID, folder.Title)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "New folder title (required)")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

// newFoldersDeleteCmd creates the 'folders delete' command.
func newFoldersDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <folder-id> [folder-id...]",
		Short: "Delete folders",
		Long: `Delete one or more folders. The portal decides what happens to the
documents inside; each folder is deleted independently.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			keys := make([]models.EntryKey, len(ids))
			for i, id := range ids {
				keys[i] = models.FolderKey(id)
			}

			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.Close()

			summary := s.browse.DeleteItems(GetContext(), keys)
			renderDeleteSummary(cmd.OutOrStdout(), summary)
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d deletions failed", summary.Failed, len(keys))
			}
			return nil
		},
	}
}

// newFoldersTreeCmd creates the 'folders tree' command.
func newFoldersTreeCmd() *cobra.Command {
	var archived bool

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Show the whole folder hierarchy",
		Long: `Load the whole library once and print its folder hierarchy with the
number and total size of the documents in each folder.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.Close()

			bar := progress.ForTerminal(false)
			bar.Start(-1, "Loading library")
			report, err := s.browse.LoadAll(GetContext())
			bar.Finish()
			if err != nil {
				return failed("load library", err)
			}

			tree, ok := s.browse.Cache().Tree()
			if !ok {
				return fmt.Errorf("library changed while loading, try again")
			}

			showArchived := archived || s.cfg.Browse.ShowArchived
			renderTree(cmd.OutOrStdout(), tree, showArchived)

			if !report.OK() {
				n := int64(len(report.Issues))
				fmt.Fprintf(cmd.OutOrStdout(), "\n! %d %s with inconsistent parent data not shown\n", n, strutil.Pluralize("folder", n))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&archived, "archived", false, "Include archived folders")

	return cmd
}
