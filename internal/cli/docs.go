package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/taxdesk/portal-client/internal/api"
	"github.com/taxdesk/portal-client/internal/models"
	"github.com/taxdesk/portal-client/internal/progress"
	"github.com/taxdesk/portal-client/internal/services"
	"github.com/taxdesk/portal-client/internal/util/filter"
)

// newDocsCmd creates the 'docs' command group.
func newDocsCmd() *cobra.Command {
	docsCmd := &cobra.Command{
		Use:   "docs",
		Short: "Document operations (browse, delete, archive, unarchive)",
		Long:  `Commands for browsing and managing the documents in your library.`,
	}

	docsCmd.AddCommand(newDocsBrowseCmd())
	docsCmd.AddCommand(newDocsDeleteCmd())
	docsCmd.AddCommand(newArchiveCmd(models.KindDocument, true))
	docsCmd.AddCommand(newArchiveCmd(models.KindDocument, false))

	return docsCmd
}

// browseOptions are the flags shared by 'docs browse' and 'ls'.
type browseOptions struct {
	folder    string
	search    string
	status    string
	output    string
	page      int
	pageSize  int
	archived  bool
	recursive bool
}

func (o *browseOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.search, "search", "s", "", "Case-insensitive search term")
	cmd.Flags().StringVar(&o.status, "status", "", "Quick filter: pending, completed, overdue or uploaded")
	cmd.Flags().StringVarP(&o.output, "output", "o", "table", "Output format: table, json or yaml")
	cmd.Flags().IntVarP(&o.page, "page", "p", 1, "Page number (1-based)")
	cmd.Flags().IntVar(&o.pageSize, "page-size", 0, "Entries per page (default from config)")
	cmd.Flags().BoolVar(&o.archived, "archived", false, "Include archived folders and documents")
	cmd.Flags().BoolVarP(&o.recursive, "recursive", "r", false, "Load the whole library first; search then covers every folder")
}

// newDocsBrowseCmd creates the 'docs browse' command.
func newDocsBrowseCmd() *cobra.Command {
	var opts browseOptions

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "List the folders and documents in a folder",
		Long: `List one folder's subfolders and documents, filtered and paginated.

Examples:
  # Library root
  taxdesk docs browse

  # A folder, pending signatures only
  taxdesk docs browse --folder 42 --status pending

  # Search the whole library
  taxdesk docs browse --recursive --search w-2

  # Machine-readable
  taxdesk docs browse --folder 42 -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.folder, "folder", "f", "", "Folder ID (default: library root)")
	opts.bind(cmd)

	return cmd
}

// newLsShortcut creates the 'ls' shortcut command.
// Shortcut for: docs browse --folder <id>
func newLsShortcut() *cobra.Command {
	var opts browseOptions

	cmd := &cobra.Command{
		Use:   "ls [folder-id]",
		Short: "List a folder (shortcut for 'docs browse')",
		Long: `Shortcut for browsing a folder.

Equivalent to: taxdesk docs browse --folder <folder-id>

Examples:
  taxdesk ls
  taxdesk ls 42 --status overdue`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.folder = args[0]
			}
			return runBrowse(cmd, opts)
		},
	}

	opts.bind(cmd)

	return cmd
}

func runBrowse(cmd *cobra.Command, opts browseOptions) error {
	format, err := parseOutputFormat(opts.output)
	if err != nil {
		return err
	}
	folderID, err := models.ParseFolderRef(opts.folder)
	if err != nil {
		return err
	}
	status, err := filter.ParseStatus(opts.status)
	if err != nil {
		return err
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := GetContext()
	log := GetLogger()

	showArchived := s.cfg.Browse.ShowArchived
	if cmd.Flags().Changed("archived") {
		showArchived = opts.archived
	}
	s.browse.SetQuery("", showArchived)

	if opts.recursive || s.cfg.Browse.Recursive {
		bar := progress.ForTerminal(format != outputTable)
		bar.Start(-1, "Loading library")
		report, err := s.browse.LoadAll(ctx)
		bar.Finish()
		if err != nil {
			return failed("load library", err)
		}
		if !report.OK() {
			log.Warn().Int("issues", len(report.Issues)).Msg("Library has inconsistent folder data; affected folders may be missing")
		}
	}

	listing := s.listing
	if opts.pageSize > 0 {
		listing = services.NewListing(s.browse, opts.pageSize)
	}
	listing.SetSearch(opts.search)
	listing.SetStatus(status)
	listing.SetPage(opts.page)

	view, err := s.browse.Browse(ctx, folderID)
	if err != nil {
		return failed("browse folder", err)
	}

	page := listing.Page()
	if opts.page != page.Bounds.Page {
		log.Debug().Int("requested", opts.page).Int("shown", page.Bounds.Page).Msg("Page out of range, clamped")
	}

	return renderListing(cmd.OutOrStdout(), format, page, view, s.folderTitles(), time.Now())
}

// folderTitles resolves document folder names from the cache when loaded.
func (s *session) folderTitles() func(models.FolderRef) string {
	if tree, ok := s.browse.Cache().Tree(); ok {
		return tree.FolderTitle
	}
	return nil
}

// newDocsDeleteCmd creates the 'docs delete' command.
func newDocsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <document-id> [document-id...]",
		Short: "Delete documents",
		Long: `Delete one or more documents. Each document is deleted independently;
failures are listed and do not stop the rest.

Example:
  taxdesk docs delete 101 102 103`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			keys := make([]models.EntryKey, len(ids))
			for i, id := range ids {
				keys[i] = models.DocumentKey(id)
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

// newArchiveCmd creates 'archive' or 'unarchive' for documents or folders.
func newArchiveCmd(kind models.EntryKind, archive bool) *cobra.Command {
	verb := "archive"
	if !archive {
		verb = "unarchive"
	}

	return &cobra.Command{
		Use:   fmt.Sprintf("%s <%s-id>", verb, kind),
		Short: fmt.Sprintf("%s a %s", capitalize(verb), kind),
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

			key := models.EntryKey{Kind: kind, ID: ids[0]}
			entry, err := s.archive.SetArchived(GetContext(), key, !archive)
			if err != nil {
				return failed(verb, err)
			}
			printArchived(cmd.OutOrStdout(), entry)
			return nil
		},
	}
}

func printArchived(w io.Writer, e *models.Entry) {
	state := "unarchived"
	if e.Archived() {
		state = "archived"
	}
	fmt.Fprintf(w, "✓ %s %s\n", e.Key(), state)
	if !e.IsFolder && e.Document.Status != "" {
		fmt.Fprintf(w, "  Status: %s\n", e.Document.Status)
	}
}

// failed logs err in full and returns the user-facing message.
func failed(op string, err error) error {
	GetLogger().Debug().Err(err).Str("op", op).Msg("Command failed")
	return fmt.Errorf("failed to %s: %s", op, api.ErrorMessage(err))
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
