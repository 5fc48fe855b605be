package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taxdesk/portal-client/internal/api"
	"github.com/taxdesk/portal-client/internal/models"
	"github.com/taxdesk/portal-client/internal/notify"
	"github.com/taxdesk/portal-client/internal/progress"
	"github.com/taxdesk/portal-client/internal/services"
)

// newESignCmd creates the 'esign' command group.
func newESignCmd() *cobra.Command {
	esignCmd := &cobra.Command{
		Use:   "esign",
		Short: "E-signature operations (assign, status)",
		Long:  `Route documents to a signer and follow the assignment until the portal settles it.`,
	}

	esignCmd.AddCommand(newESignAssignCmd())
	esignCmd.AddCommand(newESignStatusCmd())

	return esignCmd
}

// newESignAssignCmd creates the 'esign assign' command.
func newESignAssignCmd() *cobra.Command {
	var (
		signer   string
		deadline string
		spouse   bool
		preparer bool
		folder   string
		name     string
		quiet    bool
	)

	cmd := &cobra.Command{
		Use:   "assign <document-id>",
		Short: "Send a document for signature and wait for the outcome",
		Long: `Submit an e-sign assignment and poll its status until the portal
reports completed or failed.

Polling waits a fixed interval before each status query and gives up after
the configured number of attempts ([esign] max_attempts). Giving up does not
mean the request failed: the portal may still complete it, so check with
'taxdesk esign status' before sending the document again. In that case
the command exits with status 2.

Example:
  taxdesk esign assign 7 --signer sgn_123 --deadline 2024-04-30
  taxdesk esign assign 7 --signer sgn_123 --deadline 2024-04-30 --spouse --folder 42`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			req := models.AssignmentRequest{
				DocumentID:         ids[0],
				SignerID:           signer,
				HasSpouseSignature: spouse,
				PreparerMustSign:   preparer,
			}
			if strings.TrimSpace(deadline) != "" {
				d, err := models.ParseDate(deadline)
				if err != nil {
					return err
				}
				req.Deadline = &d
			}
			var folderRef *models.FolderRef
			if folder != "" {
				ref, err := models.ParseFolderRef(folder)
				if err != nil {
					return err
				}
				folderRef = &ref
			}
			if name == "" {
				name = fmt.Sprintf("document %d", req.DocumentID)
			}

			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			tracker := progress.NewPollTracker(progress.ForTerminal(quiet), name)
			notifier := notify.NewNotifier(&notify.Config{
				Enabled:       s.cfg.Notifications.Enabled,
				ShowCompleted: true,
				ShowFailed:    true,
				ShowUnknown:   true,
			}, GetLogger())

			s.esign.SetHooks(services.ESignHooks{
				OnAttempt: tracker.OnAttempt,
				OnCompleted: func(ctx context.Context, result *services.AssignmentResult) {
					refreshAfterAssignment(ctx, out, s.browse, folderRef, result.DocumentID)
				},
				OnSettled: func(documentID int64, phase services.AssignmentPhase, err error) {
					tracker.Done(err)
					notifier.Settled(name, string(phase), api.ErrorMessage(err))
				},
			})

			GetLogger().Info().Int64("document_id", req.DocumentID).Str("signer_id", req.SignerID).Msg("Submitting e-sign assignment")
			result, err := s.esign.Assign(GetContext(), req)
			return reportAssignment(out, result, err)
		},
	}

	cmd.Flags().StringVar(&signer, "signer", "", "Signer ID (required)")
	cmd.Flags().StringVar(&deadline, "deadline", "", "Signing deadline, YYYY-MM-DD (required)")
	cmd.Flags().BoolVar(&spouse, "spouse", false, "The spouse must also sign")
	cmd.Flags().BoolVar(&preparer, "preparer-must-sign", false, "The preparer must also sign")
	cmd.Flags().StringVarP(&folder, "folder", "f", "", "Folder to re-list once the assignment completes (default: library root)")
	cmd.Flags().StringVar(&name, "name", "", "Display name for progress and notifications")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not draw a progress bar")

	return cmd
}

// reportAssignment prints the outcome of Assign. A timeout is not a
// failure: the notice is printed and ErrOutcomeUnknown returned.
func reportAssignment(w io.Writer, result *services.AssignmentResult, err error) error {
	if err == nil {
		printAssignment(w, result)
		return nil
	}
	if services.IsTimeout(err) {
		GetLogger().Debug().Err(err).Msg("Assignment outcome unknown")
		fmt.Fprintf(w, "? %s\n", api.ErrorMessage(err))
		return ErrOutcomeUnknown
	}
	return failed("assign document", err)
}

// refreshAfterAssignment re-browses the given folder, or the current one
// (root if none), and prints the document's new status when it is listed.
func refreshAfterAssignment(ctx context.Context, w io.Writer, browse *services.BrowseService, folder *models.FolderRef, documentID int64) {
	browse.Invalidate("esign_completed")

	var err error
	if folder != nil {
		_, err = browse.Browse(ctx, *folder)
	} else {
		_, err = browse.Refresh(ctx)
	}
	if err != nil {
		GetLogger().Warn().Err(err).Msg("Failed to refresh documents after assignment")
		return
	}
	if e, ok := browse.Workspace().Find(models.DocumentKey(documentID)); ok {
		fmt.Fprintf(w, "  Document status: %s\n", e.Status())
	}
}

func printAssignment(w io.Writer, result *services.AssignmentResult) {
	fmt.Fprintf(w, "✓ Assignment completed\n")
	fmt.Fprintf(w, "  Assignment ID: %s\n", result.AssignmentID)
	fmt.Fprintf(w, "  Status checks: %d\n", result.Attempts)
	if len(result.Payload) > 0 {
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, result.Payload, "  ", "  "); err == nil {
			fmt.Fprintf(w, "  Result: %s\n", pretty.String())
		}
	}
}

// newESignStatusCmd creates the 'esign status' command.
func newESignStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <assignment-id>",
		Short: "Query an assignment once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.Close()

			status, err := s.esign.Status(GetContext(), args[0])
			if err != nil {
				return failed("get assignment status", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Assignment: %s\n", args[0])
			fmt.Fprintf(out, "Status:     %s\n", status.Status)
			if status.Error != "" {
				fmt.Fprintf(out, "Error:      %s\n", status.Error)
			}
			return nil
		},
	}
}
