package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/frahmantamala/expense-approval/internal/request"
	"github.com/frahmantamala/expense-approval/internal/user"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var requestsCmd = &cobra.Command{
	Use:     "requests",
	Aliases: []string{"req"},
	Short:   "Work with approval requests as the logged in user",
}

var (
	listStatus   string
	createTitle  string
	createDesc   string
	createType   string
	createAmount string
	createCurr   string
	createSubmit bool
	rejectReason string
)

// withSession loads config, the app and the session user, then runs fn.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, app *App, actor user.User) error) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	// forwarded requests are delivered by the server or the finance worker
	app, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer app.Close()
	actor, err := sessionUser(ctx, cfg, app.Auth)
	if err != nil {
		return err
	}
	return fn(ctx, app, actor)
}

var listRequestsCmd = &cobra.Command{
	Use:   "list",
	Short: "List the requests visible to you",
	RunE: func(cmd *cobra.Command, args []string) error {
		status := request.Status(strings.ToUpper(listStatus))
		if status != "" && !status.Valid() {
			return fmt.Errorf("invalid status %q", listStatus)
		}
		return withSession(cmd, func(ctx context.Context, app *App, actor user.User) error {
			reqs, err := app.Requests.ListForActor(ctx, actor, status)
			if err != nil {
				return err
			}
			printRequests(cmd.OutOrStdout(), app, reqs)
			return nil
		})
	},
}

var showRequestCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, app *App, actor user.User) error {
			req, err := app.Requests.GetForActor(ctx, actor, args[0])
			if err != nil {
				return err
			}
			printRequest(cmd.OutOrStdout(), app, *req)
			return nil
		})
	},
}

var createRequestCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a draft request, or submit it directly with --submit",
	RunE: func(cmd *cobra.Command, args []string) error {
		dto := request.CreateRequestDTO{
			Title:       createTitle,
			Description: createDesc,
			Type:        request.Type(strings.ToUpper(createType)),
			Currency:    strings.ToUpper(createCurr),
			Submit:      createSubmit,
		}
		if createAmount != "" {
			amount, err := decimal.NewFromString(createAmount)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", createAmount, err)
			}
			dto.Amount = &amount
		}
		return withSession(cmd, func(ctx context.Context, app *App, actor user.User) error {
			req, err := app.Requests.CreateDraft(ctx, actor, dto)
			if err != nil {
				return err
			}
			printRequest(cmd.OutOrStdout(), app, *req)
			return nil
		})
	},
}

var submitRequestCmd = &cobra.Command{
	Use:   "submit [id]",
	Short: "Submit a draft for approval",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, app *App, actor user.User) error {
			req, err := app.Requests.Submit(ctx, actor, args[0])
			if err != nil {
				return err
			}
			printRequest(cmd.OutOrStdout(), app, *req)
			return nil
		})
	},
}

var deleteRequestCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, app *App, actor user.User) error {
			if err := app.Requests.Delete(ctx, actor, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Deleted", args[0])
			return nil
		})
	},
}

var attachRequestCmd = &cobra.Command{
	Use:   "attach [id] [file]",
	Short: "Attach a file to a draft or rejected request",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[1], err)
		}
		return withSession(cmd, func(ctx context.Context, app *App, actor user.User) error {
			req, err := app.Requests.UploadAttachment(ctx, actor, args[0], filepath.Base(args[1]), data)
			if err != nil {
				return err
			}
			printRequest(cmd.OutOrStdout(), app, *req)
			return nil
		})
	},
}

var approveRequestCmd = &cobra.Command{
	Use:   "approve [id]",
	Short: "Approve a pending request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, app *App, actor user.User) error {
			req, err := app.Approvals.ApproveByID(ctx, args[0], actor)
			if err != nil {
				return err
			}
			printRequest(cmd.OutOrStdout(), app, *req)
			return nil
		})
	},
}

var rejectRequestCmd = &cobra.Command{
	Use:   "reject [id]",
	Short: "Reject a pending request with a reason",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, app *App, actor user.User) error {
			req, err := app.Approvals.RejectByID(ctx, args[0], actor, rejectReason)
			if err != nil {
				return err
			}
			printRequest(cmd.OutOrStdout(), app, *req)
			return nil
		})
	},
}

var forwardRequestCmd = &cobra.Command{
	Use:   "forward [id]",
	Short: "Approve a pending request and hand it to finance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, app *App, actor user.User) error {
			req, err := app.Approvals.ForwardByID(ctx, args[0], actor)
			if err != nil {
				return err
			}
			printRequest(cmd.OutOrStdout(), app, *req)
			return nil
		})
	},
}

func printRequests(w io.Writer, app *App, reqs []request.ApprovalRequest) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tTYPE\tAMOUNT\tREQUESTER\tTITLE")
	for _, r := range reqs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Status, r.Type, app.Formatter.Amount(r.Amount, r.Currency), r.Requester.Email, r.Title)
	}
	_ = tw.Flush()
}

func printRequest(w io.Writer, app *App, r request.ApprovalRequest) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%s\n", r.ID)
	fmt.Fprintf(tw, "Title\t%s\n", r.Title)
	fmt.Fprintf(tw, "Type\t%s\n", r.Type)
	fmt.Fprintf(tw, "Status\t%s\n", r.Status)
	fmt.Fprintf(tw, "Amount\t%s\n", app.Formatter.Amount(r.Amount, r.Currency))
	fmt.Fprintf(tw, "Requester\t%s <%s>\n", r.Requester.Name, r.Requester.Email)
	if p := r.LastProcessor(); p != nil {
		fmt.Fprintf(tw, "Processed by\t%s <%s>\n", p.Name, p.Email)
	}
	if r.RejectionReason != "" {
		fmt.Fprintf(tw, "Reason\t%s\n", r.RejectionReason)
	}
	for _, f := range r.Attachments {
		fmt.Fprintf(tw, "Attachment\t%s %s (%s)\n", f.ID, f.Name, f.Type)
	}
	fmt.Fprintf(tw, "Version\t%d\n", r.Version)
	_ = tw.Flush()
}

func init() {
	listRequestsCmd.Flags().StringVar(&listStatus, "status", "", "Only list requests with this status")

	createRequestCmd.Flags().StringVar(&createTitle, "title", "", "Request title")
	createRequestCmd.Flags().StringVar(&createDesc, "description", "", "Request description")
	createRequestCmd.Flags().StringVar(&createType, "type", string(request.TypeExpense), "EXPENSE, LEAVE, PURCHASE or OTHER")
	createRequestCmd.Flags().StringVar(&createAmount, "amount", "", "Amount as a decimal string")
	createRequestCmd.Flags().StringVar(&createCurr, "currency", "", "ISO 4217 currency code")
	createRequestCmd.Flags().BoolVar(&createSubmit, "submit", false, "Submit immediately instead of saving a draft")
	_ = createRequestCmd.MarkFlagRequired("title")

	rejectRequestCmd.Flags().StringVar(&rejectReason, "reason", "", "Rejection reason")
	_ = rejectRequestCmd.MarkFlagRequired("reason")

	requestsCmd.AddCommand(listRequestsCmd, showRequestCmd, createRequestCmd, submitRequestCmd,
		deleteRequestCmd, attachRequestCmd, approveRequestCmd, rejectRequestCmd, forwardRequestCmd)

	rootCmd.AddCommand(requestsCmd)
}
