package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/crunch/internal/inbox"
	"github.com/roach88/crunch/internal/work"
)

// SubmitOptions holds flags for the submit command.
type SubmitOptions struct {
	*RootOptions
	Inbox   string
	Variant string
}

// SubmitResult describes a request written to an inbox.
type SubmitResult struct {
	Kind    work.Kind `json:"kind"`
	Variant string    `json:"variant"`
	Path    string    `json:"path"`
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "submit <kind>",
		Short: "Queue work for a running scheduler",
		Long: `Write a work request into the inbox directory of a running scheduler.

The scheduler started with "crunch run --inbox <dir>" picks the request
up on its next scan and submits it.

Examples:
  crunch submit --inbox ./inbox CreateChange
  crunch submit --inbox ./inbox --variant urgent MergeChange`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Inbox, "inbox", "", "inbox directory watched by the scheduler (required)")
	cmd.Flags().StringVar(&opts.Variant, "variant", work.VariantStandard, "variant tag for the item")
	_ = cmd.MarkFlagRequired("inbox")

	return cmd
}

func runSubmit(opts *SubmitOptions, arg string, cmd *cobra.Command) error {
	kind, err := work.ParseKind(arg)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid kind", err)
	}

	path, err := inbox.WriteRequest(opts.Inbox, kind, opts.Variant)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to write request", err)
	}

	res := SubmitResult{Kind: kind, Variant: opts.Variant, Path: path}
	return newFormatter(opts.RootOptions, cmd).Success(res, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Queued %s (%s) in %s\n", res.Kind, res.Variant, path)
	})
}
