package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/crunch/internal/catalog"
	"github.com/roach88/crunch/internal/work"
)

// CatalogOptions holds flags for the catalog command.
type CatalogOptions struct {
	*RootOptions
	Source bool // print the built-in CUE source instead
}

// CatalogView is the validated catalog as printed by the catalog command.
type CatalogView struct {
	Source    string             `json:"source"`
	Templates []catalog.Template `json:"templates"`
	Buffs     []work.Buff        `json:"buffs"`
	Chains    [][]work.Kind      `json:"chains"`
}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "catalog [file.cue]",
		Short: "Validate and show a workflow catalog",
		Long: `Validate a CUE workflow catalog and print its kinds, buffs, and chains.

Without a file the built-in catalog is shown. Use --source to print the
built-in CUE definition as a starting point for a custom catalog.

Exit codes:
  0 - Catalog is valid
  1 - Catalog is invalid
  2 - Command error

Examples:
  crunch catalog
  crunch catalog ./team.cue
  crunch catalog --source > team.cue`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runCatalog(opts, path, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Source, "source", false, "print the built-in catalog source")

	return cmd
}

func runCatalog(opts *CatalogOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	if opts.Source {
		src := string(catalog.DefaultSource())
		return f.Success(map[string]string{"source": src}, func(w io.Writer) {
			fmt.Fprint(w, src)
		})
	}

	c, source, err := loadCatalog(path)
	if err != nil {
		var details map[string]string
		var catErr *catalog.CatalogError
		if errors.As(err, &catErr) {
			details = map[string]string{"field": catErr.Field}
			if catErr.Pos.IsValid() {
				details["position"] = catErr.Pos.String()
			}
		}
		if outErr := f.Error("E_CATALOG", err.Error(), details); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitFailure, "invalid catalog", err)
	}

	f.VerboseLog("loaded %d kinds from %s", len(c.Templates()), source)

	view := CatalogView{
		Source:    source,
		Templates: c.Templates(),
		Buffs:     c.Buffs(),
	}
	// Only chains that start at a kind nothing spawns; the rest are suffixes.
	spawned := make(map[work.Kind]bool)
	for _, t := range view.Templates {
		if t.Then.Spawn != "" {
			spawned[t.Then.Spawn] = true
		}
	}
	for _, k := range work.Kinds() {
		if chain := c.Chain(k); len(chain) > 1 && !spawned[k] {
			view.Chains = append(view.Chains, chain)
		}
	}

	return f.Success(view, func(w io.Writer) {
		printCatalog(w, view)
	})
}

func printCatalog(w io.Writer, v CatalogView) {
	fmt.Fprintf(w, "Catalog: %s\n\n", v.Source)
	fmt.Fprintf(w, "%-14s %8s %8s %8s  %s\n", "KIND", "EFFORT", "RATE", "PRIORITY", "THEN")
	for _, t := range v.Templates {
		fmt.Fprintf(w, "%-14s %8g %8g %8d  %s\n", t.Kind, t.TotalEffort, t.RatePerTick, t.Priority, describeTransition(t.Then))
	}

	if len(v.Buffs) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Buffs:")
		for _, b := range v.Buffs {
			fmt.Fprintf(w, "  %-12s energy %+g  focus %+g  stress %+g\n", b.ID, b.Energy, b.Focus, b.Stress)
		}
	}

	if len(v.Chains) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Chains:")
		for _, chain := range v.Chains {
			names := make([]string, len(chain))
			for i, k := range chain {
				names[i] = string(k)
			}
			fmt.Fprintf(w, "  %s\n", strings.Join(names, " -> "))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "✓ Catalog is valid")
}

func describeTransition(t catalog.Transition) string {
	switch {
	case t.Spawn != "":
		return "spawn " + string(t.Spawn)
	case t.Buff != "" && t.BroadcastMin > 0:
		return fmt.Sprintf("buff %s (everyone at %d+ contributors)", t.Buff, t.BroadcastMin)
	case t.Buff != "":
		return "buff " + string(t.Buff)
	default:
		return "terminal"
	}
}
