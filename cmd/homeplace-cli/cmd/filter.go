package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/nfrund/homeplace/cmd/homeplace-cli/internal/format"
	"github.com/nfrund/homeplace/internal/catalog"
	"github.com/nfrund/homeplace/internal/filter"
	"github.com/spf13/cobra"
)

const listingPath = "/projects"

func newFilterCmd() *cobra.Command {
	filterCmd := &cobra.Command{
		Use:   "filter",
		Short: "Work with listing filters",
		Long: `Listing filters travel in the URL as an encoded "input" query parameter.

Examples:
  # Build a shareable link
  homeplace-cli filter encode --type HOUSE --style MODERN --max 500000

  # Inspect a link someone shared
  homeplace-cli filter decode '/projects?input=%7B%22page%22%3A2%7D'

  # Run the filter against the sample catalog
  homeplace-cli filter search '/projects?input=...'`,
	}
	filterCmd.AddCommand(newFilterEncodeCmd(), newFilterDecodeCmd(), newFilterSearchCmd())
	return filterCmd
}

// printNavigator prints the link a navigation would push.
type printNavigator struct {
	w io.Writer
}

func (n printNavigator) Navigate(_ context.Context, req filter.NavigationRequest) error {
	_, err := fmt.Fprintln(n.w, (&url.URL{Path: req.Path, RawQuery: req.Query.Encode()}).String())
	return err
}

type encodeFlags struct {
	text      string
	styles    []string
	types     []string
	options   []string
	min, max  int64
	page      int
	limit     int
	sort      string
	direction string
	member    string
}

func (f encodeFlags) patch(cmd *cobra.Command) filter.Patch {
	return func(s *filter.FilterState) {
		filter.SetText(f.text)(s)
		for _, st := range f.styles {
			filter.ToggleStyle(filter.Style(strings.ToUpper(st)))(s)
		}
		for _, t := range f.types {
			filter.ToggleType(filter.PropertyType(strings.ToUpper(t)))(s)
		}
		for _, o := range f.options {
			filter.ToggleOption(filter.Option(strings.ToUpper(o)))(s)
		}
		if cmd.Flags().Changed("min") || cmd.Flags().Changed("max") {
			filter.SetPriceRange(filter.Range{Start: f.min, End: f.max})(s)
		}
		if f.sort != "" || f.direction != "" {
			dir := s.Direction
			if f.direction != "" {
				dir = filter.Direction(strings.ToUpper(f.direction))
			}
			field := s.Sort
			if f.sort != "" {
				field = f.sort
			}
			filter.SetSort(field, dir)(s)
		}
		if f.member != "" {
			filter.SetMember(f.member)(s)
		}
		// Text resets the page; an explicit page wins.
		filter.SetPage(f.page)(s)
	}
}

func newFilterEncodeCmd() *cobra.Command {
	var f encodeFlags
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Build a shareable listing link from flags",
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults := filter.NewDefaults(filter.DefaultPriceRange, f.limit)
			sync := filter.NewSynchronizer(listingPath, defaults, printNavigator{w: cmd.OutOrStdout()})
			_, err := sync.ApplyFilter(cmd.Context(), f.patch(cmd), filter.ApplyOptions{Navigate: true})
			return err
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.text, "text", "", "Free-text search")
	flags.StringSliceVar(&f.styles, "style", nil, "Project styles (repeatable)")
	flags.StringSliceVar(&f.types, "type", nil, "Property types (repeatable)")
	flags.StringSliceVar(&f.options, "option", nil, "Deal options: BARTER, RENT (repeatable)")
	flags.Int64Var(&f.min, "min", filter.DefaultPriceRange.Start, "Minimum price")
	flags.Int64Var(&f.max, "max", filter.DefaultPriceRange.End, "Maximum price")
	flags.IntVar(&f.page, "page", 1, "Page number")
	flags.IntVar(&f.limit, "limit", 9, "Page size")
	flags.StringVar(&f.sort, "sort", "", "Sort field (createdAt, price, title)")
	flags.StringVar(&f.direction, "dir", "", "Sort direction (asc, desc)")
	flags.StringVar(&f.member, "member", "", "Only this member's projects")
	return cmd
}

// rawInput accepts either a bare encoded value or a URL carrying ?input=.
func rawInput(arg string) string {
	if u, err := url.Parse(arg); err == nil {
		if v, ok := u.Query()[filter.QueryParam]; ok && len(v) > 0 {
			return v[0]
		}
	}
	return arg
}

func decodeArg(args []string, limit int) (filter.FilterState, error) {
	defaults := filter.NewDefaults(filter.DefaultPriceRange, limit)
	if len(args) == 0 {
		return defaults.State.Clone(), nil
	}
	return filter.Parse(rawInput(args[0]), defaults.State)
}

func newFilterDecodeCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "decode [url-or-input]",
		Short: "Print the filter carried by a listing link",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := decodeArg(args, limit)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(state)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 9, "Page size assumed when the link omits it")
	return cmd
}

func newFilterSearchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search [url-or-input]",
		Short: "Search the sample catalog with a listing filter",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := decodeArg(args, limit)
			if err != nil {
				return err
			}
			return format.Page(cmd.OutOrStdout(), catalog.Sample().Search(state), outputFormat(cmd))
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 9, "Page size assumed when the link omits it")
	return cmd
}
