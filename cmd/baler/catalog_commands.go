package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"baler/internal/catalog"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and manage the media catalog",
	}

	catalogCmd.AddCommand(newCatalogStatusCommand(ctx))
	catalogCmd.AddCommand(newCatalogListCommand(ctx))
	catalogCmd.AddCommand(newCatalogShowCommand(ctx))
	catalogCmd.AddCommand(newCatalogRetryCommand(ctx))
	catalogCmd.AddCommand(newCatalogClearCommand(ctx))
	catalogCmd.AddCommand(newCatalogHealthCommand(ctx))

	return catalogCmd
}

func newCatalogStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show catalog status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *catalog.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				rows := buildStatusRows(stats)
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Catalog is empty")
					return nil
				}
				total := 0
				for _, count := range stats {
					total += count
				}
				out := cmd.OutOrStdout()
				table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				fmt.Fprintln(out, table)
				fmt.Fprintln(out, displayPrinter.Sprintf("Total: %d items", total))
				return nil
			})
		},
	}
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog items",
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []catalog.Status
			for _, value := range listStatuses {
				status, ok := catalog.ParseStatus(value)
				if !ok {
					return fmt.Errorf("unknown status %q", value)
				}
				statuses = append(statuses, status)
			}

			return ctx.withStore(func(store *catalog.Store) error {
				items, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, newItemViews(items))
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Catalog is empty")
					return nil
				}
				table := renderTable(
					[]string{"ID", "File", "Status", "Size", "Progress", "Updated"},
					buildListRows(items),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by item status (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit items as JSON")
	return cmd
}

func newCatalogShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <itemID>",
		Short: "Show one catalog item in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid item id %q", args[0])
			}

			return ctx.withStore(func(store *catalog.Store) error {
				item, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("item %d not found", id)
				}
				if asJSON {
					return writeJSON(cmd, newItemView(item))
				}

				progress := formatItemProgress(item)
				if progress == "-" {
					progress = ""
				}
				retries := ""
				if item.RetryCount > 0 {
					retries = strconv.Itoa(item.RetryCount)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderKeyValues(
					"ID", strconv.FormatInt(item.ID, 10),
					"File", item.Filename,
					"Locator", item.SourceLocator,
					"Status", formatStatusLabel(item.Status),
					"Progress", progress,
					"Size", formatExactSize(item.OriginalSize),
					"Output size", formatExactSize(item.OutputSize),
					"Ratio", formatPercent(item.Ratio),
					"Retries", retries,
					"Error", item.ErrorMessage,
					"Staging path", item.StagingPath,
					"Archive path", item.ArchivePath,
					"Output path", item.OutputPath,
					"Source digest", item.SourceDigest,
					"Archive digest", item.ArchiveDigest,
					"Created", formatDisplayTime(item.CreatedAt),
					"Updated", formatDisplayTime(item.UpdatedAt),
					"Completed", formatOptionalTime(item.CompletedAt),
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the item as JSON")
	return cmd
}

func newCatalogRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [itemID...]",
		Short: "Return failed items to the cataloged state",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid item id %q", arg)
				}
				ids = append(ids, id)
			}

			return ctx.withStore(func(store *catalog.Store) error {
				out := cmd.OutOrStdout()
				if len(ids) == 0 {
					failed, err := store.List(cmd.Context(), catalog.StatusFailed)
					if err != nil {
						return err
					}
					for _, item := range failed {
						if _, err := store.RetryItem(cmd.Context(), item.ID); err != nil {
							return err
						}
					}
					fmt.Fprintf(out, "Retried %d failed items\n", len(failed))
					return nil
				}

				for _, id := range ids {
					item, err := store.GetByID(cmd.Context(), id)
					if err != nil {
						return err
					}
					if item == nil {
						fmt.Fprintf(out, "Item %d not found\n", id)
						continue
					}
					if item.Status != catalog.StatusFailed {
						fmt.Fprintf(out, "Item %d is not in failed state\n", id)
						continue
					}
					if _, err := store.RetryItem(cmd.Context(), id); err != nil {
						return err
					}
					fmt.Fprintf(out, "Item %d reset for retry\n", id)
				}
				return nil
			})
		},
	}
}

func newCatalogClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove catalog items",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearCompleted && clearFailed {
				return errors.New("specify only one of --completed or --failed")
			}
			return ctx.withStore(func(store *catalog.Store) error {
				out := cmd.OutOrStdout()
				var removed int64
				var err error
				switch {
				case clearCompleted:
					removed, err = store.ClearCompleted(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d completed items\n", removed)
				case clearFailed:
					removed, err = store.ClearFailed(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d failed items\n", removed)
				default:
					removed, err = store.Clear(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d catalog items\n", removed)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove only completed items")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove only failed items")
	return cmd
}

func newCatalogHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show catalog health summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *catalog.Store) error {
				out := cmd.OutOrStdout()
				summary, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Total: %d\nCataloged: %d\nProcessing: %d\nFailed: %d\nCompleted: %d\n",
					summary.Total,
					summary.Cataloged,
					summary.Processing,
					summary.Failed,
					summary.Completed,
				)

				colorize := shouldColorize(cmd.OutOrStdout())
				db, dbErr := store.CheckHealth(cmd.Context())
				if dbErr != nil {
					fmt.Fprintln(out, renderStatusLine("Database", statusError, dbErr.Error(), colorize))
					return nil
				}
				fmt.Fprintln(out, renderStatusLine("Database", statusOK, db.DBPath, colorize))
				schemaKind := statusOK
				schemaDetail := "version " + db.SchemaVersion
				if len(db.MissingColumns) > 0 {
					schemaKind = statusWarn
					schemaDetail = fmt.Sprintf("version %s, missing columns: %v", db.SchemaVersion, db.MissingColumns)
				}
				fmt.Fprintln(out, renderStatusLine("Schema", schemaKind, schemaDetail, colorize))
				integrityKind := statusOK
				if !db.IntegrityCheck {
					integrityKind = statusError
				}
				fmt.Fprintln(out, renderStatusLine("Integrity", integrityKind, yesNo(db.IntegrityCheck), colorize))
				return nil
			})
		},
	}
}
