package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"DailyKnowledge/internal/app"
	"DailyKnowledge/internal/config"
	"DailyKnowledge/internal/domain"
	"DailyKnowledge/internal/logging"
	"DailyKnowledge/internal/sources"
)

type rootOptions struct {
	configPath string
	cfg        config.Config
	logger     *slog.Logger
	printer    *Printer
}

// NewRootCommand builds the dailyknowledge command tree.
func NewRootCommand(printer *Printer) *cobra.Command {
	opts := &rootOptions{printer: printer}

	root := &cobra.Command{
		Use:   "dailyknowledge",
		Short: "Curated daily news digest with bookmarks and weekly reviews",
		Long: `Daily Knowledge pulls the latest items from curated RSS feeds, asks a
language model to pick and summarize the most significant stories per
category, and keeps bookmarks, notes and weekly reviews of what you read.

Examples:
  dailyknowledge fetch               # fetch today's feed unless it exists
  dailyknowledge feed                # show the current dashboard
  dailyknowledge bookmark add <id>   # save an insight
  dailyknowledge review generate     # synthesize this week's bookmarks`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.cfg = config.Load(opts.configPath)
			opts.logger = logging.New(opts.cfg.Logging.Level)
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to the YAML config file")

	root.AddCommand(
		newFetchCommand(opts),
		newRunCommand(opts),
		newFeedCommand(opts),
		newSourcesCommand(opts),
		newBookmarkCommand(opts),
		newNoteCommand(opts),
		newReviewCommand(opts),
	)
	return root
}

// withApp builds the application for one command and closes it afterwards.
func (o *rootOptions) withApp(ctx context.Context, fn func(*app.Application) error) error {
	application, err := app.New(ctx, o.cfg, o.logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := application.Close(); cerr != nil {
			o.logger.Warn("close store", "error", cerr)
		}
	}()
	return fn(application)
}

func newFetchCommand(opts *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Run the daily pipeline once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(a *app.Application) error {
				run, ran, err := a.Fetch(cmd.Context(), force)
				if err != nil {
					return err
				}
				if !ran {
					opts.printer.Success("today's feed is already fetched; use --force to refetch")
					return nil
				}
				opts.printer.Run(run)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "fetch even if today's feed exists")
	return cmd
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the daily scheduler and metrics endpoint until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return opts.withApp(ctx, func(a *app.Application) error {
				return a.Serve(ctx)
			})
		},
	}
}

func newFeedCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "feed",
		Aliases: []string{"dashboard"},
		Short:   "Show the current daily insights",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(a *app.Application) error {
				entries, err := a.Collection().Dashboard(cmd.Context())
				if err != nil {
					return err
				}
				opts.printer.Feed(entries)
				return nil
			})
		},
	}
}

func newSourcesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the configured feed sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := sources.FromConfig(opts.cfg.Feeds)
			if err != nil {
				return &domain.ConfigError{Err: err}
			}
			opts.printer.Sources(registry.Groups())
			return nil
		},
	}
}

func newBookmarkCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookmark",
		Short: "Manage bookmarked insights",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <insight-id>",
			Short: "Bookmark an insight of the current feed",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withApp(cmd.Context(), func(a *app.Application) error {
					item, err := a.Collection().Bookmark(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					opts.printer.Success("bookmarked %q as %s", item.Title, item.ID)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "remove <insight-id>",
			Short: "Remove the bookmark of an insight",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withApp(cmd.Context(), func(a *app.Application) error {
					if err := a.Collection().Unbookmark(cmd.Context(), args[0]); err != nil {
						return err
					}
					opts.printer.Success("bookmark removed")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List bookmarks, newest first",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withApp(cmd.Context(), func(a *app.Application) error {
					entries, err := a.Collection().Bookmarks(cmd.Context())
					if err != nil {
						return err
					}
					opts.printer.Bookmarks(entries)
					return nil
				})
			},
		},
	)
	return cmd
}

func newNoteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "note <bookmark-id> <text...>",
		Short: "Attach a note to a bookmark",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(a *app.Application) error {
				if err := a.Collection().SetNote(cmd.Context(), args[0], strings.Join(args[1:], " ")); err != nil {
					return err
				}
				opts.printer.Success("note saved")
				return nil
			})
		},
	}
}

func newReviewCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Weekly reviews of your bookmarks",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "generate",
			Short: "Synthesize this week's bookmarks into a review",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withApp(cmd.Context(), func(a *app.Application) error {
					review, err := a.GenerateReview(cmd.Context())
					if err != nil {
						return err
					}
					opts.printer.Review(review)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "latest",
			Short: "Show the most recent review",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withApp(cmd.Context(), func(a *app.Application) error {
					review, err := a.Collection().LatestReview(cmd.Context())
					if err != nil {
						return err
					}
					opts.printer.Review(review)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List stored reviews",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withApp(cmd.Context(), func(a *app.Application) error {
					reviews, err := a.Collection().Reviews(cmd.Context())
					if err != nil {
						return err
					}
					opts.printer.Reviews(reviews)
					return nil
				})
			},
		},
	)
	return cmd
}

// Describe turns an error into a user-facing line.
func Describe(err error) string {
	var cfgErr *domain.ConfigError
	switch {
	case errors.Is(err, domain.ErrNotConfigured):
		return "summarization service is not configured: set LLM_API_KEY (or API_KEY) or llm.apiKey"
	case errors.As(err, &cfgErr):
		return cfgErr.Error()
	case errors.Is(err, domain.ErrInsufficientData):
		return "no bookmarks yet: bookmark some insights before generating a weekly review"
	case errors.Is(err, domain.ErrNotFound):
		return fmt.Sprintf("not found: %v", err)
	default:
		return err.Error()
	}
}
