package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/desertthunder/podplay/internal/formatter"
	"github.com/desertthunder/podplay/internal/models"
	"github.com/desertthunder/podplay/internal/shared"
	"github.com/desertthunder/podplay/internal/store"
	"github.com/urfave/cli/v3"
)

// withStore opens the model store for the duration of fn. Closing waits until every posted message has
// been processed.
func (r *Runner) withStore(ctx context.Context, fn func(st *store.Store) error) error {
	st := r.openStore(ctx)
	err := fn(st)
	if closeErr := st.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("failed to close store: %w", closeErr)
	}
	return err
}

// queryModel loads the model, bounded by the configured query timeout.
func (r *Runner) queryModel(ctx context.Context, st *store.Store) (*models.Model, error) {
	ctx, cancel := context.WithTimeout(ctx, r.config.Store.QueryTimeout())
	defer cancel()

	model, err := st.Query(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	return model, nil
}

// StoreGet prints the full model.
func (r *Runner) StoreGet(ctx context.Context, cmd *cli.Command) error {
	return r.withStore(ctx, func(st *store.Store) error {
		model, err := r.queryModel(ctx, st)
		if err != nil {
			return err
		}
		return r.writeJSON(model, cmd.Bool("pretty"))
	})
}

// StoreSet writes one table.
func (r *Runner) StoreSet(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("table")
	if name == "" {
		return fmt.Errorf("%w: table name is required", shared.ErrMissingArgument)
	}

	table, err := models.ParseTable(name)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	data := strings.TrimSpace(cmd.String("data"))
	if !json.Valid([]byte(data)) {
		return fmt.Errorf("%w: --data is not valid JSON", shared.ErrInvalidArgument)
	}
	if !table.Singleton() && !strings.HasPrefix(data, "[") {
		return fmt.Errorf("%w: %s expects a JSON array", shared.ErrInvalidArgument, table)
	}

	return r.withStore(ctx, func(st *store.Store) error {
		if err := st.Set(table, json.RawMessage(data)); err != nil {
			return fmt.Errorf("failed to write %s: %w", table, err)
		}
		r.logger.Info("queued write", "table", table)
		return r.writePlain("✓ Saved %s\n", table)
	})
}

// StoreDeleteFeed removes a feed and its items.
func (r *Runner) StoreDeleteFeed(ctx context.Context, cmd *cli.Command) error {
	url := cmd.String("url")
	return r.withStore(ctx, func(st *store.Store) error {
		if err := st.DeleteFeed(models.Feed{URL: url}); err != nil {
			return fmt.Errorf("failed to delete feed: %w", err)
		}
		return r.writePlain("✓ Deleted feed %s\n", url)
	})
}

// StoreDestroy clears every table.
func (r *Runner) StoreDestroy(ctx context.Context, cmd *cli.Command) error {
	if !cmd.Bool("yes") {
		return fmt.Errorf("%w: pass --yes to remove every record", shared.ErrMissingArgument)
	}
	return r.withStore(ctx, func(st *store.Store) error {
		if err := st.Destroy(); err != nil {
			return fmt.Errorf("failed to destroy store: %w", err)
		}
		return r.writePlain("✓ Store cleared\n")
	})
}

// StoreExport writes the model in the chosen format.
func (r *Runner) StoreExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	output := cmd.String("output")

	return r.withStore(ctx, func(st *store.Store) error {
		model, err := r.queryModel(ctx, st)
		if err != nil {
			return err
		}

		if format == formatter.FormatMarkdown {
			result, err := formatter.WriteMarkdownExport(model, output, r.httpClient, cmd.Bool("covers"))
			if err != nil {
				return err
			}
			r.writePlainHeader("Markdown export")
			for _, file := range result.Files {
				r.writePlain("  %s\n", file)
			}
			return nil
		}

		path, err := formatter.WriteExport(model, format, output)
		if err != nil {
			return err
		}
		r.logger.Info("export written", "path", path, "feeds", len(model.Feeds), "items", len(model.Items))
		return r.writePlain("✓ Exported %d items to %s\n", len(model.Items), path)
	})
}
