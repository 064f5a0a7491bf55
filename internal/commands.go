package internal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/nisabo/internal/exporter"
	"github.com/starford/nisabo/internal/importer"
	"github.com/starford/nisabo/internal/mcpserver"
	"github.com/starford/nisabo/internal/noteservice"
)

// RunInit creates the archive if it does not exist yet.
func RunInit(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.logger()

	st, err := openArchive(app.config, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	logger.Info("archive ready", slog.String("path", st.Path()))
	return nil
}

// RunImport imports every Markdown file in dir into the archive.
func RunImport(ctx context.Context, dir string, opts ...Option) (*importer.Result, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	logger := app.logger()

	imp := importer.New(archiveOpener(app.config, logger), logger)

	progress := make(chan importer.Progress)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range progress {
			if p.Error != "" {
				logger.Warn("import failed", slog.String("path", p.Path), slog.String("error", p.Error))
				continue
			}
			logger.Info("imported",
				slog.String("path", p.Path),
				slog.Int64("id", p.NoteID),
				slog.String("progress", fmt.Sprintf("%d/%d", p.Done, p.Total)))
		}
	}()

	res, err := imp.Import(ctx, dir, progress)
	close(progress)
	<-done
	return res, err
}

// RunExport writes every note to dir/exported in the given format. An
// empty format falls back to the configured default.
func RunExport(ctx context.Context, dir, format string, opts ...Option) (*exporter.Result, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	logger := app.logger()

	if format == "" {
		format = app.config.Export.Format
	}
	f, err := exporter.ParseFormat(format)
	if err != nil {
		return nil, err
	}

	ex := exporter.New(archiveOpener(app.config, logger), logger)

	progress := make(chan exporter.Progress)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range progress {
			logger.Debug("exported", slog.String("file", p.Path), slog.Float64("fraction", p.Fraction))
		}
	}()

	res, err := ex.Export(ctx, dir, f, progress)
	close(progress)
	<-done
	return res, err
}

// RunMCP serves the MCP tools on stdin/stdout until the client disconnects.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.logger()

	st, err := openArchive(app.config, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	svc := noteservice.NewService(st, nil, logger)
	logger.Info("MCP server starting", slog.String("archive_path", st.Path()))
	return mcpserver.New(svc, app.version).ServeStdio()
}
