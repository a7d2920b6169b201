// Command cptmerge serves the CPT merge web tool.
package main

import (
	"embed"
	"io/fs"
	"log/slog"
	"os"

	"cptmerge/internal/app"
)

// Embedded single page frontend
//
//go:embed web
var webFiles embed.FS

func frontend() fs.FS {
	sub, err := fs.Sub(webFiles, "web")
	if err != nil {
		slog.Warn("Frontend embedding failed", slog.String("error", err.Error()))
		return nil
	}
	return sub
}

func main() {
	application, err := app.NewApplication(frontend())
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
