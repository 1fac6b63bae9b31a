package main

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"dagger/eduverse/internal/dagger"
)

var platforms = []dagger.Platform{
	"linux/amd64",
	"linux/arm64",
	"darwin/amd64",
	"darwin/arm64",
}

// Build cross-compiles the eduverse CLI for every release platform.
//
// Binaries are static (CGO_ENABLED=0), so SQLite storage uses the pure Go
// modernc driver.
func (t *Eduverse) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	golang := dag.Container().
		From("golang:1.25-alpine").
		WithEnvVariable("CGO_ENABLED", "0").
		WithEnvVariable("GOEXPERIMENT", "jsonv2").
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build")).
		WithDirectory("/src", t.Source).
		WithWorkdir("/src")

	outputs := dag.Directory()
	for _, platform := range platforms {
		goos, goarch, _ := strings.Cut(string(platform), "/")
		out := path.Join(goos, goarch) + "/"

		bin := golang.
			WithEnvVariable("GOOS", goos).
			WithEnvVariable("GOARCH", goarch).
			WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", out, "./cli/eduverse"})

		outputs = outputs.WithDirectory(out, bin.Directory(out))
	}
	return outputs
}

// BuildRelease builds with version, commit and build time stamped into
// "eduverse version".
func (t *Eduverse) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	const pkg = "github.com/papercomputeco/eduverse/pkg/utils"

	ldflags := strings.Join([]string{
		"-s", "-w",
		fmt.Sprintf("-X '%s.Version=%s'", pkg, version),
		fmt.Sprintf("-X '%s.Sha=%s'", pkg, commit),
		fmt.Sprintf("-X '%s.Buildtime=%s'", pkg, time.Now().UTC().Format(time.RFC3339)),
	}, " ")

	return t.Build(ctx, ldflags)
}
