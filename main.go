package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/chazu/glowform/pkg/config"
	"github.com/chazu/glowform/pkg/design"
	"github.com/chazu/glowform/pkg/export"
	"github.com/chazu/glowform/pkg/kernel"
	"github.com/chazu/glowform/pkg/shapes"
	"github.com/chazu/glowform/pkg/stl"
)

// options holds the flag values shared by the commands.
type options struct {
	configPath string
	outDir     string
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:          "glowform",
		Short:        "Turn 2D outlines into printable lamp parts",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "TOML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log generator details")

	buildCmd := &cobra.Command{
		Use:   "build <script>",
		Short: "Evaluate a design script and write one STL per part",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, opts, args[0])
		},
	}
	buildCmd.Flags().StringVarP(&opts.outDir, "output", "o", ".", "Output directory for STL files and the manifest")
	rootCmd.AddCommand(buildCmd)

	geojsonCmd := &cobra.Command{
		Use:   "geojson <file>",
		Short: "Build parts from a GeoJSON FeatureCollection in millimetres",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGeoJSON(cmd, opts, args[0])
		},
	}
	geojsonCmd.Flags().StringVarP(&opts.outDir, "output", "o", ".", "Output directory for STL files and the manifest")
	rootCmd.AddCommand(geojsonCmd)

	inspectCmd := &cobra.Command{
		Use:   "inspect <file.stl>...",
		Short: "Print triangle count, watertightness and volume of binary STL files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args)
		},
	}
	rootCmd.AddCommand(inspectCmd)

	shapesCmd := &cobra.Command{
		Use:   "shapes",
		Short: "List the built-in tag outlines",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, n := range shapes.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
		},
	}
	rootCmd.AddCommand(shapesCmd)

	return rootCmd
}

// setup loads the configuration and installs the logger.
func setup(cmd *cobra.Command, opts *options) (*App, *config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	logger := cfg.Logger(cmd.ErrOrStderr())
	if opts.verbose {
		logger = logger.Level(zerolog.DebugLevel)
	}
	kernel.SetLogger(&logger)
	return NewAppWithConfig(cfg), cfg, nil
}

func runBuild(cmd *cobra.Command, opts *options, path string) error {
	app, _, err := setup(cmd, opts)
	if err != nil {
		return err
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	b, err := app.Export(string(source))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return write(cmd.OutOrStdout(), b, opts.outDir)
}

func runGeoJSON(cmd *cobra.Command, opts *options, path string) error {
	app, cfg, err := setup(cmd, opts)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	d, err := design.FromGeoJSON(data, cfg.Defaults())
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	b, err := app.ExportDesign(d)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return write(cmd.OutOrStdout(), b, opts.outDir)
}

// write stores the bundle and prints one line per part.
func write(w io.Writer, b *export.Bundle, dir string) error {
	if _, err := b.WriteDir(dir); err != nil {
		return err
	}
	for _, o := range b.Outputs {
		fmt.Fprintf(w, "%-32s %-12s %8d triangles\n", filepath.Join(dir, o.Filename), o.Material, o.Triangles)
	}
	kernel.Logger().Info().Str("bundle", b.ID.String()).Int("parts", len(b.Outputs)).Str("dir", dir).Msg("export complete")
	return nil
}

func runInspect(cmd *cobra.Command, paths []string) error {
	out := cmd.OutOrStdout()
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		m, name, err := stl.Decode(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}

		r := kernel.Analyze(m)
		lo, hi := m.Bounds()
		fmt.Fprintf(out, "File: %s\n", p)
		if name = strings.TrimSpace(name); name != "" {
			fmt.Fprintf(out, "Header: %s\n", name)
		}
		fmt.Fprintf(out, "Triangles: %d\n", r.Triangles)
		fmt.Fprintf(out, "Watertight: %t\n", r.Watertight())
		if r.BoundaryEdges > 0 || r.NonManifold > 0 {
			fmt.Fprintf(out, "Boundary edges: %d, non-manifold edges: %d\n", r.BoundaryEdges, r.NonManifold)
		}
		if r.Degenerate > 0 {
			fmt.Fprintf(out, "Degenerate triangles: %d\n", r.Degenerate)
		}
		fmt.Fprintf(out, "Volume: %.2f mm3\n", kernel.Volume(m))
		fmt.Fprintf(out, "Surface area: %.2f mm2\n", kernel.SurfaceArea(m))
		fmt.Fprintf(out, "Bounding box: %.2f,%.2f,%.2f - %.2f,%.2f,%.2f\n", lo.X, lo.Y, lo.Z, hi.X, hi.Y, hi.Z)
	}
	return nil
}
