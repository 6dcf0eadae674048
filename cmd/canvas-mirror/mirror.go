package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/canvas-mirror/internal/canvas"
	"github.com/pdiddy/canvas-mirror/internal/mirror"
	"github.com/pdiddy/canvas-mirror/pkg/types"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultOutputDir = "canvas_output"
	defaultUserAgent = "canvas-mirror/0.1"
)

var mirrorCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Mirror courses into a local directory tree",
	Long: `Mirror enumerates courses, modules, and module items, converts page and
assignment HTML to Markdown, downloads embedded files, and writes one README.md
per module. Without --course-ids every course visible to the token is mirrored.`,
	RunE: runMirror,
}

func init() {
	mirrorCmd.Flags().String("api-url", "", "Canvas instance URL (e.g. https://canvas.instructure.com)")
	mirrorCmd.Flags().String("api-key", "", "Canvas API access token")
	mirrorCmd.Flags().StringSlice("course-ids", nil, "course IDs to mirror (default: all visible courses)")
	mirrorCmd.Flags().String("output-dir", defaultOutputDir, "directory to write the course tree under")
	mirrorCmd.Flags().Duration("timeout", defaultTimeout, "HTTP request timeout")

	viper.BindPFlag("api_url", mirrorCmd.Flags().Lookup("api-url"))
	viper.BindPFlag("api_key", mirrorCmd.Flags().Lookup("api-key"))
	viper.BindPFlag("output_dir", mirrorCmd.Flags().Lookup("output-dir"))

	rootCmd.AddCommand(mirrorCmd)
}

func runMirror(cmd *cobra.Command, args []string) error {
	apiURL := viper.GetString("api_url")
	apiKey := viper.GetString("api_key")
	if apiURL == "" || apiKey == "" {
		return fmt.Errorf("Canvas credentials missing: set --api-url and --api-key, or the CANVAS_API_URL and CANVAS_API_KEY environment variables")
	}

	courseIDs, _ := cmd.Flags().GetStringSlice("course-ids")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	outputDir := viper.GetString("output_dir")
	if outputDir == "" {
		outputDir = defaultOutputDir
	}

	cfg := types.MirrorConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: defaultUserAgent,
		},
		OutputDir: outputDir,
	}

	ctx := cmd.Context()
	client := canvas.NewClient(apiURL, apiKey, cfg.HTTPConfig)

	user, err := client.CurrentUser(ctx)
	if err != nil {
		if errors.Is(err, canvas.ErrUnauthorized) {
			return fmt.Errorf("Canvas rejected the API token: check CANVAS_API_KEY")
		}
		return fmt.Errorf("verifying credentials: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Authenticated as %s\n", user.Name)

	courses, err := mirror.ResolveCourses(ctx, client, courseIDs)
	if err != nil {
		return fmt.Errorf("listing courses: %w", err)
	}
	if len(courses) == 0 {
		return fmt.Errorf("no courses to mirror")
	}

	m, err := mirror.New(client, cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	summary, err := m.Run(ctx, courses)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(),
		"Mirrored %d course(s) (%d skipped): %d module(s), %d item(s), %d file(s) downloaded into %s\n",
		summary.Courses, summary.CoursesSkipped, summary.Modules, summary.Items,
		summary.FilesDownloaded, outputDir)
	return nil
}
