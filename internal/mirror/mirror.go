// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mirror orchestrates a full mirror run: course selection, module and
// item traversal, and writing the local directory tree. Failures are isolated
// at every level, so one broken item, module, or course never takes down the
// rest of the run.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/canvas-mirror/internal/assets"
	"github.com/pdiddy/canvas-mirror/internal/canvas"
	"github.com/pdiddy/canvas-mirror/internal/manifest"
	"github.com/pdiddy/canvas-mirror/internal/render"
	"github.com/pdiddy/canvas-mirror/internal/rewrite"
	"github.com/pdiddy/canvas-mirror/pkg/types"
)

// manifestName is the download manifest database, kept at the output root so
// repeat runs against the same tree skip files already on disk.
const manifestName = ".canvas-mirror.db"

// Summary reports what a run accomplished.
type Summary struct {
	Courses         int
	CoursesSkipped  int
	Modules         int
	Items           int
	FilesDownloaded int64
}

// Mirror runs the pipeline against one Canvas instance.
type Mirror struct {
	client    *canvas.Client
	cfg       types.MirrorConfig
	registry  *assets.Registry
	fetcher   *assets.Fetcher
	store     *manifest.Store
	converter *render.Converter
}

// New prepares a mirror rooted at cfg.OutputDir. The download manifest from
// any previous run seeds the registry, so files still present on disk are not
// fetched again. Call Close when done.
func New(client *canvas.Client, cfg types.MirrorConfig) (*Mirror, error) {
	store, err := manifest.Open(filepath.Join(cfg.OutputDir, manifestName))
	if err != nil {
		return nil, fmt.Errorf("opening download manifest: %w", err)
	}

	registry := assets.NewRegistry()
	if n := seedRegistry(registry, store); n > 0 {
		logrus.WithField("files", n).Info("reusing downloads from previous run")
	}

	return &Mirror{
		client:    client,
		cfg:       cfg,
		registry:  registry,
		fetcher:   assets.NewFetcher(registry, store),
		store:     store,
		converter: render.NewConverter(),
	}, nil
}

// Close releases the manifest database.
func (m *Mirror) Close() error {
	return m.store.Close()
}

// seedRegistry loads manifest entries whose files still exist on disk. A row
// pointing at a deleted file is ignored, which forces a fresh download.
func seedRegistry(reg *assets.Registry, store *manifest.Store) int {
	entries, err := store.Entries()
	if err != nil {
		logrus.WithError(err).Warn("reading download manifest, starting fresh")
		return 0
	}
	seeded := 0
	for _, e := range entries {
		if _, err := os.Stat(e.LocalPath); err != nil {
			continue
		}
		if _, inserted := reg.Record(e.ID, e.LocalPath); inserted {
			seeded++
		}
	}
	return seeded
}

// Run mirrors the given courses into the output directory and returns a
// summary. A course that fails to enumerate is logged and skipped; the run
// itself only fails when the output root cannot be created.
func (m *Mirror) Run(ctx context.Context, courses []*canvas.Course) (*Summary, error) {
	if err := os.MkdirAll(m.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	summary := &Summary{}
	for _, course := range courses {
		log := logrus.WithFields(logrus.Fields{"course": course.Name, "course_id": course.ID})
		log.Info("mirroring course")

		if err := m.mirrorCourse(ctx, course, summary); err != nil {
			summary.CoursesSkipped++
			switch {
			case errors.Is(err, canvas.ErrUnauthorized):
				log.Error("unauthorized, skipping course")
			case errors.Is(err, canvas.ErrForbidden):
				log.Error("access forbidden, skipping course")
			default:
				log.WithError(err).Error("skipping course")
			}
			continue
		}
		summary.Courses++
	}
	summary.FilesDownloaded = m.fetcher.Downloaded()
	return summary, nil
}

// mirrorCourse writes one course directory: a subdirectory with README.md per
// module plus a course.yaml metadata file. Module failures are contained by
// mirrorModule; an error here means the course itself could not be enumerated.
func (m *Mirror) mirrorCourse(ctx context.Context, course *canvas.Course, summary *Summary) error {
	courseName := course.Name
	if strings.TrimSpace(courseName) == "" {
		courseName = fmt.Sprintf("Untitled_Course_%d", course.ID)
	}
	modules, err := course.Modules(ctx)
	if err != nil {
		return fmt.Errorf("listing modules: %w", err)
	}

	// The course directory is only materialized once enumeration succeeds,
	// so a skipped course leaves nothing behind.
	courseDir := filepath.Join(m.cfg.OutputDir, assets.SanitizeFilename(courseName))
	if err := os.MkdirAll(courseDir, 0o755); err != nil {
		return fmt.Errorf("creating course directory: %w", err)
	}

	resolver := func(ctx context.Context, id int64) (assets.RemoteFile, error) {
		return course.File(ctx, id)
	}
	renderer := render.NewItemRenderer(course, rewrite.New(m.fetcher, resolver), m.fetcher, m.converter)

	for _, module := range modules {
		m.mirrorModule(ctx, renderer, module, courseDir, summary)
		summary.Modules++
	}

	if err := m.writeCourseMeta(course, courseDir, len(modules)); err != nil {
		logrus.WithError(err).Warn("writing course metadata")
	}
	return nil
}

// mirrorModule renders one module's items into <courseDir>/<module>/README.md.
// If the item listing fails the README still gets written, carrying an error
// marker instead of content.
func (m *Mirror) mirrorModule(ctx context.Context, renderer *render.ItemRenderer, module *canvas.Module, courseDir string, summary *Summary) {
	moduleName := module.Name
	if strings.TrimSpace(moduleName) == "" {
		moduleName = fmt.Sprintf("Untitled_Module_%d", module.ID)
	}
	log := logrus.WithField("module", moduleName)
	log.Info("mirroring module")

	moduleDir := filepath.Join(courseDir, assets.SanitizeFilename(moduleName))
	if err := os.MkdirAll(moduleDir, 0o755); err != nil {
		log.WithError(err).Error("creating module directory, skipping module")
		return
	}

	var doc strings.Builder
	fmt.Fprintf(&doc, "# Module: %s\n\n", moduleName)

	items, err := module.Items(ctx)
	if err != nil {
		log.WithError(err).Error("listing module items")
		doc.WriteString("**ERROR: Could not retrieve items for this module.**\n")
		m.writeModuleDoc(moduleDir, doc.String())
		return
	}

	for _, item := range items {
		doc.WriteString(renderer.RenderItem(ctx, item, moduleDir))
		summary.Items++
	}
	m.writeModuleDoc(moduleDir, doc.String())
}

func (m *Mirror) writeModuleDoc(moduleDir, content string) {
	path := filepath.Join(moduleDir, "README.md")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		logrus.WithField("path", path).WithError(err).Error("writing module document")
	}
}

// writeCourseMeta records course identity and run time as course.yaml.
func (m *Mirror) writeCourseMeta(course *canvas.Course, courseDir string, moduleCount int) error {
	meta := types.CourseMeta{
		ID:          course.ID,
		Name:        course.Name,
		CourseCode:  course.CourseCode,
		MirroredAt:  time.Now().UTC(),
		ModuleCount: moduleCount,
	}
	data, err := yaml.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("marshaling course metadata: %w", err)
	}
	return os.WriteFile(filepath.Join(courseDir, "course.yaml"), data, 0o644)
}

// ResolveCourses turns the --course-ids selection into course handles. With an
// empty selection every visible course is mirrored. Unparseable and unknown
// IDs are logged and dropped rather than failing the run.
func ResolveCourses(ctx context.Context, client *canvas.Client, rawIDs []string) ([]*canvas.Course, error) {
	if len(rawIDs) == 0 {
		return client.Courses(ctx)
	}

	var courses []*canvas.Course
	for _, raw := range rawIDs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			logrus.WithField("course_id", raw).Warn("ignoring non-numeric course ID")
			continue
		}
		course, err := client.Course(ctx, id)
		if err != nil {
			if errors.Is(err, canvas.ErrNotFound) {
				logrus.WithField("course_id", id).Warn("course not found, skipping")
			} else {
				logrus.WithField("course_id", id).WithError(err).Error("fetching course, skipping")
			}
			continue
		}
		courses = append(courses, course)
	}
	return courses, nil
}
