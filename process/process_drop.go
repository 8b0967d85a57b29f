package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"smartstock/pkg/ingest"
)

// Global DB handle for helper funcs
var db *gorm.DB

// global flags (parsed in main)
var verbose bool

func mustInitDBFromEnv() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatalf("DB_DSN must be set in environment to run this tool")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	return gdb
}

// Main: scans a drop directory for sales files, pushes each through the
// ingestion pipeline, optional watch mode for continuous operation.
func main() {
	dirFlag := flag.String("dir", "drop", "directory to scan for sales data files")
	tenantID := flag.Uint("tenant-id", 1, "tenant the ingested files belong to")
	uploadDir := flag.String("upload-dir", envOr("UPLOAD_BASE", "uploads"), "directory stored copies are written to")
	dryRun := flag.Bool("dry-run", false, "Skip all DB writes; just list candidate files")
	watch := flag.Bool("watch", false, "Watch directory for new files")
	workers := flag.Int("workers", 0, "Worker pool size (default NumCPU)")
	flag.BoolVar(&verbose, "verbose", false, "Verbose per-file logging")
	flag.Parse()

	if *dryRun {
		log.Printf("Dry-run: scanning %s (no DB interaction)", *dirFlag)
		files := listDataFiles(*dirFlag)
		log.Printf("Found %d candidate files", len(files))
		for _, f := range files {
			logV("candidate %s", f)
		}
		return
	}

	db = mustInitDBFromEnv()
	if err := os.MkdirAll(*uploadDir, 0755); err != nil {
		log.Fatalf("failed to create upload dir %s: %v", *uploadDir, err)
	}
	pipeline := ingest.NewPipeline(db, *uploadDir)

	files := listDataFiles(*dirFlag)
	log.Printf("Scanning %d files (workers=%d, tenant=%d)", len(files), effectiveWorkers(*workers), *tenantID)
	runWorkerPool(*dirFlag, *tenantID, pipeline, files, effectiveWorkers(*workers))

	if *watch {
		if err := watchDirectory(*dirFlag, *tenantID, pipeline, effectiveWorkers(*workers)); err != nil {
			log.Fatalf("watch failed: %v", err)
		}
	}
}

func effectiveWorkers(w int) int {
	if w <= 0 {
		return runtime.NumCPU()
	}
	return w
}

func logV(format string, args ...any) {
	if verbose {
		log.Printf(format, args...)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func listDataFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !isSupportedExt(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

func isSupportedExt(name string) bool {
	// ignore editor/office temp files so half-written saves are not ingested
	if strings.HasPrefix(name, "~") || strings.HasPrefix(name, ".") {
		return false
	}
	return ingest.AllowedExtensions[strings.ToLower(filepath.Ext(name))]
}

func watchDirectory(dir string, tenantID uint, pipeline *ingest.Pipeline, workers int) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	log.Printf("Watching %s (debounced) ...", dir)

	fileCh := make(chan string, 256)
	go func() {
		// simple debounce map of pending files
		pending := map[string]time.Time{}
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					close(fileCh)
					return
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
					name := filepath.Base(ev.Name)
					if !isSupportedExt(name) {
						continue
					}
					pending[name] = time.Now()
				}
			case <-ticker.C:
				now := time.Now()
				for name, t := range pending {
					if now.Sub(t) > 300*time.Millisecond { // stable
						fileCh <- name
						delete(pending, name)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					close(fileCh)
					return
				}
				log.Printf("watch error: %v", err)
			}
		}
	}()

	// Use worker pool for watch events too
	go runWorkerPool(dir, tenantID, pipeline, nil, workers, fileCh)
	// block forever (Ctrl+C to exit)
	select {}
}

// worker pool orchestrator
func runWorkerPool(dir string, tenantID uint, pipeline *ingest.Pipeline, initial []string, workers int, extraCh ...<-chan string) {
	fileCh := make(chan string, 1024)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range fileCh {
				processSingleFile(dir, name, tenantID, pipeline)
			}
		}()
	}
	// feed initial
	go func() {
		for _, f := range initial {
			fileCh <- f
		}
		// also relay from extra channels if provided
		for _, ch := range extraCh {
			go func(c <-chan string) {
				for n := range c {
					fileCh <- n
				}
			}(ch)
		}
		// if no extraCh (scan only) close when done
		if len(extraCh) == 0 {
			close(fileCh)
		}
	}()
	if len(extraCh) == 0 {
		wg.Wait()
	}
}

// processSingleFile pushes one dropped file through the pipeline and moves it
// to <dir>/processed on success so reruns are idempotent. Failed files stay in
// place; their job rows carry the error.
func processSingleFile(dir, name string, tenantID uint, pipeline *ingest.Pipeline) {
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("ERROR read %s: %v", name, err)
		return
	}

	result, err := pipeline.Process(data, name, tenantID, nil)
	if err != nil {
		log.Printf("ERROR ingest %s: %v", name, err)
		return
	}
	log.Printf("INGESTED %s job=%d rows=%d extracted=%v sales=%d",
		name, result.Job.ID, result.Profile.TotalRows, result.ExtractionApplied, result.SalesInserted)
	logV("stored as %s encoding=%s", result.Job.StoredFilename, result.Job.Encoding)

	if err := moveToProcessed(dir, name); err != nil {
		log.Printf("WARN failed to move processed file %s: %v", name, err)
	} else {
		logV("moved processed %s", name)
	}
}

// moveToProcessed moves a file into <dir>/processed/<name>. It attempts an
// atomic rename and falls back to copy+remove across filesystems.
func moveToProcessed(dir, name string) error {
	processedDir := filepath.Join(dir, "processed")
	if err := os.MkdirAll(processedDir, 0o755); err != nil {
		return err
	}
	src := filepath.Join(dir, name)
	dst := filepath.Join(processedDir, name)
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	return copyRemove(src, dst)
}

func copyRemove(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return os.Remove(src)
}
