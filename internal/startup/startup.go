package startup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"video-catalog/internal/logging"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// Config holds all application configuration
type Config struct {
	MediaDir        string
	DataDir         string
	Port            string
	MetricsEnabled  bool
	LogHealthChecks bool

	CacheCapacity   int
	PreviewPosition float64
	ThumbnailWidth  int
	ThumbnailHeight int
	WatchEnabled    bool

	// Derived
	DatabasePath string
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	mediaDir := getEnv("MEDIA_DIR", "/media")
	dataDir := getEnv("DATA_DIR", "/data")
	port := getEnv("PORT", "8080")
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)
	logHealthChecks := getEnvBool("LOG_HEALTH_CHECKS", false)
	cacheCapacity := getEnvInt("CACHE_CAPACITY", 100)
	previewPosition := getEnvFloat("PREVIEW_POSITION", 0.1)
	thumbWidth := getEnvInt("THUMBNAIL_WIDTH", 320)
	thumbHeight := getEnvInt("THUMBNAIL_HEIGHT", 180)
	watchEnabled := getEnvBool("WATCH_ENABLED", true)

	logging.Info("  MEDIA_DIR:         %s", mediaDir)
	logging.Info("  DATA_DIR:          %s", dataDir)
	logging.Info("  PORT:              %s", port)
	logging.Info("  METRICS_ENABLED:   %v", metricsEnabled)
	logging.Info("  CACHE_CAPACITY:    %d", cacheCapacity)
	logging.Info("  PREVIEW_POSITION:  %g", previewPosition)
	logging.Info("  THUMBNAIL_SIZE:    %dx%d", thumbWidth, thumbHeight)
	logging.Info("  WATCH_ENABLED:     %v", watchEnabled)
	logging.Info("  LOG_HEALTH_CHECKS: %v", logHealthChecks)
	logging.Info("  LOG_LEVEL:         %s", logging.GetLevel())

	if cacheCapacity < 1 {
		logging.Warn("  Invalid CACHE_CAPACITY, using default: 100")
		cacheCapacity = 100
	}
	if previewPosition <= 0 || previewPosition > 1 {
		logging.Warn("  Invalid PREVIEW_POSITION, using default: 0.1")
		previewPosition = 0.1
	}
	if thumbWidth < 1 || thumbHeight < 1 {
		logging.Warn("  Invalid thumbnail size, using default: 320x180")
		thumbWidth, thumbHeight = 320, 180
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	var err error
	mediaDir, err = filepath.Abs(mediaDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve media directory path: %w", err)
	}
	logging.Info("  Media directory (absolute): %s", mediaDir)

	dataDir, err = filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	logging.Info("  Data directory (absolute):  %s", dataDir)

	// Media directory issues are a warning: the folder may be mounted
	// later, and ingestion surfaces its own directory errors.
	if err := ensureDirectory(mediaDir, "media"); err != nil {
		logging.Warn("  Media directory issue: %v", err)
	}

	if err := ensureDirectory(dataDir, "data"); err != nil {
		return nil, fmt.Errorf("data directory error: %w", err)
	}
	logging.Debug("  Testing data directory write access...")
	if err := testWriteAccess(dataDir); err != nil {
		return nil, fmt.Errorf("data directory is not writable (required for catalog): %w", err)
	}
	logging.Info("  [OK] Data directory is writable")

	return &Config{
		MediaDir:        mediaDir,
		DataDir:         dataDir,
		Port:            port,
		MetricsEnabled:  metricsEnabled,
		LogHealthChecks: logHealthChecks,
		CacheCapacity:   cacheCapacity,
		PreviewPosition: previewPosition,
		ThumbnailWidth:  thumbWidth,
		ThumbnailHeight: thumbHeight,
		WatchEnabled:    watchEnabled,
		DatabasePath:    filepath.Join(dataDir, "catalog.db"),
	}, nil
}

// LogCatalogInit logs catalog initialization
func LogCatalogInit(duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("CATALOG INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Catalog initialized in %v", duration)
}

// LogExtractorInit logs media tool availability for the prober and
// thumbnail extractor
func LogExtractorInit(workers int) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("MEDIA TOOLING")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Thumbnail workers: %d", workers)

	for _, tool := range []string{"ffprobe", "ffmpeg"} {
		if err := checkTool(tool); err != nil {
			logging.Warn("  %s check failed: %v", tool, err)
			logging.Warn("  Probing/thumbnails will fall back to defaults")
		} else {
			logging.Info("  [OK] %s is available", tool)
		}
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Route might not have methods specified
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs registered HTTP routes at debug level
func LogHTTPRoutes(router *mux.Router) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if !logging.IsDebugEnabled() {
		return
	}

	routes, err := GetRoutes(router)
	if err != nil {
		logging.Warn("error walking routes: %v", err)
	}
	logging.Debug("  Registered routes (%d total):", len(routes))
	for _, route := range routes {
		logging.Debug("    %-6s %s", route.Method, route.Path)
	}
}

// LogServerStarted logs successful server start
func LogServerStarted(port string, metricsEnabled bool, startupDuration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time: %v", startupDuration)
	logging.Info("")
	logging.Info("  Application:  http://localhost:%s", port)
	if metricsEnabled {
		logging.Info("  Metrics:      http://localhost:%s/metrics", port)
	} else {
		logging.Info("  Metrics:      DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// ThumbnailTarget returns the configured thumbnail size as a point.
func (c *Config) ThumbnailTarget() (int, int) {
	return c.ThumbnailWidth, c.ThumbnailHeight
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
 _    ___     __            _______       __        __
| |  / (_)___/ /__  ____   / ____/ |     / /_____ _/ /___  ____ _
| | / / / __  / _ \/ __ \ / /    | | /| / / __/ __' / / _ \/ __' /
| |/ / / /_/ /  __/ /_/ // /___  | |/ |/ / /_/ /_/ / / /_/ / /_/ /
|___/_/\__,_/\___/\____/ \____/  |__/|__/\__/\__,_/_/\____/\__, /
                                                          /____/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}
	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}
	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func checkTool(name string) error {
	path, err := exec.LookPath(name)
	if err != nil {
		return fmt.Errorf("%s not found in PATH", name)
	}
	logging.Debug("  %s path: %s", name, path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, name, "-version").Output()
	if err != nil {
		return fmt.Errorf("failed to get %s version: %w", name, err)
	}
	if lines := strings.Split(string(output), "\n"); len(lines) > 0 {
		logging.Debug("  %s version: %s", name, strings.TrimSpace(lines[0]))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		logging.Warn("Invalid float value for %s: %q, using default: %g", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
