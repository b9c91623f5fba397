package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Fixed capture profiles. The video profile is deliberately lower than the
// camera can do so a day of driving fits on a small USB stick.
const (
	PreviewWidth     = 1280
	PreviewHeight    = 720
	PreviewFrameRate = 10

	VideoWidth           = 1280
	VideoHeight          = 720
	VideoCaptureRate     = 20
	VideoOutputFrameRate = 10
	VideoCodec           = "mpeg4"
	VideoFourCC          = "xvid"
	VideoExtension       = ".avi"

	ImageExtension = ".png"

	// DefaultRepeatSeconds is used by repeat/setTime when no argument is given.
	DefaultRepeatSeconds = 15
)

// Config contains all configuration for the application
type Config struct {
	// Storage Configuration
	StorageRoot    string // e.g. /media/pi/0410-673B/dashcam; must exist for the controller to start
	MinFreeSpaceMB int
	DiskCheckSpec  string // cron spec for the storage watchdog

	// Bluetooth serial (RFCOMM) Configuration
	SerialPort     string
	SerialBaudRate int

	// Camera Configuration
	CameraDevice      string
	CameraInputFormat string
	FFmpegPath        string

	// Database Configuration
	DatabasePath string

	// Logging
	LogFile string

	// Monitoring
	MonitorInterval time.Duration

	// Archive (S3 compatible) Configuration
	ArchiveEnabled     bool
	ArchiveAccessKey   string
	ArchiveSecretKey   string
	ArchiveBucket      string
	ArchiveEndpoint    string
	ArchiveRegion      string
	ArchivePrefix      string
	ArchiveSpec        string
	ArchiveConcurrency int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() Config {
	cfg := Config{
		StorageRoot:    getEnv("STORAGE_ROOT", "/media/pi/0410-673B/dashcam"),
		MinFreeSpaceMB: getEnvInt("MIN_FREE_SPACE_MB", 512),
		DiskCheckSpec:  getEnv("DISK_CHECK_SPEC", "0 */5 * * * *"),

		SerialPort:     getEnv("SERIAL_PORT", "/dev/rfcomm0"),
		SerialBaudRate: getEnvInt("SERIAL_BAUD_RATE", 9600),

		CameraDevice:      getEnv("CAMERA_DEVICE", "/dev/video0"),
		CameraInputFormat: getEnv("CAMERA_INPUT_FORMAT", "v4l2"),
		FFmpegPath:        getEnv("FFMPEG_PATH", "ffmpeg"),

		DatabasePath: getEnv("DATABASE_PATH", "./data/dashcam.db"),
		LogFile:      getEnv("LOG_FILE", defaultLogFile()),

		MonitorInterval: time.Duration(getEnvInt("MONITOR_INTERVAL_SECONDS", 300)) * time.Second,

		ArchiveEnabled:     getEnvBool("ARCHIVE_ENABLED", false),
		ArchiveAccessKey:   getEnv("ARCHIVE_ACCESS_KEY", ""),
		ArchiveSecretKey:   getEnv("ARCHIVE_SECRET_KEY", ""),
		ArchiveBucket:      getEnv("ARCHIVE_BUCKET", ""),
		ArchiveEndpoint:    getEnv("ARCHIVE_ENDPOINT", ""),
		ArchiveRegion:      getEnv("ARCHIVE_REGION", "auto"),
		ArchivePrefix:      getEnv("ARCHIVE_PREFIX", "dashcam"),
		ArchiveSpec:        getEnv("ARCHIVE_SPEC", "0 */15 * * * *"),
		ArchiveConcurrency: getEnvInt("ARCHIVE_CONCURRENCY", 1),
	}

	if cfg.ArchiveConcurrency < 1 {
		cfg.ArchiveConcurrency = 1
	}

	log.Printf("Storage Root: %s (min free %d MB)", cfg.StorageRoot, cfg.MinFreeSpaceMB)
	log.Printf("Serial Port: %s @ %d baud", cfg.SerialPort, cfg.SerialBaudRate)
	log.Printf("Camera: %s (%s) via %s", cfg.CameraDevice, cfg.CameraInputFormat, cfg.FFmpegPath)
	log.Printf("Archive Enabled: %v", cfg.ArchiveEnabled)

	return cfg
}

// EnsurePaths creates necessary paths
func EnsurePaths(config Config) {
	dbDir := filepath.Dir(config.DatabasePath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		log.Printf("Failed to create database directory %s: %v", dbDir, err)
	}
}

func defaultLogFile() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "dashcam.log"
	}
	return filepath.Join(cwd, "dashcam.log")
}

// getEnv returns environment variable or fallback value
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		log.Printf("Warning: invalid integer for %s=%q, using %d", key, value, fallback)
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		log.Printf("Warning: invalid boolean for %s=%q, using %v", key, value, fallback)
		return fallback
	}
	return b
}
