package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dashcam/camera"
	"dashcam/config"
	"dashcam/cron"
	"dashcam/database"
	"dashcam/monitoring"
	"dashcam/recording"
	"dashcam/session"
	"dashcam/signaling"
	"dashcam/storage"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded, using environment: %v", err)
	}

	cfg := config.LoadConfig()

	logFile, err := setupLogging(cfg.LogFile)
	if err != nil {
		log.Printf("Failed to open log file %s: %v", cfg.LogFile, err)
	} else {
		defer logFile.Close()
	}

	// Without the USB drive there is nothing to record to; skip the whole
	// session without touching the serial link.
	if err := storage.CheckRoot(cfg.StorageRoot); err != nil {
		log.Printf("[MAIN] %v: storage root not found, dashcam terminated", err)
		return
	}

	if err := run(cfg); err != nil {
		log.Fatalf("[MAIN] dashcam stopped with error: %v", err)
	}
	log.Printf("[MAIN] dashcam successfully terminated")
}

// setupLogging tees the standard logger into path
func setupLogging(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	return f, nil
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config.EnsurePaths(cfg)

	dir, err := storage.OpenSessionDir(cfg.StorageRoot, time.Now())
	if err != nil {
		return fmt.Errorf("failed to open session directory: %w", err)
	}
	log.Printf("[MAIN] Session directory: %s", dir.Path)

	db, sessionID := openCatalog(cfg, dir)
	if db != nil {
		defer db.Close()
	}

	messages := signaling.NewMessageQueue()
	source := camera.NewFFmpegSource(cfg.FFmpegPath, cfg.CameraDevice, cfg.CameraInputFormat)
	preview := camera.StreamConfig{
		Width:     config.PreviewWidth,
		Height:    config.PreviewHeight,
		FrameRate: config.PreviewFrameRate,
	}

	capture := camera.NewCaptureService(source, preview, messages)
	if err := capture.Start(ctx); err != nil {
		return fmt.Errorf("failed to start camera: %w", err)
	}

	transport, err := signaling.OpenSerial(cfg.SerialPort, cfg.SerialBaudRate)
	if err != nil {
		capture.Stop()
		return err
	}

	snapshots := recording.NewSnapshotWriter(capture, dir.Path, messages)
	encoder := recording.NewFFmpegEncoder(cfg.FFmpegPath)
	if db != nil {
		snapshots.UseCatalog(db, sessionID)
	}

	controller := session.NewController(session.Options{
		Transport: transport,
		Messages:  messages,
		Capture:   capture,
		Snapshots: snapshots,
		NewRepeat: func(interval time.Duration) session.RepeatRunner {
			return recording.NewRepeatTask(snapshots, messages, interval)
		},
		NewVideo: func() session.VideoRunner {
			video := recording.NewVideoTask(source, encoder, recording.DefaultVideoConfig(), dir.Path, messages)
			if db != nil {
				video.UseCatalog(db, sessionID)
			}
			return video
		},
	})

	storageCheck := cron.NewStorageCheckCron(cfg.StorageRoot, cfg.MinFreeSpaceMB, messages)
	if err := storageCheck.Start(cfg.DiskCheckSpec); err != nil {
		log.Printf("[MAIN] Storage watchdog disabled: %v", err)
	} else {
		defer storageCheck.Stop()
	}

	if archiveCron := startArchive(ctx, cfg, db); archiveCron != nil {
		defer archiveCron.Stop()
	}

	monitoring.StartMonitoring(ctx, cfg.MonitorInterval)

	runErr := controller.Run(ctx)

	if db != nil {
		if err := db.EndSession(sessionID, time.Now()); err != nil {
			log.Printf("[MAIN] Failed to close session in catalog: %v", err)
		}
	}

	if errors.Is(runErr, signaling.ErrTransportDisconnected) {
		return fmt.Errorf("lost connection to phone: %w", runErr)
	}
	return runErr
}

// openCatalog records the session in the media catalog. The catalog is
// optional: recording carries on without it.
func openCatalog(cfg config.Config, dir storage.SessionDir) (*database.SQLiteDB, string) {
	db, err := database.NewSQLiteDB(cfg.DatabasePath)
	if err != nil {
		log.Printf("[MAIN] Media catalog unavailable: %v", err)
		return nil, ""
	}

	id := uuid.New().String()
	err = db.CreateSession(database.SessionRecord{
		ID:        id,
		Date:      dir.Date,
		Number:    dir.Number,
		Path:      dir.Path,
		StartedAt: time.Now(),
	})
	if err != nil {
		log.Printf("[MAIN] Failed to record session, catalog disabled: %v", err)
		db.Close()
		return nil, ""
	}
	return db, id
}

func startArchive(ctx context.Context, cfg config.Config, db *database.SQLiteDB) *cron.ArchiveCron {
	if !cfg.ArchiveEnabled {
		return nil
	}
	if db == nil {
		log.Printf("[MAIN] Archive enabled but the media catalog is unavailable, skipping")
		return nil
	}

	archive, err := storage.NewArchive(storage.ArchiveConfig{
		AccessKey: cfg.ArchiveAccessKey,
		SecretKey: cfg.ArchiveSecretKey,
		Bucket:    cfg.ArchiveBucket,
		Endpoint:  cfg.ArchiveEndpoint,
		Region:    cfg.ArchiveRegion,
	})
	if err != nil {
		log.Printf("[MAIN] Archive disabled: %v", err)
		return nil
	}

	archiveCron := cron.NewArchiveCron(db, archive, cfg.StorageRoot, cfg.ArchivePrefix, cfg.ArchiveConcurrency)
	if err := archiveCron.Start(ctx, cfg.ArchiveSpec); err != nil {
		log.Printf("[MAIN] Archive disabled: %v", err)
		return nil
	}
	return archiveCron
}
