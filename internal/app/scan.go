package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/WhiteFoxMax/dupemgr/internal"
	"github.com/WhiteFoxMax/dupemgr/pkg/config"
	"github.com/WhiteFoxMax/dupemgr/pkg/database"
	"github.com/WhiteFoxMax/dupemgr/pkg/deduplicator"
	"github.com/WhiteFoxMax/dupemgr/pkg/logger"
	"github.com/WhiteFoxMax/dupemgr/pkg/safety"
)

// ScanOptions 命令行参数，零值表示使用配置文件中的值
type ScanOptions struct {
	Root        string
	ConfigFile  string
	Workers     int
	PartialSize int64
	Exclude     []string
	MinSize     int64
	Keep        string
	DBPath      string
	LogLevel    string
	Verbose     bool

	// ProgressInterval 进度日志间隔，0 表示不输出
	ProgressInterval time.Duration
}

// RunScan 加载配置并执行一次完整扫描。
// 收到 SIGINT/SIGTERM 时取消扫描，返回部分结果和 ErrScanCancelled。
func RunScan(ctx context.Context, opts *ScanOptions) (*internal.ScanResult, error) {
	cfg, err := loadConfig(opts.ConfigFile)
	if err != nil {
		return nil, err
	}

	logLevel := cfg.Logging.Level
	if opts.LogLevel != "" {
		logLevel = opts.LogLevel
	}
	if opts.Verbose {
		logLevel = "debug"
	}
	if err := logger.Init(logLevel, cfg.Logging.File); err != nil {
		return nil, err
	}
	defer logger.Close()
	logger.Get().Info().Msg("加载配置完成")

	engineOpts, err := engineOptions(cfg, opts)
	if err != nil {
		return nil, err
	}

	dbPath := cfg.Database.Path
	if opts.DBPath != "" {
		dbPath = opts.DBPath
	}
	var db *database.Database
	if dbPath != "" {
		db, err = database.NewDatabase(dbPath)
		if err != nil {
			return nil, err
		}
		defer db.Close()
	}

	engine := deduplicator.NewEngine(engineOpts)
	scan, err := engine.StartScan(ctx, opts.Root)
	if err != nil {
		return nil, err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var ticker <-chan time.Time
	if opts.ProgressInterval > 0 {
		t := time.NewTicker(opts.ProgressInterval)
		defer t.Stop()
		ticker = t.C
	}

wait:
	for {
		select {
		case <-scan.Done():
			break wait
		case sig := <-sigChan:
			logger.Get().Warn().Msgf("收到信号 %v，正在取消扫描...", sig)
			scan.Cancel()
		case <-ticker:
			logger.Get().Info().Msg(scan.Poll().String())
		}
	}

	result, err := scan.Result()
	if result == nil {
		return nil, err
	}

	if db != nil {
		if saveErr := db.SaveScan(result); saveErr != nil {
			return result, errors.Join(err, saveErr)
		}
	}

	return result, err
}

func loadConfig(file string) (*config.Config, error) {
	if file != "" {
		return config.LoadFile(file)
	}
	return config.Load()
}

func engineOptions(cfg *config.Config, opts *ScanOptions) (deduplicator.Options, error) {
	keepStr := cfg.Safety.Keep
	if opts.Keep != "" {
		keepStr = opts.Keep
	}
	keep, err := safety.ParseKeepPolicy(keepStr)
	if err != nil {
		return deduplicator.Options{}, err
	}

	eo := deduplicator.Options{
		WalkWorkers: cfg.Scanner.WalkWorkers,
		Exclude:     append(cfg.Scanner.Exclude, opts.Exclude...),
		MinSize:     cfg.Scanner.MinSize,
		HashWorkers: cfg.Hashing.Workers,
		PartialSize: int64(cfg.Hashing.PartialSize),
		BufferSize:  cfg.Hashing.BufferSize,
		Safety: safety.Options{
			ProtectedPaths: cfg.Safety.ProtectedPaths,
			Keep:           keep,
		},
	}

	if opts.Workers > 0 {
		eo.HashWorkers = opts.Workers
	}
	if opts.PartialSize > 0 {
		eo.PartialSize = opts.PartialSize
	}
	if opts.MinSize > 0 {
		eo.MinSize = opts.MinSize
	}

	logger.Get().Debug().
		Int("hash_workers", eo.HashWorkers).
		Int64("partial_size", eo.PartialSize).
		Int64("min_size", eo.MinSize).
		Strs("exclude", eo.Exclude).
		Str("keep", string(keep)).
		Msg("扫描参数")

	return eo, nil
}
