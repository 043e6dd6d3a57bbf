package app

import (
	"fmt"

	"github.com/WhiteFoxMax/dupemgr/pkg/database"
	"github.com/WhiteFoxMax/dupemgr/pkg/logger"
)

type ReportOptions struct {
	ConfigFile string
	DBPath     string
	LogLevel   string
}

// OpenReports 打开报告数据库，路径优先取命令行参数
func OpenReports(opts *ReportOptions) (*database.Database, error) {
	cfg, err := loadConfig(opts.ConfigFile)
	if err != nil {
		return nil, err
	}

	logLevel := cfg.Logging.Level
	if opts.LogLevel != "" {
		logLevel = opts.LogLevel
	}
	if err := logger.Init(logLevel, cfg.Logging.File); err != nil {
		return nil, err
	}

	dbPath := cfg.Database.Path
	if opts.DBPath != "" {
		dbPath = opts.DBPath
	}
	if dbPath == "" {
		return nil, fmt.Errorf("未配置报告数据库，请使用 --db 或在配置文件中设置 database.path")
	}

	return database.NewDatabase(dbPath)
}
