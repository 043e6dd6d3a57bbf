// Package database 把扫描报告保存到 SQLite，便于之后查询和比较。
package database

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/WhiteFoxMax/dupemgr/internal"
	"github.com/WhiteFoxMax/dupemgr/pkg/logger"
)

// ErrScanNotFound 指定的扫描不存在
var ErrScanNotFound = errors.New("scan not found")

type Scan struct {
	ID                 string    `gorm:"primaryKey"`
	Root               string    `gorm:"not null"`
	State              string    `gorm:"not null"`
	TotalFiles         int       `gorm:"not null"`
	TotalBytes         int64     `gorm:"not null"`
	DuplicateFileCount int       `gorm:"not null"`
	ReclaimableBytes   int64     `gorm:"not null"`
	ErrorCount         int       `gorm:"not null"`
	StartedAt          time.Time `gorm:"not null"`
	FinishedAt         time.Time `gorm:"not null"`

	Groups []Group     `gorm:"foreignKey:ScanID;constraint:OnDelete:CASCADE"`
	Errors []ScanError `gorm:"foreignKey:ScanID;constraint:OnDelete:CASCADE"`
}

func (Scan) TableName() string {
	return "scans"
}

type Group struct {
	ID      int64    `gorm:"primaryKey"`
	ScanID  string   `gorm:"index;not null"`
	Digest  string   `gorm:"index;not null"`
	Size    int64    `gorm:"not null"`
	Members []Member `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
}

func (Group) TableName() string {
	return "duplicate_groups"
}

type Member struct {
	ID       int64     `gorm:"primaryKey"`
	GroupID  int64     `gorm:"index;not null"`
	Path     string    `gorm:"not null"`
	Modified time.Time `gorm:"not null"`
	MIME     string    `gorm:"not null;default:''"`
	Safe     bool      `gorm:"not null"`
	Reasons  string    `gorm:"not null;default:''"` // 逗号分隔
	Keep     bool      `gorm:"not null"`
}

func (Member) TableName() string {
	return "group_members"
}

type ScanError struct {
	ID      int64  `gorm:"primaryKey"`
	ScanID  string `gorm:"index;not null"`
	Path    string `gorm:"not null"`
	Stage   string `gorm:"not null"`
	Message string `gorm:"not null"`
}

func (ScanError) TableName() string {
	return "scan_errors"
}

type Database struct {
	db *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	expandedPath, err := expandPath(dbPath)
	if err != nil {
		logger.Get().Error().Err(err).Msg("扩展数据库路径失败")
		return nil, err
	}

	logger.Get().Info().Msgf("初始化数据库，路径: %s", expandedPath)

	if err := os.MkdirAll(filepath.Dir(expandedPath), 0755); err != nil {
		logger.Get().Error().Err(err).Msgf("创建数据库目录失败: %s", filepath.Dir(expandedPath))
		return nil, err
	}

	dsn := expandedPath + "?_pragma=journal_mode(WAL)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.Get().Error().Err(err).Msg("打开数据库连接失败")
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Get().Error().Err(err).Msg("获取数据库连接失败")
		return nil, err
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		logger.Get().Error().Err(err).Msg("创建数据库表失败")
		return nil, err
	}

	logger.Get().Info().Msg("数据库初始化完成")
	return &Database{db: db}, nil
}

func expandPath(path string) (string, error) {
	if len(path) >= 2 && path[0] == '~' && (path[1] == '/' || path[1] == '\\') {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

func createSchema(db *gorm.DB) error {
	return db.AutoMigrate(&Scan{}, &Group{}, &Member{}, &ScanError{})
}

// SaveScan 在一个事务内保存扫描汇总、重复组和错误。
// 同一个扫描 ID 重复保存会失败。
func (d *Database) SaveScan(result *internal.ScanResult) error {
	row := newScanRow(result)

	err := d.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(row).Error
	})
	if err != nil {
		logger.Get().Error().Err(err).Str("scan_id", result.ScanID).Msg("保存扫描报告失败")
		return err
	}

	logger.Get().Info().Str("scan_id", result.ScanID).
		Msgf("保存扫描报告成功: %d 个重复组, %d 个错误", len(row.Groups), len(row.Errors))
	return nil
}

// Scans 按开始时间倒序列出已保存的扫描，不含重复组明细
func (d *Database) Scans() ([]Scan, error) {
	var scans []Scan
	if err := d.db.Order("started_at DESC").Find(&scans).Error; err != nil {
		logger.Get().Error().Err(err).Msg("查询扫描列表失败")
		return nil, err
	}
	return scans, nil
}

// LoadScan 读取一次扫描的完整报告
func (d *Database) LoadScan(scanID string) (*Scan, error) {
	var scan Scan
	err := d.db.
		Preload("Groups", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Groups.Members", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Errors", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&scan, "id = ?", scanID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrScanNotFound
	}
	if err != nil {
		logger.Get().Error().Err(err).Str("scan_id", scanID).Msg("读取扫描报告失败")
		return nil, err
	}
	return &scan, nil
}

// GroupsByDigest 查询某个摘要在历次扫描中出现过的重复组
func (d *Database) GroupsByDigest(digest string) ([]Group, error) {
	var groups []Group
	if err := d.db.Preload("Members").Where("digest = ?", digest).Order("id").Find(&groups).Error; err != nil {
		logger.Get().Error().Err(err).Msgf("按摘要查询重复组失败: %s", digest)
		return nil, err
	}
	return groups, nil
}

// DeleteScan 删除一次扫描及其所有明细
func (d *Database) DeleteScan(scanID string) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		var groupIDs []int64
		if err := tx.Model(&Group{}).Where("scan_id = ?", scanID).Pluck("id", &groupIDs).Error; err != nil {
			return err
		}
		if len(groupIDs) > 0 {
			if err := tx.Where("group_id IN ?", groupIDs).Delete(&Member{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("scan_id = ?", scanID).Delete(&Group{}).Error; err != nil {
			return err
		}
		if err := tx.Where("scan_id = ?", scanID).Delete(&ScanError{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", scanID).Delete(&Scan{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrScanNotFound
		}
		return nil
	})
}

func (d *Database) Close() error {
	logger.Get().Info().Msg("关闭数据库连接")
	sqlDB, err := d.db.DB()
	if err != nil {
		logger.Get().Error().Err(err).Msg("获取数据库连接失败")
		return err
	}
	return sqlDB.Close()
}

func newScanRow(result *internal.ScanResult) *Scan {
	row := &Scan{
		ID:                 result.ScanID,
		Root:               result.Root,
		State:              result.State.String(),
		TotalFiles:         result.Stats.TotalFiles,
		TotalBytes:         result.Stats.TotalBytes,
		DuplicateFileCount: result.Stats.DuplicateFileCount,
		ReclaimableBytes:   result.Stats.ReclaimableBytes,
		ErrorCount:         len(result.Errors),
		StartedAt:          result.StartTime,
		FinishedAt:         result.EndTime,
	}

	for _, g := range result.DuplicateGroups {
		group := Group{Digest: g.Digest, Size: g.Size}
		for _, m := range g.Members {
			group.Members = append(group.Members, Member{
				Path:     m.Path,
				Modified: m.Modified,
				MIME:     m.MIME,
				Safe:     m.Safety.Safe,
				Reasons:  strings.Join(m.Safety.Reasons, ","),
				Keep:     m == g.Keep,
			})
		}
		row.Groups = append(row.Groups, group)
	}

	for _, e := range result.Errors {
		row.Errors = append(row.Errors, ScanError{
			Path:    e.Path,
			Stage:   string(e.Stage),
			Message: e.Err.Error(),
		})
	}

	return row
}
