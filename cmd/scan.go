package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/WhiteFoxMax/dupemgr/internal/app"
	"github.com/WhiteFoxMax/dupemgr/pkg/deduplicator"
)

var scanCmd = &cobra.Command{
	Use:   "scan <directory>",
	Short: "扫描目录并列出重复文件",
	Long: `遍历指定目录，按大小预筛后用两阶段哈希确认内容相同的文件，
输出重复组、每个文件的安全标注和可释放空间。按 Ctrl+C 取消时输出已确认的部分结果。`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	logLevel, _ := cmd.Flags().GetString("log-level")
	dbPath, _ := cmd.Flags().GetString("db")
	workers, _ := cmd.Flags().GetInt("workers")
	partialSize, _ := cmd.Flags().GetInt64("partial-size")
	exclude, _ := cmd.Flags().GetStringSlice("exclude")
	minSize, _ := cmd.Flags().GetInt64("min-size")
	keep, _ := cmd.Flags().GetString("keep")
	verbose, _ := cmd.Flags().GetBool("verbose")
	asJSON, _ := cmd.Flags().GetBool("json")
	progress, _ := cmd.Flags().GetDuration("progress")

	opts := &app.ScanOptions{
		Root:             args[0],
		ConfigFile:       configFile,
		Workers:          workers,
		PartialSize:      partialSize,
		Exclude:          exclude,
		MinSize:          minSize,
		Keep:             keep,
		DBPath:           dbPath,
		LogLevel:         logLevel,
		Verbose:          verbose,
		ProgressInterval: progress,
	}

	result, err := app.RunScan(context.Background(), opts)
	if result == nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		if jerr := writeJSON(out, result); jerr != nil {
			return jerr
		}
	} else {
		printResult(out, result, verbose)
	}

	if errors.Is(err, deduplicator.ErrScanCancelled) {
		cmd.PrintErrln("扫描已取消，以上为部分结果")
	}
	return err
}

func init() {
	scanCmd.Flags().IntP("workers", "w", 0, "哈希并发数（默认读取配置）")
	scanCmd.Flags().Int64("partial-size", 0, "部分哈希读取的前缀字节数")
	scanCmd.Flags().StringSliceP("exclude", "e", nil, "按文件名排除的 glob 模式，可重复")
	scanCmd.Flags().Int64("min-size", 0, "忽略小于该字节数的文件")
	scanCmd.Flags().String("keep", "", "保留策略: first, oldest, newest, shortest")
	scanCmd.Flags().BoolP("verbose", "v", false, "显示摘要和 MIME，并输出调试日志")
	scanCmd.Flags().Bool("json", false, "以 JSON 输出结果")
	scanCmd.Flags().Duration("progress", 2*time.Second, "进度日志间隔，0 表示关闭")

	rootCmd.AddCommand(scanCmd)
}
