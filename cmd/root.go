package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dupemgr",
	Short: "查找重复文件并标注可安全删除的副本",
	Long: `dupemgr 是一个命令行工具，用于在目录树中查找内容完全相同的文件。

主要功能:
- 并行遍历目录，不跟随符号链接，硬链接只计一次
- 先按文件大小预筛，再用前缀 xxHash 排除不同内容，最后用 SHA-256 确认
- 标注每个重复文件是否可以安全删除（系统目录、被占用、父目录不可写等）
- 汇总可释放空间，按文件类型统计
- 可选地把扫描报告保存到 SQLite 数据库

dupemgr 只做检测和标注，不会删除或移动任何文件。`,
	SilenceUsage: true,
}

// Execute 由 main.main 调用
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "配置文件路径（默认查找 $HOME/.dupemgr/config.yaml）")
	rootCmd.PersistentFlags().String("log-level", "", "日志级别: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().String("db", "", "报告数据库路径")
}
