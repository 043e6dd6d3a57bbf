package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/WhiteFoxMax/dupemgr/internal/app"
)

var reportCmd = &cobra.Command{
	Use:   "report [scan-id]",
	Short: "查看已保存的扫描报告",
	Long: `不带参数时列出数据库中保存的所有扫描；指定扫描 ID 时输出该次扫描的重复组。
使用 --delete 删除指定的扫描报告。`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	logLevel, _ := cmd.Flags().GetString("log-level")
	dbPath, _ := cmd.Flags().GetString("db")
	del, _ := cmd.Flags().GetBool("delete")

	db, err := app.OpenReports(&app.ReportOptions{
		ConfigFile: configFile,
		DBPath:     dbPath,
		LogLevel:   logLevel,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	out := cmd.OutOrStdout()

	if len(args) == 0 {
		if del {
			return fmt.Errorf("--delete 需要指定扫描 ID")
		}
		scans, err := db.Scans()
		if err != nil {
			return err
		}
		for _, s := range scans {
			fmt.Fprintf(out, "%s  %s  %-9s  %s 个文件  %s 可释放  %s\n",
				s.ID, s.StartedAt.Format("2006-01-02 15:04:05"), s.State,
				humanize.Comma(int64(s.TotalFiles)), humanize.IBytes(uint64(s.ReclaimableBytes)), s.Root)
		}
		return nil
	}

	if del {
		if err := db.DeleteScan(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(out, "已删除扫描报告 %s\n", args[0])
		return nil
	}

	scan, err := db.LoadScan(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "扫描 %s (%s)，%s\n", scan.Root, scan.ID, humanize.Time(scan.StartedAt))
	for i, g := range scan.Groups {
		fmt.Fprintf(out, "\n[%d] %d 个文件，每个 %s\n", i+1, len(g.Members), humanize.IBytes(uint64(g.Size)))
		for _, m := range g.Members {
			mark := "D"
			switch {
			case m.Keep:
				mark = "K"
			case !m.Safe:
				mark = "!"
			}
			note := ""
			if m.Reasons != "" {
				note = "  (" + m.Reasons + ")"
			}
			fmt.Fprintf(out, "    %s %s%s\n", mark, m.Path, note)
		}
	}
	fmt.Fprintf(out, "\n可释放空间: %s，错误: %d\n", humanize.IBytes(uint64(scan.ReclaimableBytes)), scan.ErrorCount)
	for _, e := range scan.Errors {
		fmt.Fprintf(out, "  ! %s %s: %s\n", e.Stage, e.Path, e.Message)
	}
	return nil
}

func init() {
	reportCmd.Flags().Bool("delete", false, "删除指定的扫描报告")

	rootCmd.AddCommand(reportCmd)
}
