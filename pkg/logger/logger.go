package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

var Logger *zerolog.Logger

var discard = zerolog.New(io.Discard)

// logFile Init 打开的日志文件，再次 Init 或 Close 时关闭
var logFile *os.File

// Init 初始化 zerolog 日志
// level: 日志级别 ("trace", "debug", "info", "warn", "error")
// file: 日志文件路径，为空时仅输出到标准错误
// 重复调用时关闭上一次打开的日志文件
func Init(level string, file string) error {
	logLevel, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || logLevel == zerolog.NoLevel {
		logLevel = zerolog.InfoLevel
	}

	var output io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"}

	var fileWriter *os.File
	if file != "" {
		// 文件中保留 JSON 格式，控制台使用友好格式
		fileWriter, err = os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		output = zerolog.MultiLevelWriter(output, fileWriter)
	}

	Close()
	logFile = fileWriter

	logger := zerolog.New(output).With().Timestamp().Logger().Level(logLevel)
	Logger = &logger
	return nil
}

// Close 关闭日志文件，之后的日志只输出到标准错误
func Close() error {
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	if Logger != nil {
		logger := Logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"})
		Logger = &logger
	}
	return err
}

// Get 返回全局 logger 实例
// 如果 logger 未初始化，返回一个丢弃所有输出的 logger
func Get() *zerolog.Logger {
	if Logger == nil {
		return &discard
	}
	return Logger
}
