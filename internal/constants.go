package internal

const (
	// 报告数据库默认路径，为空表示不保存
	DefaultDatabasePath = ""

	// 部分哈希读取的前缀长度
	DefaultPartialSize = 64 * 1024

	// 每个哈希任务使用的读缓冲区大小
	DefaultReadBufferSize = 64 * 1024

	// 哈希 worker 数量
	DefaultWorkers = 8

	// 遍历结果通道缓冲区大小
	DefaultBufferSize = 1000
)

// EmptyDigest 空内容的 SHA-256，空文件组直接使用，无需读取文件
const EmptyDigest = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
