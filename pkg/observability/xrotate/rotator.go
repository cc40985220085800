package xrotate

import "io"

var _ io.WriteCloser = (Rotator)(nil)

// Rotator 日志轮转器，并发安全。
//
// Close 之后 Write 与 Rotate 返回 [ErrClosed]，重复 Close 同样返回 [ErrClosed]。
type Rotator interface {
	// Write 写入日志数据，超过大小上限时自动轮转。
	Write(p []byte) (n int, err error)

	// Close 关闭当前文件。
	Close() error

	// Rotate 手动轮转：当前文件改名为备份并打开新文件。
	Rotate() error
}
