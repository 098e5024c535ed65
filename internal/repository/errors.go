// Package repository 提供了数据访问层的实现。
package repository

import "errors"

var (
	// ErrNotFound 表示目标记录不存在。
	ErrNotFound = errors.New("record not found")
	// ErrStaleWrite 表示写入携带的 revision 落后于已存储的版本，
	// 持久层据此拒绝过期快照，防止防抖写回与手动保存之间的后写覆盖。
	ErrStaleWrite = errors.New("stale write rejected")
)
