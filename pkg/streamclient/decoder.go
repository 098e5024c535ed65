// Package streamclient implements the consumer side of the chat stream protocol.
package streamclient

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/jordanskizash/mindbase/internal/model"
	"github.com/jordanskizash/mindbase/pkg/log"
)

// 流中每条记录以固定标记开头，其余行与协议无关。
const frameMarker = "data: "

// Decoder 以拉取方式从字节流中解出完整的事件帧。
// 半行跨读块时留在缓冲里，下次读取续上；只有完整的行才会被解码。
type Decoder struct {
	r       io.Reader
	buf     []byte // 已读入但尚未消费的字节，尾部可能是不完整的一行
	readBuf []byte
	err     error // 底层读取的终态错误，缓冲耗尽后才向外返回
}

// NewDecoder 创建一个读取 r 的帧解码器。
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r, readBuf: make([]byte, 4096)}
}

// Next 返回下一帧。缓冲中没有完整帧时继续读取底层流；
// 底层流耗尽后返回 io.EOF（或底层错误）。
// 空载荷与无法解析的行被跳过，单个坏帧不会丢掉流的其余部分。
func (d *Decoder) Next() (*model.StreamEvent, error) {
	for {
		if i := bytes.IndexByte(d.buf, '\n'); i >= 0 {
			line := strings.TrimRight(string(d.buf[:i]), "\r")
			d.buf = d.buf[i+1:]
			ev, ok := decodeLine(line)
			if !ok {
				continue
			}
			return ev, nil
		}

		if d.err != nil {
			return nil, d.err
		}

		n, err := d.r.Read(d.readBuf)
		if n > 0 {
			d.buf = append(d.buf, d.readBuf[:n]...)
		}
		if err != nil {
			d.err = err
		}
	}
}

// decodeLine 解析单行记录，返回 false 表示该行应被跳过。
func decodeLine(line string) (*model.StreamEvent, bool) {
	if !strings.HasPrefix(line, frameMarker) {
		return nil, false
	}
	payload := strings.TrimSpace(strings.TrimPrefix(line, frameMarker))
	if payload == "" {
		return nil, false
	}

	var ev model.StreamEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		log.Warnf("skipping malformed stream frame: %v", err)
		return nil, false
	}
	return &ev, true
}
