// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package signals 提供级联预测引擎的默认协作服务：错误指纹、相似度与时间衰减
package signals

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"errcascade/internal/cascade"
	"errcascade/pkg/errors"
)

var (
	uuidPattern   = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
	hexPattern    = regexp.MustCompile(`\b0x[0-9a-fA-F]+\b|\b[0-9a-fA-F]{16,}\b`)
	numberPattern = regexp.MustCompile(`\d+(\.\d+)?`)
	spacePattern  = regexp.MustCompile(`\s+`)
)

// MessageFingerprinter 以 "type:归一化消息" 作为错误模式。
// 归一化会把 UUID、十六进制串和数字替换为占位符，使同类错误落到同一模式。
type MessageFingerprinter struct {
	// MaxMessageLen 归一化消息的最大长度，<=0 表示不截断
	MaxMessageLen int
}

// NewMessageFingerprinter 创建默认指纹服务
func NewMessageFingerprinter() *MessageFingerprinter {
	return &MessageFingerprinter{MaxMessageLen: 200}
}

// Fingerprint 实现 cascade.Fingerprinter
func (f *MessageFingerprinter) Fingerprint(ctx context.Context, occ cascade.ErrorOccurrence) (string, error) {
	typ := strings.ToLower(strings.TrimSpace(strings.ToValidUTF8(occ.Type, "")))
	msg := f.normalize(occ.Message)
	if typ == "" && msg == "" {
		return "", errors.Wrapf(errors.ErrInvalidArg, "occurrence %s has neither type nor message", occ.ID)
	}
	if msg == "" {
		return typ, nil
	}
	return typ + ":" + msg, nil
}

func (f *MessageFingerprinter) normalize(msg string) string {
	// 指纹会经 JSON 写入缓存，非法 UTF-8 会被替换，必须保证结果合法
	msg = strings.ToValidUTF8(msg, "")
	msg = uuidPattern.ReplaceAllString(msg, "<uuid>")
	msg = hexPattern.ReplaceAllString(msg, "<hex>")
	msg = numberPattern.ReplaceAllString(msg, "<n>")
	msg = spacePattern.ReplaceAllString(strings.TrimSpace(msg), " ")
	msg = strings.ToLower(msg)
	if f.MaxMessageLen > 0 && len(msg) > f.MaxMessageLen {
		n := f.MaxMessageLen
		// 在字符边界截断
		for n > 0 && !utf8.RuneStart(msg[n]) {
			n--
		}
		msg = strings.TrimRight(msg[:n], " ")
	}
	return msg
}
