package errs

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// 业务错误码。4xx 段对调用方可见，5xx 段为内部错误。
const (
	CodeArgs         = 40001 // 参数非法
	CodeUnknownUser  = 40401 // 发送方或接收方不存在
	CodeBlocked      = 40301 // 发送方在接收方黑名单
	CodeDuplicateKey = 40901 // 消息ID冲突，调用方需换ID重试
	CodeNotFound     = 40402 // 记录不存在
	CodeInternal     = 50000 // 内部错误
	CodeCacheDown    = 50301 // 缓存不可用（仅内部使用，不回传调用方）
	CodeMetadataRace = 50302 // 元数据条件更新失败（有限重试后升级为 Internal）
	CodeArchiveWrite = 50303 // 冷存储写入失败，归档放弃
)

var (
	ErrArgs         = NewCodeError(CodeArgs, "invalid argument")
	ErrUnknownUser  = NewCodeError(CodeUnknownUser, "unknown user")
	ErrBlocked      = NewCodeError(CodeBlocked, "sender is blocked by receiver")
	ErrDuplicateKey = NewCodeError(CodeDuplicateKey, "duplicate message id")
	ErrNotFound     = NewCodeError(CodeNotFound, "record not found")
	ErrInternal     = NewCodeError(CodeInternal, "internal error")
	ErrCacheDown    = NewCodeError(CodeCacheDown, "cache unavailable")
	ErrMetadataRace = NewCodeError(CodeMetadataRace, "metadata update conflict")
	ErrArchiveWrite = NewCodeError(CodeArchiveWrite, "cold storage write failed")
)

func NewCodeError(code int, msg string) CodeError {
	return CodeError{
		Code: code,
		Msg:  msg,
	}
}

type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func (e CodeError) Error() string {
	v := make([]string, 0, 3)
	v = append(v, strconv.Itoa(e.Code), e.Msg)
	if e.Detail != "" {
		v = append(v, e.Detail)
	}
	return strings.Join(v, " ")
}

func (e CodeError) WithDetail(detail string) CodeError {
	d := detail
	if e.Detail != "" {
		d = e.Detail + ", " + detail
	}
	return CodeError{Code: e.Code, Msg: e.Msg, Detail: d}
}

// Wrap 附加堆栈后返回 error
func (e CodeError) Wrap() error {
	return errors.WithStack(e)
}

// WrapMsg 附加 "msg k=v ..." 细节与堆栈
func (e CodeError) WrapMsg(msg string, kv ...any) error {
	return errors.WithStack(e.WithDetail(toString(msg, kv)))
}

// Is 按错误码判定，忽略 Detail 差异
func (e CodeError) Is(err error) bool {
	var ce CodeError
	if !stderrors.As(err, &ce) {
		return false
	}
	return ce.Code == e.Code
}

// IsCode 判断 err 链上是否存在指定错误码
func IsCode(err error, code int) bool {
	var ce CodeError
	if !stderrors.As(err, &ce) {
		return false
	}
	return ce.Code == code
}

// New 普通错误 + 堆栈
func New(msg string, kv ...any) error {
	return errors.New(toString(msg, kv))
}

// WrapMsg 包装已有错误，附加细节与堆栈
func WrapMsg(err error, msg string, kv ...any) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(errors.WithMessage(err, toString(msg, kv)))
}

func toString(msg string, kv []any) string {
	var sb strings.Builder
	sb.WriteString(msg)
	for i := 0; i < len(kv); i += 2 {
		if i != 0 || msg != "" {
			sb.WriteString(" ")
		}
		sb.WriteString(toStr(kv[i]))
		sb.WriteString("=")
		if i+1 < len(kv) {
			sb.WriteString(toStr(kv[i+1]))
		}
	}
	return sb.String()
}

func toStr(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case error:
		return x.Error()
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}
