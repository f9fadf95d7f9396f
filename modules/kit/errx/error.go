package errx

import (
	"errors"
	"fmt"
	"runtime"
)

// Code 是错误码，承载对外的稳定语义（客户端/告警按 code 判断，而不是按 msg）。
type Code string

type category uint8

const (
	categoryBiz category = iota // 业务拒绝：预期内，不打堆栈
	categorySys                 // 技术错误：预期外，首次 wrap 处捕获一次堆栈
)

// Reason 是错误原因的最小接口，只暴露 reason code（服务内枚举）。
type Reason interface {
	ReasonCode() string
}

// Error 是全仓库统一的错误模型：
//   - code/msg 对外语义
//   - data     业务上下文（内部复制，外部拿到的是副本）
//   - cause    原始错误链，仅用于溯源
//   - stack    只在系统类错误第一次挂 cause 时捕获一次
type Error struct {
	code     Code
	msg      string
	data     map[string]any
	cause    error
	stack    []uintptr
	category category
}

func NewBiz(code Code, msg string) *Error {
	return &Error{code: code, msg: msg, category: categoryBiz}
}

func NewSys(code Code, msg string) *Error {
	return &Error{code: code, msg: msg, category: categorySys}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.msg == "" && e.cause == nil:
		return string(e.code)
	case e.msg == "":
		return fmt.Sprintf("%s: %v", e.code, e.cause)
	case e.cause == nil:
		return fmt.Sprintf("%s: %s", e.code, e.msg)
	default:
		return fmt.Sprintf("%s: %s: %v", e.code, e.msg, e.cause)
	}
}

// Unwrap 让 errors.Is / errors.As 沿 cause 链溯源。
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is 只按错误码比较语义，忽略 msg/data/cause。
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok || t == nil {
		return false
	}
	return e.code == t.code
}

func (e *Error) Code() Code {
	if e == nil {
		return ""
	}
	return e.code
}

func (e *Error) CodeText() string {
	if e == nil {
		return ""
	}
	return string(e.code)
}

func (e *Error) Msg() string {
	if e == nil {
		return ""
	}
	return e.msg
}

// Data 返回上下文副本，禁止外部改写原始 data。
func (e *Error) Data() map[string]any {
	if e == nil || e.data == nil {
		return nil
	}
	return copyMap(e.data)
}

// Reason 返回约定的 reason code（存储在 data["reason"]）。
func (e *Error) Reason() string {
	if e == nil || e.data == nil {
		return ""
	}
	s, _ := e.data["reason"].(string)
	return s
}

// IsBiz 判断错误链上是否为业务拒绝类错误（预期内，日志降级为 WARN）。
func IsBiz(err error) bool {
	var e *Error
	if !errors.As(err, &e) || e == nil {
		return false
	}
	return e.category == categoryBiz
}

// Stack 返回系统类错误首次转换处的调用栈（业务类错误恒为 nil）。
func (e *Error) Stack() []uintptr {
	if e == nil || len(e.stack) == 0 {
		return nil
	}
	out := make([]uintptr, len(e.stack))
	copy(out, e.stack)
	return out
}

// WithData 派生一个带新上下文的错误对象，原对象不变（哨兵错误可安全共享）。
func (e *Error) WithData(key string, value any) *Error {
	next := e.clone()
	if next.data == nil {
		next.data = make(map[string]any, 1)
	}
	next.data[key] = value
	return next
}

// WithReason 是 WithData("reason", reason.ReasonCode()) 的语义化写法。
func (e *Error) WithReason(reason Reason) *Error {
	if reason == nil {
		return e.WithData("reason", "")
	}
	return e.WithData("reason", reason.ReasonCode())
}

func (e *Error) WithDataMap(data map[string]any) *Error {
	next := e.clone()
	if len(data) == 0 {
		return next
	}
	if next.data == nil {
		next.data = make(map[string]any, len(data))
	}
	for k, v := range data {
		next.data[k] = v
	}
	return next
}

func (e *Error) WithCause(cause error) *Error {
	next := e.clone()
	next.cause = cause
	// 系统类错误只在链上尚无堆栈时捕获一次，避免层层重复捕获。
	if next.category == categorySys && cause != nil && len(next.stack) == 0 && !chainHasStack(cause) {
		next.stack = callers(3)
	}
	return next
}

func (e *Error) clone() *Error {
	next := &Error{
		code:     e.code,
		msg:      e.msg,
		cause:    e.cause,
		category: e.category,
	}
	next.data = copyMap(e.data)
	if len(e.stack) != 0 {
		next.stack = make([]uintptr, len(e.stack))
		copy(next.stack, e.stack)
	}
	return next
}

func copyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func callers(skip int) []uintptr {
	const maxDepth = 64
	pcs := make([]uintptr, maxDepth)
	n := runtime.Callers(skip, pcs)
	if n <= 0 {
		return nil
	}
	return pcs[:n]
}

func chainHasStack(err error) bool {
	const maxDepth = 32
	for i := 0; i < maxDepth && err != nil; i++ {
		if sp, ok := err.(interface{ Stack() []uintptr }); ok && len(sp.Stack()) != 0 {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}
