package transport

// BizCode 是业务码的强类型封装，用于日志上下文，减少误传风险。
type BizCode int

const (
	// OK 表示请求成功。
	OK = 0
	// BizReject 表示业务拒绝（1~499 区间，access 日志打 WARN）。
	BizReject = 400
	// SystemError 表示技术错误（>=500 区间，access 日志打 ERROR）。
	SystemError = 500
)
