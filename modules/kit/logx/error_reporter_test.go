package logx

import (
	"errors"
	"testing"

	"KingdomWars/modules/kit/errx"
)

func TestBuildErrorLog_能提取语义与栈(t *testing.T) {
	cause := errors.New("db down")
	e := errx.NewSys("SYS_INTERNAL", "服务器内部错误").
		WithData("method", "ApplyPush").
		WithCause(cause)

	meta := BuildErrorLog(e)
	if meta.Error == "" {
		t.Fatalf("期望 meta.Error 非空")
	}
	if meta.Code == "" {
		t.Fatalf("期望 meta.Code 非空")
	}
	if meta.Msg == "" {
		t.Fatalf("期望 meta.Msg 非空")
	}
	if meta.Data == nil || meta.Data["method"] != "ApplyPush" {
		t.Fatalf("期望 meta.Data 包含 method=ApplyPush, got=%v", meta.Data)
	}
	if len(meta.CauseChain) == 0 {
		t.Fatalf("期望 meta.CauseChain 非空")
	}
	if meta.Origin == "" || meta.Stack == "" {
		t.Fatalf("期望 meta.Origin/meta.Stack 非空（错误发生/转换处栈） origin=%q stack=%q", meta.Origin, meta.Stack)
	}
}

func TestBuildErrorLog_业务错误无栈(t *testing.T) {
	e := errx.NewBiz("BATTLE_INVALID_PHASE", "当前阶段不允许该操作")
	meta := BuildErrorLog(e)
	if meta.Stack != "" {
		t.Fatalf("期望业务错误无栈，got=%q", meta.Stack)
	}
	if meta.Code != "BATTLE_INVALID_PHASE" {
		t.Fatalf("期望提取 code，got=%q", meta.Code)
	}
}
