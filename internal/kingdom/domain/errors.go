package domain

import "KingdomWars/modules/kit/errx"

type Code = errx.Code

const (
	CodeKingdomNotFound Code = "KINGDOM_NOT_FOUND"
	CodeNobleNotFound   Code = "KINGDOM_NOBLE_NOT_FOUND"
)

var (
	ErrKingdomNotFound   = errx.NewBiz(CodeKingdomNotFound, "")
	ErrNobleNotFound     = errx.NewBiz(CodeNobleNotFound, "")
	ErrSystemUnavailable = errx.ErrUnavailable
)
