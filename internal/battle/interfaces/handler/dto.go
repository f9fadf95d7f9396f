package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"KingdomWars/internal/shared/transport"
)

type OpenBattleReq struct {
	KingdomId     int64  `json:"kingdom_id" binding:"required"`
	Kind          string `json:"kind" binding:"required"`
	FromKingdomId int64  `json:"from_kingdom_id"`
	PledgeMinutes int    `json:"pledge_minutes"`
}

type PledgeReq struct {
	Side string `json:"side" binding:"required"`
}

type OpenSessionReq struct {
	TerritoryId int64 `json:"territory_id" binding:"required"`
}

// respondOK 统一成功包络：access 日志按 code 字段分级。
func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code": transport.OK,
		"data": data,
	})
}
