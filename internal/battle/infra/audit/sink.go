package audit

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"KingdomWars/internal/battle/app"
)

const (
	resolutionCollection = "battle_resolution"
	noticeCollection     = "defeat_notice"
)

// Sink 把终局摘要与战败通知落到文档库：结构自由、只追加，适合审计与回溯。
type Sink struct {
	resolutions *mongo.Collection
	notices     *mongo.Collection
}

func NewSink(db *mongo.Database) *Sink {
	return &Sink{
		resolutions: db.Collection(resolutionCollection),
		notices:     db.Collection(noticeCollection),
	}
}

func (s *Sink) ArchiveResolution(ctx context.Context, a app.ResolutionArchive) error {
	if s == nil || s.resolutions == nil {
		return errors.New("mongodb resolution collection is nil")
	}
	_, err := s.resolutions.InsertOne(ctx, a)
	return err
}

// noticeDoc 是战败通知的存储形态；消费方（站内信等）按 delivered 拉取。
type noticeDoc struct {
	BattleId   int64     `bson:"battle_id"`
	KingdomId  int64     `bson:"kingdom_id"`
	RulerId    int64     `bson:"ruler_id"`
	WinnerSide string    `bson:"winner_side"`
	Delivered  bool      `bson:"delivered"`
	Ctime      time.Time `bson:"ctime"`
}

func (s *Sink) NotifyDefeat(ctx context.Context, n app.DefeatNotice) error {
	if s == nil || s.notices == nil {
		return errors.New("mongodb notice collection is nil")
	}
	_, err := s.notices.InsertOne(ctx, noticeDoc{
		BattleId:   n.BattleId,
		KingdomId:  n.KingdomId,
		RulerId:    n.RulerId,
		WinnerSide: string(n.WinnerSide),
		Ctime:      time.Now(),
	})
	return err
}
