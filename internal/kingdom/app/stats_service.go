package app

import (
	"context"

	battleapp "KingdomWars/internal/battle/app"
	battledomain "KingdomWars/internal/battle/domain"
	"KingdomWars/internal/kingdom/infra/repo"
)

// StatsService 提供战斗属性查询：政变看阴谋本事，入侵看战争本事。
type StatsService struct {
	nobles   *repo.NobleRepo
	kingdoms *repo.KingdomRepo
}

func NewStatsService(nobles *repo.NobleRepo, kingdoms *repo.KingdomRepo) *StatsService {
	return &StatsService{
		nobles:   nobles,
		kingdoms: kingdoms,
	}
}

func (s *StatsService) CombatStat(ctx context.Context, uid int64, kind battledomain.Kind) (int, error) {
	n, err := s.nobles.GetByUid(ctx, uid)
	if err != nil {
		return 0, err
	}
	if kind == battledomain.KindCoup {
		return n.CoupStat, nil
	}
	return n.WarStat, nil
}

func (s *StatsService) DefenseStat(ctx context.Context, uid int64) (int, error) {
	n, err := s.nobles.GetByUid(ctx, uid)
	if err != nil {
		return 0, err
	}
	return n.DefenseStat, nil
}

func (s *StatsService) Garrison(ctx context.Context, kingdomID int64) (battleapp.GarrisonStats, error) {
	k, err := s.kingdoms.Get(ctx, kingdomID)
	if err != nil {
		return battleapp.GarrisonStats{}, err
	}
	return battleapp.GarrisonStats{
		Strength: k.GarrisonMight,
		Defense:  k.GarrisonDefense,
	}, nil
}
