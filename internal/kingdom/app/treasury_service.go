package app

import (
	"context"

	"KingdomWars/internal/kingdom/infra/repo"
)

// TreasuryService 负责赏金划转：Debit 从王国金库划出，Credit 入玩家金袋。
// 金库允许透支为负，战败王国欠着也得付。
type TreasuryService struct {
	kingdoms *repo.KingdomRepo
	nobles   *repo.NobleRepo
}

func NewTreasuryService(kingdoms *repo.KingdomRepo, nobles *repo.NobleRepo) *TreasuryService {
	return &TreasuryService{
		kingdoms: kingdoms,
		nobles:   nobles,
	}
}

func (s *TreasuryService) Debit(ctx context.Context, account, amount int64) error {
	return s.kingdoms.AddTreasury(ctx, account, -amount)
}

func (s *TreasuryService) Credit(ctx context.Context, account, amount int64) error {
	return s.nobles.AddGold(ctx, account, amount)
}
