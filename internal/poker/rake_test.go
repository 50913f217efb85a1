package poker

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/holdem/internal/models"
)

func TestMoney(t *testing.T) {
	assert.Equal(t, 0.3, Money(0.1+0.2))
	assert.Equal(t, 1.99, Money(1.999))
	assert.Equal(t, -1.99, Money(-1.999))
	assert.Equal(t, int64(1330), toCents(13.3))
}

func TestVIPTierFor(t *testing.T) {
	assert.Equal(t, "Fish", VIPTierFor(0).Name)
	assert.Equal(t, "Fish", VIPTierFor(999).Name)
	assert.Equal(t, "Grinder", VIPTierFor(1000).Name)
	assert.Equal(t, "Shark", VIPTierFor(19999).Name)
	assert.Equal(t, "High Roller", VIPTierFor(20000).Name)
	assert.Equal(t, "Legend", VIPTierFor(250000).Name)
}

func TestCalculateRake(t *testing.T) {
	fish := VIPTierFor(0)
	assert.Equal(t, 0.7, CalculateRake(14, fish, models.ModeCash))
	assert.Equal(t, 5.0, CalculateRake(1000, fish, models.ModeCash))
	assert.Equal(t, 3.0, CalculateRake(1000, VIPTierFor(100000), models.ModeCash))
	assert.Equal(t, 0.0, CalculateRake(1000, fish, models.ModePractice))
	assert.Equal(t, 0.0, CalculateRake(0, fish, models.ModeCash))
}

func TestDistributeRake(t *testing.T) {
	split := DistributeRake(5, 1.5)
	assert.Equal(t, RakeSplit{Jackpot: 0.25, GlobalPool: 0.25, Referral: 1.5, Operator: 3}, split)

	clamped := DistributeRake(0.7, 5)
	assert.Equal(t, 0.03, clamped.Jackpot)
	assert.Equal(t, 0.64, clamped.Referral)
	assert.Equal(t, 0.0, clamped.Operator)

	assert.Equal(t, RakeSplit{}, DistributeRake(0, 0))

	for _, rake := range []float64{0.01, 0.33, 1.99, 4.5, 5} {
		s := DistributeRake(rake, rake*0.3)
		total := toCents(s.Jackpot) + toCents(s.GlobalPool) + toCents(s.Referral) + toCents(s.Operator)
		assert.Equal(t, toCents(rake), total, "rake %.2f", rake)
	}
}

func TestReferralOverrides(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	chain := []models.Referrer{
		{UserID: ids[0], Rank: models.RankAgent},
		{UserID: ids[1], Rank: models.RankBroker},
		{UserID: ids[2], Rank: models.RankPartner},
		{UserID: ids[3], Rank: models.RankAgent},
		{UserID: ids[4], Rank: models.RankMaster},
	}
	out := ReferralOverrides(10, chain)
	require.Len(t, out, 4)
	assert.Equal(t, Override{UserID: ids[0], Percent: 20, Amount: 2}, out[0])
	assert.Equal(t, Override{UserID: ids[1], Percent: 15, Amount: 1.5}, out[1])
	assert.Equal(t, Override{UserID: ids[2], Percent: 15, Amount: 1.5}, out[2])
	assert.Equal(t, Override{UserID: ids[4], Percent: 10, Amount: 1}, out[3])
	assert.Equal(t, 6.0, OverrideTotal(out))
}

func TestReferralOverridesStopsOnCycle(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	chain := []models.Referrer{
		{UserID: a, Rank: models.RankAgent},
		{UserID: b, Rank: models.RankBroker},
		{UserID: a, Rank: models.RankMaster},
	}
	out := ReferralOverrides(10, chain)
	require.Len(t, out, 2)
	assert.Equal(t, 3.5, OverrideTotal(out))

	assert.Empty(t, ReferralOverrides(0, chain))
	assert.Empty(t, ReferralOverrides(10, []models.Referrer{{UserID: a, Rank: models.RankFree}}))
}
