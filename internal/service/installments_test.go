package service_test

import (
	"testing"
	"time"

	"oficina/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildInstallments_SumsToTotal(t *testing.T) {
	for _, tc := range []struct {
		total string
		n     int
		first string
		last  string
	}{
		{"100.00", 4, "25.00", "25.00"},
		{"100.00", 3, "33.33", "33.34"},
		{"10.00", 7, "1.42", "1.48"},
		{"0.05", 2, "0.02", "0.03"},
	} {
		list := service.BuildInstallments(uuid.New(), dec(tc.total), tc.n, date(2024, time.January, 15))
		require.Len(t, list, tc.n)
		sum := decimal.Zero
		for _, inst := range list {
			sum = sum.Add(inst.Amount)
		}
		assert.True(t, sum.Equal(dec(tc.total)), "%s/%d sums to %s", tc.total, tc.n, sum)
		assert.True(t, list[0].Amount.Equal(dec(tc.first)), "%s/%d first %s", tc.total, tc.n, list[0].Amount)
		assert.True(t, list[tc.n-1].Amount.Equal(dec(tc.last)), "%s/%d last %s", tc.total, tc.n, list[tc.n-1].Amount)
	}
	assert.Nil(t, service.BuildInstallments(uuid.New(), dec("10"), 0, time.Now()))
}

func TestAddMonthsClamped(t *testing.T) {
	assert.Equal(t, date(2024, time.February, 29), service.AddMonthsClamped(date(2024, time.January, 31), 1))
	assert.Equal(t, date(2023, time.February, 28), service.AddMonthsClamped(date(2023, time.January, 31), 1))
	assert.Equal(t, date(2024, time.April, 30), service.AddMonthsClamped(date(2024, time.March, 31), 1))
	assert.Equal(t, date(2025, time.January, 31), service.AddMonthsClamped(date(2024, time.December, 31), 1))
	assert.Equal(t, date(2024, time.March, 15), service.AddMonthsClamped(date(2024, time.January, 15), 2))
}
