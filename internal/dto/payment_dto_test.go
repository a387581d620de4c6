package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstallmentPlan_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want InstallmentPlan
	}{
		{`{"installments":"full"}`, FullPlan()},
		{`{"installments":null}`, FullPlan()},
		{`{"installments":3}`, Installments(3)},
		{`{"installments":1}`, Installments(1)},
	}
	for _, tt := range tests {
		var req ConfigurePaymentRequest
		require.NoError(t, json.Unmarshal([]byte(tt.in), &req), tt.in)
		assert.Equal(t, tt.want, req.Installments, tt.in)
	}

	var req ConfigurePaymentRequest
	assert.Error(t, json.Unmarshal([]byte(`{"installments":"twelve"}`), &req))
}

func TestInstallmentPlan_AbsentMeansFull(t *testing.T) {
	var req ConfigurePaymentRequest
	require.NoError(t, json.Unmarshal([]byte(`{"method":"cash"}`), &req))
	assert.Equal(t, FullPlan(), req.Installments.OrFull())

	require.NoError(t, json.Unmarshal([]byte(`{"method":"credit","installments":0}`), &req))
	assert.Equal(t, Installments(0), req.Installments.OrFull(), "an explicit zero stays invalid")
	assert.Equal(t, Installments(4), Installments(4).OrFull())
}

func TestInstallmentPlan_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(FullPlan())
	require.NoError(t, err)
	assert.JSONEq(t, `"full"`, string(b))

	b, err = json.Marshal(Installments(6))
	require.NoError(t, err)
	assert.JSONEq(t, `6`, string(b))
}
