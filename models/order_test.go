package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    OrderStatus
		wantErr bool
	}{
		{in: "Placed", want: StatusPlaced},
		{in: "outfordelivery", want: StatusOutForDelivery},
		{in: "5", want: StatusDelivered},
		{in: " 6 ", want: StatusCancelled},
		{in: "0", wantErr: true},
		{in: "7", wantErr: true},
		{in: "Lost", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOrderStatus(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOrderStatus_Terminal(t *testing.T) {
	for _, s := range AllStatuses() {
		assert.Equal(t, s == StatusDelivered || s == StatusCancelled, s.IsTerminal(), s.String())
	}
}

func TestOrderStatus_JSON(t *testing.T) {
	b, err := json.Marshal(StatusPreparing)
	require.NoError(t, err)
	assert.JSONEq(t, `"Preparing"`, string(b))

	var fromName, fromNumber OrderStatus
	require.NoError(t, json.Unmarshal([]byte(`"Delivered"`), &fromName))
	require.NoError(t, json.Unmarshal([]byte(`2`), &fromNumber))
	assert.Equal(t, StatusDelivered, fromName)
	assert.Equal(t, StatusConfirmed, fromNumber)

	var bad OrderStatus
	assert.Error(t, json.Unmarshal([]byte(`true`), &bad))
}
